// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CBOR message types. Decoded events use their FrameKind as message type.
const (
	MsgTextLine = 0x40
	MsgCommand  = 0x41
)

// CBOR payload keys
const (
	KeyText      = 0
	KeyTime      = 1
	KeyDirection = 2
	KeyHouse     = 3
	KeyUnit      = 4
	KeyFunction  = 5
	KeySteps     = 6
	KeyData      = 7
	KeyCommand   = 8
	KeySecAddr   = 9
	KeySecCode   = 10
	KeyCamera    = 11
	KeyFrame     = 12
)

// EncodeEventCBOR encodes a decoded event as [kind, payload_map]. The
// formatted line travels with it under KeyText.
func EncodeEventCBOR(ev *Event, line string, t time.Time) ([]byte, error) {
	payload := map[int]interface{}{
		KeyText:      line,
		KeyTime:      uint64(t.UnixMilli()),
		KeyDirection: string(rune(ev.Direction)),
		KeyFrame:     ev.Frame,
	}
	switch ev.Kind {
	case KindRFCamera:
		payload[KeyCamera] = ev.Camera
	case KindRFSecurity, KindRFSecurityExt:
		payload[KeySecAddr] = uint64(ev.SecAddr)
		payload[KeySecCode] = uint64(ev.SecCode)
	default:
		payload[KeyHouse] = ev.House.String()
		payload[KeyFunction] = ev.Function.Command()
		if ev.HasUnit {
			payload[KeyUnit] = uint64(ev.Unit) + 1
		}
		if ev.Kind == KindPLDimBright {
			payload[KeySteps] = uint64(ev.Steps)
		}
		if ev.Kind == KindPLExtendedTx || ev.Kind == KindPLExtendedRx {
			payload[KeyData] = uint64(ev.Data)
			payload[KeyCommand] = uint64(ev.Command)
		}
	}
	return encodeCBORMessage(uint8(ev.Kind), payload)
}

// EncodeTextCBOR encodes a plain reply or status line
func EncodeTextCBOR(line string, t time.Time) ([]byte, error) {
	return encodeCBORMessage(MsgTextLine, map[int]interface{}{
		KeyText: line,
		KeyTime: uint64(t.UnixMilli()),
	})
}

// EncodeCommandCBOR encodes a command line for submission over a broker
func EncodeCommandCBOR(line string) ([]byte, error) {
	return encodeCBORMessage(MsgCommand, map[int]interface{}{KeyText: line})
}

// CommandFromCBOR extracts the command line from a MsgCommand message
func CommandFromCBOR(data []byte) (string, error) {
	msgType, payload, err := ParseCBORMessage(data)
	if err != nil {
		return "", err
	}
	if msgType != MsgCommand {
		return "", fmt.Errorf("expected command message 0x%02X, got 0x%02X", MsgCommand, msgType)
	}
	line, ok := GetMapString(payload, KeyText)
	if !ok {
		return "", fmt.Errorf("command message has no text")
	}
	return line, nil
}

func encodeCBORMessage(msgType uint8, payload map[int]interface{}) ([]byte, error) {
	data, err := cbor.Marshal([]interface{}{uint64(msgType), payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode CBOR: %w", err)
	}
	return data, nil
}

// ParseCBORMessage parses a CBOR message: [msg_type, payload_map]
// Returns the message type and decoded payload map (nil for empty payloads)
func ParseCBORMessage(data []byte) (msgType uint8, payload map[int]interface{}, err error) {
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("empty CBOR payload")
	}

	var msg []interface{}
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return 0, nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	if len(msg) != 2 {
		return 0, nil, fmt.Errorf("expected 2-element array, got %d elements", len(msg))
	}

	v, ok := msg[0].(uint64)
	if !ok {
		return 0, nil, fmt.Errorf("expected uint for message type, got %T", msg[0])
	}
	if v > 255 {
		return 0, nil, fmt.Errorf("message type out of range: %d", v)
	}
	msgType = uint8(v)

	if msg[1] == nil {
		return msgType, nil, nil
	}
	m, ok := msg[1].(map[interface{}]interface{})
	if !ok {
		return 0, nil, fmt.Errorf("expected map or nil for payload, got %T", msg[1])
	}
	payload = make(map[int]interface{}, len(m))
	for key, val := range m {
		switch k := key.(type) {
		case uint64:
			payload[int(k)] = val
		case int64:
			payload[int(k)] = val
		default:
			return 0, nil, fmt.Errorf("expected integer map key, got %T", key)
		}
	}
	return msgType, payload, nil
}

// GetMapUint extracts a uint64 from a CBOR map by key
func GetMapUint(m map[int]interface{}, key int) (uint64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case uint64:
		return val, true
	case int64:
		if val >= 0 {
			return uint64(val), true
		}
	}
	return 0, false
}

// GetMapString extracts a string from a CBOR map by key
func GetMapString(m map[int]interface{}, key int) (string, bool) {
	v, ok := m[key].(string)
	return v, ok
}

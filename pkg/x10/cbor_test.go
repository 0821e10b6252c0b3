// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"bytes"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
)

func TestEncodeEventCBOR_Standard(t *testing.T) {
	ev, err := DecodeRF([]byte{0x5D, 0x20, 0x60, 0x9F, 0x00, 0xFF})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ts := time.UnixMilli(1700000000123)

	data, err := EncodeEventCBOR(ev, ev.String(), ts)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msgType, payload, err := ParseCBORMessage(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msgType != uint8(KindRFStandard) {
		t.Errorf("expected type %d, got %d", KindRFStandard, msgType)
	}
	if text, _ := GetMapString(payload, KeyText); text != "Rx RF HouseUnit: A1 Func: On" {
		t.Errorf("unexpected text %q", text)
	}
	if ms, _ := GetMapUint(payload, KeyTime); ms != 1700000000123 {
		t.Errorf("unexpected time %d", ms)
	}
	if h, _ := GetMapString(payload, KeyHouse); h != "A" {
		t.Errorf("unexpected house %q", h)
	}
	if u, _ := GetMapUint(payload, KeyUnit); u != 1 {
		t.Errorf("unexpected unit %d", u)
	}
	if f, _ := GetMapString(payload, KeyFunction); f != "ON" {
		t.Errorf("unexpected function %q", f)
	}
	frame, ok := payload[KeyFrame].([]byte)
	if !ok || !bytes.Equal(frame, ev.Frame) {
		t.Errorf("unexpected frame %v", payload[KeyFrame])
	}
}

func TestEncodeEventCBOR_Security(t *testing.T) {
	ev, err := DecodeRF([]byte{0x5D, 0x29, 0x7F, 0x70, 0x8C, 0x73, 0xCA, 0x00})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, err := EncodeEventCBOR(ev, ev.String(), time.Now())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, payload, err := ParseCBORMessage(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if addr, _ := GetMapUint(payload, KeySecAddr); addr != 0x7FCA00 {
		t.Errorf("unexpected address %06X", addr)
	}
	if code, _ := GetMapUint(payload, KeySecCode); code != 0x8C {
		t.Errorf("unexpected code %02X", code)
	}
	if _, ok := payload[KeyHouse]; ok {
		t.Error("security payload should not carry a house")
	}
}

func TestCommandCBOR_RoundTrip(t *testing.T) {
	data, err := EncodeCommandCBOR("pl a1 on")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	line, err := CommandFromCBOR(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if line != "pl a1 on" {
		t.Errorf("unexpected line %q", line)
	}
}

func TestCommandFromCBOR_Errors(t *testing.T) {
	text, _ := EncodeTextCBOR("hello", time.Now())
	noText, _ := cbor.Marshal([]interface{}{uint64(MsgCommand), map[int]interface{}{KeyTime: uint64(1)}})
	badKey, _ := cbor.Marshal([]interface{}{uint64(MsgCommand), map[string]interface{}{"text": "x"}})
	tooMany, _ := cbor.Marshal([]interface{}{uint64(MsgCommand), nil, nil})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not cbor", []byte{0xFF, 0xFF}},
		{"wrong type", text},
		{"missing text", noText},
		{"string keys", badKey},
		{"three elements", tooMany},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CommandFromCBOR(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseCBORMessage_NilPayload(t *testing.T) {
	data, err := cbor.Marshal([]interface{}{uint64(MsgTextLine), nil})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	msgType, payload, err := ParseCBORMessage(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msgType != MsgTextLine || payload != nil {
		t.Errorf("unexpected result %d %v", msgType, payload)
	}
}

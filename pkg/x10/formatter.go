// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"fmt"
	"strings"
)

// String formats the event as a client protocol line (without timestamp)
func (e *Event) String() string {
	switch e.Kind {
	case KindPLAddress:
		return fmt.Sprintf("%s PL HouseUnit: %s%s", e.Direction, e.House, e.Unit)
	case KindPLFunction:
		return fmt.Sprintf("%s PL House: %s Func: %s", e.Direction, e.House, e.Function)
	case KindPLDimBright:
		return fmt.Sprintf("%s PL House: %s Func: %s(%d)", e.Direction, e.House, e.Function, e.Steps)
	case KindPLExtendedTx, KindPLExtendedRx:
		return fmt.Sprintf("%s PL House: %s Func: %s Data: %02X Command: %02X",
			e.Direction, e.House, e.Function, e.Data, e.Command)
	case KindRFCamera:
		return fmt.Sprintf("%s RFCAM %s", e.Direction, e.Camera)
	case KindRFStandard:
		if e.HasUnit {
			return fmt.Sprintf("%s RF HouseUnit: %s%s Func: %s", e.Direction, e.House, e.Unit, e.Function)
		}
		return fmt.Sprintf("%s RF House: %s Func: %s", e.Direction, e.House, e.Function)
	case KindRFSecurity:
		return fmt.Sprintf("%s RFSEC Addr: 0x%02X Func: %s", e.Direction, byte(e.SecAddr), SecRemoteKeyName(e.SecCode))
	case KindRFSecurityExt:
		a := e.SecAddrBytes()
		return fmt.Sprintf("%s RFSEC Addr: %02X:%02X:%02X Func: %s", e.Direction, a[0], a[1], a[2], SecEventName(e.SecCode))
	default:
		return fmt.Sprintf("%s %s %s", e.Direction, e.Kind, Hexdump(e.Frame))
	}
}

// SecurityName returns the event or key name for security events
func (e *Event) SecurityName() string {
	if e.SecShort {
		return SecRemoteKeyName(e.SecCode)
	}
	return SecEventName(e.SecCode)
}

// Hexdump formats bytes as "XX XX XX " (one trailing space per byte)
func Hexdump(data []byte) string {
	var b strings.Builder
	b.Grow(len(data) * 3)
	for _, v := range data {
		fmt.Fprintf(&b, "%02X ", v)
	}
	return b.String()
}

// ParseHex parses whitespace separated hex bytes, with or without 0x prefix
func ParseHex(s string) ([]byte, error) {
	fields := strings.Fields(s)
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		v, err := parseHexByte(f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Lines returns the client output for a rejected frame: the message, then a
// hexdump when one is reported.
func (e *DecodeError) Lines() []string {
	if e.DumpFollows() {
		return []string{e.Message, Hexdump(e.Frame)}
	}
	return []string{e.Message}
}

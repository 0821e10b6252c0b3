// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"errors"
	"testing"
)

// ============================================================
// Address Parsing Tests
// ============================================================

func TestParseAddress(t *testing.T) {
	tests := []struct {
		tok     string
		house   House
		unit    Unit
		hasUnit bool
		err     error
	}{
		{"A", 0, 0, false, nil},
		{"A1", 0, 0, true, nil},
		{"p16", 15, 15, true, nil},
		{"B9", 1, 8, true, nil},
		{"C0", 2, 0, false, nil},
		{"C17", 2, 0, false, nil},
		{"C123", 2, 0, false, nil},
		{"Q1", 0, 0, false, ErrBadAddress},
		{"A1X", 0, 0, false, ErrBadAddress},
		{"1A", 0, 0, false, ErrBadAddress},
	}

	for _, tt := range tests {
		t.Run(tt.tok, func(t *testing.T) {
			h, u, hasUnit, err := ParseAddress(tt.tok)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h != tt.house || hasUnit != tt.hasUnit || (hasUnit && u != tt.unit) {
				t.Errorf("expected %s/%s/%v, got %s/%s/%v", tt.house, tt.unit, tt.hasUnit, h, u, hasUnit)
			}
		})
	}
}

// ============================================================
// Command Parsing Tests
// ============================================================

func TestParseCommand_Device(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		kind  CommandKind
		fn    Function
		param int
	}{
		{"pl on", "pl a1 on", CmdPL, FuncOn, 0},
		{"rf off", "RF B2 OFF", CmdRF, FuncOff, 0},
		{"dim default", "PL A DIM", CmdPL, FuncDim, 1},
		{"dim steps", "PL A DIM 10", CmdPL, FuncDim, 10},
		{"xdim level", "PL A3 XDIM 200", CmdPL, FuncXDim, 200},
		{"extra whitespace", "  PL\tA1   STATUS_REQUEST  ", CmdPL, FuncStatusRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand(tt.line)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.Kind != tt.kind || cmd.Function != tt.fn || cmd.Param != tt.param {
				t.Errorf("got kind=%s func=%s param=%d", cmd.Kind, cmd.Function, cmd.Param)
			}
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"empty", "   ", ErrEmptyLine},
		{"unknown keyword", "XX A1 ON", ErrUnknownCommand},
		{"missing address", "PL", ErrBadAddress},
		{"bad house", "PL Z1 ON", ErrBadAddress},
		{"missing function", "PL A1", ErrUnknownFunction},
		{"unknown function", "PL A1 TOGGLE", ErrUnknownFunction},
		{"dim out of range", "PL A DIM 32", ErrBadParam},
		{"xdim out of range", "PL A XDIM 256", ErrBadParam},
		{"dim not a number", "PL A DIM LOTS", ErrBadParam},
		{"rfsec bad addr", "RFSEC 0xZZ ARM", ErrBadAddress},
		{"rfsec long too wide", "RFSEC 1000000 ARM", ErrBadAddress},
		{"rfsec long odd parity", "RFSEC 7F70CA MOTION_ALERT", ErrBadAddress},
		{"rfsec wrong table", "RFSEC 0x10 MOTION_ALERT", ErrUnknownFunction},
		{"rfcam unknown", "RFCAM CAMZOOM", ErrUnknownFunction},
		{"pt empty", "PT", ErrBadHex},
		{"pt too long", "PT 1 2 3 4 5 6 7 8 9", ErrBadHex},
		{"pt bad byte", "PT 1FF", ErrBadHex},
		{"rftorf bad", "RFTORF yes", ErrBadParam},
		{"rftopl bad", "RFTOPL AQ", ErrBadAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand(tt.line)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v (cmd %+v)", tt.want, err, cmd)
			}
		})
	}
}

func TestParseCommand_Settings(t *testing.T) {
	tests := []struct {
		line     string
		kind     CommandKind
		houses   uint16
		value    uint16
		hasValue bool
		reset    bool
	}{
		{"RFTOPL", CmdRfToPl, 0, 0, false, false},
		{"RFTOPL *", CmdRfToPl, 0xFFFF, 0, false, false},
		{"rftopl abp", CmdRfToPl, 0x8003, 0, false, false},
		{"RFTOPL A,C", CmdRfToPl, 0x0005, 0, false, false},
		{"RFTORF 1", CmdRfToRf, 0, 1, true, false},
		{"RFTORF", CmdRfToRf, 0, 0, false, false},
		{"ST", CmdStatus, 0, 0, false, false},
		{"st 0", CmdStatus, 0, 0, false, true},
		{"ST 1", CmdStatus, 0, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, err := ParseCommand(tt.line)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.Kind != tt.kind || cmd.Houses != tt.houses || cmd.Value != tt.value ||
				cmd.HasValue != tt.hasValue || cmd.Reset != tt.reset {
				t.Errorf("unexpected command %+v", cmd)
			}
		})
	}
}

func TestParseFunction_AllCommands(t *testing.T) {
	for f := FuncAllUnitsOff; f <= FuncXDim; f++ {
		got, ok := ParseFunction(f.Command())
		if !ok || got != f {
			t.Errorf("%s: expected %d, got %d (%v)", f.Command(), f, got, ok)
		}
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"fmt"
	"strings"
)

// House is a house code, 0..15 for 'A'..'P'
type House uint8

// NumHouses and NumUnits bound the X10 address space
const (
	NumHouses = 16
	NumUnits  = 16
)

func (h House) String() string {
	return string(rune('A' + h))
}

// ParseHouse converts a house letter (either case) to a House
func ParseHouse(c byte) (House, bool) {
	if c >= 'a' && c <= 'p' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'P' {
		return 0, false
	}
	return House(c - 'A'), true
}

// Unit is a 0-based unit code; it prints as 1..16
type Unit uint8

func (u Unit) String() string {
	return fmt.Sprintf("%d", int(u)+1)
}

// Function is an X10 function code. Values 0..15 match the wire nibble.
type Function uint8

const (
	FuncAllUnitsOff Function = iota
	FuncAllLightsOn
	FuncOn
	FuncOff
	FuncDim
	FuncBright
	FuncAllLightsOff
	FuncExtendedCode1
	FuncHailRequest
	FuncHailAck
	FuncExtendedCode3
	FuncUnused
	FuncExtendedCode2
	FuncStatusOn
	FuncStatusOff
	FuncStatusRequest
	FuncXDim
)

var functionNames = [...]string{
	"All units off",
	"All lights on",
	"On",
	"Off",
	"Dim",
	"Bright",
	"All lights off",
	"Ext code 1, data, control",
	"Hail request",
	"Hail ack",
	"Ext code 3, security msg",
	"Unused",
	"Ext code 2, meter read, DSM",
	"Status on",
	"Status off",
	"Status request",
	"XDim",
}

var functionCommands = [...]string{
	"ALL_UNITS_OFF",
	"ALL_LIGHTS_ON",
	"ON",
	"OFF",
	"DIM",
	"BRIGHT",
	"ALL_LIGHTS_OFF",
	"EXTENDED_CODE_1",
	"HAIL_REQUEST",
	"HAIL_ACK",
	"EXTENDED_CODE_3",
	"UNUSED",
	"EXTENDED_CODE_2",
	"STATUS_ON",
	"STATUS_OFF",
	"STATUS_REQUEST",
	"XDIM",
}

// String returns the display name used in client output
func (f Function) String() string {
	if int(f) < len(functionNames) {
		return functionNames[f]
	}
	return fmt.Sprintf("Function(%d)", f)
}

// Command returns the command keyword accepted by the parser
func (f Function) Command() string {
	if int(f) < len(functionCommands) {
		return functionCommands[f]
	}
	return fmt.Sprintf("FUNCTION_%d", f)
}

// HasParam reports whether the function carries a numeric parameter
func (f Function) HasParam() bool {
	return f == FuncDim || f == FuncBright || f == FuncXDim
}

// ParseFunction resolves a command keyword (case-insensitive)
func ParseFunction(name string) (Function, bool) {
	name = strings.ToUpper(name)
	for i, cmd := range functionCommands {
		if cmd == name {
			return Function(i), true
		}
	}
	return 0, false
}

// Direction tells received frames from locally transmitted ones
type Direction byte

const (
	Rx Direction = 'R'
	Tx Direction = 'T'
)

func (d Direction) String() string {
	return string(rune(d)) + "x"
}

// Bus identifies the physical medium of a frame
type Bus int

const (
	BusPL Bus = iota
	BusRF
)

func (b Bus) String() string {
	switch b {
	case BusPL:
		return "PL"
	case BusRF:
		return "RF"
	default:
		return fmt.Sprintf("Bus(%d)", int(b))
	}
}

// Model selects the controller variant
type Model int

const (
	ModelCM15A Model = iota
	ModelCM19A
)

func (m Model) String() string {
	switch m {
	case ModelCM15A:
		return "cm15a"
	case ModelCM19A:
		return "cm19a"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// ParseModel accepts "cm15a" or "cm19a" (case-insensitive)
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(s) {
	case "", "cm15a":
		return ModelCM15A, nil
	case "cm19a":
		return ModelCM19A, nil
	default:
		return 0, fmt.Errorf("unknown controller model %q (use cm15a or cm19a)", s)
	}
}

// InitSequence returns the controller initialization transfers for the model
func (m Model) InitSequence() [][]byte {
	if m == ModelCM19A {
		return CM19AInit
	}
	return CM15AInit
}

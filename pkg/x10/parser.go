// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandKind is the leading keyword of a command line
type CommandKind int

const (
	CmdPL CommandKind = iota
	CmdRF
	CmdRFSecurity
	CmdRFCamera
	CmdPassthrough
	CmdRfToPl
	CmdRfToRf
	CmdStatus
)

var commandKeywords = map[string]CommandKind{
	"PL":     CmdPL,
	"RF":     CmdRF,
	"RFSEC":  CmdRFSecurity,
	"RFCAM":  CmdRFCamera,
	"PT":     CmdPassthrough,
	"RFTOPL": CmdRfToPl,
	"RFTORF": CmdRfToRf,
	"ST":     CmdStatus,
}

func (k CommandKind) String() string {
	for kw, kind := range commandKeywords {
		if kind == k {
			return kw
		}
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Parameter limits
const (
	MaxDimSteps  = 31
	MaxXDimLevel = 255
	DefaultParam = 1
)

// AllHouses is the RFTOPL bitmap selecting every house code
const AllHouses uint16 = 0xFFFF

// Command is a parsed command line
type Command struct {
	Kind CommandKind

	// PL and RF
	House    House
	Unit     Unit
	HasUnit  bool
	Function Function
	Param    int

	// RFSEC
	SecAddr  uint32
	SecShort bool
	SecCode  byte

	// RFCAM
	Camera string

	// PT
	Data []byte

	// RFTOPL house bitmap
	Houses uint16

	// RFTORF value; HasValue is false when the value was omitted
	Value    uint16
	HasValue bool

	// ST 0
	Reset bool
}

// ParseCommand parses one command line. Keywords are case-insensitive and
// tokens are separated by whitespace.
func ParseCommand(line string) (*Command, error) {
	fields := strings.Fields(strings.ToUpper(line))
	if len(fields) == 0 {
		return nil, ErrEmptyLine
	}

	kind, ok := commandKeywords[fields[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
	}
	args := fields[1:]
	cmd := &Command{Kind: kind}

	switch kind {
	case CmdPL, CmdRF:
		return cmd, parseDeviceCommand(cmd, args)
	case CmdRFSecurity:
		return cmd, parseSecurityCommand(cmd, args)
	case CmdRFCamera:
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: missing camera button", ErrUnknownFunction)
		}
		if _, ok := CameraSignature(args[0]); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, args[0])
		}
		cmd.Camera = args[0]
	case CmdPassthrough:
		if len(args) == 0 || len(args) > MaxFrameSize {
			return nil, fmt.Errorf("%w: need 1 to %d bytes", ErrBadHex, MaxFrameSize)
		}
		data, err := ParseHex(strings.Join(args, " "))
		if err != nil {
			return nil, err
		}
		cmd.Data = data
	case CmdRfToPl:
		houses, err := parseHouseList(args)
		if err != nil {
			return nil, err
		}
		cmd.Houses = houses
	case CmdRfToRf:
		if len(args) > 0 {
			v, err := strconv.ParseUint(args[0], 10, 16)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrBadParam, args[0])
			}
			cmd.Value = uint16(v)
			cmd.HasValue = true
		}
	case CmdStatus:
		cmd.Reset = len(args) > 0 && args[0] == "0"
	}

	return cmd, nil
}

func parseDeviceCommand(cmd *Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing address", ErrBadAddress)
	}
	house, unit, hasUnit, err := ParseAddress(args[0])
	if err != nil {
		return err
	}
	cmd.House, cmd.Unit, cmd.HasUnit = house, unit, hasUnit

	if len(args) < 2 {
		return fmt.Errorf("%w: missing function", ErrUnknownFunction)
	}
	fn, ok := ParseFunction(args[1])
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, args[1])
	}
	cmd.Function = fn

	if !fn.HasParam() {
		return nil
	}
	cmd.Param = DefaultParam
	if len(args) < 3 {
		return nil
	}
	limit := MaxDimSteps
	if fn == FuncXDim {
		limit = MaxXDimLevel
	}
	p, err := strconv.Atoi(args[2])
	if err != nil || p < 0 || p > limit {
		return fmt.Errorf("%w: %s (0..%d)", ErrBadParam, args[2], limit)
	}
	cmd.Param = p
	return nil
}

// ParseAddress parses a house letter followed by an optional unit number.
// Unit numbers outside 1..16 or longer than two digits leave the address
// house-only; any other suffix is an error.
func ParseAddress(tok string) (House, Unit, bool, error) {
	if tok == "" {
		return 0, 0, false, ErrBadAddress
	}
	house, ok := ParseHouse(tok[0])
	if !ok {
		return 0, 0, false, fmt.Errorf("%w: %s", ErrBadAddress, tok)
	}
	digits := tok[1:]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, 0, false, fmt.Errorf("%w: %s", ErrBadAddress, tok)
		}
	}
	if len(digits) == 0 || len(digits) > 2 {
		return house, 0, false, nil
	}
	n, _ := strconv.Atoi(digits)
	if n < 1 || n > NumUnits {
		return house, 0, false, nil
	}
	return house, Unit(n - 1), true, nil
}

func parseSecurityCommand(cmd *Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing security address", ErrBadAddress)
	}
	addr := args[0]
	if strings.HasPrefix(addr, "0X") {
		v, err := strconv.ParseUint(addr[2:], 16, 8)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrBadAddress, args[0])
		}
		cmd.SecAddr = uint32(v)
		cmd.SecShort = true
	} else {
		v, err := strconv.ParseUint(addr, 16, 24)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrBadAddress, args[0])
		}
		// Receivers drop long addresses whose low bytes XOR to odd parity
		if OddParity(byte(v>>8) ^ byte(v)) {
			return fmt.Errorf("%w: %s has odd parity", ErrBadAddress, args[0])
		}
		cmd.SecAddr = uint32(v)
	}

	if len(args) < 2 {
		return fmt.Errorf("%w: missing security function", ErrUnknownFunction)
	}
	code, ok := SecurityFunction(args[1], cmd.SecShort)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, args[1])
	}
	cmd.SecCode = code
	return nil
}

// ParseHouseList parses an RFTOPL house list ("ABC", "A,C", "*" or empty)
// into a bitmap with bit 0 for house A
func ParseHouseList(s string) (uint16, error) {
	return parseHouseList(strings.Fields(s))
}

func parseHouseList(args []string) (uint16, error) {
	if len(args) == 0 {
		return 0, nil
	}
	if args[0] == "*" {
		return AllHouses, nil
	}
	var mask uint16
	for _, c := range []byte(strings.Join(args, "")) {
		if c == ',' {
			continue
		}
		h, ok := ParseHouse(c)
		if !ok {
			return 0, fmt.Errorf("%w: house list %q", ErrBadAddress, strings.Join(args, " "))
		}
		mask |= 1 << h
	}
	return mask, nil
}

func parseHexByte(tok string) (byte, error) {
	t := strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
	v, err := strconv.ParseUint(t, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrBadHex, tok)
	}
	return byte(v), nil
}

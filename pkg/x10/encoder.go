// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import "fmt"

// Frame is one encoded transmission.
type Frame struct {
	// Wire holds the bytes written to the controller
	Wire []byte
	// Echo is the decode-shaped buffer fed back through the decoder so the
	// local state and clients see what a receiver would see. Nil for
	// passthrough data.
	Echo []byte
	Bus  Bus
}

// Encoder turns parsed commands into controller transfers
type Encoder struct {
	model Model
}

// NewEncoder creates an encoder for the given controller model
func NewEncoder(model Model) *Encoder {
	return &Encoder{model: model}
}

// Encode produces the frames for a transmit command (PL, RF, RFSEC, RFCAM,
// PT). Nothing is produced when any part of the command is invalid.
func (e *Encoder) Encode(cmd *Command) ([]Frame, error) {
	switch cmd.Kind {
	case CmdPL:
		return e.EncodePL(cmd.House, cmd.Unit, cmd.HasUnit, cmd.Function, cmd.Param)
	case CmdRF:
		f, err := e.EncodeRF(cmd.House, cmd.Unit, cmd.HasUnit, cmd.Function)
		if err != nil {
			return nil, err
		}
		return []Frame{f}, nil
	case CmdRFSecurity:
		return []Frame{e.EncodeRFSecurity(cmd.SecAddr, cmd.SecShort, cmd.SecCode)}, nil
	case CmdRFCamera:
		f, err := e.EncodeRFCamera(cmd.Camera)
		if err != nil {
			return nil, err
		}
		return []Frame{f}, nil
	case CmdPassthrough:
		if len(cmd.Data) == 0 || len(cmd.Data) > MaxFrameSize {
			return nil, fmt.Errorf("%w: need 1 to %d bytes", ErrBadHex, MaxFrameSize)
		}
		return []Frame{{Wire: append([]byte(nil), cmd.Data...), Bus: BusPL}}, nil
	default:
		return nil, fmt.Errorf("%s is not a transmit command", cmd.Kind)
	}
}

// EncodePL encodes a power-line command: an address frame when a unit is
// given, followed by the function frame.
func (e *Encoder) EncodePL(h House, u Unit, hasUnit bool, f Function, param int) ([]Frame, error) {
	if e.model == ModelCM19A {
		return nil, fmt.Errorf("PL: %w", ErrNotSupported)
	}
	if f > FuncXDim {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFunction, f)
	}
	frames := make([]Frame, 0, 2)
	if hasUnit {
		frames = append(frames, e.plAddress(h, u))
	}
	return append(frames, e.plFunction(h, f, param)), nil
}

func (e *Encoder) plAddress(h House, u Unit) Frame {
	hu := plHouseUnitByte(h, u)
	return Frame{
		Echo: []byte{0x00, 0x02, PLAddress, hu},
		Wire: []byte{PLTxAddress, hu},
		Bus:  BusPL,
	}
}

func (e *Encoder) plFunction(h House, f Function, param int) Frame {
	switch f {
	case FuncDim, FuncBright:
		dims := byte(param&0x1F) << 3
		hf := plHouseFuncByte(h, f)
		return Frame{
			Echo: []byte{0x00, 0x03, PLDimBright, dims | 0x01, hf},
			Wire: []byte{PLTxFunction | dims, hf},
			Bus:  BusPL,
		}
	case FuncXDim:
		hf := plHouseFuncByte(h, FuncExtendedCode1)
		level := byte(param & 0xFF)
		return Frame{
			Echo: []byte{0x00, 0x05, PLExtendedTx, hf, extDataLength, level, ExtCommandPresetDim},
			Wire: []byte{PLTxExtended, hf, extDataLength, level, ExtCommandPresetDim},
			Bus:  BusPL,
		}
	default:
		hf := plHouseFuncByte(h, f)
		return Frame{
			Echo: []byte{0x00, 0x02, PLFunction, hf},
			Wire: []byte{PLTxFunction, hf},
			Bus:  BusPL,
		}
	}
}

// EncodeRF encodes an RF standard frame. ON and OFF need a unit; DIM and
// BRIGHT address the whole house.
func (e *Encoder) EncodeRF(h House, u Unit, hasUnit bool, f Function) (Frame, error) {
	b2 := rfHouseNibble[h] << 4
	var b4 byte

	switch f {
	case FuncOn, FuncOff:
		if !hasUnit {
			return Frame{}, fmt.Errorf("RF %s: %w", f.Command(), ErrUnitRequired)
		}
		addrBits, fnBits := RFUnitBits(u)
		b2 |= addrBits
		b4 = fnBits
		if f == FuncOff {
			b4 |= rfOffBit
		}
	case FuncDim:
		b4 = rfFuncDim
	case FuncBright:
		b4 = rfFuncBright
	default:
		return Frame{}, fmt.Errorf("RF %s: %w", f.Command(), ErrUnknownFunction)
	}

	return e.rfFrame([]byte{MarkerRFTx, RFStandard, b2, ^b2, b4, ^b4}), nil
}

// EncodeRFSecurity encodes a security frame for an 8-bit or long address
func (e *Encoder) EncodeRFSecurity(addr uint32, short bool, code byte) Frame {
	if short {
		a := byte(addr)
		return e.rfFrame([]byte{MarkerRFTx, RFStandard, a, a ^ rfChecksumSecurity, code, ^code})
	}
	a2 := byte(addr >> 16)
	return e.rfFrame([]byte{
		MarkerRFTx, RFSecurityExt,
		a2, a2 ^ rfChecksumSecurity,
		code, ^code,
		byte(addr >> 8), byte(addr),
	})
}

// EncodeRFCamera encodes a camera remote button by name
func (e *Encoder) EncodeRFCamera(name string) (Frame, error) {
	sig, ok := CameraSignature(name)
	if !ok {
		return Frame{}, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return e.rfFrame(append([]byte{MarkerRFTx}, sig...)), nil
}

// rfFrame builds an RF frame from a 0xEB-marked buffer; the CM19A takes
// the frame without the marker.
func (e *Encoder) rfFrame(buf []byte) Frame {
	wire := append([]byte(nil), buf...)
	if e.model == ModelCM19A {
		wire = wire[1:]
	}
	return Frame{Echo: buf, Wire: wire, Bus: BusRF}
}

// RepeatFrame returns the wire bytes that re-transmit a received RF event
func (e *Encoder) RepeatFrame(ev *Event) []byte {
	if len(ev.Frame) < 2 {
		return nil
	}
	buf := append([]byte(nil), ev.Frame...)
	buf[0] = MarkerRFTx
	if e.model == ModelCM19A {
		return buf[1:]
	}
	return buf
}

// DecodeEcho decodes the echo buffer of an encoded frame
func DecodeEcho(f Frame) (*Event, error) {
	if f.Echo == nil {
		return nil, nil
	}
	if f.Bus == BusRF {
		return DecodeRF(f.Echo)
	}
	return DecodePL(f.Echo)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import "fmt"

// Decoder decodes controller transfers for one controller model
type Decoder struct {
	model Model
}

// NewDecoder creates a decoder for the given controller model
func NewDecoder(model Model) *Decoder {
	return &Decoder{model: model}
}

// Model returns the controller model the decoder was built for
func (d *Decoder) Model() Model {
	return d.model
}

// Decode decodes one inbound transfer. Transfers that carry no event (acks,
// clock requests, unknown markers, runts) return nil, nil.
func (d *Decoder) Decode(frame []byte) (*Event, error) {
	if len(frame) < minPLFrame {
		return nil, nil
	}

	if d.model == ModelCM19A {
		// The CM19A omits the RF marker; restore it so both models share
		// one decoder.
		buf := make([]byte, 0, len(frame)+1)
		buf = append(buf, MarkerRFRx)
		buf = append(buf, frame...)
		return DecodeRF(buf)
	}

	switch frame[0] {
	case MarkerPLRx:
		return DecodePL(frame)
	case MarkerRFRx:
		return DecodeRF(frame)
	default:
		return nil, nil
	}
}

func direction(marker, rx byte) Direction {
	if marker == rx {
		return Rx
	}
	return Tx
}

func plError(t ErrorType, frame []byte, format string, args ...interface{}) *DecodeError {
	return &DecodeError{
		Type:    t,
		Bus:     BusPL,
		Message: fmt.Sprintf(format, args...),
		Frame:   append([]byte(nil), frame...),
	}
}

func rfError(t ErrorType, frame []byte, format string, args ...interface{}) *DecodeError {
	return &DecodeError{
		Type:    t,
		Bus:     BusRF,
		Message: fmt.Sprintf(format, args...),
		Frame:   append([]byte(nil), frame...),
	}
}

// DecodePL decodes a power-line buffer. The first byte is 0x5A for received
// frames; any other value marks a locally encoded frame.
func DecodePL(buf []byte) (*Event, error) {
	if len(buf) < minPLFrame {
		return nil, plError(ErrorTooShort, buf, "too short %d", len(buf))
	}
	if len(buf) > MaxFrameSize {
		return nil, plError(ErrorTooLong, buf, "too long %d", len(buf))
	}

	ev := &Event{
		Kind:      classifyPL(buf),
		Direction: direction(buf[0], MarkerPLRx),
		Frame:     append([]byte(nil), buf...),
	}

	switch ev.Kind {
	case KindPLAddress:
		if buf[1] != 2 {
			return nil, plError(ErrorLength, buf, "codelen must be 2 != %d", buf[1])
		}
		ev.House = plHouse(buf[3])
		ev.Unit = plUnit(buf[3])
		ev.HasUnit = true

	case KindPLFunction:
		if buf[1] != 2 {
			return nil, plError(ErrorLength, buf, "codelen must be 2 != %d", buf[1])
		}
		ev.House = plHouse(buf[3])
		ev.Function = Function(buf[3] & 0x0F)

	case KindPLDimBright:
		if buf[1] != 3 || len(buf) < 5 {
			return nil, plError(ErrorLength, buf, "codelen must be 3 != %d", buf[1])
		}
		ev.Steps = int(buf[3]&0xF8) >> 3
		ev.House = plHouse(buf[4])
		ev.Function = Function(buf[4] & 0x0F)

	case KindPLExtendedTx, KindPLExtendedRx:
		if len(buf) < 7 {
			return nil, plError(ErrorTooShort, buf, "too short %d", len(buf))
		}
		if len(buf) > 7 {
			return nil, plError(ErrorTooLong, buf, "too long %d", len(buf))
		}
		hf := buf[3]
		ev.Data, ev.Command = buf[5], buf[6]
		if ev.Kind == KindPLExtendedRx {
			// Byte order is reversed relative to the transmit form
			hf = buf[6]
			ev.Data, ev.Command = buf[4], buf[3]
		}
		ev.House = plHouse(hf)
		ev.Function = Function(hf & 0x0F)

	default:
		return nil, plError(ErrorUnknownSubtype, buf, "Not supported %d", buf[2])
	}

	return ev, nil
}

// DecodeRF decodes an RF buffer. The first byte is 0x5D for received frames
// and 0xEB for locally encoded ones.
func DecodeRF(buf []byte) (*Event, error) {
	if len(buf) < minRFFrame {
		return nil, rfError(ErrorTooShort, buf, "too short %d", len(buf))
	}
	if len(buf) > MaxFrameSize {
		return nil, rfError(ErrorTooLong, buf, "too long %d", len(buf))
	}

	ev := &Event{
		Kind:      classifyRF(buf),
		Direction: direction(buf[0], MarkerRFRx),
		Frame:     append([]byte(nil), buf...),
	}

	switch ev.Kind {
	case KindRFCamera:
		name, ok := CameraButtonName(buf[1:])
		if !ok {
			return nil, rfError(ErrorUnknownCamera, buf, "Unknown RF camera command")
		}
		ev.Camera = name

	case KindRFSecurity:
		if buf[4]^buf[5] != 0xFF {
			return nil, rfError(ErrorChecksum, buf, "Invalid checksum")
		}
		ev.SecAddr = uint32(buf[2])
		ev.SecCode = buf[4]
		ev.SecShort = true

	case KindRFStandard:
		chk := buf[2] ^ buf[3]
		if chk != rfChecksumStandard {
			return nil, rfError(ErrorChecksum, buf, "Invalid checksum 0x%02X", chk)
		}
		ev.House = rfHouse(buf[2])
		switch buf[4] {
		case rfFuncBright:
			ev.Function = FuncBright
		case rfFuncDim:
			ev.Function = FuncDim
		default:
			ev.Function = FuncOn
			if buf[4]&rfOffBit != 0 {
				ev.Function = FuncOff
			}
			ev.Unit = RFUnitFromBits(buf[2], buf[4])
			ev.HasUnit = true
		}

	case KindRFSecurityExt:
		if len(buf) < MaxFrameSize {
			return nil, rfError(ErrorChecksum, buf, "Invalid checksum")
		}
		if buf[2]^buf[3] != rfChecksumSecurity || buf[4]^buf[5] != 0xFF {
			return nil, rfError(ErrorChecksum, buf, "Invalid checksum")
		}
		if OddParity(buf[6] ^ buf[7]) {
			return nil, rfError(ErrorParity, buf, "Invalid parity")
		}
		ev.SecAddr = uint32(buf[2])<<16 | uint32(buf[6])<<8 | uint32(buf[7])
		ev.SecCode = buf[4]

	default:
		return nil, rfError(ErrorUnsupported, buf, "Not supported %02X", buf[1])
	}

	return ev, nil
}

// DumpFollows reports whether a hexdump line follows the error message in
// client output.
func (e *DecodeError) DumpFollows() bool {
	if e.Bus != BusRF {
		return false
	}
	// Long-address security failures are reported without a dump
	return classifyRF(e.Frame) != KindRFSecurityExt || e.Type == ErrorTooShort || e.Type == ErrorTooLong
}

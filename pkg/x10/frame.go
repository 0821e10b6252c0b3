// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

// FrameKind is the shape of a controller transfer, resolved once from its
// marker and sub-type bytes before any field is read.
type FrameKind int

const (
	KindUnknown FrameKind = iota
	KindAck
	KindClockRequest
	KindPLAddress
	KindPLFunction
	KindPLDimBright
	KindPLExtendedTx
	KindPLExtendedRx
	KindPLUnknown
	KindRFCamera
	KindRFStandard
	KindRFSecurity
	KindRFSecurityExt
	KindRFUnsupported
)

var kindNames = map[FrameKind]string{
	KindUnknown:       "UNKNOWN",
	KindAck:           "ACK",
	KindClockRequest:  "CLOCK_REQUEST",
	KindPLAddress:     "PL_ADDRESS",
	KindPLFunction:    "PL_FUNCTION",
	KindPLDimBright:   "PL_DIM_BRIGHT",
	KindPLExtendedTx:  "PL_EXTENDED_TX",
	KindPLExtendedRx:  "PL_EXTENDED_RX",
	KindPLUnknown:     "PL_UNKNOWN",
	KindRFCamera:      "RF_CAMERA",
	KindRFStandard:    "RF_STANDARD",
	KindRFSecurity:    "RF_SECURITY",
	KindRFSecurityExt: "RF_SECURITY_EXT",
	KindRFUnsupported: "RF_UNSUPPORTED",
}

func (k FrameKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Bus returns the medium a frame kind travels on
func (k FrameKind) Bus() Bus {
	switch k {
	case KindRFCamera, KindRFStandard, KindRFSecurity, KindRFSecurityExt, KindRFUnsupported:
		return BusRF
	default:
		return BusPL
	}
}

// classifyPL resolves the kind of a PL buffer from its sub-type byte
func classifyPL(buf []byte) FrameKind {
	if len(buf) < 3 {
		return KindPLUnknown
	}
	switch buf[2] {
	case PLAddress:
		return KindPLAddress
	case PLFunction:
		return KindPLFunction
	case PLDimBright:
		return KindPLDimBright
	case PLExtendedTx:
		return KindPLExtendedTx
	case PLExtendedRx:
		return KindPLExtendedRx
	default:
		return KindPLUnknown
	}
}

// classifyRF resolves the kind of an RF buffer from its sub-type byte and,
// for standard frames, the address checksum.
func classifyRF(buf []byte) FrameKind {
	if len(buf) < 2 {
		return KindRFUnsupported
	}
	switch buf[1] {
	case RFCamera:
		return KindRFCamera
	case RFStandard:
		if len(buf) >= 4 && buf[2]^buf[3] == rfChecksumSecurity {
			return KindRFSecurity
		}
		return KindRFStandard
	case RFSecurityExt:
		return KindRFSecurityExt
	case RFUnknown24, RFUnknown28:
		// Seen from unidentified remotes; shape known, meaning not
		return KindRFUnsupported
	default:
		return KindRFUnsupported
	}
}

// Classify resolves the kind of a raw CM15A transfer
func Classify(frame []byte) FrameKind {
	if len(frame) == 0 {
		return KindUnknown
	}
	if len(frame) == 1 {
		return KindAck
	}
	switch frame[0] {
	case MarkerAck:
		return KindAck
	case MarkerClockRequest:
		return KindClockRequest
	case MarkerPLRx:
		return classifyPL(frame)
	case MarkerRFRx:
		return classifyRF(frame)
	case MarkerPLUnknown:
		// Sent by the CM15A with undocumented content
		return KindUnknown
	default:
		return KindUnknown
	}
}

// Event is a normalized decoded frame
type Event struct {
	Kind      FrameKind
	Direction Direction
	House     House
	Unit      Unit
	HasUnit   bool
	Function  Function

	// Steps is the dim step count of PL dim/bright frames
	Steps int

	// Extended code fields
	Data    byte
	Command byte

	// Security sensor fields
	SecAddr  uint32
	SecCode  byte
	SecShort bool

	// Camera button name
	Camera string

	// Frame is the decoded buffer including its marker byte
	Frame []byte
}

// Bus returns the medium of the event
func (e *Event) Bus() Bus {
	return e.Kind.Bus()
}

// IsSecurity reports whether the event came from a security sensor or remote
func (e *Event) IsSecurity() bool {
	return e.Kind == KindRFSecurity || e.Kind == KindRFSecurityExt
}

// SecAddrBytes splits the normalized security address into its three bytes
func (e *Event) SecAddrBytes() [3]byte {
	return [3]byte{byte(e.SecAddr >> 16), byte(e.SecAddr >> 8), byte(e.SecAddr)}
}

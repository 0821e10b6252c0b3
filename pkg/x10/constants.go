// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package x10 implements the X10 power-line and RF frame codec used by the
// CM15A and CM19A USB controllers.
//
// The package decodes controller transfers into normalized events, encodes
// text commands into the byte sequences the controller transmits, and
// formats both directions into the line-oriented text protocol served to
// TCP clients.
package x10

// Transfer markers (first byte of a controller transfer)
const (
	MarkerPLRx         = 0x5A
	MarkerPLUnknown    = 0x5B
	MarkerRFRx         = 0x5D
	MarkerAck          = 0x55
	MarkerClockRequest = 0xA5
	MarkerRFTx         = 0xEB
)

// Power-line sub-types (third byte of a PL transfer)
const (
	PLAddress    = 0x00
	PLFunction   = 0x01
	PLDimBright  = 0x02
	PLExtendedTx = 0x07
	PLExtendedRx = 0x08
)

// Power-line transmit headers (first wire byte)
const (
	PLTxAddress  = 0x04
	PLTxFunction = 0x06
	PLTxExtended = 0x07
)

// RF sub-types (second byte of an RF transfer)
const (
	RFCamera      = 0x14
	RFStandard    = 0x20
	RFUnknown24   = 0x24
	RFUnknown28   = 0x28
	RFSecurityExt = 0x29
)

// RF standard frame constants
const (
	rfChecksumSecurity = 0x0F
	rfChecksumStandard = 0xFF
	rfFuncBright       = 0x88
	rfFuncDim          = 0x98
	rfOffBit           = 0x20
)

// Extended code constants
const (
	ExtCommandPresetDim = 0x31
	extDataLength       = 0x02
)

// Frame size limits
const (
	MaxFrameSize = 8
	minPLFrame   = 4
	minRFFrame   = 5
)

// plNibbleHouse maps a power-line nibble to its house letter (and, for unit
// nibbles, to the letter whose offset from 'A' is the 0-based unit).
var plNibbleHouse = [16]byte{
	'M', 'E', 'C', 'K', 'O', 'G', 'A', 'I',
	'N', 'F', 'D', 'L', 'P', 'H', 'B', 'J',
}

// rfNibbleHouse maps the high nibble of an RF address byte to its house letter.
var rfNibbleHouse = [16]byte{
	'M', 'N', 'O', 'P', 'C', 'D', 'A', 'B',
	'E', 'F', 'G', 'H', 'K', 'L', 'I', 'J',
}

var (
	plHouseNibble = invertNibbleTable(plNibbleHouse)
	rfHouseNibble = invertNibbleTable(rfNibbleHouse)
)

func invertNibbleTable(table [16]byte) [16]byte {
	var inv [16]byte
	for nibble, letter := range table {
		inv[letter-'A'] = byte(nibble)
	}
	return inv
}

// CM15A initialization sequence, queued once the device link is up.
var CM15AInit = [][]byte{
	{0x9B, 0x00, 0x5B, 0x09, 0x50, 0x90, 0x60, 0x02},
	{0x9B, 0x00, 0x5B, 0x09, 0x50, 0x90, 0x60, 0x02},
	{0xBB, 0x00, 0x00, 0x05, 0x00, 0x14, 0x20, 0x28},
	{0x8B},
	{0xDB, 0x1F, 0xF0},
	{0xDB, 0x20, 0x00},
	{0xAB, 0xDE, 0xAF},
	{0x8B},
	{0xAB, 0x00, 0x00},
}

// CM19A initialization sequence.
var CM19AInit = [][]byte{
	{0x80, 0x05, 0x1B, 0x14, 0x28, 0x20, 0x24, 0x29},
	{0x83, 0x03},
	{0x84, 0x37, 0x02, 0x60, 0x00, 0x00, 0x00, 0x00},
	{0x80, 0x01, 0x00, 0x14, 0x20, 0x24, 0x28, 0x29},
	{0x83, 0x02, 0x0F},
	{0x83, 0x37, 0x02, 0x60, 0x00, 0x00, 0x00, 0x00},
	{0x20, 0x34, 0xCB, 0x58, 0xA7},
	{0x80, 0x05, 0x01, 0x14, 0x20, 0x24, 0x28, 0x29},
}

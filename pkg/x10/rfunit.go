// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

// RF standard frames scatter the 4-bit unit across two bytes:
//
//	unit bit 3 <- address byte bit 2
//	unit bit 2 <- function byte bit 6
//	unit bit 1 <- function byte bit 3
//	unit bit 0 <- function byte bit 4
//
// RFUnitBits and RFUnitFromBits are exact inverses over units 0..15.

// RFUnitBits returns the bits a unit contributes to the address byte and the
// function byte of an RF standard frame.
func RFUnitBits(u Unit) (addr, fn byte) {
	addr = byte(u&0x08) >> 1
	fn = byte(u&0x04)<<4 | byte(u&0x02)<<2 | byte(u&0x01)<<4
	return addr, fn
}

// RFUnitFromBits reassembles a unit from the address and function bytes.
func RFUnitFromBits(addr, fn byte) Unit {
	u := (addr&0x04)<<1 | (fn&0x40)>>4 | (fn&0x08)>>2 | (fn&0x10)>>4
	return Unit(u)
}

// plHouseUnitByte packs a house and unit into a PL address byte
func plHouseUnitByte(h House, u Unit) byte {
	return plHouseNibble[h]<<4 | plHouseNibble[u]
}

// plHouseFuncByte packs a house and function code into a PL function byte
func plHouseFuncByte(h House, f Function) byte {
	return plHouseNibble[h]<<4 | byte(f)&0x0F
}

func plHouse(b byte) House {
	return House(plNibbleHouse[b>>4] - 'A')
}

func plUnit(b byte) Unit {
	return Unit(plNibbleHouse[b&0x0F] - 'A')
}

func rfHouse(b byte) House {
	return House(rfNibbleHouse[b>>4] - 'A')
}

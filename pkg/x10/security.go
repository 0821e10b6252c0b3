// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"bytes"
	"fmt"
	"math/bits"
	"strings"
)

type namedCode struct {
	code byte
	name string
}

// Security event names for long-address sensors (0x29 frames).
//
//	bit 7  1=normal, 0=alert
//	bit 2  delay 0=max, 1=min
//	bit 0  low battery
var secEventNames = []namedCode{
	{0x0C, "Motion_alert_MS10A"},
	{0x8C, "Motion_normal_MS10A"},
	{0x0D, "Motion_alert_low_MS10A"},
	{0x8D, "Motion_normal_low_MS10A"},
	{0x04, "Contact_alert_min_DS10A"},
	{0x84, "Contact_normal_min_DS10A"},
	{0x00, "Contact_alert_max_DS10A"},
	{0x80, "Contact_normal_max_DS10A"},
	{0x01, "Contact_alert_min_low_DS10A"},
	{0x81, "Contact_normal_min_low_DS10A"},
	{0x05, "Contact_alert_max_low_DS10A"},
	{0x85, "Contact_normal_max_low_DS10A"},
	{0x06, "Arm_KR10A"},
	{0x86, "Disarm_KR10A"},
	{0x46, "Lights_On_KR10A"},
	{0xC6, "Lights_Off_KR10A"},
	{0x26, "Panic_KR10A"},
}

// Remote key names for 8-bit addressed remotes (0x20 frames, checksum 0x0F)
var secRemoteKeyNames = []namedCode{
	{0x0E, "Arm_Home_min_SH624"},
	{0x06, "Arm_Away_min_SH624"},
	{0x0A, "Arm_Home_max_SH624"},
	{0x02, "Arm_Away_max_SH624"},
	{0x82, "Disarm_SH624"},
	{0x22, "Panic_SH624"},
	{0x42, "Lights_On_SH624"},
	{0xC2, "Lights_Off_SH624"},
	{0x04, "Motion_alert_SP554A"},
	{0x84, "Motion_normal_SP554A"},
}

// Command keywords for RFSEC with a long address
var secLongCommands = []namedCode{
	{0x0C, "MOTION_ALERT"},
	{0x8C, "MOTION_NORMAL"},
	{0x0D, "MOTION_ALERT_LOW"},
	{0x8D, "MOTION_NORMAL_LOW"},
	{0x04, "CONTACT_ALERT_MIN"},
	{0x84, "CONTACT_NORMAL_MIN"},
	{0x00, "CONTACT_ALERT_MAX"},
	{0x80, "CONTACT_NORMAL_MAX"},
	{0x01, "CONTACT_ALERT_MIN_LOW"},
	{0x81, "CONTACT_NORMAL_MIN_LOW"},
	{0x05, "CONTACT_ALERT_MAX_LOW"},
	{0x85, "CONTACT_NORMAL_MAX_LOW"},
	{0x06, "ARM"},
	{0x86, "DISARM"},
	{0x46, "LIGHTS_ON"},
	{0xC6, "LIGHTS_OFF"},
	{0x26, "PANIC"},
}

// Command keywords for RFSEC with an 8-bit address. The same keyword can map
// to a different code than in secLongCommands.
var sec8BitCommands = []namedCode{
	{0x06, "ARM"},
	{0x0E, "ARM_HOME_MIN"},
	{0x06, "ARM_AWAY_MIN"},
	{0x0A, "ARM_HOME_MAX"},
	{0x02, "ARM_AWAY_MAX"},
	{0x82, "DISARM"},
	{0x22, "PANIC"},
	{0x42, "LIGHTS_ON"},
	{0xC2, "LIGHTS_OFF"},
}

func lookupName(table []namedCode, code byte) string {
	for _, e := range table {
		if e.code == code {
			return e.name
		}
	}
	return fmt.Sprintf("Unknown_%02X", code)
}

func lookupCode(table []namedCode, name string) (byte, bool) {
	name = strings.ToUpper(name)
	for _, e := range table {
		if e.name == name {
			return e.code, true
		}
	}
	return 0, false
}

// SecEventName names a long-address sensor status byte
func SecEventName(code byte) string {
	return lookupName(secEventNames, code)
}

// SecRemoteKeyName names an 8-bit remote key code
func SecRemoteKeyName(code byte) string {
	return lookupName(secRemoteKeyNames, code)
}

// SecurityFunction resolves an RFSEC command keyword for the address width
func SecurityFunction(name string, eightBit bool) (byte, bool) {
	if eightBit {
		return lookupCode(sec8BitCommands, name)
	}
	return lookupCode(secLongCommands, name)
}

type cameraButton struct {
	name      string
	signature []byte
}

// Camera remote signatures, matched on the full signature. PRESET9 and
// EDITPRESET9 share the 0x5C third byte as published for the device.
var cameraButtons = []cameraButton{
	{"CAMUP", []byte{0x14, 0x47, 0x62, 0x10}},
	{"CAMDOWN", []byte{0x14, 0x48, 0x63, 0x10}},
	{"CAMLEFT", []byte{0x14, 0x45, 0x60, 0x10}},
	{"CAMRIGHT", []byte{0x14, 0x46, 0x61, 0x10}},
	{"CAMCENTER", []byte{0x14, 0x51, 0x6C, 0x10}},
	{"CAMSWEEP", []byte{0x14, 0x53, 0x6E, 0x10}},
	{"CAMPRESET1", []byte{0x14, 0x49, 0x64, 0x10}},
	{"CAMPRESET2", []byte{0x14, 0x4B, 0x66, 0x10}},
	{"CAMPRESET3", []byte{0x14, 0x4D, 0x68, 0x10}},
	{"CAMPRESET4", []byte{0x14, 0x4F, 0x6A, 0x10}},
	{"CAMPRESET5", []byte{0x14, 0x39, 0x54, 0x10}},
	{"CAMPRESET6", []byte{0x14, 0x3B, 0x56, 0x10}},
	{"CAMPRESET7", []byte{0x14, 0x3D, 0x58, 0x10}},
	{"CAMPRESET8", []byte{0x14, 0x3F, 0x5A, 0x10}},
	{"CAMPRESET9", []byte{0x14, 0x41, 0x5C, 0x10}},
	{"CAMEDITPRESET1", []byte{0x14, 0x4A, 0x65, 0x10}},
	{"CAMEDITPRESET2", []byte{0x14, 0x4C, 0x67, 0x10}},
	{"CAMEDITPRESET3", []byte{0x14, 0x4E, 0x69, 0x10}},
	{"CAMEDITPRESET4", []byte{0x14, 0x50, 0x6B, 0x10}},
	{"CAMEDITPRESET5", []byte{0x14, 0x3A, 0x55, 0x10}},
	{"CAMEDITPRESET6", []byte{0x14, 0x3C, 0x57, 0x10}},
	{"CAMEDITPRESET7", []byte{0x14, 0x3E, 0x59, 0x10}},
	{"CAMEDITPRESET8", []byte{0x14, 0x40, 0x5B, 0x10}},
	{"CAMEDITPRESET9", []byte{0x14, 0x42, 0x5C, 0x10}},
}

// CameraButtonName matches a received signature (starting at the 0x14 byte)
func CameraButtonName(signature []byte) (string, bool) {
	for _, b := range cameraButtons {
		if bytes.Equal(b.signature, signature) {
			return b.name, true
		}
	}
	return "", false
}

// CameraSignature returns the signature for a button name (case-insensitive)
func CameraSignature(name string) ([]byte, bool) {
	name = strings.ToUpper(name)
	for _, b := range cameraButtons {
		if b.name == name {
			return append([]byte(nil), b.signature...), true
		}
	}
	return nil, false
}

// parityTable[v] is 1 when v has odd parity
var parityTable = func() [256]byte {
	var t [256]byte
	for v := range t {
		t[v] = byte(bits.OnesCount8(uint8(v)) & 1)
	}
	return t
}()

// OddParity reports whether v has an odd number of set bits
func OddParity(v byte) bool {
	return parityTable[v] == 1
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"fmt"

	"github.com/Thermoquad/x10gate/pkg/x10"
)

// Policy defaults
const (
	DefaultRfToPl uint16 = x10.AllHouses
	DefaultRfToRf uint16 = 0
)

// Policy decides what happens to received RF traffic beyond reporting it:
// whether the frame is transmitted again over RF and whether RF switch
// commands are bridged onto the power line.
type Policy struct {
	// RfToPl holds one bit per house (bit 0 = A) whose RF commands are
	// re-issued as PL commands
	RfToPl uint16
	// RfToRf repeats received RF frames when non-zero
	RfToRf uint16

	// bridge is false on RF-only controllers
	bridge bool
	def    [2]uint16
}

// NewPolicy creates a policy for the given controller model
func NewPolicy(model x10.Model, rfToPl, rfToRf uint16) *Policy {
	return &Policy{
		RfToPl: rfToPl,
		RfToRf: rfToRf,
		bridge: model != x10.ModelCM19A,
		def:    [2]uint16{rfToPl, rfToRf},
	}
}

// Reset restores the values the policy was created with
func (p *Policy) Reset() {
	p.RfToPl, p.RfToRf = p.def[0], p.def[1]
}

// ShouldRepeat reports whether a decoded event is re-transmitted over RF
func (p *Policy) ShouldRepeat(ev *x10.Event) bool {
	if p.RfToRf == 0 || ev.Direction != x10.Rx {
		return false
	}
	switch ev.Kind {
	case x10.KindRFCamera, x10.KindRFStandard, x10.KindRFSecurity, x10.KindRFSecurityExt:
		return true
	default:
		return false
	}
}

// BridgeCommand returns the PL command line that mirrors a received RF
// switch event, if the event's house is bridged
func (p *Policy) BridgeCommand(ev *x10.Event) (string, bool) {
	if !p.bridge || ev.Direction != x10.Rx || ev.Kind != x10.KindRFStandard {
		return "", false
	}
	if p.RfToPl&(1<<ev.House) == 0 {
		return "", false
	}
	if ev.HasUnit {
		return fmt.Sprintf("PL %s%s %s", ev.House, ev.Unit, ev.Function.Command()), true
	}
	return fmt.Sprintf("PL %s %s", ev.House, ev.Function.Command()), true
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"testing"

	"github.com/Thermoquad/x10gate/pkg/x10"
)

func decodeRF(t *testing.T, frame ...byte) *x10.Event {
	t.Helper()
	ev, err := x10.DecodeRF(frame)
	if err != nil {
		t.Fatalf("decode % X: %v", frame, err)
	}
	return ev
}

func TestPolicy_BridgeCommand(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  string
		ok    bool
	}{
		{"A1 on", []byte{0x5D, 0x20, 0x60, 0x9F, 0x00, 0xFF}, "PL A1 ON", true},
		{"A2 off", []byte{0x5D, 0x20, 0x60, 0x9F, 0x30, 0xCF}, "PL A2 OFF", true},
		{"A bright", []byte{0x5D, 0x20, 0x60, 0x9F, 0x88, 0x77}, "PL A BRIGHT", true},
		{"transmitted echo", []byte{0xEB, 0x20, 0x60, 0x9F, 0x00, 0xFF}, "", false},
		{"security", []byte{0x5D, 0x20, 0xE2, 0xED, 0x0A, 0xF5}, "", false},
		{"camera", []byte{0x5D, 0x14, 0x49, 0x64, 0x10}, "", false},
	}

	p := NewPolicy(x10.ModelCM15A, DefaultRfToPl, DefaultRfToRf)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.BridgeCommand(decodeRF(t, tt.frame...))
			if ok != tt.ok || got != tt.want {
				t.Errorf("expected %q/%v, got %q/%v", tt.want, tt.ok, got, ok)
			}
			if ok {
				if _, err := x10.ParseCommand(got); err != nil {
					t.Errorf("bridge command does not parse: %v", err)
				}
			}
		})
	}
}

func TestPolicy_BridgeHouseMask(t *testing.T) {
	p := NewPolicy(x10.ModelCM15A, 0x0002, 0)
	if _, ok := p.BridgeCommand(decodeRF(t, 0x5D, 0x20, 0x60, 0x9F, 0x00, 0xFF)); ok {
		t.Error("house A is masked out")
	}
	p.RfToPl = 0x0001
	if _, ok := p.BridgeCommand(decodeRF(t, 0x5D, 0x20, 0x60, 0x9F, 0x00, 0xFF)); !ok {
		t.Error("house A is enabled")
	}
}

func TestPolicy_NoBridgeOnCM19A(t *testing.T) {
	p := NewPolicy(x10.ModelCM19A, DefaultRfToPl, DefaultRfToRf)
	if _, ok := p.BridgeCommand(decodeRF(t, 0x5D, 0x20, 0x60, 0x9F, 0x00, 0xFF)); ok {
		t.Error("CM19A has no power line to bridge to")
	}
}

func TestPolicy_ShouldRepeat(t *testing.T) {
	p := NewPolicy(x10.ModelCM15A, DefaultRfToPl, 0)
	rx := decodeRF(t, 0x5D, 0x20, 0x60, 0x9F, 0x00, 0xFF)
	if p.ShouldRepeat(rx) {
		t.Error("repeat is off by default")
	}

	p.RfToRf = 1
	if !p.ShouldRepeat(rx) {
		t.Error("received RF should repeat")
	}
	if p.ShouldRepeat(decodeRF(t, 0xEB, 0x20, 0x60, 0x9F, 0x00, 0xFF)) {
		t.Error("transmitted frames never repeat")
	}
	if !p.ShouldRepeat(decodeRF(t, 0x5D, 0x29, 0x7F, 0x70, 0x8C, 0x73, 0xCA, 0x00)) {
		t.Error("long security should repeat")
	}
	if p.ShouldRepeat(&x10.Event{Kind: x10.KindPLFunction, Direction: x10.Rx}) {
		t.Error("PL never repeats")
	}

	p.Reset()
	if p.RfToRf != 0 || p.RfToPl != DefaultRfToPl {
		t.Errorf("reset should restore defaults, got %+v", p)
	}
}

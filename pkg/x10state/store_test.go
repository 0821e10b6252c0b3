// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Thermoquad/x10gate/pkg/x10"
)

func mustDecode(t *testing.T, frame ...byte) *x10.Event {
	t.Helper()
	ev, err := x10.NewDecoder(x10.ModelCM15A).Decode(frame)
	if err != nil {
		t.Fatalf("decode % X: %v", frame, err)
	}
	if ev == nil {
		t.Fatalf("decode % X: no event", frame)
	}
	return ev
}

// ============================================================
// Selection State Machine Tests
// ============================================================

func TestSelection_AddressesAccumulateUntilFunction(t *testing.T) {
	s := NewStore()
	a := x10.House(0)

	// A1, A2, ON
	s.Apply(mustDecode(t, 0x5A, 0x02, 0x00, 0x66))
	s.Apply(mustDecode(t, 0x5A, 0x02, 0x00, 0x6E))
	if got := s.Selected(a); got != 0x0003 {
		t.Fatalf("expected A1,A2 selected, got %04X", got)
	}
	s.Apply(mustDecode(t, 0x5A, 0x02, 0x01, 0x62))
	for u := x10.Unit(0); u < 2; u++ {
		if s.Status(a, u).Power != PowerOn {
			t.Errorf("A%s: expected on", u)
		}
	}
	if s.Status(a, 2).Power != PowerUnknown {
		t.Error("A3 should be untouched")
	}

	// A3 after a function replaces the selection; OFF only hits A3
	s.Apply(mustDecode(t, 0x5A, 0x02, 0x00, 0x62))
	if got := s.Selected(a); got != 0x0004 {
		t.Fatalf("expected only A3 selected, got %04X", got)
	}
	s.Apply(mustDecode(t, 0x5A, 0x02, 0x01, 0x63))
	want := []Power{PowerOn, PowerOn, PowerOff}
	for u, p := range want {
		if got := s.Status(a, x10.Unit(u)).Power; got != p {
			t.Errorf("A%d: expected %s, got %s", u+1, p, got)
		}
	}
}

func TestSelection_FunctionReappliesWithoutNewAddress(t *testing.T) {
	s := NewStore()
	a := x10.House(0)

	// A1, A2, ON, then OFF with no address in between
	s.Apply(mustDecode(t, 0x5A, 0x02, 0x00, 0x66))
	s.Apply(mustDecode(t, 0x5A, 0x02, 0x00, 0x6E))
	s.Apply(mustDecode(t, 0x5A, 0x02, 0x01, 0x62))
	s.Apply(mustDecode(t, 0x5A, 0x02, 0x01, 0x63))

	if got := s.Selected(a); got != 0x0003 {
		t.Fatalf("expected A1,A2 still selected, got %04X", got)
	}
	want := []Power{PowerOff, PowerOff, PowerUnknown}
	for u, p := range want {
		if got := s.Status(a, x10.Unit(u)).Power; got != p {
			t.Errorf("A%d: expected %s, got %s", u+1, p, got)
		}
	}
}

func TestSelection_HousesAreIndependent(t *testing.T) {
	s := NewStore()
	s.Select(0, 0)
	s.ApplyFunction(0, x10.FuncOn, 0)
	s.Select(1, 4)

	// B's address frame does not reset A's mode
	s.Select(0, 1)
	if got := s.Selected(0); got != 0x0002 {
		t.Errorf("A: expected %04X, got %04X", 0x0002, got)
	}
	if got := s.Selected(1); got != 0x0010 {
		t.Errorf("B: expected %04X, got %04X", 0x0010, got)
	}
}

func TestApplyFunction_Groups(t *testing.T) {
	tests := []struct {
		name string
		fn   x10.Function
		all  bool
		want Power
	}{
		{"all units off", x10.FuncAllUnitsOff, true, PowerOff},
		{"all lights off", x10.FuncAllLightsOff, true, PowerOff},
		{"all lights on", x10.FuncAllLightsOn, true, PowerOn},
		{"on", x10.FuncOn, false, PowerOn},
		{"status on", x10.FuncStatusOn, false, PowerOn},
		{"off", x10.FuncOff, false, PowerOff},
		{"status off", x10.FuncStatusOff, false, PowerOff},
		{"hail request", x10.FuncHailRequest, false, PowerUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.Select(3, 5)
			s.ApplyFunction(3, tt.fn, 0)

			if got := s.Status(3, 5).Power; got != tt.want {
				t.Errorf("selected unit: expected %s, got %s", tt.want, got)
			}
			other := PowerUnknown
			if tt.all {
				other = tt.want
			}
			if got := s.Status(3, 9).Power; got != other {
				t.Errorf("unselected unit: expected %s, got %s", other, got)
			}
			if got := s.Status(4, 5).Power; got != PowerUnknown {
				t.Errorf("other house changed: %s", got)
			}
		})
	}
}

// ============================================================
// Dim Level Tests
// ============================================================

func TestDimLevels(t *testing.T) {
	s := NewStore()
	s.Select(0, 0)

	s.ApplyFunction(0, x10.FuncDim, 5)
	st := s.Status(0, 0)
	if !st.LevelKnown || st.Level != MaxDimLevel-10 || st.Power != PowerOn {
		t.Fatalf("after dim 5: %+v", st)
	}

	s.ApplyFunction(0, x10.FuncDim, 31)
	if st := s.Status(0, 0); st.Level != 0 {
		t.Errorf("dim should clamp at 0, got %d", st.Level)
	}

	s.ApplyFunction(0, x10.FuncBright, 3)
	if st := s.Status(0, 0); st.Level != 6 {
		t.Errorf("expected 6, got %d", st.Level)
	}

	s.ApplyFunction(0, x10.FuncBright, 31)
	if st := s.Status(0, 0); st.Level != MaxDimLevel {
		t.Errorf("bright should clamp at %d, got %d", MaxDimLevel, st.Level)
	}
}

func TestDimWithoutStepsChangesNothing(t *testing.T) {
	s := NewStore()
	// A1 then a plain function frame carrying DIM
	s.Apply(mustDecode(t, 0x5A, 0x02, 0x00, 0x66))
	s.Apply(mustDecode(t, 0x5A, 0x02, 0x01, 0x64))
	if st := s.Status(0, 0); st != (Status{}) {
		t.Errorf("expected untouched status, got %+v", st)
	}
}

func TestPresetDim(t *testing.T) {
	s := NewStore()
	s.Select(1, 0)

	// Extended receive: command 31, data 21, house B
	s.Apply(mustDecode(t, 0x5A, 0x05, 0x08, 0x31, 0x21, 0x02, 0xE7))
	st := s.Status(1, 0)
	if !st.PresetKnown || st.Preset != 0x21 || st.Power != PowerOn {
		t.Fatalf("unexpected status %+v", st)
	}

	s.ApplyPreset(1, 0)
	if st := s.Status(1, 0); st.Power != PowerOff || st.Preset != 0 {
		t.Errorf("preset 0 should turn off, got %+v", st)
	}
}

func TestApply_RF(t *testing.T) {
	s := NewStore()

	// RF A1 on selects and switches in one frame
	s.Apply(mustDecode(t, 0x5D, 0x20, 0x60, 0x9F, 0x00, 0xFF))
	if !s.IsSelected(0, 0) || s.Status(0, 0).Power != PowerOn {
		t.Fatalf("A1 not on: %+v", s.Status(0, 0))
	}

	// RF A dim has no unit and no effect
	s.Apply(mustDecode(t, 0x5D, 0x20, 0x60, 0x9F, 0x98, 0x67))
	if st := s.Status(0, 0); st.LevelKnown {
		t.Errorf("RF dim changed level: %+v", st)
	}

	// RF A2 off starts a fresh selection
	s.Apply(mustDecode(t, 0x5D, 0x20, 0x60, 0x9F, 0x30, 0xCF))
	if s.Selected(0) != 0x0002 || s.Status(0, 1).Power != PowerOff {
		t.Errorf("unexpected state %04X %+v", s.Selected(0), s.Status(0, 1))
	}
}

// ============================================================
// Sensor Registry Tests
// ============================================================

func TestRecordSensor(t *testing.T) {
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()
	s.now = func() time.Time { return clock }

	s.Apply(mustDecode(t, 0x5D, 0x29, 0x7F, 0x70, 0x0C, 0xF3, 0xCA, 0x00))
	clock = clock.Add(time.Minute)
	s.Apply(mustDecode(t, 0x5D, 0x29, 0x7F, 0x70, 0x8C, 0x73, 0xCA, 0x00))
	s.Apply(mustDecode(t, 0x5D, 0x20, 0xE2, 0xED, 0x0A, 0xF5))

	sensors := s.Sensors()
	if len(sensors) != 2 {
		t.Fatalf("expected 2 sensors, got %d", len(sensors))
	}
	want := []Sensor{
		{Addr: 0xE2, Code: 0x0A, EightBit: true, LastUpdate: clock},
		{Addr: 0x7FCA00, Code: 0x8C, EightBit: false, LastUpdate: clock},
	}
	if !reflect.DeepEqual(sensors, want) {
		t.Errorf("expected %+v, got %+v", want, sensors)
	}
	if sensors[0].Name() != "Arm_Home_max_SH624" || sensors[1].Name() != "Motion_normal_MS10A" {
		t.Errorf("unexpected names %q %q", sensors[0].Name(), sensors[1].Name())
	}
}

func TestRecordSensor_Capacity(t *testing.T) {
	s := NewStoreWithCapacity(2)
	if err := s.RecordSensor(1, 0x0C, false); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordSensor(2, 0x0C, false); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordSensor(3, 0x0C, false); !errors.Is(err, ErrRegistryFull) {
		t.Errorf("expected ErrRegistryFull, got %v", err)
	}
	// Known addresses still update when full
	if err := s.RecordSensor(1, 0x8C, false); err != nil {
		t.Errorf("update of known sensor failed: %v", err)
	}
	if sen, _ := s.Sensor(1); sen.Code != 0x8C {
		t.Errorf("expected code 8C, got %02X", sen.Code)
	}
}

func TestReset(t *testing.T) {
	s := NewStore()
	s.Select(0, 0)
	s.ApplyFunction(0, x10.FuncOn, 0)
	s.RecordSensor(0xE2, 0x0A, true)

	s.Reset()
	if s.Selected(0) != 0 || s.Status(0, 0) != (Status{}) || len(s.Sensors()) != 0 {
		t.Error("reset left state behind")
	}
	// Mode is reset too: a new address accumulates onto an empty selection
	s.Select(0, 2)
	s.Select(0, 3)
	if s.Selected(0) != 0x000C {
		t.Errorf("expected 000C, got %04X", s.Selected(0))
	}
}

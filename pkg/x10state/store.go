// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package x10state tracks what the gateway has learned from the traffic it
// sees: which units each house has selected, the last known power state and
// dim level of every unit, and the security sensors that have reported in.
// Nothing is persisted; Reset returns the store to its power-on state.
package x10state

import (
	"errors"
	"sort"
	"time"

	"github.com/Thermoquad/x10gate/pkg/x10"
)

// DefaultSensorCapacity is the number of distinct security sensors tracked
const DefaultSensorCapacity = 512

// Dim levels move on a 0..MaxDimLevel scale, DimStepSize per step
const (
	MaxDimLevel = 63
	DimStepSize = 2
)

// ErrRegistryFull is returned when a new sensor does not fit in the registry
var ErrRegistryFull = errors.New("security sensor registry full")

// Power is the last known power state of a unit
type Power uint8

const (
	PowerUnknown Power = iota
	PowerOn
	PowerOff
)

func (p Power) String() string {
	switch p {
	case PowerOn:
		return "1"
	case PowerOff:
		return "0"
	default:
		return "?"
	}
}

// Status is the tracked state of one unit
type Status struct {
	Power Power

	// Level is the dim level on the 0..MaxDimLevel scale. Meaningful only
	// when LevelKnown is set.
	Level      int
	LevelKnown bool

	// Preset is the last extended preset-dim level, 0..255
	Preset      int
	PresetKnown bool
}

// Sensor is the registry record of one security sensor or remote
type Sensor struct {
	Addr       uint32
	Code       byte
	EightBit   bool
	LastUpdate time.Time
}

// Name returns the display name of the last reported status byte
func (s Sensor) Name() string {
	if s.EightBit {
		return x10.SecRemoteKeyName(s.Code)
	}
	return x10.SecEventName(s.Code)
}

// Store holds selection, unit status and sensor state for all 256 addresses.
// A Store is owned by a single goroutine and is not safe for concurrent use.
type Store struct {
	selected [x10.NumHouses]uint16
	// replace marks houses whose next address frame starts a new selection
	replace [x10.NumHouses]bool
	status  [x10.NumHouses][x10.NumUnits]Status

	sensors  map[uint32]*Sensor
	capacity int

	now func() time.Time
}

// NewStore creates an empty store with the default sensor capacity
func NewStore() *Store {
	return NewStoreWithCapacity(DefaultSensorCapacity)
}

// NewStoreWithCapacity creates an empty store tracking at most capacity
// sensors
func NewStoreWithCapacity(capacity int) *Store {
	return &Store{
		sensors:  make(map[uint32]*Sensor),
		capacity: capacity,
		now:      time.Now,
	}
}

// Reset clears all selection, status and sensor state
func (s *Store) Reset() {
	s.selected = [x10.NumHouses]uint16{}
	s.replace = [x10.NumHouses]bool{}
	s.status = [x10.NumHouses][x10.NumUnits]Status{}
	s.sensors = make(map[uint32]*Sensor)
}

// Select records an address frame. After a function frame the house's
// selection is cleared first; consecutive address frames accumulate.
func (s *Store) Select(h x10.House, u x10.Unit) {
	if s.replace[h] {
		s.selected[h] = 0
		s.replace[h] = false
	}
	s.selected[h] |= 1 << u
}

// Selected returns the selection bit vector of a house, bit n for unit n
func (s *Store) Selected(h x10.House) uint16 {
	return s.selected[h]
}

// IsSelected reports whether a unit is selected
func (s *Store) IsSelected(h x10.House, u x10.Unit) bool {
	return s.selected[h]&(1<<u) != 0
}

// Status returns the tracked state of a unit
func (s *Store) Status(h x10.House, u x10.Unit) Status {
	return s.status[h][u]
}

// ApplyFunction applies a function frame to a house. ALL_* functions affect
// every unit, the rest only the selected ones. Steps is the dim step count
// carried by dim/bright frames; zero leaves the level alone.
func (s *Store) ApplyFunction(h x10.House, f x10.Function, steps int) {
	s.replace[h] = true

	switch f {
	case x10.FuncAllLightsOn:
		s.setAll(h, PowerOn)
	case x10.FuncAllUnitsOff, x10.FuncAllLightsOff:
		s.setAll(h, PowerOff)
	case x10.FuncOn, x10.FuncStatusOn:
		s.setSelected(h, func(st *Status) { st.Power = PowerOn })
	case x10.FuncOff, x10.FuncStatusOff:
		s.setSelected(h, func(st *Status) { st.Power = PowerOff })
	case x10.FuncDim, x10.FuncBright:
		if steps <= 0 {
			return
		}
		delta := steps * DimStepSize
		if f == x10.FuncDim {
			delta = -delta
		}
		s.setSelected(h, func(st *Status) { st.adjustLevel(delta) })
	}
}

// ApplyPreset applies an extended preset-dim level to the selected units of
// a house
func (s *Store) ApplyPreset(h x10.House, level byte) {
	s.replace[h] = true
	s.setSelected(h, func(st *Status) {
		st.Preset = int(level)
		st.PresetKnown = true
		if level > 0 {
			st.Power = PowerOn
		} else {
			st.Power = PowerOff
		}
	})
}

func (st *Status) adjustLevel(delta int) {
	level := MaxDimLevel
	if st.LevelKnown {
		level = st.Level
	}
	level += delta
	if level < 0 {
		level = 0
	}
	if level > MaxDimLevel {
		level = MaxDimLevel
	}
	st.Level = level
	st.LevelKnown = true
	st.Power = PowerOn
}

func (s *Store) setAll(h x10.House, p Power) {
	for u := range s.status[h] {
		s.status[h][u].Power = p
	}
}

func (s *Store) setSelected(h x10.House, fn func(*Status)) {
	for u := range s.status[h] {
		if s.selected[h]&(1<<u) != 0 {
			fn(&s.status[h][u])
		}
	}
}

// RecordSensor creates or updates the record of a security address. New
// addresses beyond the registry capacity return ErrRegistryFull.
func (s *Store) RecordSensor(addr uint32, code byte, eightBit bool) error {
	if sen, ok := s.sensors[addr]; ok {
		sen.Code = code
		sen.LastUpdate = s.now()
		return nil
	}
	if len(s.sensors) >= s.capacity {
		return ErrRegistryFull
	}
	s.sensors[addr] = &Sensor{
		Addr:       addr,
		Code:       code,
		EightBit:   eightBit,
		LastUpdate: s.now(),
	}
	return nil
}

// Sensor returns the record of one security address
func (s *Store) Sensor(addr uint32) (Sensor, bool) {
	sen, ok := s.sensors[addr]
	if !ok {
		return Sensor{}, false
	}
	return *sen, true
}

// Sensors returns a copy of the registry sorted by address
func (s *Store) Sensors() []Sensor {
	out := make([]Sensor, 0, len(s.sensors))
	for _, sen := range s.sensors {
		out = append(out, *sen)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Apply updates the store from a decoded event. Only a sensor that does not
// fit in the registry produces an error.
func (s *Store) Apply(ev *x10.Event) error {
	switch ev.Kind {
	case x10.KindPLAddress:
		s.Select(ev.House, ev.Unit)

	case x10.KindPLFunction:
		s.ApplyFunction(ev.House, ev.Function, 0)

	case x10.KindPLDimBright:
		s.ApplyFunction(ev.House, ev.Function, ev.Steps)

	case x10.KindPLExtendedTx, x10.KindPLExtendedRx:
		if ev.Command == x10.ExtCommandPresetDim {
			s.ApplyPreset(ev.House, ev.Data)
		}

	case x10.KindRFStandard:
		// RF dim and bright address no unit and change nothing
		if ev.HasUnit {
			s.Select(ev.House, ev.Unit)
			s.ApplyFunction(ev.House, ev.Function, 0)
		}

	case x10.KindRFSecurity, x10.KindRFSecurityExt:
		return s.RecordSensor(ev.SecAddr, ev.SecCode, ev.SecShort)
	}
	return nil
}

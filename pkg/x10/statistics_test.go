// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"strings"
	"testing"
	"time"
)

func newTestStatistics(clock *time.Time) *Statistics {
	s := NewStatistics()
	s.now = func() time.Time { return *clock }
	s.Reset()
	return s
}

func TestStatistics_Update(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStatistics(&clock)
	d := NewDecoder(ModelCM15A)

	frames := [][]byte{
		{0x5A, 0x02, 0x00, 0x66},                         // PL address
		{0x5D, 0x20, 0x60, 0x9F, 0x00, 0xFF},             // RF A1 on
		{0x5D, 0x20, 0xE2, 0xED, 0x0A, 0xF5},             // RF security
		{0x5D, 0x20, 0x60, 0x9E, 0x00, 0xFF},             // checksum
		{0x5D, 0x29, 0x7F, 0x70, 0x8C, 0x73, 0xCA, 0x01}, // parity
		{0x5A, 0x03, 0x00, 0x66},                         // length
		{0x5D, 0x31, 0x00, 0x00, 0x00},                   // unsupported
		{0x5A, 0x01},                                     // too short, ignored
	}
	for _, f := range frames {
		ev, err := d.Decode(f)
		s.Update(ev, err)
	}
	s.RecordAck()

	checks := []struct {
		name string
		got  uint64
		want uint64
	}{
		{"total", s.TotalFrames, 7},
		{"valid", s.ValidFrames, 3},
		{"pl", s.PLFrames, 1},
		{"rf", s.RFFrames, 2},
		{"security", s.SecurityFrames, 1},
		{"checksum", s.ChecksumErrors, 1},
		{"parity", s.ParityErrors, 1},
		{"length", s.LengthErrors, 1},
		{"unsupported", s.Unsupported, 1},
		{"acks", s.Acks, 1},
		{"errors", s.Errors(), 4},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %d, got %d", c.name, c.want, c.got)
		}
	}
}

func TestStatistics_Rates(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStatistics(&clock)

	for i := 0; i < 20; i++ {
		s.Update(&Event{Kind: KindPLFunction}, nil)
	}
	s.Update(nil, &DecodeError{Type: ErrorChecksum, Bus: BusRF})
	s.Update(nil, &DecodeError{Type: ErrorChecksum, Bus: BusRF})

	clock = clock.Add(2 * time.Second)
	s.CalculateRates()
	if s.FrameRate != 11 {
		t.Errorf("expected 11 frames/sec, got %.2f", s.FrameRate)
	}
	if s.ErrorRate != 1 {
		t.Errorf("expected 1 error/sec, got %.2f", s.ErrorRate)
	}

	out := s.String()
	if !strings.Contains(out, "Checksum Errors:") || strings.Contains(out, "Parity Errors:") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}

func TestStatistics_Reset(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStatistics(&clock)
	s.Update(&Event{Kind: KindRFStandard}, nil)

	clock = clock.Add(time.Minute)
	s.Reset()
	if s.TotalFrames != 0 || !s.StartTime.Equal(clock) {
		t.Errorf("reset did not clear state: %+v", s)
	}
	// The injected clock survives a reset
	clock = clock.Add(time.Second)
	s.RecordAck()
	if !s.LastUpdateTime.Equal(clock) {
		t.Errorf("expected last update %v, got %v", clock, s.LastUpdateTime)
	}
}

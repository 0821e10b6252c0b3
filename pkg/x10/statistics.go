// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks decoded frame counts and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames    uint64
	ValidFrames    uint64
	PLFrames       uint64
	RFFrames       uint64
	SecurityFrames uint64
	Acks           uint64
	ChecksumErrors uint64
	ParityErrors   uint64
	LengthErrors   uint64
	Unsupported    uint64
	UnknownCamera  uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec

	now func() time.Time
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	s := &Statistics{now: time.Now}
	s.Reset()
	return s
}

// Update records one decode result. Acks count separately from frames.
func (s *Statistics) Update(ev *Event, err error) {
	s.LastUpdateTime = s.now()

	if err == nil && ev == nil {
		return
	}
	s.TotalFrames++

	if err != nil {
		switch {
		case errors.Is(err, ErrChecksum):
			s.ChecksumErrors++
		case errors.Is(err, ErrParity):
			s.ParityErrors++
		case errors.Is(err, ErrTooShort), errors.Is(err, ErrTooLong), errors.Is(err, ErrLength):
			s.LengthErrors++
		case errors.Is(err, ErrUnknownCamera):
			s.UnknownCamera++
		default:
			s.Unsupported++
		}
		return
	}

	s.ValidFrames++
	if ev.Bus() == BusPL {
		s.PLFrames++
	} else {
		s.RFFrames++
	}
	if ev.IsSecurity() {
		s.SecurityFrames++
	}
}

// RecordAck counts a controller acknowledgment
func (s *Statistics) RecordAck() {
	s.Acks++
	s.LastUpdateTime = s.now()
}

// Errors returns the total error count
func (s *Statistics) Errors() uint64 {
	return s.ChecksumErrors + s.ParityErrors + s.LengthErrors + s.Unsupported + s.UnknownCamera
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := s.now().Sub(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

func percent(n, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100.0 / float64(total)
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()
	elapsed := s.now().Sub(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, percent(s.ValidFrames, s.TotalFrames))
	result += fmt.Sprintf("  Power-line:       %5d\n", s.PLFrames)
	result += fmt.Sprintf("  RF:               %5d\n", s.RFFrames)
	if s.SecurityFrames > 0 {
		result += fmt.Sprintf("  Security:         %5d\n", s.SecurityFrames)
	}
	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, percent(s.ChecksumErrors, s.TotalFrames))
	}
	if s.ParityErrors > 0 {
		result += fmt.Sprintf("Parity Errors:   %8d (%.1f%%)\n", s.ParityErrors, percent(s.ParityErrors, s.TotalFrames))
	}
	if s.LengthErrors > 0 {
		result += fmt.Sprintf("Length Errors:   %8d (%.1f%%)\n", s.LengthErrors, percent(s.LengthErrors, s.TotalFrames))
	}
	if s.Unsupported > 0 {
		result += fmt.Sprintf("Unsupported:     %8d (%.1f%%)\n", s.Unsupported, percent(s.Unsupported, s.TotalFrames))
	}
	if s.UnknownCamera > 0 {
		result += fmt.Sprintf("Unknown Camera:  %8d\n", s.UnknownCamera)
	}
	result += fmt.Sprintf("Acks:            %8d\n", s.Acks)
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	now := s.now()
	*s = Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		now:            s.now,
	}
}

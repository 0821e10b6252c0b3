// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"errors"
	"strings"
)

// DefaultLineLimit bounds a single command line
const DefaultLineLimit = 256

// ErrLineTooLong is returned when a line exceeds the buffer limit. The rest
// of that line is discarded up to the next newline.
var ErrLineTooLong = errors.New("command line too long")

// LineBuffer splits a byte stream into newline-terminated lines, carrying
// partial lines across writes
type LineBuffer struct {
	buf        []byte
	limit      int
	discarding bool
}

// NewLineBuffer creates a line buffer accepting lines up to limit bytes
func NewLineBuffer(limit int) *LineBuffer {
	if limit <= 0 {
		limit = DefaultLineLimit
	}
	return &LineBuffer{buf: make([]byte, 0, limit), limit: limit}
}

// Write feeds bytes and returns every line completed by them, without the
// newline or a trailing carriage return. Lines completed before an
// overlong one are still returned alongside ErrLineTooLong.
func (b *LineBuffer) Write(p []byte) ([]string, error) {
	var lines []string
	var err error

	for _, c := range p {
		if c == '\n' {
			if b.discarding {
				b.discarding = false
				continue
			}
			lines = append(lines, strings.TrimSuffix(string(b.buf), "\r"))
			b.buf = b.buf[:0]
			continue
		}
		if b.discarding {
			continue
		}
		if len(b.buf) >= b.limit {
			b.buf = b.buf[:0]
			b.discarding = true
			err = ErrLineTooLong
			continue
		}
		b.buf = append(b.buf, c)
	}
	return lines, err
}

// Pending returns the number of buffered bytes of an incomplete line
func (b *LineBuffer) Pending() int {
	return len(b.buf)
}

// Reset drops any partial line
func (b *LineBuffer) Reset() {
	b.buf = b.buf[:0]
	b.discarding = false
}

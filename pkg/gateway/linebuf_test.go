// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestLineBuffer_Split(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []string
		want    []string
		pending int
	}{
		{"single line", []string{"pl a1 on\n"}, []string{"pl a1 on"}, 0},
		{"crlf", []string{"st\r\n"}, []string{"st"}, 0},
		{"split across writes", []string{"pl a", "1 o", "n\nrf"}, []string{"pl a1 on"}, 2},
		{"several in one write", []string{"a\nb\n\nc\n"}, []string{"a", "b", "", "c"}, 0},
		{"no newline", []string{"partial"}, nil, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewLineBuffer(32)
			var got []string
			for _, c := range tt.chunks {
				lines, err := b.Write([]byte(c))
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				got = append(got, lines...)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if b.Pending() != tt.pending {
				t.Errorf("expected %d pending, got %d", tt.pending, b.Pending())
			}
		})
	}
}

func TestLineBuffer_TooLong(t *testing.T) {
	b := NewLineBuffer(8)

	input := "ok\n" + strings.Repeat("x", 20) + "\nst\n"
	lines, err := b.Write([]byte(input))
	if !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}
	// Lines on either side of the overlong one survive intact
	if want := []string{"ok", "st"}; !reflect.DeepEqual(lines, want) {
		t.Errorf("expected %q, got %q", want, lines)
	}
}

func TestLineBuffer_TooLongAcrossWrites(t *testing.T) {
	b := NewLineBuffer(4)

	if _, err := b.Write([]byte("abcdef")); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}
	// Still discarding the rest of the line
	lines, err := b.Write([]byte("ghi\nst\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"st"}; !reflect.DeepEqual(lines, want) {
		t.Errorf("expected %q, got %q", want, lines)
	}
}

func TestLineBuffer_ExactLimit(t *testing.T) {
	b := NewLineBuffer(4)
	lines, err := b.Write([]byte("abcd\n"))
	if err != nil || len(lines) != 1 || lines[0] != "abcd" {
		t.Errorf("a line at the limit should pass, got %q %v", lines, err)
	}
}

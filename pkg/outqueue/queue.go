// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package outqueue throttles writes to the controller. Exactly one frame is
// in flight at a time; the next frame goes out when the controller
// acknowledges the previous one or the acknowledgment deadline passes.
package outqueue

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Defaults
const (
	DefaultCapacity   = 256
	DefaultAckTimeout = 2 * time.Second
	MaxFrameSize      = 8
)

var (
	ErrQueueFull     = errors.New("output queue full")
	ErrFrameTooLong  = errors.New("frame too long")
	ErrEmptyFrame    = errors.New("empty frame")
	ErrInvalidConfig = errors.New("invalid queue capacity")
)

// Writer transmits one frame to the controller
type Writer interface {
	WriteFrame(frame []byte) error
}

// Queue is a ring buffer of pending frames with one slot kept empty to tell
// full from empty, so a queue of capacity N holds N-1 frames. It is owned by
// one goroutine and is not safe for concurrent use.
type Queue struct {
	slots [][]byte
	head  int
	tail  int

	busy     bool
	deadline time.Time

	timeout time.Duration
	w       Writer
	now     func() time.Time
}

// New creates a queue writing to w
func New(w Writer, capacity int, ackTimeout time.Duration) (*Queue, error) {
	if capacity < 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidConfig, capacity)
	}
	if ackTimeout <= 0 {
		ackTimeout = DefaultAckTimeout
	}
	return &Queue{
		slots:   make([][]byte, capacity),
		timeout: ackTimeout,
		w:       w,
		now:     time.Now,
	}, nil
}

// Enqueue transmits the frame immediately when nothing is in flight,
// otherwise appends it. A full queue rejects the frame and leaves the
// pending entries untouched.
func (q *Queue) Enqueue(frame []byte) error {
	if len(frame) == 0 {
		return ErrEmptyFrame
	}
	if len(frame) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLong, len(frame))
	}
	buf := append([]byte(nil), frame...)

	if !q.busy {
		q.transmit(buf)
		return nil
	}

	next := (q.tail + 1) % len(q.slots)
	if next == q.head {
		return ErrQueueFull
	}
	q.slots[q.tail] = buf
	q.tail = next
	return nil
}

// Ack releases the in-flight frame and transmits the next pending one
func (q *Queue) Ack() {
	if q.head == q.tail {
		q.busy = false
		q.deadline = time.Time{}
		return
	}
	buf := q.slots[q.head]
	q.slots[q.head] = nil
	q.head = (q.head + 1) % len(q.slots)
	q.transmit(buf)
}

// Expired reports whether the in-flight frame has outlived its deadline
func (q *Queue) Expired(now time.Time) bool {
	return q.busy && !now.Before(q.deadline)
}

// Deadline returns the acknowledgment deadline of the in-flight frame
func (q *Queue) Deadline() (time.Time, bool) {
	return q.deadline, q.busy
}

// Busy reports whether a frame is in flight
func (q *Queue) Busy() bool {
	return q.busy
}

// Len returns the number of pending frames, excluding the one in flight
func (q *Queue) Len() int {
	return (q.tail - q.head + len(q.slots)) % len(q.slots)
}

// Cap returns the number of frames the queue can hold
func (q *Queue) Cap() int {
	return len(q.slots) - 1
}

// Reset drops every pending frame and forgets the in-flight one
func (q *Queue) Reset() {
	for i := range q.slots {
		q.slots[i] = nil
	}
	q.head, q.tail = 0, 0
	q.busy = false
	q.deadline = time.Time{}
}

// transmit writes a frame and arms the deadline. A failed write keeps the
// queue busy until the deadline releases it.
func (q *Queue) transmit(frame []byte) {
	q.busy = true
	q.deadline = q.now().Add(q.timeout)
	if err := q.w.WriteFrame(frame); err != nil {
		log.Error().Err(err).Hex("frame", frame).Msg("Failed to write frame")
		return
	}
	log.Debug().Hex("frame", frame).Int("pending", q.Len()).Msg("Frame sent")
}

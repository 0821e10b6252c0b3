// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"time"

	"github.com/Thermoquad/x10gate/pkg/x10"
)

// Broadcast addresses a message to every client
const Broadcast = ""

// TimestampLayout prefixes every client line with local month/day and time
const TimestampLayout = "01/02 15:04:05 "

// Message is one line of gateway output
type Message struct {
	Time time.Time
	// To is the client that issued the command being answered, or
	// Broadcast
	To   string
	Text string
	// Event is set when the line reports a decoded frame
	Event *x10.Event
}

// Line returns the text as sent to line clients, timestamp included
func (m Message) Line() string {
	return m.Time.Format(TimestampLayout) + m.Text
}

// Sink receives gateway output. Deliver is called from the gateway loop and
// must not block.
type Sink interface {
	Deliver(msg Message)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(Message)

// Deliver calls f(msg)
func (f SinkFunc) Deliver(msg Message) {
	f(msg)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport carries controller transfers between the gateway and
// the controller. A transfer is at most eight bytes and its boundaries
// matter: a one-byte transfer is an acknowledgment, and frames are decoded
// by length. Each link therefore reads and writes whole transfers.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// MaxTransfer is the largest controller transfer
const MaxTransfer = 8

// DefaultFrameGap is the read silence that ends a transfer on byte-stream links
const DefaultFrameGap = 20 * time.Millisecond

// ErrConnectionClosed is returned when reading from a closed link
var ErrConnectionClosed = errors.New("connection closed")

// Link is a transfer-framed connection to the controller
type Link interface {
	// ReadFrame blocks until one transfer has been received
	ReadFrame() ([]byte, error)
	// WriteFrame sends one transfer
	WriteFrame(frame []byte) error
	Close() error
	// String describes the link for logs
	String() string
}

// Options selects and configures a link. URL takes precedence over Port.
type Options struct {
	Port     string
	BaudRate int
	FrameGap time.Duration

	URL           string
	Username      string
	Password      string
	SkipSSLVerify bool
}

// Open opens a WebSocket link when a URL is given, otherwise a serial link
func Open(opts Options) (Link, error) {
	if opts.URL != "" {
		link, err := OpenWebSocket(opts.URL, opts.Username, opts.Password, opts.SkipSSLVerify)
		if err != nil {
			return nil, err
		}
		return link, nil
	}
	if opts.Port != "" {
		link, err := OpenSerial(opts.Port, opts.BaudRate, opts.FrameGap)
		if err != nil {
			return nil, err
		}
		return link, nil
	}
	return nil, fmt.Errorf("either a serial port or a WebSocket URL must be specified")
}

// Pump reads transfers from the link into out until the link fails or the
// context is cancelled. out is closed on return.
func Pump(ctx context.Context, link Link, out chan<- []byte) error {
	defer close(out)
	for {
		frame, err := link.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read from %s: %w", link, err)
		}
		if len(frame) == 0 {
			continue
		}
		select {
		case out <- frame:
		case <-ctx.Done():
			return nil
		}
	}
}

// logFrame traces a transfer at debug level
func logFrame(dir string, link Link, frame []byte) {
	log.Debug().Str("dir", dir).Str("link", link.String()).Hex("frame", frame).Msg("Transfer")
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// SerialLink is a controller reached through a serial byte stream. A byte
// stream has no transfer boundaries, so a transfer ends when the line goes
// quiet for the frame gap or MaxTransfer bytes have arrived.
type SerialLink struct {
	port   serial.Port
	name   string
	framer *gapFramer
}

// OpenSerial opens a serial port link
func OpenSerial(portName string, baudRate int, gap time.Duration) (*SerialLink, error) {
	if gap <= 0 {
		gap = DefaultFrameGap
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(gap); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	return &SerialLink{
		port:   port,
		name:   fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate),
		framer: newGapFramer(port),
	}, nil
}

func (s *SerialLink) ReadFrame() ([]byte, error) {
	frame, err := s.framer.ReadFrame()
	if err == nil {
		logFrame("rx", s, frame)
	}
	return frame, err
}

func (s *SerialLink) WriteFrame(frame []byte) error {
	logFrame("tx", s, frame)
	_, err := s.port.Write(frame)
	return err
}

func (s *SerialLink) Close() error {
	return s.port.Close()
}

func (s *SerialLink) String() string {
	return s.name
}

// gapFramer groups bytes from a reader whose Read returns 0, nil when its
// read timeout expires
type gapFramer struct {
	r       io.Reader
	pending []byte
	buf     [MaxTransfer]byte
}

func newGapFramer(r io.Reader) *gapFramer {
	return &gapFramer{r: r}
}

// ReadFrame returns the next transfer. Bytes beyond MaxTransfer from one
// read are kept for the following transfer.
func (f *gapFramer) ReadFrame() ([]byte, error) {
	for {
		if len(f.pending) >= MaxTransfer {
			return f.take(MaxTransfer), nil
		}

		n, err := f.r.Read(f.buf[:MaxTransfer-len(f.pending)])
		if n > 0 {
			f.pending = append(f.pending, f.buf[:n]...)
			continue
		}
		if err != nil {
			if err == io.EOF {
				err = ErrConnectionClosed
			}
			return nil, err
		}
		// Timeout: the line went quiet
		if len(f.pending) > 0 {
			return f.take(len(f.pending)), nil
		}
	}
}

func (f *gapFramer) take(n int) []byte {
	frame := append([]byte(nil), f.pending[:n]...)
	f.pending = f.pending[n:]
	return frame
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import "errors"

// ErrorType classifies frame decode failures
type ErrorType int

const (
	ErrorTooShort ErrorType = iota
	ErrorTooLong
	ErrorLength
	ErrorChecksum
	ErrorParity
	ErrorUnsupported
	ErrorUnknownCamera
	ErrorUnknownSubtype
)

// Sentinel errors matched by DecodeError.Is
var (
	ErrTooShort       = errors.New("frame too short")
	ErrTooLong        = errors.New("frame too long")
	ErrLength         = errors.New("frame length mismatch")
	ErrChecksum       = errors.New("invalid checksum")
	ErrParity         = errors.New("invalid parity")
	ErrUnsupported    = errors.New("frame type not supported")
	ErrUnknownCamera  = errors.New("unknown camera command")
	ErrUnknownSubtype = errors.New("unknown sub-type")
)

var errorSentinels = map[ErrorType]error{
	ErrorTooShort:       ErrTooShort,
	ErrorTooLong:        ErrTooLong,
	ErrorLength:         ErrLength,
	ErrorChecksum:       ErrChecksum,
	ErrorParity:         ErrParity,
	ErrorUnsupported:    ErrUnsupported,
	ErrorUnknownCamera:  ErrUnknownCamera,
	ErrorUnknownSubtype: ErrUnknownSubtype,
}

// DecodeError describes a rejected frame. Message is the text reported to
// clients for RF frames; PL errors are only logged.
type DecodeError struct {
	Type    ErrorType
	Bus     Bus
	Message string
	Frame   []byte
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return e.Message
}

// Is matches the sentinel for the error type
func (e *DecodeError) Is(target error) bool {
	return errorSentinels[e.Type] == target
}

// Reported reports whether the error is shown to clients
func (e *DecodeError) Reported() bool {
	return e.Bus == BusRF
}

// Parser errors
var (
	ErrEmptyLine       = errors.New("empty command line")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrBadAddress      = errors.New("invalid address")
	ErrUnknownFunction = errors.New("unknown function")
	ErrBadParam        = errors.New("invalid parameter")
	ErrBadHex          = errors.New("invalid hex data")
	ErrUnitRequired    = errors.New("unit required")
	ErrNotSupported    = errors.New("not supported by controller")
)

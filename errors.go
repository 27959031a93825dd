// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// Error categories
var (
	// Transport errors
	ErrDeviceUnresponsive = errors.New("device unresponsive")
	ErrTransportDial      = errors.New("dial failed")
	ErrTransportWrite     = errors.New("write failed")
	ErrTransportRead      = errors.New("read failed")
	ErrReplyTooLarge      = errors.New("reply exceeds maximum size")

	// Correlation errors
	ErrNoUsableReply    = errors.New("no usable reply")
	ErrReplyMismatch    = errors.New("reply doesn't match command")
	ErrUnexpectedResult = errors.New("unexpected result in reply")
	ErrMalformedReply   = errors.New("malformed reply")

	// Dispatch errors
	ErrResourceBusy     = errors.New("resource busy")
	ErrNotFound         = errors.New("not found in active mapping")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrUnknownCommand   = errors.New("unknown command")
)

// ErrorType represents the category of a transport failure.
type ErrorType int

const (
	// ErrorTypeTransient is a socket error that may not recur on the next command
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent is a failure that will recur until configuration changes
	ErrorTypePermanent
	// ErrorTypeTimeout means the session deadline expired
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// TransportError wraps socket-level errors with the operation and address.
type TransportError struct {
	Err  error     // Underlying error
	Op   string    // dial, write, read
	Addr string    // Device-control address
	Type ErrorType // Error category
}

func (e *TransportError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches the per-operation sentinels, so errors.Is(err, ErrTransportDial)
// holds for any dial failure.
func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrTransportDial:
		return e.Op == "dial"
	case ErrTransportWrite:
		return e.Op == "write"
	case ErrTransportRead:
		return e.Op == "read"
	default:
		return false
	}
}

// DeviceErrorKind distinguishes protocol rejection from a reported failure.
type DeviceErrorKind int

const (
	// KindRejected is a reply with commandId "invalid": the device could not parse the command
	KindRejected DeviceErrorKind = iota
	// KindFailed is a correlated reply whose result is "failed"
	KindFailed
)

// DeviceError carries the errorInfo text of a device reply.
type DeviceError struct {
	CommandID string
	Info      string
	Kind      DeviceErrorKind
}

func (e *DeviceError) Error() string {
	if e.Kind == KindRejected {
		return "command rejected by device: " + e.Info
	}
	return fmt.Sprintf("command %q failed: %s", e.CommandID, e.Info)
}

// BusyError reports that another operation holds the resource class.
type BusyError struct {
	Class Class
}

func (e *BusyError) Error() string {
	switch e.Class {
	case ClassKey:
		return "key is being pressed"
	default:
		return "a card is being accessed"
	}
}

func (*BusyError) Unwrap() error {
	return ErrResourceBusy
}

// LookupError reports a name missing from the active mapping set.
type LookupError struct {
	What string // "card name" or "touch screen area"
	Name string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s not found in active mapping: %s", e.What, e.Name)
}

func (*LookupError) Unwrap() error {
	return ErrNotFound
}

// IsTimeout reports whether err is a session deadline expiry.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type == ErrorTypeTimeout
	}
	return errors.Is(err, ErrDeviceUnresponsive) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}

// IsBusy reports whether err is an access guard rejection.
func IsBusy(err error) bool {
	return errors.Is(err, ErrResourceBusy)
}

// IsDeviceError reports whether err carries a device reply failure.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}

// classifyNetError maps a socket error to an ErrorType.
func classifyNetError(err error) ErrorType {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrorTypeTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrorTypeTimeout
	}
	var ae *net.AddrError
	if errors.As(err, &ae) {
		return ErrorTypePermanent
	}
	return ErrorTypeTransient
}

// Error constructors for consistent error creation

// NewTransportError wraps err for the given operation. Timeouts are
// normalised to ErrDeviceUnresponsive so callers see one distinct kind.
func NewTransportError(op, addr string, err error) *TransportError {
	typ := classifyNetError(err)
	if typ == ErrorTypeTimeout && !errors.Is(err, ErrDeviceUnresponsive) {
		err = fmt.Errorf("%w: %w", ErrDeviceUnresponsive, err)
	}
	return &TransportError{Op: op, Addr: addr, Err: err, Type: typ}
}

// NewTimeoutError creates a session timeout error.
func NewTimeoutError(op, addr string) *TransportError {
	return &TransportError{Op: op, Addr: addr, Err: ErrDeviceUnresponsive, Type: ErrorTypeTimeout}
}

// NewReplyTooLargeError creates an oversized reply error.
func NewReplyTooLargeError(addr string, limit int) *TransportError {
	return &TransportError{
		Op:   "read",
		Addr: addr,
		Err:  fmt.Errorf("%w (%d bytes)", ErrReplyTooLarge, limit),
		Type: ErrorTypePermanent,
	}
}

// HTTPStatus returns the status code the console answers with for err.
// Every bridge failure is a 400; success is 200.
func HTTPStatus(err error) int {
	if err == nil {
		return 200
	}
	return 400
}

// Message returns the text/plain body for err.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var de *DeviceError
	if errors.As(err, &de) {
		return de.Info
	}
	var be *BusyError
	if errors.As(err, &be) {
		return be.Error()
	}
	var le *LookupError
	if errors.As(err, &le) {
		return le.Error()
	}
	var te *TransportError
	if errors.As(err, &te) {
		if te.Type == ErrorTypeTimeout {
			return "device unresponsive: " + te.Op + " " + te.Addr
		}
		return te.Err.Error()
	}
	switch {
	case errors.Is(err, ErrReplyMismatch):
		return ErrReplyMismatch.Error()
	case errors.Is(err, ErrNoUsableReply),
		errors.Is(err, ErrUnexpectedResult),
		errors.Is(err, ErrMalformedReply):
		return "internal error: " + err.Error()
	default:
		return err.Error()
	}
}

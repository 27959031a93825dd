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
	"time"

	"github.com/ZaparooProject/go-scs/internal/frame"
)

// Outcome labels reported to an Observer.
const (
	OutcomeSucceeded   = "succeeded"
	OutcomeFailed      = "failed"
	OutcomeRejected    = "rejected"
	OutcomeMismatch    = "mismatch"
	OutcomeTimeout     = "timeout"
	OutcomeTransport   = "transport_error"
	OutcomeUnreachable = "unreachable"
	OutcomeNoReply     = "no_reply"
	OutcomeEncodeError = "encode_error"
)

// Observer receives per-command telemetry.
type Observer interface {
	CommandFinished(class Class, userCommand, outcome string, elapsed time.Duration)
	AccessRejected(class Class)
}

type nopObserver struct{}

func (nopObserver) CommandFinished(Class, string, string, time.Duration) {}
func (nopObserver) AccessRejected(Class)                                 {}

// Config holds bridge settings.
type Config struct {
	// Transports maps each resource class to the process that serves it.
	Transports map[Class]Transport
	// Observer is optional.
	Observer Observer
	// CommandIDPrefix defaults to DefaultCommandIDPrefix.
	CommandIDPrefix string
	// SessionTimeout defaults to DefaultSessionTimeout.
	SessionTimeout time.Duration
	// LeaseTTL defaults to DefaultLeaseTTL. Negative disables takeover.
	LeaseTTL time.Duration
}

// Bridge owns the correlator and access guard shared by all requests and
// runs commands through the encode, round trip, decode and settle pipeline.
type Bridge struct {
	transports     map[Class]Transport
	observer       Observer
	correlator     *Correlator
	guard          *AccessGuard
	sessionTimeout time.Duration
}

// NewBridge creates a bridge.
func NewBridge(cfg Config) *Bridge {
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = DefaultSessionTimeout
	}
	switch {
	case cfg.LeaseTTL == 0:
		cfg.LeaseTTL = 2 * cfg.SessionTimeout
	case cfg.LeaseTTL < 0:
		cfg.LeaseTTL = 0
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	transports := make(map[Class]Transport, len(cfg.Transports))
	for class, t := range cfg.Transports {
		transports[class] = t
	}
	return &Bridge{
		transports:     transports,
		observer:       cfg.Observer,
		correlator:     NewCorrelator(cfg.CommandIDPrefix),
		guard:          NewAccessGuard(cfg.LeaseTTL),
		sessionTimeout: cfg.SessionTimeout,
	}
}

// Correlator returns the bridge's id source.
func (b *Bridge) Correlator() *Correlator {
	return b.correlator
}

// Guard returns the bridge's access guard.
func (b *Bridge) Guard() *AccessGuard {
	return b.guard
}

// Acquire claims class for one operation. The caller must Release the lease
// on every path.
func (b *Bridge) Acquire(class Class) (*Lease, error) {
	lease, err := b.guard.TryAcquire(class)
	if err != nil {
		if IsBusy(err) {
			b.observer.AccessRejected(class)
		}
		return nil, err
	}
	return lease, nil
}

// Execute acquires class, sends cmd and releases the class.
func (b *Bridge) Execute(ctx context.Context, class Class, cmd *Command) error {
	lease, err := b.Acquire(class)
	if err != nil {
		return err
	}
	defer lease.Release()
	return b.Send(ctx, lease, cmd)
}

// Send stamps cmd with a fresh id and performs one device round trip under
// lease. The returned error is nil only when the device reported success.
func (b *Bridge) Send(ctx context.Context, lease *Lease, cmd *Command) (err error) {
	if lease == nil || cmd == nil {
		return fmt.Errorf("%w: nil lease or command", ErrInvalidParameter)
	}
	class := lease.Class()
	t, ok := b.transports[class]
	if !ok || t == nil {
		return fmt.Errorf("%w: no transport for %s", ErrInvalidParameter, class)
	}

	start := time.Now()
	defer func() {
		b.observer.CommandFinished(class, cmd.UserCommand, outcomeOf(err), time.Since(start))
	}()

	cmd.CommandID = b.correlator.NewCommandID()
	pending, err := b.correlator.Begin(cmd.CommandID)
	if err != nil {
		return err
	}
	defer pending.Done()

	payload, err := cmd.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	out, err := frame.Encode(string(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	Debugf("-> %s %s", t.Addr(), payload)

	ctx, cancel := context.WithTimeout(ctx, b.sessionTimeout)
	defer cancel()
	raw, err := t.RoundTrip(ctx, out)
	if err != nil {
		Logger().Warn().Err(err).
			Str("command_id", cmd.CommandID).
			Str("addr", t.Addr()).
			Msg("device round trip failed")
		return err
	}

	text := frame.Decode(raw)
	Debugf("<- %s %s", t.Addr(), text)

	reply, err := ParseReply(text)
	if err != nil {
		return err
	}
	if err := pending.Settle(reply); err != nil {
		Logger().Info().Err(err).
			Str("command_id", cmd.CommandID).
			Str("user_command", cmd.UserCommand).
			Msg("device command unsuccessful")
		return err
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSucceeded
	case IsDeviceError(err):
		var de *DeviceError
		if errors.As(err, &de) && de.Kind == KindRejected {
			return OutcomeRejected
		}
		return OutcomeFailed
	case errors.Is(err, ErrReplyMismatch):
		return OutcomeMismatch
	case IsTimeout(err):
		return OutcomeTimeout
	case errors.Is(err, ErrNoUsableReply), errors.Is(err, ErrMalformedReply), errors.Is(err, ErrUnexpectedResult):
		return OutcomeNoReply
	case errors.Is(err, ErrInvalidParameter):
		return OutcomeEncodeError
	case errors.Is(err, ErrTransportDial):
		return OutcomeUnreachable
	default:
		return OutcomeTransport
	}
}

// Status is a point-in-time view of bridge state.
type Status struct {
	Busy          map[string]bool `json:"busy"`
	LastCommandID string          `json:"lastCommandId"`
	Outstanding   int             `json:"outstanding"`
}

// Status reports guard state and outstanding commands.
func (b *Bridge) Status() Status {
	s := Status{
		Busy:          make(map[string]bool, numClasses),
		Outstanding:   b.correlator.Outstanding(),
		LastCommandID: b.correlator.CurrentCommandID(),
	}
	for _, c := range Classes() {
		s.Busy[c.String()] = b.guard.Held(c)
	}
	return s
}

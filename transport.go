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
	"sync"
	"time"

	"github.com/ZaparooProject/go-scs/internal/frame"
	"github.com/goccy/go-json"
)

// Session limits
const (
	// DefaultSessionTimeout bounds one connect/write/read round trip.
	DefaultSessionTimeout = 30 * time.Second
	// DefaultDialTimeout bounds connection establishment.
	DefaultDialTimeout = time.Second
	// DefaultMaxReplySize bounds the bytes accumulated before EOF.
	DefaultMaxReplySize = 1 << 20
)

// Transport carries one encoded command frame to the device-control process
// and returns everything it sent back before closing the connection.
type Transport interface {
	// RoundTrip sends frame and reads the reply until EOF
	RoundTrip(ctx context.Context, frame []byte) ([]byte, error)

	// Addr identifies the peer for logs and errors
	Addr() string

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportTCP is a fresh TCP connection per command.
	TransportTCP TransportType = "tcp"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// Responder builds a reply frame for a received command frame.
type Responder func(frame []byte) ([]byte, error)

// MockTransport provides a scripted Transport for testing.
type MockTransport struct {
	responder Responder
	err       error
	frames    [][]byte
	queue     [][]byte
	delay     time.Duration
	calls     int
	mu        sync.Mutex
}

// NewMockTransport creates a mock that answers every command with success.
func NewMockTransport() *MockTransport {
	return &MockTransport{responder: SucceedResponder}
}

// RoundTrip implements Transport.
func (m *MockTransport) RoundTrip(ctx context.Context, f []byte) ([]byte, error) {
	m.mu.Lock()
	m.calls++
	m.frames = append(m.frames, append([]byte(nil), f...))
	delay := m.delay
	injected := m.err
	var scripted []byte
	if len(m.queue) > 0 {
		scripted = m.queue[0]
		m.queue = m.queue[1:]
	}
	responder := m.responder
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, NewTransportError("read", m.Addr(), ctx.Err())
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, NewTransportError("dial", m.Addr(), err)
	}

	if injected != nil {
		return nil, injected
	}
	if scripted != nil {
		return scripted, nil
	}
	if responder == nil {
		return nil, nil
	}
	return responder(f)
}

// Addr implements Transport.
func (*MockTransport) Addr() string {
	return "mock"
}

// Type implements Transport.
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// SetResponder replaces the dynamic reply builder.
func (m *MockTransport) SetResponder(r Responder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = r
}

// QueueReply makes the next round trip return raw verbatim.
func (m *MockTransport) QueueReply(raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, raw)
}

// SetError makes every round trip fail with err until cleared with nil.
func (m *MockTransport) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDelay simulates a slow device.
func (m *MockTransport) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// CallCount returns the number of round trips attempted.
func (m *MockTransport) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Frames returns copies of every frame received.
func (m *MockTransport) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.frames))
	copy(out, m.frames)
	return out
}

// LastCommand returns the payload of the most recent frame.
func (m *MockTransport) LastCommand() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return ""
	}
	return frame.Decode(m.frames[len(m.frames)-1])
}

// SucceedResponder echoes the command id with result "succeeded".
func SucceedResponder(f []byte) ([]byte, error) {
	return ReplyFrame(f, ResultSucceeded, "")
}

// FailResponder returns a Responder that reports failure with info.
func FailResponder(info string) Responder {
	return func(f []byte) ([]byte, error) {
		return ReplyFrame(f, ResultFailed, info)
	}
}

// ReplyFrame builds an encoded reply to the command in f.
func ReplyFrame(f []byte, result, info string) ([]byte, error) {
	var cmd struct {
		UserCommand string `json:"userCommand"`
		CommandID   string `json:"commandId"`
	}
	payload := frame.Decode(f)
	if payload == frame.EmptyReply {
		return nil, errors.New("mock: not a command frame")
	}
	if err := json.Unmarshal([]byte(payload), &cmd); err != nil {
		return nil, err
	}
	body, err := json.Marshal(Reply{
		UserCommand: cmd.UserCommand,
		CommandID:   cmd.CommandID,
		Result:      result,
		ErrorInfo:   info,
	})
	if err != nil {
		return nil, err
	}
	return frame.Encode(string(body))
}

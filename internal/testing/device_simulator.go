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

// Package testing provides a TCP device-control simulator for exercising the
// bridge end to end.
//
// The DeviceSimulator listens on a loopback port and behaves like the
// device-control process: it reads one framed command per connection until
// the client half-closes, hands the decoded command to a Handler and writes
// back one framed reply before closing. Handlers can also stall, reset the
// connection or send arbitrary bytes.
package testing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ZaparooProject/go-scs/internal/frame"
	"github.com/ZaparooProject/go-scs/internal/syncutil"
	"github.com/goccy/go-json"
)

// Received is one command as seen by the simulator.
type Received struct {
	Fields      map[string]any
	UserCommand string
	CommandID   string
	Payload     string
	Raw         []byte
}

// Response tells the simulator how to answer a command.
type Response struct {
	// CommandID overrides the echoed id when non-empty.
	CommandID string
	Result    string
	ErrorInfo string
	// Raw is written verbatim instead of an encoded reply.
	Raw []byte
	// Stall holds the connection open without replying until Close.
	Stall bool
	// Reset aborts the connection without replying.
	Reset bool
}

// Handler decides the reply for a received command.
type Handler func(Received) Response

// Succeed answers every command with result "succeeded".
func Succeed(Received) Response {
	return Response{Result: "succeeded"}
}

// Fail answers with result "failed" and the given errorInfo.
func Fail(info string) Handler {
	return func(Received) Response {
		return Response{Result: "failed", ErrorInfo: info}
	}
}

// Reject answers like a device that could not parse the command.
func Reject(info string) Handler {
	return func(Received) Response {
		return Response{CommandID: "invalid", Result: "failed", ErrorInfo: info}
	}
}

// WrongID answers success for a different command id.
func WrongID(id string) Handler {
	return func(Received) Response {
		return Response{CommandID: id, Result: "succeeded"}
	}
}

// Stall never answers.
func Stall(Received) Response {
	return Response{Stall: true}
}

// Reset drops the connection.
func Reset(Received) Response {
	return Response{Reset: true}
}

// RawReply writes b verbatim.
func RawReply(b []byte) Handler {
	return func(Received) Response {
		return Response{Raw: b}
	}
}

// DeviceSimulator is a scripted device-control process.
type DeviceSimulator struct {
	ln       net.Listener
	handler  Handler
	jitter   *JitterConfig
	closed   chan struct{}
	received []Received
	wg       sync.WaitGroup
	mu       syncutil.Mutex
	once     sync.Once
}

// NewDeviceSimulator starts a simulator on a loopback port.
func NewDeviceSimulator(handler Handler) (*DeviceSimulator, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("simulator listen: %w", err)
	}
	if handler == nil {
		handler = Succeed
	}
	s := &DeviceSimulator{
		ln:      ln,
		handler: handler,
		closed:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the listening address.
func (s *DeviceSimulator) Addr() string {
	return s.ln.Addr().String()
}

// SetHandler replaces the reply policy for subsequent connections.
func (s *DeviceSimulator) SetHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// SetJitter makes replies arrive fragmented. Nil disables it.
func (s *DeviceSimulator) SetJitter(cfg *JitterConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jitter = cfg
}

// Received returns every command decoded so far.
func (s *DeviceSimulator) Received() []Received {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Received, len(s.received))
	copy(out, s.received)
	return out
}

// Count returns the number of commands received.
func (s *DeviceSimulator) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

// Close stops the listener, releases stalled connections and waits for
// handlers to finish.
func (s *DeviceSimulator) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		err = s.ln.Close()
		s.wg.Wait()
	})
	return err
}

func (s *DeviceSimulator) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *DeviceSimulator) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	raw, err := io.ReadAll(conn)
	if err != nil {
		return
	}

	rcv := Received{Raw: raw, Payload: frame.Decode(raw)}
	if rcv.Payload != frame.EmptyReply {
		if err := json.Unmarshal([]byte(rcv.Payload), &rcv.Fields); err == nil {
			rcv.UserCommand, _ = rcv.Fields["userCommand"].(string)
			rcv.CommandID, _ = rcv.Fields["commandId"].(string)
		}
	}

	s.mu.Lock()
	s.received = append(s.received, rcv)
	handler := s.handler
	jitter := s.jitter
	s.mu.Unlock()

	resp := handler(rcv)
	switch {
	case resp.Stall:
		<-s.closed
		return
	case resp.Reset:
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetLinger(0)
		}
		return
	}

	out := resp.Raw
	if out == nil {
		out, err = encodeReply(rcv, resp)
		if err != nil {
			return
		}
	}

	var w io.Writer = conn
	if jitter != nil {
		w = NewJitteryWriter(conn, *jitter)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, _ = w.Write(out)
}

func encodeReply(rcv Received, resp Response) ([]byte, error) {
	id := resp.CommandID
	if id == "" {
		id = rcv.CommandID
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	reply := map[string]string{
		"userCommand": rcv.UserCommand,
		"commandId":   id,
		"result":      resp.Result,
	}
	if resp.ErrorInfo != "" {
		reply["errorInfo"] = resp.ErrorInfo
	}
	if err := enc.Encode(reply); err != nil {
		return nil, err
	}
	payload := bytes.TrimRight(buf.Bytes(), "\n")
	if len(payload) == 0 {
		return nil, errors.New("empty reply")
	}
	return frame.Encode(string(payload))
}

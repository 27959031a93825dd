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

// Package tcp implements the bridge transport over TCP. Each command opens a
// fresh connection, writes one frame, half-closes the write side and reads
// the reply until the device closes the connection.
package tcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	scs "github.com/ZaparooProject/go-scs"
	"github.com/ZaparooProject/go-scs/internal/frame"
)

// Options configures a Transport. Zero values select the scs defaults.
type Options struct {
	DialTimeout    time.Duration
	SessionTimeout time.Duration
	MaxReplySize   int
}

// Transport implements scs.Transport with one TCP connection per command.
type Transport struct {
	dialer net.Dialer
	addr   string
	opts   Options
}

// New creates a transport for the device-control process at addr.
func New(addr string, opts Options) (*Transport, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, fmt.Errorf("invalid device address %q: %w", addr, err)
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = scs.DefaultDialTimeout
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = scs.DefaultSessionTimeout
	}
	if opts.MaxReplySize <= 0 {
		opts.MaxReplySize = scs.DefaultMaxReplySize
	}
	return &Transport{
		addr:   addr,
		opts:   opts,
		dialer: net.Dialer{Timeout: opts.DialTimeout},
	}, nil
}

// Addr implements scs.Transport.
func (t *Transport) Addr() string {
	return t.addr
}

// Type implements scs.Transport.
func (*Transport) Type() scs.TransportType {
	return scs.TransportTCP
}

// RoundTrip implements scs.Transport. The whole exchange is bounded by the
// earlier of ctx's deadline and SessionTimeout.
func (t *Transport) RoundTrip(ctx context.Context, f []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.opts.SessionTimeout)
	defer cancel()

	conn, err := t.dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, scs.NewTransportError("dial", t.addr, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, scs.NewTransportError("deadline", t.addr, err)
		}
	}

	// Unblock pending I/O if ctx is canceled before the deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	scs.Debugf("tcp %s: connected, sending %d bytes", t.addr, len(f))

	if err := writeAll(conn, f); err != nil {
		return nil, t.ioError(ctx, "write", err)
	}
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			return nil, t.ioError(ctx, "write", err)
		}
	}

	reply, err := t.readAll(conn)
	if err != nil {
		return nil, t.ioError(ctx, "read", err)
	}
	scs.Debugf("tcp %s: received %d bytes", t.addr, len(reply))
	return reply, nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}

// readAll accumulates the reply until EOF, refusing to grow past
// MaxReplySize. A frame header announcing a larger reply fails as soon as it
// arrives.
func (t *Transport) readAll(r io.Reader) ([]byte, error) {
	chunk := frame.GetChunk()
	defer frame.PutChunk(chunk)

	var reply bytes.Buffer
	headerChecked := false
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if reply.Len()+n > t.opts.MaxReplySize {
				return nil, scs.NewReplyTooLargeError(t.addr, t.opts.MaxReplySize)
			}
			reply.Write(chunk[:n])
		}
		if !headerChecked {
			if announced := frame.PayloadLength(reply.Bytes()); announced >= 0 {
				headerChecked = true
				if hasTag(reply.Bytes()) && announced+frame.Overhead > t.opts.MaxReplySize {
					return nil, scs.NewReplyTooLargeError(t.addr, t.opts.MaxReplySize)
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return reply.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func hasTag(b []byte) bool {
	return len(b) >= frame.TagWidth && b[0] == frame.TagHigh && b[1] == frame.TagLow
}

func (t *Transport) ioError(ctx context.Context, op string, err error) error {
	var te *scs.TransportError
	if errors.As(err, &te) {
		return te
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return scs.NewTimeoutError(op, t.addr)
		}
		return scs.NewTransportError(op, t.addr, ctxErr)
	}
	return scs.NewTransportError(op, t.addr, err)
}

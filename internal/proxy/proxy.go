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

// Package proxy forwards auxiliary POST requests verbatim to the sibling
// service and relays its reply. Consecutive transport failures open a
// circuit breaker so a dead sibling fails fast.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/ZaparooProject/go-scs/internal/logging"
)

// DefaultOpenTimeout is how long the breaker stays open before probing.
const DefaultOpenTimeout = 30 * time.Second

// DefaultMaxBody bounds request and reply bodies.
const DefaultMaxBody = 8 << 20

// Recorder receives forwarding telemetry. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordProxy(path, result string)
	SetBreakerState(state int)
}

// Options configures a Forwarder.
type Options struct {
	Client   *http.Client
	Recorder Recorder
	// Timeout bounds one forwarded request. Default 30s.
	Timeout time.Duration
	// Failures is the consecutive transport failure count that opens the
	// breaker. Default 5.
	Failures uint32
	// OpenTimeout defaults to DefaultOpenTimeout.
	OpenTimeout time.Duration
	// MaxBody defaults to DefaultMaxBody. Larger bodies are refused, never
	// truncated.
	MaxBody int64
}

type upstreamReply struct {
	header http.Header
	body   []byte
	status int
}

// Forwarder relays requests to one target.
type Forwarder struct {
	target   *url.URL
	client   *http.Client
	recorder Recorder
	breaker  *gobreaker.CircuitBreaker[*upstreamReply]
	timeout  time.Duration
	maxBody  int64
}

// New creates a forwarder for target, e.g. http://127.0.0.1:60002.
func New(target string, opts Options) (*Forwarder, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("proxy target: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy target %q: missing scheme or host", target)
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Failures == 0 {
		opts.Failures = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = DefaultOpenTimeout
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}
	f := &Forwarder{
		target:   u,
		client:   opts.Client,
		recorder: opts.Recorder,
		timeout:  opts.Timeout,
		maxBody:  opts.MaxBody,
	}
	failures := opts.Failures
	f.breaker = gobreaker.NewCircuitBreaker[*upstreamReply](gobreaker.Settings{
		Name:        "sibling-proxy",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logging.Warn().Str("from", from.String()).Str("to", to.String()).Msg("proxy circuit breaker state change")
			if f.recorder != nil {
				f.recorder.SetBreakerState(stateValue(to))
			}
		},
	})
	return f, nil
}

// State reports the breaker state.
func (f *Forwarder) State() gobreaker.State {
	return f.breaker.State()
}

// ServeHTTP forwards r to the same path on the target. Any failure is
// answered with 400 text/plain "proxy error: ...".
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, f.maxBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			err = fmt.Errorf("request body exceeds %d bytes", mbe.Limit)
		} else {
			err = fmt.Errorf("read request: %w", err)
		}
		f.fail(w, r, "error", err)
		return
	}
	logging.Ctx(r.Context()).Debug().Str("path", r.URL.Path).Bytes("body", body).Msg("forwarding")

	reply, err := f.breaker.Execute(func() (*upstreamReply, error) {
		return f.forward(r.Context(), r.URL.RequestURI(), body)
	})
	if err != nil {
		result := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = "open"
		}
		f.fail(w, r, result, err)
		return
	}

	if ct := reply.header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(reply.status)
	_, _ = w.Write(reply.body)
	f.record(r.URL.Path, "ok")
}

func (f *Forwarder) forward(ctx context.Context, uri string, body []byte) (*upstreamReply, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	target := strings.TrimSuffix(f.target.String(), "/") + uri
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forward: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if int64(len(data)) > f.maxBody {
		return nil, fmt.Errorf("reply body exceeds %d bytes", f.maxBody)
	}
	return &upstreamReply{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

func (f *Forwarder) fail(w http.ResponseWriter, r *http.Request, result string, err error) {
	logging.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("proxy request failed")
	f.record(r.URL.Path, result)
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = io.WriteString(w, "proxy error: "+err.Error())
}

func (f *Forwarder) record(path, result string) {
	if f.recorder != nil {
		f.recorder.RecordProxy(path, result)
	}
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

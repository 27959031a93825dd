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

package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	results map[string]int
	states  []int
	mu      sync.Mutex
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{results: make(map[string]int)}
}

func (r *fakeRecorder) RecordProxy(path, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[path+" "+result]++
}

func (r *fakeRecorder) SetBreakerState(state int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *fakeRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[key]
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestNewRejectsBadTarget(t *testing.T) {
	t.Parallel()

	_, err := New("127.0.0.1:60002", Options{})
	require.Error(t, err)
	_, err = New("://", Options{})
	require.Error(t, err)
}

func TestForwardsVerbatim(t *testing.T) {
	t.Parallel()

	var gotPath, gotBody, gotType string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotPath, gotBody, gotType = r.URL.Path, string(b), r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"stepper":0,"position":12}`)
	}))
	defer upstream.Close()

	rec := newFakeRecorder()
	f, err := New(upstream.URL, Options{Recorder: rec})
	require.NoError(t, err)

	resp := post(f, "/stepperMove", `{"index":0,"steps":12}`)
	assert.Equal(t, http.StatusAccepted, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"stepper":0,"position":12}`, resp.Body.String())

	assert.Equal(t, "/stepperMove", gotPath)
	assert.Equal(t, `{"index":0,"steps":12}`, gotBody)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, 1, rec.count("/stepperMove ok"))
}

func TestOversizedBodyRefusedNotTruncated(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	rec := newFakeRecorder()
	f, err := New(upstream.URL, Options{Recorder: rec, MaxBody: 16})
	require.NoError(t, err)

	resp := post(f, "/stepperMove", `{"index":0,"steps":1200000}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "text/plain", resp.Header().Get("Content-Type"))
	assert.Equal(t, "proxy error: request body exceeds 16 bytes", resp.Body.String())
	assert.Zero(t, calls.Load(), "nothing forwarded")
	assert.Equal(t, 1, rec.count("/stepperMove error"))

	// Exactly at the limit is forwarded.
	resp = post(f, "/stepperMove", `{"i":0,"s":1234}`)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, int32(1), calls.Load())
}

func TestOversizedReplyIsAnError(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 64))
	}))
	defer upstream.Close()

	f, err := New(upstream.URL, Options{MaxBody: 32})
	require.NoError(t, err)

	resp := post(f, "/query", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "reply body exceeds 32 bytes")
}

func TestRelaysUpstreamErrorStatus(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "stepper busy")
	}))
	defer upstream.Close()

	f, err := New(upstream.URL, Options{Failures: 1})
	require.NoError(t, err)

	for range 3 {
		resp := post(f, "/query", "{}")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "stepper busy", resp.Body.String())
	}
	assert.Equal(t, gobreaker.StateClosed, f.State())
}

func TestUnreachableTarget(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.NotFoundHandler())
	target := upstream.URL
	upstream.Close()

	f, err := New(target, Options{Timeout: time.Second})
	require.NoError(t, err)

	resp := post(f, "/power", `{"on":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "text/plain", resp.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(resp.Body.String(), "proxy error: "), resp.Body.String())
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		hj, ok := w.(http.Hijacker)
		if !ok {
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			_ = conn.Close()
		}
	}))
	defer upstream.Close()

	rec := newFakeRecorder()
	f, err := New(upstream.URL, Options{Failures: 2, OpenTimeout: time.Hour, Recorder: rec})
	require.NoError(t, err)

	post(f, "/bdc", "{}")
	post(f, "/bdc", "{}")
	require.Equal(t, gobreaker.StateOpen, f.State())
	before := calls.Load()

	resp := post(f, "/bdc", "{}")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "proxy error: ")
	assert.Equal(t, before, calls.Load())
	assert.Equal(t, 1, rec.count("/bdc open"))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Contains(t, rec.states, 2)
}

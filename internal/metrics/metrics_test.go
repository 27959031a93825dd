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

package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scs "github.com/ZaparooProject/go-scs"
)

func TestCommandFinished(t *testing.T) {
	t.Parallel()

	m := New()
	m.CommandFinished(scs.ClassCard, scs.UserCmdInsertCard, scs.OutcomeSucceeded, 20*time.Millisecond)
	m.CommandFinished(scs.ClassCard, scs.UserCmdInsertCard, scs.OutcomeSucceeded, 30*time.Millisecond)
	m.CommandFinished(scs.ClassKey, scs.UserCmdPressKey, scs.OutcomeTimeout, time.Second)

	assert.InDelta(t, 2, testutil.ToFloat64(
		m.CommandsTotal.WithLabelValues("card", scs.UserCmdInsertCard, scs.OutcomeSucceeded)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		m.CommandsTotal.WithLabelValues("key", scs.UserCmdPressKey, scs.OutcomeTimeout)), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.SessionDuration))
}

func TestAccessRejected(t *testing.T) {
	t.Parallel()

	m := New()
	m.AccessRejected(scs.ClassKey)
	m.AccessRejected(scs.ClassKey)

	assert.InDelta(t, 2, testutil.ToFloat64(m.BusyRejections.WithLabelValues("key")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.BusyRejections.WithLabelValues("card")), 0)
}

func TestHTTPAndProxy(t *testing.T) {
	t.Parallel()

	m := New()
	m.RecordHTTPRequest(http.MethodPost, "/cardAccess", 200, 5*time.Millisecond)
	m.RecordHTTPRequest(http.MethodPost, "/cardAccess", 400, time.Millisecond)
	m.RecordProxy("/power", "ok")
	m.SetBreakerState(2)

	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/cardAccess", "400")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ProxyRequestsTotal.WithLabelValues("/power", "ok")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.BreakerState), 0)
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.AccessRejected(scs.ClassCard)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `scs_busy_rejections_total{class="card"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestObserverThroughBridge(t *testing.T) {
	t.Parallel()

	m := New()
	mock := scs.NewMockTransport()
	mock.SetResponder(scs.SucceedResponder)
	b := scs.NewBridge(scs.Config{
		Transports: map[scs.Class]scs.Transport{scs.ClassCard: mock},
		Observer:   m,
	})

	require.NoError(t, b.Execute(context.Background(), scs.ClassCard, scs.NewCommand(scs.UserCmdBackToHome)))

	assert.InDelta(t, 1, testutil.ToFloat64(
		m.CommandsTotal.WithLabelValues("card", scs.UserCmdBackToHome, scs.OutcomeSucceeded)), 0)
}

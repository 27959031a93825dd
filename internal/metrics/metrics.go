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

// Package metrics exposes Prometheus instrumentation for the console.
//
// Metrics implements scs.Observer so a Bridge reports every command it
// finishes and every busy rejection. HTTP and proxy helpers are called
// from internal/api and internal/proxy.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	scs "github.com/ZaparooProject/go-scs"
)

const namespace = "scs"

// Metrics holds every collector, registered on one registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	CommandsTotal      *prometheus.CounterVec
	SessionDuration    *prometheus.HistogramVec
	BusyRejections     *prometheus.CounterVec
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestSeconds *prometheus.HistogramVec
	ProxyRequestsTotal *prometheus.CounterVec
	BreakerState       prometheus.Gauge
}

// New registers the collectors on a fresh registry, which also carries
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWith(reg, reg)
}

// NewWith registers the collectors on reg and serves them from g.
func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: g,
		CommandsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_commands_total",
			Help:      "Device commands by resource class, user command and outcome.",
		}, []string{"class", "command", "outcome"}),
		SessionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transport_session_duration_seconds",
			Help:      "Wall time of one device round trip.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"class"}),
		BusyRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "busy_rejections_total",
			Help:      "Requests rejected because the resource class was busy.",
		}, []string{"class"}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ProxyRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_requests_total",
			Help:      "Requests forwarded to the sibling service by path and result.",
		}, []string{"path", "result"}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "proxy_breaker_state",
			Help:      "Proxy circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
	}
}

// CommandFinished implements scs.Observer.
func (m *Metrics) CommandFinished(class scs.Class, userCommand, outcome string, elapsed time.Duration) {
	m.CommandsTotal.WithLabelValues(class.String(), userCommand, outcome).Inc()
	m.SessionDuration.WithLabelValues(class.String()).Observe(elapsed.Seconds())
}

// AccessRejected implements scs.Observer.
func (m *Metrics) AccessRejected(class scs.Class) {
	m.BusyRejections.WithLabelValues(class.String()).Inc()
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordProxy records one forwarded request; result is ok, error or open.
func (m *Metrics) RecordProxy(path, result string) {
	m.ProxyRequestsTotal.WithLabelValues(path, result).Inc()
}

// SetBreakerState records the breaker state as 0 closed, 1 half-open, 2 open.
func (m *Metrics) SetBreakerState(state int) {
	m.BreakerState.Set(float64(state))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

var _ scs.Observer = (*Metrics)(nil)

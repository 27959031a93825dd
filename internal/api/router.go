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

// Package api is the console's HTTP surface. Device endpoints answer
// text/plain: 200 with an empty body on success, 400 with a readable
// message otherwise. Unknown URLs are also answered with 400.
package api

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	scs "github.com/ZaparooProject/go-scs"
	"github.com/ZaparooProject/go-scs/dispatch"
	"github.com/ZaparooProject/go-scs/mapping"
)

// Devices runs console operations against the device. *dispatch.Dispatcher
// implements it.
type Devices interface {
	CardAccess(ctx context.Context, req dispatch.CardAccessRequest) error
	AdjustStepperW(ctx context.Context, req dispatch.AdjustStepperWRequest) error
	TouchScreen(ctx context.Context, req dispatch.TouchScreenRequest) error
	PressKey(ctx context.Context, req dispatch.KeyRequest) error
}

// Mappings reads and writes mapping documents. *mapping.Store implements it.
type Mappings interface {
	Raw(kind mapping.Kind) ([]byte, error)
	Save(kind mapping.Kind, data []byte) error
}

// StatusSource reports bridge state. *scs.Bridge implements it.
type StatusSource interface {
	Status() scs.Status
}

// RequestRecorder receives per-request telemetry. *metrics.Metrics
// implements it.
type RequestRecorder interface {
	RecordHTTPRequest(method, route string, status int, elapsed time.Duration)
}

// Options wires the router's collaborators. Devices and Mappings are
// required; everything else is optional.
type Options struct {
	Devices  Devices
	Mappings Mappings
	Status   StatusSource
	// Proxy serves ProxyPaths when set.
	Proxy      http.Handler
	ProxyPaths []string
	Recorder   RequestRecorder
	// Metrics serves GET /metrics when set.
	Metrics   http.Handler
	StaticDir string
	// RateLimitRequests per RateLimitWindow per client IP on device
	// endpoints. Zero disables limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the console router.
func NewRouter(opts Options) http.Handler {
	h := &handler{devices: opts.Devices, mappings: opts.Mappings, status: opts.Status}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(opts.Recorder))
	r.Use(recoverer)

	r.NotFound(unsupportedURL)
	r.MethodNotAllowed(unsupportedURL)

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(opts.RateLimitRequests, opts.RateLimitWindow))
		r.Post("/cardAccess", h.cardAccess)
		r.Post("/adjustStepperW", h.adjustStepperW)
		r.Post("/touchScreen", h.touchScreen)
		r.Post("/key", h.key)
	})

	r.Post("/getCardSlotMappings", h.getMappings(mapping.KindCardSlot))
	r.Post("/saveCardSlotMappings", h.saveMappings(mapping.KindCardSlot))
	r.Post("/getTouchScreenMappings", h.getMappings(mapping.KindTouchScreen))
	r.Post("/saveTouchScreenMappings", h.saveMappings(mapping.KindTouchScreen))

	if opts.Proxy != nil {
		for _, p := range opts.ProxyPaths {
			r.Post(p, opts.Proxy.ServeHTTP)
		}
	}

	r.Get("/healthz", h.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	if opts.StaticDir != "" {
		files := http.FileServer(http.Dir(opts.StaticDir))
		defaultPage := filepath.Join(opts.StaticDir, "default.html")
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, defaultPage)
		})
		r.Handle("/scripts/*", files)
		r.Handle("/css/*", files)
		r.Handle("/videos/*", files)
	}

	return r
}

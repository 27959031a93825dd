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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	scs "github.com/ZaparooProject/go-scs"
	"github.com/ZaparooProject/go-scs/dispatch"
	"github.com/ZaparooProject/go-scs/internal/api"
	"github.com/ZaparooProject/go-scs/internal/config"
	"github.com/ZaparooProject/go-scs/internal/logging"
	"github.com/ZaparooProject/go-scs/internal/metrics"
	"github.com/ZaparooProject/go-scs/internal/proxy"
	"github.com/ZaparooProject/go-scs/internal/service"
	"github.com/ZaparooProject/go-scs/internal/syncutil"
	"github.com/ZaparooProject/go-scs/mapping"
	"github.com/ZaparooProject/go-scs/transport/tcp"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var listen, staticDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web console and bridge its requests to the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if staticDir != "" {
				cfg.Server.StaticDir = staticDir
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides server.listen)")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "console assets directory (overrides server.static_dir)")
	return cmd
}

// app is the wired console.
type app struct {
	bridge  *scs.Bridge
	store   *mapping.Store
	metrics *metrics.Metrics
	router  http.Handler
}

func newBridge(cfg *config.Config, observer scs.Observer) (*scs.Bridge, error) {
	topts := tcp.Options{
		DialTimeout:    cfg.Device.DialTimeout,
		SessionTimeout: cfg.Device.SessionTimeout,
		MaxReplySize:   cfg.Device.MaxReplySize,
	}
	card, err := tcp.New(cfg.Device.CardAddr, topts)
	if err != nil {
		return nil, err
	}
	key, err := tcp.New(cfg.Device.KeyAddr, topts)
	if err != nil {
		return nil, err
	}
	return scs.NewBridge(scs.Config{
		Transports:      map[scs.Class]scs.Transport{scs.ClassCard: card, scs.ClassKey: key},
		Observer:        observer,
		CommandIDPrefix: cfg.Device.CommandIDPrefix,
		SessionTimeout:  cfg.Device.SessionTimeout,
		LeaseTTL:        cfg.Device.LeaseTTL,
	}), nil
}

func buildApp(cfg *config.Config) (*app, error) {
	a := &app{store: mapping.NewStore(cfg.Mappings.CardSlotFile, cfg.Mappings.TouchScreenFile)}

	var observer scs.Observer
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
		observer = a.metrics
	}
	bridge, err := newBridge(cfg, observer)
	if err != nil {
		return nil, err
	}
	a.bridge = bridge

	devices := dispatch.New(bridge, a.store,
		dispatch.WithDownPeriod(cfg.Device.DownPeriod),
		dispatch.WithUpPeriod(cfg.Device.UpPeriod))
	ro := api.Options{
		Devices:           devices,
		Mappings:          a.store,
		Status:            bridge,
		StaticDir:         cfg.Server.StaticDir,
		RateLimitRequests: cfg.RateLimit.Requests,
		RateLimitWindow:   cfg.RateLimit.Window,
	}
	if a.metrics != nil {
		ro.Recorder = a.metrics
		ro.Metrics = a.metrics.Handler()
	}
	if cfg.Proxy.Target != "" {
		po := proxy.Options{Timeout: cfg.Proxy.Timeout, Failures: cfg.Proxy.BreakerFailures}
		if a.metrics != nil {
			po.Recorder = a.metrics
		}
		fwd, err := proxy.New(cfg.Proxy.Target, po)
		if err != nil {
			return nil, err
		}
		ro.Proxy = fwd
		ro.ProxyPaths = cfg.Proxy.Paths
	}
	a.router = api.NewRouter(ro)
	return a, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	syncutil.Configure(2 * cfg.Device.SessionTimeout)

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}

	sup := service.NewSupervisor(logging.NewSlogLogger("supervisor"), service.SupervisorConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	sup.Add(service.NewHTTPService(srv, cfg.Server.ShutdownTimeout))
	if cfg.Mappings.Watch {
		sup.Add(service.NewWatchService("mapping-watcher", a.store))
	}

	logging.Info().
		Str("listen", cfg.Server.Listen).
		Str("card_addr", cfg.Device.CardAddr).
		Str("key_addr", cfg.Device.KeyAddr).
		Bool("deadlock_detection", syncutil.DeadlockDetection).
		Msg("scsconsole starting")

	err = sup.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	logging.Info().Msg("scsconsole stopped")
	return nil
}

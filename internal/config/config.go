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

package config

import "time"

// Config is the full scsconsole configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Device    DeviceConfig    `koanf:"device"`
	Mappings  MappingsConfig  `koanf:"mappings"`
	Proxy     ProxyConfig     `koanf:"proxy"`
	Logging   LoggingConfig   `koanf:"logging"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
}

// ServerConfig controls the HTTP front end.
type ServerConfig struct {
	Listen          string        `koanf:"listen"`
	StaticDir       string        `koanf:"static_dir"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DeviceConfig addresses the device-control process.
type DeviceConfig struct {
	CardAddr        string        `koanf:"card_addr"`
	KeyAddr         string        `koanf:"key_addr"`
	CommandIDPrefix string        `koanf:"command_id_prefix"`
	DialTimeout     time.Duration `koanf:"dial_timeout"`
	SessionTimeout  time.Duration `koanf:"session_timeout"`
	// LeaseTTL of zero means twice SessionTimeout; negative disables takeover.
	LeaseTTL     time.Duration `koanf:"lease_ttl"`
	MaxReplySize int           `koanf:"max_reply_size"`
	// DownPeriod and UpPeriod (milliseconds) fill press timings a request omits.
	DownPeriod int `koanf:"down_period"`
	UpPeriod   int `koanf:"up_period"`
}

// MappingsConfig locates the mapping documents.
type MappingsConfig struct {
	CardSlotFile    string `koanf:"card_slot_file"`
	TouchScreenFile string `koanf:"touch_screen_file"`
	Watch           bool   `koanf:"watch"`
}

// ProxyConfig controls forwarding to the sibling service.
type ProxyConfig struct {
	Target          string        `koanf:"target"`
	Paths           []string      `koanf:"paths"`
	Timeout         time.Duration `koanf:"timeout"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// Dir enables a per-session log file when set.
	Dir    string `koanf:"dir"`
	Caller bool   `koanf:"caller"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// RateLimitConfig limits device endpoints per client IP. Requests <= 0 disables it.
type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

// DefaultProxyPaths are forwarded verbatim to the sibling service.
var DefaultProxyPaths = []string{
	"/stepperMove",
	"/stepperConfigMovement",
	"/stepperConfigHome",
	"/query",
	"/bdc",
	"/saveCoordinate",
	"/toCoordinate",
	"/power",
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          "127.0.0.1:8080",
			StaticDir:       "www",
			ShutdownTimeout: 10 * time.Second,
		},
		Device: DeviceConfig{
			CardAddr:        "127.0.0.1:60001",
			KeyAddr:         "127.0.0.1:60001",
			CommandIDPrefix: "unique command id ",
			DialTimeout:     time.Second,
			SessionTimeout:  30 * time.Second,
			MaxReplySize:    1 << 20,
			DownPeriod:      1000,
			UpPeriod:        1000,
		},
		Mappings: MappingsConfig{
			CardSlotFile:    "data/cardSlotMapping.json",
			TouchScreenFile: "data/touchScreenMapping.json",
			Watch:           true,
		},
		Proxy: ProxyConfig{
			Target:          "http://127.0.0.1:60002",
			Paths:           append([]string(nil), DefaultProxyPaths...),
			Timeout:         30 * time.Second,
			BreakerFailures: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{Enabled: true},
		RateLimit: RateLimitConfig{
			Requests: 60,
			Window:   time.Minute,
		},
	}
}

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

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scsconsole.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:60001", cfg.Device.CardAddr)
	assert.Equal(t, 30*time.Second, cfg.Device.SessionTimeout)
	assert.Equal(t, "http://127.0.0.1:60002", cfg.Proxy.Target)
	assert.Equal(t, DefaultProxyPaths, cfg.Proxy.Paths)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(PathEnvVar, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	path := writeYAML(t, `
server:
  listen: 0.0.0.0:9000
device:
  card_addr: 10.0.0.5:7000
  session_timeout: 5s
  lease_ttl: -1s
  down_period: 600
proxy:
  paths: [/power, /query]
logging:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)
	assert.Equal(t, "10.0.0.5:7000", cfg.Device.CardAddr)
	assert.Equal(t, "127.0.0.1:60001", cfg.Device.KeyAddr)
	assert.Equal(t, 5*time.Second, cfg.Device.SessionTimeout)
	assert.Equal(t, -time.Second, cfg.Device.LeaseTTL)
	assert.Equal(t, 600, cfg.Device.DownPeriod)
	assert.Equal(t, 1000, cfg.Device.UpPeriod)
	assert.Equal(t, []string{"/power", "/query"}, cfg.Proxy.Paths)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadPathFromEnv(t *testing.T) {
	path := writeYAML(t, "device:\n  key_addr: 10.0.0.9:7001\n")
	t.Setenv(PathEnvVar, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9:7001", cfg.Device.KeyAddr)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	path := writeYAML(t, "device:\n  card_addr: 10.0.0.5:7000\n")
	t.Setenv("SCS_DEVICE_CARD_ADDR", "10.0.0.6:7000")
	t.Setenv("SCS_DEVICE_SESSION_TIMEOUT", "2s")
	t.Setenv("SCS_PROXY_PATHS", "/a, /b,,")
	t.Setenv("SCS_PROXY_BREAKER_FAILURES", "9")
	t.Setenv("SCS_MAPPINGS_WATCH", "false")
	t.Setenv("SCS_NOT_A_KEY", "ignored")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.6:7000", cfg.Device.CardAddr)
	assert.Equal(t, 2*time.Second, cfg.Device.SessionTimeout)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Proxy.Paths)
	assert.Equal(t, uint32(9), cfg.Proxy.BreakerFailures)
	assert.False(t, cfg.Mappings.Watch)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv(PathEnvVar, "")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	path := writeYAML(t, "device:\n  card_addr: not-an-address\n")

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "device.card_addr")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"listen", func(c *Config) { c.Server.Listen = "8080" }, "server.listen"},
		{"shutdown", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "server.shutdown_timeout"},
		{"key addr", func(c *Config) { c.Device.KeyAddr = "" }, "device.key_addr"},
		{"dial", func(c *Config) { c.Device.DialTimeout = 0 }, "device.dial_timeout"},
		{"session", func(c *Config) { c.Device.SessionTimeout = -time.Second }, "device.session_timeout"},
		{"reply size", func(c *Config) { c.Device.MaxReplySize = 0 }, "device.max_reply_size"},
		{"prefix", func(c *Config) { c.Device.CommandIDPrefix = "" }, "device.command_id_prefix"},
		{"down period", func(c *Config) { c.Device.DownPeriod = -1 }, "device.down_period"},
		{"up period", func(c *Config) { c.Device.UpPeriod = -5 }, "device.up_period"},
		{"card file", func(c *Config) { c.Mappings.CardSlotFile = "" }, "mappings.card_slot_file"},
		{"touch file", func(c *Config) { c.Mappings.TouchScreenFile = "" }, "mappings.touch_screen_file"},
		{"proxy scheme", func(c *Config) { c.Proxy.Target = "ftp://x" }, "proxy.target"},
		{"proxy path", func(c *Config) { c.Proxy.Paths = []string{"power"} }, "proxy.paths"},
		{"proxy timeout", func(c *Config) { c.Proxy.Timeout = 0 }, "proxy.timeout"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"window", func(c *Config) { c.RateLimit.Window = 0 }, "ratelimit.window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateAllowsDisabledFeatures(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Proxy.Target = ""
	cfg.Proxy.Timeout = 0
	cfg.RateLimit.Requests = 0
	cfg.RateLimit.Window = 0
	assert.NoError(t, cfg.Validate())
}

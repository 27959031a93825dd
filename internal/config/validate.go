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
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks addresses, durations and enumerations.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDevice(); err != nil {
		return err
	}
	if err := c.validateMappings(); err != nil {
		return err
	}
	if err := c.validateProxy(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return invalid("ratelimit.window must be positive when ratelimit.requests is set")
	}
	return nil
}

func (c *Config) validateServer() error {
	if err := checkHostPort("server.listen", c.Server.Listen); err != nil {
		return err
	}
	if c.Server.ShutdownTimeout <= 0 {
		return invalid("server.shutdown_timeout must be positive")
	}
	return nil
}

func (c *Config) validateDevice() error {
	if err := checkHostPort("device.card_addr", c.Device.CardAddr); err != nil {
		return err
	}
	if err := checkHostPort("device.key_addr", c.Device.KeyAddr); err != nil {
		return err
	}
	if err := checkPositive("device.dial_timeout", c.Device.DialTimeout); err != nil {
		return err
	}
	if err := checkPositive("device.session_timeout", c.Device.SessionTimeout); err != nil {
		return err
	}
	if c.Device.MaxReplySize <= 0 {
		return invalid("device.max_reply_size must be positive")
	}
	if c.Device.CommandIDPrefix == "" {
		return invalid("device.command_id_prefix is required")
	}
	if c.Device.DownPeriod < 0 {
		return invalid("device.down_period must not be negative")
	}
	if c.Device.UpPeriod < 0 {
		return invalid("device.up_period must not be negative")
	}
	return nil
}

func (c *Config) validateMappings() error {
	if c.Mappings.CardSlotFile == "" {
		return invalid("mappings.card_slot_file is required")
	}
	if c.Mappings.TouchScreenFile == "" {
		return invalid("mappings.touch_screen_file is required")
	}
	return nil
}

func (c *Config) validateProxy() error {
	if c.Proxy.Target == "" {
		return nil
	}
	u, err := url.Parse(c.Proxy.Target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(fmt.Sprintf("proxy.target must be an http(s) URL, got %q", c.Proxy.Target))
	}
	for _, p := range c.Proxy.Paths {
		if !strings.HasPrefix(p, "/") {
			return invalid(fmt.Sprintf("proxy.paths entry %q must start with /", p))
		}
	}
	return checkPositive("proxy.timeout", c.Proxy.Timeout)
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "disabled", "off":
	default:
		return invalid(fmt.Sprintf("logging.level %q is not a level", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return invalid(fmt.Sprintf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	return nil
}

func checkHostPort(key, addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return invalid(fmt.Sprintf("%s %q: %v", key, addr, err))
	}
	return nil
}

func checkPositive(key string, d time.Duration) error {
	if d <= 0 {
		return invalid(key + " must be positive")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalid, msg)
}

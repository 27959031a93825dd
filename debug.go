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

package scs

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	logMu sync.RWMutex
	// logger receives everything the bridge reports. Applications replace it
	// with SetLogger; until then it is silent unless SCS_DEBUG is set.
	logger = defaultLogger()
)

func defaultLogger() zerolog.Logger {
	if os.Getenv("SCS_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.Nop()
}

// SetLogger routes library logging to l.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func SetLogger(l zerolog.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = l.With().Str("component", "bridge").Logger()
}

// Logger returns the library logger.
func Logger() *zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	l := logger
	return &l
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...any) {
	Logger().Debug().Msgf(format, args...)
}


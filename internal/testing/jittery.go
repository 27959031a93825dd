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

package testing

import (
	"io"
	"math/rand/v2"
	"time"
)

// JitterConfig shapes how the simulator delivers reply bytes.
type JitterConfig struct {
	MaxLatencyMs     int
	FragmentMinBytes int
	Seed             uint64
}

// DefaultJitterConfig splits replies into small random pieces with up to
// 5 ms between them.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		MaxLatencyMs:     5,
		FragmentMinBytes: 1,
	}
}

// JitteryWriter delivers each Write as several smaller writes with random
// pauses, so readers see a reply arrive in fragments the way a loaded device
// process sends it.
type JitteryWriter struct {
	backend io.Writer
	rng     *rand.Rand
	config  JitterConfig
}

// NewJitteryWriter wraps backend.
func NewJitteryWriter(backend io.Writer, config JitterConfig) *JitteryWriter {
	var rng *rand.Rand
	if config.Seed != 0 {
		rng = rand.New(rand.NewPCG(config.Seed, config.Seed^0xDEADBEEF)) //nolint:gosec // Test code, not crypto
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // Test code, not crypto
	}
	if config.FragmentMinBytes < 1 {
		config.FragmentMinBytes = 1
	}
	return &JitteryWriter{backend: backend, config: config, rng: rng}
}

// Write implements io.Writer.
func (j *JitteryWriter) Write(data []byte) (int, error) {
	written := 0
	for written < len(data) {
		if j.config.MaxLatencyMs > 0 {
			if d := time.Duration(j.rng.IntN(j.config.MaxLatencyMs+1)) * time.Millisecond; d > 0 {
				time.Sleep(d)
			}
		}

		size := len(data) - written
		if size > j.config.FragmentMinBytes {
			size = j.config.FragmentMinBytes + j.rng.IntN(size-j.config.FragmentMinBytes+1)
		}
		n, err := j.backend.Write(data[written : written+size])
		written += n
		if err != nil {
			return written, err //nolint:wrapcheck // Pass-through wrapper
		}
	}
	return written, nil
}

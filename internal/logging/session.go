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

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// SessionLog is a per-run log file named scsconsole_YYYYMMDD_HHMMSS.log.
type SessionLog struct {
	file *os.File
	path string
}

// OpenSessionLog creates a new session log in dir and writes the header.
func OpenSessionLog(dir string) (*SessionLog, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	name := fmt.Sprintf("scsconsole_%s.log", time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640) //nolint:gosec // name is generated
	if err != nil {
		return nil, fmt.Errorf("failed to create session log: %w", err)
	}
	writeSessionHeader(f)
	return &SessionLog{file: f, path: path}, nil
}

// Path returns the file path.
func (s *SessionLog) Path() string {
	return s.path
}

// Write implements io.Writer.
func (s *SessionLog) Write(p []byte) (int, error) {
	return s.file.Write(p) //nolint:wrapcheck // pass-through
}

// Close writes the footer and closes the file.
func (s *SessionLog) Close() error {
	_, _ = fmt.Fprintf(s.file, "=== Session ended %s ===\n", time.Now().Format(time.RFC3339))
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close session log: %w", err)
	}
	return nil
}

func writeSessionHeader(w io.Writer) {
	_, _ = fmt.Fprint(w, "=== scsconsole session log ===\n")
	_, _ = fmt.Fprintf(w, "Started: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "PID: %d\n", os.Getpid())
	_, _ = fmt.Fprintf(w, "OS: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(w, "Go Version: %s\n", runtime.Version())
	_, _ = fmt.Fprintf(w, "Command Line: %s\n", strings.Join(os.Args, " "))
	_, _ = fmt.Fprint(w, "===============================\n")
}

//go:build deadlock

package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// Mutex is a deadlock.Mutex when built with -tags=deadlock.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a deadlock.RWMutex when built with -tags=deadlock.
type RWMutex struct {
	deadlock.RWMutex
}

// DeadlockDetection reports whether the deadlock build tag is active.
const DeadlockDetection = true

// Configure sets how long a goroutine may wait for a lock before the
// detector reports it. Zero keeps the library default.
func Configure(wait time.Duration) {
	if wait > 0 {
		deadlock.Opts.DeadlockTimeout = wait
	}
}

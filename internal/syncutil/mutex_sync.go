//go:build !deadlock

package syncutil

import (
	"sync"
	"time"
)

// Mutex is a plain sync.Mutex in regular builds.
//
//nolint:gocritic // embedded to expose Lock/Unlock
type Mutex struct {
	sync.Mutex
}

// RWMutex is a plain sync.RWMutex in regular builds.
//
//nolint:gocritic // embedded to expose Lock/Unlock/RLock/RUnlock
type RWMutex struct {
	sync.RWMutex
}

// DeadlockDetection reports whether the deadlock build tag is active.
const DeadlockDetection = false

// Configure sets the lock wait limit. No-op without the deadlock tag.
func Configure(time.Duration) {}

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
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-scs/internal/syncutil"
)

// Class is an independently guarded hardware subsystem.
type Class int

const (
	// ClassCard covers the card mechanism and the touch screen finger.
	ClassCard Class = iota
	// ClassKey covers the key press actuator.
	ClassKey

	numClasses
)

func (c Class) String() string {
	switch c {
	case ClassCard:
		return "card"
	case ClassKey:
		return "key"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Classes lists every resource class.
func Classes() []Class {
	return []Class{ClassCard, ClassKey}
}

// DefaultLeaseTTL bounds how long a lease blocks its class.
const DefaultLeaseTTL = 2 * DefaultSessionTimeout

// AccessGuard admits at most one operation per class. A conflicting request
// is rejected immediately rather than queued.
type AccessGuard struct {
	now     func() time.Time
	holders [numClasses]*Lease
	ttl     time.Duration
	mu      syncutil.Mutex
}

// NewAccessGuard creates a guard. A lease older than ttl may be taken over by
// the next acquirer; ttl <= 0 disables takeover.
func NewAccessGuard(ttl time.Duration) *AccessGuard {
	return &AccessGuard{ttl: ttl, now: time.Now}
}

// TryAcquire claims class or returns a *BusyError.
func (g *AccessGuard) TryAcquire(class Class) (*Lease, error) {
	if class < 0 || class >= numClasses {
		return nil, fmt.Errorf("%w: resource class %d", ErrInvalidParameter, int(class))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if held := g.holders[class]; held != nil {
		if g.ttl <= 0 || now.Sub(held.acquired) < g.ttl {
			return nil, &BusyError{Class: class}
		}
		Logger().Warn().
			Str("class", class.String()).
			Dur("held", now.Sub(held.acquired)).
			Msg("access lease expired, taking over")
	}

	l := &Lease{guard: g, class: class, acquired: now}
	g.holders[class] = l
	return l, nil
}

// Held reports whether class is currently claimed.
func (g *AccessGuard) Held(class Class) bool {
	if class < 0 || class >= numClasses {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holders[class] != nil
}

func (g *AccessGuard) release(l *Lease) {
	g.mu.Lock()
	defer g.mu.Unlock()
	// A lease that was taken over must not clear its successor.
	if g.holders[l.class] == l {
		g.holders[l.class] = nil
	}
}

// Lease is a claim on one resource class.
type Lease struct {
	acquired time.Time
	guard    *AccessGuard
	once     sync.Once
	class    Class
}

// Class returns the claimed class.
func (l *Lease) Class() Class {
	return l.class
}

// Release gives the class back. Only the first call has an effect.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.guard.release(l)
	})
}

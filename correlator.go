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
	"strconv"

	"github.com/ZaparooProject/go-scs/internal/syncutil"
)

// DefaultCommandIDPrefix is prepended to the counter value of every command id.
const DefaultCommandIDPrefix = "unique command id "

// Correlator issues command ids and matches replies to the command that
// produced them. The counter starts at zero, is incremented before each
// id is issued and is never reset.
type Correlator struct {
	pending map[string]*Pending
	prefix  string
	mu      syncutil.Mutex
	counter uint64
}

// NewCorrelator creates a correlator. An empty prefix selects
// DefaultCommandIDPrefix.
func NewCorrelator(prefix string) *Correlator {
	if prefix == "" {
		prefix = DefaultCommandIDPrefix
	}
	return &Correlator{
		prefix:  prefix,
		pending: make(map[string]*Pending),
	}
}

// NewCommandID advances the counter and returns the new id.
func (c *Correlator) NewCommandID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counter++
	return c.format(c.counter)
}

// CurrentCommandID returns the most recently issued id, or "" before the
// first one.
func (c *Correlator) CurrentCommandID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counter == 0 {
		return ""
	}
	return c.format(c.counter)
}

func (c *Correlator) format(n uint64) string {
	return c.prefix + strconv.FormatUint(n, 10)
}

// Begin registers a pending command. Each id may be pending at most once.
func (c *Correlator) Begin(id string) (*Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.pending[id]; exists {
		return nil, fmt.Errorf("%w: command %q already pending", ErrInvalidParameter, id)
	}
	p := &Pending{id: id, owner: c}
	c.pending[id] = p
	return p, nil
}

// Outstanding returns the number of commands awaiting a reply.
func (c *Correlator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Correlator) remove(p *Pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[p.id] == p {
		delete(c.pending, p.id)
	}
}

// Pending tracks one command from Begin until Done.
type Pending struct {
	owner *Correlator
	id    string
}

// ID returns the command id this entry waits for.
func (p *Pending) ID() string {
	return p.id
}

// Settle validates reply against this command's own id. A nil return means
// the device reported success.
func (p *Pending) Settle(reply *Reply) error {
	if reply == nil {
		return ErrNoUsableReply
	}
	if reply.CommandID == InvalidCommandID {
		return &DeviceError{Kind: KindRejected, CommandID: p.id, Info: reply.ErrorInfo}
	}
	if reply.CommandID != p.id {
		return fmt.Errorf("%w: sent %q, got %q", ErrReplyMismatch, p.id, reply.CommandID)
	}
	switch reply.Result {
	case ResultSucceeded:
		return nil
	case ResultFailed:
		return &DeviceError{Kind: KindFailed, CommandID: p.id, Info: reply.ErrorInfo}
	default:
		return fmt.Errorf("%w: %q", ErrUnexpectedResult, reply.Result)
	}
}

// Done deregisters the entry. It is safe to call more than once.
func (p *Pending) Done() {
	p.owner.remove(p)
}

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
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ZaparooProject/go-scs/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	outcomes []string
	busy     []Class
	mu       sync.Mutex
}

func (r *recordingObserver) CommandFinished(_ Class, _, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingObserver) AccessRejected(class Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = append(r.busy, class)
}

func newTestBridge(t *testing.T) (*Bridge, *MockTransport, *MockTransport, *recordingObserver) {
	t.Helper()
	card := NewMockTransport()
	key := NewMockTransport()
	obs := &recordingObserver{}
	b := NewBridge(Config{
		Transports:     map[Class]Transport{ClassCard: card, ClassKey: key},
		Observer:       obs,
		SessionTimeout: time.Second,
	})
	return b, card, key, obs
}

func TestBridge_InsertSmartCardFrame(t *testing.T) {
	t.Parallel()

	b, card, _, obs := newTestBridge(t)
	err := b.Execute(context.Background(), ClassCard, NewCommand(UserCmdInsertCard).With("smartCardNumber", 3))
	require.NoError(t, err)

	frames := card.Frames()
	require.Len(t, frames, 1)
	want := `{"userCommand":"insert smart card","commandId":"unique command id 1","smartCardNumber":3}`
	f := frames[0]
	require.Len(t, f, len(want)+8)
	assert.Equal(t, []byte{0xAA, 0xBB}, f[:2])
	assert.Equal(t, len(want)+4, int(f[2])<<8|int(f[3]))
	assert.Equal(t, []byte{0x00, 0x00}, f[4:6])
	assert.Equal(t, []byte{0xCC, 0xDD}, f[len(f)-2:])
	assert.Equal(t, want, frame.Decode(f))

	assert.False(t, b.Guard().Held(ClassCard))
	assert.Equal(t, []string{OutcomeSucceeded}, obs.outcomes)
}

func TestBridge_GuardReleasedOnEveryPath(t *testing.T) {
	t.Parallel()

	garbage := []byte{0x01, 0x02, 0x03}
	mismatch, err := frame.Encode(`{"commandId":"unique command id 999","result":"succeeded"}`)
	require.NoError(t, err)
	rejected, err := frame.Encode(`{"commandId":"invalid","result":"failed","errorInfo":"bad json"}`)
	require.NoError(t, err)

	tests := []struct {
		setup       func(*MockTransport)
		check       func(*testing.T, error)
		name        string
		wantOutcome string
	}{
		{
			name:        "success",
			setup:       func(*MockTransport) {},
			check:       func(t *testing.T, err error) { require.NoError(t, err) },
			wantOutcome: OutcomeSucceeded,
		},
		{
			name:  "device failure",
			setup: func(m *MockTransport) { m.SetResponder(FailResponder("card jammed")) },
			check: func(t *testing.T, err error) {
				var de *DeviceError
				require.ErrorAs(t, err, &de)
				assert.Equal(t, KindFailed, de.Kind)
				assert.Equal(t, "card jammed", Message(err))
			},
			wantOutcome: OutcomeFailed,
		},
		{
			name:  "device rejected",
			setup: func(m *MockTransport) { m.QueueReply(rejected) },
			check: func(t *testing.T, err error) {
				var de *DeviceError
				require.ErrorAs(t, err, &de)
				assert.Equal(t, KindRejected, de.Kind)
			},
			wantOutcome: OutcomeRejected,
		},
		{
			name:  "dial error",
			setup: func(m *MockTransport) { m.SetError(NewTransportError("dial", "x", errors.New("connection refused"))) },
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrTransportDial)
				assert.Equal(t, "connection refused", Message(err))
			},
			wantOutcome: OutcomeUnreachable,
		},
		{
			name:  "write error",
			setup: func(m *MockTransport) { m.SetError(NewTransportError("write", "x", errors.New("broken pipe"))) },
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrTransportWrite)
				assert.NotErrorIs(t, err, ErrTransportDial)
			},
			wantOutcome: OutcomeTransport,
		},
		{
			name:        "decode failure",
			setup:       func(m *MockTransport) { m.QueueReply(garbage) },
			check:       func(t *testing.T, err error) { require.ErrorIs(t, err, ErrNoUsableReply) },
			wantOutcome: OutcomeNoReply,
		},
		{
			name:        "mismatch",
			setup:       func(m *MockTransport) { m.QueueReply(mismatch) },
			check:       func(t *testing.T, err error) { require.ErrorIs(t, err, ErrReplyMismatch) },
			wantOutcome: OutcomeMismatch,
		},
		{
			name:  "timeout",
			setup: func(m *MockTransport) { m.SetDelay(5 * time.Second) },
			check: func(t *testing.T, err error) {
				assert.True(t, IsTimeout(err))
				require.ErrorIs(t, err, ErrDeviceUnresponsive)
			},
			wantOutcome: OutcomeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			card := NewMockTransport()
			tt.setup(card)
			obs := &recordingObserver{}
			b := NewBridge(Config{
				Transports:     map[Class]Transport{ClassCard: card},
				Observer:       obs,
				SessionTimeout: 50 * time.Millisecond,
			})

			err := b.Execute(context.Background(), ClassCard, NewCommand(UserCmdRemoveCard).With("smartCardNumber", 1))
			tt.check(t, err)
			assert.False(t, b.Guard().Held(ClassCard))
			assert.Equal(t, 0, b.Correlator().Outstanding())
			assert.Equal(t, []string{tt.wantOutcome}, obs.outcomes)
		})
	}
}

func TestBridge_BusyNeverTouchesTransport(t *testing.T) {
	t.Parallel()

	b, card, _, obs := newTestBridge(t)
	lease, err := b.Acquire(ClassCard)
	require.NoError(t, err)
	defer lease.Release()

	err = b.Execute(context.Background(), ClassCard, NewCommand(UserCmdSwipeCard))
	var be *BusyError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "a card is being accessed", Message(err))
	assert.Equal(t, 0, card.CallCount())
	assert.Equal(t, []Class{ClassCard}, obs.busy)
}

func TestBridge_ClassesAreIndependent(t *testing.T) {
	t.Parallel()

	b, card, key, _ := newTestBridge(t)
	cardLease, err := b.Acquire(ClassCard)
	require.NoError(t, err)
	defer cardLease.Release()

	require.NoError(t, b.Execute(context.Background(), ClassKey, NewCommand(UserCmdPressKey).With("index", 4)))
	assert.Equal(t, 1, key.CallCount())
	assert.Equal(t, 0, card.CallCount())
	assert.Equal(t, `{"userCommand":"press key","commandId":"unique command id 1","index":4}`, key.LastCommand())
}

func TestBridge_RejectsUnframeableCommand(t *testing.T) {
	t.Parallel()

	b, card, _, _ := newTestBridge(t)
	err := b.Execute(context.Background(), ClassCard, NewCommand(UserCmdShowBarCode).With("barCodeNumber", "café"))
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, 0, card.CallCount())
	assert.False(t, b.Guard().Held(ClassCard))
}

func TestBridge_MissingTransport(t *testing.T) {
	t.Parallel()

	b := NewBridge(Config{Transports: map[Class]Transport{ClassCard: NewMockTransport()}})
	err := b.Execute(context.Background(), ClassKey, NewCommand(UserCmdPressKey))
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.False(t, b.Guard().Held(ClassKey))
}

func TestBridge_ProtocolRejection(t *testing.T) {
	t.Parallel()

	b, card, _, _ := newTestBridge(t)
	rejected, err := frame.Encode(`{"commandId":"invalid","result":"failed","errorInfo":"unsupported command"}`)
	require.NoError(t, err)
	card.QueueReply(rejected)

	err = b.Execute(context.Background(), ClassCard, NewCommand(UserCmdBackToHome))
	var de *DeviceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindRejected, de.Kind)
	assert.Equal(t, "unsupported command", Message(err))
}

func TestBridge_Status(t *testing.T) {
	t.Parallel()

	b, _, _, _ := newTestBridge(t)
	require.NoError(t, b.Execute(context.Background(), ClassKey, NewCommand(UserCmdPressKey).With("index", 1)))
	lease, err := b.Acquire(ClassCard)
	require.NoError(t, err)
	defer lease.Release()

	s := b.Status()
	assert.Equal(t, map[string]bool{"card": true, "key": false}, s.Busy)
	assert.Equal(t, "unique command id 1", s.LastCommandID)
	assert.Equal(t, 0, s.Outstanding)
}

func TestBridge_SendNilArguments(t *testing.T) {
	t.Parallel()

	b, _, _, _ := newTestBridge(t)
	require.ErrorIs(t, b.Send(context.Background(), nil, NewCommand(UserCmdPressKey)), ErrInvalidParameter)
}

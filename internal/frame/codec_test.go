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

package frame

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Layout(t *testing.T) {
	t.Parallel()

	cmd := `{"userCommand":"insert smart card","commandId":"unique command id 1","smartCardNumber":3}`
	buf, err := Encode(cmd)
	require.NoError(t, err)

	require.Len(t, buf, len(cmd)+8)
	assert.Equal(t, []byte{0xAA, 0xBB}, buf[:2])
	declared := int(buf[2])<<8 | int(buf[3])
	assert.Equal(t, len(cmd)+4, declared)
	assert.Equal(t, []byte{0x00, 0x00}, buf[4:6])
	assert.Equal(t, cmd, string(buf[6:6+len(cmd)]))
	assert.Equal(t, []byte{0xCC, 0xDD}, buf[len(buf)-2:])

	assert.Equal(t, cmd, Decode(buf))
}

func TestEncode_KnownBytes(t *testing.T) {
	t.Parallel()

	buf, err := Encode("{}")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0x00, 0x06, 0x00, 0x00, '{', '}', 0xCC, 0xDD}, buf)
}

func TestEncode_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		payload string
	}{
		{name: "too large", payload: strings.Repeat("a", MaxPayloadLength+1), wantErr: ErrPayloadTooLarge},
		{name: "newline", payload: "{\n}", wantErr: ErrNonASCII},
		{name: "non-ascii", payload: `{"name":"café"}`, wantErr: ErrNonASCII},
		{name: "nul", payload: "a\x00b", wantErr: ErrNonASCII},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf, err := Encode(tt.payload)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, buf)
		})
	}
}

func TestEncode_MaxPayload(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("x", MaxPayloadLength)
	buf, err := Encode(payload)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF}, buf[2:4])
	assert.Equal(t, payload, Decode(buf))
}

func TestDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	payloads := []string{
		"a",
		"{}",
		`{"commandId":"unique command id 7","result":"succeeded"}`,
		strings.Repeat("~ ", 3000),
	}
	for _, p := range payloads {
		buf, err := Encode(p)
		require.NoError(t, err)
		assert.Equal(t, p, Decode(buf))
	}
}

func TestDecode_EmptyPayloadIsSentinel(t *testing.T) {
	t.Parallel()

	// An empty payload encodes to 8 bytes, below the 9-byte decode minimum.
	buf, err := Encode("")
	require.NoError(t, err)
	assert.Len(t, buf, 8)
	assert.Equal(t, EmptyReply, Decode(buf))
}

func TestDecode_Rejects(t *testing.T) {
	t.Parallel()

	good, err := Encode(`{"result":"succeeded"}`)
	require.NoError(t, err)

	corrupt := func(mutate func([]byte) []byte) []byte {
		cp := append([]byte(nil), good...)
		return mutate(cp)
	}

	tests := []struct {
		wantErr error
		name    string
		buf     []byte
	}{
		{name: "nil", buf: nil, wantErr: ErrShortFrame},
		{name: "eight bytes", buf: good[:8], wantErr: ErrShortFrame},
		{name: "truncated", buf: good[:len(good)-1], wantErr: ErrBadTail},
		{name: "bad tag byte 0", buf: corrupt(func(b []byte) []byte { b[0] = 0xAB; return b }), wantErr: ErrBadTag},
		{name: "bad tag byte 1", buf: corrupt(func(b []byte) []byte { b[1] = 0x00; return b }), wantErr: ErrBadTag},
		{name: "bad tail byte 0", buf: corrupt(func(b []byte) []byte { b[len(b)-2] = 0xCD; return b }), wantErr: ErrBadTail},
		{name: "bad tail byte 1", buf: corrupt(func(b []byte) []byte { b[len(b)-1] = 0xCC; return b }), wantErr: ErrBadTail},
		{name: "length too small", buf: corrupt(func(b []byte) []byte { b[3]--; return b }), wantErr: ErrLengthMismatch},
		{name: "length too large", buf: corrupt(func(b []byte) []byte { b[2]++; return b }), wantErr: ErrLengthMismatch},
		{
			name:    "trailing garbage",
			buf:     corrupt(func(b []byte) []byte { return append(b, 0xCC, 0xDD) }),
			wantErr: ErrLengthMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, Validate(tt.buf), tt.wantErr)
			assert.Equal(t, EmptyReply, Decode(tt.buf))
		})
	}
}

func TestDecode_IgnoresVersion(t *testing.T) {
	t.Parallel()

	buf, err := Encode("ok")
	require.NoError(t, err)
	buf[4], buf[5] = 0x00, 0x01
	assert.Equal(t, "ok", Decode(buf))
}

func TestPayloadLength(t *testing.T) {
	t.Parallel()

	assert.Equal(t, -1, PayloadLength([]byte{0xAA, 0xBB, 0x00}))
	buf, err := Encode("hello")
	require.NoError(t, err)
	assert.Equal(t, 5, PayloadLength(buf))
}

func TestChunkPool(t *testing.T) {
	t.Parallel()

	buf := GetChunk()
	require.Len(t, buf, ChunkSize)
	copy(buf, "secret")
	PutChunk(buf)
	PutChunk(make([]byte, 10)) // foreign buffers are ignored

	again := GetChunk()
	assert.Len(t, again, ChunkSize)
	PutChunk(again)
}

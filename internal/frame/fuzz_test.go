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
	"testing"
)

// =============================================================================
// Fuzz Tests for Frame Parsing
// =============================================================================
// Replies come from another process over a socket, so Decode must survive any
// byte sequence without panicking.
//
// Run with: go test -fuzz=FuzzDecode -fuzztime=30s ./internal/frame/

// FuzzDecode feeds arbitrary bytes to the decoder.
func FuzzDecode(f *testing.F) {
	f.Add([]byte{0xAA, 0xBB, 0x00, 0x06, 0x00, 0x00, '{', '}', 0xCC, 0xDD}) // Valid "{}"
	f.Add([]byte{0xAA, 0xBB, 0x00, 0x04, 0x00, 0x00, 0xCC, 0xDD})           // Empty payload
	f.Add([]byte{})
	f.Add([]byte{0xAA})
	f.Add([]byte{0xAA, 0xBB, 0xFF, 0xFF, 0x00, 0x00, 'x', 0xCC, 0xDD}) // Oversized length
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})

	f.Fuzz(func(t *testing.T, buf []byte) {
		out := Decode(buf)
		if out == EmptyReply {
			return
		}
		// Anything accepted must re-encode to the same bytes, modulo version
		if len(out) != len(buf)-Overhead {
			t.Fatalf("decoded %d bytes from %d byte frame", len(out), len(buf))
		}
	})
}

// FuzzRoundTrip checks decode(encode(s)) == s for every encodable payload.
func FuzzRoundTrip(f *testing.F) {
	f.Add(`{"userCommand":"press key","commandId":"1","index":4}`)
	f.Add("x")
	f.Add("")
	f.Add("é")

	f.Fuzz(func(t *testing.T, payload string) {
		buf, err := Encode(payload)
		if err != nil {
			return
		}
		if len(buf) != len(payload)+Overhead {
			t.Fatalf("frame length %d for payload %d", len(buf), len(payload))
		}
		if payload == "" {
			return
		}
		if got := Decode(buf); got != payload {
			t.Fatalf("round trip mismatch: %q != %q", got, payload)
		}
	})
}

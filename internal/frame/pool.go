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

import "sync"

// ChunkSize is the size of the read buffers handed out by the pool. Device
// replies are small JSON documents, so one chunk usually holds a whole frame.
const ChunkSize = 4096

var chunkPool = sync.Pool{
	New: func() any {
		buf := make([]byte, ChunkSize)
		return &buf
	},
}

// GetChunk acquires a ChunkSize read buffer.
// The returned buffer should be returned via PutChunk when done.
func GetChunk() []byte {
	bufPtr, ok := chunkPool.Get().(*[]byte)
	if !ok {
		return make([]byte, ChunkSize)
	}
	return (*bufPtr)[:ChunkSize]
}

// PutChunk returns a buffer obtained from GetChunk. Buffers of any other
// capacity are left to the GC.
func PutChunk(buf []byte) {
	if cap(buf) != ChunkSize {
		return
	}
	// Replies may carry card names; don't leave them lying around in the pool
	clear(buf[:ChunkSize])
	full := buf[:ChunkSize]
	chunkPool.Put(&full)
}

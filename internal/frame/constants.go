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

// Frame markers
const (
	TagHigh  = 0xAA // Header tag byte 0
	TagLow   = 0xBB // Header tag byte 1
	TailHigh = 0xCC // Tail marker byte 0
	TailLow  = 0xDD // Tail marker byte 1

	Version = 0x0000 // Only protocol version understood by the device
)

// Field widths
const (
	TagWidth     = 2
	LengthWidth  = 2
	VersionWidth = 2
	TailWidth    = 2

	// HeaderLength is the offset of the first payload byte.
	HeaderLength = TagWidth + LengthWidth + VersionWidth
	// Overhead is the number of non-payload bytes in a frame.
	Overhead = HeaderLength + TailWidth
)

// Frame size limits
const (
	// MaxPayloadLength keeps the declared length (payload + 4) inside a uint16.
	MaxPayloadLength = 0xFFFF - VersionWidth - TailWidth
	// MinFrameLength is the shortest frame Decode accepts (one payload byte).
	MinFrameLength = Overhead + 1
)

// EmptyReply is what Decode returns for anything that is not a well-formed frame.
const EmptyReply = "{}"

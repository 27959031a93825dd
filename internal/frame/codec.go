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

// Package frame implements the tag/length/version/payload/tail framing used on
// the device-control socket.
//
// Layout (offsets in bytes):
//
//	0     2  tag      AA BB
//	2     2  length   big-endian, payload length + 4
//	4     2  version  00 00
//	6     N  payload  printable ASCII
//	6+N   2  tail     CC DD
//
// The declared length covers version, payload and tail but not the tag or the
// length field itself. Device firmware depends on this arithmetic.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Validation failures reported by Validate
var (
	ErrShortFrame      = errors.New("frame too short")
	ErrBadTag          = errors.New("frame tag mismatch")
	ErrBadTail         = errors.New("frame tail mismatch")
	ErrLengthMismatch  = errors.New("declared length mismatch")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrNonASCII        = errors.New("payload contains non-printable or non-ASCII byte")
)

// Encode wraps payload in a frame. The result is always len(payload)+8 bytes.
func Encode(payload string) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadLength)
	}
	for i := 0; i < len(payload); i++ {
		if c := payload[i]; c < 0x20 || c > 0x7E {
			return nil, fmt.Errorf("%w: 0x%02X at offset %d", ErrNonASCII, c, i)
		}
	}

	buf := make([]byte, len(payload)+Overhead)
	buf[0] = TagHigh
	buf[1] = TagLow
	binary.BigEndian.PutUint16(buf[TagWidth:], uint16(len(payload)+VersionWidth+TailWidth)) //nolint:gosec // bounded above
	binary.BigEndian.PutUint16(buf[TagWidth+LengthWidth:], Version)
	copy(buf[HeaderLength:], payload)
	buf[len(buf)-2] = TailHigh
	buf[len(buf)-1] = TailLow
	return buf, nil
}

// Validate checks the structure of a received frame without copying it.
func Validate(buf []byte) error {
	if len(buf) < MinFrameLength {
		return fmt.Errorf("%w: %d bytes", ErrShortFrame, len(buf))
	}
	if buf[0] != TagHigh || buf[1] != TagLow {
		return fmt.Errorf("%w: %02X %02X", ErrBadTag, buf[0], buf[1])
	}
	if buf[len(buf)-2] != TailHigh || buf[len(buf)-1] != TailLow {
		return fmt.Errorf("%w: %02X %02X", ErrBadTail, buf[len(buf)-2], buf[len(buf)-1])
	}
	declared := int(binary.BigEndian.Uint16(buf[TagWidth:]))
	if declared != len(buf)-TagWidth-LengthWidth {
		return fmt.Errorf("%w: declared %d, have %d", ErrLengthMismatch, declared, len(buf)-TagWidth-LengthWidth)
	}
	return nil
}

// Decode returns the payload of buf, or EmptyReply when buf is not a valid
// frame. It never fails; callers treat EmptyReply as "no usable reply".
func Decode(buf []byte) string {
	if Validate(buf) != nil {
		return EmptyReply
	}
	return string(buf[HeaderLength : HeaderLength+len(buf)-Overhead])
}

// PayloadLength returns the payload size announced by a frame header, or -1
// if fewer than four bytes are available.
func PayloadLength(header []byte) int {
	if len(header) < TagWidth+LengthWidth {
		return -1
	}
	return int(binary.BigEndian.Uint16(header[TagWidth:])) - VersionWidth - TailWidth
}

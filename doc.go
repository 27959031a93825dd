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

// Package scs bridges web console operations to the smart card switch's
// device-control process.
//
// A Bridge owns the process-wide state every request shares: a Correlator
// that stamps each command with a unique id and checks the reply against
// it, and an AccessGuard that admits one operation per resource class
// (card or key) at a time. Each command is framed, sent over a fresh
// Transport session, and its reply decoded and settled:
//
//	bridge := scs.NewBridge(scs.Config{
//		Transports: map[scs.Class]scs.Transport{scs.ClassCard: card, scs.ClassKey: key},
//	})
//	err := bridge.Execute(ctx, scs.ClassKey, scs.NewCommand(scs.UserCmdPressKey).With("index", 2))
//	status, body := scs.HTTPStatus(err), scs.Message(err)
//
// Errors carry enough structure for the console to answer 400 with a
// readable body: *DeviceError for device-reported failures, *BusyError when
// the class is held, *TransportError for connection problems and timeouts.
package scs

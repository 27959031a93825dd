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
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Device command tags carried in the userCommand field.
const (
	UserCmdInsertCard       = "insert smart card"
	UserCmdRemoveCard       = "remove smart card"
	UserCmdSwipeCard        = "swipe smart card"
	UserCmdTapCard          = "tap smart card"
	UserCmdShowBarCode      = "show bar code"
	UserCmdBackToHome       = "back to home"
	UserCmdTouchScreen      = "touch screen"
	UserCmdPressKey         = "press key"
	UserCmdAdjustStepperW   = "adjust stepper w"
	UserCmdFinishAdjustment = "finish stepper w adjustment"

	UserCmdBayToGate          = "card from bay to smart card gate"
	UserCmdGateToReaderGate   = "card from smart card gate to smart card reader gate"
	UserCmdReaderGateToReader = "card from smart card reader gate to smart card reader"
	UserCmdReaderToReaderGate = "card from smart card reader to smart card reader gate"
	UserCmdReaderGateToGate   = "card from smart card reader gate to smart card gate"
	UserCmdGateToBay          = "card from smart card gate to bay"
)

// Reply results
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"

	// InvalidCommandID marks a reply to a command the device could not parse.
	InvalidCommandID = "invalid"
)

// Field is one operation parameter of a Command.
type Field struct {
	Value any
	Key   string
}

// Command is a device command. It serialises as a JSON object whose first
// keys are userCommand and commandId followed by Fields in insertion order.
type Command struct {
	UserCommand string
	CommandID   string
	Fields      []Field
}

// NewCommand creates a command with the given tag and no id.
func NewCommand(userCommand string) *Command {
	return &Command{UserCommand: userCommand}
}

// With appends a parameter and returns the command for chaining.
func (c *Command) With(key string, value any) *Command {
	c.Fields = append(c.Fields, Field{Key: key, Value: value})
	return c
}

// MarshalJSON implements json.Marshaler.
func (c *Command) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeMember(&buf, "userCommand", c.UserCommand); err != nil {
		return nil, err
	}
	buf.WriteByte(',')
	if err := writeMember(&buf, "commandId", c.CommandID); err != nil {
		return nil, err
	}
	for _, f := range c.Fields {
		if f.Key == "userCommand" || f.Key == "commandId" {
			return nil, fmt.Errorf("%w: reserved field %q", ErrInvalidParameter, f.Key)
		}
		buf.WriteByte(',')
		if err := writeMember(&buf, f.Key, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("failed to encode key %q: %w", key, err)
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode field %q: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// String returns the JSON text of the command, or a placeholder if a field
// cannot be encoded.
func (c *Command) String() string {
	b, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", c.UserCommand, err)
	}
	return string(b)
}

// TouchArea is one entry of a touch screen command's keys list: the
// position in the press sequence and the finger key to press.
type TouchArea struct {
	Index     int `json:"index"`
	KeyNumber int `json:"keyNumber"`
}

// Reply is the device's answer to a command.
type Reply struct {
	UserCommand string `json:"userCommand,omitempty"`
	CommandID   string `json:"commandId"`
	Result      string `json:"result"`
	ErrorInfo   string `json:"errorInfo,omitempty"`
}

// ParseReply decodes the payload of a reply frame. The empty sentinel "{}"
// yields ErrNoUsableReply.
func ParseReply(payload string) (*Reply, error) {
	if payload == "" || payload == "{}" {
		return nil, ErrNoUsableReply
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}

	r := &Reply{}
	var err error
	if r.UserCommand, err = stringField(raw, "userCommand"); err != nil {
		return nil, err
	}
	if r.CommandID, err = stringField(raw, "commandId"); err != nil {
		return nil, err
	}
	if r.Result, err = stringField(raw, "result"); err != nil {
		return nil, err
	}
	if r.ErrorInfo, err = stringField(raw, "errorInfo"); err != nil {
		return nil, err
	}
	return r, nil
}

// stringField reads a member that may be a JSON string or number. Some
// device firmware reports numeric command ids.
func stringField(raw map[string]json.RawMessage, key string) (string, error) {
	v, ok := raw[key]
	if !ok || len(v) == 0 || string(v) == "null" {
		return "", nil
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", fmt.Errorf("%w: field %s: %w", ErrMalformedReply, key, err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", fmt.Errorf("%w: field %s is not a string", ErrMalformedReply, key)
	}
	return n.String(), nil
}

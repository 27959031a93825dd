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

// Package dispatch turns console requests into device commands. Each
// operation claims its resource class, resolves names against the active
// mappings and runs exactly one command through the bridge.
package dispatch

import (
	"context"
	"fmt"
	"slices"
	"strings"

	scs "github.com/ZaparooProject/go-scs"
)

// Executor runs commands under an access lease. *scs.Bridge implements it.
type Executor interface {
	Acquire(class scs.Class) (*scs.Lease, error)
	Send(ctx context.Context, lease *scs.Lease, cmd *scs.Command) error
}

// Resolver maps names to device indices using the active mapping sets.
type Resolver interface {
	ResolveSlot(cardName string) (int, error)
	ResolveAreas(names []string) ([]scs.TouchArea, error)
}

// CardAccessRequest is the body of POST /cardAccess.
type CardAccessRequest struct {
	DownPeriod *int   `json:"downPeriod,omitempty" validate:"omitempty,min=0,max=60000"`
	Command    string `json:"command" validate:"required"`
	Name       string `json:"name" validate:"omitempty,max=256,printascii"`
}

// AdjustStepperWRequest is the body of POST /adjustStepperW.
type AdjustStepperWRequest struct {
	Offset  *int   `json:"offset,omitempty"`
	Index   *int   `json:"index,omitempty" validate:"omitempty,min=0"`
	Command string `json:"command" validate:"required"`
}

// TouchScreenRequest is the body of POST /touchScreen.
type TouchScreenRequest struct {
	DownPeriod *int     `json:"downPeriod,omitempty" validate:"omitempty,min=0,max=60000"`
	UpPeriod   *int     `json:"upPeriod,omitempty" validate:"omitempty,min=0,max=60000"`
	Areas      []string `json:"areas" validate:"required,min=1,max=64,dive,required,max=256,printascii"`
}

// KeyRequest is the body of POST /key.
type KeyRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

// Device-side defaults for the press timing fields. The device refuses a
// swipe, tap, bar code or touch command that lacks them.
const (
	DefaultDownPeriod = 1000
	DefaultUpPeriod   = 1000
)

// cardOp describes one /cardAccess sub-command.
type cardOp struct {
	userCommand string
	// slotField names the parameter carrying the resolved slot. Empty means
	// the operation does not address a card.
	slotField  string
	downPeriod bool
}

var cardOps = map[string]cardOp{
	"insert":         {userCommand: scs.UserCmdInsertCard, slotField: "smartCardNumber"},
	"extract":        {userCommand: scs.UserCmdRemoveCard, slotField: "smartCardNumber"},
	"swipe":          {userCommand: scs.UserCmdSwipeCard, slotField: "smartCardNumber", downPeriod: true},
	"tapContactless": {userCommand: scs.UserCmdTapCard, slotField: "smartCardNumber", downPeriod: true},
	"tapBarcode":     {userCommand: scs.UserCmdShowBarCode, slotField: "smartCardNumber", downPeriod: true},

	"bayToSmartCardGate":                   {userCommand: scs.UserCmdBayToGate, slotField: "smartCardNumber"},
	"smartCardGateToSmartCardReaderGate":   {userCommand: scs.UserCmdGateToReaderGate, slotField: "smartCardNumber"},
	"smartCardReaderGateToSmartCardReader": {userCommand: scs.UserCmdReaderGateToReader, slotField: "smartCardNumber"},
	"smartCardReaderToSmartCardReaderGate": {userCommand: scs.UserCmdReaderToReaderGate, slotField: "smartCardNumber"},
	"smartCardReaderGateToSmartCardGate":   {userCommand: scs.UserCmdReaderGateToGate, slotField: "smartCardNumber"},
	"smartCardGateToBay":                   {userCommand: scs.UserCmdGateToBay, slotField: "smartCardNumber"},

	"returnCard": {userCommand: scs.UserCmdBackToHome},
}

// CardCommands lists the accepted /cardAccess sub-commands in sorted order.
func CardCommands() []string {
	out := make([]string, 0, len(cardOps))
	for name := range cardOps {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDownPeriod sets the press duration in milliseconds used when a request
// does not carry one.
func WithDownPeriod(ms int) Option {
	return func(d *Dispatcher) {
		if ms >= 0 {
			d.downPeriod = ms
		}
	}
}

// WithUpPeriod sets the release duration in milliseconds used when a touch
// request does not carry one.
func WithUpPeriod(ms int) Option {
	return func(d *Dispatcher) {
		if ms >= 0 {
			d.upPeriod = ms
		}
	}
}

// Dispatcher maps console operations onto device commands.
type Dispatcher struct {
	exec       Executor
	resolver   Resolver
	downPeriod int
	upPeriod   int
}

// New creates a dispatcher.
func New(exec Executor, resolver Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		exec:       exec,
		resolver:   resolver,
		downPeriod: DefaultDownPeriod,
		upPeriod:   DefaultUpPeriod,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func orDefault(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}

// run claims class, builds the command and sends it. build runs under the
// lease so a failed lookup still releases the class.
func (d *Dispatcher) run(ctx context.Context, class scs.Class, build func() (*scs.Command, error)) error {
	lease, err := d.exec.Acquire(class)
	if err != nil {
		return err
	}
	defer lease.Release()

	cmd, err := build()
	if err != nil {
		return err
	}
	return d.exec.Send(ctx, lease, cmd)
}

// CardAccess handles POST /cardAccess.
func (d *Dispatcher) CardAccess(ctx context.Context, req CardAccessRequest) error {
	if err := validateRequest(&req); err != nil {
		return err
	}
	op, ok := cardOps[req.Command]
	if !ok {
		return fmt.Errorf("%w: %s (expected one of %s)",
			scs.ErrUnknownCommand, req.Command, strings.Join(CardCommands(), ", "))
	}

	return d.run(ctx, scs.ClassCard, func() (*scs.Command, error) {
		cmd := scs.NewCommand(op.userCommand)
		if op.slotField != "" {
			slot, err := d.resolver.ResolveSlot(req.Name)
			if err != nil {
				return nil, err
			}
			cmd.With(op.slotField, slot)
		}
		if op.downPeriod {
			cmd.With("downPeriod", orDefault(req.DownPeriod, d.downPeriod))
		}
		return cmd, nil
	})
}

// AdjustStepperW handles POST /adjustStepperW.
func (d *Dispatcher) AdjustStepperW(ctx context.Context, req AdjustStepperWRequest) error {
	if err := validateRequest(&req); err != nil {
		return err
	}

	var cmd *scs.Command
	switch req.Command {
	case "pullUpCard":
		if req.Index == nil {
			return fmt.Errorf("%w: index is required", scs.ErrInvalidParameter)
		}
		cmd = scs.NewCommand(scs.UserCmdBayToGate).With("smartCardNumber", *req.Index)
	case "setOffset":
		if req.Offset == nil {
			return fmt.Errorf("%w: offset is required", scs.ErrInvalidParameter)
		}
		cmd = scs.NewCommand(scs.UserCmdAdjustStepperW).With("adjustment", *req.Offset)
	case "putBackCard":
		if req.Index == nil {
			return fmt.Errorf("%w: index is required", scs.ErrInvalidParameter)
		}
		cmd = scs.NewCommand(scs.UserCmdGateToBay).With("smartCardNumber", *req.Index)
	case "finish":
		cmd = scs.NewCommand(scs.UserCmdFinishAdjustment)
	default:
		return fmt.Errorf("%w: %s", scs.ErrUnknownCommand, req.Command)
	}

	return d.run(ctx, scs.ClassCard, func() (*scs.Command, error) {
		return cmd, nil
	})
}

// TouchScreen handles POST /touchScreen. Every area must resolve before
// anything is sent. The resolved areas travel to the device as keys.
func (d *Dispatcher) TouchScreen(ctx context.Context, req TouchScreenRequest) error {
	if err := validateRequest(&req); err != nil {
		return err
	}

	return d.run(ctx, scs.ClassCard, func() (*scs.Command, error) {
		areas, err := d.resolver.ResolveAreas(req.Areas)
		if err != nil {
			return nil, err
		}
		return scs.NewCommand(scs.UserCmdTouchScreen).
			With("downPeriod", orDefault(req.DownPeriod, d.downPeriod)).
			With("upPeriod", orDefault(req.UpPeriod, d.upPeriod)).
			With("keys", areas), nil
	})
}

// PressKey handles POST /key.
func (d *Dispatcher) PressKey(ctx context.Context, req KeyRequest) error {
	if err := validateRequest(&req); err != nil {
		return err
	}
	return d.run(ctx, scs.ClassKey, func() (*scs.Command, error) {
		return scs.NewCommand(scs.UserCmdPressKey).With("index", *req.Index), nil
	})
}

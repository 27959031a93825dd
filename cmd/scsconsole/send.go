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

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	scs "github.com/ZaparooProject/go-scs"
)

func newSendCommand(opts *rootOptions) *cobra.Command {
	var (
		class       string
		userCommand string
		addr        string
		fields      []string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one command to the device and report the result",
		Example: `  scsconsole send --class card --command "insert smart card" --field smartCardNumber=3
  scsconsole send --class key --command "press key" --field index=0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := parseClass(class)
			if err != nil {
				return err
			}
			command := scs.NewCommand(userCommand)
			for _, f := range fields {
				k, v, err := parseField(f)
				if err != nil {
					return err
				}
				command.With(k, v)
			}

			cfg := *opts.cfg
			if addr != "" {
				cfg.Device.CardAddr = addr
				cfg.Device.KeyAddr = addr
			}
			bridge, err := newBridge(&cfg, nil)
			if err != nil {
				return err
			}

			err = bridge.Execute(cmd.Context(), c, command)
			if err != nil {
				return fmt.Errorf("%s: %s", command.CommandID, scs.Message(err))
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", command.CommandID, scs.ResultSucceeded)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&class, "class", "card", "resource class: card or key")
	f.StringVar(&userCommand, "command", "", "user command, e.g. \"back to home\"")
	f.StringVar(&addr, "addr", "", "device address (overrides device.card_addr and device.key_addr)")
	f.StringArrayVar(&fields, "field", nil, "extra command field as key=value; numbers and JSON arrays/objects are sent as such")
	_ = cmd.MarkFlagRequired("command")
	return cmd
}

func parseClass(s string) (scs.Class, error) {
	for _, c := range scs.Classes() {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown class %q", scs.ErrInvalidParameter, s)
}

// parseField splits key=value. Integers become numbers, true/false become
// booleans, JSON arrays and objects are embedded verbatim.
func parseField(s string) (string, any, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return "", nil, fmt.Errorf("%w: field %q is not key=value", scs.ErrInvalidParameter, s)
	}
	if n, err := strconv.Atoi(v); err == nil {
		return k, n, nil
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return k, b, nil
	}
	if (strings.HasPrefix(v, "[") || strings.HasPrefix(v, "{")) && json.Valid([]byte(v)) {
		return k, json.RawMessage(v), nil
	}
	return k, v, nil
}

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
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZaparooProject/go-scs/internal/frame"
)

func newFrameCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Encode or decode device frames as hex",
		// Frame tooling needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}

	encode := &cobra.Command{
		Use:   "encode <payload>",
		Short: "Frame a payload and print it as hex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := frame.Encode(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(out))
			return err
		},
	}

	decode := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a hex frame and print its payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(strings.NewReplacer(" ", "", ":", "").Replace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid hex: %w", err)
			}
			if err := frame.Validate(raw); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), frame.Decode(raw))
			return err
		},
	}

	cmd.AddCommand(encode, decode)
	return cmd
}

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

// Command scsconsole is the web console bridge for the smart card switch.
//
//	scsconsole serve --config /etc/scsconsole/config.yaml
//	scsconsole send --class key --command "press key" --field index=2
//	scsconsole frame encode '{"userCommand":"back to home"}'
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	scs "github.com/ZaparooProject/go-scs"
	"github.com/ZaparooProject/go-scs/internal/config"
	"github.com/ZaparooProject/go-scs/internal/logging"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &rootOptions{stderr: stderr}
	defer opts.close()

	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			_, _ = fmt.Fprintf(stderr, "scsconsole: %v\n", err)
		}
		return 1
	}
	return 0
}

type rootOptions struct {
	stderr     io.Writer
	cfg        *config.Config
	sessionLog *logging.SessionLog
	configPath string
	logLevel   string
	logFormat  string
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lc := logging.Config{
		Output: o.stderr,
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	}
	if cfg.Logging.Dir != "" {
		sl, err := logging.OpenSessionLog(cfg.Logging.Dir)
		if err != nil {
			return err
		}
		o.sessionLog = sl
		lc.File = sl
	}
	logging.Init(lc)
	scs.SetLogger(logging.Logger())
	o.cfg = cfg
	return nil
}

func (o *rootOptions) close() {
	if o.sessionLog != nil {
		_ = o.sessionLog.Close()
		o.sessionLog = nil
	}
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scsconsole",
		Short:         "Web console bridge for the smart card switch",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}
	bindRootFlags(cmd.PersistentFlags(), opts)
	cmd.AddCommand(newServeCommand(opts), newSendCommand(opts), newFrameCommand())
	return cmd
}

func bindRootFlags(fs *pflag.FlagSet, opts *rootOptions) {
	fs.StringVarP(&opts.configPath, "config", "c", "", "config file (default $"+config.PathEnvVar+" or scsconsole.yaml)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "trace, debug, info, warn or error")
	fs.StringVar(&opts.logFormat, "log-format", "console", "console or json")
}

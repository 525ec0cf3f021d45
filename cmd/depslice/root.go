// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/AleutianAI/depslice/services/slice/config"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli holds the state shared by every command of one invocation.
type cli struct {
	v      *viper.Viper
	fs     afero.Fs
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger

	// closers run after the command returns, in reverse order.
	closers []func(context.Context) error
}

// execute runs the command line in args and releases telemetry afterwards.
func execute(ctx context.Context, args []string, fs afero.Fs, out, errOut io.Writer) error {
	c := &cli{
		v:      viper.New(),
		fs:     fs,
		out:    out,
		errOut: errOut,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	cmd := newRootCmd(c)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	err := cmd.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := c.close(shutdownCtx); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "depslice",
		Short: "Extract the dependency subgraph of a JavaScript/Vue project",
		Long: `depslice follows imports, requires, template assets and stylesheet references
from one or more entry files and reports the minimal set of project files the
entries depend on.

Configuration is read from depslice.yaml in the project root (or --config).
Global flags can also be set through DEPSLICE_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context())
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "project config file (default <root>/depslice.yaml)")
	pf.String("root", "", "project root (default is the current directory)")
	pf.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	pf.Bool("no-color", false, "disable colored output")
	pf.Bool("otel-stdout", false, "export trace spans to stdout")
	pf.String("metrics-file", "", "write Prometheus metrics in text format to this file on exit")
	for _, name := range []string{"config", "root", "log-level", "no-color", "otel-stdout", "metrics-file"} {
		_ = c.v.BindPFlag(name, pf.Lookup(name))
	}
	c.v.SetEnvPrefix("DEPSLICE")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	cmd.AddCommand(
		newCollectCmd(c),
		newExtractCmd(c),
		newMergeCmd(c),
		newRoutesCmd(c),
		newWatchCmd(c),
		newServeCmd(c),
	)
	return cmd
}

// setup installs the logger and optional tracing.
func (c *cli) setup(_ context.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.v.GetString("log-level"))); err != nil {
		return fmt.Errorf("invalid log level %q", c.v.GetString("log-level"))
	}
	c.logger = slog.New(tint.NewHandler(c.errOut, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
		NoColor:    !c.color(c.errOut),
	}))
	slog.SetDefault(c.logger)

	if c.v.GetBool("otel-stdout") {
		shutdown, err := setupStdoutTracing(c.out)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, shutdown)
	}
	if path := c.v.GetString("metrics-file"); path != "" {
		c.closers = append(c.closers, func(context.Context) error {
			if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
				return fmt.Errorf("writing metrics file: %w", err)
			}
			return nil
		})
	}
	return nil
}

// close runs the registered closers, last registered first.
func (c *cli) close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// color reports whether styled output should be written to w.
func (c *cli) color(w io.Writer) bool {
	if c.v.GetBool("no-color") {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// loadConfig loads the project configuration for the --root directory.
func (c *cli) loadConfig() (*config.Config, error) {
	root := c.v.GetString("root")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		root = wd
	}
	return config.Load(c.fs, root, c.v.GetString("config"))
}

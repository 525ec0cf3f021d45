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
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/AleutianAI/depslice/services/slice/config"
	"github.com/AleutianAI/depslice/services/slice/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd(c *cli) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "watch <entry>...",
		Short: "Re-run collect whenever a project file changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if _, err := c.collectAndReport(ctx, cfg, args, outDir); err != nil {
				return err
			}

			reportDir := outDir
			switch {
			case reportDir == "":
				reportDir = cfg.ReportDir()
			case !filepath.IsAbs(reportDir):
				reportDir = filepath.Join(cfg.ProjectRoot, reportDir)
			}
			w, err := watch.NewWatcher(
				func(ctx context.Context, changed []string) error {
					c.logger.Debug("re-collecting", slog.Any("changed", changed))
					_, err := c.collectAndReport(ctx, cfg, args, outDir)
					return err
				},
				watch.WithDebounce(cfg.Watch.Debounce),
				watch.WithIgnore(cfg.Watch.Ignore),
				watch.WithFilter(watchFilter(cfg, reportDir)),
				watch.WithLogger(c.logger),
			)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.AddRecursive(cfg.ProjectRoot); err != nil {
				return err
			}

			c.logger.Info("watching", slog.String("root", cfg.ProjectRoot))
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "report directory (default from config, relative to the project root)")
	return cmd
}

// watchFilter accepts changes to resolvable files and the project config,
// and rejects anything written to the report directory.
func watchFilter(cfg *config.Config, reportDir string) func(string) bool {
	return func(path string) bool {
		if path == reportDir || strings.HasPrefix(path, reportDir+string(filepath.Separator)) {
			return false
		}
		if filepath.Base(path) == config.ProjectFileName {
			return true
		}
		return slices.Contains(cfg.Extensions, filepath.Ext(path))
	}
}

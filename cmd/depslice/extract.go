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
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/AleutianAI/depslice/services/slice/scaffold"
	"github.com/spf13/cobra"
)

func newExtractCmd(c *cli) *cobra.Command {
	var (
		target     string
		mockRoutes bool
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:   "extract <entry>... --target DIR",
		Short: "Copy the dependency set of the entries into a new project directory",
		Long: `Extract collects the dependency set of the entries and copies it, together
with the configured extra files, into the target directory with the same
relative layout. When scaffold.alias_config is set, a build config holding
only the aliases the run used is written into the target.

With --mock-routes, lazily loaded route components in the copied route files
are pointed at a single mock component.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			dir, err := filepath.Abs(target)
			if err != nil {
				return fmt.Errorf("resolving target: %w", err)
			}

			result, err := c.collect(ctx, cfg, args)
			if err != nil {
				return err
			}
			stats, err := scaffold.Extract(ctx, c.fs, result.Files, cfg.ProjectRoot, dir,
				scaffold.WithConcurrency(cfg.Scaffold.Concurrency),
				scaffold.WithExtraFiles(cfg.ExtraFiles()),
				scaffold.WithOverwrite(overwrite),
				scaffold.WithLogger(c.logger),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Copied %d files to %s (%d skipped, %d failed)\n",
				stats.Copied, dir, stats.Skipped, len(stats.Failures))
			for _, f := range stats.Failures {
				fmt.Fprintf(c.out, "  failed: %s: %s\n", f.Path, f.Error)
			}

			if cfg.Scaffold.AliasConfig != "" {
				dst := filepath.Join(dir, cfg.Scaffold.AliasConfig)
				n, err := scaffold.WriteAliasConfig(c.fs, cfg.AliasTemplatePath(), dst,
					result.Stats.AliasUsage, cfg.Aliases, cfg.ProjectRoot, c.logger)
				if err != nil {
					return err
				}
				if n > 0 {
					fmt.Fprintf(c.out, "Wrote %d used aliases to %s\n", n, dst)
				}
			}

			if !mockRoutes {
				return nil
			}
			var routeFiles []string
			for _, f := range result.RouteFiles() {
				mapped, err := scaffold.TargetPath(cfg.ProjectRoot, dir, f)
				if err != nil {
					c.logger.Warn("route file outside project root", slog.String("file", f))
					continue
				}
				routeFiles = append(routeFiles, mapped)
			}
			mock, err := scaffold.MockRoutes(ctx, c.fs, routeFiles, cfg.MockComponentPath(dir), c.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Mocked %d of %d route files\n", mock.Success, mock.Total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "directory of the new project (required)")
	cmd.Flags().BoolVar(&mockRoutes, "mock-routes", false, "point route components at the mock component")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace files that already exist in the target")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

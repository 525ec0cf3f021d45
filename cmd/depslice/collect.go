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
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/AleutianAI/depslice/services/slice/config"
	"github.com/AleutianAI/depslice/services/slice/graph"
	"github.com/AleutianAI/depslice/services/slice/report"
	"github.com/spf13/cobra"
)

func newCollectCmd(c *cli) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "collect <entry>...",
		Short: "Collect the dependency set of the entries and write reports",
		Long: `Collect follows every reference reachable from the entry files and writes
dependency-report.json, dependency-report.txt and file-list.txt.

Relative entries are resolved against the project root.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			_, err = c.collectAndReport(cmd.Context(), cfg, args, outDir)
			return err
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "report directory (default from config, relative to the project root)")
	return cmd
}

// collect runs one collection with cfg.
func (c *cli) collect(ctx context.Context, cfg *config.Config, entries []string) (*graph.Result, error) {
	collector, err := graph.NewCollector(c.fs, cfg.CollectorOptions(c.logger)...)
	if err != nil {
		return nil, err
	}
	return collector.Collect(ctx, entries)
}

// collectAndReport runs a collection, prints the summary and writes the
// configured report files into outDir, or the configured directory when
// outDir is empty.
func (c *cli) collectAndReport(ctx context.Context, cfg *config.Config, entries []string, outDir string) (*report.Report, error) {
	result, err := c.collect(ctx, cfg, entries)
	if err != nil {
		return nil, err
	}
	rep := report.Build(result, cfg.ProjectRoot, time.Now())
	if err := report.RenderSummary(c.out, rep, c.color(c.out)); err != nil {
		return nil, fmt.Errorf("rendering summary: %w", err)
	}

	switch {
	case outDir == "":
		outDir = cfg.ReportDir()
	case !filepath.IsAbs(outDir):
		outDir = filepath.Join(cfg.ProjectRoot, outDir)
	}
	written, err := report.WriteFiles(c.fs, rep, outDir, report.Outputs{
		JSON:     cfg.Report.JSON,
		Text:     cfg.Report.Text,
		FileList: cfg.Report.FileList,
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("reports written",
		slog.String("dir", outDir),
		slog.String("json", written.JSONPath),
		slog.String("text", written.TextPath),
		slog.String("file_list", written.FileListPath),
	)
	return rep, nil
}

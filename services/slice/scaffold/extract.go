// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scaffold copies a collected file set into a new project directory
// and rewires lazily loaded route components to a placeholder.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// ErrOutsideRoot is recorded for files that do not live under the project root.
var ErrOutsideRoot = errors.New("file is outside the project root")

// =============================================================================
// Options
// =============================================================================

// ExtractOptions configures Extract.
type ExtractOptions struct {
	// Concurrency bounds parallel copies.
	// Default: 8
	Concurrency int

	// ExtraFiles are copied in addition to the file set when they exist.
	ExtraFiles []string

	// Overwrite replaces files already present in the target.
	// Default: false
	Overwrite bool

	// Logger receives per-file problems.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultExtractOptions returns the default options.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		Concurrency: 8,
		Logger:      slog.Default(),
	}
}

// ExtractOption is a functional option for configuring Extract.
type ExtractOption func(*ExtractOptions)

// WithConcurrency sets the copy parallelism.
func WithConcurrency(n int) ExtractOption {
	return func(o *ExtractOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithExtraFiles adds files copied when present.
func WithExtraFiles(files []string) ExtractOption {
	return func(o *ExtractOptions) {
		o.ExtraFiles = files
	}
}

// WithOverwrite replaces existing target files.
func WithOverwrite(overwrite bool) ExtractOption {
	return func(o *ExtractOptions) {
		o.Overwrite = overwrite
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ExtractOption {
	return func(o *ExtractOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// =============================================================================
// Extract
// =============================================================================

// CopyFailure is one file that could not be copied.
type CopyFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ExtractStats summarizes an extraction.
type ExtractStats struct {
	Copied   int           `json:"copied"`
	Skipped  int           `json:"skipped"`
	Failures []CopyFailure `json:"failures"`
}

// TargetPath maps a file under projectRoot to the same relative path under target.
func TargetPath(projectRoot, target, file string) (string, error) {
	rel, err := filepath.Rel(projectRoot, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", file, ErrOutsideRoot)
	}
	return filepath.Join(target, rel), nil
}

// Extract copies files into target, preserving their paths relative to projectRoot.
//
// Description:
//
//	Copies run in parallel, bounded by Concurrency. A file that cannot be
//	copied is recorded in the returned stats and does not stop the others.
//	Files outside projectRoot are recorded as failures. Missing extra files
//	and, unless Overwrite is set, files already present in target are
//	skipped.
//
// Inputs:
//
//	ctx         - Context for cancellation.
//	fs          - File system holding both the source and target trees.
//	files       - Absolute paths to copy.
//	projectRoot - Root of the source project.
//	target      - Root of the new project.
//
// Outputs:
//
//	*ExtractStats - Copy counts and per-file failures.
//	error         - Non-nil only when target cannot be created or ctx is done.
func Extract(ctx context.Context, fs afero.Fs, files []string, projectRoot, target string, opts ...ExtractOption) (*ExtractStats, error) {
	options := DefaultExtractOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if err := fs.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("creating target: %w", err)
	}

	stats := &ExtractStats{Failures: []CopyFailure{}}
	var mu sync.Mutex
	fail := func(path string, err error) {
		mu.Lock()
		stats.Failures = append(stats.Failures, CopyFailure{Path: path, Error: err.Error()})
		mu.Unlock()
		options.Logger.Warn("copy failed",
			slog.String("file", path),
			slog.String("error", err.Error()),
		)
	}

	jobs := make([]string, 0, len(files)+len(options.ExtraFiles))
	jobs = append(jobs, files...)
	for _, extra := range options.ExtraFiles {
		if ok, _ := afero.Exists(fs, extra); !ok {
			stats.Skipped++
			continue
		}
		jobs = append(jobs, extra)
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, options.Concurrency)
	seen := make(map[string]bool, len(jobs))

	for _, src := range jobs {
		if seen[src] {
			continue
		}
		seen[src] = true

		dst, err := TargetPath(projectRoot, target, src)
		if err != nil {
			fail(src, err)
			continue
		}
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			copied, err := copyFile(fs, src, dst, options.Overwrite)
			if err != nil {
				// Individual failure is not fatal.
				fail(src, err)
				return nil
			}
			mu.Lock()
			if copied {
				stats.Copied++
			} else {
				stats.Skipped++
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("extraction canceled: %w", err)
	}
	sort.Slice(stats.Failures, func(i, j int) bool {
		return stats.Failures[i].Path < stats.Failures[j].Path
	})

	options.Logger.Info("extraction complete",
		slog.String("target", target),
		slog.Int("copied", stats.Copied),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", len(stats.Failures)),
	)
	return stats, nil
}

// copyFile copies src to dst. It reports false when dst exists and
// overwrite is off.
func copyFile(fs afero.Fs, src, dst string, overwrite bool) (bool, error) {
	if !overwrite {
		if _, err := fs.Stat(dst); err == nil {
			return false, nil
		}
	}
	info, err := fs.Stat(src)
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", src)
	}

	in, err := fs.Open(src)
	if err != nil {
		return false, err
	}
	defer in.Close()

	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, err
	}
	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return false, err
	}
	return true, out.Close()
}

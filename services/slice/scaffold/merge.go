// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scaffold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// ErrSameProject is returned when the merge source and target are the same directory.
var ErrSameProject = errors.New("source and target are the same project")

// Merge actions.
const (
	MergeCopied  = "copied"
	MergeSkipped = "skipped"
	MergeFailed  = "failed"
)

// MergeOptions configures Merge.
type MergeOptions struct {
	// RemoveSource deletes the source tree after a merge with no failures.
	// Default: false
	RemoveSource bool

	// Logger receives per-file results.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultMergeOptions returns the default options.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{Logger: slog.Default()}
}

// MergeOption is a functional option for configuring Merge.
type MergeOption func(*MergeOptions)

// WithRemoveSource deletes the source after a clean merge.
func WithRemoveSource(remove bool) MergeOption {
	return func(o *MergeOptions) {
		o.RemoveSource = remove
	}
}

// WithMergeLogger sets the logger.
func WithMergeLogger(logger *slog.Logger) MergeOption {
	return func(o *MergeOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// MergedFile is the outcome for one source file.
type MergedFile struct {
	// Path is relative to the source and target roots.
	Path   string `json:"path"`
	Action string `json:"action"`
	Error  string `json:"error,omitempty"`
}

// MergeResult summarizes a merge.
type MergeResult struct {
	Files         []MergedFile `json:"files"`
	Total         int          `json:"total"`
	Copied        int          `json:"copied"`
	Skipped       int          `json:"skipped"`
	Failed        int          `json:"failed"`
	SourceRemoved bool         `json:"sourceRemoved"`
}

// Merge copies every file of source that target lacks.
//
// Description:
//
//	Files already present in target are never touched. Missing directories
//	are created. A file that cannot be copied is recorded and the walk
//	continues. With RemoveSource, the source tree is deleted only when no
//	file failed.
//
// Inputs:
//
//	ctx    - Context for cancellation, checked between files.
//	fs     - File system holding both projects.
//	source - Project whose files are added.
//	target - Project receiving them.
//
// Outputs:
//
//	*MergeResult - Per-file actions sorted by path, with counts.
//	error        - Non-nil when either root is not a directory, the roots
//	               are the same, or ctx is done.
func Merge(ctx context.Context, fs afero.Fs, source, target string, opts ...MergeOption) (*MergeResult, error) {
	options := DefaultMergeOptions()
	for _, opt := range opts {
		opt(&options)
	}
	source = filepath.Clean(source)
	target = filepath.Clean(target)
	if source == target {
		return nil, ErrSameProject
	}
	for _, dir := range []string{source, target} {
		if ok, err := afero.DirExists(fs, dir); err != nil || !ok {
			return nil, fmt.Errorf("%s: project directory does not exist", dir)
		}
	}

	result := &MergeResult{Files: []MergedFile{}}
	record := func(rel, action string, err error) {
		f := MergedFile{Path: filepath.ToSlash(rel), Action: action}
		switch action {
		case MergeCopied:
			result.Copied++
		case MergeSkipped:
			result.Skipped++
		case MergeFailed:
			result.Failed++
			f.Error = err.Error()
			options.Logger.Warn("merge copy failed",
				slog.String("file", rel),
				slog.String("error", err.Error()),
			)
		}
		result.Total++
		result.Files = append(result.Files, f)
	}

	walkErr := afero.Walk(fs, source, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(source, path)
		if relErr != nil {
			return relErr
		}
		if err != nil {
			record(rel, MergeFailed, err)
			return nil
		}
		// A target nested in the source is not merged into itself.
		if info.IsDir() {
			if path == target {
				return filepath.SkipDir
			}
			return nil
		}

		copied, err := copyFile(fs, path, filepath.Join(target, rel), false)
		switch {
		case err != nil:
			record(rel, MergeFailed, err)
		case copied:
			options.Logger.Debug("merged", slog.String("file", rel))
			record(rel, MergeCopied, nil)
		default:
			record(rel, MergeSkipped, nil)
		}
		return nil
	})
	if walkErr != nil {
		return result, fmt.Errorf("merge interrupted: %w", walkErr)
	}
	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Path < result.Files[j].Path
	})

	if options.RemoveSource && result.Failed == 0 {
		if err := fs.RemoveAll(source); err != nil {
			return result, fmt.Errorf("removing source: %w", err)
		}
		result.SourceRemoved = true
	}

	options.Logger.Info("merge complete",
		slog.String("source", source),
		slog.String("target", target),
		slog.Int("copied", result.Copied),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

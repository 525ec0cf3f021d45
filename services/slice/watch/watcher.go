// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-runs a handler when project files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/AleutianAI/depslice/services/slice/trackers"
	"github.com/fsnotify/fsnotify"
)

// ChangeHandler receives the sorted set of paths that changed during one
// debounce window.
type ChangeHandler func(ctx context.Context, changed []string) error

// =============================================================================
// Options
// =============================================================================

// WatcherOptions configures Watcher behavior.
type WatcherOptions struct {
	// Debounce is the quiet period after the last event before the handler runs.
	// Default: 300ms
	Debounce time.Duration

	// Ignore lists doublestar patterns for paths that never trigger a run.
	// Default: node_modules and .git trees
	Ignore []string

	// Filter, when set, must accept a path for it to trigger a run.
	Filter func(path string) bool

	// Logger receives watch events and handler errors.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultWatcherOptions returns the default options.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		Debounce: 300 * time.Millisecond,
		Ignore:   []string{"**/node_modules/**", "**/.git/**"},
		Logger:   slog.Default(),
	}
}

// WatcherOption is a functional option for configuring Watcher.
type WatcherOption func(*WatcherOptions)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(o *WatcherOptions) {
		if d >= 0 {
			o.Debounce = d
		}
	}
}

// WithIgnore replaces the ignore patterns.
func WithIgnore(patterns []string) WatcherOption {
	return func(o *WatcherOptions) {
		o.Ignore = patterns
	}
}

// WithFilter sets an additional path filter.
func WithFilter(filter func(path string) bool) WatcherOption {
	return func(o *WatcherOptions) {
		o.Filter = filter
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(o *WatcherOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// =============================================================================
// Watcher
// =============================================================================

// Watcher batches file-system events and calls a handler once per quiet period.
//
// Description:
//
//	Directories are watched recursively; directories created while
//	running are added as they appear. Events for ignored or filtered paths
//	are dropped. Handler errors are logged and do not stop the loop.
//
// Thread Safety:
//
//	Run must be called once. AddRecursive may be called before Run.
type Watcher struct {
	fsw     *fsnotify.Watcher
	handler ChangeHandler
	ignore  *trackers.Convention
	options WatcherOptions
}

// NewWatcher creates a Watcher that calls handler after changes.
//
// Outputs:
//
//	*Watcher - Ready for AddRecursive and Run. Call Close when done.
//	error    - Non-nil when handler is nil, a pattern is malformed, or the
//	           OS watcher cannot be created.
func NewWatcher(handler ChangeHandler, opts ...WatcherOption) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watcher requires a handler")
	}
	options := DefaultWatcherOptions()
	for _, opt := range opts {
		opt(&options)
	}
	ignore, err := trackers.NewConvention(options.Ignore)
	if err != nil {
		return nil, fmt.Errorf("ignore patterns: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	return &Watcher{fsw: fsw, handler: handler, ignore: ignore, options: options}, nil
}

// AddRecursive watches root and every directory below it that is not ignored.
func (w *Watcher) AddRecursive(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", root, err)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignoredDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Run dispatches batched changes until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	logger := w.options.Logger
	pending := make(map[string]bool)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.handleEvent(event) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.options.Debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", slog.String("error", err.Error()))

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			logger.Info("change detected", slog.Int("paths", len(changed)))
			if err := w.handler(ctx, changed); err != nil {
				logger.Error("change handler failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Close releases the OS watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// handleEvent adds newly created directories and reports whether the event
// should trigger a run.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.ignoredDir(event.Name) {
				if err := w.AddRecursive(event.Name); err != nil {
					w.options.Logger.Warn("cannot watch new directory",
						slog.String("dir", event.Name),
						slog.String("error", err.Error()),
					)
				}
			}
			return false
		}
	}
	return w.Relevant(event.Name)
}

// Relevant reports whether a change to path should trigger a run.
func (w *Watcher) Relevant(path string) bool {
	if w.ignore.Matches(path) {
		return false
	}
	if w.options.Filter != nil && !w.options.Filter(path) {
		return false
	}
	return true
}

func (w *Watcher) ignoredDir(dir string) bool {
	return w.ignore.Matches(dir) || w.ignore.Matches(filepath.Join(dir, "_"))
}

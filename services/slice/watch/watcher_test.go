// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noop(context.Context, []string) error { return nil }

func TestNewWatcher_Validation(t *testing.T) {
	_, err := NewWatcher(nil)
	assert.Error(t, err)

	_, err = NewWatcher(noop, WithIgnore([]string{"[bad"}))
	assert.Error(t, err)
}

func TestWatcher_Relevant(t *testing.T) {
	w, err := NewWatcher(noop,
		WithLogger(quietLogger()),
		WithFilter(func(path string) bool { return !strings.HasSuffix(path, ".log") }),
	)
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.Relevant("/repo/src/main.js"))
	assert.False(t, w.Relevant("/repo/node_modules/vue/index.js"))
	assert.False(t, w.Relevant("/repo/.git/HEAD"))
	assert.False(t, w.Relevant("/repo/debug.log"))
	assert.True(t, w.ignoredDir("/repo/node_modules"))
	assert.False(t, w.ignoredDir("/repo/src"))
}

func TestWatcher_Run_DebouncedChange(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755))

	calls := make(chan []string, 8)
	w, err := NewWatcher(func(_ context.Context, changed []string) error {
		calls <- changed
		return nil
	}, WithDebounce(20*time.Millisecond), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.AddRecursive(root))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	target := filepath.Join(root, "main.js")
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "pkg", "x.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("import a from './a'"), 0o644))

	select {
	case changed := <-calls:
		assert.Contains(t, changed, target)
		for _, p := range changed {
			assert.NotContains(t, p, "node_modules")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

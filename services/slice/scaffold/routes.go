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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/depslice/services/slice/ast"
	"github.com/spf13/afero"
)

// DefaultMockComponent is written when the mock component does not exist.
const DefaultMockComponent = `<template>
  <div class="route-mock">{{ $route.fullPath }}</div>
</template>

<script>
export default {
  name: 'RouteMock'
}
</script>
`

// MockResult is the outcome for one route file.
type MockResult struct {
	File     string `json:"file"`
	Replaced int    `json:"replaced"`
	Error    string `json:"error,omitempty"`
}

// MockStats summarizes MockRoutes.
type MockStats struct {
	Total   int          `json:"total"`
	Success int          `json:"success"`
	Failed  int          `json:"failed"`
	Results []MockResult `json:"results"`
}

// MockRoutes points every lazily loaded route component at one mock component.
//
// Description:
//
//	Each `component: () => import('...')` target in the route files is
//	replaced with the mock component's path relative to the route file.
//	The original quote style is kept. The mock component is written with
//	DefaultMockComponent when it does not exist. Route files that are
//	missing are skipped; files that cannot be read, parsed or written are
//	counted as failed.
//
// Inputs:
//
//	ctx           - Context for cancellation.
//	fs            - File system holding the route files.
//	routeFiles    - Absolute route file paths (in the extracted tree).
//	mockComponent - Absolute path of the mock component.
//	logger        - Receives per-file problems. Nil uses slog.Default().
//
// Outputs:
//
//	*MockStats - Per-file results.
//	error      - Non-nil when the mock component cannot be written or ctx is done.
func MockRoutes(ctx context.Context, fs afero.Fs, routeFiles []string, mockComponent string, logger *slog.Logger) (*MockStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if ok, _ := afero.Exists(fs, mockComponent); !ok {
		if err := fs.MkdirAll(filepath.Dir(mockComponent), 0o755); err != nil {
			return nil, fmt.Errorf("creating mock component directory: %w", err)
		}
		if err := afero.WriteFile(fs, mockComponent, []byte(DefaultMockComponent), 0o644); err != nil {
			return nil, fmt.Errorf("writing mock component: %w", err)
		}
	}

	stats := &MockStats{Results: []MockResult{}}
	for _, file := range routeFiles {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("route mocking canceled: %w", err)
		}
		if ok, _ := afero.Exists(fs, file); !ok {
			logger.Warn("route file missing from target", slog.String("file", file))
			continue
		}
		stats.Total++

		n, err := mockRouteFile(ctx, fs, file, mockComponent)
		result := MockResult{File: file, Replaced: n}
		if err != nil {
			result.Error = err.Error()
			stats.Failed++
			logger.Warn("route file not mocked",
				slog.String("file", file),
				slog.String("error", err.Error()),
			)
		} else {
			stats.Success++
		}
		stats.Results = append(stats.Results, result)
	}
	return stats, nil
}

func mockRouteFile(ctx context.Context, fs afero.Fs, file, mockComponent string) (int, error) {
	content, err := afero.ReadFile(fs, file)
	if err != nil {
		return 0, err
	}
	spans, err := ast.FindRouteComponentImports(ctx, content, ast.ScriptLangFromExt(filepath.Ext(file)))
	if err != nil {
		return 0, err
	}
	if len(spans) == 0 {
		return 0, nil
	}

	rel := MockImportPath(file, mockComponent)
	var out bytes.Buffer
	var last uint32
	for _, s := range spans {
		quote := content[s.Start]
		out.Write(content[last:s.Start])
		out.WriteByte(quote)
		out.WriteString(rel)
		out.WriteByte(quote)
		last = s.End
	}
	out.Write(content[last:])

	info, err := fs.Stat(file)
	if err != nil {
		return 0, err
	}
	if err := afero.WriteFile(fs, file, out.Bytes(), info.Mode().Perm()); err != nil {
		return 0, err
	}
	return len(spans), nil
}

// MockImportPath returns mockComponent relative to routeFile's directory, as
// an import specifier.
func MockImportPath(routeFile, mockComponent string) string {
	rel, err := filepath.Rel(filepath.Dir(routeFile), mockComponent)
	if err != nil {
		return filepath.ToSlash(mockComponent)
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}

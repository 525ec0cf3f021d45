// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AleutianAI/depslice/services/slice/ast"
	"github.com/AleutianAI/depslice/services/slice/resolve"
	"github.com/AleutianAI/depslice/services/slice/trackers"
	"github.com/spf13/afero"
)

// run is the mutable state of one Collect call. It is never shared.
type run struct {
	c      *Collector
	logger *slog.Logger

	resolver *resolve.Resolver
	barrels  *trackers.BarrelResolver
	globs    *trackers.GlobResolver
	routes   *trackers.RouteTracker

	script    *ast.ScriptParser
	style     *ast.StyleParser
	component *ast.ComponentParser

	visited map[string]bool
	stack   []string
	stats   *Stats
}

func (c *Collector) newRun(logger *slog.Logger) (*run, error) {
	o := c.options
	resolverOpts := []resolve.ResolverOption{
		resolve.WithExternalMarker(o.ExternalMarker),
		resolve.WithCacheSize(o.StatCacheSize),
		resolve.WithLogger(logger),
	}
	if len(o.Extensions) > 0 {
		resolverOpts = append(resolverOpts, resolve.WithExtensions(o.Extensions))
	}
	resolver, err := resolve.NewResolver(c.fs, resolve.NewAliasTable(o.ProjectRoot, o.Aliases), resolverOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating resolver: %w", err)
	}

	script := ast.NewScriptParser(ast.WithScriptLogger(logger), ast.WithScriptMaxFileSize(int(o.MaxFileSize)))
	style := ast.NewStyleParser(resolver, ast.WithStyleLogger(logger), ast.WithStyleMaxFileSize(int(o.MaxFileSize)))
	return &run{
		c:        c,
		logger:   logger,
		resolver: resolver,
		barrels: trackers.NewBarrelResolver(c.fs, resolver,
			trackers.WithBarrelLogger(logger),
			trackers.WithBarrelMaxFileSize(o.MaxFileSize),
			trackers.WithBarrelAggregators(c.aggregators),
		),
		globs: trackers.NewGlobResolver(c.fs,
			trackers.WithGlobLogger(logger),
			trackers.WithGlobExternalMarker(o.ExternalMarker),
			trackers.WithGlobMaxFileSize(o.MaxFileSize),
		),
		routes:    trackers.NewRouteTracker(c.routes),
		script:    script,
		style:     style,
		component: ast.NewComponentParser(script, style, ast.WithTemplateAttributes(o.TemplateAttributes), ast.WithComponentLogger(logger)),
		visited:   make(map[string]bool),
		stats:     newStats(),
	}, nil
}

// enqueue pushes path unless it has already been visited.
func (r *run) enqueue(path string) {
	if !r.visited[path] {
		r.stack = append(r.stack, path)
	}
}

// drain processes the worklist until it is empty or ctx is done.
func (r *run) drain(ctx context.Context) error {
	for len(r.stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := len(r.stack) - 1
		file := r.stack[n]
		r.stack = r.stack[:n]
		if r.visited[file] {
			continue
		}
		r.visited[file] = true
		r.process(ctx, file)
	}
	return nil
}

// files returns the visited set, sorted.
func (r *run) files() []string {
	out := make([]string, 0, len(r.visited))
	for f := range r.visited {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// parserFor names the parser used for ext, or "" for assets.
func (r *run) parserFor(ext string) string {
	if !r.c.textExts[ext] {
		return ""
	}
	switch {
	case ext == ".vue":
		return "component"
	case ast.IsScriptExt(ext):
		return "script"
	case ext == ".css", ext == ".scss", ext == ".sass", ext == ".less":
		return "style"
	}
	return ""
}

// process reads and parses one file and feeds its specifiers to the pipeline.
func (r *run) process(ctx context.Context, file string) {
	ext := strings.ToLower(filepath.Ext(file))
	parser := r.parserFor(ext)
	if parser == "" {
		return
	}

	ctx, span := startFileSpan(ctx, file, parser)
	defer span.End()

	info, err := r.c.fs.Stat(file)
	if err == nil && info.Size() > r.c.options.MaxFileSize {
		r.logger.Warn("file too large to parse, including as-is",
			slog.String("file", file),
			slog.Int64("size", info.Size()),
		)
		return
	}
	content, err := afero.ReadFile(r.c.fs, file)
	if err != nil {
		r.stats.ReadFailures++
		RecordFileFailure("read", parser)
		r.logger.Warn("cannot read file",
			slog.String("file", file),
			slog.String("error", err.Error()),
		)
		return
	}

	var specs []ast.Specifier
	switch parser {
	case "component":
		specs, err = r.component.Parse(ctx, content, file)
	case "script":
		specs, err = r.script.Parse(ctx, content, file, ast.ScriptLangFromExt(ext))
	case "style":
		specs, err = r.style.Parse(ctx, content, file, ast.DialectFromExt(ext))
	}
	if err != nil {
		r.stats.ParseFailures++
		RecordFileFailure("parse", parser)
		r.logger.Warn("cannot parse file",
			slog.String("file", file),
			slog.String("parser", parser),
			slog.String("error", err.Error()),
		)
	}

	for _, spec := range specs {
		r.push(ctx, spec)
	}
}

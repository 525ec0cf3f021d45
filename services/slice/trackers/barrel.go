// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trackers

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/AleutianAI/depslice/services/slice/ast"
	"github.com/AleutianAI/depslice/services/slice/resolve"
	"github.com/spf13/afero"
)

// Resolver maps a specifier to a file for the trackers.
//
// *resolve.Resolver satisfies it.
type Resolver interface {
	Resolve(contextDir, specifier string) resolve.Result
}

// CacheStats counts cache lookups.
type CacheStats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

// BarrelResolver traces symbols through aggregator modules to the files
// that define them.
//
// Description:
//
//	For each requested symbol the aggregator's export table is consulted:
//
//	  - a local declaration maps the symbol to the aggregator itself
//	  - a named re-export (direct, or import-then-export) maps it to the
//	    resolved source, following that source further only when it is
//	    itself an aggregator that re-exports the name again
//	  - otherwise each `export * from` source is checked in declaration
//	    order; the first whose own exports provide the symbol wins, and
//	    when none can be verified the first resolvable star source is used
//
//	Every step of one symbol's resolution records file|symbol in a visited
//	set, so circular re-exports terminate. Symbols that cannot be traced
//	are absent from the result. Results are cached per (file, sorted
//	symbols) for the lifetime of the BarrelResolver, which is one run.
//
// Thread Safety:
//
//	Safe for concurrent use. Caches are guarded by a mutex.
type BarrelResolver struct {
	fs       afero.Fs
	resolver Resolver
	options  BarrelOptions

	mu      sync.Mutex
	results map[string]map[string]string
	exports map[string]*ast.ExportTable
	stats   CacheStats
}

// BarrelOptions configures BarrelResolver behavior.
type BarrelOptions struct {
	// MaxDepth bounds re-export chains per symbol.
	// Default: 32
	MaxDepth int

	// MaxFileSize skips export analysis of larger files.
	// Default: 10MB
	MaxFileSize int64

	// Aggregators identifies the modules a re-export chain is followed
	// into. A named symbol that resolves to any other module stops there.
	// Default: nil (every script module is followed)
	Aggregators *Convention

	// Logger receives warnings about unreadable or malformed aggregators.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultBarrelOptions returns the default options.
func DefaultBarrelOptions() BarrelOptions {
	return BarrelOptions{
		MaxDepth:    32,
		MaxFileSize: 10 * 1024 * 1024,
		Logger:      slog.Default(),
	}
}

// BarrelOption is a functional option for configuring BarrelResolver.
type BarrelOption func(*BarrelOptions)

// WithBarrelLogger sets the logger.
func WithBarrelLogger(logger *slog.Logger) BarrelOption {
	return func(o *BarrelOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithBarrelMaxDepth sets the re-export chain bound.
func WithBarrelMaxDepth(depth int) BarrelOption {
	return func(o *BarrelOptions) {
		if depth > 0 {
			o.MaxDepth = depth
		}
	}
}

// WithBarrelMaxFileSize sets the analysis size limit.
func WithBarrelMaxFileSize(size int64) BarrelOption {
	return func(o *BarrelOptions) {
		if size > 0 {
			o.MaxFileSize = size
		}
	}
}

// WithBarrelAggregators sets the aggregator convention that bounds
// re-export chains.
func WithBarrelAggregators(c *Convention) BarrelOption {
	return func(o *BarrelOptions) {
		o.Aggregators = c
	}
}

// NewBarrelResolver creates a BarrelResolver.
func NewBarrelResolver(fs afero.Fs, resolver Resolver, opts ...BarrelOption) *BarrelResolver {
	options := DefaultBarrelOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &BarrelResolver{
		fs:       fs,
		resolver: resolver,
		options:  options,
		results:  make(map[string]map[string]string),
		exports:  make(map[string]*ast.ExportTable),
	}
}

// ResolveSymbols maps each requested symbol to its defining file.
//
// Inputs:
//
//	ctx            - Context for cancellation.
//	aggregatorPath - Absolute path of the aggregator module.
//	symbols        - Requested names. The namespace sentinel is ignored.
//
// Outputs:
//
//	map[string]string - Symbol to absolute file. Untraceable symbols are
//	                    absent. The map is a copy and may be modified.
func (b *BarrelResolver) ResolveSymbols(ctx context.Context, aggregatorPath string, symbols []string) map[string]string {
	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s != ast.NamespaceSymbol && s != "" {
			names = append(names, s)
		}
	}
	sort.Strings(names)
	key := aggregatorPath + "\x00" + strings.Join(names, ",")

	b.mu.Lock()
	if cached, ok := b.results[key]; ok {
		b.stats.Hits++
		b.mu.Unlock()
		return copyMap(cached)
	}
	b.stats.Misses++
	b.mu.Unlock()

	out := make(map[string]string, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		visited := make(map[string]bool)
		if file, ok := b.resolveSymbol(ctx, aggregatorPath, name, visited, 0); ok {
			out[name] = file
		}
	}

	b.mu.Lock()
	b.results[key] = out
	b.mu.Unlock()
	return copyMap(out)
}

// Stats returns result cache counters.
func (b *BarrelResolver) Stats() CacheStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// resolveSymbol traces one symbol starting at file.
func (b *BarrelResolver) resolveSymbol(ctx context.Context, file, symbol string, visited map[string]bool, depth int) (string, bool) {
	key := file + "|" + symbol
	if visited[key] || depth > b.options.MaxDepth {
		return "", false
	}
	visited[key] = true

	table := b.exportTable(ctx, file)
	if table == nil {
		return "", false
	}
	if depth > 0 && !b.follows(file) {
		// A plain module providing the name is itself the defining file,
		// whatever it imports or re-exports.
		if _, ok := table.Named[symbol]; ok {
			return file, true
		}
		return "", false
	}
	dir := filepath.Dir(file)

	if binding, ok := table.Named[symbol]; ok {
		if binding.IsLocal() {
			return file, true
		}
		target, ok := b.resolveLocal(dir, binding.Source)
		if !ok {
			return "", false
		}
		if binding.Imported == ast.NamespaceSymbol {
			return target, true
		}
		if deeper, ok := b.resolveSymbol(ctx, target, binding.Imported, visited, depth+1); ok {
			return deeper, true
		}
		return target, true
	}

	var fallback string
	for _, src := range table.StarSources {
		target, ok := b.resolveLocal(dir, src)
		if !ok {
			continue
		}
		if fallback == "" {
			fallback = target
		}
		if found, ok := b.resolveSymbol(ctx, target, symbol, visited, depth+1); ok {
			return found, true
		}
	}
	if fallback != "" && depth == 0 {
		return fallback, true
	}
	return "", false
}

// follows reports whether re-export chains continue into file.
func (b *BarrelResolver) follows(file string) bool {
	return b.options.Aggregators == nil || b.options.Aggregators.Matches(file)
}

// resolveLocal resolves spec from dir, rejecting failures and external files.
func (b *BarrelResolver) resolveLocal(dir, spec string) (string, bool) {
	res := b.resolver.Resolve(dir, spec)
	if !res.OK() || res.External() {
		return "", false
	}
	return res.Path, true
}

// exportTable returns the cached export table of a script file, or nil.
func (b *BarrelResolver) exportTable(ctx context.Context, file string) *ast.ExportTable {
	b.mu.Lock()
	table, ok := b.exports[file]
	b.mu.Unlock()
	if ok {
		return table
	}

	table = b.analyze(ctx, file)
	b.mu.Lock()
	b.exports[file] = table
	b.mu.Unlock()
	return table
}

func (b *BarrelResolver) analyze(ctx context.Context, file string) *ast.ExportTable {
	ext := filepath.Ext(file)
	if !ast.IsScriptExt(ext) {
		return nil
	}
	if info, err := b.fs.Stat(file); err != nil || info.Size() > b.options.MaxFileSize {
		return nil
	}
	content, err := afero.ReadFile(b.fs, file)
	if err != nil {
		b.options.Logger.Warn("cannot read aggregator",
			slog.String("file", file),
			slog.String("error", err.Error()),
		)
		return nil
	}
	table, err := ast.AnalyzeExports(ctx, content, ast.ScriptLangFromExt(ext))
	if err != nil {
		b.options.Logger.Warn("export analysis failed",
			slog.String("file", file),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return table
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

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
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/depslice/services/slice/trackers"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ErrEmptyEntries is returned by Collect when no entry paths are given.
var ErrEmptyEntries = errors.New("at least one entry path is required")

// Default conventions.
var (
	// DefaultTextExtensions are the file kinds whose content is parsed.
	DefaultTextExtensions = []string{".vue", ".js", ".ts", ".jsx", ".tsx", ".mjs", ".cjs", ".css", ".scss", ".less"}

	// DefaultAggregatorPatterns identify aggregator (barrel) modules.
	DefaultAggregatorPatterns = []string{"**/index.js", "**/index.ts"}

	// DefaultManifestPatterns identify candidate directory-glob manifests.
	DefaultManifestPatterns = []string{"**/index.js", "**/index.ts", "**/install.js", "**/install.ts"}
)

// Result is the output of one collection run.
type Result struct {
	// RunID identifies the run in logs and reports.
	RunID string `json:"runId"`

	// Entries are the entry paths that existed, in the order given.
	Entries []string `json:"entries"`

	// Files is the dependency file set, sorted.
	Files []string `json:"files"`

	Stats Stats `json:"stats"`

	// Routes maps each source file to the route files it references.
	Routes     map[string][]string `json:"routes"`
	RouteStats trackers.RouteStats `json:"routeStats"`

	BarrelCache trackers.CacheStats `json:"barrelCache"`
	GlobCache   trackers.CacheStats `json:"globCache"`

	Duration time.Duration `json:"duration"`
}

// RouteFiles returns every referenced route file, sorted.
func (r *Result) RouteFiles() []string {
	seen := make(map[string]bool)
	var out []string
	for _, routes := range r.Routes {
		for _, f := range routes {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Collector discovers the files reachable from a set of entry files.
//
// Description:
//
//	Collector holds configuration only. Every Collect call builds fresh
//	run state (resolver, stat cache, tracker caches, route tracker, visited
//	set, worklist and statistics), so repeated or concurrent runs never
//	share mutable state.
//
//	A run is a depth-first worklist traversal. Each popped file is visited
//	once: asset kinds are included without reading; text kinds are read
//	and parsed, and every specifier found goes through the resolution
//	pipeline, which may push more files. Read and parse failures are
//	logged and skipped.
//
// Thread Safety:
//
//	Safe for concurrent use. Each Collect call is independent.
//
// Example:
//
//	c, err := graph.NewCollector(afero.NewOsFs(), graph.WithProjectRoot("/repo"),
//	    graph.WithAliases(map[string][]string{"@": {"src"}}))
//	if err != nil {
//	    return err
//	}
//	result, err := c.Collect(ctx, []string{"/repo/src/main.js"})
type Collector struct {
	fs      afero.Fs
	options CollectorOptions

	routes      *trackers.Convention
	aggregators *trackers.Convention
	manifests   *trackers.Convention
	textExts    map[string]bool
}

// CollectorOptions configures Collector behavior.
type CollectorOptions struct {
	// ProjectRoot anchors relative alias targets and relative entries.
	// Default: current working directory
	ProjectRoot string

	// Aliases maps alias keys to target directories relative to ProjectRoot.
	// Default: none
	Aliases map[string][]string

	// Extensions is the resolver's extension probe order.
	// Default: resolve.DefaultResolverOptions().Extensions
	Extensions []string

	// TextExtensions are parsed; anything else is an asset.
	// Default: DefaultTextExtensions
	TextExtensions []string

	// ExternalMarker is the external package path segment.
	// Default: node_modules
	ExternalMarker string

	// RoutePatterns, AggregatorPatterns and ManifestPatterns are doublestar globs.
	RoutePatterns      []string
	AggregatorPatterns []string
	ManifestPatterns   []string

	// TemplateAttributes are component template attributes holding resource paths.
	// Default: src, href
	TemplateAttributes []string

	// MaxFileSize is the largest file parsed; larger files are included unparsed.
	// Default: 10MB
	MaxFileSize int64

	// StatCacheSize bounds the resolver's stat cache.
	// Default: 4096
	StatCacheSize int

	// Logger receives run progress and per-file problems.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultCollectorOptions returns the default options.
func DefaultCollectorOptions() CollectorOptions {
	return CollectorOptions{
		TextExtensions:     DefaultTextExtensions,
		ExternalMarker:     "node_modules",
		RoutePatterns:      trackers.DefaultRoutePatterns,
		AggregatorPatterns: DefaultAggregatorPatterns,
		ManifestPatterns:   DefaultManifestPatterns,
		TemplateAttributes: []string{"src", "href"},
		MaxFileSize:        10 * 1024 * 1024,
		StatCacheSize:      4096,
		Logger:             slog.Default(),
	}
}

// CollectorOption is a functional option for configuring Collector.
type CollectorOption func(*CollectorOptions)

// WithProjectRoot sets the project root.
func WithProjectRoot(root string) CollectorOption {
	return func(o *CollectorOptions) {
		o.ProjectRoot = root
	}
}

// WithAliases sets the alias table.
func WithAliases(aliases map[string][]string) CollectorOption {
	return func(o *CollectorOptions) {
		o.Aliases = aliases
	}
}

// WithExtensions sets the extension probe order.
func WithExtensions(exts []string) CollectorOption {
	return func(o *CollectorOptions) {
		if len(exts) > 0 {
			o.Extensions = exts
		}
	}
}

// WithTextExtensions sets the parsed file kinds.
func WithTextExtensions(exts []string) CollectorOption {
	return func(o *CollectorOptions) {
		if len(exts) > 0 {
			o.TextExtensions = exts
		}
	}
}

// WithExternalMarker sets the external package path segment.
func WithExternalMarker(marker string) CollectorOption {
	return func(o *CollectorOptions) {
		if marker != "" {
			o.ExternalMarker = marker
		}
	}
}

// WithRoutePatterns sets the route-file convention.
func WithRoutePatterns(patterns []string) CollectorOption {
	return func(o *CollectorOptions) {
		o.RoutePatterns = patterns
	}
}

// WithAggregatorPatterns sets the aggregator convention.
func WithAggregatorPatterns(patterns []string) CollectorOption {
	return func(o *CollectorOptions) {
		o.AggregatorPatterns = patterns
	}
}

// WithManifestPatterns sets the directory-glob manifest convention.
func WithManifestPatterns(patterns []string) CollectorOption {
	return func(o *CollectorOptions) {
		o.ManifestPatterns = patterns
	}
}

// WithTemplateAttributes sets the component template attributes to scan.
func WithTemplateAttributes(attrs []string) CollectorOption {
	return func(o *CollectorOptions) {
		if len(attrs) > 0 {
			o.TemplateAttributes = attrs
		}
	}
}

// WithMaxFileSize sets the largest parsed file.
func WithMaxFileSize(size int64) CollectorOption {
	return func(o *CollectorOptions) {
		if size > 0 {
			o.MaxFileSize = size
		}
	}
}

// WithStatCacheSize sets the resolver stat cache capacity.
func WithStatCacheSize(size int) CollectorOption {
	return func(o *CollectorOptions) {
		if size > 0 {
			o.StatCacheSize = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CollectorOption {
	return func(o *CollectorOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// NewCollector creates a Collector over fs.
//
// Outputs:
//
//	*Collector - Ready to use.
//	error      - Non-nil when fs is nil or a path pattern is malformed.
func NewCollector(fs afero.Fs, opts ...CollectorOption) (*Collector, error) {
	if fs == nil {
		return nil, fmt.Errorf("collector requires a file system")
	}
	options := DefaultCollectorOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.ProjectRoot == "" {
		wd, err := filepath.Abs(".")
		if err != nil {
			return nil, fmt.Errorf("determining project root: %w", err)
		}
		options.ProjectRoot = wd
	}

	c := &Collector{fs: fs, options: options, textExts: make(map[string]bool)}
	var err error
	if c.routes, err = trackers.NewConvention(options.RoutePatterns); err != nil {
		return nil, fmt.Errorf("route patterns: %w", err)
	}
	if c.aggregators, err = trackers.NewConvention(options.AggregatorPatterns); err != nil {
		return nil, fmt.Errorf("aggregator patterns: %w", err)
	}
	if c.manifests, err = trackers.NewConvention(options.ManifestPatterns); err != nil {
		return nil, fmt.Errorf("manifest patterns: %w", err)
	}
	for _, ext := range options.TextExtensions {
		c.textExts[strings.ToLower(ext)] = true
	}
	return c, nil
}

// Options returns the collector's effective options.
func (c *Collector) Options() CollectorOptions {
	return c.options
}

// Collect discovers every file reachable from entries.
//
// Description:
//
//	Entries that do not exist are skipped. Relative entries are joined to
//	the project root. Context cancellation is checked between files.
//
// Inputs:
//
//	ctx     - Context for cancellation and tracing.
//	entries - Entry file paths. Must not be empty.
//
// Outputs:
//
//	*Result - Files, statistics and route references of the run.
//	error   - ErrEmptyEntries, a run setup failure, or the context error.
func (c *Collector) Collect(ctx context.Context, entries []string) (*Result, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyEntries
	}
	runID := uuid.NewString()
	start := time.Now()
	ctx, span := startCollectSpan(ctx, runID, len(entries))
	defer span.End()

	logger := c.options.Logger.With(slog.String("run_id", runID))
	r, err := c.newRun(logger)
	if err != nil {
		setCollectSpanResult(span, 0, newStats(), err)
		return nil, err
	}

	var existing []string
	for _, entry := range entries {
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(c.options.ProjectRoot, entry)
		}
		entry = filepath.Clean(entry)
		if !r.resolver.IsFile(entry) {
			logger.Warn("skipping missing entry", slog.String("file", entry))
			continue
		}
		existing = append(existing, entry)
	}
	for i := len(existing) - 1; i >= 0; i-- {
		r.enqueue(existing[i])
	}

	err = r.drain(ctx)
	files := r.files()
	setCollectSpanResult(span, len(files), r.stats, err)
	recordCollectMetrics(ctx, time.Since(start), len(files), err == nil)
	recordCacheStats("barrel", r.barrels.Stats())
	recordCacheStats("glob", r.globs.Stats())
	if err != nil {
		return nil, fmt.Errorf("collection canceled: %w", err)
	}

	result := &Result{
		RunID:       runID,
		Entries:     existing,
		Files:       files,
		Stats:       r.stats.clone(),
		Routes:      r.routes.ReferenceMap(),
		RouteStats:  r.routes.Stats(),
		BarrelCache: r.barrels.Stats(),
		GlobCache:   r.globs.Stats(),
		Duration:    time.Since(start),
	}
	logger.Info("collection complete",
		slog.Int("files", len(result.Files)),
		slog.Int("resolutions", result.Stats.TotalResolutions),
		slog.Int("failed", result.Stats.FailedResolutions),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

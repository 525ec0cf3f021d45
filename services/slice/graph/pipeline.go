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
	"log/slog"

	"github.com/AleutianAI/depslice/services/slice/ast"
)

// push runs one specifier through the resolution pipeline.
//
// Description:
//
//  1. Resolve. A failure is recorded and ends the pipeline.
//  2. External package files are recorded but never enqueued.
//  3. Route files have the reference recorded; enqueueing continues.
//  4. A module matching the manifest convention with a usable glob
//     construct enqueues the files the glob yields, plus itself when the
//     request needs it.
//  5. A module matching the aggregator convention, referenced by specific
//     names only, enqueues the files defining those names, plus itself
//     when a name could not be traced.
//  6. Anything else is enqueued directly.
func (r *run) push(ctx context.Context, spec ast.Specifier) {
	res := r.resolver.Resolve(spec.Dir, spec.Raw)
	r.stats.record(spec, res)
	RecordResolution(res.OK(), res.Class.String(), res.Alias)
	if !res.OK() {
		r.logger.Debug("unresolved specifier",
			slog.String("specifier", spec.Raw),
			slog.String("from", spec.File),
			slog.String("reason", res.Err.Reason),
		)
		return
	}
	if res.External() {
		return
	}

	path := res.Path
	if r.routes.IsRouteFile(path) {
		r.routes.RecordReference(spec.File, path)
	}

	if r.c.manifests.Matches(path) && r.pushManifest(ctx, path, spec.Symbols) {
		return
	}

	if r.c.aggregators.Matches(path) && !spec.Symbols.HasNamespace() {
		r.pushAggregated(ctx, path, spec.Symbols.SpecificNames())
		return
	}

	r.enqueue(path)
}

// pushManifest enqueues a glob manifest's files. It reports false when
// path has no usable glob construct.
func (r *run) pushManifest(ctx context.Context, path string, symbols ast.SymbolInfo) bool {
	ctx, span := startTrackerSpan(ctx, "glob", path, len(symbols.Names))
	defer span.End()

	m := r.globs.Resolve(ctx, path, symbols.Names)
	if m.Kind == ast.ManifestNone {
		return false
	}
	for _, f := range m.Files {
		r.enqueue(f)
	}
	if m.IncludeSelf {
		r.enqueue(path)
	}
	r.logger.Debug("expanded glob manifest",
		slog.String("file", path),
		slog.String("kind", m.Kind.String()),
		slog.Int("files", len(m.Files)),
		slog.Bool("include_self", m.IncludeSelf),
	)
	return true
}

// pushAggregated enqueues the files defining names in the aggregator at path.
func (r *run) pushAggregated(ctx context.Context, path string, names []string) {
	ctx, span := startTrackerSpan(ctx, "barrel", path, len(names))
	defer span.End()

	defining := r.barrels.ResolveSymbols(ctx, path, names)
	needSelf := false
	for _, name := range names {
		file, ok := defining[name]
		if !ok {
			needSelf = true
			continue
		}
		r.enqueue(file)
	}
	if needSelf {
		r.enqueue(path)
	}
}

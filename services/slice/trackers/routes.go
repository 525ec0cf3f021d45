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
	"sort"
	"sync"
)

// DefaultRoutePatterns are the route-definition path conventions.
var DefaultRoutePatterns = []string{
	"**/src/router/**",
	"**/src/modules/*/src/routes/**",
	"**/src/modules/*/routes/**",
}

// RouteStats summarizes recorded route references.
type RouteStats struct {
	TotalSourceFiles int `json:"totalSourceFiles"`
	TotalRouteFiles  int `json:"totalRouteFiles"`
	TotalReferences  int `json:"totalReferences"`
}

// RouteTracker records which files reference route-definition files.
//
// Description:
//
//	Route files are recognized by path convention only. References are a
//	provenance side channel: recording one never changes what is
//	collected. Each source file keeps its route files in first-seen order
//	without duplicates.
//
// Thread Safety:
//
//	Safe for concurrent use.
type RouteTracker struct {
	convention *Convention

	mu    sync.Mutex
	order []string
	refs  map[string][]string
}

// NewRouteTracker creates a RouteTracker. A nil convention uses DefaultRoutePatterns.
func NewRouteTracker(convention *Convention) *RouteTracker {
	if convention == nil {
		convention = MustConvention(DefaultRoutePatterns...)
	}
	return &RouteTracker{convention: convention, refs: make(map[string][]string)}
}

// IsRouteFile reports whether path matches the route convention.
func (r *RouteTracker) IsRouteFile(path string) bool {
	return r.convention.Matches(path)
}

// RecordReference notes that sourceFile references routeFile.
func (r *RouteTracker) RecordReference(sourceFile, routeFile string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.refs[sourceFile]
	if !ok {
		r.order = append(r.order, sourceFile)
	}
	for _, f := range existing {
		if f == routeFile {
			return
		}
	}
	r.refs[sourceFile] = append(existing, routeFile)
}

// References returns the route files sourceFile references.
func (r *RouteTracker) References(sourceFile string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.refs[sourceFile]...)
}

// SourceFiles returns every file that referenced a route file, in first-seen order.
func (r *RouteTracker) SourceFiles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// RouteFiles returns every referenced route file, sorted.
func (r *RouteTracker) RouteFiles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.routeFilesLocked()
}

func (r *RouteTracker) routeFilesLocked() []string {
	seen := make(map[string]bool)
	var out []string
	for _, routes := range r.refs {
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

// ReferenceMap returns a copy of the source file to route files relation.
func (r *RouteTracker) ReferenceMap() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]string, len(r.refs))
	for k, v := range r.refs {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Stats returns aggregate counts.
func (r *RouteTracker) Stats() RouteStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, routes := range r.refs {
		total += len(routes)
	}
	return RouteStats{
		TotalSourceFiles: len(r.refs),
		TotalRouteFiles:  len(r.routeFilesLocked()),
		TotalReferences:  total,
	}
}

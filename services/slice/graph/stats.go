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
	"regexp"
	"sort"

	"github.com/AleutianAI/depslice/services/slice/ast"
	"github.com/AleutianAI/depslice/services/slice/resolve"
)

// modulePattern extracts the feature module name from a path under src/modules.
var modulePattern = regexp.MustCompile(`src[\\/]modules[\\/]([^\\/]+)`)

// Failure is one specifier that could not be resolved.
type Failure struct {
	Specifier string `json:"specifier"`
	From      string `json:"from"`
	File      string `json:"file"`
	Line      int    `json:"line,omitempty"`
	Reason    string `json:"reason"`
}

// Stats is the resolution statistics record of one run.
//
// TotalResolutions counts every attempt, successful or not, made for a
// specifier found in a collected file. Resolutions made internally by the
// aggregator and glob trackers are not counted.
type Stats struct {
	TotalResolutions    int            `json:"totalResolutions"`
	FailedResolutions   int            `json:"failedResolutions"`
	ExternalResolutions int            `json:"externalResolutions"`
	AliasUsage          map[string]int `json:"aliasUsage"`

	// Modules lists src/modules/<name> feature modules touched, in first-seen order.
	Modules []string `json:"modules"`

	// ByKind counts attempts per reference kind.
	ByKind map[string]int `json:"byKind"`

	Failures      []Failure `json:"failures"`
	ReadFailures  int       `json:"readFailures"`
	ParseFailures int       `json:"parseFailures"`
}

func newStats() *Stats {
	return &Stats{
		AliasUsage: make(map[string]int),
		ByKind:     make(map[string]int),
		Modules:    []string{},
		Failures:   []Failure{},
	}
}

// SuccessRate returns the percentage of successful resolutions.
// It is 0 when nothing was resolved.
func (s Stats) SuccessRate() float64 {
	if s.TotalResolutions == 0 {
		return 0
	}
	return float64(s.TotalResolutions-s.FailedResolutions) / float64(s.TotalResolutions) * 100
}

// AliasNames returns the aliases that were used, sorted.
func (s Stats) AliasNames() []string {
	names := make([]string, 0, len(s.AliasUsage))
	for name := range s.AliasUsage {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// record accounts for one resolution attempt.
func (s *Stats) record(spec ast.Specifier, res resolve.Result) {
	s.TotalResolutions++
	s.ByKind[spec.Symbols.Kind.String()]++
	if !res.OK() {
		s.FailedResolutions++
		s.Failures = append(s.Failures, Failure{
			Specifier: spec.Raw,
			From:      spec.Dir,
			File:      spec.File,
			Line:      spec.Line,
			Reason:    res.Err.Reason,
		})
		return
	}
	if res.Alias != "" {
		s.AliasUsage[res.Alias]++
	}
	if res.External() {
		s.ExternalResolutions++
		return
	}
	if m := modulePattern.FindStringSubmatch(res.Path); m != nil {
		for _, existing := range s.Modules {
			if existing == m[1] {
				return
			}
		}
		s.Modules = append(s.Modules, m[1])
	}
}

// clone returns a deep copy.
func (s *Stats) clone() Stats {
	out := *s
	out.AliasUsage = make(map[string]int, len(s.AliasUsage))
	for k, v := range s.AliasUsage {
		out.AliasUsage[k] = v
	}
	out.ByKind = make(map[string]int, len(s.ByKind))
	for k, v := range s.ByKind {
		out.ByKind[k] = v
	}
	out.Modules = append([]string{}, s.Modules...)
	out.Failures = append([]Failure{}, s.Failures...)
	return out
}

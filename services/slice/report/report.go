// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report turns a collection result into JSON, text and file-list
// reports, and renders terminal summaries.
package report

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/AleutianAI/depslice/services/slice/graph"
)

// NoExtension is the file type of paths without an extension.
const NoExtension = "no-extension"

// PathRef is a path given both absolute and relative to the project root.
type PathRef struct {
	Absolute string `json:"absolute"`
	Relative string `json:"relative"`
}

// FileEntry is one collected file.
type FileEntry struct {
	Absolute string `json:"absolute"`
	Relative string `json:"relative"`
	Type     string `json:"type"`
}

// Summary describes the run.
type Summary struct {
	RunID        string        `json:"runId"`
	ProjectRoot  string        `json:"projectRoot"`
	EntryFiles   []PathRef     `json:"entryFiles"`
	TotalFiles   int           `json:"totalFiles"`
	AnalysisTime time.Time     `json:"analysisTime"`
	Duration     time.Duration `json:"durationNs"`
}

// Statistics counts collected files by extension.
type Statistics struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"byType"`
}

// AliasStatistics is the resolution statistics section.
type AliasStatistics struct {
	TotalResolutions    int             `json:"totalResolutions"`
	FailedResolutions   int             `json:"failedResolutions"`
	ExternalResolutions int             `json:"externalResolutions"`
	SuccessRate         float64         `json:"successRate"`
	AliasUsage          map[string]int  `json:"aliasUsage"`
	Modules             []string        `json:"modules"`
	Failures            []graph.Failure `json:"failures"`
	ReadFailures        int             `json:"readFailures"`
	ParseFailures       int             `json:"parseFailures"`
}

// RouteStatistics is the route reference section.
type RouteStatistics struct {
	TotalRouteFiles  int                 `json:"totalRouteFiles"`
	TotalSourceFiles int                 `json:"totalSourceFiles"`
	RouteFiles       []PathRef           `json:"routeFiles"`
	References       map[string][]string `json:"references"`
}

// Report is the complete report of one run.
type Report struct {
	Summary         Summary         `json:"summary"`
	Statistics      Statistics      `json:"statistics"`
	AliasStatistics AliasStatistics `json:"aliasStatistics"`
	RouteStatistics RouteStatistics `json:"routeStatistics"`
	FileTree        string          `json:"fileTree"`
	FileList        []FileEntry     `json:"fileList"`
}

// Build assembles a report from a collection result.
//
// Inputs:
//
//	result      - The collection result. Must not be nil.
//	projectRoot - Root relative paths are computed against.
//	now         - Analysis timestamp.
func Build(result *graph.Result, projectRoot string, now time.Time) *Report {
	r := &Report{
		Summary: Summary{
			RunID:        result.RunID,
			ProjectRoot:  projectRoot,
			EntryFiles:   refs(result.Entries, projectRoot),
			TotalFiles:   len(result.Files),
			AnalysisTime: now.UTC(),
			Duration:     result.Duration,
		},
		Statistics: Statistics{
			Total:  len(result.Files),
			ByType: make(map[string]int),
		},
		AliasStatistics: AliasStatistics{
			TotalResolutions:    result.Stats.TotalResolutions,
			FailedResolutions:   result.Stats.FailedResolutions,
			ExternalResolutions: result.Stats.ExternalResolutions,
			SuccessRate:         result.Stats.SuccessRate(),
			AliasUsage:          result.Stats.AliasUsage,
			Modules:             result.Stats.Modules,
			Failures:            result.Stats.Failures,
			ReadFailures:        result.Stats.ReadFailures,
			ParseFailures:       result.Stats.ParseFailures,
		},
		RouteStatistics: RouteStatistics{
			TotalRouteFiles:  result.RouteStats.TotalRouteFiles,
			TotalSourceFiles: result.RouteStats.TotalSourceFiles,
			RouteFiles:       refs(result.RouteFiles(), projectRoot),
			References:       result.Routes,
		},
		FileTree: RenderTree(result.Files, projectRoot),
		FileList: make([]FileEntry, 0, len(result.Files)),
	}
	for _, f := range result.Files {
		typ := FileType(f)
		r.Statistics.ByType[typ]++
		r.FileList = append(r.FileList, FileEntry{Absolute: f, Relative: relative(projectRoot, f), Type: typ})
	}
	return r
}

// FileType returns the extension of path, or NoExtension.
func FileType(path string) string {
	if ext := filepath.Ext(path); ext != "" {
		return ext
	}
	return NoExtension
}

// Count is one row of a ranking.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AliasRanking orders alias usage by descending count, then name.
func AliasRanking(usage map[string]int) []Count {
	return rank(usage)
}

// TypeRanking orders file type counts by descending count, then type.
func TypeRanking(byType map[string]int) []Count {
	return rank(byType)
}

func rank(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for name, n := range counts {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func refs(paths []string, root string) []PathRef {
	out := make([]PathRef, 0, len(paths))
	for _, p := range paths {
		out = append(out, PathRef{Absolute: p, Relative: relative(root, p)})
	}
	return out
}

func relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

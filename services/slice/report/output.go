// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Report file names.
const (
	JSONFileName     = "dependency-report.json"
	TextFileName     = "dependency-report.txt"
	FileListFileName = "file-list.txt"
)

// Outputs selects the report files WriteFiles produces.
type Outputs struct {
	JSON     bool
	Text     bool
	FileList bool
}

// AllOutputs writes every report file.
var AllOutputs = Outputs{JSON: true, Text: true, FileList: true}

// Written lists the files WriteFiles produced. Empty fields were not selected.
type Written struct {
	JSONPath     string `json:"jsonPath,omitempty"`
	TextPath     string `json:"textPath,omitempty"`
	FileListPath string `json:"fileListPath,omitempty"`
}

// WriteFiles writes the selected report files into outDir, creating it.
//
// Outputs:
//
//	Written - Paths of the files written.
//	error   - Non-nil on the first write failure.
func WriteFiles(fs afero.Fs, r *Report, outDir string, sel Outputs) (Written, error) {
	var w Written
	if err := fs.MkdirAll(outDir, 0o755); err != nil {
		return w, fmt.Errorf("creating report directory: %w", err)
	}

	if sel.JSON {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return w, fmt.Errorf("encoding report: %w", err)
		}
		path := filepath.Join(outDir, JSONFileName)
		if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
			return w, fmt.Errorf("writing %s: %w", path, err)
		}
		w.JSONPath = path
	}
	if sel.Text {
		path := filepath.Join(outDir, TextFileName)
		if err := afero.WriteFile(fs, path, []byte(RenderText(r)), 0o644); err != nil {
			return w, fmt.Errorf("writing %s: %w", path, err)
		}
		w.TextPath = path
	}
	if sel.FileList {
		list := make([]string, 0, len(r.FileList))
		for _, f := range r.FileList {
			list = append(list, f.Absolute)
		}
		path := filepath.Join(outDir, FileListFileName)
		if err := afero.WriteFile(fs, path, []byte(strings.Join(list, "\n")), 0o644); err != nil {
			return w, fmt.Errorf("writing %s: %w", path, err)
		}
		w.FileListPath = path
	}
	return w, nil
}

// ReadJSON loads a report previously written by WriteFiles.
func ReadJSON(fs afero.Fs, path string) (*Report, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", path, err)
	}
	return &r, nil
}

// RenderText renders the plain-text report.
func RenderText(r *Report) string {
	var b strings.Builder
	rule := strings.Repeat("=", 50)

	b.WriteString("Dependency report\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Project root: %s\n", r.Summary.ProjectRoot)
	if len(r.Summary.EntryFiles) == 1 {
		fmt.Fprintf(&b, "Entry file: %s\n", r.Summary.EntryFiles[0].Relative)
	} else {
		fmt.Fprintf(&b, "Entry files: %d\n", len(r.Summary.EntryFiles))
		for i, e := range r.Summary.EntryFiles {
			fmt.Fprintf(&b, "   %d. %s\n", i+1, e.Relative)
		}
	}
	fmt.Fprintf(&b, "Total files: %d\n", r.Summary.TotalFiles)
	fmt.Fprintf(&b, "Analysis time: %s\n\n", r.Summary.AnalysisTime.Format(time.RFC3339))

	b.WriteString("File types:\n")
	for _, t := range TypeRanking(r.Statistics.ByType) {
		fmt.Fprintf(&b, "  %s: %d\n", t.Name, t.Count)
	}

	a := r.AliasStatistics
	b.WriteString("\nResolution statistics:\n")
	fmt.Fprintf(&b, "Total resolutions: %d\n", a.TotalResolutions)
	fmt.Fprintf(&b, "Failed: %d\n", a.FailedResolutions)
	fmt.Fprintf(&b, "External: %d\n", a.ExternalResolutions)
	fmt.Fprintf(&b, "Success rate: %.1f%%\n", a.SuccessRate)
	if ranked := AliasRanking(a.AliasUsage); len(ranked) > 0 {
		b.WriteString("\nAlias usage:\n")
		for i, c := range ranked {
			fmt.Fprintf(&b, "  %d. %s: %d\n", i+1, c.Name, c.Count)
		}
	}
	if len(a.Modules) > 0 {
		fmt.Fprintf(&b, "\nModules: %s\n", strings.Join(a.Modules, ", "))
	}
	if len(a.Failures) > 0 {
		b.WriteString("\nUnresolved:\n")
		for _, f := range a.Failures {
			fmt.Fprintf(&b, "  %s (from %s)\n", f.Specifier, f.File)
		}
	}

	if len(r.RouteStatistics.RouteFiles) > 0 {
		fmt.Fprintf(&b, "\nRoute files: %d\n", r.RouteStatistics.TotalRouteFiles)
		for _, rf := range r.RouteStatistics.RouteFiles {
			fmt.Fprintf(&b, "  %s\n", rf.Relative)
		}
	}

	b.WriteString("\nFile tree:\n")
	b.WriteString(r.FileTree)
	b.WriteString("\n" + rule + "\n")
	return b.String()
}

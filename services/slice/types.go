// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package slice

import (
	"github.com/AleutianAI/depslice/services/slice/graph"
	"github.com/AleutianAI/depslice/services/slice/report"
	"github.com/AleutianAI/depslice/services/slice/trackers"
)

// CollectRequest is the request for POST /v1/slice/collect.
type CollectRequest struct {
	// ProjectRoot is the absolute path to the project root directory.
	// Required.
	ProjectRoot string `json:"project_root" binding:"required"`

	// Entries are entry files, absolute or relative to ProjectRoot.
	// Required.
	Entries []string `json:"entries" binding:"required,min=1,dive,required"`

	// Aliases are added to the project's configured aliases, replacing keys
	// that already exist.
	Aliases map[string][]string `json:"aliases"`

	// IncludeReport adds the full report to the response.
	IncludeReport bool `json:"include_report"`
}

// CollectResponse is the response for POST /v1/slice/collect.
type CollectResponse struct {
	RunID       string              `json:"run_id"`
	ProjectRoot string              `json:"project_root"`
	Entries     []string            `json:"entries"`
	Files       []string            `json:"files"`
	Stats       graph.Stats         `json:"stats"`
	SuccessRate float64             `json:"success_rate"`
	Routes      map[string][]string `json:"routes"`
	RouteStats  trackers.RouteStats `json:"route_stats"`
	DurationMs  int64               `json:"duration_ms"`

	// Report is set when the request asked for it.
	Report *report.Report `json:"report,omitempty"`
}

// HealthResponse is the response for GET /v1/slice/health.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	ActiveRuns int64  `json:"active_runs"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}

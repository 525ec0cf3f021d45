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
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/depslice/services/slice/config"
	"github.com/AleutianAI/depslice/services/slice/graph"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers contains the HTTP handlers for the slice service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleCollect handles POST /v1/slice/collect.
//
// Description:
//
//	Collects the dependency file set of the given entries.
//
// Response:
//
//	200 OK: CollectResponse
//	400 Bad Request: Invalid body, path or configuration
//	404 Not Found: Project root does not exist
//	429 Too Many Requests: Concurrent run limit reached
//	504 Gateway Timeout: Run exceeded the time limit
func (h *Handlers) HandleCollect(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.svc.logger.With(slog.String("request_id", requestID), slog.String("handler", "HandleCollect"))

	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	logger.Info("collecting",
		slog.String("project_root", req.ProjectRoot),
		slog.Int("entries", len(req.Entries)),
	)

	resp, err := h.svc.Collect(c.Request.Context(), req)
	if err != nil {
		status, code := http.StatusInternalServerError, "COLLECT_FAILED"
		switch {
		case errors.Is(err, ErrRelativePath):
			status, code = http.StatusBadRequest, "INVALID_PATH"
		case errors.Is(err, ErrPathTraversal):
			status, code = http.StatusBadRequest, "PATH_NOT_ALLOWED"
		case errors.Is(err, ErrProjectNotFound):
			status, code = http.StatusNotFound, "PROJECT_NOT_FOUND"
		case errors.Is(err, graph.ErrEmptyEntries):
			status, code = http.StatusBadRequest, "NO_ENTRIES"
		case errors.Is(err, config.ErrInvalidConfig):
			status, code = http.StatusBadRequest, "INVALID_CONFIG"
		case errors.Is(err, ErrTooManyRuns):
			status, code = http.StatusTooManyRequests, "TOO_MANY_RUNS"
		case errors.Is(err, ErrCollectTimeout):
			status, code = http.StatusGatewayTimeout, "COLLECT_TIMEOUT"
		}
		logger.Error("collect failed", slog.String("error", err.Error()), slog.String("code", code))
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	logger.Info("collected",
		slog.String("run_id", resp.RunID),
		slog.Int("files", len(resp.Files)),
		slog.Int("failed", resp.Stats.FailedResolutions),
		slog.Int64("duration_ms", resp.DurationMs),
	)
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/slice/health.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		Version:    ServiceVersion,
		ActiveRuns: h.svc.ActiveRuns(),
	})
}

// getOrCreateRequestID returns the request's X-Request-ID, generating one
// when absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package slice serves dependency collection over HTTP.
package slice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/depslice/services/slice/config"
	"github.com/AleutianAI/depslice/services/slice/graph"
	"github.com/AleutianAI/depslice/services/slice/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spf13/afero"
)

// ServiceVersion is the slice service version.
const ServiceVersion = "0.1.0"

var (
	// ErrRelativePath is returned when the project root is not absolute.
	ErrRelativePath = errors.New("project root must be an absolute path")

	// ErrPathTraversal is returned when the project root has a ".." segment
	// or lies outside the allowed roots, or when an entry resolves outside
	// the project root.
	ErrPathTraversal = errors.New("project root is not allowed")

	// ErrProjectNotFound is returned when the project root does not exist.
	ErrProjectNotFound = errors.New("project root does not exist")

	// ErrTooManyRuns is returned when the concurrent run limit is reached.
	ErrTooManyRuns = errors.New("too many concurrent collection runs")

	// ErrCollectTimeout is returned when a run exceeds MaxCollectDuration.
	ErrCollectTimeout = errors.New("collection timed out")
)

var collectRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "depslice",
	Subsystem: "service",
	Name:      "collect_requests_total",
	Help:      "Collect requests by outcome.",
}, []string{"outcome"})

// ServiceConfig configures the slice service.
type ServiceConfig struct {
	// MaxCollectDuration bounds a single run.
	// Default: 2m
	MaxCollectDuration time.Duration

	// MaxConcurrentRuns bounds simultaneous runs.
	// Default: 4
	MaxConcurrentRuns int

	// AllowedRoots is an optional list of allowed project root prefixes.
	// If empty, all paths are allowed.
	AllowedRoots []string
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxCollectDuration: 2 * time.Minute,
		MaxConcurrentRuns:  4,
	}
}

// Service runs collections on behalf of HTTP clients.
//
// Description:
//
//	Every request loads the project's configuration and builds its own
//	Collector, so concurrent runs share no resolver, cache or statistics
//	state. A semaphore bounds the number of simultaneous runs.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	config ServiceConfig
	fs     afero.Fs
	logger *slog.Logger
	slots  chan struct{}
	active atomic.Int64
}

// NewService creates a Service reading projects from fs.
func NewService(cfg ServiceConfig, fs afero.Fs, logger *slog.Logger) *Service {
	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = DefaultServiceConfig().MaxConcurrentRuns
	}
	if cfg.MaxCollectDuration <= 0 {
		cfg.MaxCollectDuration = DefaultServiceConfig().MaxCollectDuration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config: cfg,
		fs:     fs,
		logger: logger,
		slots:  make(chan struct{}, cfg.MaxConcurrentRuns),
	}
}

// ActiveRuns returns the number of runs in progress.
func (s *Service) ActiveRuns() int64 {
	return s.active.Load()
}

// Collect runs one collection.
//
// Outputs:
//
//	*CollectResponse - The run result.
//	error            - ErrRelativePath, ErrPathTraversal, ErrProjectNotFound,
//	                   ErrTooManyRuns, ErrCollectTimeout, graph.ErrEmptyEntries,
//	                   config.ErrInvalidConfig, or a wrapped failure.
func (s *Service) Collect(ctx context.Context, req CollectRequest) (resp *CollectResponse, err error) {
	defer func() {
		collectRequests.WithLabelValues(outcomeLabel(err)).Inc()
	}()

	if err := s.validateProjectRoot(req.ProjectRoot); err != nil {
		return nil, err
	}
	root := filepath.Clean(req.ProjectRoot)

	select {
	case s.slots <- struct{}{}:
	default:
		return nil, ErrTooManyRuns
	}
	s.active.Add(1)
	defer func() {
		s.active.Add(-1)
		<-s.slots
	}()

	cfg, err := config.Load(s.fs, root, "")
	if err != nil {
		return nil, err
	}
	if !within(root, cfg.ProjectRoot) {
		return nil, fmt.Errorf("%w: configured project_root %s", ErrPathTraversal, cfg.ProjectRoot)
	}
	entries, err := containEntries(root, cfg.ProjectRoot, req.Entries)
	if err != nil {
		return nil, err
	}
	aliases := make(map[string][]string, len(cfg.Aliases)+len(req.Aliases))
	for k, v := range cfg.Aliases {
		aliases[k] = v
	}
	for k, v := range req.Aliases {
		aliases[k] = v
	}

	opts := append(cfg.CollectorOptions(s.logger), graph.WithAliases(aliases))
	collector, err := graph.NewCollector(s.fs, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.config.MaxCollectDuration)
	defer cancel()

	result, err := collector.Collect(runCtx, entries)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrCollectTimeout, s.config.MaxCollectDuration)
		}
		return nil, err
	}

	resp = &CollectResponse{
		RunID:       result.RunID,
		ProjectRoot: cfg.ProjectRoot,
		Entries:     result.Entries,
		Files:       result.Files,
		Stats:       result.Stats,
		SuccessRate: result.Stats.SuccessRate(),
		Routes:      result.Routes,
		RouteStats:  result.RouteStats,
		DurationMs:  result.Duration.Milliseconds(),
	}
	if req.IncludeReport {
		resp.Report = report.Build(result, cfg.ProjectRoot, time.Now())
	}
	return resp, nil
}

func (s *Service) validateProjectRoot(projectRoot string) error {
	if !filepath.IsAbs(projectRoot) {
		return ErrRelativePath
	}
	if hasParentSegment(projectRoot) {
		return ErrPathTraversal
	}
	projectRoot = filepath.Clean(projectRoot)
	if len(s.config.AllowedRoots) > 0 {
		allowed := false
		for _, root := range s.config.AllowedRoots {
			if within(filepath.Clean(root), projectRoot) {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrPathTraversal
		}
	}
	info, err := s.fs.Stat(projectRoot)
	if err != nil || !info.IsDir() {
		return ErrProjectNotFound
	}
	return nil
}

// containEntries makes every entry absolute, joining relative entries to
// projectRoot, and rejects any that clean to a path outside root.
func containEntries(root, projectRoot string, entries []string) ([]string, error) {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		abs := entry
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(projectRoot, abs)
		}
		abs = filepath.Clean(abs)
		if !within(root, abs) {
			return nil, fmt.Errorf("%w: entry %s", ErrPathTraversal, entry)
		}
		out = append(out, abs)
	}
	return out, nil
}

// within reports whether path is root or lies below it. Both must be clean.
func within(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// hasParentSegment reports whether p contains a ".." path segment.
func hasParentSegment(p string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTooManyRuns):
		return "rejected"
	case errors.Is(err, ErrCollectTimeout):
		return "timeout"
	default:
		return "error"
	}
}

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
	"sync"
	"time"

	"github.com/AleutianAI/depslice/services/slice/trackers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for collection runs.
var (
	tracer = otel.Tracer("depslice.graph")
	meter  = otel.Meter("depslice.graph")
)

// OpenTelemetry metrics for collection runs.
var (
	collectLatency metric.Float64Histogram
	collectTotal   metric.Int64Counter
	filesVisited   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// ==============================================================================
// Prometheus Metrics
// ==============================================================================

var (
	// resolutionsTotal counts resolution attempts by outcome and classification.
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "depslice",
		Subsystem: "graph",
		Name:      "resolutions_total",
		Help:      "Total specifier resolutions by outcome and classification",
	}, []string{"outcome", "class"})

	// aliasHitsTotal counts successful alias resolutions by alias.
	aliasHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "depslice",
		Subsystem: "graph",
		Name:      "alias_hits_total",
		Help:      "Total successful resolutions through each alias",
	}, []string{"alias"})

	// fileFailuresTotal counts files that could not be read or parsed.
	fileFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "depslice",
		Subsystem: "graph",
		Name:      "file_failures_total",
		Help:      "Total per-file read and parse failures by stage and parser",
	}, []string{"stage", "parser"})

	// trackerCacheTotal counts tracker cache lookups.
	trackerCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "depslice",
		Subsystem: "graph",
		Name:      "tracker_cache_lookups_total",
		Help:      "Total aggregator and glob tracker cache lookups by result",
	}, []string{"tracker", "result"})
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		collectLatency, err = meter.Float64Histogram(
			"depslice_collect_duration_seconds",
			metric.WithDescription("Duration of collection runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		collectTotal, err = meter.Int64Counter(
			"depslice_collect_total",
			metric.WithDescription("Total number of collection runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		filesVisited, err = meter.Int64Counter(
			"depslice_files_visited_total",
			metric.WithDescription("Total number of files visited by collection runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordCollectMetrics records metrics for a finished run.
func recordCollectMetrics(ctx context.Context, duration time.Duration, fileCount int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	collectLatency.Record(ctx, duration.Seconds(), attrs)
	collectTotal.Add(ctx, 1, attrs)
	filesVisited.Add(ctx, int64(fileCount))
}

// RecordResolution records one resolution outcome.
func RecordResolution(ok bool, class, alias string) {
	outcome := "success"
	if !ok {
		outcome = "failure"
		class = "none"
	}
	resolutionsTotal.WithLabelValues(outcome, class).Inc()
	if ok && alias != "" {
		aliasHitsTotal.WithLabelValues(alias).Inc()
	}
}

// RecordFileFailure records a file that could not be read or parsed.
func RecordFileFailure(stage, parser string) {
	fileFailuresTotal.WithLabelValues(stage, parser).Inc()
}

// recordCacheStats records tracker cache counters for a finished run.
func recordCacheStats(tracker string, stats trackers.CacheStats) {
	trackerCacheTotal.WithLabelValues(tracker, "hit").Add(float64(stats.Hits))
	trackerCacheTotal.WithLabelValues(tracker, "miss").Add(float64(stats.Misses))
}

// startCollectSpan creates a span for a collection run.
func startCollectSpan(ctx context.Context, runID string, entryCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Collector.Collect",
		trace.WithAttributes(
			attribute.String("depslice.run_id", runID),
			attribute.Int("depslice.entry_count", entryCount),
		),
	)
}

// setCollectSpanResult sets the result attributes on a collection span.
func setCollectSpanResult(span trace.Span, fileCount int, stats *Stats, err error) {
	span.SetAttributes(
		attribute.Int("depslice.file_count", fileCount),
		attribute.Int("depslice.resolutions_total", stats.TotalResolutions),
		attribute.Int("depslice.resolutions_failed", stats.FailedResolutions),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// startFileSpan creates a span for processing one file.
func startFileSpan(ctx context.Context, file, parser string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Collector.processFile",
		trace.WithAttributes(
			attribute.String("depslice.file", file),
			attribute.String("depslice.parser", parser),
		),
	)
}

// startTrackerSpan creates a span for an aggregator or glob resolution.
func startTrackerSpan(ctx context.Context, tracker, file string, symbolCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Tracker."+tracker,
		trace.WithAttributes(
			attribute.String("depslice.manifest", file),
			attribute.Int("depslice.symbol_count", symbolCount),
		),
	)
}

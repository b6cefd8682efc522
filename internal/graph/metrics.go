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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for graph operations.
var (
	tracer = otel.Tracer("codehealth.graph")
	meter  = otel.Meter("codehealth.graph")
)

// Metrics for graph algorithm runs.
var (
	algorithmLatency metric.Float64Histogram
	algorithmTotal   metric.Int64Counter
	snapshotNodes    metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		algorithmLatency, err = meter.Float64Histogram(
			"graph_algorithm_duration_seconds",
			metric.WithDescription("Duration of graph algorithm runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		algorithmTotal, err = meter.Int64Counter(
			"graph_algorithm_total",
			metric.WithDescription("Total number of graph algorithm runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		snapshotNodes, err = meter.Int64Histogram(
			"graph_algorithm_snapshot_nodes",
			metric.WithDescription("Node count of algorithm input snapshots"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordAlgorithm records one algorithm run. No-op when metric
// initialization failed; telemetry must never break an analysis.
func recordAlgorithm(ctx context.Context, name string, nodes int, start time.Time) {
	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("algorithm", name))
	algorithmLatency.Record(ctx, time.Since(start).Seconds(), attrs)
	algorithmTotal.Add(ctx, 1, attrs)
	snapshotNodes.Record(ctx, int64(nodes), attrs)
}

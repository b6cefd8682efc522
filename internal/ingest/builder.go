// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/codehealth/internal/graph"
)

// DefaultBatchSize is how many records are inserted between
// cancellation checks and progress reports.
const DefaultBatchSize = 512

var tracer = otel.Tracer("codehealth.ingest")

// ProgressPhase indicates which phase of a build is in progress.
type ProgressPhase int

const (
	// ProgressPhaseNodes indicates entity records are being inserted.
	ProgressPhaseNodes ProgressPhase = iota

	// ProgressPhaseEdges indicates relationship records are being inserted.
	ProgressPhaseEdges

	// ProgressPhaseFinalizing indicates the graph is being frozen.
	ProgressPhaseFinalizing
)

// String returns the string representation of the ProgressPhase.
func (p ProgressPhase) String() string {
	switch p {
	case ProgressPhaseNodes:
		return "nodes"
	case ProgressPhaseEdges:
		return "edges"
	case ProgressPhaseFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// BuildProgress contains progress information during a build.
type BuildProgress struct {
	// Phase is the current build phase.
	Phase ProgressPhase

	// Total is the number of records in the current phase.
	Total int

	// Processed is the number of records inserted so far.
	Processed int
}

// ProgressFunc is a callback for build progress updates.
type ProgressFunc func(progress BuildProgress)

// BuilderOptions configures Builder behavior.
type BuilderOptions struct {
	// Thresholds control backend selection. Zero fields fall back to
	// the defaults.
	Thresholds graph.SelectionThresholds

	// MaxNodes and MaxEdges cap the built graph.
	MaxNodes int
	MaxEdges int

	// BatchSize is records per cancellation check. Default: 512.
	BatchSize int

	// ProgressCallback is called once per batch. May be nil.
	ProgressCallback ProgressFunc
}

// DefaultBuilderOptions returns sensible defaults.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		Thresholds: graph.DefaultSelectionThresholds(),
		MaxNodes:   graph.DefaultMaxNodes,
		MaxEdges:   graph.DefaultMaxEdges,
		BatchSize:  DefaultBatchSize,
	}
}

// BuilderOption is a functional option for configuring Builder.
type BuilderOption func(*BuilderOptions)

// WithThresholds sets the backend selection thresholds.
func WithThresholds(t graph.SelectionThresholds) BuilderOption {
	return func(o *BuilderOptions) {
		o.Thresholds = t
	}
}

// WithMaxNodes sets the maximum number of nodes.
func WithMaxNodes(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxNodes = n
	}
}

// WithMaxEdges sets the maximum number of edges.
func WithMaxEdges(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxEdges = n
	}
}

// WithBatchSize sets the insertion batch size.
func WithBatchSize(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.BatchSize = n
	}
}

// WithProgressCallback sets the progress callback function.
func WithProgressCallback(fn ProgressFunc) BuilderOption {
	return func(o *BuilderOptions) {
		o.ProgressCallback = fn
	}
}

// BuildResult is the outcome of one build.
type BuildResult struct {
	// Graph is the built, frozen graph.
	Graph *graph.UnifiedGraph

	// Backend is which backend was selected.
	Backend graph.BackendKind

	// Stats is the built graph's statistics.
	Stats graph.Stats

	// Duration is the wall-clock build time.
	Duration time.Duration
}

// Builder constructs frozen graphs from parser snapshots.
//
// The builder is stateless; each Build call creates a new graph, so one
// Builder can be reused across repositories.
//
// # Thread Safety
//
// Safe for concurrent use. Each Build operates on its own graph.
type Builder struct {
	options BuilderOptions
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(opts ...BuilderOption) *Builder {
	options := DefaultBuilderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.BatchSize <= 0 {
		options.BatchSize = DefaultBatchSize
	}
	return &Builder{options: options}
}

// Build inserts every record of the snapshot into a freshly selected
// backend and freezes the result.
//
// # Description
//
// Nodes are inserted before edges so most edges bind to real nodes
// rather than placeholders. Insertion happens in batches with a
// cancellation check and an optional progress report between batches.
//
// # Inputs
//
//   - ctx: bounds the build.
//   - snap: the parser snapshot.
//
// # Outputs
//
//   - *BuildResult: the frozen graph plus build metadata.
//   - error: nil, ctx.Err(), or an insertion error such as
//     graph.ErrMaxNodesExceeded.
func (b *Builder) Build(ctx context.Context, snap Snapshot) (*BuildResult, error) {
	start := time.Now()

	est := snap.EstimateSize()
	ctx, span := tracer.Start(ctx, "ingest.Build", trace.WithAttributes(
		attribute.Int("snapshot_nodes", len(snap.Nodes)),
		attribute.Int("snapshot_edges", len(snap.Edges)),
		attribute.Int("estimated_files", est.Files),
		attribute.Int("estimated_functions", est.Functions),
	))
	defer span.End()

	g := graph.NewUnifiedGraphWithThresholds(est, b.options.Thresholds,
		graph.WithMaxNodes(b.options.MaxNodes),
		graph.WithMaxEdges(b.options.MaxEdges),
	)
	span.SetAttributes(attribute.String("backend", g.Backend().String()))

	for i := 0; i < len(snap.Nodes); i += b.options.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(i+b.options.BatchSize, len(snap.Nodes))
		if err := g.AddNodesBatch(snap.Nodes[i:end]); err != nil {
			return nil, fmt.Errorf("inserting nodes %d..%d: %w", i, end, err)
		}
		b.report(ProgressPhaseNodes, len(snap.Nodes), end)
	}

	for i := 0; i < len(snap.Edges); i += b.options.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(i+b.options.BatchSize, len(snap.Edges))
		if err := g.AddEdgesBatch(snap.Edges[i:end]); err != nil {
			return nil, fmt.Errorf("inserting edges %d..%d: %w", i, end, err)
		}
		b.report(ProgressPhaseEdges, len(snap.Edges), end)
	}

	b.report(ProgressPhaseFinalizing, 1, 0)
	g.Freeze()
	b.report(ProgressPhaseFinalizing, 1, 1)

	result := &BuildResult{
		Graph:    g,
		Backend:  g.Backend(),
		Stats:    g.Stats(),
		Duration: time.Since(start),
	}
	slog.Info("graph built",
		slog.String("backend", result.Backend.String()),
		slog.Int("nodes", g.NodeCount()),
		slog.Int("edges", g.EdgeCount()),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// report calls the progress callback if configured.
func (b *Builder) report(phase ProgressPhase, total, processed int) {
	if b.options.ProgressCallback == nil {
		return
	}
	b.options.ProgressCallback(BuildProgress{Phase: phase, Total: total, Processed: processed})
}

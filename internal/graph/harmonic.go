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
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// HarmonicCentrality computes harmonic centrality for every node.
//
// Description:
//
//	For every node v, sums the reciprocal shortest-path distance to every
//	other reachable node: Σ 1/d(v, u). Unreachable nodes contribute zero,
//	so unlike closeness centrality the measure is well-defined on the
//	disconnected graphs common in partially-analyzed repositories.
//
//	Same per-source-BFS, worker-parallel strategy as betweenness, without
//	the backtracking step: sources are sharded across a worker pool,
//	workers fill a private partial vector, partials are merged in a
//	single-threaded reduction.
//
// Inputs:
//
//   - ctx: Checked between sources; a cancelled context aborts with its error.
//   - q: Any Query implementation.
//   - opts: Configuration. If nil, defaults are used. Normalize divides
//     each score by (V-1).
//
// Outputs:
//
//   - map[string]float64: Score per qualified name. Empty graph gives an
//     empty map.
//   - error: Only a context error.
//
// Thread Safety: Safe for concurrent use on a frozen graph.
func HarmonicCentrality(ctx context.Context, q Query, opts *CentralityOptions) (map[string]float64, error) {
	options := DefaultCentralityOptions()
	if opts != nil {
		o := *opts
		options = &o
	}
	options.Validate()

	ctx, span := tracer.Start(ctx, "graph.HarmonicCentrality")
	defer span.End()
	start := time.Now()

	snap := takeSnapshot(q, options.EdgeKind)
	n := snap.size()
	span.SetAttributes(
		attribute.Int("nodes", n),
		attribute.String("edge_kind", options.EdgeKind.String()),
		attribute.Int("workers", options.Workers),
	)

	if n == 0 {
		return map[string]float64{}, nil
	}

	shards := sourceShards(n, options.Workers)
	partials := make([][]float64, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	for si, shard := range shards {
		si, shard := si, shard
		g.Go(func() error {
			dist := make([]int32, n)
			queue := make([]int32, 0, n)
			partial := make([]float64, n)
			for s := shard[0]; s < shard[1]; s++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				partial[s] = harmonicFromSource(snap, s, dist, queue)
			}
			partials[si] = partial
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := make([]float64, n)
	for _, partial := range partials {
		for i, v := range partial {
			total[i] += v
		}
	}

	if options.Normalize && n > 1 {
		scale := 1.0 / float64(n-1)
		for i := range total {
			total[i] *= scale
		}
	}

	scores := make(map[string]float64, n)
	for i, name := range snap.names {
		scores[name] = total[i]
	}

	recordAlgorithm(ctx, "harmonic", n, start)
	slog.Debug("harmonic centrality computed",
		slog.Int("nodes", n),
		slog.Int("workers", len(shards)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return scores, nil
}

// harmonicFromSource runs one source's BFS and returns Σ 1/d(s, u).
// dist and queue are caller-owned scratch buffers.
func harmonicFromSource(snap *snapshot, s int32, dist []int32, queue []int32) float64 {
	for i := range dist {
		dist[i] = -1
	}
	queue = queue[:0]
	dist[s] = 0
	queue = append(queue, s)

	sum := 0.0
	for head := 0; head < len(queue); head++ {
		v := queue[head]
		if v != s {
			sum += 1.0 / float64(dist[v])
		}
		for _, t := range snap.out[v] {
			if dist[t] < 0 {
				dist[t] = dist[v] + 1
				queue = append(queue, t)
			}
		}
	}
	return sum
}

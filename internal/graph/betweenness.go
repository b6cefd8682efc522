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

	"github.com/AleutianAI/codehealth/internal/entity"
)

// CentralityOptions configures the centrality algorithms.
type CentralityOptions struct {
	// EdgeKind selects which relationship to traverse.
	// Default: EdgeKindCalls.
	EdgeKind entity.EdgeKind

	// Workers is the worker-pool size for the per-source BFS phase.
	// Default: min(NumCPU, 8).
	Workers int

	// Normalize divides scores by the pair count: (V-1)(V-2) for
	// betweenness, (V-1) for harmonic.
	Normalize bool
}

// Validate checks options and applies defaults for invalid values.
func (o *CentralityOptions) Validate() {
	if o.EdgeKind <= entity.EdgeKindUnknown || o.EdgeKind >= entity.NumEdgeKinds {
		o.EdgeKind = entity.EdgeKindCalls
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers()
	}
}

// DefaultCentralityOptions returns sensible defaults.
func DefaultCentralityOptions() *CentralityOptions {
	return &CentralityOptions{
		EdgeKind: entity.EdgeKindCalls,
		Workers:  defaultWorkers(),
	}
}

// BetweennessCentrality computes Brandes betweenness for every node.
//
// Description:
//
//	For every node v, counts the shortest paths between all ordered pairs
//	(s, t) passing through v. Per source s: a BFS records shortest-path
//	distance, path counts, and predecessor sets; nodes are then processed
//	in reverse BFS-finish order, accumulating a dependency score backward
//	through predecessors. Unweighted edges only.
//
//	The per-source computation is independent across sources and is
//	sharded across a worker pool; each worker accumulates into a private
//	partial vector and the partials are summed in a single-threaded
//	reduction after all workers finish — no shared mutable state during
//	the parallel phase.
//
// Inputs:
//
//   - ctx: Checked between sources; a cancelled context aborts with its error.
//   - q: Any Query implementation.
//   - opts: Configuration. If nil, defaults are used.
//
// Outputs:
//
//   - map[string]float64: Score per qualified name. Empty graph gives an
//     empty map.
//   - error: Only a context error; the computation itself cannot fail.
//
// Performance: O(V*E) work, O(V+E) memory per worker.
//
// Thread Safety: Safe for concurrent use on a frozen graph.
func BetweennessCentrality(ctx context.Context, q Query, opts *CentralityOptions) (map[string]float64, error) {
	options := DefaultCentralityOptions()
	if opts != nil {
		o := *opts
		options = &o
	}
	options.Validate()

	ctx, span := tracer.Start(ctx, "graph.BetweennessCentrality")
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
			w := newBrandesWorker(snap)
			partial := make([]float64, n)
			for s := shard[0]; s < shard[1]; s++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				w.accumulate(s, partial)
			}
			partials[si] = partial
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Single-threaded reduction.
	total := make([]float64, n)
	for _, partial := range partials {
		for i, v := range partial {
			total[i] += v
		}
	}

	if options.Normalize && n > 2 {
		scale := 1.0 / (float64(n-1) * float64(n-2))
		for i := range total {
			total[i] *= scale
		}
	}

	scores := make(map[string]float64, n)
	for i, name := range snap.names {
		scores[name] = total[i]
	}

	recordAlgorithm(ctx, "betweenness", n, start)
	slog.Debug("betweenness centrality computed",
		slog.Int("nodes", n),
		slog.Int("workers", len(shards)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return scores, nil
}

// brandesWorker owns the scratch state for one worker's sequence of
// per-source BFS-and-backtrack passes. Buffers are reused across sources.
type brandesWorker struct {
	snap  *snapshot
	dist  []int32
	sigma []float64
	delta []float64
	preds [][]int32
	stack []int32
	queue []int32
}

func newBrandesWorker(snap *snapshot) *brandesWorker {
	n := snap.size()
	return &brandesWorker{
		snap:  snap,
		dist:  make([]int32, n),
		sigma: make([]float64, n),
		delta: make([]float64, n),
		preds: make([][]int32, n),
		stack: make([]int32, 0, n),
		queue: make([]int32, 0, n),
	}
}

// accumulate runs one source's BFS and dependency backtrack, adding each
// non-source node's dependency into partial.
func (w *brandesWorker) accumulate(s int32, partial []float64) {
	n := int32(len(w.dist))
	for i := int32(0); i < n; i++ {
		w.dist[i] = -1
		w.sigma[i] = 0
		w.delta[i] = 0
		w.preds[i] = w.preds[i][:0]
	}
	w.stack = w.stack[:0]
	w.queue = w.queue[:0]

	w.dist[s] = 0
	w.sigma[s] = 1
	w.queue = append(w.queue, s)

	for head := 0; head < len(w.queue); head++ {
		v := w.queue[head]
		w.stack = append(w.stack, v)
		for _, t := range w.snap.out[v] {
			if w.dist[t] < 0 {
				w.dist[t] = w.dist[v] + 1
				w.queue = append(w.queue, t)
			}
			if w.dist[t] == w.dist[v]+1 {
				w.sigma[t] += w.sigma[v]
				w.preds[t] = append(w.preds[t], v)
			}
		}
	}

	// Reverse BFS-finish order dependency accumulation.
	for i := len(w.stack) - 1; i >= 0; i-- {
		t := w.stack[i]
		for _, v := range w.preds[t] {
			w.delta[v] += w.sigma[v] / w.sigma[t] * (1 + w.delta[t])
		}
		if t != s {
			partial[t] += w.delta[t]
		}
	}
}

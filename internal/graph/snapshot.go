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
	"runtime"

	"github.com/AleutianAI/codehealth/internal/entity"
)

// Worker pool configuration for the parallel algorithms.
const (
	// maxAlgorithmWorkers caps the number of goroutines regardless of CPU
	// count. Memory-bound graph traversal doesn't benefit from excessive
	// parallelism.
	maxAlgorithmWorkers = 8
)

// defaultWorkers returns min(NumCPU, maxAlgorithmWorkers).
func defaultWorkers() int {
	n := runtime.NumCPU()
	if n > maxAlgorithmWorkers {
		n = maxAlgorithmWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// snapshot is an immutable integer view of one edge kind of a graph,
// taken once per algorithm run through the Query interface.
//
// Algorithms traverse int32 adjacency slices rather than calling back
// into the backend per node, so the per-source BFS inner loops are
// allocation-free and backend-agnostic. The snapshot holds no reference
// to backend internals; it is safe to use after the source graph is
// mutated (it simply describes the graph as it was).
type snapshot struct {
	// names maps snapshot index to qualified name.
	names []string

	// index maps qualified name to snapshot index.
	index map[string]int32

	// out is the outgoing adjacency for the chosen edge kind.
	out [][]int32
}

// takeSnapshot builds an integer snapshot of one edge kind.
func takeSnapshot(q Query, kind entity.EdgeKind) *snapshot {
	names := q.Nodes()
	s := &snapshot{
		names: names,
		index: make(map[string]int32, len(names)),
		out:   make([][]int32, len(names)),
	}
	for i, name := range names {
		s.index[name] = int32(i)
	}
	for i, name := range names {
		succ := q.Successors(name, kind)
		if len(succ) == 0 {
			continue
		}
		adj := make([]int32, 0, len(succ))
		for _, t := range succ {
			if ti, ok := s.index[t]; ok {
				adj = append(adj, ti)
			}
		}
		s.out[i] = adj
	}
	return s
}

// size returns the node count of the snapshot.
func (s *snapshot) size() int {
	return len(s.names)
}

// sourceShards splits [0, n) into per-worker contiguous shards.
// Returns at most workers shards; empty shards are omitted.
func sourceShards(n, workers int) [][2]int32 {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	shards := make([][2]int32, 0, workers)
	base := n / workers
	rem := n % workers
	start := 0
	for w := 0; w < workers; w++ {
		size := base
		if w < rem {
			size++
		}
		if size == 0 {
			continue
		}
		shards = append(shards, [2]int32{int32(start), int32(start + size)})
		start += size
	}
	return shards
}

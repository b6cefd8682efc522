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
	"slices"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/codehealth/internal/entity"
)

// Cycle is one non-trivial strongly connected component: a cluster of
// nodes each reachable from every other over one edge kind.
type Cycle struct {
	// Kind is the edge kind the cycle was detected over.
	Kind entity.EdgeKind `json:"kind"`

	// Nodes are the qualified names in the component.
	Nodes []string `json:"nodes"`
}

// Len returns the number of nodes in the cycle.
func (c Cycle) Len() int {
	return len(c.Nodes)
}

// FindCycles enumerates all cycles over one edge kind.
//
// Description:
//
//	Runs Tarjan's strongly-connected-component decomposition, O(V+E),
//	and reports each component with more than one node — or with a
//	self-loop — as exactly one cycle. A naive simple-cycle enumerator on
//	a densely connected subgraph of n nodes can produce up to O(n!)
//	distinct simple cycles; SCC decomposition reports each tangled
//	cluster once regardless of internal density, which is what a
//	detector needs to flag that a cycle exists.
//
//	The recursion of the textbook algorithm is replaced with an explicit
//	frame stack so deep graphs cannot overflow the goroutine stack.
//
// Outputs:
//
//	[]Cycle - All cycles found, sorted by length descending (longest
//	tangle first), ties broken by first node name. Never nil.
//	error - Only a context error.
func FindCycles(ctx context.Context, q Query, kind entity.EdgeKind) ([]Cycle, error) {
	ctx, span := tracer.Start(ctx, "graph.FindCycles",
		trace.WithAttributes(attribute.String("edge_kind", kind.String())),
	)
	defer span.End()
	start := time.Now()

	snap := takeSnapshot(q, kind)
	n := snap.size()
	span.SetAttributes(attribute.Int("nodes", n))

	// Tarjan state, indexed by snapshot id. -1 = unvisited.
	index := make([]int32, n)
	lowLink := make([]int32, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	next := int32(0)
	sccStack := make([]int32, 0, n)
	var sccs [][]int32

	// frame replaces one recursive call of the textbook algorithm.
	type frame struct {
		node      int32
		edgeIndex int
	}

	strongConnect := func(root int32) {
		callStack := []frame{{node: root}}
		index[root] = next
		lowLink[root] = next
		next++
		sccStack = append(sccStack, root)
		onStack[root] = true

		for len(callStack) > 0 {
			f := &callStack[len(callStack)-1]
			advanced := false

			for f.edgeIndex < len(snap.out[f.node]) {
				t := snap.out[f.node][f.edgeIndex]
				f.edgeIndex++
				if index[t] < 0 {
					// Descend into an unvisited child.
					index[t] = next
					lowLink[t] = next
					next++
					sccStack = append(sccStack, t)
					onStack[t] = true
					callStack = append(callStack, frame{node: t})
					advanced = true
					break
				}
				if onStack[t] && index[t] < lowLink[f.node] {
					lowLink[f.node] = index[t]
				}
			}
			if advanced {
				continue
			}

			// All edges processed: pop and propagate lowlink to parent.
			v := f.node
			callStack = callStack[:len(callStack)-1]
			if len(callStack) > 0 {
				p := &callStack[len(callStack)-1]
				if lowLink[v] < lowLink[p.node] {
					lowLink[p.node] = lowLink[v]
				}
			}
			if lowLink[v] == index[v] {
				var scc []int32
				for {
					w := sccStack[len(sccStack)-1]
					sccStack = sccStack[:len(sccStack)-1]
					onStack[w] = false
					scc = append(scc, w)
					if w == v {
						break
					}
				}
				sccs = append(sccs, scc)
			}
		}
	}

	for i := int32(0); i < int32(n); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if index[i] < 0 {
			strongConnect(i)
		}
	}

	cycles := make([]Cycle, 0)
	for _, scc := range sccs {
		if len(scc) == 1 && !slices.Contains(snap.out[scc[0]], scc[0]) {
			continue
		}
		names := make([]string, len(scc))
		for i, id := range scc {
			names[i] = snap.names[id]
		}
		cycles = append(cycles, Cycle{Kind: kind, Nodes: names})
	}

	sort.Slice(cycles, func(i, j int) bool {
		if len(cycles[i].Nodes) != len(cycles[j].Nodes) {
			return len(cycles[i].Nodes) > len(cycles[j].Nodes)
		}
		return cycles[i].Nodes[0] < cycles[j].Nodes[0]
	})

	recordAlgorithm(ctx, "cycles", n, start)
	slog.Debug("cycle detection completed",
		slog.String("edge_kind", kind.String()),
		slog.Int("nodes", n),
		slog.Int("cycles", len(cycles)),
	)
	return cycles, nil
}

// FindImportCycles enumerates cycles over Imports edges.
func FindImportCycles(ctx context.Context, q Query) ([]Cycle, error) {
	return FindCycles(ctx, q, entity.EdgeKindImports)
}

// FindCallCycles enumerates cycles over Calls edges.
func FindCallCycles(ctx context.Context, q Query) ([]Cycle, error) {
	return FindCycles(ctx, q, entity.EdgeKindCalls)
}

// ShortestCycleThrough returns the shortest concrete cycle passing through
// one node, over one edge kind.
//
// Description:
//
//	Breadth-first search from the node over outgoing edges; the first
//	edge found leading back to the start closes the shortest cycle.
//	Used when a detector must show the user one readable example path
//	rather than an entire tangled component.
//
// Outputs:
//
//	[]string - The cycle as a path starting and ending at the node
//	(e.g. [a b c a]). A self-loop gives [a a]. Nil when the node is
//	unknown or no cycle passes through it.
func ShortestCycleThrough(q Query, qualifiedName string, kind entity.EdgeKind) []string {
	snap := takeSnapshot(q, kind)
	s, ok := snap.index[qualifiedName]
	if !ok {
		return nil
	}

	parent := make([]int32, snap.size())
	visited := make([]bool, snap.size())
	for i := range parent {
		parent[i] = -1
	}
	visited[s] = true
	queue := []int32{s}

	for head := 0; head < len(queue); head++ {
		v := queue[head]
		for _, t := range snap.out[v] {
			if t == s {
				// Closed the cycle; walk parents back to the start.
				path := []string{snap.names[s]}
				for u := v; u != s; u = parent[u] {
					path = append(path, snap.names[u])
				}
				path = append(path, snap.names[s])
				slices.Reverse(path[1 : len(path)-1])
				return path
			}
			if !visited[t] {
				visited[t] = true
				parent[t] = v
				queue = append(queue, t)
			}
		}
	}
	return nil
}

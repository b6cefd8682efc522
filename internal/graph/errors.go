// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph implements the code knowledge graph engine: two storage
// backends behind one query interface, a runtime dispatcher, and the graph
// algorithms (betweenness centrality, harmonic centrality, cycle detection)
// every analysis routine depends on.
//
// # Backends
//
// CodeGraph is the general-purpose backend: a directed multigraph with
// arbitrary property bags, three index structures (qualified name, node
// kind, per-node edge lists partitioned by edge kind), and O(1) fan
// counts. CompactGraph trades property bags for string interning and
// fixed-width records, for very large repositories. UnifiedGraph selects
// one of the two from an estimated repository size and forwards every
// call.
//
// # Query Interface
//
// Query is the sole abstraction boundary between the engine and its
// consumers. It is implemented by *CodeGraph, *CompactGraph, the
// RWMutex-guarded *SharedGraph handle, and *UnifiedGraph, so every
// algorithm and detector is written once and runs against any backend.
// Lookups by unknown qualified name return empty results, never errors:
// the graph is a best-effort static approximation and "not found" is a
// normal outcome.
//
// # Thread Safety
//
// CodeGraph and CompactGraph are NOT safe for concurrent use during
// building. They are designed for single-writer access during the build
// phase, then read-only access after Freeze(). After Freeze(), reads from
// multiple goroutines are safe. SharedGraph adds an RWMutex for consumers
// that need concurrent access to a graph that is still mutable.
//
// # Lifecycle
//
//  1. Create a backend (or NewUnifiedGraph with a SizeEstimate)
//  2. Build with AddNode / AddEdge batch calls
//  3. Call Freeze() to finalize
//  4. Query through the Query interface; run algorithms; persist
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrGraphFrozen is returned when attempting to modify a frozen graph.
	// Once Freeze() is called, the graph becomes read-only.
	ErrGraphFrozen = errors.New("graph is frozen and cannot be modified")

	// ErrInvalidNode is returned when adding a node without a qualified name.
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidEdge is returned when adding an edge with an empty endpoint
	// or an unknown edge kind.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrMaxNodesExceeded is returned when the graph has reached its
	// configured maximum node capacity.
	ErrMaxNodesExceeded = errors.New("maximum node count exceeded")

	// ErrMaxEdgesExceeded is returned when the graph has reached its
	// configured maximum edge capacity.
	ErrMaxEdgesExceeded = errors.New("maximum edge count exceeded")
)

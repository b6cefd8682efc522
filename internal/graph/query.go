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
	"github.com/AleutianAI/codehealth/internal/entity"
)

// Query is the read-only capability interface over a code knowledge graph.
//
// It is the only surface exposed to analysis routines, reporting, and the
// CLI; no consumer touches backend internals. Both backends, the shared
// handle, and the dispatcher implement it identically, so consumers are
// backend-agnostic and tests can substitute a minimal implementation.
//
// All lookups by qualified name return empty results for unknown names.
//
// Thread Safety: implementations are safe for concurrent reads once the
// underlying graph is frozen; SharedGraph is safe at all times.
type Query interface {
	// GetNode returns the node with the given qualified name.
	GetNode(qualifiedName string) (entity.CodeNode, bool)

	// Nodes returns the qualified names of all nodes, in insertion order.
	Nodes() []string

	// GetNodesByKind returns all nodes of one kind.
	GetNodesByKind(kind entity.NodeKind) []entity.CodeNode

	// GetFunctions returns all function nodes.
	GetFunctions() []entity.CodeNode

	// GetClasses returns all class nodes.
	GetClasses() []entity.CodeNode

	// GetFiles returns all file nodes.
	GetFiles() []entity.CodeNode

	// GetCallers returns the nodes with a Calls edge into the given node.
	GetCallers(qualifiedName string) []entity.CodeNode

	// GetCallees returns the nodes the given node has a Calls edge to.
	GetCallees(qualifiedName string) []entity.CodeNode

	// CallFanIn returns the number of incoming Calls edges. O(1).
	CallFanIn(qualifiedName string) int

	// CallFanOut returns the number of outgoing Calls edges. O(1).
	CallFanOut(qualifiedName string) int

	// GetCalls enumerates all Calls edges as qualified-name pairs.
	GetCalls() []entity.EdgePair

	// GetImports enumerates all Imports edges as qualified-name pairs.
	GetImports() []entity.EdgePair

	// GetInheritance enumerates all Inherits edges as qualified-name pairs.
	GetInheritance() []entity.EdgePair

	// GetChildClasses returns the classes that inherit from the given class
	// (reverse traversal of Inherits edges).
	GetChildClasses(qualifiedName string) []entity.CodeNode

	// GetImporters returns the nodes that import the given node
	// (reverse traversal of Imports edges).
	GetImporters(qualifiedName string) []entity.CodeNode

	// Successors returns the qualified names reachable from the given node
	// over one outgoing edge of the given kind. O(degree).
	Successors(qualifiedName string, kind entity.EdgeKind) []string

	// Predecessors returns the qualified names with an edge of the given
	// kind into the given node. O(degree).
	Predecessors(qualifiedName string, kind entity.EdgeKind) []string

	// NodeCount returns the number of nodes in the graph.
	NodeCount() int

	// EdgeCount returns the number of edges in the graph.
	EdgeCount() int

	// Stats returns aggregate per-kind node and edge counts.
	Stats() Stats
}

// Stats aggregates per-kind node and edge counts.
type Stats struct {
	// Nodes is the total node count.
	Nodes int `json:"nodes"`

	// Edges is the total edge count.
	Edges int `json:"edges"`

	// NodesByKind maps node-kind name to count. Kinds with zero nodes
	// are omitted.
	NodesByKind map[string]int `json:"nodes_by_kind"`

	// EdgesByKind maps edge-kind name to count. Kinds with zero edges
	// are omitted.
	EdgesByKind map[string]int `json:"edges_by_kind"`
}

// Equal reports whether two stats snapshots describe the same graph shape.
func (s Stats) Equal(other Stats) bool {
	if s.Nodes != other.Nodes || s.Edges != other.Edges {
		return false
	}
	if len(s.NodesByKind) != len(other.NodesByKind) || len(s.EdgesByKind) != len(other.EdgesByKind) {
		return false
	}
	for k, v := range s.NodesByKind {
		if other.NodesByKind[k] != v {
			return false
		}
	}
	for k, v := range s.EdgesByKind {
		if other.EdgesByKind[k] != v {
			return false
		}
	}
	return true
}

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
	"sync"

	"github.com/AleutianAI/codehealth/internal/entity"
)

// SharedGraph is a shared-ownership handle over a CodeGraph.
//
// It implements Query with an RWMutex so many analysis routines can hold
// concurrent read access to one store instance while running in parallel,
// and serializes the batched mutations of the build phase. Once the
// underlying graph is frozen the read lock is uncontended.
//
// Thread Safety: safe for concurrent use at all times.
type SharedGraph struct {
	mu sync.RWMutex
	g  *CodeGraph
}

// NewSharedGraph wraps an existing CodeGraph. The caller must not use the
// inner graph directly afterwards.
func NewSharedGraph(g *CodeGraph) *SharedGraph {
	if g == nil {
		g = NewCodeGraph()
	}
	return &SharedGraph{g: g}
}

// AddNode inserts or updates a node under the write lock.
func (s *SharedGraph) AddNode(node entity.CodeNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.AddNode(node)
}

// AddNodesBatch inserts many nodes under one write-lock acquisition.
func (s *SharedGraph) AddNodesBatch(nodes []entity.CodeNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.AddNodesBatch(nodes)
}

// AddEdge inserts an edge under the write lock.
func (s *SharedGraph) AddEdge(edge entity.CodeEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.AddEdge(edge)
}

// AddEdgesBatch inserts many edges under one write-lock acquisition.
func (s *SharedGraph) AddEdgesBatch(edges []entity.CodeEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.AddEdgesBatch(edges)
}

// Freeze transitions the underlying graph to read-only mode.
func (s *SharedGraph) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.g.Freeze()
}

// IsFrozen returns true if the underlying graph is read-only.
func (s *SharedGraph) IsFrozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.IsFrozen()
}

// GetNode returns the node with the given qualified name.
func (s *SharedGraph) GetNode(qualifiedName string) (entity.CodeNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.GetNode(qualifiedName)
}

// Nodes returns the qualified names of all nodes.
func (s *SharedGraph) Nodes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Nodes()
}

// GetNodesByKind returns all nodes of one kind.
func (s *SharedGraph) GetNodesByKind(kind entity.NodeKind) []entity.CodeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.GetNodesByKind(kind)
}

// GetFunctions returns all function nodes.
func (s *SharedGraph) GetFunctions() []entity.CodeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.GetFunctions()
}

// GetClasses returns all class nodes.
func (s *SharedGraph) GetClasses() []entity.CodeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.GetClasses()
}

// GetFiles returns all file nodes.
func (s *SharedGraph) GetFiles() []entity.CodeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.GetFiles()
}

// GetCallers returns the nodes with a Calls edge into the given node.
func (s *SharedGraph) GetCallers(qualifiedName string) []entity.CodeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.GetCallers(qualifiedName)
}

// GetCallees returns the nodes the given node has a Calls edge to.
func (s *SharedGraph) GetCallees(qualifiedName string) []entity.CodeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.GetCallees(qualifiedName)
}

// CallFanIn returns the number of incoming Calls edges.
func (s *SharedGraph) CallFanIn(qualifiedName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.CallFanIn(qualifiedName)
}

// CallFanOut returns the number of outgoing Calls edges.
func (s *SharedGraph) CallFanOut(qualifiedName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.CallFanOut(qualifiedName)
}

// GetCalls enumerates all Calls edges.
func (s *SharedGraph) GetCalls() []entity.EdgePair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.GetCalls()
}

// GetImports enumerates all Imports edges.
func (s *SharedGraph) GetImports() []entity.EdgePair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.GetImports()
}

// GetInheritance enumerates all Inherits edges.
func (s *SharedGraph) GetInheritance() []entity.EdgePair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.GetInheritance()
}

// GetChildClasses returns the classes inheriting from the given class.
func (s *SharedGraph) GetChildClasses(qualifiedName string) []entity.CodeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.GetChildClasses(qualifiedName)
}

// GetImporters returns the nodes importing the given node.
func (s *SharedGraph) GetImporters(qualifiedName string) []entity.CodeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.GetImporters(qualifiedName)
}

// Successors returns outgoing neighbor names over one edge kind.
func (s *SharedGraph) Successors(qualifiedName string, kind entity.EdgeKind) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Successors(qualifiedName, kind)
}

// Predecessors returns incoming neighbor names over one edge kind.
func (s *SharedGraph) Predecessors(qualifiedName string, kind entity.EdgeKind) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Predecessors(qualifiedName, kind)
}

// NodeCount returns the number of nodes.
func (s *SharedGraph) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.NodeCount()
}

// EdgeCount returns the number of edges.
func (s *SharedGraph) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.EdgeCount()
}

// Stats returns aggregate per-kind node and edge counts.
func (s *SharedGraph) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Stats()
}

// Edges returns every edge as an entity record, for persistence.
func (s *SharedGraph) Edges() []entity.CodeEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Edges()
}

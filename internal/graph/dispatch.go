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
	"log/slog"

	"github.com/AleutianAI/codehealth/internal/entity"
)

// Backend selection thresholds. A repository estimated above either
// threshold gets the compact backend.
const (
	// DefaultCompactFileThreshold is the file-count threshold.
	DefaultCompactFileThreshold = 10_000

	// DefaultCompactFunctionThreshold is the function-count threshold.
	DefaultCompactFunctionThreshold = 100_000
)

// BackendKind identifies which backend a UnifiedGraph selected.
type BackendKind int

const (
	// BackendStandard is the general-purpose CodeGraph backend.
	BackendStandard BackendKind = iota

	// BackendCompact is the memory-optimized CompactGraph backend.
	BackendCompact
)

// String returns the string representation of the BackendKind.
func (k BackendKind) String() string {
	switch k {
	case BackendStandard:
		return "standard"
	case BackendCompact:
		return "compact"
	default:
		return "unknown"
	}
}

// ParseBackendKind converts a string produced by String back to a
// BackendKind. Unrecognized strings map to BackendStandard.
func ParseBackendKind(s string) BackendKind {
	if s == "compact" {
		return BackendCompact
	}
	return BackendStandard
}

// SizeEstimate is the upstream parser's estimate of repository size,
// used once to pick a backend.
type SizeEstimate struct {
	// Files is the estimated number of source files.
	Files int

	// Functions is the estimated number of functions.
	Functions int
}

// SelectionThresholds configures when the compact backend is chosen.
type SelectionThresholds struct {
	// Files is the file-count threshold. Default: 10,000.
	Files int

	// Functions is the function-count threshold. Default: 100,000.
	Functions int
}

// DefaultSelectionThresholds returns the default backend thresholds.
func DefaultSelectionThresholds() SelectionThresholds {
	return SelectionThresholds{
		Files:     DefaultCompactFileThreshold,
		Functions: DefaultCompactFunctionThreshold,
	}
}

// UnifiedGraph is a tagged union over the two backends.
//
// Backend selection happens once, at construction, from an estimated
// repository size; every Query and mutation call forwards to whichever
// backend is active, so the choice is invisible to every downstream
// consumer. Generic AddNode calls arriving while the compact backend is
// active are translated into the appropriate typed builder call based on
// the node's kind.
type UnifiedGraph struct {
	kind    BackendKind
	std     *SharedGraph
	compact *CompactGraph
}

// NewUnifiedGraph selects a backend from the size estimate and default
// thresholds.
func NewUnifiedGraph(est SizeEstimate, opts ...GraphOption) *UnifiedGraph {
	return NewUnifiedGraphWithThresholds(est, DefaultSelectionThresholds(), opts...)
}

// NewUnifiedGraphWithThresholds selects a backend from the size estimate
// and explicit thresholds.
func NewUnifiedGraphWithThresholds(est SizeEstimate, thresholds SelectionThresholds, opts ...GraphOption) *UnifiedGraph {
	if thresholds.Files <= 0 {
		thresholds.Files = DefaultCompactFileThreshold
	}
	if thresholds.Functions <= 0 {
		thresholds.Functions = DefaultCompactFunctionThreshold
	}

	if est.Files > thresholds.Files || est.Functions > thresholds.Functions {
		slog.Debug("selected compact graph backend",
			slog.Int("estimated_files", est.Files),
			slog.Int("estimated_functions", est.Functions),
		)
		return &UnifiedGraph{kind: BackendCompact, compact: NewCompactGraph(opts...)}
	}

	slog.Debug("selected standard graph backend",
		slog.Int("estimated_files", est.Files),
		slog.Int("estimated_functions", est.Functions),
	)
	return &UnifiedGraph{kind: BackendStandard, std: NewSharedGraph(NewCodeGraph(opts...))}
}

// NewUnifiedStandard wraps an existing shared standard backend, used when
// loading a persisted graph whose backend tag is "standard".
func NewUnifiedStandard(s *SharedGraph) *UnifiedGraph {
	return &UnifiedGraph{kind: BackendStandard, std: s}
}

// NewUnifiedCompact wraps an existing compact backend, used when loading a
// persisted graph whose backend tag is "compact".
func NewUnifiedCompact(c *CompactGraph) *UnifiedGraph {
	return &UnifiedGraph{kind: BackendCompact, compact: c}
}

// Backend returns which backend is active.
func (u *UnifiedGraph) Backend() BackendKind {
	return u.kind
}

// MemoryUsage returns the compact backend's memory report, or a zero
// report when the standard backend is active.
func (u *UnifiedGraph) MemoryUsage() MemoryReport {
	if u.kind == BackendCompact {
		return u.compact.MemoryUsage()
	}
	return MemoryReport{}
}

// AddNode inserts a node into the active backend. With the compact
// backend active the generic record is translated to the typed builder
// for its kind.
func (u *UnifiedGraph) AddNode(node entity.CodeNode) error {
	if u.kind == BackendCompact {
		switch node.Kind {
		case entity.NodeKindFile:
			if node.QualifiedName == "" {
				return ErrInvalidNode
			}
			return u.compact.AddFile(node.QualifiedName)
		case entity.NodeKindFunction:
			complexity := metricAbsent
			if c, ok := node.Complexity(); ok {
				complexity = c
			}
			params := metricAbsent
			if p, ok := node.ParamCount(); ok {
				params = p
			}
			return u.compact.AddFunction(node.QualifiedName, node.Name, node.FilePath,
				node.StartLine, node.EndLine, complexity, params)
		case entity.NodeKindClass:
			methods := metricAbsent
			if m, ok := node.MethodCount(); ok {
				methods = m
			}
			return u.compact.AddClass(node.QualifiedName, node.Name, node.FilePath,
				node.StartLine, node.EndLine, methods)
		default:
			return u.compact.AddNode(node)
		}
	}
	return u.std.AddNode(node)
}

// AddNodesBatch inserts many nodes, stopping at the first error.
func (u *UnifiedGraph) AddNodesBatch(nodes []entity.CodeNode) error {
	for i := range nodes {
		if err := u.AddNode(nodes[i]); err != nil {
			return err
		}
	}
	return nil
}

// AddEdge inserts an edge into the active backend.
func (u *UnifiedGraph) AddEdge(edge entity.CodeEdge) error {
	if u.kind == BackendCompact {
		return u.compact.AddEdge(edge)
	}
	return u.std.AddEdge(edge)
}

// AddEdgesBatch inserts many edges, stopping at the first error.
func (u *UnifiedGraph) AddEdgesBatch(edges []entity.CodeEdge) error {
	if u.kind == BackendCompact {
		return u.compact.AddEdgesBatch(edges)
	}
	return u.std.AddEdgesBatch(edges)
}

// Freeze transitions the active backend to read-only mode.
func (u *UnifiedGraph) Freeze() {
	if u.kind == BackendCompact {
		u.compact.Freeze()
		return
	}
	u.std.Freeze()
}

// active returns the active backend as a Query.
func (u *UnifiedGraph) active() Query {
	if u.kind == BackendCompact {
		return u.compact
	}
	return u.std
}

// GetNode forwards to the active backend.
func (u *UnifiedGraph) GetNode(qualifiedName string) (entity.CodeNode, bool) {
	return u.active().GetNode(qualifiedName)
}

// Nodes forwards to the active backend.
func (u *UnifiedGraph) Nodes() []string {
	return u.active().Nodes()
}

// GetNodesByKind forwards to the active backend.
func (u *UnifiedGraph) GetNodesByKind(kind entity.NodeKind) []entity.CodeNode {
	return u.active().GetNodesByKind(kind)
}

// GetFunctions forwards to the active backend.
func (u *UnifiedGraph) GetFunctions() []entity.CodeNode {
	return u.active().GetFunctions()
}

// GetClasses forwards to the active backend.
func (u *UnifiedGraph) GetClasses() []entity.CodeNode {
	return u.active().GetClasses()
}

// GetFiles forwards to the active backend.
func (u *UnifiedGraph) GetFiles() []entity.CodeNode {
	return u.active().GetFiles()
}

// GetCallers forwards to the active backend.
func (u *UnifiedGraph) GetCallers(qualifiedName string) []entity.CodeNode {
	return u.active().GetCallers(qualifiedName)
}

// GetCallees forwards to the active backend.
func (u *UnifiedGraph) GetCallees(qualifiedName string) []entity.CodeNode {
	return u.active().GetCallees(qualifiedName)
}

// CallFanIn forwards to the active backend.
func (u *UnifiedGraph) CallFanIn(qualifiedName string) int {
	return u.active().CallFanIn(qualifiedName)
}

// CallFanOut forwards to the active backend.
func (u *UnifiedGraph) CallFanOut(qualifiedName string) int {
	return u.active().CallFanOut(qualifiedName)
}

// GetCalls forwards to the active backend.
func (u *UnifiedGraph) GetCalls() []entity.EdgePair {
	return u.active().GetCalls()
}

// GetImports forwards to the active backend.
func (u *UnifiedGraph) GetImports() []entity.EdgePair {
	return u.active().GetImports()
}

// GetInheritance forwards to the active backend.
func (u *UnifiedGraph) GetInheritance() []entity.EdgePair {
	return u.active().GetInheritance()
}

// GetChildClasses forwards to the active backend.
func (u *UnifiedGraph) GetChildClasses(qualifiedName string) []entity.CodeNode {
	return u.active().GetChildClasses(qualifiedName)
}

// GetImporters forwards to the active backend.
func (u *UnifiedGraph) GetImporters(qualifiedName string) []entity.CodeNode {
	return u.active().GetImporters(qualifiedName)
}

// Successors forwards to the active backend.
func (u *UnifiedGraph) Successors(qualifiedName string, kind entity.EdgeKind) []string {
	return u.active().Successors(qualifiedName, kind)
}

// Predecessors forwards to the active backend.
func (u *UnifiedGraph) Predecessors(qualifiedName string, kind entity.EdgeKind) []string {
	return u.active().Predecessors(qualifiedName, kind)
}

// NodeCount forwards to the active backend.
func (u *UnifiedGraph) NodeCount() int {
	return u.active().NodeCount()
}

// EdgeCount forwards to the active backend.
func (u *UnifiedGraph) EdgeCount() int {
	return u.active().EdgeCount()
}

// Stats forwards to the active backend.
func (u *UnifiedGraph) Stats() Stats {
	return u.active().Stats()
}

// Edges returns every edge as an entity record, for persistence.
func (u *UnifiedGraph) Edges() []entity.CodeEdge {
	if u.kind == BackendCompact {
		return u.compact.Edges()
	}
	return u.std.Edges()
}

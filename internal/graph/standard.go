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
	"time"

	"github.com/AleutianAI/codehealth/internal/entity"
)

// Default configuration values.
const (
	// DefaultMaxNodes is the default maximum number of nodes a graph can hold.
	DefaultMaxNodes = 1_000_000

	// DefaultMaxEdges is the default maximum number of edges a graph can hold.
	DefaultMaxEdges = 10_000_000
)

// GraphState represents the lifecycle state of a graph backend.
type GraphState int

const (
	// GraphStateBuilding indicates the graph is accepting AddNode/AddEdge calls.
	GraphStateBuilding GraphState = iota

	// GraphStateReadOnly indicates the graph is frozen and read-only.
	GraphStateReadOnly
)

// String returns the string representation of the GraphState.
func (s GraphState) String() string {
	switch s {
	case GraphStateBuilding:
		return "building"
	case GraphStateReadOnly:
		return "readonly"
	default:
		return "unknown"
	}
}

// GraphOptions configures backend behavior and limits.
type GraphOptions struct {
	// MaxNodes is the maximum number of nodes the graph can hold.
	// Default: 1,000,000
	MaxNodes int

	// MaxEdges is the maximum number of edges the graph can hold.
	// Default: 10,000,000
	MaxEdges int
}

// DefaultGraphOptions returns sensible defaults for graph configuration.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// GraphOption is a functional option for configuring a backend.
type GraphOption func(*GraphOptions)

// WithMaxNodes sets the maximum number of nodes the graph can hold.
func WithMaxNodes(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxNodes = n
	}
}

// WithMaxEdges sets the maximum number of edges the graph can hold.
func WithMaxEdges(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxEdges = n
	}
}

// edgeKey identifies one (from, to, kind) triple for duplicate detection.
type edgeKey struct {
	from int32
	to   int32
	kind entity.EdgeKind
}

// edgeRecord is one stored edge. Endpoints are indices into the node arena,
// resolved from qualified names at insertion time.
type edgeRecord struct {
	from  int32
	to    int32
	kind  entity.EdgeKind
	props map[string]any
}

// nodeLinks holds one node's edge-id lists, partitioned by edge kind so
// traversal of one relationship type is O(degree in that type) and fan
// counts are O(1) list lengths.
type nodeLinks struct {
	out [entity.NumEdgeKinds][]int32
	in  [entity.NumEdgeKinds][]int32
}

// CodeGraph is the general-purpose graph backend: a directed multigraph
// supporting parallel edges of different kinds between the same node pair,
// with arbitrary property bags on nodes and edges.
//
// # Representation
//
// Nodes live in a dense arena addressed by index; a qualified-name map and
// a per-kind index provide O(1) lookup and fast enumeration. Edges are
// integer-index pairs into the arena, never node-to-node references, so
// there are no ownership cycles to manage.
//
// # Thread Safety
//
// NOT safe for concurrent use during building. Single-writer during the
// build phase, safely concurrent for reads after Freeze(). Wrap in a
// SharedGraph for concurrent access to a still-mutable graph.
type CodeGraph struct {
	// nodes is the dense node arena. Indices are stable for the lifetime
	// of the graph; upserts update records in place.
	nodes []entity.CodeNode

	// links holds per-node edge-id lists, parallel to nodes.
	links []nodeLinks

	// byName maps qualified name to arena index.
	byName map[string]int32

	// byKind maps node kind to arena indices for fast enumeration.
	byKind [entity.NumNodeKinds][]int32

	// edges is the flat edge store referenced by nodeLinks ids.
	edges []edgeRecord

	// edgeIndex detects duplicate (from, to, kind) insertions.
	edgeIndex map[edgeKey]int32

	// state is the current lifecycle state.
	state GraphState

	// options contains configuration.
	options GraphOptions

	// builtAtMilli is the Unix timestamp in milliseconds of Freeze().
	builtAtMilli int64
}

// NewCodeGraph creates an empty general-purpose backend in the Building
// state, ready to accept AddNode and AddEdge calls.
//
// Example:
//
//	g := graph.NewCodeGraph()
//	g := graph.NewCodeGraph(graph.WithMaxNodes(100_000))
func NewCodeGraph(opts ...GraphOption) *CodeGraph {
	options := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &CodeGraph{
		byName:    make(map[string]int32),
		edgeIndex: make(map[edgeKey]int32),
		state:     GraphStateBuilding,
		options:   options,
	}
}

// State returns the current lifecycle state of the graph.
func (g *CodeGraph) State() GraphState {
	return g.state
}

// IsFrozen returns true if the graph is in read-only mode.
func (g *CodeGraph) IsFrozen() bool {
	return g.state == GraphStateReadOnly
}

// Freeze transitions the graph to read-only mode.
//
// After Freeze(), AddNode and AddEdge return ErrGraphFrozen and the graph
// can be read from multiple goroutines concurrently. Irreversible.
func (g *CodeGraph) Freeze() {
	g.state = GraphStateReadOnly
	g.builtAtMilli = time.Now().UnixMilli()
}

// BuiltAtMilli returns the Unix millisecond timestamp of Freeze(),
// or zero if the graph has not been frozen.
func (g *CodeGraph) BuiltAtMilli() int64 {
	return g.builtAtMilli
}

// AddNode inserts a node or updates it in place.
//
// Description:
//
//	The qualified name is the primary key. Inserting a node whose
//	qualified name already exists does not create a duplicate: scalar
//	fields are overwritten by the incoming record and the property maps
//	are merged key-wise with incoming keys winning. A placeholder node
//	created earlier by AddEdge is upgraded the same way, acquiring its
//	real kind.
//
// Outputs:
//
//	error - ErrGraphFrozen after Freeze(), ErrInvalidNode for an empty
//	qualified name, ErrMaxNodesExceeded at capacity. Nil on success.
func (g *CodeGraph) AddNode(node entity.CodeNode) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}
	if node.QualifiedName == "" {
		return ErrInvalidNode
	}

	if idx, exists := g.byName[node.QualifiedName]; exists {
		g.updateNode(idx, node)
		return nil
	}

	if len(g.nodes) >= g.options.MaxNodes {
		return ErrMaxNodesExceeded
	}

	idx := int32(len(g.nodes))
	g.nodes = append(g.nodes, node)
	g.links = append(g.links, nodeLinks{})
	g.byName[node.QualifiedName] = idx
	g.byKind[kindIndex(node.Kind)] = append(g.byKind[kindIndex(node.Kind)], idx)
	return nil
}

// updateNode overwrites the record at idx, merging property maps and
// maintaining the kind index when the kind changes (placeholder upgrade).
func (g *CodeGraph) updateNode(idx int32, node entity.CodeNode) {
	existing := &g.nodes[idx]

	if existing.Kind != node.Kind {
		g.byKind[kindIndex(existing.Kind)] = removeIndex(g.byKind[kindIndex(existing.Kind)], idx)
		g.byKind[kindIndex(node.Kind)] = append(g.byKind[kindIndex(node.Kind)], idx)
	}

	merged := existing.Properties
	if len(node.Properties) > 0 {
		if merged == nil {
			merged = make(map[string]any, len(node.Properties))
		}
		for k, v := range node.Properties {
			merged[k] = v
		}
	}
	node.Properties = merged
	g.nodes[idx] = node
}

// AddNodesBatch inserts many nodes, stopping at the first error.
func (g *CodeGraph) AddNodesBatch(nodes []entity.CodeNode) error {
	for i := range nodes {
		if err := g.AddNode(nodes[i]); err != nil {
			return err
		}
	}
	return nil
}

// AddEdge resolves both endpoint names and inserts a typed edge.
//
// Description:
//
//	Unknown endpoint names create placeholder nodes (kind Unknown,
//	qualified name only); a later AddNode with the real record upgrades
//	the placeholder in place. Duplicate (from, to, kind) triples do not
//	insert a second edge: the existing edge's properties are merged
//	key-wise with incoming keys winning. Parallel edges of different
//	kinds between the same pair are allowed.
//
// Outputs:
//
//	error - ErrGraphFrozen after Freeze(), ErrInvalidEdge for empty
//	endpoints or an out-of-range kind, capacity errors from placeholder
//	creation or edge insertion. Nil on success.
func (g *CodeGraph) AddEdge(edge entity.CodeEdge) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}
	if edge.From == "" || edge.To == "" || edge.Kind <= entity.EdgeKindUnknown || edge.Kind >= entity.NumEdgeKinds {
		return ErrInvalidEdge
	}

	from, err := g.resolveOrPlaceholder(edge.From)
	if err != nil {
		return err
	}
	to, err := g.resolveOrPlaceholder(edge.To)
	if err != nil {
		return err
	}

	key := edgeKey{from: from, to: to, kind: edge.Kind}
	if id, exists := g.edgeIndex[key]; exists {
		// Documented conflict policy: merge properties, keep one edge.
		if len(edge.Properties) > 0 {
			rec := &g.edges[id]
			if rec.props == nil {
				rec.props = make(map[string]any, len(edge.Properties))
			}
			for k, v := range edge.Properties {
				rec.props[k] = v
			}
		}
		return nil
	}

	if len(g.edges) >= g.options.MaxEdges {
		return ErrMaxEdgesExceeded
	}

	id := int32(len(g.edges))
	g.edges = append(g.edges, edgeRecord{from: from, to: to, kind: edge.Kind, props: edge.Properties})
	g.edgeIndex[key] = id
	g.links[from].out[edge.Kind] = append(g.links[from].out[edge.Kind], id)
	g.links[to].in[edge.Kind] = append(g.links[to].in[edge.Kind], id)
	return nil
}

// AddEdgesBatch inserts many edges, stopping at the first error.
func (g *CodeGraph) AddEdgesBatch(edges []entity.CodeEdge) error {
	for i := range edges {
		if err := g.AddEdge(edges[i]); err != nil {
			return err
		}
	}
	return nil
}

// resolveOrPlaceholder returns the arena index for a qualified name,
// creating a placeholder node when the name is unknown.
func (g *CodeGraph) resolveOrPlaceholder(qualifiedName string) (int32, error) {
	if idx, ok := g.byName[qualifiedName]; ok {
		return idx, nil
	}
	if len(g.nodes) >= g.options.MaxNodes {
		return 0, ErrMaxNodesExceeded
	}
	idx := int32(len(g.nodes))
	g.nodes = append(g.nodes, entity.CodeNode{Kind: entity.NodeKindUnknown, QualifiedName: qualifiedName})
	g.links = append(g.links, nodeLinks{})
	g.byName[qualifiedName] = idx
	g.byKind[kindIndex(entity.NodeKindUnknown)] = append(g.byKind[kindIndex(entity.NodeKindUnknown)], idx)
	return idx, nil
}

// GetNode returns the node with the given qualified name.
func (g *CodeGraph) GetNode(qualifiedName string) (entity.CodeNode, bool) {
	idx, ok := g.byName[qualifiedName]
	if !ok {
		return entity.CodeNode{}, false
	}
	return g.nodes[idx], true
}

// Nodes returns the qualified names of all nodes, in insertion order.
func (g *CodeGraph) Nodes() []string {
	names := make([]string, len(g.nodes))
	for i := range g.nodes {
		names[i] = g.nodes[i].QualifiedName
	}
	return names
}

// GetNodesByKind returns all nodes of one kind.
func (g *CodeGraph) GetNodesByKind(kind entity.NodeKind) []entity.CodeNode {
	indices := g.byKind[kindIndex(kind)]
	nodes := make([]entity.CodeNode, len(indices))
	for i, idx := range indices {
		nodes[i] = g.nodes[idx]
	}
	return nodes
}

// GetFunctions returns all function nodes.
func (g *CodeGraph) GetFunctions() []entity.CodeNode {
	return g.GetNodesByKind(entity.NodeKindFunction)
}

// GetClasses returns all class nodes.
func (g *CodeGraph) GetClasses() []entity.CodeNode {
	return g.GetNodesByKind(entity.NodeKindClass)
}

// GetFiles returns all file nodes.
func (g *CodeGraph) GetFiles() []entity.CodeNode {
	return g.GetNodesByKind(entity.NodeKindFile)
}

// GetCallers returns the nodes with a Calls edge into the given node.
func (g *CodeGraph) GetCallers(qualifiedName string) []entity.CodeNode {
	return g.edgeEndpoints(qualifiedName, entity.EdgeKindCalls, false)
}

// GetCallees returns the nodes the given node has a Calls edge to.
func (g *CodeGraph) GetCallees(qualifiedName string) []entity.CodeNode {
	return g.edgeEndpoints(qualifiedName, entity.EdgeKindCalls, true)
}

// GetChildClasses returns the classes inheriting from the given class.
func (g *CodeGraph) GetChildClasses(qualifiedName string) []entity.CodeNode {
	return g.edgeEndpoints(qualifiedName, entity.EdgeKindInherits, false)
}

// GetImporters returns the nodes importing the given node.
func (g *CodeGraph) GetImporters(qualifiedName string) []entity.CodeNode {
	return g.edgeEndpoints(qualifiedName, entity.EdgeKindImports, false)
}

// edgeEndpoints traverses one kind's edge list of a node and materializes
// the far endpoint of each edge. outgoing selects direction.
func (g *CodeGraph) edgeEndpoints(qualifiedName string, kind entity.EdgeKind, outgoing bool) []entity.CodeNode {
	idx, ok := g.byName[qualifiedName]
	if !ok {
		return nil
	}
	var ids []int32
	if outgoing {
		ids = g.links[idx].out[kind]
	} else {
		ids = g.links[idx].in[kind]
	}
	nodes := make([]entity.CodeNode, len(ids))
	for i, id := range ids {
		rec := g.edges[id]
		if outgoing {
			nodes[i] = g.nodes[rec.to]
		} else {
			nodes[i] = g.nodes[rec.from]
		}
	}
	return nodes
}

// CallFanIn returns the number of incoming Calls edges. O(1).
func (g *CodeGraph) CallFanIn(qualifiedName string) int {
	idx, ok := g.byName[qualifiedName]
	if !ok {
		return 0
	}
	return len(g.links[idx].in[entity.EdgeKindCalls])
}

// CallFanOut returns the number of outgoing Calls edges. O(1).
func (g *CodeGraph) CallFanOut(qualifiedName string) int {
	idx, ok := g.byName[qualifiedName]
	if !ok {
		return 0
	}
	return len(g.links[idx].out[entity.EdgeKindCalls])
}

// GetCalls enumerates all Calls edges as qualified-name pairs.
func (g *CodeGraph) GetCalls() []entity.EdgePair {
	return g.edgePairs(entity.EdgeKindCalls)
}

// GetImports enumerates all Imports edges as qualified-name pairs.
func (g *CodeGraph) GetImports() []entity.EdgePair {
	return g.edgePairs(entity.EdgeKindImports)
}

// GetInheritance enumerates all Inherits edges as qualified-name pairs.
func (g *CodeGraph) GetInheritance() []entity.EdgePair {
	return g.edgePairs(entity.EdgeKindInherits)
}

// edgePairs enumerates all edges of one kind.
func (g *CodeGraph) edgePairs(kind entity.EdgeKind) []entity.EdgePair {
	pairs := make([]entity.EdgePair, 0)
	for i := range g.edges {
		if g.edges[i].kind != kind {
			continue
		}
		pairs = append(pairs, entity.EdgePair{
			From: g.nodes[g.edges[i].from].QualifiedName,
			To:   g.nodes[g.edges[i].to].QualifiedName,
		})
	}
	return pairs
}

// Successors returns the qualified names one outgoing edge of the given
// kind away from the given node.
func (g *CodeGraph) Successors(qualifiedName string, kind entity.EdgeKind) []string {
	return g.neighborNames(qualifiedName, kind, true)
}

// Predecessors returns the qualified names with an edge of the given kind
// into the given node.
func (g *CodeGraph) Predecessors(qualifiedName string, kind entity.EdgeKind) []string {
	return g.neighborNames(qualifiedName, kind, false)
}

func (g *CodeGraph) neighborNames(qualifiedName string, kind entity.EdgeKind, outgoing bool) []string {
	if kind <= entity.EdgeKindUnknown || kind >= entity.NumEdgeKinds {
		return nil
	}
	idx, ok := g.byName[qualifiedName]
	if !ok {
		return nil
	}
	var ids []int32
	if outgoing {
		ids = g.links[idx].out[kind]
	} else {
		ids = g.links[idx].in[kind]
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		rec := g.edges[id]
		if outgoing {
			names[i] = g.nodes[rec.to].QualifiedName
		} else {
			names[i] = g.nodes[rec.from].QualifiedName
		}
	}
	return names
}

// EdgeProperties returns the property bag of the (from, to, kind) edge.
// The second return is false when no such edge exists.
func (g *CodeGraph) EdgeProperties(from, to string, kind entity.EdgeKind) (map[string]any, bool) {
	fi, ok := g.byName[from]
	if !ok {
		return nil, false
	}
	ti, ok := g.byName[to]
	if !ok {
		return nil, false
	}
	id, ok := g.edgeIndex[edgeKey{from: fi, to: ti, kind: kind}]
	if !ok {
		return nil, false
	}
	return g.edges[id].props, true
}

// NodeCount returns the number of nodes in the graph.
func (g *CodeGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *CodeGraph) EdgeCount() int {
	return len(g.edges)
}

// Stats returns aggregate per-kind node and edge counts.
func (g *CodeGraph) Stats() Stats {
	stats := Stats{
		Nodes:       len(g.nodes),
		Edges:       len(g.edges),
		NodesByKind: make(map[string]int),
		EdgesByKind: make(map[string]int),
	}
	for k := entity.NodeKind(0); k < entity.NumNodeKinds; k++ {
		if n := len(g.byKind[k]); n > 0 {
			stats.NodesByKind[k.String()] = n
		}
	}
	for i := range g.edges {
		stats.EdgesByKind[g.edges[i].kind.String()]++
	}
	return stats
}

// Edges returns a copy of every edge as an entity record, for persistence.
func (g *CodeGraph) Edges() []entity.CodeEdge {
	out := make([]entity.CodeEdge, len(g.edges))
	for i := range g.edges {
		out[i] = entity.CodeEdge{
			From:       g.nodes[g.edges[i].from].QualifiedName,
			To:         g.nodes[g.edges[i].to].QualifiedName,
			Kind:       g.edges[i].kind,
			Properties: g.edges[i].props,
		}
	}
	return out
}

// kindIndex bounds a NodeKind into the byKind array range. Out-of-range
// kinds index the Unknown bucket rather than panicking.
func kindIndex(k entity.NodeKind) entity.NodeKind {
	if k < 0 || k >= entity.NumNodeKinds {
		return entity.NodeKindUnknown
	}
	return k
}

// removeIndex deletes the first occurrence of v from s, preserving order.
func removeIndex(s []int32, v int32) []int32 {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

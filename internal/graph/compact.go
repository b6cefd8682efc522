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
	"path/filepath"
	"time"
	"unsafe"

	"github.com/AleutianAI/codehealth/internal/entity"
)

// compactNode flag bits.
const (
	flagExported  uint8 = 1 << 0
	flagDecorated uint8 = 1 << 1
)

// metricAbsent marks an unset fixed-width metric field.
const metricAbsent = -1

// compactNode is a fixed-width node record. All strings are interned ids
// into the owning graph's string table; metrics that the general backend
// would keep in a property bag are fixed-width fields here, with
// metricAbsent marking "never attached".
type compactNode struct {
	qname    uint32
	name     uint32
	file     uint32
	lang     uint32
	start    uint32
	end      uint32
	compl    int32
	params   int16
	methods  int16
	kind     uint8
	flags    uint8
	_padding [2]byte
}

// kindEdges stores all edges of one kind as parallel endpoint-id arrays.
type kindEdges struct {
	from []uint32
	to   []uint32
}

// csrIndex is a compressed adjacency index for one edge kind and one
// direction: targets[offsets[i]:offsets[i+1]] are node i's neighbors.
type csrIndex struct {
	offsets []uint32
	targets []uint32
}

// neighbors returns node i's adjacency slice. Shared backing array; callers
// must not mutate.
func (c *csrIndex) neighbors(i uint32) []uint32 {
	if int(i)+1 >= len(c.offsets) {
		return nil
	}
	return c.targets[c.offsets[i]:c.offsets[i+1]]
}

// CompactGraph is the memory-optimized backend for very large repositories.
//
// # Representation
//
// Every string is interned once into a shared table and referenced by a
// uint32; nodes are fixed-width records addressed by dense integer id;
// edges are parallel integer-id arrays grouped by kind. Per-kind, per-
// direction CSR adjacency indexes are rebuilt lazily after mutation, so
// traversal stays O(degree) without per-node slice headers.
//
// # Contract
//
// Implements the same Query contract as CodeGraph. Population goes through
// the typed builders (AddFile, AddFunction, AddClass) because compact
// encoding needs typed fields at construction time; the generic AddNode
// translates by node kind and drops the open property bag, counting each
// dropped key in the memory report.
//
// # Thread Safety
//
// NOT safe for concurrent use until Freeze(); single-writer build phase,
// concurrent reads after Freeze().
type CompactGraph struct {
	strings *stringTable
	nodes   []compactNode
	byName  map[string]uint32
	byKind  [entity.NumNodeKinds][]uint32

	edges    [entity.NumEdgeKinds]kindEdges
	edgeSeen [entity.NumEdgeKinds]map[uint64]struct{}

	out [entity.NumEdgeKinds]csrIndex
	in  [entity.NumEdgeKinds]csrIndex

	// indexDirty is set by any mutation and cleared by ensureIndex.
	indexDirty bool

	// droppedProps counts property-bag keys the fixed-width encoding
	// could not keep, as an operational diagnostic.
	droppedProps int

	state        GraphState
	options      GraphOptions
	builtAtMilli int64
}

// NewCompactGraph creates an empty compact backend in the Building state.
func NewCompactGraph(opts ...GraphOption) *CompactGraph {
	options := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&options)
	}

	g := &CompactGraph{
		strings: newStringTable(),
		byName:  make(map[string]uint32),
		state:   GraphStateBuilding,
		options: options,
	}
	for k := range g.edgeSeen {
		g.edgeSeen[k] = make(map[uint64]struct{})
	}
	return g
}

// State returns the current lifecycle state of the graph.
func (g *CompactGraph) State() GraphState {
	return g.state
}

// IsFrozen returns true if the graph is in read-only mode.
func (g *CompactGraph) IsFrozen() bool {
	return g.state == GraphStateReadOnly
}

// Freeze transitions the graph to read-only mode and builds the adjacency
// indexes so subsequent concurrent reads never mutate shared state.
func (g *CompactGraph) Freeze() {
	g.ensureIndex()
	g.state = GraphStateReadOnly
	g.builtAtMilli = time.Now().UnixMilli()
}

// BuiltAtMilli returns the Unix millisecond timestamp of Freeze(),
// or zero if the graph has not been frozen.
func (g *CompactGraph) BuiltAtMilli() int64 {
	return g.builtAtMilli
}

// AddFile inserts a file node. The path doubles as the qualified name.
func (g *CompactGraph) AddFile(path string) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}
	return g.upsert(compactNode{
		qname: g.strings.intern(path),
		name:  g.strings.intern(filepath.Base(path)),
		file:  g.strings.intern(path),
		compl: metricAbsent, params: metricAbsent, methods: metricAbsent,
		kind: uint8(entity.NodeKindFile),
	}, path)
}

// AddFunction inserts a function node with its fixed-width metrics.
// Pass a negative complexity or paramCount when the metric is unknown.
func (g *CompactGraph) AddFunction(qualifiedName, name, filePath string, startLine, endLine, complexity, paramCount int) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}
	n := compactNode{
		qname: g.strings.intern(qualifiedName),
		name:  g.strings.intern(name),
		file:  g.strings.intern(filePath),
		start: clampLine(startLine),
		end:   clampLine(endLine),
		compl: clampMetric32(complexity),
		params: clampMetric16(paramCount),
		methods: metricAbsent,
		kind:  uint8(entity.NodeKindFunction),
	}
	return g.upsert(n, qualifiedName)
}

// AddClass inserts a class node with its fixed-width method count.
// Pass a negative methodCount when the metric is unknown.
func (g *CompactGraph) AddClass(qualifiedName, name, filePath string, startLine, endLine, methodCount int) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}
	n := compactNode{
		qname: g.strings.intern(qualifiedName),
		name:  g.strings.intern(name),
		file:  g.strings.intern(filePath),
		start: clampLine(startLine),
		end:   clampLine(endLine),
		compl: metricAbsent, params: metricAbsent,
		methods: clampMetric16(methodCount),
		kind:    uint8(entity.NodeKindClass),
	}
	return g.upsert(n, qualifiedName)
}

// AddNode translates a generic entity record into the typed compact form.
//
// File, Function, and Class nodes keep their typed fields and well-known
// metrics (complexity, param count, method count, exported, decorated);
// all other property-bag keys are dropped and counted in MemoryUsage().
// Module, Variable, and Commit nodes are stored as bare fixed-width
// records.
func (g *CompactGraph) AddNode(node entity.CodeNode) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}
	if node.QualifiedName == "" {
		return ErrInvalidNode
	}

	n := compactNode{
		qname: g.strings.intern(node.QualifiedName),
		name:  g.strings.intern(node.Name),
		file:  g.strings.intern(node.FilePath),
		lang:  g.strings.intern(node.Language),
		start: clampLine(node.StartLine),
		end:   clampLine(node.EndLine),
		compl: metricAbsent, params: metricAbsent, methods: metricAbsent,
		kind: uint8(kindIndex(node.Kind)),
	}

	if c, ok := node.Complexity(); ok {
		n.compl = clampMetric32(c)
	}
	if p, ok := node.ParamCount(); ok {
		n.params = clampMetric16(p)
	}
	if m, ok := node.MethodCount(); ok {
		n.methods = clampMetric16(m)
	}
	if node.Exported() {
		n.flags |= flagExported
	}
	if node.Decorated() {
		n.flags |= flagDecorated
	}
	g.droppedProps += countDroppedKeys(node.Properties)

	return g.upsert(n, node.QualifiedName)
}

// AddNodesBatch inserts many nodes, stopping at the first error.
func (g *CompactGraph) AddNodesBatch(nodes []entity.CodeNode) error {
	for i := range nodes {
		if err := g.AddNode(nodes[i]); err != nil {
			return err
		}
	}
	return nil
}

// upsert inserts n or updates the record with the same qualified name in
// place (same contract as the general backend).
func (g *CompactGraph) upsert(n compactNode, qualifiedName string) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}

	if id, exists := g.byName[qualifiedName]; exists {
		old := g.nodes[id]
		if old.kind != n.kind {
			g.byKind[old.kind] = removeID(g.byKind[old.kind], id)
			g.byKind[n.kind] = append(g.byKind[n.kind], id)
		}
		g.nodes[id] = n
		g.indexDirty = true
		return nil
	}

	if len(g.nodes) >= g.options.MaxNodes {
		return ErrMaxNodesExceeded
	}

	id := uint32(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.byName[qualifiedName] = id
	g.byKind[n.kind] = append(g.byKind[n.kind], id)
	g.indexDirty = true
	return nil
}

// AddEdge resolves both names and appends to the per-kind endpoint arrays.
//
// Same contracts as CodeGraph.AddEdge: unknown endpoints create
// placeholder nodes; duplicate (from, to, kind) triples are ignored.
// Edge property bags are dropped (counted in MemoryUsage()).
func (g *CompactGraph) AddEdge(edge entity.CodeEdge) error {
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

	key := uint64(from)<<32 | uint64(to)
	if _, dup := g.edgeSeen[edge.Kind][key]; dup {
		return nil
	}

	if g.edgeCountAll() >= g.options.MaxEdges {
		return ErrMaxEdgesExceeded
	}

	g.droppedProps += len(edge.Properties)
	g.edges[edge.Kind].from = append(g.edges[edge.Kind].from, from)
	g.edges[edge.Kind].to = append(g.edges[edge.Kind].to, to)
	g.edgeSeen[edge.Kind][key] = struct{}{}
	g.indexDirty = true
	return nil
}

// AddEdgesBatch inserts many edges, stopping at the first error.
func (g *CompactGraph) AddEdgesBatch(edges []entity.CodeEdge) error {
	for i := range edges {
		if err := g.AddEdge(edges[i]); err != nil {
			return err
		}
	}
	return nil
}

func (g *CompactGraph) resolveOrPlaceholder(qualifiedName string) (uint32, error) {
	if id, ok := g.byName[qualifiedName]; ok {
		return id, nil
	}
	if len(g.nodes) >= g.options.MaxNodes {
		return 0, ErrMaxNodesExceeded
	}
	id := uint32(len(g.nodes))
	g.nodes = append(g.nodes, compactNode{
		qname: g.strings.intern(qualifiedName),
		compl: metricAbsent, params: metricAbsent, methods: metricAbsent,
		kind: uint8(entity.NodeKindUnknown),
	})
	g.byName[qualifiedName] = id
	g.byKind[entity.NodeKindUnknown] = append(g.byKind[entity.NodeKindUnknown], id)
	g.indexDirty = true
	return id, nil
}

// ensureIndex rebuilds the per-kind CSR adjacency indexes when stale.
//
// Two counting passes per kind and direction, no per-node allocations.
// Called by Freeze() and by any traversal that observes a dirty index;
// safe only under the single-writer build discipline.
func (g *CompactGraph) ensureIndex() {
	if !g.indexDirty {
		return
	}
	n := len(g.nodes)
	for k := range g.edges {
		g.out[k] = buildCSR(n, g.edges[k].from, g.edges[k].to)
		g.in[k] = buildCSR(n, g.edges[k].to, g.edges[k].from)
	}
	g.indexDirty = false
}

// buildCSR builds a one-direction adjacency index from parallel arrays.
func buildCSR(nodeCount int, src, dst []uint32) csrIndex {
	offsets := make([]uint32, nodeCount+1)
	for _, s := range src {
		offsets[s+1]++
	}
	for i := 1; i <= nodeCount; i++ {
		offsets[i] += offsets[i-1]
	}
	targets := make([]uint32, len(src))
	cursor := make([]uint32, nodeCount)
	copy(cursor, offsets[:nodeCount])
	for i, s := range src {
		targets[cursor[s]] = dst[i]
		cursor[s]++
	}
	return csrIndex{offsets: offsets, targets: targets}
}

// materialize reconstructs an entity record from a fixed-width node.
func (g *CompactGraph) materialize(id uint32) entity.CodeNode {
	n := g.nodes[id]
	node := entity.CodeNode{
		Kind:          entity.NodeKind(n.kind),
		Name:          g.strings.lookup(n.name),
		QualifiedName: g.strings.lookup(n.qname),
		FilePath:      g.strings.lookup(n.file),
		Language:      g.strings.lookup(n.lang),
		StartLine:     int(n.start),
		EndLine:       int(n.end),
	}
	if n.compl != metricAbsent {
		node.SetProperty(entity.PropComplexity, int(n.compl))
	}
	if n.params != metricAbsent {
		node.SetProperty(entity.PropParamCount, int(n.params))
	}
	if n.methods != metricAbsent {
		node.SetProperty(entity.PropMethodCount, int(n.methods))
	}
	if n.flags&flagExported != 0 {
		node.SetProperty(entity.PropExported, true)
	}
	if n.flags&flagDecorated != 0 {
		node.SetProperty(entity.PropDecorated, true)
	}
	return node
}

// GetNode returns the node with the given qualified name.
func (g *CompactGraph) GetNode(qualifiedName string) (entity.CodeNode, bool) {
	id, ok := g.byName[qualifiedName]
	if !ok {
		return entity.CodeNode{}, false
	}
	return g.materialize(id), true
}

// Nodes returns the qualified names of all nodes, in insertion order.
func (g *CompactGraph) Nodes() []string {
	names := make([]string, len(g.nodes))
	for i := range g.nodes {
		names[i] = g.strings.lookup(g.nodes[i].qname)
	}
	return names
}

// GetNodesByKind returns all nodes of one kind.
func (g *CompactGraph) GetNodesByKind(kind entity.NodeKind) []entity.CodeNode {
	ids := g.byKind[kindIndex(kind)]
	nodes := make([]entity.CodeNode, len(ids))
	for i, id := range ids {
		nodes[i] = g.materialize(id)
	}
	return nodes
}

// GetFunctions returns all function nodes.
func (g *CompactGraph) GetFunctions() []entity.CodeNode {
	return g.GetNodesByKind(entity.NodeKindFunction)
}

// GetClasses returns all class nodes.
func (g *CompactGraph) GetClasses() []entity.CodeNode {
	return g.GetNodesByKind(entity.NodeKindClass)
}

// GetFiles returns all file nodes.
func (g *CompactGraph) GetFiles() []entity.CodeNode {
	return g.GetNodesByKind(entity.NodeKindFile)
}

// GetCallers returns the nodes with a Calls edge into the given node.
func (g *CompactGraph) GetCallers(qualifiedName string) []entity.CodeNode {
	return g.neighborNodes(qualifiedName, entity.EdgeKindCalls, false)
}

// GetCallees returns the nodes the given node has a Calls edge to.
func (g *CompactGraph) GetCallees(qualifiedName string) []entity.CodeNode {
	return g.neighborNodes(qualifiedName, entity.EdgeKindCalls, true)
}

// GetChildClasses returns the classes inheriting from the given class.
func (g *CompactGraph) GetChildClasses(qualifiedName string) []entity.CodeNode {
	return g.neighborNodes(qualifiedName, entity.EdgeKindInherits, false)
}

// GetImporters returns the nodes importing the given node.
func (g *CompactGraph) GetImporters(qualifiedName string) []entity.CodeNode {
	return g.neighborNodes(qualifiedName, entity.EdgeKindImports, false)
}

func (g *CompactGraph) neighborNodes(qualifiedName string, kind entity.EdgeKind, outgoing bool) []entity.CodeNode {
	ids := g.neighborIDs(qualifiedName, kind, outgoing)
	if ids == nil {
		return nil
	}
	nodes := make([]entity.CodeNode, len(ids))
	for i, id := range ids {
		nodes[i] = g.materialize(id)
	}
	return nodes
}

func (g *CompactGraph) neighborIDs(qualifiedName string, kind entity.EdgeKind, outgoing bool) []uint32 {
	if kind <= entity.EdgeKindUnknown || kind >= entity.NumEdgeKinds {
		return nil
	}
	id, ok := g.byName[qualifiedName]
	if !ok {
		return nil
	}
	g.ensureIndex()
	if outgoing {
		return g.out[kind].neighbors(id)
	}
	return g.in[kind].neighbors(id)
}

// CallFanIn returns the number of incoming Calls edges. O(1) from the
// adjacency offsets.
func (g *CompactGraph) CallFanIn(qualifiedName string) int {
	return len(g.neighborIDs(qualifiedName, entity.EdgeKindCalls, false))
}

// CallFanOut returns the number of outgoing Calls edges. O(1) from the
// adjacency offsets.
func (g *CompactGraph) CallFanOut(qualifiedName string) int {
	return len(g.neighborIDs(qualifiedName, entity.EdgeKindCalls, true))
}

// GetCalls enumerates all Calls edges as qualified-name pairs.
func (g *CompactGraph) GetCalls() []entity.EdgePair {
	return g.edgePairs(entity.EdgeKindCalls)
}

// GetImports enumerates all Imports edges as qualified-name pairs.
func (g *CompactGraph) GetImports() []entity.EdgePair {
	return g.edgePairs(entity.EdgeKindImports)
}

// GetInheritance enumerates all Inherits edges as qualified-name pairs.
func (g *CompactGraph) GetInheritance() []entity.EdgePair {
	return g.edgePairs(entity.EdgeKindInherits)
}

func (g *CompactGraph) edgePairs(kind entity.EdgeKind) []entity.EdgePair {
	ke := g.edges[kind]
	pairs := make([]entity.EdgePair, len(ke.from))
	for i := range ke.from {
		pairs[i] = entity.EdgePair{
			From: g.strings.lookup(g.nodes[ke.from[i]].qname),
			To:   g.strings.lookup(g.nodes[ke.to[i]].qname),
		}
	}
	return pairs
}

// Successors returns outgoing neighbor names over one edge kind.
func (g *CompactGraph) Successors(qualifiedName string, kind entity.EdgeKind) []string {
	return g.neighborNames(qualifiedName, kind, true)
}

// Predecessors returns incoming neighbor names over one edge kind.
func (g *CompactGraph) Predecessors(qualifiedName string, kind entity.EdgeKind) []string {
	return g.neighborNames(qualifiedName, kind, false)
}

func (g *CompactGraph) neighborNames(qualifiedName string, kind entity.EdgeKind, outgoing bool) []string {
	ids := g.neighborIDs(qualifiedName, kind, outgoing)
	if ids == nil {
		return nil
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = g.strings.lookup(g.nodes[id].qname)
	}
	return names
}

// NodeCount returns the number of nodes in the graph.
func (g *CompactGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *CompactGraph) EdgeCount() int {
	return g.edgeCountAll()
}

func (g *CompactGraph) edgeCountAll() int {
	total := 0
	for k := range g.edges {
		total += len(g.edges[k].from)
	}
	return total
}

// Stats returns aggregate per-kind node and edge counts.
func (g *CompactGraph) Stats() Stats {
	stats := Stats{
		Nodes:       len(g.nodes),
		Edges:       g.edgeCountAll(),
		NodesByKind: make(map[string]int),
		EdgesByKind: make(map[string]int),
	}
	for k := entity.NodeKind(0); k < entity.NumNodeKinds; k++ {
		if n := len(g.byKind[k]); n > 0 {
			stats.NodesByKind[k.String()] = n
		}
	}
	for k := entity.EdgeKind(0); k < entity.NumEdgeKinds; k++ {
		if n := len(g.edges[k].from); n > 0 {
			stats.EdgesByKind[k.String()] = n
		}
	}
	return stats
}

// Edges returns every edge as an entity record, for persistence.
func (g *CompactGraph) Edges() []entity.CodeEdge {
	out := make([]entity.CodeEdge, 0, g.edgeCountAll())
	for k := entity.EdgeKind(0); k < entity.NumEdgeKinds; k++ {
		ke := g.edges[k]
		for i := range ke.from {
			out = append(out, entity.CodeEdge{
				From: g.strings.lookup(g.nodes[ke.from[i]].qname),
				To:   g.strings.lookup(g.nodes[ke.to[i]].qname),
				Kind: k,
			})
		}
	}
	return out
}

// MemoryReport is the compact backend's operational diagnostic.
type MemoryReport struct {
	// Bytes is the estimated total footprint of records, interned string
	// payloads, edge arrays, and adjacency indexes.
	Bytes int `json:"bytes"`

	// UniqueStrings is the number of distinct interned strings.
	UniqueStrings int `json:"unique_strings"`

	// Nodes is the node count.
	Nodes int `json:"nodes"`

	// Edges is the edge count.
	Edges int `json:"edges"`

	// DroppedProperties counts property-bag keys the fixed-width encoding
	// discarded during ingestion.
	DroppedProperties int `json:"dropped_properties"`
}

// MemoryUsage reports the estimated memory footprint of the store.
func (g *CompactGraph) MemoryUsage() MemoryReport {
	bytes := len(g.nodes) * int(unsafe.Sizeof(compactNode{}))
	bytes += g.strings.bytes
	for k := range g.edges {
		bytes += (len(g.edges[k].from) + len(g.edges[k].to)) * 4
		bytes += (len(g.out[k].offsets) + len(g.out[k].targets)) * 4
		bytes += (len(g.in[k].offsets) + len(g.in[k].targets)) * 4
	}
	return MemoryReport{
		Bytes:             bytes,
		UniqueStrings:     g.strings.count(),
		Nodes:             len(g.nodes),
		Edges:             g.edgeCountAll(),
		DroppedProperties: g.droppedProps,
	}
}

// compactKeptKeys are the property-bag keys the fixed-width encoding keeps.
var compactKeptKeys = map[string]struct{}{
	entity.PropComplexity:  {},
	entity.PropParamCount:  {},
	entity.PropMethodCount: {},
	entity.PropExported:    {},
	entity.PropDecorated:   {},
}

// countDroppedKeys counts property keys with no fixed-width home.
func countDroppedKeys(props map[string]any) int {
	dropped := 0
	for k := range props {
		if _, kept := compactKeptKeys[k]; !kept {
			dropped++
		}
	}
	return dropped
}

// clampLine bounds a line number into uint32 range; negatives read as 0.
func clampLine(n int) uint32 {
	if n < 0 {
		return 0
	}
	return uint32(n)
}

// clampMetric32 encodes an optional metric; negatives mean absent.
func clampMetric32(n int) int32 {
	if n < 0 {
		return metricAbsent
	}
	return int32(n)
}

// clampMetric16 encodes an optional metric; negatives mean absent and
// values beyond int16 saturate.
func clampMetric16(n int) int16 {
	if n < 0 {
		return metricAbsent
	}
	if n > 32767 {
		return 32767
	}
	return int16(n)
}

// removeID deletes the first occurrence of v from s, preserving order.
func removeID(s []uint32, v uint32) []uint32 {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codehealth/internal/entity"
)

// fn builds a function node for tests.
func fn(qn string) entity.CodeNode {
	return entity.CodeNode{
		Kind:          entity.NodeKindFunction,
		Name:          qn,
		QualifiedName: qn,
		FilePath:      "main.go",
		StartLine:     1,
		EndLine:       10,
	}
}

// call builds a Calls edge for tests.
func call(from, to string) entity.CodeEdge {
	return entity.CodeEdge{From: from, To: to, Kind: entity.EdgeKindCalls}
}

func TestCodeGraph_UpsertIdempotence(t *testing.T) {
	g := NewCodeGraph()

	n := fn("a")
	n.SetProperty(entity.PropComplexity, 5)
	require.NoError(t, g.AddNode(n))
	require.NoError(t, g.AddNode(n))
	assert.Equal(t, 1, g.NodeCount())

	// Update in place: scalars overwritten, properties merged.
	updated := fn("a")
	updated.EndLine = 20
	updated.SetProperty(entity.PropParamCount, 2)
	require.NoError(t, g.AddNode(updated))

	assert.Equal(t, 1, g.NodeCount())
	got, ok := g.GetNode("a")
	require.True(t, ok)
	assert.Equal(t, 20, got.EndLine)

	c, ok := got.Complexity()
	require.True(t, ok, "merged property survives the upsert")
	assert.Equal(t, 5, c)
	p, ok := got.ParamCount()
	require.True(t, ok)
	assert.Equal(t, 2, p)
}

func TestCodeGraph_FanInvariant(t *testing.T) {
	g := NewCodeGraph()
	for _, qn := range []string{"a", "b", "c", "d"} {
		require.NoError(t, g.AddNode(fn(qn)))
	}
	for _, e := range []entity.CodeEdge{
		call("a", "d"), call("b", "d"), call("c", "d"), call("d", "a"),
	} {
		require.NoError(t, g.AddEdge(e))
	}

	for _, qn := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, len(g.GetCallers(qn)), g.CallFanIn(qn), "fan-in of %s", qn)
		assert.Equal(t, len(g.GetCallees(qn)), g.CallFanOut(qn), "fan-out of %s", qn)
	}
	assert.Equal(t, 3, g.CallFanIn("d"))
	assert.Equal(t, 1, g.CallFanOut("d"))
}

func TestCodeGraph_PlaceholderUpgrade(t *testing.T) {
	g := NewCodeGraph()
	require.NoError(t, g.AddNode(fn("caller")))

	// Edge to an unknown name creates a placeholder.
	require.NoError(t, g.AddEdge(call("caller", "ghost")))
	ghost, ok := g.GetNode("ghost")
	require.True(t, ok)
	assert.True(t, ghost.IsPlaceholder())
	assert.Equal(t, 2, g.NodeCount())

	// The real record upgrades the placeholder in place.
	require.NoError(t, g.AddNode(fn("ghost")))
	ghost, ok = g.GetNode("ghost")
	require.True(t, ok)
	assert.False(t, ghost.IsPlaceholder())
	assert.Equal(t, 2, g.NodeCount())

	// Kind index followed the upgrade.
	assert.Len(t, g.GetFunctions(), 2)
	assert.Empty(t, g.GetNodesByKind(entity.NodeKindUnknown))

	// Edges survive the upgrade.
	assert.Equal(t, 1, g.CallFanIn("ghost"))
}

func TestCodeGraph_DuplicateEdgeMergesProperties(t *testing.T) {
	g := NewCodeGraph()
	require.NoError(t, g.AddNode(fn("a")))
	require.NoError(t, g.AddNode(fn("b")))

	e := call("a", "b")
	e.Properties = map[string]any{"line": 10}
	require.NoError(t, g.AddEdge(e))

	dup := call("a", "b")
	dup.Properties = map[string]any{"line": 20, "alias": "x"}
	require.NoError(t, g.AddEdge(dup))

	assert.Equal(t, 1, g.EdgeCount(), "duplicate triple does not insert a second edge")
	assert.Equal(t, 1, g.CallFanOut("a"))

	props, ok := g.EdgeProperties("a", "b", entity.EdgeKindCalls)
	require.True(t, ok)
	assert.Equal(t, 20, props["line"], "incoming keys win")
	assert.Equal(t, "x", props["alias"])

	// Different kind between the same pair is a parallel edge, not a dup.
	require.NoError(t, g.AddEdge(entity.CodeEdge{From: "a", To: "b", Kind: entity.EdgeKindUses}))
	assert.Equal(t, 2, g.EdgeCount())
}

func TestCodeGraph_UnknownLookupsAreEmptyNotErrors(t *testing.T) {
	g := NewCodeGraph()

	_, ok := g.GetNode("nope")
	assert.False(t, ok)
	assert.Empty(t, g.GetCallers("nope"))
	assert.Empty(t, g.GetCallees("nope"))
	assert.Zero(t, g.CallFanIn("nope"))
	assert.Zero(t, g.CallFanOut("nope"))
	assert.Empty(t, g.GetChildClasses("nope"))
	assert.Empty(t, g.GetImporters("nope"))
	assert.Empty(t, g.Successors("nope", entity.EdgeKindCalls))
}

func TestCodeGraph_EdgeEnumerations(t *testing.T) {
	g := NewCodeGraph()
	file := func(qn string) entity.CodeNode {
		return entity.CodeNode{Kind: entity.NodeKindFile, QualifiedName: qn, Name: qn}
	}
	class := func(qn string) entity.CodeNode {
		return entity.CodeNode{Kind: entity.NodeKindClass, QualifiedName: qn, Name: qn}
	}
	require.NoError(t, g.AddNodesBatch([]entity.CodeNode{
		file("a.go"), file("b.go"), class("Base"), class("Derived"), fn("f"), fn("main"),
	}))
	require.NoError(t, g.AddEdgesBatch([]entity.CodeEdge{
		{From: "a.go", To: "b.go", Kind: entity.EdgeKindImports},
		{From: "Derived", To: "Base", Kind: entity.EdgeKindInherits},
		call("main", "f"),
	}))

	assert.Equal(t, []entity.EdgePair{{From: "a.go", To: "b.go"}}, g.GetImports())
	assert.Equal(t, []entity.EdgePair{{From: "Derived", To: "Base"}}, g.GetInheritance())
	assert.Equal(t, []entity.EdgePair{{From: "main", To: "f"}}, g.GetCalls())

	children := g.GetChildClasses("Base")
	require.Len(t, children, 1)
	assert.Equal(t, "Derived", children[0].QualifiedName)

	importers := g.GetImporters("b.go")
	require.Len(t, importers, 1)
	assert.Equal(t, "a.go", importers[0].QualifiedName)
}

func TestCodeGraph_Stats(t *testing.T) {
	g := NewCodeGraph()
	require.NoError(t, g.AddNode(entity.CodeNode{Kind: entity.NodeKindFile, QualifiedName: "a.go"}))
	require.NoError(t, g.AddNode(fn("f")))
	require.NoError(t, g.AddNode(fn("h")))
	require.NoError(t, g.AddEdge(call("f", "h")))

	stats := g.Stats()
	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 1, stats.Edges)
	assert.Equal(t, 2, stats.NodesByKind["function"])
	assert.Equal(t, 1, stats.NodesByKind["file"])
	assert.Equal(t, 1, stats.EdgesByKind["calls"])
	assert.NotContains(t, stats.NodesByKind, "commit")
}

func TestCodeGraph_Freeze(t *testing.T) {
	g := NewCodeGraph()
	require.NoError(t, g.AddNode(fn("a")))
	assert.Equal(t, GraphStateBuilding, g.State())

	g.Freeze()
	assert.True(t, g.IsFrozen())
	assert.NotZero(t, g.BuiltAtMilli())

	assert.ErrorIs(t, g.AddNode(fn("b")), ErrGraphFrozen)
	assert.ErrorIs(t, g.AddEdge(call("a", "a")), ErrGraphFrozen)

	// Reads still work.
	_, ok := g.GetNode("a")
	assert.True(t, ok)
}

func TestCodeGraph_Validation(t *testing.T) {
	g := NewCodeGraph()
	assert.ErrorIs(t, g.AddNode(entity.CodeNode{Kind: entity.NodeKindFunction}), ErrInvalidNode)
	assert.ErrorIs(t, g.AddEdge(entity.CodeEdge{From: "", To: "b", Kind: entity.EdgeKindCalls}), ErrInvalidEdge)
	assert.ErrorIs(t, g.AddEdge(entity.CodeEdge{From: "a", To: "b", Kind: entity.EdgeKindUnknown}), ErrInvalidEdge)
	assert.ErrorIs(t, g.AddEdge(entity.CodeEdge{From: "a", To: "b", Kind: entity.NumEdgeKinds}), ErrInvalidEdge)
}

func TestCodeGraph_Capacity(t *testing.T) {
	g := NewCodeGraph(WithMaxNodes(2), WithMaxEdges(1))
	require.NoError(t, g.AddNode(fn("a")))
	require.NoError(t, g.AddNode(fn("b")))
	assert.ErrorIs(t, g.AddNode(fn("c")), ErrMaxNodesExceeded)

	// Upsert of an existing name is not a capacity violation.
	require.NoError(t, g.AddNode(fn("a")))

	require.NoError(t, g.AddEdge(call("a", "b")))
	assert.ErrorIs(t, g.AddEdge(call("b", "a")), ErrMaxEdgesExceeded)
}

func TestSharedGraph_ConcurrentReads(t *testing.T) {
	g := NewCodeGraph()
	require.NoError(t, g.AddNode(fn("a")))
	require.NoError(t, g.AddNode(fn("b")))
	require.NoError(t, g.AddEdge(call("a", "b")))

	shared := NewSharedGraph(g)
	shared.Freeze()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				shared.GetCallers("b")
				shared.CallFanOut("a")
				shared.Stats()
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Equal(t, 1, shared.CallFanIn("b"))
	assert.ErrorIs(t, shared.AddNode(fn("c")), ErrGraphFrozen)
}

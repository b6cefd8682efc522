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

func TestCompactGraph_TypedBuilders(t *testing.T) {
	g := NewCompactGraph()
	require.NoError(t, g.AddFile("pkg/a.go"))
	require.NoError(t, g.AddFunction("pkg/a.go:Work", "Work", "pkg/a.go", 10, 42, 7, 3))
	require.NoError(t, g.AddClass("pkg/a.go:Engine", "Engine", "pkg/a.go", 50, 120, 9))

	f, ok := g.GetNode("pkg/a.go")
	require.True(t, ok)
	assert.Equal(t, entity.NodeKindFile, f.Kind)
	assert.Equal(t, "a.go", f.Name)

	w, ok := g.GetNode("pkg/a.go:Work")
	require.True(t, ok)
	assert.Equal(t, entity.NodeKindFunction, w.Kind)
	assert.Equal(t, 33, w.LOC())
	c, ok := w.Complexity()
	require.True(t, ok)
	assert.Equal(t, 7, c)
	p, ok := w.ParamCount()
	require.True(t, ok)
	assert.Equal(t, 3, p)

	e, ok := g.GetNode("pkg/a.go:Engine")
	require.True(t, ok)
	m, ok := e.MethodCount()
	require.True(t, ok)
	assert.Equal(t, 9, m)

	// Unknown metrics read back as absent.
	require.NoError(t, g.AddFunction("pkg/a.go:Mystery", "Mystery", "pkg/a.go", 1, 1, -1, -1))
	my, _ := g.GetNode("pkg/a.go:Mystery")
	_, ok = my.Complexity()
	assert.False(t, ok)
}

func TestCompactGraph_StringInterning(t *testing.T) {
	g := NewCompactGraph()
	// Many functions in the same file: the path is interned once.
	require.NoError(t, g.AddFunction("f1", "f1", "shared/path.go", 1, 2, -1, -1))
	require.NoError(t, g.AddFunction("f2", "f2", "shared/path.go", 3, 4, -1, -1))
	require.NoError(t, g.AddFunction("f3", "f3", "shared/path.go", 5, 6, -1, -1))

	report := g.MemoryUsage()
	// f1, f2, f3, shared/path.go — each distinct string once.
	assert.Equal(t, 4, report.UniqueStrings)
	assert.Equal(t, 3, report.Nodes)
	assert.Positive(t, report.Bytes)
}

func TestCompactGraph_QueryContractParity(t *testing.T) {
	// The same build sequence through both backends must answer the
	// query interface identically.
	build := func(add func(entity.CodeNode) error, addEdge func(entity.CodeEdge) error) {
		nodes := []entity.CodeNode{
			{Kind: entity.NodeKindFile, QualifiedName: "a.go", Name: "a.go"},
			{Kind: entity.NodeKindFile, QualifiedName: "b.go", Name: "b.go"},
			fn("f"), fn("g"), fn("h"),
			{Kind: entity.NodeKindClass, QualifiedName: "Base", Name: "Base"},
			{Kind: entity.NodeKindClass, QualifiedName: "Derived", Name: "Derived"},
		}
		for _, n := range nodes {
			require.NoError(t, add(n))
		}
		edges := []entity.CodeEdge{
			call("f", "g"), call("g", "h"), call("f", "h"),
			{From: "a.go", To: "b.go", Kind: entity.EdgeKindImports},
			{From: "Derived", To: "Base", Kind: entity.EdgeKindInherits},
		}
		for _, e := range edges {
			require.NoError(t, addEdge(e))
		}
	}

	std := NewCodeGraph()
	build(std.AddNode, std.AddEdge)
	compact := NewCompactGraph()
	build(compact.AddNode, compact.AddEdge)

	for _, q := range []Query{std, compact} {
		assert.Equal(t, 7, q.NodeCount())
		assert.Equal(t, 5, q.EdgeCount())
		assert.Len(t, q.GetFunctions(), 3)
		assert.Len(t, q.GetClasses(), 2)
		assert.Len(t, q.GetFiles(), 2)
		assert.Equal(t, 2, q.CallFanOut("f"))
		assert.Equal(t, 2, q.CallFanIn("h"))
		assert.ElementsMatch(t, []string{"g", "h"}, q.Successors("f", entity.EdgeKindCalls))
		assert.ElementsMatch(t,
			[]entity.EdgePair{{From: "f", To: "g"}, {From: "g", To: "h"}, {From: "f", To: "h"}},
			q.GetCalls())
		assert.Equal(t, []entity.EdgePair{{From: "a.go", To: "b.go"}}, q.GetImports())
		assert.Equal(t, []entity.EdgePair{{From: "Derived", To: "Base"}}, q.GetInheritance())

		children := q.GetChildClasses("Base")
		require.Len(t, children, 1)
		assert.Equal(t, "Derived", children[0].QualifiedName)

		importers := q.GetImporters("b.go")
		require.Len(t, importers, 1)
		assert.Equal(t, "a.go", importers[0].QualifiedName)
	}

	assert.True(t, std.Stats().Equal(compact.Stats()))
}

func TestCompactGraph_FanInvariant(t *testing.T) {
	g := NewCompactGraph()
	for _, qn := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddFunction(qn, qn, "x.go", 1, 1, -1, -1))
	}
	require.NoError(t, g.AddEdge(call("a", "c")))
	require.NoError(t, g.AddEdge(call("b", "c")))

	for _, qn := range []string{"a", "b", "c"} {
		assert.Equal(t, len(g.GetCallers(qn)), g.CallFanIn(qn))
		assert.Equal(t, len(g.GetCallees(qn)), g.CallFanOut(qn))
	}
}

func TestCompactGraph_UpsertAndPlaceholder(t *testing.T) {
	g := NewCompactGraph()
	require.NoError(t, g.AddEdge(call("caller", "callee")))
	assert.Equal(t, 2, g.NodeCount(), "placeholders created for both endpoints")

	ghost, ok := g.GetNode("callee")
	require.True(t, ok)
	assert.True(t, ghost.IsPlaceholder())

	require.NoError(t, g.AddFunction("callee", "callee", "x.go", 1, 5, 2, 0))
	assert.Equal(t, 2, g.NodeCount())
	upgraded, _ := g.GetNode("callee")
	assert.Equal(t, entity.NodeKindFunction, upgraded.Kind)

	// Duplicate edge triple is ignored.
	require.NoError(t, g.AddEdge(call("caller", "callee")))
	assert.Equal(t, 1, g.EdgeCount())
}

func TestCompactGraph_DroppedProperties(t *testing.T) {
	g := NewCompactGraph()
	n := fn("f")
	n.SetProperty(entity.PropComplexity, 4)   // kept as fixed-width field
	n.SetProperty("custom_detector_score", 9) // no fixed-width home
	require.NoError(t, g.AddNode(n))

	report := g.MemoryUsage()
	assert.Equal(t, 1, report.DroppedProperties)

	got, _ := g.GetNode("f")
	c, ok := got.Complexity()
	require.True(t, ok)
	assert.Equal(t, 4, c)
	assert.NotContains(t, got.Properties, "custom_detector_score")
}

func TestCompactGraph_Freeze(t *testing.T) {
	g := NewCompactGraph()
	require.NoError(t, g.AddFunction("a", "a", "x.go", 1, 1, -1, -1))
	g.Freeze()

	assert.True(t, g.IsFrozen())
	assert.ErrorIs(t, g.AddFile("y.go"), ErrGraphFrozen)
	assert.ErrorIs(t, g.AddEdge(call("a", "a")), ErrGraphFrozen)

	_, ok := g.GetNode("a")
	assert.True(t, ok)
}

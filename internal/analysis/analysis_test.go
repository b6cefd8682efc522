// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codehealth/internal/entity"
	"github.com/AleutianAI/codehealth/internal/graph"
)

// fnNode builds a function node with optional complexity.
func fnNode(qn string, complexity int) entity.CodeNode {
	node := entity.CodeNode{
		Kind:          entity.NodeKindFunction,
		Name:          qn,
		QualifiedName: qn,
	}
	if complexity > 0 {
		node.Properties = map[string]any{entity.PropComplexity: complexity}
	}
	return node
}

func freeze(t *testing.T, nodes []entity.CodeNode, edges []entity.CodeEdge) graph.Query {
	t.Helper()
	g := graph.NewCodeGraph()
	require.NoError(t, g.AddNodesBatch(nodes))
	require.NoError(t, g.AddEdgesBatch(edges))
	g.Freeze()
	return g
}

// biCalls builds call edges in both directions.
func biCalls(pairs [][2]string) []entity.CodeEdge {
	edges := make([]entity.CodeEdge, 0, 2*len(pairs))
	for _, p := range pairs {
		edges = append(edges,
			entity.CodeEdge{From: p[0], To: p[1], Kind: entity.EdgeKindCalls},
			entity.CodeEdge{From: p[1], To: p[0], Kind: entity.EdgeKindCalls},
		)
	}
	return edges
}

func TestBottleneck(t *testing.T) {
	// Bidirectional chain a-b-c-d: b and c carry all a<->d traffic.
	g := freeze(t,
		[]entity.CodeNode{fnNode("a", 0), fnNode("b", 15), fnNode("c", 2), fnNode("d", 0)},
		biCalls([][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}}),
	)
	actx := NewContext(g, nil, Thresholds{})

	findings, err := (&Bottleneck{}).Run(context.Background(), actx)
	require.NoError(t, err)
	require.Len(t, findings, 2)

	byNode := map[string]Finding{}
	for _, f := range findings {
		byNode[f.Node] = f
	}
	// High betweenness plus high complexity escalates to critical.
	assert.Equal(t, SeverityCritical, byNode["b"].Severity)
	assert.Contains(t, byNode["b"].Message, "complexity 15")
	// Same betweenness without the complexity stays a warning.
	assert.Equal(t, SeverityWarning, byNode["c"].Severity)
	assert.InDelta(t, byNode["b"].Value, byNode["c"].Value, 1e-9)
}

func TestCoordinator(t *testing.T) {
	// Star center: harmonic 1.0 normalized. Only the complex center is
	// flagged; the equally central but simple variant is not.
	g := freeze(t,
		[]entity.CodeNode{fnNode("hub", 12), fnNode("l1", 0), fnNode("l2", 0), fnNode("l3", 0)},
		biCalls([][2]string{{"hub", "l1"}, {"hub", "l2"}, {"hub", "l3"}}),
	)
	actx := NewContext(g, nil, Thresholds{})

	findings, err := (&Coordinator{}).Run(context.Background(), actx)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "hub", findings[0].Node)
	assert.Equal(t, SeverityWarning, findings[0].Severity)
	assert.InDelta(t, 1.0, findings[0].Value, 1e-9)
}

func TestIsolation(t *testing.T) {
	g := freeze(t,
		[]entity.CodeNode{
			fnNode("active", 0), fnNode("helper", 0), fnNode("orphan", 0),
			{Kind: entity.NodeKindFile, QualifiedName: "lonely.py", Name: "lonely.py"},
		},
		[]entity.CodeEdge{{From: "active", To: "helper", Kind: entity.EdgeKindCalls}},
	)
	actx := NewContext(g, nil, Thresholds{})

	findings, err := (&Isolation{}).Run(context.Background(), actx)
	require.NoError(t, err)
	// Only the function is a dead-code candidate, not the file node.
	require.Len(t, findings, 1)
	assert.Equal(t, "orphan", findings[0].Node)
	assert.Equal(t, SeverityInfo, findings[0].Severity)
}

func TestCycleDetectors(t *testing.T) {
	nodes := []entity.CodeNode{
		{Kind: entity.NodeKindFile, QualifiedName: "a.py", Name: "a.py"},
		{Kind: entity.NodeKindFile, QualifiedName: "b.py", Name: "b.py"},
		fnNode("f", 0), fnNode("g", 0), fnNode("h", 0),
	}
	edges := []entity.CodeEdge{
		{From: "a.py", To: "b.py", Kind: entity.EdgeKindImports},
		{From: "b.py", To: "a.py", Kind: entity.EdgeKindImports},
		{From: "f", To: "g", Kind: entity.EdgeKindCalls},
		{From: "g", To: "h", Kind: entity.EdgeKindCalls},
		{From: "h", To: "f", Kind: entity.EdgeKindCalls},
	}
	actx := NewContext(freeze(t, nodes, edges), nil, Thresholds{})

	imports, err := (&ImportCycles{}).Run(context.Background(), actx)
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.EqualValues(t, 2, imports[0].Value)
	assert.Contains(t, imports[0].Message, " -> ")

	calls, err := (&CallCycles{}).Run(context.Background(), actx)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.EqualValues(t, 3, calls[0].Value)
}

func TestRunAll(t *testing.T) {
	g := freeze(t,
		[]entity.CodeNode{fnNode("a", 0), fnNode("b", 0), fnNode("orphan", 0)},
		[]entity.CodeEdge{
			{From: "a", To: "b", Kind: entity.EdgeKindCalls},
			{From: "b", To: "a", Kind: entity.EdgeKindCalls},
		},
	)
	actx := NewContext(g, nil, Thresholds{})

	report, err := RunAll(context.Background(), actx, DefaultDetectors())
	require.NoError(t, err)
	require.NotEmpty(t, report.Findings)
	assert.Positive(t, report.DebtScore)

	// One call cycle (warning, weight 3) and one isolated function
	// (info, weight 1) over 3 nodes.
	assert.InDelta(t, (3.0+1.0)*100/3, report.DebtScore, 1e-9)
}

func TestDebtScore(t *testing.T) {
	findings := []Finding{
		{Severity: SeverityCritical},
		{Severity: SeverityWarning},
		{Severity: SeverityInfo},
	}
	assert.InDelta(t, 11.0, DebtScore(findings, 100), 1e-9)
	assert.Zero(t, DebtScore(findings, 0))
	assert.Zero(t, DebtScore(nil, 50))
}

func TestContentCache(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "app.py"), []byte("print('hi')\n"), 0o644))

	cache := NewContentCache(dir)
	data, err := cache.Get("pkg/app.py")
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(data))
	assert.Equal(t, 1, cache.Len())

	// Second read comes from the cache.
	again, err := cache.Get("pkg/app.py")
	require.NoError(t, err)
	assert.Equal(t, data, again)
	assert.Equal(t, 1, cache.Len())

	_, err = cache.Get("pkg/missing.py")
	assert.Error(t, err)
}

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

func TestBackendSelection(t *testing.T) {
	tests := []struct {
		name string
		est  SizeEstimate
		want BackendKind
	}{
		{name: "small repo", est: SizeEstimate{Files: 200, Functions: 3_000}, want: BackendStandard},
		{name: "at file threshold", est: SizeEstimate{Files: 10_000}, want: BackendStandard},
		{name: "over file threshold", est: SizeEstimate{Files: 10_001}, want: BackendCompact},
		{name: "over function threshold", est: SizeEstimate{Functions: 100_001}, want: BackendCompact},
		{name: "zero estimate", est: SizeEstimate{}, want: BackendStandard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUnifiedGraph(tt.est)
			assert.Equal(t, tt.want, u.Backend())
		})
	}
}

func TestBackendSelection_CustomThresholds(t *testing.T) {
	u := NewUnifiedGraphWithThresholds(
		SizeEstimate{Files: 50},
		SelectionThresholds{Files: 10, Functions: 100},
	)
	assert.Equal(t, BackendCompact, u.Backend())

	// Non-positive thresholds fall back to the defaults.
	u = NewUnifiedGraphWithThresholds(SizeEstimate{Files: 50}, SelectionThresholds{})
	assert.Equal(t, BackendStandard, u.Backend())
}

func TestBackendKind_RoundTrip(t *testing.T) {
	assert.Equal(t, "standard", BackendStandard.String())
	assert.Equal(t, "compact", BackendCompact.String())
	assert.Equal(t, BackendStandard, ParseBackendKind("standard"))
	assert.Equal(t, BackendCompact, ParseBackendKind("compact"))
	assert.Equal(t, BackendStandard, ParseBackendKind("garbage"))
}

// populate runs the same generic build sequence against either backend.
func populate(t *testing.T, u *UnifiedGraph) {
	t.Helper()
	require.NoError(t, u.AddNodesBatch([]entity.CodeNode{
		{Kind: entity.NodeKindFile, QualifiedName: "app.py", Name: "app.py"},
		{
			Kind: entity.NodeKindFunction, QualifiedName: "app.main", Name: "main",
			FilePath: "app.py", StartLine: 1, EndLine: 20,
			Properties: map[string]any{entity.PropComplexity: 4, entity.PropParamCount: 2},
		},
		{
			Kind: entity.NodeKindClass, QualifiedName: "app.Server", Name: "Server",
			FilePath: "app.py", StartLine: 22, EndLine: 80,
			Properties: map[string]any{entity.PropMethodCount: 6},
		},
		{Kind: entity.NodeKindModule, QualifiedName: "app", Name: "app"},
	}))
	require.NoError(t, u.AddEdgesBatch([]entity.CodeEdge{
		{From: "app.main", To: "app.Server", Kind: entity.EdgeKindCalls},
		{From: "app.py", To: "app.main", Kind: entity.EdgeKindContains},
	}))
}

func TestUnifiedGraph_GenericBuildOnBothBackends(t *testing.T) {
	std := NewUnifiedGraph(SizeEstimate{})
	compact := NewUnifiedGraphWithThresholds(SizeEstimate{Files: 100}, SelectionThresholds{Files: 1, Functions: 1})
	require.Equal(t, BackendStandard, std.Backend())
	require.Equal(t, BackendCompact, compact.Backend())

	populate(t, std)
	populate(t, compact)
	std.Freeze()
	compact.Freeze()

	// The generic AddNode path through the compact translation layer must
	// land in the same observable state as the standard backend.
	assert.True(t, std.Stats().Equal(compact.Stats()))

	for _, u := range []*UnifiedGraph{std, compact} {
		main, ok := u.GetNode("app.main")
		require.True(t, ok, "backend %s", u.Backend())
		c, ok := main.Complexity()
		assert.True(t, ok)
		assert.Equal(t, 4, c)

		srv, ok := u.GetNode("app.Server")
		require.True(t, ok)
		m, ok := srv.MethodCount()
		assert.True(t, ok)
		assert.Equal(t, 6, m)

		assert.Equal(t, 1, u.CallFanIn("app.Server"))
		assert.Equal(t, 1, u.CallFanOut("app.main"))
		assert.Equal(t, []string{"app.main"}, u.Successors("app.py", entity.EdgeKindContains))
	}
}

func TestUnifiedGraph_FileWithoutQualifiedName(t *testing.T) {
	u := NewUnifiedGraphWithThresholds(SizeEstimate{Files: 100}, SelectionThresholds{Files: 1, Functions: 1})
	err := u.AddNode(entity.CodeNode{Kind: entity.NodeKindFile})
	assert.ErrorIs(t, err, ErrInvalidNode)
}

func TestUnifiedGraph_MemoryUsage(t *testing.T) {
	std := NewUnifiedGraph(SizeEstimate{})
	assert.Zero(t, std.MemoryUsage().Bytes)

	compact := NewUnifiedGraphWithThresholds(SizeEstimate{Files: 100}, SelectionThresholds{Files: 1, Functions: 1})
	populate(t, compact)
	report := compact.MemoryUsage()
	assert.Positive(t, report.Bytes)
	assert.Equal(t, 4, report.Nodes)
	assert.Equal(t, 2, report.Edges)
}

func TestUnifiedGraph_FreezeStopsWrites(t *testing.T) {
	for _, est := range []SizeEstimate{{}, {Files: 20_000}} {
		u := NewUnifiedGraph(est)
		populate(t, u)
		u.Freeze()
		err := u.AddNode(fn("late"))
		assert.ErrorIs(t, err, ErrGraphFrozen, "backend %s", u.Backend())
		err = u.AddEdge(call("app.main", "late"))
		assert.ErrorIs(t, err, ErrGraphFrozen, "backend %s", u.Backend())
	}
}

func TestUnifiedGraph_Edges(t *testing.T) {
	u := NewUnifiedGraph(SizeEstimate{})
	populate(t, u)
	u.Freeze()

	edges := u.Edges()
	require.Len(t, edges, 2)
	kinds := map[entity.EdgeKind]bool{}
	for _, e := range edges {
		kinds[e.Kind] = true
	}
	assert.True(t, kinds[entity.EdgeKindCalls])
	assert.True(t, kinds[entity.EdgeKindContains])
}

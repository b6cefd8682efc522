// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeKind_StringRoundTrip(t *testing.T) {
	for k := NodeKindUnknown; k < NumNodeKinds; k++ {
		assert.Equal(t, k, ParseNodeKind(k.String()), "kind %d", k)
	}
	assert.Equal(t, NodeKindUnknown, ParseNodeKind("not-a-kind"))
}

func TestEdgeKind_StringRoundTrip(t *testing.T) {
	for k := EdgeKindUnknown; k < NumEdgeKinds; k++ {
		assert.Equal(t, k, ParseEdgeKind(k.String()), "kind %d", k)
	}
	assert.Equal(t, EdgeKindUnknown, ParseEdgeKind("not-a-kind"))
}

func TestCodeNode_LOC(t *testing.T) {
	tests := []struct {
		name     string
		start    int
		end      int
		expected int
	}{
		{name: "single line", start: 10, end: 10, expected: 1},
		{name: "multi line", start: 10, end: 24, expected: 15},
		{name: "unset lines", start: 0, end: 0, expected: 0},
		{name: "end before start", start: 20, end: 10, expected: 0},
		{name: "negative start", start: -1, end: 5, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := CodeNode{StartLine: tt.start, EndLine: tt.end}
			assert.Equal(t, tt.expected, n.LOC())
		})
	}
}

func TestCodeNode_TypedAccessors(t *testing.T) {
	n := CodeNode{
		Kind:          NodeKindFunction,
		QualifiedName: "pkg/a.go:DoWork",
	}

	// Absent properties report absence, not a sentinel.
	_, ok := n.Complexity()
	assert.False(t, ok)
	_, ok = n.ParamCount()
	assert.False(t, ok)
	assert.False(t, n.Exported())

	n.SetProperty(PropComplexity, 12)
	n.SetProperty(PropParamCount, float64(3)) // as it arrives from JSON
	n.SetProperty(PropExported, true)

	c, ok := n.Complexity()
	assert.True(t, ok)
	assert.Equal(t, 12, c)

	p, ok := n.ParamCount()
	assert.True(t, ok)
	assert.Equal(t, 3, p)

	assert.True(t, n.Exported())
	assert.False(t, n.Decorated())
}

func TestCodeNode_IsPlaceholder(t *testing.T) {
	placeholder := CodeNode{QualifiedName: "ghost"}
	assert.True(t, placeholder.IsPlaceholder())

	real := CodeNode{Kind: NodeKindFunction, QualifiedName: "real"}
	assert.False(t, real.IsPlaceholder())
}

func TestKindJSON(t *testing.T) {
	data, err := json.Marshal(CodeNode{Kind: NodeKindFunction, QualifiedName: "pkg.fn"})
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"function"`)

	var node CodeNode
	assert.NoError(t, json.Unmarshal([]byte(`{"kind":"class","qualified_name":"pkg.C"}`), &node))
	assert.Equal(t, NodeKindClass, node.Kind)

	var edge CodeEdge
	assert.NoError(t, json.Unmarshal([]byte(`{"from":"a","to":"b","kind":"calls"}`), &edge))
	assert.Equal(t, EdgeKindCalls, edge.Kind)

	// Unrecognized kind names decode to Unknown rather than failing.
	assert.NoError(t, json.Unmarshal([]byte(`{"kind":"widget"}`), &node))
	assert.Equal(t, NodeKindUnknown, node.Kind)
}

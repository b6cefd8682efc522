// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package entity defines the node and edge records of the code knowledge
// graph.
//
// Nodes are code entities (files, functions, classes, modules, variables,
// commits) identified by a qualified name that is globally unique within
// one graph instance. Edges are typed, directed relationships between two
// qualified names.
//
// Both record types carry an open Properties map so that detectors can
// attach new metrics (cyclomatic complexity, parameter counts, exported
// flags) without a schema migration. Typed accessors in properties.go are
// thin projections over that map.
//
// # Ownership Model
//
// Records are plain values. A backend that stores a CodeNode owns its copy;
// callers may reuse or mutate the original after insertion.
package entity

import "encoding/json"

// NodeKind identifies what kind of code entity a node represents.
type NodeKind int

const (
	// NodeKindUnknown marks placeholder nodes created when an edge
	// references a qualified name that has not been inserted yet.
	NodeKindUnknown NodeKind = iota

	// NodeKindFile is a source file.
	NodeKindFile

	// NodeKindFunction is a free function or a method.
	NodeKindFunction

	// NodeKindClass is a class, struct, or similar type definition.
	NodeKindClass

	// NodeKindModule is a package, module, or namespace.
	NodeKindModule

	// NodeKindVariable is a module-level variable or constant.
	NodeKindVariable

	// NodeKindCommit is a version-control commit touching analyzed files.
	NodeKindCommit

	// NumNodeKinds is the total number of node kinds (for array sizing).
	NumNodeKinds
)

// nodeKindNames maps NodeKind values to their string representations.
var nodeKindNames = map[NodeKind]string{
	NodeKindUnknown:  "unknown",
	NodeKindFile:     "file",
	NodeKindFunction: "function",
	NodeKindClass:    "class",
	NodeKindModule:   "module",
	NodeKindVariable: "variable",
	NodeKindCommit:   "commit",
}

// String returns the string representation of the NodeKind.
func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseNodeKind converts a string produced by String back to a NodeKind.
// Unrecognized strings map to NodeKindUnknown.
func ParseNodeKind(s string) NodeKind {
	for k, name := range nodeKindNames {
		if name == s {
			return k
		}
	}
	return NodeKindUnknown
}

// MarshalJSON encodes the kind as its string name, so snapshot files
// and persisted records stay readable and stable across reorderings of
// the constants.
func (k NodeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its string name.
func (k *NodeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = ParseNodeKind(s)
	return nil
}

// EdgeKind identifies the type of relationship between two nodes.
type EdgeKind int

const (
	// EdgeKindUnknown indicates an unrecognized relationship type.
	EdgeKindUnknown EdgeKind = iota

	// EdgeKindCalls indicates a function calls another function.
	EdgeKindCalls

	// EdgeKindImports indicates a file or module imports another.
	EdgeKindImports

	// EdgeKindContains indicates a file or class contains a definition.
	EdgeKindContains

	// EdgeKindInherits indicates a class inherits from another class.
	EdgeKindInherits

	// EdgeKindUses indicates a general use of one entity by another.
	EdgeKindUses

	// EdgeKindModifiedIn links an entity to a commit that modified it.
	EdgeKindModifiedIn

	// NumEdgeKinds is the total number of edge kinds (for array sizing).
	NumEdgeKinds
)

// edgeKindNames maps EdgeKind values to their string representations.
var edgeKindNames = map[EdgeKind]string{
	EdgeKindUnknown:    "unknown",
	EdgeKindCalls:      "calls",
	EdgeKindImports:    "imports",
	EdgeKindContains:   "contains",
	EdgeKindInherits:   "inherits",
	EdgeKindUses:       "uses",
	EdgeKindModifiedIn: "modified_in",
}

// String returns the string representation of the EdgeKind.
func (k EdgeKind) String() string {
	if name, ok := edgeKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseEdgeKind converts a string produced by String back to an EdgeKind.
// Unrecognized strings map to EdgeKindUnknown.
func ParseEdgeKind(s string) EdgeKind {
	for k, name := range edgeKindNames {
		if name == s {
			return k
		}
	}
	return EdgeKindUnknown
}

// MarshalJSON encodes the kind as its string name.
func (k EdgeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its string name.
func (k *EdgeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = ParseEdgeKind(s)
	return nil
}

// CodeNode is one entity in the code knowledge graph.
//
// QualifiedName is the primary key: inserting a second node with the same
// qualified name updates the stored record in place rather than creating
// a duplicate. Name is the short display name and need not be unique.
type CodeNode struct {
	// Kind indicates what kind of entity this node represents.
	Kind NodeKind `json:"kind"`

	// Name is the short display name.
	// Example: "HandleAgent", "UserService", "MAX_RETRIES"
	Name string `json:"name"`

	// QualifiedName is the globally unique identity within one store.
	// Example: "handlers/agent.go:HandleAgent"
	QualifiedName string `json:"qualified_name"`

	// FilePath is the path of the containing file, relative to the
	// project root. Empty for entities without a file (e.g. commits).
	FilePath string `json:"file_path,omitempty"`

	// StartLine is the 1-indexed line where the definition starts.
	StartLine int `json:"start_line,omitempty"`

	// EndLine is the 1-indexed line where the definition ends.
	EndLine int `json:"end_line,omitempty"`

	// Language is the source language, when known.
	Language string `json:"language,omitempty"`

	// Properties holds detector-specific metrics keyed by name.
	// See properties.go for the well-known keys and typed accessors.
	Properties map[string]any `json:"properties,omitempty"`
}

// LOC returns the node's length in lines of code.
//
// Returns EndLine-StartLine+1 when both lines are set and ordered;
// zero when the lines are unset or EndLine < StartLine.
func (n *CodeNode) LOC() int {
	if n.StartLine <= 0 || n.EndLine < n.StartLine {
		return 0
	}
	return n.EndLine - n.StartLine + 1
}

// IsPlaceholder reports whether the node was auto-created to satisfy an
// edge endpoint and has not been upgraded with a real record yet.
func (n *CodeNode) IsPlaceholder() bool {
	return n.Kind == NodeKindUnknown
}

// CodeEdge is one typed, directed relationship between two nodes.
//
// From and To are qualified names; backends resolve them to internal
// indices at insertion time.
type CodeEdge struct {
	// From is the qualified name of the source node.
	From string `json:"from"`

	// To is the qualified name of the target node.
	To string `json:"to"`

	// Kind is the relationship type (calls, imports, etc.).
	Kind EdgeKind `json:"kind"`

	// Properties holds edge-specific data (call-site line, import alias).
	Properties map[string]any `json:"properties,omitempty"`
}

// EdgePair is an edge reported as its endpoint qualified names, used by
// whole-kind enumerations such as GetCalls and GetImports.
type EdgePair struct {
	// From is the qualified name of the source node.
	From string `json:"from"`

	// To is the qualified name of the target node.
	To string `json:"to"`
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest drives the build phase: it takes the entity records an
// upstream parser produced for one repository and turns them into a
// frozen graph on whichever backend fits the repository's size.
//
// The parser itself is an external collaborator; this package only
// consumes its output, either as an in-memory Snapshot or as a JSON
// snapshot file.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/AleutianAI/codehealth/internal/entity"
	"github.com/AleutianAI/codehealth/internal/graph"
)

// Snapshot is one repository's worth of parser-emitted records.
type Snapshot struct {
	// Nodes are the entity records, in no particular order.
	Nodes []entity.CodeNode `json:"nodes"`

	// Edges are the relationship records. Endpoints may reference nodes
	// that never appear in Nodes; those become placeholders.
	Edges []entity.CodeEdge `json:"edges"`
}

// EstimateSize counts files and functions for backend selection.
func (s Snapshot) EstimateSize() graph.SizeEstimate {
	var est graph.SizeEstimate
	for i := range s.Nodes {
		switch s.Nodes[i].Kind {
		case entity.NodeKindFile:
			est.Files++
		case entity.NodeKindFunction:
			est.Functions++
		}
	}
	return est
}

// ReadSnapshot decodes a parser snapshot file.
//
// # Inputs
//
//   - path: JSON file with top-level "nodes" and "edges" arrays.
//
// # Outputs
//
//   - Snapshot: the decoded records.
//   - error: non-nil on I/O or decode failure.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return snap, nil
}

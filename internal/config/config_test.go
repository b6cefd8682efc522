// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codehealth/internal/graph"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ".codehealth/store", cfg.StoreDir)
	assert.Equal(t, graph.DefaultCompactFileThreshold, cfg.Graph.CompactFileThreshold)
	assert.Equal(t, graph.DefaultMaxNodes, cfg.Graph.MaxNodes)
	assert.InDelta(t, 0.2, cfg.Analysis.BottleneckMinBetweenness, 1e-9)
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codehealth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store_dir: /data/graphs
graph:
  compact_file_threshold: 500
analysis:
  high_complexity: 20
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/graphs", cfg.StoreDir)
	assert.Equal(t, 500, cfg.Graph.CompactFileThreshold)
	assert.Equal(t, 20, cfg.Analysis.HighComplexity)

	// Unset fields keep their defaults.
	assert.Equal(t, graph.DefaultCompactFunctionThreshold, cfg.Graph.CompactFunctionThreshold)
	assert.Equal(t, graph.DefaultMaxEdges, cfg.Graph.MaxEdges)
	assert.Equal(t, ".", cfg.ProjectRoot)
}

func TestLoad_MissingFile(t *testing.T) {
	// Default path: silently fall back to defaults.
	cfg, err := Load(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	// Explicit path: the caller asked for a file that is not there.
	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_dir: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestGraphConfig_Thresholds(t *testing.T) {
	th := GraphConfig{CompactFileThreshold: 7, CompactFunctionThreshold: 9}.Thresholds()
	assert.Equal(t, graph.SelectionThresholds{Files: 7, Functions: 9}, th)
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analysis runs code-health detectors over a frozen graph.
//
// Every detector is written against graph.Query only, so it runs
// unmodified on either backend, and receives all of its collaborators
// through an explicit Context rather than package-level state.
package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/AleutianAI/codehealth/internal/graph"
)

// Thresholds tune the detectors. Zero values fall back to defaults.
type Thresholds struct {
	// BottleneckMinBetweenness is the minimum normalized betweenness to
	// flag a node as an architectural bottleneck. Default: 0.2.
	BottleneckMinBetweenness float64 `yaml:"bottleneck_min_betweenness"`

	// CoordinatorMinHarmonic is the minimum normalized harmonic
	// centrality to flag a node as a central coordinator. Default: 0.4.
	CoordinatorMinHarmonic float64 `yaml:"coordinator_min_harmonic"`

	// HighComplexity is the cyclomatic complexity above which severity
	// escalates. Default: 10.
	HighComplexity int `yaml:"high_complexity"`

	// Workers caps the centrality worker pools. Zero means the
	// algorithm default.
	Workers int `yaml:"workers"`
}

// DefaultThresholds returns the default detector thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BottleneckMinBetweenness: 0.2,
		CoordinatorMinHarmonic:   0.4,
		HighComplexity:           10,
	}
}

// normalized fills zero fields with defaults.
func (t Thresholds) normalized() Thresholds {
	def := DefaultThresholds()
	if t.BottleneckMinBetweenness <= 0 {
		t.BottleneckMinBetweenness = def.BottleneckMinBetweenness
	}
	if t.CoordinatorMinHarmonic <= 0 {
		t.CoordinatorMinHarmonic = def.CoordinatorMinHarmonic
	}
	if t.HighComplexity <= 0 {
		t.HighComplexity = def.HighComplexity
	}
	return t
}

// Context carries everything a detector may touch: the graph handle,
// the file-content cache, and the thresholds. There is no hidden
// process-wide state anywhere in this package.
type Context struct {
	// Graph is the frozen graph under analysis.
	Graph graph.Query

	// Files caches source file contents for detectors that need them.
	Files *ContentCache

	// Thresholds are the detector tuning knobs.
	Thresholds Thresholds
}

// NewContext assembles a Context with normalized thresholds.
func NewContext(g graph.Query, files *ContentCache, thresholds Thresholds) *Context {
	return &Context{Graph: g, Files: files, Thresholds: thresholds.normalized()}
}

// ContentCache is a concurrency-safe path-to-contents cache rooted at a
// project directory.
//
// # Thread Safety
//
// Safe for concurrent use. Concurrent first reads of the same path may
// both hit the disk; the second result wins, which is harmless since
// the analyzed tree does not change mid-run.
type ContentCache struct {
	root string

	mu    sync.RWMutex
	files map[string][]byte
}

// NewContentCache creates a cache rooted at dir.
func NewContentCache(dir string) *ContentCache {
	return &ContentCache{root: dir, files: make(map[string][]byte)}
}

// Get returns the contents of the file at the given project-relative
// path, reading it from disk on first access.
func (c *ContentCache) Get(relPath string) ([]byte, error) {
	c.mu.RLock()
	data, ok := c.files[relPath]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err := os.ReadFile(filepath.Join(c.root, relPath))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", relPath, err)
	}

	c.mu.Lock()
	c.files[relPath] = data
	c.mu.Unlock()
	return data, nil
}

// Len returns the number of cached files.
func (c *ContentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

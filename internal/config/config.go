// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the codehealth YAML configuration file.
//
// Every field has a default, so commands work with no config file at
// all; an explicit file overrides only the fields it sets.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/codehealth/internal/analysis"
	"github.com/AleutianAI/codehealth/internal/graph"
)

// DefaultPath is where Load looks when no --config flag is given.
const DefaultPath = ".codehealth.yaml"

// Config is the full codehealth configuration.
type Config struct {
	// StoreDir is the graph store directory.
	StoreDir string `yaml:"store_dir"`

	// ProjectRoot is the analyzed project's root directory, used for
	// the analysis content cache.
	ProjectRoot string `yaml:"project_root"`

	// Graph configures backend selection and capacity.
	Graph GraphConfig `yaml:"graph"`

	// Analysis tunes the detectors.
	Analysis analysis.Thresholds `yaml:"analysis"`
}

// GraphConfig configures backend selection and capacity limits.
type GraphConfig struct {
	// CompactFileThreshold and CompactFunctionThreshold select the
	// compact backend for repositories estimated above either value.
	CompactFileThreshold     int `yaml:"compact_file_threshold"`
	CompactFunctionThreshold int `yaml:"compact_function_threshold"`

	// MaxNodes and MaxEdges cap the built graph.
	MaxNodes int `yaml:"max_nodes"`
	MaxEdges int `yaml:"max_edges"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		StoreDir:    ".codehealth/store",
		ProjectRoot: ".",
		Graph: GraphConfig{
			CompactFileThreshold:     graph.DefaultCompactFileThreshold,
			CompactFunctionThreshold: graph.DefaultCompactFunctionThreshold,
			MaxNodes:                 graph.DefaultMaxNodes,
			MaxEdges:                 graph.DefaultMaxEdges,
		},
		Analysis: analysis.DefaultThresholds(),
	}
}

// Load reads the configuration file at path, layered over Default.
//
// A missing file at the default path is not an error; a missing file
// at an explicitly requested path is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultPath {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

// withDefaults fills fields the file left zero.
func (c Config) withDefaults() Config {
	def := Default()
	if c.StoreDir == "" {
		c.StoreDir = def.StoreDir
	}
	if c.ProjectRoot == "" {
		c.ProjectRoot = def.ProjectRoot
	}
	if c.Graph.CompactFileThreshold <= 0 {
		c.Graph.CompactFileThreshold = def.Graph.CompactFileThreshold
	}
	if c.Graph.CompactFunctionThreshold <= 0 {
		c.Graph.CompactFunctionThreshold = def.Graph.CompactFunctionThreshold
	}
	if c.Graph.MaxNodes <= 0 {
		c.Graph.MaxNodes = def.Graph.MaxNodes
	}
	if c.Graph.MaxEdges <= 0 {
		c.Graph.MaxEdges = def.Graph.MaxEdges
	}
	return c
}

// Thresholds converts the graph section to selection thresholds.
func (g GraphConfig) Thresholds() graph.SelectionThresholds {
	return graph.SelectionThresholds{
		Files:     g.CompactFileThreshold,
		Functions: g.CompactFunctionThreshold,
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codehealth/internal/ingest"
	"github.com/AleutianAI/codehealth/internal/store"
)

var flagBuildInput string

// timeRounding keeps durations in command output readable.
const timeRounding = time.Millisecond

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the graph from a parser snapshot and persist it",
	Long: `Build reads the entity snapshot the parser produced, selects a graph
backend from the repository's estimated size, inserts every node and
edge, and persists the frozen graph to the store.

An existing store with an older schema version is discarded and
rebuilt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := ingest.ReadSnapshot(flagBuildInput)
		if err != nil {
			return err
		}

		builder := ingest.NewBuilder(
			ingest.WithThresholds(cfg.Graph.Thresholds()),
			ingest.WithMaxNodes(cfg.Graph.MaxNodes),
			ingest.WithMaxEdges(cfg.Graph.MaxEdges),
		)
		result, err := builder.Build(cmd.Context(), snap)
		if err != nil {
			return err
		}

		s, err := openStoreRebuilding()
		if err != nil {
			return err
		}
		defer s.Close()

		manifest, err := s.Save(cmd.Context(), result.Graph)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(),
			"built %d nodes, %d edges on %s backend in %s\nstore: %s (build %s)\n",
			result.Graph.NodeCount(), result.Graph.EdgeCount(), result.Backend,
			result.Duration.Round(timeRounding), cfg.StoreDir, manifest.BuildID)
		return nil
	},
}

// openStoreRebuilding opens the store for writing; a schema mismatch
// means the cache is unusable, so the directory is recreated.
func openStoreRebuilding() (*store.Store, error) {
	s, err := store.Open(cfg.StoreDir, store.Config{})
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, store.ErrSchemaMismatch) {
		return nil, storeDiagnostic(err)
	}

	slog.Warn("discarding store with stale schema", slog.String("dir", cfg.StoreDir))
	if rmErr := os.RemoveAll(cfg.StoreDir); rmErr != nil {
		return nil, fmt.Errorf("removing stale store %s: %w", cfg.StoreDir, rmErr)
	}
	s, err = store.Open(cfg.StoreDir, store.Config{})
	if err != nil {
		return nil, storeDiagnostic(err)
	}
	return s, nil
}

func init() {
	buildCmd.Flags().StringVar(&flagBuildInput, "input", "", "parser snapshot JSON file (required)")
	_ = buildCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(buildCmd)
}

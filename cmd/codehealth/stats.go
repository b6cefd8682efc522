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
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codehealth/internal/graph"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print statistics for the persisted graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, manifest, err := loadGraph(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "store:    %s\n", cfg.StoreDir)
		fmt.Fprintf(out, "build:    %s (%s)\n", manifest.BuildID, manifest.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "backend:  %s\n", g.Backend())
		if g.Backend() == graph.BackendCompact {
			report := g.MemoryUsage()
			fmt.Fprintf(out, "memory:   %d bytes, %d interned strings, %d dropped properties\n",
				report.Bytes, report.UniqueStrings, report.DroppedProperties)
		}

		stats := g.Stats()
		fmt.Fprintf(out, "nodes:    %d\n", stats.Nodes)
		for _, kv := range sortedCounts(stats.NodesByKind) {
			fmt.Fprintf(out, "  %-12s %d\n", kv.name, kv.count)
		}
		fmt.Fprintf(out, "edges:    %d\n", stats.Edges)
		for _, kv := range sortedCounts(stats.EdgesByKind) {
			fmt.Fprintf(out, "  %-12s %d\n", kv.name, kv.count)
		}
		return nil
	},
}

type nameCount struct {
	name  string
	count int
}

// sortedCounts orders a kind histogram by count descending, then name.
func sortedCounts(m map[string]int) []nameCount {
	out := make([]nameCount, 0, len(m))
	for name, count := range m {
		out = append(out, nameCount{name: name, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

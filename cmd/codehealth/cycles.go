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
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codehealth/internal/entity"
	"github.com/AleutianAI/codehealth/internal/graph"
)

var flagCyclesKind string

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Report dependency cycles in the persisted graph",
	Long: `Cycles reports each strongly connected cluster of the chosen edge kind
once, largest first, with one shortest example path per cluster.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := entity.ParseEdgeKind(flagCyclesKind)
		if kind != entity.EdgeKindImports && kind != entity.EdgeKindCalls {
			return fmt.Errorf("unsupported edge kind %q (use imports or calls)", flagCyclesKind)
		}

		g, _, err := loadGraph(cmd.Context())
		if err != nil {
			return err
		}

		cycles, err := graph.FindCycles(cmd.Context(), g, kind)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(cycles) == 0 {
			fmt.Fprintf(out, "no %s cycles\n", kind)
			return nil
		}
		for i, cycle := range cycles {
			fmt.Fprintf(out, "cycle %d: %d nodes\n", i+1, cycle.Len())
			if path := graph.ShortestCycleThrough(g, cycle.Nodes[0], kind); path != nil {
				fmt.Fprintf(out, "  example: %s\n", strings.Join(path, " -> "))
			}
		}
		return nil
	},
}

func init() {
	cyclesCmd.Flags().StringVar(&flagCyclesKind, "kind", "imports", "edge kind to analyze (imports or calls)")
	rootCmd.AddCommand(cyclesCmd)
}

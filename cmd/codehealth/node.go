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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codehealth/internal/entity"
)

var nodeCmd = &cobra.Command{
	Use:   "node QUALIFIED_NAME",
	Short: "Show one node with its callers and callees",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, _, err := loadGraph(cmd.Context())
		if err != nil {
			return err
		}

		qn := args[0]
		node, ok := g.GetNode(qn)
		if !ok {
			return fmt.Errorf("node %q not found in the graph", qn)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", node.QualifiedName)
		fmt.Fprintf(out, "  kind:     %s\n", node.Kind)
		if node.FilePath != "" {
			fmt.Fprintf(out, "  location: %s:%d-%d\n", node.FilePath, node.StartLine, node.EndLine)
		}
		if node.Language != "" {
			fmt.Fprintf(out, "  language: %s\n", node.Language)
		}
		if loc := node.LOC(); loc > 0 {
			fmt.Fprintf(out, "  loc:      %d\n", loc)
		}
		if c, ok := node.Complexity(); ok {
			fmt.Fprintf(out, "  complexity: %d\n", c)
		}

		fmt.Fprintf(out, "  fan-in:   %d\n", g.CallFanIn(qn))
		for _, caller := range g.GetCallers(qn) {
			fmt.Fprintf(out, "    <- %s\n", caller.QualifiedName)
		}
		fmt.Fprintf(out, "  fan-out:  %d\n", g.CallFanOut(qn))
		for _, callee := range g.GetCallees(qn) {
			fmt.Fprintf(out, "    -> %s\n", callee.QualifiedName)
		}

		if node.Kind == entity.NodeKindClass {
			children := g.GetChildClasses(qn)
			if len(children) > 0 {
				fmt.Fprintf(out, "  subclasses:\n")
				for _, child := range children {
					fmt.Fprintf(out, "    %s\n", child.QualifiedName)
				}
			}
		}
		if node.Kind == entity.NodeKindFile || node.Kind == entity.NodeKindModule {
			importers := g.GetImporters(qn)
			if len(importers) > 0 {
				fmt.Fprintf(out, "  imported by:\n")
				for _, imp := range importers {
					fmt.Fprintf(out, "    %s\n", imp.QualifiedName)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nodeCmd)
}

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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codehealth/internal/analysis"
)

var flagHealthJSON bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run health detectors over the persisted graph",
	Long: `Health loads the persisted graph and runs the detector set over it:
architectural bottlenecks, central coordinators, dead-code candidates,
and import/call cycles. The aggregate debt score weighs findings by
severity per hundred graph nodes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, _, err := loadGraph(cmd.Context())
		if err != nil {
			return err
		}

		actx := analysis.NewContext(g, analysis.NewContentCache(cfg.ProjectRoot), cfg.Analysis)
		report, err := analysis.RunAll(cmd.Context(), actx, analysis.DefaultDetectors())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagHealthJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		if len(report.Findings) == 0 {
			fmt.Fprintln(out, "no findings")
			return nil
		}
		for _, f := range report.Findings {
			fmt.Fprintf(out, "%-8s %-14s %s\n", f.Severity, f.Detector, f.Message)
		}
		fmt.Fprintf(out, "\ndebt score: %.1f\n", report.DebtScore)
		return nil
	},
}

func init() {
	healthCmd.Flags().BoolVar(&flagHealthJSON, "json", false, "emit the report as JSON")
	rootCmd.AddCommand(healthCmd)
}

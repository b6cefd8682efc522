// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/codehealth/internal/entity"
	"github.com/AleutianAI/codehealth/internal/graph"
)

// Detector is one code-health check over the graph.
type Detector interface {
	// Name identifies the detector in findings and logs.
	Name() string

	// Run executes the check and returns its findings.
	Run(ctx context.Context, actx *Context) ([]Finding, error)
}

// DefaultDetectors returns the standard detector set, in the order
// their findings appear in a Report.
func DefaultDetectors() []Detector {
	return []Detector{
		&Bottleneck{},
		&Coordinator{},
		&Isolation{},
		&ImportCycles{},
		&CallCycles{},
	}
}

// RunAll runs every detector and assembles the Report.
func RunAll(ctx context.Context, actx *Context, detectors []Detector) (*Report, error) {
	var findings []Finding
	for _, d := range detectors {
		fs, err := d.Run(ctx, actx)
		if err != nil {
			return nil, fmt.Errorf("detector %s: %w", d.Name(), err)
		}
		findings = append(findings, fs...)
	}
	return &Report{
		Findings:  findings,
		DebtScore: DebtScore(findings, actx.Graph.NodeCount()),
	}, nil
}

// Bottleneck flags functions a disproportionate share of call paths
// funnel through. High betweenness alone is a warning; combined with
// high cyclomatic complexity it becomes critical, since the hardest
// code to change is also the code everything routes through.
type Bottleneck struct{}

// Name identifies the detector.
func (d *Bottleneck) Name() string { return "bottleneck" }

// Run computes normalized betweenness over Calls edges and flags nodes
// above the configured threshold.
func (d *Bottleneck) Run(ctx context.Context, actx *Context) ([]Finding, error) {
	scores, err := graph.BetweennessCentrality(ctx, actx.Graph, &graph.CentralityOptions{
		EdgeKind:  entity.EdgeKindCalls,
		Workers:   actx.Thresholds.Workers,
		Normalize: true,
	})
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for _, qn := range actx.Graph.Nodes() {
		score := scores[qn]
		if score < actx.Thresholds.BottleneckMinBetweenness {
			continue
		}
		node, ok := actx.Graph.GetNode(qn)
		if !ok || node.Kind != entity.NodeKindFunction {
			continue
		}

		severity := SeverityWarning
		msg := fmt.Sprintf("%s sits on %.0f%% of shortest call paths", qn, score*100)
		if c, ok := node.Complexity(); ok && c >= actx.Thresholds.HighComplexity {
			severity = SeverityCritical
			msg = fmt.Sprintf("%s (complexity %d)", msg, c)
		}
		findings = append(findings, Finding{
			Detector: d.Name(),
			Severity: severity,
			Node:     qn,
			Message:  msg,
			Value:    score,
		})
	}
	return findings, nil
}

// Coordinator flags functions with a wide blast radius: close to most
// of the graph and complex enough that changes there ripple far.
type Coordinator struct{}

// Name identifies the detector.
func (d *Coordinator) Name() string { return "coordinator" }

// Run computes normalized harmonic centrality over Calls edges and
// flags complex nodes above the configured threshold.
func (d *Coordinator) Run(ctx context.Context, actx *Context) ([]Finding, error) {
	scores, err := graph.HarmonicCentrality(ctx, actx.Graph, &graph.CentralityOptions{
		EdgeKind:  entity.EdgeKindCalls,
		Workers:   actx.Thresholds.Workers,
		Normalize: true,
	})
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for _, qn := range actx.Graph.Nodes() {
		score := scores[qn]
		if score < actx.Thresholds.CoordinatorMinHarmonic {
			continue
		}
		node, ok := actx.Graph.GetNode(qn)
		if !ok || node.Kind != entity.NodeKindFunction {
			continue
		}
		c, ok := node.Complexity()
		if !ok || c < actx.Thresholds.HighComplexity {
			continue
		}
		findings = append(findings, Finding{
			Detector: d.Name(),
			Severity: SeverityWarning,
			Node:     qn,
			Message:  fmt.Sprintf("%s coordinates much of the call graph (harmonic %.2f, complexity %d)", qn, score, c),
			Value:    score,
		})
	}
	return findings, nil
}

// Isolation flags functions nothing calls and that call nothing:
// dead-code candidates for review. Confirmation (reflection, dynamic
// dispatch, framework entry points) is out of scope here.
type Isolation struct{}

// Name identifies the detector.
func (d *Isolation) Name() string { return "isolation" }

// Run flags functions with zero call degree in either direction.
func (d *Isolation) Run(ctx context.Context, actx *Context) ([]Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var findings []Finding
	for _, node := range actx.Graph.GetFunctions() {
		qn := node.QualifiedName
		if actx.Graph.CallFanIn(qn) > 0 || actx.Graph.CallFanOut(qn) > 0 {
			continue
		}
		findings = append(findings, Finding{
			Detector: d.Name(),
			Severity: SeverityInfo,
			Node:     qn,
			Message:  fmt.Sprintf("%s has no callers and no callees; dead-code candidate", qn),
			Value:    0,
		})
	}
	return findings, nil
}

// ImportCycles reports each strongly connected import cluster once,
// with one readable example path.
type ImportCycles struct{}

// Name identifies the detector.
func (d *ImportCycles) Name() string { return "import_cycles" }

// Run enumerates import cycles.
func (d *ImportCycles) Run(ctx context.Context, actx *Context) ([]Finding, error) {
	return cycleFindings(ctx, actx, d.Name(), entity.EdgeKindImports)
}

// CallCycles reports each strongly connected call cluster once, with
// one readable example path.
type CallCycles struct{}

// Name identifies the detector.
func (d *CallCycles) Name() string { return "call_cycles" }

// Run enumerates call cycles.
func (d *CallCycles) Run(ctx context.Context, actx *Context) ([]Finding, error) {
	return cycleFindings(ctx, actx, d.Name(), entity.EdgeKindCalls)
}

// cycleFindings converts each SCC cycle into one finding carrying the
// shortest concrete path through its first node.
func cycleFindings(ctx context.Context, actx *Context, detector string, kind entity.EdgeKind) ([]Finding, error) {
	cycles, err := graph.FindCycles(ctx, actx.Graph, kind)
	if err != nil {
		return nil, err
	}

	findings := make([]Finding, 0, len(cycles))
	for _, cycle := range cycles {
		msg := fmt.Sprintf("%d nodes form a %s cycle", cycle.Len(), kind)
		if path := graph.ShortestCycleThrough(actx.Graph, cycle.Nodes[0], kind); path != nil {
			msg = fmt.Sprintf("%s: %s", msg, strings.Join(path, " -> "))
		}
		findings = append(findings, Finding{
			Detector: detector,
			Severity: SeverityWarning,
			Node:     cycle.Nodes[0],
			Message:  msg,
			Value:    float64(cycle.Len()),
		})
	}
	return findings, nil
}

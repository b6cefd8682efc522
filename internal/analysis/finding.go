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

import "encoding/json"

// Severity ranks how urgently a finding deserves attention.
type Severity int

const (
	// SeverityInfo is advisory: worth a look during cleanup.
	SeverityInfo Severity = iota

	// SeverityWarning is a structural smell that will get worse.
	SeverityWarning

	// SeverityCritical combines a structural smell with high complexity.
	SeverityCritical
)

// severityNames maps Severity values to their string representations.
var severityNames = map[Severity]string{
	SeverityInfo:     "info",
	SeverityWarning:  "warning",
	SeverityCritical: "critical",
}

// String returns the string representation of the Severity.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "info"
}

// MarshalJSON encodes the severity as its string name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// debtWeight is each severity's contribution to the debt score.
func (s Severity) debtWeight() float64 {
	switch s {
	case SeverityCritical:
		return 7
	case SeverityWarning:
		return 3
	default:
		return 1
	}
}

// Finding is one detector hit on one node or cycle.
type Finding struct {
	// Detector is the name of the detector that produced the finding.
	Detector string `json:"detector"`

	// Severity ranks the finding.
	Severity Severity `json:"severity"`

	// Node is the qualified name of the flagged node, or the first node
	// of a flagged cycle.
	Node string `json:"node"`

	// Message is the human-readable diagnostic.
	Message string `json:"message"`

	// Value is the metric that triggered the finding (centrality score,
	// cycle length, ...).
	Value float64 `json:"value"`
}

// Report is the outcome of one full detector run.
type Report struct {
	// Findings are all detector hits, in detector order.
	Findings []Finding `json:"findings"`

	// DebtScore is the severity-weighted sum of findings per hundred
	// graph nodes. Zero for an empty or healthy graph.
	DebtScore float64 `json:"debt_score"`
}

// DebtScore computes the aggregate debt score for a set of findings
// over a graph of the given node count.
func DebtScore(findings []Finding, nodeCount int) float64 {
	if nodeCount == 0 {
		return 0
	}
	var total float64
	for i := range findings {
		total += findings[i].Severity.debtWeight()
	}
	return total * 100 / float64(nodeCount)
}

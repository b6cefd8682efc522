// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package entity

// Well-known property keys.
//
// Detectors may attach arbitrary keys; these are the ones the typed
// accessors below project. Values arriving from JSON decode as float64,
// so all integer accessors accept both int and float64 representations.
const (
	// PropComplexity is the cyclomatic complexity of a function.
	PropComplexity = "complexity"

	// PropParamCount is the number of declared parameters of a function.
	PropParamCount = "param_count"

	// PropMethodCount is the number of methods of a class.
	PropMethodCount = "method_count"

	// PropExported marks a publicly visible symbol.
	PropExported = "exported"

	// PropDecorated marks a function wrapped by a decorator/annotation.
	PropDecorated = "decorated"
)

// intProperty reads a numeric property as an int.
//
// Properties round-trip through JSON persistence, where all numbers decode
// as float64, so both int and float64 stored values are accepted.
func (n *CodeNode) intProperty(key string) (int, bool) {
	if n.Properties == nil {
		return 0, false
	}
	switch v := n.Properties[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// boolProperty reads a boolean property.
func (n *CodeNode) boolProperty(key string) bool {
	if n.Properties == nil {
		return false
	}
	v, _ := n.Properties[key].(bool)
	return v
}

// SetProperty attaches a property, allocating the map on first use.
func (n *CodeNode) SetProperty(key string, value any) {
	if n.Properties == nil {
		n.Properties = make(map[string]any)
	}
	n.Properties[key] = value
}

// Complexity returns the cyclomatic complexity metric.
// The second return is false when no detector has attached one.
func (n *CodeNode) Complexity() (int, bool) {
	return n.intProperty(PropComplexity)
}

// ParamCount returns the declared parameter count.
// The second return is false when the property is absent.
func (n *CodeNode) ParamCount() (int, bool) {
	return n.intProperty(PropParamCount)
}

// MethodCount returns the method count of a class.
// The second return is false when the property is absent.
func (n *CodeNode) MethodCount() (int, bool) {
	return n.intProperty(PropMethodCount)
}

// Exported reports whether the symbol is publicly visible.
// Absent property reads as false.
func (n *CodeNode) Exported() bool {
	return n.boolProperty(PropExported)
}

// Decorated reports whether the function carries a decorator/annotation.
// Absent property reads as false.
func (n *CodeNode) Decorated() bool {
	return n.boolProperty(PropDecorated)
}

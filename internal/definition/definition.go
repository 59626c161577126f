// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package definition describes the kinds of definitions curate works with and
// the outcomes of applying edits to them.
package definition

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Type identifies a kind of definition in the remote application.
type Type string

// Definition types.
const (
	Measure       Type = "measure"
	Dimension     Type = "dimension"
	Variable      Type = "variable"
	Visualization Type = "visualization"

	KPI         Type = "kpi"
	ComboChart  Type = "combochart"
	BarChart    Type = "barchart"
	LineChart   Type = "linechart"
	ScatterPlot Type = "scatterplot"
	TreeMap     Type = "treemap"

	// Other matches every visualization subtype not listed above.
	Other Type = "other"
)

// Types returns the top-level definition types in display order.
func Types() []Type {
	return []Type{Measure, Dimension, Variable, Visualization}
}

// VisualizationTypes returns the visualization subtypes in display order.
func VisualizationTypes() []Type {
	return []Type{KPI, ComboChart, BarChart, LineChart, ScatterPlot, TreeMap, Other}
}

// IsVisualization reports whether t belongs to the visualization bucket.
func (t Type) IsVisualization() bool {
	s := string(t)
	switch t {
	case Visualization, Other, KPI, "histogram", "gauge":
		return true
	}
	return strings.Contains(s, "chart") ||
		strings.Contains(s, "plot") ||
		strings.Contains(s, "table") ||
		strings.Contains(s, "map")
}

// Creatable reports whether the engine can create a definition of type t
// without an owning sheet.
func (t Type) Creatable() bool {
	return t == Measure || t == Dimension || t == Variable
}

// Matches reports whether an engine object of type qType is listed under t.
func (t Type) Matches(qType string) bool {
	q := Type(strings.ToLower(qType))
	if q == t {
		return true
	}
	return (t == Other || t == Visualization) && q.IsVisualization()
}

// DisplayName returns the plural label shown to operators, e.g. "Measures",
// "Combo Charts" or "KPIs".
func (t Type) DisplayName() string {
	switch t {
	case KPI:
		return "KPIs"
	case ComboChart:
		return "Combo Charts"
	}
	return cases.Title(language.English).String(string(t)) + "s"
}

// ParseType converts a type name or display name into a Type. It accepts
// "measure", "Measures", "Combo Charts", "KPIs" and so on.
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if strings.HasSuffix(name, "s") {
		name = strings.TrimSuffix(name, "s")
	}
	if name == "" {
		return "", errors.New("empty definition type")
	}
	t := Type(name)
	for _, known := range append(Types(), VisualizationTypes()...) {
		if t == known {
			return t, nil
		}
	}
	if t.IsVisualization() {
		return t, nil
	}
	return "", fmt.Errorf("unsupported definition type %q", s)
}

// Infer picks the type a batch of records belongs to from the qInfo/qType
// of its first record. Unknown visualization types fall back to Other; an
// empty qType infers nothing.
func Infer(qType string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(qType)))
	if t == "" {
		return "", false
	}
	for _, known := range append(Types(), VisualizationTypes()...) {
		if t == known {
			return t, true
		}
	}
	return Other, true
}

// Operation is the kind of mutation applied to a definition.
type Operation string

// Operations.
const (
	Add     Operation = "add"
	Replace Operation = "replace"
)

// Outcome is the result of reconciling one edited record.
type Outcome int

// Outcomes.
const (
	Invalid Outcome = iota
	Added
	Replaced
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Added:
		return "add"
	case Replaced:
		return "replace"
	default:
		return "invalid"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Presentation colors.
const (
	ColorAdded    = "#BBFFBB"
	ColorReplaced = "#BBBBFF"
	ColorInvalid  = "#FFBBBB"

	ColorRowEven = "#EEEEEE"
	ColorRowOdd  = "#DDDDCC"
)

// Color returns the row color used to show the outcome.
func (o Outcome) Color() string {
	switch o {
	case Added:
		return ColorAdded
	case Replaced:
		return ColorReplaced
	default:
		return ColorInvalid
	}
}

// ColorKey is the presentation-only record key carrying a row color.
const ColorKey = "_color"

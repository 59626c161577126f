// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package definition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_IsVisualization(t *testing.T) {
	tests := []struct {
		typ  Type
		want bool
	}{
		{Measure, false},
		{Dimension, false},
		{Variable, false},
		{KPI, true},
		{ComboChart, true},
		{ScatterPlot, true},
		{TreeMap, true},
		{"pivot-table", true},
		{"histogram", true},
		{"gauge", true},
		{"text-image", false},
		{Other, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.IsVisualization())
		})
	}
}

func TestType_Creatable(t *testing.T) {
	assert.True(t, Measure.Creatable())
	assert.True(t, Dimension.Creatable())
	assert.True(t, Variable.Creatable())
	assert.False(t, KPI.Creatable())
	assert.False(t, Other.Creatable())
}

func TestType_Matches(t *testing.T) {
	assert.True(t, Measure.Matches("measure"))
	assert.True(t, BarChart.Matches("BarChart"))
	assert.False(t, BarChart.Matches("linechart"))
	assert.True(t, Other.Matches("pivot-table"))
	assert.False(t, Other.Matches("sheet"))
	assert.True(t, Visualization.Matches("gauge"))
}

func TestType_DisplayName(t *testing.T) {
	assert.Equal(t, "Measures", Measure.DisplayName())
	assert.Equal(t, "KPIs", KPI.DisplayName())
	assert.Equal(t, "Combo Charts", ComboChart.DisplayName())
	assert.Equal(t, "Barcharts", BarChart.DisplayName())
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{in: "measure", want: Measure},
		{in: "Measures", want: Measure},
		{in: "Combo Charts", want: ComboChart},
		{in: "KPIs", want: KPI},
		{in: "Variables", want: Variable},
		{in: "pivot-table", want: "pivot-table"},
		{in: "sheet", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutcome_Color(t *testing.T) {
	assert.Equal(t, ColorAdded, Added.Color())
	assert.Equal(t, ColorReplaced, Replaced.Color())
	assert.Equal(t, ColorInvalid, Invalid.Color())
	assert.Equal(t, "replace", Replaced.String())

	text, err := Added.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "add", string(text))
}

func TestInfer(t *testing.T) {
	tests := []struct {
		qType string
		want  Type
		ok    bool
	}{
		{qType: "measure", want: Measure, ok: true},
		{qType: "Dimension", want: Dimension, ok: true},
		{qType: "barchart", want: BarChart, ok: true},
		{qType: "pivot-table", want: Other, ok: true},
		{qType: "sheet", want: Other, ok: true},
		{qType: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.qType, func(t *testing.T) {
			got, ok := Infer(tt.qType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

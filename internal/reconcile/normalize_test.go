// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package reconcile

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/proppath"
	"github.com/dacolabs/curate/internal/rules"
)

func record(kv ...any) *proppath.Record {
	r := proppath.NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}

func TestIdentity(t *testing.T) {
	rs := rules.Default()

	tests := []struct {
		name string
		rec  *proppath.Record
		want string
	}{
		{"qInfo/qId wins", record("ID", "b", "qInfo/qId", "a"), "a"},
		{"qId", record("qId", "c"), "c"},
		{"Id", record("Id", "d"), "d"},
		{"ID", record("ID", "e"), "e"},
		{"alias fallback", record("qid", "f"), "f"},
		{"blank skipped", record("qInfo/qId", "  ", "ID", "g"), "g"},
		{"none", record("qMeasure/qDef", "Sum(x)"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Identity(tt.rec, rs))
		})
	}
}

func TestNormalize_Replace(t *testing.T) {
	rec := record(
		"qInfo/qId", "m1",
		"qInfo/qType", "measure",
		"title", "Sales",
		"description", "Total \"net\" sales",
		"qMeasure/qDef", "Sum(Sales)",
		"qMeasure/qNumFormat/qnDec", "2",
		"qMetaDef/tags/1", "finance",
		"qMetaDef/tags/0", "core",
		"qMeasure/qLabel", "",
		"_color", "#BBFFBB",
	)

	got := Normalize(rec, definition.Measure, definition.Replace, rules.Default())

	assert.Equal(t, []string{
		"qMeasure/title",
		"qMetaDef/description",
		"qMeasure/qDef",
		"qMeasure/qNumFormat/qnDec",
		"qMetaDef/tags",
	}, got.Keys())

	desc, _ := got.Get("qMetaDef/description")
	assert.Equal(t, `Total \"net\" sales`, desc)
	n, _ := got.Get("qMeasure/qNumFormat/qnDec")
	assert.Equal(t, 2.0, n)
	tags, _ := got.Get("qMetaDef/tags")
	assert.Equal(t, []any{"core", "finance"}, tags)
}

func TestNormalize_Add(t *testing.T) {
	rec := record(
		"id", "v1",
		"name", "vStart",
		"qDefinition", "=Today()\r\n",
		"qIncludeInBookmark", "TRUE",
		"qMeta/privileges/0", "read",
	)

	got := Normalize(rec, definition.Variable, definition.Add, rules.Default())

	assert.Equal(t, []string{"qInfo/qId", "qName", "qDefinition", "qIncludeInBookmark"}, got.Keys())
	def, _ := got.Get("qDefinition")
	assert.Equal(t, "=Today()\n", def)
	inc, _ := got.Get("qIncludeInBookmark")
	assert.Equal(t, true, inc)
}

func TestNormalize_SparseArray(t *testing.T) {
	rec := record("list/2", "c", "list/0", "a")

	got := Normalize(rec, definition.BarChart, definition.Add, rules.Default())

	v, _ := got.Get("list")
	assert.Equal(t, []any{"a", nil, "c"}, v)
}

func TestPatches(t *testing.T) {
	tests := []struct {
		name string
		typ  definition.Type
		rec  *proppath.Record
		want []Patch
	}{
		{
			name: "measure nested key patches the parent",
			typ:  definition.Measure,
			rec:  record("qMeasure/qDef", "Sum(x)"),
			want: []Patch{{Op: "replace", Path: "/qMeasure", Value: `{"qDef":"Sum(x)"}`}},
		},
		{
			name: "dimension array",
			typ:  definition.Dimension,
			rec:  record("qDim/qFieldDefs", []any{"Region", "Country"}),
			want: []Patch{{Op: "replace", Path: "/qDim", Value: `{"qFieldDefs":["Region","Country"]}`}},
		},
		{
			name: "variable top-level key",
			typ:  definition.Variable,
			rec:  record("qComment", "note", "qIncludeInBookmark", true),
			want: []Patch{
				{Op: "replace", Path: "/qComment", Value: `"note"`},
				{Op: "replace", Path: "/qIncludeInBookmark", Value: `true`},
			},
		},
		{
			name: "visualization nested key patches in place",
			typ:  definition.BarChart,
			rec:  record("qHyperCubeDef/qMeasures/0/qDef/qDef", "Avg(y)", "qHyperCubeDef/qInitialDataFetch/qHeight", 50.0),
			want: []Patch{
				{Op: "replace", Path: "/qHyperCubeDef/qMeasures/0/qDef/qDef", Value: `"Avg(y)"`},
				{Op: "replace", Path: "/qHyperCubeDef/qInitialDataFetch/qHeight", Value: `50`},
			},
		},
		{
			name: "numeric array",
			typ:  definition.KPI,
			rec:  record("sizes", []any{1.0, 2.5}),
			want: []Patch{{Op: "replace", Path: "/sizes", Value: `[1,2.5]`}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Patches(tt.rec, tt.typ)
			assert.Equal(t, tt.want, got)
			for _, p := range got {
				assert.True(t, json.Valid([]byte(p.Value)), p.Value)
			}
		})
	}
}

func TestPatches_EscapedValuesAreValidJSON(t *testing.T) {
	tests := []struct {
		name string
		key  string
		raw  string
	}{
		{"quotes and newlines", "qMeasure/qDef", "If(x = \"a\",\r\n 1)"},
		{"backslash", "qMeasure/qLabel", `C:\tmp`},
		{"tab", "qMeasure/qDef", "Sum(\tSales)"},
		{"control character", "qMeasure/qLabel", "a\x01b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flat := Normalize(record(tt.key, tt.raw), definition.Measure, definition.Replace, rules.Default())

			patches := Patches(flat, definition.Measure)
			require.Len(t, patches, 1)
			assert.True(t, json.Valid([]byte(patches[0].Value)), patches[0].Value)

			var v map[string]string
			require.NoError(t, json.Unmarshal([]byte(patches[0].Value), &v))
			want := strings.NewReplacer("\r\n", "\n").Replace(tt.raw)
			for _, got := range v {
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestPatches_NestedObjectValue(t *testing.T) {
	flat := Normalize(record("qMetaDef", map[string]any{"note": `say "hi"`}), definition.Variable, definition.Replace, rules.Default())

	patches := Patches(flat, definition.Variable)
	require.Len(t, patches, 1)
	assert.JSONEq(t, `{"note":"say \"hi\""}`, patches[0].Value)
}

func TestNormalize_LeavesInputUntouched(t *testing.T) {
	tags := []any{`say "hi"`, "b"}
	rec := record("qMetaDef/tags", tags, "qMetaDef/tags/2", "c")

	flat := Normalize(rec, definition.Measure, definition.Replace, rules.Default())

	assert.Equal(t, []any{`say "hi"`, "b"}, tags)
	got, _ := rec.Get("qMetaDef/tags")
	assert.Equal(t, []any{`say "hi"`, "b"}, got)
	norm, _ := flat.Get("qMetaDef/tags")
	assert.Equal(t, []any{`say \"hi\"`, "b", "c"}, norm)
}

func TestProperties(t *testing.T) {
	flat := record("qMeasure/qDef", "Sum(x)", "qMeasure/qLabel", "S", "qMetaDef/tags", []any{"a"})

	props, err := Properties(flat, definition.Measure)
	require.NoError(t, err)

	info := props["qInfo"].(map[string]any)
	assert.Equal(t, "measure", info["qType"])
	assert.NotEmpty(t, info["qId"])
	assert.Equal(t, map[string]any{"qDef": "Sum(x)", "qLabel": "S"}, props["qMeasure"])
	assert.Equal(t, map[string]any{"tags": []any{"a"}}, props["qMetaDef"])
}

func TestProperties_KeepsGivenIdentity(t *testing.T) {
	flat := record("qInfo/qId", "m7", "qInfo/qType", "measure")

	props, err := Properties(flat, definition.Measure)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"qId": "m7", "qType": "measure"}, props["qInfo"])
}

func TestProperties_Conflicts(t *testing.T) {
	_, err := Properties(record("qInfo", "x"), definition.Measure)
	assert.ErrorIs(t, err, proppath.ErrPathConflict)

	_, err = Properties(record("a/0", "x", "a/b", "y"), definition.Measure)
	assert.ErrorIs(t, err, proppath.ErrPathConflict)
}

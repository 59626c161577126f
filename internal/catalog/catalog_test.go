// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/proppath"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListInfos(ctx context.Context) ([]Info, error) {
	args := m.Called(ctx)
	infos, _ := args.Get(0).([]Info)
	return infos, args.Error(1)
}

func (m *mockSource) Properties(ctx context.Context, t definition.Type, id string) (json.RawMessage, error) {
	args := m.Called(ctx, t, id)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockSource) Variables(ctx context.Context) ([]json.RawMessage, error) {
	args := m.Called(ctx)
	raws, _ := args.Get(0).([]json.RawMessage)
	return raws, args.Error(1)
}

var infos = []Info{
	{ID: "m1", Type: "measure"},
	{ID: "s1", Type: "sheet"},
	{ID: "m2", Type: "measure"},
	{ID: "b1", Type: "barchart"},
	{ID: "p1", Type: "pivot-table"},
	{ID: "x", Type: ""},
}

func keysOf(records []*proppath.Record, key string) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text(key)
	}
	return out
}

func TestFetch_Measures(t *testing.T) {
	src := &mockSource{}
	src.On("ListInfos", mock.Anything).Return(infos, nil)
	src.On("Properties", mock.Anything, definition.Measure, "m1").
		Return(json.RawMessage(`{"qMeasure":{"qDef":"Sum(a)"},"qInfo":{"qId":"m1","qType":"measure"}}`), nil)
	src.On("Properties", mock.Anything, definition.Measure, "m2").
		Return(json.RawMessage(`{"qInfo":{"qId":"m2","qType":"measure"},"qMeasure":{"qDef":"Sum(b)"}}`), nil)

	c := &Catalog{Source: src}
	got, err := c.Fetch(context.Background(), definition.Measure)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, []string{"m1", "m2"}, keysOf(got, "qInfo/qId"))
	assert.Equal(t, []string{"qInfo/qId", "qInfo/qType", "qMeasure/qDef"}, got[0].Keys())
	src.AssertExpectations(t)
}

func TestFetch_OtherVisualizations(t *testing.T) {
	src := &mockSource{}
	src.On("ListInfos", mock.Anything).Return(infos, nil)
	src.On("Properties", mock.Anything, definition.Other, "b1").
		Return(json.RawMessage(`{"qInfo":{"qId":"b1","qType":"barchart"}}`), nil)
	src.On("Properties", mock.Anything, definition.Other, "p1").
		Return(json.RawMessage(`{"qInfo":{"qId":"p1","qType":"pivot-table"}}`), nil)

	c := &Catalog{Source: src}
	got, err := c.Fetch(context.Background(), definition.Other)
	require.NoError(t, err)

	assert.Equal(t, []string{"b1", "p1"}, keysOf(got, "qInfo/qId"))
}

func TestFetch_SkipsFailedEntities(t *testing.T) {
	src := &mockSource{}
	src.On("ListInfos", mock.Anything).Return(infos, nil)
	src.On("Properties", mock.Anything, definition.Measure, "m1").Return(nil, errors.New("gone"))
	src.On("Properties", mock.Anything, definition.Measure, "m2").
		Return(json.RawMessage(`{"qInfo":{"qId":"m2"}}`), nil)

	c := &Catalog{Source: src}
	got, err := c.Fetch(context.Background(), definition.Measure)
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, keysOf(got, "qInfo/qId"))
}

func TestFetch_NoDefinitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(src *mockSource)
		typ   definition.Type
	}{
		{
			name:  "no matching infos",
			setup: func(src *mockSource) { src.On("ListInfos", mock.Anything).Return(infos, nil) },
			typ:   definition.Dimension,
		},
		{
			name: "every fetch failed",
			setup: func(src *mockSource) {
				src.On("ListInfos", mock.Anything).Return(infos, nil)
				src.On("Properties", mock.Anything, definition.BarChart, "b1").Return(json.RawMessage(`[`), nil)
			},
			typ: definition.BarChart,
		},
		{
			name:  "no variables",
			setup: func(src *mockSource) { src.On("Variables", mock.Anything).Return([]json.RawMessage{}, nil) },
			typ:   definition.Variable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mockSource{}
			tt.setup(src)
			_, err := (&Catalog{Source: src}).Fetch(context.Background(), tt.typ)
			assert.ErrorIs(t, err, ErrNoDefinitions)
		})
	}
}

func TestFetch_Variables(t *testing.T) {
	src := &mockSource{}
	src.On("Variables", mock.Anything).Return([]json.RawMessage{
		json.RawMessage(`{"qName":"vToday","qDefinition":"=Today()","qInfo":{"qId":"v1","qType":"variable"},"$$hash":"x"}`),
		json.RawMessage(`not json`),
		json.RawMessage(`{"qName":"vYear","qInfo":{"qId":"v2"}}`),
	}, nil)

	c := &Catalog{Source: src}
	got, err := c.Fetch(context.Background(), definition.Variable)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, []string{"qInfo/qId", "qInfo/qType", "qName", "qDefinition"}, got[0].Keys())
	assert.Equal(t, "vYear", got[1].Text("qName"))
	src.AssertNotCalled(t, "ListInfos", mock.Anything)
}

func TestFetch_Errors(t *testing.T) {
	src := &mockSource{}
	src.On("ListInfos", mock.Anything).Return(nil, errors.New("closed"))

	c := &Catalog{Source: src}
	_, err := c.Fetch(context.Background(), definition.Measure)
	assert.ErrorContains(t, err, "closed")

	_, err = c.Fetch(context.Background(), "sheet")
	assert.Error(t, err)
}

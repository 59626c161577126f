// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/proppath"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Lookup(ctx context.Context, t definition.Type, id string) (Handle, error) {
	args := m.Called(ctx, t, id)
	h, _ := args.Get(0).(Handle)
	return h, args.Error(1)
}

func (m *mockStore) Create(ctx context.Context, t definition.Type, props map[string]any) error {
	return m.Called(ctx, t, props).Error(0)
}

type mockHandle struct {
	mock.Mock
}

func (m *mockHandle) ApplyPatches(ctx context.Context, patches []Patch) error {
	return m.Called(ctx, patches).Error(0)
}

func patchAt(path string) any {
	return mock.MatchedBy(func(ps []Patch) bool {
		return len(ps) == 1 && ps[0].Path == path
	})
}

func TestReconcile_CreatesWithoutIdentity(t *testing.T) {
	store := &mockStore{}
	store.On("Create", mock.Anything, definition.Measure, mock.MatchedBy(func(p map[string]any) bool {
		info := p["qInfo"].(map[string]any)
		m := p["qMeasure"].(map[string]any)
		return info["qType"] == "measure" && info["qId"] != "" && m["qDef"] == "Sum(x)" && m["title"] == "Sales"
	})).Return(nil).Once()

	e := &Engine{Store: store}
	got := e.Reconcile(context.Background(), []*proppath.Record{
		record("name", "Sales", "qMeasure/qDef", "Sum(x)"),
	}, definition.Measure)

	assert.Equal(t, []definition.Outcome{definition.Added}, got)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_PatchesExisting(t *testing.T) {
	h := &mockHandle{}
	h.On("ApplyPatches", mock.Anything, patchAt("/qMeasure")).Return(nil).Twice()
	h.On("ApplyPatches", mock.Anything, patchAt("/qMetaDef")).Return(errors.New("bad path")).Once()

	store := &mockStore{}
	store.On("Lookup", mock.Anything, definition.Measure, "m1").Return(h, nil).Once()

	e := &Engine{Store: store}
	got := e.Reconcile(context.Background(), []*proppath.Record{
		record("qInfo/qId", "m1", "qMeasure/qDef", "Sum(y)", "qMeasure/qLabel", "Y", "qMetaDef/description", "d"),
	}, definition.Measure)

	assert.Equal(t, []definition.Outcome{definition.Replaced}, got)
	h.AssertExpectations(t)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_AllPatchesFail(t *testing.T) {
	h := &mockHandle{}
	h.On("ApplyPatches", mock.Anything, mock.Anything).Return(errors.New("rejected"))

	store := &mockStore{}
	store.On("Lookup", mock.Anything, definition.Variable, "v1").Return(h, nil)

	e := &Engine{Store: store}
	got := e.Reconcile(context.Background(), []*proppath.Record{
		record("id", "v1", "qDefinition", "1", "qComment", "c"),
	}, definition.Variable)

	assert.Equal(t, []definition.Outcome{definition.Invalid}, got)
	h.AssertNumberOfCalls(t, "ApplyPatches", 2)
}

func TestReconcile_NoPatchableFields(t *testing.T) {
	h := &mockHandle{}
	store := &mockStore{}
	store.On("Lookup", mock.Anything, definition.Dimension, "d1").Return(h, nil)

	e := &Engine{Store: store}
	got := e.Reconcile(context.Background(), []*proppath.Record{
		record("qInfo/qId", "d1", "qInfo/qType", "dimension", "qDim/title", ""),
	}, definition.Dimension)

	assert.Equal(t, []definition.Outcome{definition.Invalid}, got)
	h.AssertNotCalled(t, "ApplyPatches", mock.Anything, mock.Anything)
}

func TestReconcile_LookupFailureFallsBackToCreate(t *testing.T) {
	tests := []struct {
		name      string
		lookupErr error
	}{
		{"not found", ErrNotFound},
		{"engine error", errors.New("socket closed")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			store.On("Lookup", mock.Anything, definition.Dimension, "d9").Return(nil, tt.lookupErr)
			store.On("Create", mock.Anything, definition.Dimension, mock.MatchedBy(func(p map[string]any) bool {
				return p["qInfo"].(map[string]any)["qId"] == "d9"
			})).Return(nil)

			e := &Engine{Store: store}
			got := e.Reconcile(context.Background(), []*proppath.Record{
				record("id", "d9", "qDim/qFieldDefs/0", "Region"),
			}, definition.Dimension)

			assert.Equal(t, []definition.Outcome{definition.Added}, got)
			store.AssertExpectations(t)
		})
	}
}

func TestReconcile_CreateFailureIsInvalid(t *testing.T) {
	store := &mockStore{}
	store.On("Create", mock.Anything, definition.Variable, mock.Anything).Return(errors.New("duplicate name"))

	e := &Engine{Store: store}
	got := e.Reconcile(context.Background(), []*proppath.Record{record("name", "vX")}, definition.Variable)

	assert.Equal(t, []definition.Outcome{definition.Invalid}, got)
}

func TestReconcile_VisualizationsAreNotCreated(t *testing.T) {
	store := &mockStore{}
	store.On("Lookup", mock.Anything, definition.BarChart, "gone").Return(nil, ErrNotFound)

	e := &Engine{Store: store}
	got := e.Reconcile(context.Background(), []*proppath.Record{
		record("qHyperCubeDef/qMode", "S"),
		record("qInfo/qId", "gone", "showTitles", "true"),
	}, definition.BarChart)

	assert.Equal(t, []definition.Outcome{definition.Invalid, definition.Invalid}, got)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_KeepsInputOrder(t *testing.T) {
	store := &mockStore{}
	h := &mockHandle{}
	h.On("ApplyPatches", mock.Anything, mock.Anything).Return(nil)

	const n = 40
	var records []*proppath.Record
	want := make([]definition.Outcome, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("m%d", i)
		switch i % 3 {
		case 0:
			store.On("Lookup", mock.Anything, definition.Measure, id).Return(h, nil)
			want[i] = definition.Replaced
		case 1:
			store.On("Lookup", mock.Anything, definition.Measure, id).Return(nil, ErrNotFound)
			want[i] = definition.Added
		case 2:
			store.On("Lookup", mock.Anything, definition.Measure, id).Return(nil, ErrNotFound)
			want[i] = definition.Invalid
		}
		records = append(records, record("qInfo/qId", id, "qMeasure/qLabel", id))
	}
	store.On("Create", mock.Anything, definition.Measure, mock.MatchedBy(func(p map[string]any) bool {
		var i int
		_, _ = fmt.Sscanf(p["qInfo"].(map[string]any)["qId"].(string), "m%d", &i)
		return i%3 == 1
	})).Return(nil)
	store.On("Create", mock.Anything, definition.Measure, mock.Anything).Return(errors.New("rejected"))

	e := &Engine{Store: store, Concurrency: 4}
	got := e.Reconcile(context.Background(), records, definition.Measure)

	assert.Equal(t, want, got)
}

type slowStore struct {
	lookups atomic.Int32
}

func (s *slowStore) Lookup(ctx context.Context, _ definition.Type, _ string) (Handle, error) {
	s.lookups.Add(1)
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *slowStore) Create(ctx context.Context, _ definition.Type, _ map[string]any) error {
	return nil
}

func TestReconcile_CallTimeout(t *testing.T) {
	store := &slowStore{}
	e := &Engine{Store: store, CallTimeout: 20 * time.Millisecond}

	start := time.Now()
	got := e.Reconcile(context.Background(), []*proppath.Record{
		record("qInfo/qId", "m1", "qMeasure/qDef", "Sum(x)"),
	}, definition.Measure)

	assert.Equal(t, []definition.Outcome{definition.Added}, got)
	assert.Equal(t, int32(1), store.lookups.Load())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestReconcile_Empty(t *testing.T) {
	e := &Engine{Store: &mockStore{}}
	assert.Empty(t, e.Reconcile(context.Background(), nil, definition.Measure))
}

type captureLogger struct {
	lines atomic.Int32
}

func (c *captureLogger) Printf(string, ...any) { c.lines.Add(1) }

func TestReconcile_LogsRecoveredFailures(t *testing.T) {
	store := &mockStore{}
	store.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("nope"))
	logger := &captureLogger{}

	e := &Engine{Store: store, Logger: logger}
	e.Reconcile(context.Background(), []*proppath.Record{record("qMeasure/qDef", "x")}, definition.Measure)

	assert.GreaterOrEqual(t, logger.lines.Load(), int32(2))
}

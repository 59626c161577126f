// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package qix

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/reconcile"
	"github.com/dacolabs/curate/internal/workspace"
)

func openApp(t *testing.T, e *fakeEngine) *App {
	t.Helper()
	app, conn, err := Open(context.Background(), e.url()+"/app/main", "app-1", DialOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return app
}

func TestApp_LookupAndPatch(t *testing.T) {
	handlers := map[string]handlerFunc{
		"OpenDoc":         result(handle(1, "Doc", "app-1")),
		"GetMeasure":      result(handle(2, "GenericMeasure", "m1")),
		"GetDimension":    result(handle(3, "GenericDimension", "d1")),
		"GetVariableById": result(handle(4, "GenericVariable", "v1")),
		"GetObject":       result(handle(5, "GenericObject", "kpi1")),
		"ApplyPatches":    result(map[string]any{}),
	}
	e := newFakeEngine(t, handlers)
	app := openApp(t, e)
	ctx := context.Background()

	tests := []struct {
		typ    definition.Type
		method string
		handle int
	}{
		{definition.Measure, "GetMeasure", 2},
		{definition.Dimension, "GetDimension", 3},
		{definition.Variable, "GetVariableById", 4},
		{definition.KPI, "GetObject", 5},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			h, err := app.Lookup(ctx, tt.typ, "some-id")
			require.NoError(t, err)
			require.NoError(t, h.ApplyPatches(ctx, []reconcile.Patch{{Op: "replace", Path: "/qName", Value: `"x"`}}))

			calls := e.callsTo(tt.method)
			require.NotEmpty(t, calls)
			assert.JSONEq(t, `{"qId":"some-id"}`, string(calls[len(calls)-1].Params))

			patches := e.callsTo("ApplyPatches")
			last := patches[len(patches)-1]
			assert.Equal(t, tt.handle, last.Handle)
			assert.JSONEq(t, `{"qPatches":[{"qOp":"replace","qPath":"/qName","qValue":"\"x\""}],"qSoftPatch":false}`,
				string(last.Params))
		})
	}

	opens := e.callsTo("OpenDoc")
	require.Len(t, opens, 1)
	assert.JSONEq(t, `{"qDocName":"app-1"}`, string(opens[0].Params))
	assert.Equal(t, []string{"/app/main"}, e.requestPaths())
}

func TestApp_Create(t *testing.T) {
	e := newFakeEngine(t, map[string]handlerFunc{
		"OpenDoc":          result(handle(1, "Doc", "app-1")),
		"CreateMeasure":    result(handle(2, "GenericMeasure", "new")),
		"CreateDimension":  result(handle(3, "GenericDimension", "new")),
		"CreateVariableEx": result(handle(4, "GenericVariable", "new")),
	})
	app := openApp(t, e)
	ctx := context.Background()
	props := map[string]any{"qInfo": map[string]any{"qId": "n1", "qType": "measure"}}

	require.NoError(t, app.Create(ctx, definition.Measure, props))
	require.NoError(t, app.Create(ctx, definition.Dimension, props))
	require.NoError(t, app.Create(ctx, definition.Variable, props))
	assert.Error(t, app.Create(ctx, definition.BarChart, props))

	calls := e.callsTo("CreateMeasure")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"qProp":{"qInfo":{"qId":"n1","qType":"measure"}}}`, string(calls[0].Params))
}

func TestApp_CatalogSource(t *testing.T) {
	e := newFakeEngine(t, map[string]handlerFunc{
		"OpenDoc": result(handle(1, "Doc", "app-1")),
		"GetAllInfos": result(map[string]any{"qInfos": []map[string]any{
			{"qId": "m1", "qType": "measure"},
			{"qId": "s1", "qType": "sheet"},
		}}),
		"GetMeasure":    result(handle(2, "GenericMeasure", "m1")),
		"GetProperties": result(map[string]any{"qProp": map[string]any{"qInfo": map[string]any{"qId": "m1"}}}),
		"CreateSessionObject": func(_ int, params json.RawMessage) (any, *RPCError) {
			if !strings.Contains(string(params), `"VariableList"`) {
				return nil, &RPCError{Code: 1, Message: "unexpected object"}
			}
			return handle(7, "GenericObject", "tempVL"), nil
		},
		"GetLayout": result(map[string]any{"qLayout": map[string]any{
			"qVariableList": map[string]any{"qItems": []map[string]any{
				{"qName": "vToday", "qInfo": map[string]any{"qId": "v1"}},
			}},
		}}),
		"DestroySessionObject": result(map[string]any{"qSuccess": true}),
		"GetAppProperties":     result(map[string]any{"qProp": map[string]any{}}),
	})
	app := openApp(t, e)
	ctx := context.Background()

	infos, err := app.ListInfos(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "sheet", infos[1].Type)

	raw, err := app.Properties(ctx, definition.Measure, "m1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"qInfo":{"qId":"m1"}}`, string(raw))

	vars, err := app.Variables(ctx)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.JSONEq(t, `{"qName":"vToday","qInfo":{"qId":"v1"}}`, string(vars[0]))
	assert.Len(t, e.callsTo("DestroySessionObject"), 1)

	title, err := app.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultAppTitle, title)
}

func TestApp_Browser(t *testing.T) {
	e := newFakeEngine(t, map[string]handlerFunc{
		"OpenDoc": result(handle(1, "Doc", "app-1")),
		"GetConnections": result(map[string]any{"qConnections": []map[string]any{
			{"qId": "c1", "qName": "Files", "qConnectionString": "lib://x", "qType": "folder"},
		}}),
		"GetFolderItemsForConnection": result(map[string]any{"qFolderItems": []map[string]any{
			{"qName": "defs", "qType": "FOLDER"},
			{"qName": "m.xlsx", "qType": "FILE"},
		}}),
		"GuessFileType": result(map[string]any{"qDataFormat": map[string]any{"qType": "EXCEL_OOXML", "qLabel": "embedded labels"}}),
		"GetFileTables": result(map[string]any{"qTables": []map[string]any{{"qName": "Sheet1"}, {"qName": "Sheet2"}}}),
	})
	app := openApp(t, e)
	ctx := context.Background()

	conns, err := app.Connections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []workspace.Connection{{ID: "c1", Name: "Files", ConnectionString: "lib://x", Type: "folder"}}, conns)

	items, err := app.FolderItems(ctx, "c1", "")
	require.NoError(t, err)
	assert.Equal(t, []workspace.FolderItem{
		{Name: "defs", Kind: workspace.KindFolder},
		{Name: "m.xlsx", Kind: workspace.KindFile},
	}, items)

	f, err := app.GuessFileType(ctx, "c1", "m.xlsx")
	require.NoError(t, err)
	assert.True(t, f.IsExcel())

	tables, err := app.FileTables(ctx, "c1", "m.xlsx", workspace.DataFormat{Type: f.Type})
	require.NoError(t, err)
	assert.Equal(t, []string{"Sheet1", "Sheet2"}, tables)

	calls := e.callsTo("GetFileTables")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"qConnectionId":"c1","qRelativePath":"m.xlsx","qDataFormat":{"qType":"EXCEL_OOXML"}}`,
		string(calls[0].Params))
}

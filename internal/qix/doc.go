// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package qix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dacolabs/curate/internal/reconcile"
	"github.com/dacolabs/curate/internal/workspace"
)

type objectRef struct {
	Type      string `json:"qType"`
	Handle    *int   `json:"qHandle"`
	GenericID string `json:"qGenericId"`
}

type returnRef struct {
	Return objectRef `json:"qReturn"`
}

// Global is the engine-level handle.
type Global struct {
	c *Conn
}

// OpenDoc opens the app with id appID.
func (g *Global) OpenDoc(ctx context.Context, appID string) (*Doc, error) {
	var res returnRef
	if err := g.c.Call(ctx, globalHandle, "OpenDoc", map[string]any{"qDocName": appID}, &res); err != nil {
		return nil, fmt.Errorf("open app %s: %w", appID, err)
	}
	if res.Return.Handle == nil {
		return nil, fmt.Errorf("open app %s: no handle returned", appID)
	}
	return &Doc{c: g.c, handle: *res.Return.Handle}, nil
}

// CreateSessionApp creates an app that lives only as long as the session.
func (g *Global) CreateSessionApp(ctx context.Context) (*Doc, error) {
	var res returnRef
	if err := g.c.Call(ctx, globalHandle, "CreateSessionApp", nil, &res); err != nil {
		return nil, fmt.Errorf("create session app: %w", err)
	}
	if res.Return.Handle == nil {
		return nil, errors.New("create session app: no handle returned")
	}
	return &Doc{c: g.c, handle: *res.Return.Handle}, nil
}

// Doc is an open app.
type Doc struct {
	c      *Conn
	handle int
}

func (d *Doc) call(ctx context.Context, method string, params, result any) error {
	return d.c.Call(ctx, d.handle, method, params, result)
}

// object calls a method returning an object handle. A null handle, or the
// engine's not-found error, yields reconcile.ErrNotFound.
func (d *Doc) object(ctx context.Context, method string, params any) (*Object, error) {
	var res returnRef
	if err := d.call(ctx, method, params, &res); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == codeNotFound {
			return nil, fmt.Errorf("%w: %w", reconcile.ErrNotFound, err)
		}
		return nil, err
	}
	if res.Return.Handle == nil {
		return nil, reconcile.ErrNotFound
	}
	return &Object{
		c:         d.c,
		handle:    *res.Return.Handle,
		Type:      res.Return.Type,
		GenericID: res.Return.GenericID,
	}, nil
}

// Info identifies an entity of the app.
type Info struct {
	ID   string `json:"qId"`
	Type string `json:"qType"`
}

// GetAllInfos lists every entity of the app.
func (d *Doc) GetAllInfos(ctx context.Context) ([]Info, error) {
	var res struct {
		Infos []Info `json:"qInfos"`
	}
	if err := d.call(ctx, "GetAllInfos", nil, &res); err != nil {
		return nil, err
	}
	return res.Infos, nil
}

// GetMeasure returns the master measure with id.
func (d *Doc) GetMeasure(ctx context.Context, id string) (*Object, error) {
	return d.object(ctx, "GetMeasure", map[string]any{"qId": id})
}

// GetDimension returns the master dimension with id.
func (d *Doc) GetDimension(ctx context.Context, id string) (*Object, error) {
	return d.object(ctx, "GetDimension", map[string]any{"qId": id})
}

// GetVariableById returns the variable with id.
func (d *Doc) GetVariableById(ctx context.Context, id string) (*Object, error) { //nolint:revive // engine method name
	return d.object(ctx, "GetVariableById", map[string]any{"qId": id})
}

// GetObject returns the generic object with id.
func (d *Doc) GetObject(ctx context.Context, id string) (*Object, error) {
	return d.object(ctx, "GetObject", map[string]any{"qId": id})
}

// CreateMeasure creates a master measure.
func (d *Doc) CreateMeasure(ctx context.Context, props map[string]any) error {
	return d.call(ctx, "CreateMeasure", map[string]any{"qProp": props}, nil)
}

// CreateDimension creates a master dimension.
func (d *Doc) CreateDimension(ctx context.Context, props map[string]any) error {
	return d.call(ctx, "CreateDimension", map[string]any{"qProp": props}, nil)
}

// CreateVariableEx creates a variable.
func (d *Doc) CreateVariableEx(ctx context.Context, props map[string]any) error {
	return d.call(ctx, "CreateVariableEx", map[string]any{"qProp": props}, nil)
}

// CreateSessionObject creates a generic object that lives only as long as
// the session.
func (d *Doc) CreateSessionObject(ctx context.Context, props map[string]any) (*Object, error) {
	return d.object(ctx, "CreateSessionObject", map[string]any{"qProp": props})
}

// DestroySessionObject removes a session object.
func (d *Doc) DestroySessionObject(ctx context.Context, id string) error {
	var res struct {
		Success bool `json:"qSuccess"`
	}
	if err := d.call(ctx, "DestroySessionObject", map[string]any{"qId": id}, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("destroy session object %s: not destroyed", id)
	}
	return nil
}

// AppProperties holds the app properties curate reads.
type AppProperties struct {
	Title string `json:"qTitle"`
}

// GetAppProperties returns the app's properties.
func (d *Doc) GetAppProperties(ctx context.Context) (AppProperties, error) {
	var res struct {
		Prop AppProperties `json:"qProp"`
	}
	err := d.call(ctx, "GetAppProperties", nil, &res)
	return res.Prop, err
}

// GetConnections lists the app's data connections.
func (d *Doc) GetConnections(ctx context.Context) ([]workspace.Connection, error) {
	var res struct {
		Connections []workspace.Connection `json:"qConnections"`
	}
	if err := d.call(ctx, "GetConnections", nil, &res); err != nil {
		return nil, err
	}
	return res.Connections, nil
}

// FolderItem is an entry of a folder connection.
type FolderItem struct {
	Name string `json:"qName"`
	Type string `json:"qType"`
}

// GetFolderItemsForConnection lists path inside a folder connection.
func (d *Doc) GetFolderItemsForConnection(ctx context.Context, connID, path string) ([]FolderItem, error) {
	var res struct {
		Items []FolderItem `json:"qFolderItems"`
	}
	params := map[string]any{"qConnectionId": connID, "qRelativePath": path}
	if err := d.call(ctx, "GetFolderItemsForConnection", params, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

// GuessFileType returns the engine's guess of a file's format.
func (d *Doc) GuessFileType(ctx context.Context, connID, path string) (workspace.DataFormat, error) {
	var res struct {
		DataFormat workspace.DataFormat `json:"qDataFormat"`
	}
	params := map[string]any{"qConnectionId": connID, "qRelativePath": path}
	err := d.call(ctx, "GuessFileType", params, &res)
	return res.DataFormat, err
}

// GetFileTables lists the tables of a file.
func (d *Doc) GetFileTables(ctx context.Context, connID, path string, f workspace.DataFormat) ([]string, error) {
	var res struct {
		Tables []struct {
			Name string `json:"qName"`
		} `json:"qTables"`
	}
	params := map[string]any{"qConnectionId": connID, "qRelativePath": path, "qDataFormat": f}
	if err := d.call(ctx, "GetFileTables", params, &res); err != nil {
		return nil, err
	}
	names := make([]string, len(res.Tables))
	for i, t := range res.Tables {
		names[i] = t.Name
	}
	return names, nil
}

// CreateConnection creates a data connection and returns its id.
func (d *Doc) CreateConnection(ctx context.Context, conn workspace.Connection) (string, error) {
	var res struct {
		ID string `json:"qConnectionId"`
	}
	err := d.call(ctx, "CreateConnection", map[string]any{"qConnection": conn}, &res)
	return res.ID, err
}

// GetConnection returns the data connection with id.
func (d *Doc) GetConnection(ctx context.Context, id string) (workspace.Connection, error) {
	var res struct {
		Connection workspace.Connection `json:"qConnection"`
	}
	err := d.call(ctx, "GetConnection", map[string]any{"qConnectionId": id}, &res)
	return res.Connection, err
}

// SetScript replaces the app's load script.
func (d *Doc) SetScript(ctx context.Context, script string) error {
	return d.call(ctx, "SetScript", map[string]any{"qScript": script}, nil)
}

// DoReload runs the load script and reports whether it succeeded.
func (d *Doc) DoReload(ctx context.Context, mode int, partial, debug bool) (bool, error) {
	var res struct {
		Return bool `json:"qReturn"`
	}
	params := map[string]any{"qMode": mode, "qPartial": partial, "qDebug": debug}
	err := d.call(ctx, "DoReload", params, &res)
	return res.Return, err
}

// TableField is a field of a loaded table.
type TableField struct {
	Name string `json:"qName"`
}

// TableRecord is a table of the app's data model.
type TableRecord struct {
	Name        string       `json:"qName"`
	NoOfRows    int          `json:"qNoOfRows"`
	Fields      []TableField `json:"qFields"`
	IsSynthetic bool         `json:"qIsSynthetic"`
}

// GetTablesAndKeys lists the tables of the app's data model.
func (d *Doc) GetTablesAndKeys(ctx context.Context) ([]TableRecord, error) {
	size := map[string]int{"qcx": 0, "qcy": 0}
	params := map[string]any{
		"qWindowSize":     size,
		"qNullSize":       size,
		"qCellHeight":     0,
		"qSyntheticMode":  false,
		"qIncludeSysVars": false,
	}
	var res struct {
		Tables []TableRecord `json:"qtr"`
	}
	if err := d.call(ctx, "GetTablesAndKeys", params, &res); err != nil {
		return nil, err
	}
	return res.Tables, nil
}

// Object is a handle to a measure, dimension, variable or generic object.
type Object struct {
	c      *Conn
	handle int

	Type      string
	GenericID string
}

func (o *Object) call(ctx context.Context, method string, params, result any) error {
	return o.c.Call(ctx, o.handle, method, params, result)
}

// GetProperties returns the object's raw properties.
func (o *Object) GetProperties(ctx context.Context) (json.RawMessage, error) {
	var res struct {
		Prop json.RawMessage `json:"qProp"`
	}
	if err := o.call(ctx, "GetProperties", nil, &res); err != nil {
		return nil, err
	}
	return res.Prop, nil
}

// GetLayout returns the object's raw layout.
func (o *Object) GetLayout(ctx context.Context) (json.RawMessage, error) {
	var res struct {
		Layout json.RawMessage `json:"qLayout"`
	}
	if err := o.call(ctx, "GetLayout", nil, &res); err != nil {
		return nil, err
	}
	return res.Layout, nil
}

// ApplyPatches applies property patches to the object.
func (o *Object) ApplyPatches(ctx context.Context, patches []reconcile.Patch) error {
	return o.call(ctx, "ApplyPatches", map[string]any{"qPatches": patches, "qSoftPatch": false}, nil)
}

// Page is a rectangle of hypercube data.
type Page struct {
	Left   int `json:"qLeft"`
	Top    int `json:"qTop"`
	Width  int `json:"qWidth"`
	Height int `json:"qHeight"`
}

// Cell is a hypercube cell.
type Cell struct {
	Text *string `json:"qText"`
}

// GetHyperCubeData returns the rows of the requested pages, in page order.
func (o *Object) GetHyperCubeData(ctx context.Context, path string, pages ...Page) ([][]Cell, error) {
	var res struct {
		DataPages []struct {
			Matrix [][]Cell `json:"qMatrix"`
		} `json:"qDataPages"`
	}
	params := map[string]any{"qPath": path, "qPages": pages}
	if err := o.call(ctx, "GetHyperCubeData", params, &res); err != nil {
		return nil, err
	}
	var rows [][]Cell
	for _, p := range res.DataPages {
		rows = append(rows, p.Matrix...)
	}
	return rows, nil
}

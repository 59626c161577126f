// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package qix

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dacolabs/curate/internal/catalog"
	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/reconcile"
	"github.com/dacolabs/curate/internal/workspace"
)

// DefaultAppTitle names an app whose title is not set.
const DefaultAppTitle = "QlikApp"

// App adapts an open document to the definition store, the catalog source
// and the connection browser.
type App struct {
	Doc *Doc
}

var (
	_ reconcile.Store   = (*App)(nil)
	_ catalog.Source    = (*App)(nil)
	_ workspace.Browser = (*App)(nil)
)

// Open dials url and opens the app appID on the new connection.
func Open(ctx context.Context, url, appID string, opts DialOptions) (*App, *Conn, error) {
	conn, err := Dial(ctx, url, opts)
	if err != nil {
		return nil, nil, err
	}
	doc, err := conn.Global().OpenDoc(ctx, appID)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return &App{Doc: doc}, conn, nil
}

// Lookup returns the definition of type t with id.
func (a *App) Lookup(ctx context.Context, t definition.Type, id string) (reconcile.Handle, error) {
	return a.get(ctx, t, id)
}

func (a *App) get(ctx context.Context, t definition.Type, id string) (*Object, error) {
	switch t {
	case definition.Measure:
		return a.Doc.GetMeasure(ctx, id)
	case definition.Dimension:
		return a.Doc.GetDimension(ctx, id)
	case definition.Variable:
		return a.Doc.GetVariableById(ctx, id)
	}
	return a.Doc.GetObject(ctx, id)
}

// Create creates a measure, dimension or variable from props.
func (a *App) Create(ctx context.Context, t definition.Type, props map[string]any) error {
	switch t {
	case definition.Measure:
		return a.Doc.CreateMeasure(ctx, props)
	case definition.Dimension:
		return a.Doc.CreateDimension(ctx, props)
	case definition.Variable:
		return a.Doc.CreateVariableEx(ctx, props)
	}
	return fmt.Errorf("definitions of type %s cannot be created", t)
}

// ListInfos lists every entity of the app.
func (a *App) ListInfos(ctx context.Context) ([]catalog.Info, error) {
	infos, err := a.Doc.GetAllInfos(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Info, len(infos))
	for i, info := range infos {
		out[i] = catalog.Info{ID: info.ID, Type: info.Type}
	}
	return out, nil
}

// Properties returns the raw properties of the definition of type t with id.
func (a *App) Properties(ctx context.Context, t definition.Type, id string) (json.RawMessage, error) {
	obj, err := a.get(ctx, t, id)
	if err != nil {
		return nil, err
	}
	return obj.GetProperties(ctx)
}

// Variables returns every variable as listed by a temporary variable list.
func (a *App) Variables(ctx context.Context) ([]json.RawMessage, error) {
	id := "tempVL-" + uuid.NewString()
	obj, err := a.Doc.CreateSessionObject(ctx, map[string]any{
		"qInfo":            map[string]any{"qId": id, "qType": "VariableList"},
		"qVariableListDef": map[string]any{"qType": "variable"},
	})
	if err != nil {
		return nil, fmt.Errorf("create variable list: %w", err)
	}
	defer a.Doc.DestroySessionObject(context.WithoutCancel(ctx), id) //nolint:errcheck

	raw, err := obj.GetLayout(ctx)
	if err != nil {
		return nil, fmt.Errorf("variable list layout: %w", err)
	}
	var layout struct {
		VariableList struct {
			Items []json.RawMessage `json:"qItems"`
		} `json:"qVariableList"`
	}
	if err := json.Unmarshal(raw, &layout); err != nil {
		return nil, fmt.Errorf("decode variable list: %w", err)
	}
	return layout.VariableList.Items, nil
}

// Title returns the app's title, or DefaultAppTitle when it has none.
func (a *App) Title(ctx context.Context) (string, error) {
	props, err := a.Doc.GetAppProperties(ctx)
	if err != nil {
		return "", err
	}
	if props.Title == "" {
		return DefaultAppTitle, nil
	}
	return props.Title, nil
}

// Connections lists the app's data connections.
func (a *App) Connections(ctx context.Context) ([]workspace.Connection, error) {
	return a.Doc.GetConnections(ctx)
}

// FolderItems lists path inside connection connID.
func (a *App) FolderItems(ctx context.Context, connID, path string) ([]workspace.FolderItem, error) {
	items, err := a.Doc.GetFolderItemsForConnection(ctx, connID, path)
	if err != nil {
		return nil, err
	}
	out := make([]workspace.FolderItem, len(items))
	for i, it := range items {
		out[i] = workspace.FolderItem{Name: it.Name, Kind: workspace.ItemKind(it.Type)}
	}
	return out, nil
}

// GuessFileType returns the format of the file at path.
func (a *App) GuessFileType(ctx context.Context, connID, path string) (workspace.DataFormat, error) {
	return a.Doc.GuessFileType(ctx, connID, path)
}

// FileTables lists the tables of the file at path.
func (a *App) FileTables(ctx context.Context, connID, path string, f workspace.DataFormat) ([]string, error) {
	return a.Doc.GetFileTables(ctx, connID, path, f)
}

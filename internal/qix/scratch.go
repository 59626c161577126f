// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package qix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dacolabs/curate/internal/workspace"
)

// rowBudget bounds the cells fetched per hypercube page.
const rowBudget = 10000

// ScratchOpener opens session apps on their own engine session. Each session
// uses a fresh identity so it never shares state with the main app.
type ScratchOpener struct {
	// URL is the engine endpoint; "/identity/<uuid>" is appended.
	URL  string
	Dial DialOptions
}

var _ workspace.Opener = (*ScratchOpener)(nil)

// Open dials a new engine session. The session app itself is created by the
// first successful Ready call.
func (o *ScratchOpener) Open(ctx context.Context) (workspace.Session, error) {
	url := strings.TrimRight(o.URL, "/") + "/identity/" + uuid.NewString()
	conn, err := Dial(ctx, url, o.Dial)
	if err != nil {
		return nil, err
	}
	return &scratch{conn: conn}, nil
}

type scratch struct {
	conn *Conn
	doc  *Doc
}

func (s *scratch) Ready(ctx context.Context) (bool, error) {
	if s.doc != nil {
		return true, nil
	}
	doc, err := s.conn.Global().CreateSessionApp(ctx)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return false, nil
		}
		return false, err
	}
	s.doc = doc
	return true, nil
}

func (s *scratch) CreateConnection(ctx context.Context, c workspace.Connection) (string, error) {
	return s.doc.CreateConnection(ctx, c)
}

func (s *scratch) Connection(ctx context.Context, id string) (workspace.Connection, error) {
	return s.doc.GetConnection(ctx, id)
}

func (s *scratch) SetScript(ctx context.Context, script string) error {
	return s.doc.SetScript(ctx, script)
}

func (s *scratch) Reload(ctx context.Context) error {
	ok, err := s.doc.DoReload(ctx, 0, false, false)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("load script failed")
	}
	return nil
}

// Table reads the first loaded table through a hypercube with one dimension
// per field.
func (s *scratch) Table(ctx context.Context) (workspace.Table, error) {
	tables, err := s.doc.GetTablesAndKeys(ctx)
	if err != nil {
		return workspace.Table{}, fmt.Errorf("tables and keys: %w", err)
	}
	if len(tables) == 0 || len(tables[0].Fields) == 0 {
		return workspace.Table{}, errors.New("no table was loaded")
	}

	headers := make([]string, len(tables[0].Fields))
	dims := make([]map[string]any, len(headers))
	for i, f := range tables[0].Fields {
		headers[i] = f.Name
		dims[i] = map[string]any{
			"qDef": map[string]any{"qFieldDefs": []string{fieldRef(f.Name)}},
		}
	}

	id := "tempTable-" + uuid.NewString()
	obj, err := s.doc.CreateSessionObject(ctx, map[string]any{
		"qInfo": map[string]any{"qId": id, "qType": "table"},
		"qHyperCubeDef": map[string]any{
			"qDimensions":       dims,
			"qSuppressMissing":  false,
			"qInitialDataFetch": []Page{},
		},
	})
	if err != nil {
		return workspace.Table{}, fmt.Errorf("create table object: %w", err)
	}
	defer s.doc.DestroySessionObject(context.WithoutCancel(ctx), id) //nolint:errcheck

	raw, err := obj.GetLayout(ctx)
	if err != nil {
		return workspace.Table{}, fmt.Errorf("table layout: %w", err)
	}
	var layout struct {
		HyperCube struct {
			Size struct {
				Rows int `json:"qcy"`
			} `json:"qSize"`
		} `json:"qHyperCube"`
	}
	if err := json.Unmarshal(raw, &layout); err != nil {
		return workspace.Table{}, fmt.Errorf("decode table layout: %w", err)
	}

	height := max(rowBudget/len(headers), 1)
	total := layout.HyperCube.Size.Rows
	rows := make([][]string, 0, total)
	for top := 0; top < total; top += height {
		page := Page{Top: top, Width: len(headers), Height: min(height, total-top)}
		matrix, err := obj.GetHyperCubeData(ctx, "/qHyperCubeDef", page)
		if err != nil {
			return workspace.Table{}, fmt.Errorf("table data: %w", err)
		}
		if len(matrix) == 0 {
			break
		}
		for _, cells := range matrix {
			row := make([]string, len(cells))
			for i, c := range cells {
				if c.Text != nil {
					row[i] = *c.Text
				}
			}
			rows = append(rows, row)
		}
	}
	return workspace.Table{Headers: headers, Rows: rows}, nil
}

func (s *scratch) Close() error {
	return s.conn.Close()
}

// fieldRef quotes a field name for use in an expression.
func fieldRef(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

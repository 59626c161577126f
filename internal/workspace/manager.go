// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/dacolabs/curate/internal/proppath"
)

// Readiness polling defaults.
const (
	DefaultAttempts = 40
	DefaultInterval = 250 * time.Millisecond
)

// Logger is the minimal logging interface used by Manager.
type Logger interface {
	Printf(format string, v ...any)
}

// Manager owns at most one scratch session at a time.
type Manager struct {
	Opener  Opener
	Browser Browser
	Logger  Logger

	// Attempts and Interval bound the wait for a new session to become ready.
	Attempts int
	Interval time.Duration

	mu      sync.Mutex
	current Session
}

// ImportRequest names a file reachable through a data connection.
type ImportRequest struct {
	// Connection is the connection's name or id.
	Connection string
	// Path is the file path inside the connection, one element per level.
	Path []string
	// Table is the sheet to read from an Excel workbook.
	Table string
}

// Import loads the requested file into the scratch session and returns its
// rows as records keyed by column header. The session is released whatever
// the result.
func (m *Manager) Import(ctx context.Context, req ImportRequest) ([]*proppath.Record, error) {
	logf := m.logger()

	conn, err := m.resolveConnection(ctx, req.Connection)
	if err != nil {
		return nil, err
	}
	filePath := strings.Join(req.Path, "/")

	format, err := m.Browser.GuessFileType(ctx, conn.ID, filePath)
	if err != nil {
		return nil, fmt.Errorf("guess file type of %s: %w", filePath, err)
	}
	if !format.Supported() {
		return nil, fmt.Errorf("%w: %s is %s", ErrUnsupportedFileType, filePath, format.Type)
	}
	if format.IsExcel() && req.Table == "" {
		return nil, ErrTableRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := m.release(); err != nil {
			logf("stage=release error=%v", err)
		}
	}()

	connID, err := sess.CreateConnection(ctx, Connection{
		Name:             conn.Name,
		ConnectionString: conn.ConnectionString,
		Type:             conn.Type,
	})
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	scratchConn, err := sess.Connection(ctx, connID)
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}

	script, err := Script(scratchConn.Name, req.Path, req.Table, format)
	if err != nil {
		return nil, err
	}
	logf("stage=load file=%s format=%s", filePath, format.Type)
	if err := sess.SetScript(ctx, script); err != nil {
		return nil, fmt.Errorf("set script: %w", err)
	}
	if err := sess.Reload(ctx); err != nil {
		return nil, fmt.Errorf("reload: %w", err)
	}

	table, err := sess.Table(ctx)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	return Records(table), nil
}

// Records converts a loaded table into records. Cells reading "-" are the
// engine's rendering of a missing value and become empty.
func Records(t Table) []*proppath.Record {
	out := make([]*proppath.Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := proppath.NewRecord()
		for i, h := range t.Headers {
			cell := ""
			if i < len(row) && row[i] != "-" {
				cell = row[i]
			}
			rec.Set(h, cell)
		}
		out = append(out, rec)
	}
	return out
}

// Browse lists the entries at a location. With no connection it lists the
// connections; with a connection it lists folders and files under path; when
// path ends at an Excel workbook it lists the workbook's tables. A path ending
// at any other loadable file returns that file alone.
func (m *Manager) Browse(ctx context.Context, connection string, p []string) ([]FolderItem, error) {
	if connection == "" {
		conns, err := m.Browser.Connections(ctx)
		if err != nil {
			return nil, fmt.Errorf("list connections: %w", err)
		}
		items := make([]FolderItem, len(conns))
		for i, c := range conns {
			items[i] = FolderItem{Name: c.Name, Kind: KindConnection}
		}
		return items, nil
	}

	conn, err := m.resolveConnection(ctx, connection)
	if err != nil {
		return nil, err
	}
	if len(p) == 0 {
		return m.Browser.FolderItems(ctx, conn.ID, "")
	}

	full := strings.Join(p, "/")
	parent, err := m.Browser.FolderItems(ctx, conn.ID, path.Dir("/" + full)[1:])
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", full, err)
	}
	kind := KindFolder
	for _, it := range parent {
		if it.Name == p[len(p)-1] {
			kind = it.Kind
			break
		}
	}
	if kind != KindFile {
		return m.Browser.FolderItems(ctx, conn.ID, full)
	}

	format, err := m.Browser.GuessFileType(ctx, conn.ID, full)
	if err != nil {
		return nil, fmt.Errorf("guess file type of %s: %w", full, err)
	}
	switch {
	case format.IsExcel():
		tables, err := m.Browser.FileTables(ctx, conn.ID, full, DataFormat{Type: format.Type})
		if err != nil {
			return nil, fmt.Errorf("list tables of %s: %w", full, err)
		}
		items := make([]FolderItem, len(tables))
		for i, t := range tables {
			items[i] = FolderItem{Name: t, Kind: KindTable}
		}
		return items, nil
	case format.Supported():
		return []FolderItem{{Name: p[len(p)-1], Kind: KindFile}}, nil
	}
	return nil, fmt.Errorf("%w: %s is %s", ErrUnsupportedFileType, full, format.Type)
}

func (m *Manager) resolveConnection(ctx context.Context, nameOrID string) (Connection, error) {
	conns, err := m.Browser.Connections(ctx)
	if err != nil {
		return Connection{}, fmt.Errorf("list connections: %w", err)
	}
	for _, c := range conns {
		if c.ID == nameOrID {
			return c, nil
		}
	}
	for _, c := range conns {
		if strings.EqualFold(c.Name, nameOrID) {
			return c, nil
		}
	}
	return Connection{}, fmt.Errorf("connection %q not found", nameOrID)
}

// Acquire returns the scratch session, opening one if needed.
func (m *Manager) Acquire(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquire(ctx)
}

// Release closes the scratch session, if any.
func (m *Manager) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.release()
}

func (m *Manager) acquire(ctx context.Context) (Session, error) {
	if m.current != nil {
		return m.current, nil
	}

	sess, err := m.Opener.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open scratch session: %w", err)
	}

	attempts := m.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for i := 0; i < attempts; i++ {
		ready, err := sess.Ready(ctx)
		if err == nil && ready {
			m.current = sess
			return sess, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			_ = sess.Close()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	_ = sess.Close()
	if lastErr != nil {
		return nil, errors.Join(ErrSessionTimeout, lastErr)
	}
	return nil, ErrSessionTimeout
}

func (m *Manager) release() error {
	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.current = nil
	return err
}

func (m *Manager) logger() func(format string, v ...any) {
	if m.Logger == nil {
		return log.New(io.Discard, "", 0).Printf
	}
	return m.Logger.Printf
}

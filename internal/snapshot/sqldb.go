// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Dialect holds what differs between database/sql backends.
type Dialect struct {
	// CreateTable returns the statement creating table if it does not exist.
	CreateTable func(table string) string

	// Placeholder returns the bind parameter for the 1-based argument n.
	Placeholder func(n int) string

	// Time converts a timestamp into the value bound for taken_at.
	Time func(t time.Time) any
}

// DB stores snapshots through database/sql.
type DB struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// NewDB wraps an open database. The table is created on first Save.
func NewDB(db *sql.DB, d Dialect, table string) *DB {
	if table == "" {
		table = DefaultTable
	}
	return &DB{db: db, dialect: d, table: table}
}

// InsertSQL returns the parameterized insert for one row.
func (s *DB) InsertSQL() string {
	ph := make([]string, len(Columns))
	for i := range Columns {
		ph[i] = s.dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(Columns, ", "), strings.Join(ph, ", "))
}

// Save writes all rows of snap in one transaction.
func (s *DB) Save(ctx context.Context, snap Snapshot) (int, error) {
	rows, err := Rows(snap)
	if err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.CreateTable(s.table)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", s.table, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, s.InsertSQL())
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, s.dialect.Time(r.TakenAt), r.App, r.Type, r.ID, r.Body); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Close closes the database.
func (s *DB) Close() error {
	return s.db.Close()
}

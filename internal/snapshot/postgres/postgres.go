// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package postgres registers the "postgres" snapshot backend.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dacolabs/curate/internal/snapshot"
)

func init() {
	snapshot.Register("postgres", New)
}

// Store writes snapshots with COPY.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

// New connects a pool to cfg.DSN.
func New(ctx context.Context, cfg snapshot.Config) (snapshot.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, table: cfg.TableName()}, nil
}

// CreateTableSQL returns the statement creating table if it does not exist.
func CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	taken_at TIMESTAMPTZ NOT NULL,
	app TEXT NOT NULL,
	def_type TEXT NOT NULL,
	def_id TEXT NOT NULL,
	body JSONB NOT NULL
)`, pgx.Identifier{table}.Sanitize())
}

// copyRows adapts snapshot rows to pgx.CopyFromSource values.
func copyRows(rows []snapshot.Row) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.TakenAt, r.App, r.Type, r.ID, json.RawMessage(r.Body)}
	}
	return out
}

// Save writes every record of snap in one COPY.
func (s *Store) Save(ctx context.Context, snap snapshot.Snapshot) (int, error) {
	rows, err := snapshot.Rows(snap)
	if err != nil {
		return 0, err
	}
	if _, err := s.pool.Exec(ctx, CreateTableSQL(s.table)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", s.table, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.table}, snapshot.Columns, pgx.CopyFromRows(copyRows(rows)))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", s.table, err)
	}
	return int(n), nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package sqlite registers the "sqlite" snapshot backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // driver

	"github.com/dacolabs/curate/internal/snapshot"
)

func init() {
	snapshot.Register("sqlite", New)
}

// Dialect stores timestamps as RFC 3339 text, SQLite having no time type.
var Dialect = snapshot.Dialect{
	CreateTable: func(table string) string {
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	taken_at TEXT NOT NULL,
	app TEXT NOT NULL,
	def_type TEXT NOT NULL,
	def_id TEXT NOT NULL,
	body TEXT NOT NULL
)`, table)
	},
	Placeholder: func(int) string { return "?" },
	Time:        func(t time.Time) any { return t.Format(time.RFC3339Nano) },
}

// New opens the SQLite database at cfg.DSN.
func New(ctx context.Context, cfg snapshot.Config) (snapshot.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return snapshot.NewDB(db, Dialect, cfg.TableName()), nil
}

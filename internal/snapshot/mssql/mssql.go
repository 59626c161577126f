// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package mssql registers the "mssql" snapshot backend for SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver

	"github.com/dacolabs/curate/internal/snapshot"
)

func init() {
	snapshot.Register("mssql", New)
}

// Dialect targets SQL Server.
var Dialect = snapshot.Dialect{
	CreateTable: func(table string) string {
		return fmt.Sprintf(`IF OBJECT_ID(N'%[1]s', N'U') IS NULL
CREATE TABLE %[1]s (
	id BIGINT IDENTITY(1,1) PRIMARY KEY,
	taken_at DATETIMEOFFSET NOT NULL,
	app NVARCHAR(400) NOT NULL,
	def_type NVARCHAR(100) NOT NULL,
	def_id NVARCHAR(200) NOT NULL,
	body NVARCHAR(MAX) NOT NULL
)`, table)
	},
	Placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
	Time:        func(t time.Time) any { return t },
}

// New opens the SQL Server database at cfg.DSN.
func New(ctx context.Context, cfg snapshot.Config) (snapshot.Store, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return snapshot.NewDB(db, Dialect, cfg.TableName()), nil
}

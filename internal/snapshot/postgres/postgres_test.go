// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dacolabs/curate/internal/snapshot"
)

func TestCreateTableSQL(t *testing.T) {
	sql := CreateTableSQL("definition_snapshots")
	assert.Contains(t, sql, `CREATE TABLE IF NOT EXISTS "definition_snapshots"`)
	assert.Contains(t, sql, "body JSONB NOT NULL")
}

func TestCopyRows(t *testing.T) {
	taken := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := copyRows([]snapshot.Row{{TakenAt: taken, App: "Sales", Type: "measure", ID: "m1", Body: `{"a":1}`}})

	require.Len(t, rows, 1)
	require.Len(t, rows[0], len(snapshot.Columns))
	assert.Equal(t, taken, rows[0][0])
	assert.Equal(t, "m1", rows[0][3])
	assert.Equal(t, json.RawMessage(`{"a":1}`), rows[0][4])
}

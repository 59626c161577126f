// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package snapshot backs up definitions into a SQL table before they are
// changed. Backends register themselves by kind from their own packages:
//
//	import _ "github.com/dacolabs/curate/internal/snapshot/sqlite"
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/proppath"
)

// DefaultTable is the table snapshots are written to.
const DefaultTable = "definition_snapshots"

// Columns of the snapshot table, in insert order.
var Columns = []string{"taken_at", "app", "def_type", "def_id", "body"}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config selects and configures a backend.
type Config struct {
	Kind  string `yaml:"kind"`
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table,omitempty"`
}

// TableName returns the configured table or DefaultTable.
func (c Config) TableName() string {
	if c.Table == "" {
		return DefaultTable
	}
	return c.Table
}

// Snapshot is the state of every definition of one type at one time.
type Snapshot struct {
	App     string
	Type    definition.Type
	TakenAt time.Time
	Records []*proppath.Record
}

// Row is one stored definition.
type Row struct {
	TakenAt time.Time
	App     string
	Type    string
	ID      string
	// Body is the definition as an ordered JSON object.
	Body string
}

// Rows converts a snapshot into table rows.
func Rows(s Snapshot) ([]Row, error) {
	taken := s.TakenAt
	if taken.IsZero() {
		taken = time.Now()
	}
	taken = taken.UTC()

	rows := make([]Row, 0, len(s.Records))
	for i, rec := range s.Records {
		body, err := rec.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows = append(rows, Row{
			TakenAt: taken,
			App:     s.App,
			Type:    string(s.Type),
			ID:      rec.Text("qInfo/qId"),
			Body:    string(body),
		})
	}
	return rows, nil
}

// Store persists snapshots.
type Store interface {
	// Save writes every record of s and returns the number of rows written.
	Save(ctx context.Context, s Snapshot) (int, error)
	Close() error
}

// Factory opens a backend.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. It panics when kind is
// empty, f is nil or kind is already registered.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("snapshot: Register called with empty kind")
	}
	if f == nil {
		panic("snapshot: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("snapshot: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Kinds lists the registered backends.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// New opens the backend named by cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, errors.New("snapshot: missing kind")
	}
	if !identRe.MatchString(cfg.TableName()) {
		return nil, fmt.Errorf("snapshot: invalid table name %q", cfg.TableName())
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("snapshot: unsupported kind %q (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package catalog reads every definition of a type from the remote
// application and flattens it for display or export.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/dacolabs/curate/internal/columns"
	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/proppath"
)

// ErrNoDefinitions is returned when the application holds no definition of
// the requested type.
var ErrNoDefinitions = errors.New("no definitions found")

// Info identifies an entity in the application.
type Info struct {
	ID   string `json:"qId"`
	Type string `json:"qType"`
}

// Source is the remote application.
type Source interface {
	// ListInfos lists every entity in the application.
	ListInfos(ctx context.Context) ([]Info, error)

	// Properties returns the raw JSON properties of a measure, dimension or
	// visualization object.
	Properties(ctx context.Context, t definition.Type, id string) (json.RawMessage, error)

	// Variables returns the raw JSON of every variable.
	Variables(ctx context.Context) ([]json.RawMessage, error)
}

// Logger is the minimal logging interface used by Catalog.
type Logger interface {
	Printf(format string, v ...any)
}

// Catalog fetches definitions from a Source.
type Catalog struct {
	Source      Source
	Logger      Logger
	Concurrency int
}

// Fetch returns the flattened definitions of type t in the application's
// order. Entities whose properties cannot be read are skipped and logged.
func (c *Catalog) Fetch(ctx context.Context, t definition.Type) ([]*proppath.Record, error) {
	if t == definition.Variable {
		return c.variables(ctx)
	}
	if !t.IsVisualization() && t != definition.Measure && t != definition.Dimension {
		return nil, fmt.Errorf("unsupported definition type %q", t)
	}

	infos, err := c.Source.ListInfos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list infos: %w", err)
	}

	var ids []string
	for _, info := range infos {
		if info.Type != "" && t.Matches(info.Type) {
			ids = append(ids, info.ID)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDefinitions, t)
	}

	logf := c.logger()
	results := make([]*proppath.Record, len(ids))

	limit := c.Concurrency
	if limit <= 0 {
		limit = 8
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			raw, err := c.Source.Properties(gctx, t, id)
			if err != nil {
				logf("type=%s id=%s properties failed: %v", t, id, err)
				return nil
			}
			rec, err := flatten(raw)
			if err != nil {
				logf("type=%s id=%s unreadable properties: %v", t, id, err)
				return nil
			}
			results[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := results[:0]
	for _, rec := range results {
		if rec != nil {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDefinitions, t)
	}
	return out, nil
}

func (c *Catalog) variables(ctx context.Context) ([]*proppath.Record, error) {
	raws, err := c.Source.Variables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list variables: %w", err)
	}

	logf := c.logger()
	out := make([]*proppath.Record, 0, len(raws))
	for i, raw := range raws {
		rec, err := flatten(raw)
		if err != nil {
			logf("type=variable item=%d unreadable: %v", i, err)
			continue
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDefinitions, definition.Variable)
	}
	return out, nil
}

func flatten(raw json.RawMessage) (*proppath.Record, error) {
	rec, err := proppath.FlattenJSON(raw)
	if err != nil {
		return nil, err
	}
	return columns.Canonical(rec), nil
}

func (c *Catalog) logger() func(format string, v ...any) {
	if c.Logger == nil {
		return log.New(io.Discard, "", 0).Printf
	}
	return c.Logger.Printf
}

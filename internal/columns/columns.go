// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package columns decides the column layout used to show and export a batch
// of flat definition records.
package columns

import (
	"slices"
	"strings"

	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/proppath"
	"github.com/dacolabs/curate/internal/rules"
)

// Headers returns the union of the records' keys in a stable order. Keys are
// alias-resolved for adding; records are rewritten in place so their keys
// match the headers, and invalid keys (including the presentation color) are
// removed from them. Read Colors first if the row colors are needed.
//
// The first record seeds the order. A key first seen in a later record is
// inserted right after the last known key that preceded it in that record,
// e.g. [{a,b},{a,c,b}] yields [a c b].
func Headers(records []*proppath.Record, t definition.Type, rs *rules.Resolver) []string {
	if len(records) == 0 {
		return nil
	}

	var headers []string
	for _, key := range records[0].Keys() {
		name, ok := rs.Resolve(key, t, definition.Add)
		if ok && !slices.Contains(headers, name) {
			headers = append(headers, name)
		}
	}

	for _, rec := range records {
		anchor := 0
		for _, key := range rec.Keys() {
			name := rs.Alias(key, t, definition.Add)
			if name != key {
				rec.Rename(key, name)
			}
			if !rs.Valid(name, t, definition.Add) {
				rec.Delete(name)
				continue
			}
			if i := slices.Index(headers, name); i >= 0 {
				anchor = i + 1
				continue
			}
			headers = slices.Insert(headers, anchor, name)
			anchor++
		}
	}
	return headers
}

// Colors returns one background color per record: the record's own color when
// it carries one, otherwise alternating row colors.
func Colors(records []*proppath.Record) []string {
	colors := make([]string, len(records))
	for i, rec := range records {
		if c := rec.Text(definition.ColorKey); rec.Has(definition.ColorKey) && c != "" {
			colors[i] = c
			continue
		}
		if i%2 == 0 {
			colors[i] = definition.ColorRowEven
		} else {
			colors[i] = definition.ColorRowOdd
		}
	}
	return colors
}

// Table is a laid-out batch ready for display or export.
type Table struct {
	Headers []string           `json:"headers"`
	Rows    []*proppath.Record `json:"rows"`
	Colors  []string           `json:"colors"`
}

// Layout computes colors and headers for records, rewriting them in place.
func Layout(records []*proppath.Record, t definition.Type, rs *rules.Resolver) Table {
	colors := Colors(records)
	return Table{
		Headers: Headers(records, t, rs),
		Rows:    records,
		Colors:  colors,
	}
}

// Cells returns the record's values as text in header order. Missing keys
// are empty.
func Cells(rec *proppath.Record, headers []string) []string {
	row := make([]string, len(headers))
	for i, h := range headers {
		row[i] = rec.Text(h)
	}
	return row
}

// canonical buckets, in output order.
const (
	bucketInfo = iota
	bucketTop
	bucketMeta
	bucketColor
	bucketHyperCube
	bucketRest
	bucketCount
)

func bucketOf(key string) int {
	switch {
	case strings.HasPrefix(key, "qInfo"):
		return bucketInfo
	case !strings.Contains(key, proppath.Delimiter):
		return bucketTop
	case strings.HasPrefix(key, "qMeta"):
		return bucketMeta
	case strings.HasPrefix(key, "color"):
		return bucketColor
	case strings.HasPrefix(key, "qHyperCube"):
		return bucketHyperCube
	}
	return bucketRest
}

// Canonical reorders a flattened remote record so identity comes first,
// followed by top-level properties, metadata, colors, hypercube definition
// and everything else. Each group keeps the record's order. Engine-internal
// keys starting with "$" are dropped.
func Canonical(r *proppath.Record) *proppath.Record {
	var buckets [bucketCount][]string
	for _, key := range r.Keys() {
		if strings.HasPrefix(key, "$") {
			continue
		}
		b := bucketOf(key)
		buckets[b] = append(buckets[b], key)
	}

	out := proppath.NewRecord()
	for _, keys := range buckets {
		for _, key := range keys {
			v, _ := r.Get(key)
			if p, err := r.Path(key); err == nil {
				out.SetPath(p, v)
			} else {
				out.Set(key, v)
			}
		}
	}
	return out
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package proppath

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
)

// Record is a flat, ordered mapping from property path to value. Values are
// scalars (string, float64, bool, nil) or slices of scalars.
//
// A key may carry the structured Path it was produced from; keys added as
// plain strings are parsed on demand.
type Record struct {
	keys   []string
	values map[string]any
	paths  map[string]Path
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{
		values: make(map[string]any),
		paths:  make(map[string]Path),
	}
}

// Set stores v under key, appending the key if it is new.
func (r *Record) Set(key string, v any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// SetPath stores v under p and remembers the structured path for the key.
func (r *Record) SetPath(p Path, v any) {
	key := p.String()
	r.Set(key, v)
	r.paths[key] = slices.Clone(p)
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Delete removes key.
func (r *Record) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	delete(r.paths, key)
	r.keys = slices.DeleteFunc(r.keys, func(k string) bool { return k == key })
}

// Rename moves the value under from to to, keeping from's position. If to
// already exists its value is overwritten and the old position of to is
// dropped.
func (r *Record) Rename(from, to string) {
	if from == to {
		return
	}
	v, ok := r.values[from]
	if !ok {
		return
	}
	r.Delete(to)
	i := slices.Index(r.keys, from)
	r.keys[i] = to
	delete(r.values, from)
	delete(r.paths, from)
	r.values[to] = v
}

// Keys returns the keys in order.
func (r *Record) Keys() []string {
	return slices.Clone(r.keys)
}

// Len returns the number of keys.
func (r *Record) Len() int {
	return len(r.keys)
}

// All iterates over key/value pairs in order.
func (r *Record) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range r.keys {
			if !yield(k, r.values[k]) {
				return
			}
		}
	}
}

// Path returns the structured path of key.
func (r *Record) Path(key string) (Path, error) {
	if p, ok := r.paths[key]; ok {
		return p, nil
	}
	return Parse(key)
}

// Clone returns a copy of the record. Slice values are shared.
func (r *Record) Clone() *Record {
	out := &Record{
		keys:   slices.Clone(r.keys),
		values: make(map[string]any, len(r.values)),
		paths:  make(map[string]Path, len(r.paths)),
	}
	for k, v := range r.values {
		out.values[k] = v
	}
	for k, p := range r.paths {
		out.paths[k] = p
	}
	return out
}

// Text returns the value under key formatted for a table cell.
func (r *Record) Text(key string) string {
	return FormatValue(r.values[key])
}

// FormatValue renders a flat value as text. Slices are joined with ",".
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = FormatValue(e)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		if len(t) == 0 {
			return "{}"
		}
	}
	return fmt.Sprint(v)
}

// MarshalJSON encodes the record as a JSON object in key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat JSON object, keeping the key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("record: expected object, got %v", tok)
	}

	fresh := NewRecord()
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("record: unexpected key token %v", kt)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("record: key %q: %w", key, err)
		}
		fresh.Set(key, normalizeNumbers(v))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = *fresh
	return nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		for i := range t {
			t[i] = normalizeNumbers(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalizeNumbers(t[k])
		}
		return t
	}
	return v
}

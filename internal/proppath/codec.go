// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package proppath

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// maxIndex bounds array growth when unflattening user-supplied keys.
const maxIndex = 1 << 16

// Flatten descends every map and slice of v and returns a record keyed by the
// paths of its leaves. Map keys are visited in sorted order; use FlattenJSON to
// keep the order of a JSON document. Empty maps and slices are kept as leaves.
func Flatten(v map[string]any) *Record {
	r := NewRecord()
	flattenValue(r, nil, v)
	return r
}

func flattenValue(r *Record, prefix Path, v any) {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			if len(prefix) > 0 {
				r.SetPath(prefix, map[string]any{})
			}
			return
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenValue(r, prefix.Append(Field(k)), t[k])
		}
	case []any:
		if len(t) == 0 {
			r.SetPath(prefix, []any{})
			return
		}
		for i, e := range t {
			flattenValue(r, prefix.Append(Index(i)), e)
		}
	default:
		r.SetPath(prefix, v)
	}
}

// FlattenJSON flattens a JSON object, preserving the document's key order.
func FlattenJSON(raw []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}
	if tok != json.Delim('{') {
		return nil, fmt.Errorf("flatten: expected object, got %v", tok)
	}

	r := NewRecord()
	if err := flattenObject(dec, r, nil); err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}
	return r, nil
}

// flattenObject reads the members of an object whose '{' was consumed.
func flattenObject(dec *json.Decoder, r *Record, prefix Path) error {
	empty := true
	for dec.More() {
		empty = false
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", kt)
		}
		if err := flattenToken(dec, r, prefix.Append(Field(key))); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if empty && len(prefix) > 0 {
		r.SetPath(prefix, map[string]any{})
	}
	return nil
}

func flattenToken(dec *json.Decoder, r *Record, prefix Path) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return flattenObject(dec, r, prefix)
		case '[':
			i := 0
			for dec.More() {
				if err := flattenToken(dec, r, prefix.Append(Index(i))); err != nil {
					return err
				}
				i++
			}
			if _, err := dec.Token(); err != nil {
				return err
			}
			if i == 0 {
				r.SetPath(prefix, []any{})
			}
			return nil
		default:
			return fmt.Errorf("unexpected delimiter %q", t)
		}
	case json.Number:
		r.SetPath(prefix, normalizeNumbers(t))
	default:
		r.SetPath(prefix, t)
	}
	return nil
}

// Unflatten rebuilds the nested record described by r. Containers are chosen
// by segment kind: index segments create slices, named segments create maps.
// Shape disagreements fail with ErrPathConflict.
func Unflatten(r *Record) (map[string]any, error) {
	root := map[string]any{}
	for key, v := range r.All() {
		p, err := r.Path(key)
		if err != nil {
			return nil, err
		}
		if p[0].IsIndex() {
			return nil, fmt.Errorf("%w: %q indexes the root object", ErrPathConflict, key)
		}
		if _, err := insert(root, p, v, key); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func insert(container any, p Path, v any, key string) (any, error) {
	seg := p[0]

	if seg.IsIndex() {
		if seg.Index > maxIndex {
			return nil, fmt.Errorf("%q: index %d out of range", key, seg.Index)
		}
		var arr []any
		switch c := container.(type) {
		case nil:
		case []any:
			arr = c
		default:
			return nil, fmt.Errorf("%w: %q indexes a non-array value", ErrPathConflict, key)
		}
		for len(arr) <= seg.Index {
			arr = append(arr, nil)
		}
		if len(p) == 1 {
			if isContainer(arr[seg.Index]) {
				return nil, fmt.Errorf("%w: %q overwrites a nested value", ErrPathConflict, key)
			}
			arr[seg.Index] = v
			return arr, nil
		}
		child, err := insert(arr[seg.Index], p[1:], v, key)
		if err != nil {
			return nil, err
		}
		arr[seg.Index] = child
		return arr, nil
	}

	var obj map[string]any
	switch c := container.(type) {
	case nil:
		obj = map[string]any{}
	case map[string]any:
		obj = c
	default:
		return nil, fmt.Errorf("%w: %q names a field of a non-object value", ErrPathConflict, key)
	}
	if len(p) == 1 {
		if isContainer(obj[seg.Name]) {
			return nil, fmt.Errorf("%w: %q overwrites a nested value", ErrPathConflict, key)
		}
		obj[seg.Name] = v
		return obj, nil
	}
	child, err := insert(obj[seg.Name], p[1:], v, key)
	if err != nil {
		return nil, err
	}
	obj[seg.Name] = child
	return obj, nil
}

func isContainer(v any) bool {
	switch t := v.(type) {
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	}
	return false
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package reconcile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dacolabs/curate/internal/coerce"
	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/proppath"
	"github.com/dacolabs/curate/internal/rules"
)

// arrayKey matches keys whose last segment is an array index.
var arrayKey = regexp.MustCompile(`^(.*)/([0-9]+)$`)

// identityKeys are checked in order for the id of an edited record.
var identityKeys = []string{"qInfo/qId", "qId", "Id", "ID"}

// Identity returns the remote id carried by rec, or "" when it has none.
func Identity(rec *proppath.Record, rs *rules.Resolver) string {
	for _, k := range identityKeys {
		if id := strings.TrimSpace(rec.Text(k)); id != "" {
			return id
		}
	}
	for k := range rec.All() {
		if rs.Alias(k, "", definition.Add) == "qInfo/qId" {
			if id := strings.TrimSpace(rec.Text(k)); id != "" {
				return id
			}
		}
	}
	return ""
}

// Normalize prepares an edited record for op: keys are alias-resolved, invalid
// keys and empty values are dropped, trailing-index keys such as "tags/0" and
// "tags/1" are gathered into a single "tags" array, and values are coerced.
func Normalize(rec *proppath.Record, t definition.Type, op definition.Operation, rs *rules.Resolver) *proppath.Record {
	out := proppath.NewRecord()
	for key, v := range rec.All() {
		name, ok := rs.Resolve(key, t, op)
		if !ok || isEmpty(v) {
			continue
		}

		m := arrayKey.FindStringSubmatch(name)
		if m == nil || m[1] == "" {
			out.Set(name, v)
			continue
		}
		i, err := strconv.Atoi(m[2])
		if err != nil || i > 1<<16 {
			out.Set(name, v)
			continue
		}
		arr, _ := out.Get(m[1])
		list, _ := arr.([]any)
		list = slices.Clone(list)
		for len(list) <= i {
			list = append(list, nil)
		}
		list[i] = v
		out.Set(m[1], list)
	}

	for key, v := range out.All() {
		if list, ok := v.([]any); ok {
			list = slices.Clone(list)
			out.Set(key, list)
			for i, e := range list {
				if e != nil {
					list[i] = coerce.Value(key, e, op)
				}
			}
			continue
		}
		out.Set(key, coerce.Value(key, v, op))
	}
	return out
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	return false
}

// Patches turns a record normalized for replacement into engine patches.
// Measures and dimensions take nested keys as a single-field object at the
// parent path; every other key replaces the value at its own path.
func Patches(flat *proppath.Record, t definition.Type) []Patch {
	patches := make([]Patch, 0, flat.Len())
	for key, v := range flat.All() {
		lit := literal(v)
		if (t == definition.Measure || t == definition.Dimension) && strings.Contains(key, proppath.Delimiter) {
			i := strings.LastIndex(key, proppath.Delimiter)
			leaf, _ := json.Marshal(key[i+1:])
			patches = append(patches, Patch{
				Op:    string(definition.Replace),
				Path:  "/" + key[:i],
				Value: "{" + string(leaf) + ":" + lit + "}",
			})
			continue
		}
		patches = append(patches, Patch{
			Op:    string(definition.Replace),
			Path:  "/" + key,
			Value: lit,
		})
	}
	return patches
}

// literal renders a coerced value as JSON. Strings were already escaped by
// coercion, so they are only wrapped in quotes.
func literal(v any) string {
	switch t := v.(type) {
	case string:
		return `"` + t + `"`
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = literal(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case nil:
		return "null"
	case bool, float64:
		return proppath.FormatValue(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "null"
		}
		return string(b)
	}
}

// Properties turns a record normalized for adding into the nested properties
// of a new entity. qInfo/qType defaults to t and qInfo/qId to a fresh id.
func Properties(flat *proppath.Record, t definition.Type) (map[string]any, error) {
	props, err := proppath.Unflatten(flat)
	if err != nil {
		return nil, err
	}

	info, ok := props["qInfo"].(map[string]any)
	if !ok {
		if _, exists := props["qInfo"]; exists {
			return nil, fmt.Errorf("%w: qInfo is not an object", proppath.ErrPathConflict)
		}
		info = map[string]any{}
		props["qInfo"] = info
	}
	if s, _ := info["qType"].(string); s == "" {
		info["qType"] = string(t)
	}
	if s, _ := info["qId"].(string); s == "" {
		info["qId"] = uuid.NewString()
	}
	return props, nil
}

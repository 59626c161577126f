// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package coerce turns cell text from imported files into typed property
// values.
package coerce

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/dacolabs/curate/internal/definition"
)

// expressionSuffixes name properties that hold engine expressions. Their values
// stay strings even when they look numeric, e.g. a measure defined as "1".
var expressionSuffixes = []string{"qDef", "qLabelExpression", "qDefinition", "/qv"}

var addNewlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Value returns the typed value for raw under key. Booleans and finite numbers
// are recognized in text; expression properties keep their text. Text bound
// for a replace patch is escaped for embedding in a JSON string literal.
func Value(key string, raw any, op definition.Operation) any {
	switch v := raw.(type) {
	case nil:
		return ""
	case bool, float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	case string:
		return text(key, v, op)
	default:
		return raw
	}
}

func text(key, s string, op definition.Operation) any {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}

	if isExpression(key) {
		return escape(s, op)
	}
	if f, ok := number(s); ok {
		return f
	}
	return escape(s, op)
}

func escape(s string, op definition.Operation) string {
	s = addNewlines.Replace(s)
	if op != definition.Replace {
		return s
	}
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	quoted := strings.TrimSuffix(b.String(), "\n")
	return quoted[1 : len(quoted)-1]
}

func isExpression(key string) bool {
	for _, suffix := range expressionSuffixes {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}

func number(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package rules maps operator-friendly column names onto engine property
// paths and decides which property paths may be written.
package rules

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/dacolabs/curate/internal/definition"
)

// AliasRule renames a property key. Empty Type and Operation match any.
type AliasRule struct {
	Original        string               `yaml:"original"`
	Canonical       string               `yaml:"canonical"`
	CaseInsensitive bool                 `yaml:"case_insensitive,omitempty"`
	Type            definition.Type      `yaml:"type,omitempty"`
	Operation       definition.Operation `yaml:"operation,omitempty"`
}

func (a AliasRule) matches(key string) bool {
	if a.Original == key {
		return true
	}
	return a.CaseInsensitive && strings.EqualFold(a.Original, key)
}

// ValidityRule marks property keys that must never be written. Pattern is a
// literal key unless IsPattern is set, in which case it is a regular
// expression matched anywhere in the key.
type ValidityRule struct {
	Pattern   string               `yaml:"pattern"`
	IsPattern bool                 `yaml:"regex,omitempty"`
	Type      definition.Type      `yaml:"type,omitempty"`
	Operation definition.Operation `yaml:"operation,omitempty"`

	re *regexp.Regexp
}

func (v ValidityRule) matches(key string) bool {
	if v.Pattern == key {
		return true
	}
	return v.re != nil && v.re.MatchString(key)
}

// DefaultAliases returns the built-in alias table. Its originals match exactly.
func DefaultAliases() []AliasRule {
	return []AliasRule{
		{Original: "qid", Canonical: "qInfo/qId"},
		{Original: "id", Canonical: "qInfo/qId"},
		{Original: "name", Canonical: "qName", Type: definition.Variable},
		{Original: "title", Canonical: "qName", Type: definition.Variable},
		{Original: "qDescription", Canonical: "qComment", Type: definition.Variable},
		{Original: "description", Canonical: "qComment", Type: definition.Variable},
		{Original: "name", Canonical: "qMeasure/title", Type: definition.Measure},
		{Original: "title", Canonical: "qMeasure/title", Type: definition.Measure},
		{Original: "name", Canonical: "qDim/title", Type: definition.Dimension},
		{Original: "title", Canonical: "qDim/title", Type: definition.Dimension},
		{Original: "description", Canonical: "qMetaDef/description", Operation: definition.Replace},
	}
}

// DefaultValidity returns the built-in table of unwritable keys.
func DefaultValidity() []ValidityRule {
	return []ValidityRule{
		{Pattern: ""},
		{Pattern: `^\$`, IsPattern: true},
		{Pattern: `^_`, IsPattern: true},
		{Pattern: `qMeta/`, IsPattern: true, Type: definition.Variable},
		{Pattern: `qIsScriptCreated`, IsPattern: true, Type: definition.Variable},
		{Pattern: "qInfo/qId", Operation: definition.Replace},
		{Pattern: "qInfo/qType", Operation: definition.Replace},
	}
}

// Resolver applies alias and validity tables. It is safe for concurrent use.
type Resolver struct {
	aliases  []AliasRule
	validity []ValidityRule
}

// New returns a Resolver over the given tables, compiling pattern rules.
func New(aliases []AliasRule, validity []ValidityRule) (*Resolver, error) {
	compiled := make([]ValidityRule, len(validity))
	for i, v := range validity {
		if v.IsPattern {
			re, err := regexp.Compile(v.Pattern)
			if err != nil {
				return nil, fmt.Errorf("validity rule %d: %w", i, err)
			}
			v.re = re
		}
		compiled[i] = v
	}
	return &Resolver{
		aliases:  append([]AliasRule(nil), aliases...),
		validity: compiled,
	}, nil
}

var defaultResolver = sync.OnceValue(func() *Resolver {
	r, err := New(DefaultAliases(), DefaultValidity())
	if err != nil {
		panic(err)
	}
	return r
})

// Default returns the shared Resolver over the built-in tables.
func Default() *Resolver {
	return defaultResolver()
}

// Alias returns the canonical name for key, or key itself when no rule
// applies. The first matching rule wins.
func (r *Resolver) Alias(key string, t definition.Type, op definition.Operation) string {
	for _, a := range r.aliases {
		if a.matches(key) && inScope(a.Type, a.Operation, t, op) {
			return a.Canonical
		}
	}
	return key
}

// Valid reports whether key may be written for type t under op.
func (r *Resolver) Valid(key string, t definition.Type, op definition.Operation) bool {
	for _, v := range r.validity {
		if v.matches(key) && inScope(v.Type, v.Operation, t, op) {
			return false
		}
	}
	return true
}

// Resolve aliases key and reports whether the result is valid.
func (r *Resolver) Resolve(key string, t definition.Type, op definition.Operation) (string, bool) {
	name := r.Alias(key, t, op)
	return name, r.Valid(name, t, op)
}

func inScope(ruleType definition.Type, ruleOp definition.Operation, t definition.Type, op definition.Operation) bool {
	if ruleOp != "" && ruleOp != op {
		return false
	}
	switch {
	case ruleType == "", ruleType == t:
		return true
	case ruleType == definition.Visualization:
		return t.IsVisualization()
	}
	return false
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a rule table.
//
//	replace_defaults: false
//	aliases:
//	  - original: expression
//	    canonical: qMeasure/qDef
//	    type: measure
//	invalid:
//	  - pattern: ^qHyperCubeDef/
//	    regex: true
//	    operation: replace
type File struct {
	ReplaceDefaults bool           `yaml:"replace_defaults,omitempty"`
	Aliases         []AliasRule    `yaml:"aliases,omitempty"`
	Invalid         []ValidityRule `yaml:"invalid,omitempty"`
}

// Load reads a rule file and returns a Resolver. Rules from the file take
// precedence over the built-in tables, which are dropped entirely when
// replace_defaults is set.
func Load(path string) (*Resolver, error) {
	f, err := os.Open(path) //nolint:gosec // path is provided by caller
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	var rf File
	if err := yaml.NewDecoder(f).Decode(&rf); err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return rf.Resolver()
}

// Resolver builds a Resolver from the file's tables.
func (rf File) Resolver() (*Resolver, error) {
	aliases := rf.Aliases
	validity := rf.Invalid
	if !rf.ReplaceDefaults {
		aliases = append(append([]AliasRule(nil), aliases...), DefaultAliases()...)
		validity = append(append([]ValidityRule(nil), validity...), DefaultValidity()...)
	}
	return New(aliases, validity)
}

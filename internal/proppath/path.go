// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package proppath converts between nested engine properties and flat records
// whose keys are property paths such as "qMeasure/qDef" or
// "qHyperCubeDef/qMeasures/0/qDef/qLabel".
package proppath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Delimiter separates path segments in a flat key.
const Delimiter = "/"

// ErrPathConflict is returned when two keys disagree about the shape of a
// shared parent, e.g. "a/0" and "a/b", or "a" and "a/b".
var ErrPathConflict = errors.New("conflicting property paths")

// Segment is one step of a Path: either a named field or an array index.
type Segment struct {
	Name  string
	Index int

	isIndex bool
}

// Field returns a named segment.
func Field(name string) Segment {
	return Segment{Name: name}
}

// Index returns an array index segment.
func Index(i int) Segment {
	return Segment{Index: i, isIndex: true}
}

// IsIndex reports whether the segment addresses an array element.
func (s Segment) IsIndex() bool {
	return s.isIndex
}

func (s Segment) String() string {
	if s.isIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Name
}

// Path is an ordered sequence of segments addressing a value in a nested
// record.
type Path []Segment

// Parse parses a delimiter-joined key. Segments made of digits (without a
// leading zero) are array indices, anything else is a field name.
func Parse(s string) (Path, error) {
	if s == "" {
		return nil, errors.New("empty path")
	}

	parts := strings.Split(s, Delimiter)
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("invalid path %q: empty segment", s)
		}
		if i, ok := parseIndex(part); ok {
			p = append(p, Index(i))
			continue
		}
		p = append(p, Field(part))
	}
	return p, nil
}

func parseIndex(s string) (int, bool) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return i, true
}

// String joins the segments with Delimiter.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, Delimiter)
}

// Append returns a new path with segs added. The receiver is not modified.
func (p Path) Append(segs ...Segment) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// Parent returns the path without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Last returns the final segment. It panics on an empty path.
func (p Path) Last() Segment {
	return p[len(p)-1]
}

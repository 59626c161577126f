// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package reconcile

import (
	"context"
	"errors"

	"github.com/dacolabs/curate/internal/definition"
)

// ErrNotFound is returned by Store.Lookup when no entity has the given id.
var ErrNotFound = errors.New("definition not found")

// Store is the remote application holding definitions.
type Store interface {
	// Lookup returns a handle to the entity of type t with id.
	Lookup(ctx context.Context, t definition.Type, id string) (Handle, error)

	// Create creates a new entity of type t from nested properties.
	Create(ctx context.Context, t definition.Type, props map[string]any) error
}

// Handle is an existing remote entity.
type Handle interface {
	ApplyPatches(ctx context.Context, patches []Patch) error
}

// Patch is a single property replacement. Value is a JSON literal.
type Patch struct {
	Op    string `json:"qOp"`
	Path  string `json:"qPath"`
	Value string `json:"qValue"`
}

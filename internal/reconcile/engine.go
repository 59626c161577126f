// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package reconcile applies a batch of edited flat records to the remote
// application, creating or patching one definition per record.
package reconcile

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/metrics"
	"github.com/dacolabs/curate/internal/proppath"
	"github.com/dacolabs/curate/internal/rules"
)

// Logger is the minimal logging interface used by the engine.
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// DefaultConcurrency bounds the records in flight when Engine.Concurrency is
// not set.
const DefaultConcurrency = 8

// Engine reconciles edited records against a Store.
type Engine struct {
	Store Store

	// Rules defaults to rules.Default().
	Rules *rules.Resolver

	Logger Logger

	// Concurrency bounds the records reconciled at once.
	Concurrency int

	// CallTimeout bounds each remote call. Zero means no bound beyond ctx.
	CallTimeout time.Duration
}

// Reconcile applies records as definitions of type t and returns one outcome
// per record, in input order. Individual failures never fail the batch; they
// are logged and reported as Invalid.
func (e *Engine) Reconcile(ctx context.Context, records []*proppath.Record, t definition.Type) []definition.Outcome {
	start := time.Now()
	logf := e.logger()

	outcomes := make([]definition.Outcome, len(records))
	if len(records) == 0 {
		return outcomes
	}

	limit := e.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, rec := range records {
		g.Go(func() error {
			outcomes[i] = e.reconcileOne(ctx, rec, t, i)
			metrics.RecordOutcome(string(t), outcomes[i].String())
			return nil
		})
	}
	_ = g.Wait()

	metrics.ObserveReconcile(string(t), time.Since(start))
	logf("stage=reconcile type=%s records=%d duration=%s", t, len(records), time.Since(start).Truncate(time.Millisecond))
	return outcomes
}

func (e *Engine) reconcileOne(ctx context.Context, rec *proppath.Record, t definition.Type, row int) definition.Outcome {
	logf := e.logger()
	rs := e.rules()

	if id := Identity(rec, rs); id != "" {
		cctx, cancel := e.callContext(ctx)
		h, err := e.Store.Lookup(cctx, t, id)
		cancel()
		if err == nil {
			return e.patch(ctx, h, rec, t, row)
		}
		if errors.Is(err, ErrNotFound) {
			logf("row=%d id=%s not found, creating", row, id)
		} else {
			logf("row=%d id=%s lookup failed, creating: %v", row, id, err)
		}
	}
	return e.create(ctx, rec, t, row)
}

// patch applies one patch per normalized field concurrently and waits for
// all of them. A single success is enough for the record to count as
// replaced.
func (e *Engine) patch(ctx context.Context, h Handle, rec *proppath.Record, t definition.Type, row int) definition.Outcome {
	logf := e.logger()

	patches := Patches(Normalize(rec, t, definition.Replace, e.rules()), t)
	if len(patches) == 0 {
		logf("row=%d no patchable fields", row)
		return definition.Invalid
	}

	var ok atomic.Int32
	var g errgroup.Group
	for _, p := range patches {
		g.Go(func() error {
			cctx, cancel := e.callContext(ctx)
			defer cancel()
			if err := h.ApplyPatches(cctx, []Patch{p}); err != nil {
				metrics.RecordPatch("error")
				logf("row=%d patch path=%s value=%s failed: %v", row, p.Path, p.Value, err)
				return nil
			}
			metrics.RecordPatch("ok")
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if ok.Load() > 0 {
		return definition.Replaced
	}
	return definition.Invalid
}

func (e *Engine) create(ctx context.Context, rec *proppath.Record, t definition.Type, row int) definition.Outcome {
	logf := e.logger()

	if !t.Creatable() {
		logf("row=%d type=%s cannot be created", row, t)
		return definition.Invalid
	}

	props, err := Properties(Normalize(rec, t, definition.Add, e.rules()), t)
	if err != nil {
		logf("row=%d invalid properties: %v", row, err)
		return definition.Invalid
	}

	cctx, cancel := e.callContext(ctx)
	defer cancel()
	if err := e.Store.Create(cctx, t, props); err != nil {
		logf("row=%d create failed: %v", row, err)
		return definition.Invalid
	}
	return definition.Added
}

func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.CallTimeout > 0 {
		return context.WithTimeout(ctx, e.CallTimeout)
	}
	return context.WithCancel(ctx)
}

func (e *Engine) rules() *rules.Resolver {
	if e.Rules == nil {
		return rules.Default()
	}
	return e.Rules
}

func (e *Engine) logger() func(format string, v ...any) {
	if e.Logger == nil {
		return log.New(io.Discard, "", 0).Printf
	}
	return e.Logger.Printf
}

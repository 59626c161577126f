// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package metrics is a small instrumentation facade. Code records through the
// package-level functions; the process installs a Backend once at startup.
// Without a backend every call is a no-op.
package metrics

import (
	"sync"
	"time"
)

// Metric names.
const (
	RecordsTotal      = "curate_records_total"
	PatchesTotal      = "curate_patches_total"
	ReconcileDuration = "curate_reconcile_duration_seconds"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives recorded metrics.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer.
type Flusher interface {
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. A nil b restores the no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records a sample.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the installed backend if it buffers.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// RecordOutcome counts one reconciled record.
func RecordOutcome(defType, outcome string) {
	IncCounter(RecordsTotal, 1, Labels{"type": defType, "outcome": outcome})
}

// RecordPatch counts one applied patch; status is "ok" or "error".
func RecordPatch(status string) {
	IncCounter(PatchesTotal, 1, Labels{"status": status})
}

// ObserveReconcile records how long a batch took.
func ObserveReconcile(defType string, d time.Duration) {
	ObserveHistogram(ReconcileDuration, d.Seconds(), Labels{"type": defType})
}

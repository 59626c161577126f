// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package datadog is a Datadog backend for the metrics package.
//
// Metrics are buffered in memory and submitted on a ticker (once a minute by
// default) and once more on Close, so both one-shot CLI runs and a long-lived
// serve process produce a time series.
package datadog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/dacolabs/curate/internal/metrics"
)

// Options configures the backend.
type Options struct {
	// Service becomes the "service:<name>" tag. Defaults to "curate".
	Service string

	// Tags are extra tags such as "app:sales".
	Tags []string

	// FlushEvery defaults to 60 seconds.
	FlushEvery time.Duration

	// Test seams.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}
	closeOnce  sync.Once

	baseTags  []string
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu        sync.Mutex
	records   map[string]float64 // type\x00outcome -> count
	patches   map[string]float64 // status -> count
	durations map[string][]float64
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend returns a running backend. Credentials come from the usual
// DD_API_KEY / DD_SITE environment read by the Datadog client.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	service := opts.Service
	if service == "" {
		service = "curate"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "service:"+service)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}
	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		records:    make(map[string]float64),
		patches:    make(map[string]float64),
		durations:  make(map[string][]float64),
	}
	go b.loop()
	return b, nil
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and submits what is still buffered. It is safe
// to call more than once.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		close(b.stopCh)
		<-b.doneCh
	})
	return b.Flush()
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.RecordsTotal:
		b.records[pairKey(labelOr(labels, "type"), labelOr(labels, "outcome"))] += delta
	case metrics.PatchesTotal:
		b.patches[labelOr(labels, "status")] += delta
	}
}

// ObserveHistogram implements metrics.Backend. Unknown names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 || name != metrics.ReconcileDuration {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t := labelOr(labels, "type")
	b.durations[t] = append(b.durations[t], value)
}

type snapshot struct {
	records   map[string]float64
	patches   map[string]float64
	durations map[string][]float64
}

func (s snapshot) isEmpty() bool {
	return len(s.records) == 0 && len(s.patches) == 0 && len(s.durations) == 0
}

func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{records: b.records, patches: b.patches, durations: b.durations}
	b.records = make(map[string]float64)
	b.patches = make(map[string]float64)
	b.durations = make(map[string][]float64)
	return s
}

// Flush submits buffered metrics. Buffers are reset even when submission
// fails.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	if _, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters()); err != nil {
		return fmt.Errorf("datadog submit: %w", err)
	}
	return nil
}

func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(s.records)+len(s.patches)+6*len(s.durations))

	for _, k := range sortedKeys(s.records) {
		defType, outcome := splitPairKey(k)
		tags := withTags(b.baseTags, "type:"+defType, "outcome:"+outcome)
		series = append(series, point("curate.records.total", datadogV2.METRICINTAKETYPE_COUNT, s.records[k], tags, nowUnix))
	}
	for _, status := range sortedKeys(s.patches) {
		tags := withTags(b.baseTags, "status:"+status)
		series = append(series, point("curate.patches.total", datadogV2.METRICINTAKETYPE_COUNT, s.patches[status], tags, nowUnix))
	}

	types := make([]string, 0, len(s.durations))
	for t := range s.durations {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		samples := append([]float64(nil), s.durations[t]...)
		if len(samples) == 0 {
			continue
		}
		sort.Float64s(samples)
		tags := withTags(b.baseTags, "type:"+t)
		prefix := "curate.reconcile.duration_seconds"
		gauge := datadogV2.METRICINTAKETYPE_GAUGE
		series = append(series,
			point(prefix+".p50", gauge, percentileNearestRank(samples, 0.50), tags, nowUnix),
			point(prefix+".p90", gauge, percentileNearestRank(samples, 0.90), tags, nowUnix),
			point(prefix+".p99", gauge, percentileNearestRank(samples, 0.99), tags, nowUnix),
			point(prefix+".max", gauge, samples[len(samples)-1], tags, nowUnix),
			point(prefix+".samples", gauge, float64(len(samples)), tags, nowUnix),
		)
	}
	return series
}

func point(metric string, typ datadogV2.MetricIntakeType, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func labelOr(labels metrics.Labels, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

func pairKey(a, b string) string {
	return a + "\x00" + b
}

func splitPairKey(k string) (string, string) {
	a, b, ok := strings.Cut(k, "\x00")
	if !ok {
		return k, "unknown"
	}
	return a, b
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	return append(out, extras...)
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

// ParseTagsCSV parses comma-separated tags like "env:prod,team:bi".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

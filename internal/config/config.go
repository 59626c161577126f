// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package config handles curate project configuration.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dacolabs/curate/internal/snapshot"
)

// CurrentConfigVersion is the current version of the config file format.
const CurrentConfigVersion = 1

// DefaultAddr is the listen address of the HTTP API.
const DefaultAddr = ":8080"

// Environment variables overriding the file.
const (
	EnvEngineURL      = "CURATE_ENGINE_URL"
	EnvApp            = "CURATE_APP"
	EnvMetricsBackend = "CURATE_METRICS_BACKEND"
	EnvMetricsTags    = "METRICS_TAGS"
)

// Config represents the curate.yaml project configuration file.
type Config struct {
	Version   int             `yaml:"version"`
	Engine    EngineConfig    `yaml:"engine"`
	Workspace WorkspaceConfig `yaml:"workspace,omitempty"`
	Reconcile ReconcileConfig `yaml:"reconcile,omitempty"`
	Rules     RulesConfig     `yaml:"rules,omitempty"`
	Snapshot  SnapshotConfig  `yaml:"snapshot,omitempty"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`
	Server    ServerConfig    `yaml:"server,omitempty"`
}

// EngineConfig locates the application to curate.
type EngineConfig struct {
	// URL is the engine's WebSocket endpoint, e.g. ws://localhost:9076/app.
	URL string `yaml:"url"`
	// App is the application id or document name.
	App string `yaml:"app"`
	// Headers are sent with every handshake.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Header returns Headers as an http.Header.
func (e EngineConfig) Header() http.Header {
	if len(e.Headers) == 0 {
		return nil
	}
	h := make(http.Header, len(e.Headers))
	for k, v := range e.Headers {
		h.Set(k, v)
	}
	return h
}

// WorkspaceConfig tunes the scratch session used for imports.
type WorkspaceConfig struct {
	// URL defaults to the engine URL.
	URL      string        `yaml:"url,omitempty"`
	Attempts int           `yaml:"attempts,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`
}

// ReconcileConfig bounds the work done by update.
type ReconcileConfig struct {
	Concurrency int           `yaml:"concurrency,omitempty"`
	CallTimeout time.Duration `yaml:"call_timeout,omitempty"`
}

// RulesConfig points at an optional alias and validity rule file.
type RulesConfig struct {
	File string `yaml:"file,omitempty"`
}

// SnapshotConfig selects the snapshot store.
type SnapshotConfig struct {
	snapshot.Config `yaml:",inline"`

	// BeforeUpdate saves the current definitions before every update.
	BeforeUpdate bool `yaml:"before_update,omitempty"`
}

// Enabled reports whether a snapshot store is configured.
func (s SnapshotConfig) Enabled() bool {
	return s.Kind != ""
}

// MetricsBackend names where metrics are sent.
type MetricsBackend string

// Metrics backends.
const (
	MetricsNone    MetricsBackend = "none"
	MetricsDatadog MetricsBackend = "datadog"
)

// MetricsConfig configures instrumentation.
type MetricsConfig struct {
	Backend MetricsBackend `yaml:"backend,omitempty"`
	Tags    []string       `yaml:"tags,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// New returns a Config with the current version and the given engine.
func New(engineURL, app string) *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Engine:  EngineConfig{URL: engineURL, App: app},
	}
}

// Load reads a Config from a file path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path) //nolint:gosec // path is provided by caller
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the Config to a file path.
func (c *Config) Save(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is provided by caller
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	return enc.Encode(c)
}

// ApplyEnv overrides file values with the environment. Empty variables are
// ignored. METRICS_TAGS is a comma separated list appended to the file's tags.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvEngineURL)); v != "" {
		c.Engine.URL = v
	}
	if v := strings.TrimSpace(getenv(EnvApp)); v != "" {
		c.Engine.App = v
	}
	if v := strings.TrimSpace(getenv(EnvMetricsBackend)); v != "" {
		c.Metrics.Backend = MetricsBackend(strings.ToLower(v))
	}
	for _, tag := range strings.Split(getenv(EnvMetricsTags), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			c.Metrics.Tags = append(c.Metrics.Tags, tag)
		}
	}
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	if c.Version != CurrentConfigVersion {
		return errors.New("unsupported config version")
	}
	if c.Engine.URL == "" {
		return errors.New("engine.url is required")
	}
	if err := validateWebSocketURL(c.Engine.URL); err != nil {
		return fmt.Errorf("engine.url: %w", err)
	}
	if c.Engine.App == "" {
		return errors.New("engine.app is required")
	}
	if c.Workspace.URL != "" {
		if err := validateWebSocketURL(c.Workspace.URL); err != nil {
			return fmt.Errorf("workspace.url: %w", err)
		}
	}
	if c.Workspace.Attempts < 0 || c.Workspace.Interval < 0 {
		return errors.New("workspace attempts and interval must not be negative")
	}
	if c.Reconcile.Concurrency < 0 || c.Reconcile.CallTimeout < 0 {
		return errors.New("reconcile concurrency and call_timeout must not be negative")
	}
	if c.Snapshot.BeforeUpdate && !c.Snapshot.Enabled() {
		return errors.New("snapshot.before_update requires snapshot.kind")
	}
	switch c.Metrics.Backend {
	case "", MetricsNone, MetricsDatadog:
	default:
		return fmt.Errorf("unsupported metrics backend %q", c.Metrics.Backend)
	}
	return nil
}

// WorkspaceURL returns the endpoint for scratch sessions.
func (c *Config) WorkspaceURL() string {
	if c.Workspace.URL != "" {
		return c.Workspace.URL
	}
	return c.Engine.URL
}

// Addr returns the HTTP API listen address.
func (c *Config) Addr() string {
	if c.Server.Addr != "" {
		return c.Server.Addr
	}
	return DefaultAddr
}

func validateWebSocketURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

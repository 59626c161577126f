// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package session provides project context loading for CLI commands.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/dacolabs/curate/internal/config"
	"github.com/dacolabs/curate/internal/metrics"
	"github.com/dacolabs/curate/internal/metrics/datadog"
	"github.com/dacolabs/curate/internal/rules"
)

var (
	// ErrNotInitialized indicates no curate.yaml was found.
	ErrNotInitialized = errors.New("not in a curate project (curate.yaml not found)")

	// ErrInvalidConfig indicates the config file exists but is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ConfigFileName is the name of the curate configuration file.
const ConfigFileName = "curate.yaml"

// Flag names shared by every command.
const (
	FlagConfig  = "config"
	FlagVerbose = "verbose"
)

// contextKey is used to store Context in context.Context.
type contextKey struct{}

// Context holds the resolved project configuration.
type Context struct {
	// Config has environment overrides applied.
	Config *config.Config

	// Rules is built from the configured rule file, or the defaults. A
	// relative rule file is resolved against the config file's directory.
	Rules *rules.Resolver

	// Logger writes to stderr in verbose mode and discards otherwise.
	Logger *log.Logger

	closers []io.Closer
}

// Options control Load.
type Options struct {
	// Path defaults to ConfigFileName in the working directory.
	Path    string
	Verbose bool
	Getenv  func(string) string
}

// Load loads the project context and returns a new context.Context with the
// curate Context stored in it.
func Load(ctx context.Context, opts Options) (context.Context, error) {
	path := opts.Path
	if path == "" {
		path = ConfigFileName
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return nil, ErrNotInitialized
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg.ApplyEnv(getenv)
	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, validateErr)
	}

	rs := rules.Default()
	if cfg.Rules.File != "" {
		rulesPath := cfg.Rules.File
		if !filepath.IsAbs(rulesPath) {
			rulesPath = filepath.Join(filepath.Dir(path), rulesPath)
		}
		rs, err = rules.Load(rulesPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	curateCtx := &Context{
		Config: cfg,
		Rules:  rs,
		Logger: NewLogger(opts.Verbose),
	}
	if err := curateCtx.installMetrics(ctx); err != nil {
		return nil, err
	}
	return context.WithValue(ctx, contextKey{}, curateCtx), nil
}

// NewLogger returns the process logger.
func NewLogger(verbose bool) *log.Logger {
	if verbose {
		return log.New(os.Stderr, "curate: ", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

func (c *Context) installMetrics(ctx context.Context) error {
	if c.Config.Metrics.Backend != config.MetricsDatadog {
		return nil
	}
	b, err := datadog.NewBackend(ctx, datadog.Options{Tags: c.Config.Metrics.Tags})
	if err != nil {
		return fmt.Errorf("metrics backend: %w", err)
	}
	metrics.SetBackend(b)
	c.closers = append(c.closers, b)
	c.Logger.Printf("metrics backend=datadog tags=%v", c.Config.Metrics.Tags)
	return nil
}

// Close flushes metrics and releases what Load opened.
func (c *Context) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i].Close())
	}
	c.closers = nil
	metrics.SetBackend(nil)
	return errors.Join(errs...)
}

// From extracts the curate Context from a context.Context.
// Returns nil if no Context is stored.
func From(ctx context.Context) *Context {
	if curateCtx, ok := ctx.Value(contextKey{}).(*Context); ok {
		return curateCtx
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dacolabs/curate/internal/catalog"
	"github.com/dacolabs/curate/internal/config"
	"github.com/dacolabs/curate/internal/proppath"
	"github.com/dacolabs/curate/internal/qix"
	"github.com/dacolabs/curate/internal/reconcile"
	"github.com/dacolabs/curate/internal/session"
	"github.com/dacolabs/curate/internal/version"
	"github.com/dacolabs/curate/internal/workspace"
)

// engineApp is what commands need from an opened application.
type engineApp interface {
	reconcile.Store
	catalog.Source
	workspace.Browser
	Title(ctx context.Context) (string, error)
}

// openApp connects to the configured application. Tests replace it.
var openApp = func(ctx context.Context, cfg *config.Config) (engineApp, io.Closer, error) {
	app, conn, err := qix.Open(ctx, cfg.Engine.URL, cfg.Engine.App, dialOptions(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("open app %s: %w", cfg.Engine.App, err)
	}
	return app, conn, nil
}

// newOpener returns the scratch session factory used by imports. Tests
// replace it.
var newOpener = func(cfg *config.Config) workspace.Opener {
	return &qix.ScratchOpener{URL: cfg.WorkspaceURL(), Dial: dialOptions(cfg)}
}

func dialOptions(cfg *config.Config) qix.DialOptions {
	h := cfg.Engine.Header()
	if h == nil {
		h = http.Header{}
	}
	if h.Get("User-Agent") == "" {
		h.Set("User-Agent", version.UserAgent())
	}
	return qix.DialOptions{Header: h}
}

// connected bundles an open application with the services built on it.
type connected struct {
	app     engineApp
	closer  io.Closer
	catalog *catalog.Catalog
	engine  *reconcile.Engine
}

func connect(ctx context.Context, sc *session.Context) (*connected, error) {
	app, closer, err := openApp(ctx, sc.Config)
	if err != nil {
		return nil, err
	}
	sc.Logger.Printf("connected url=%s app=%s", sc.Config.Engine.URL, sc.Config.Engine.App)
	return &connected{
		app:     app,
		closer:  closer,
		catalog: &catalog.Catalog{Source: app, Logger: sc.Logger, Concurrency: sc.Config.Reconcile.Concurrency},
		engine: &reconcile.Engine{
			Store:       app,
			Rules:       sc.Rules,
			Logger:      sc.Logger,
			Concurrency: sc.Config.Reconcile.Concurrency,
			CallTimeout: sc.Config.Reconcile.CallTimeout,
		},
	}, nil
}

func (c *connected) Close() error {
	return c.closer.Close()
}

func (c *connected) workspace(sc *session.Context) *workspace.Manager {
	return &workspace.Manager{
		Opener:   newOpener(sc.Config),
		Browser:  c.app,
		Logger:   sc.Logger,
		Attempts: sc.Config.Workspace.Attempts,
		Interval: sc.Config.Workspace.Interval,
	}
}

func (c *connected) title(ctx context.Context) string {
	title, err := c.app.Title(ctx)
	if err != nil || title == "" {
		return qix.DefaultAppTitle
	}
	return title
}

// splitPath turns "folder/sub/file.xlsx" into its elements.
func splitPath(p string) []string {
	var out []string
	for _, el := range strings.Split(strings.Trim(p, "/"), "/") {
		if el != "" {
			out = append(out, el)
		}
	}
	return out
}

// recordLabel names a record in command output.
func recordLabel(r *proppath.Record) string {
	for _, key := range []string{"qMeasure/qLabel", "qDim/qFieldLabels/0", "qName", "qMetaDef/title", "title", "qInfo/qId"} {
		if v := r.Text(key); v != "" {
			return v
		}
	}
	return ""
}

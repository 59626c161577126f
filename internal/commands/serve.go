// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/dacolabs/curate/internal/server"
	"github.com/dacolabs/curate/internal/session"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	addr string
}

func registerServeCmd(parent *cobra.Command, load preRun) {
	cmd := newServeCmd()
	cmd.PreRunE = load
	parent.AddCommand(cmd)
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve definitions over a JSON HTTP API",
		Long: `Serve the application's definitions over HTTP for a presentation layer:

  GET  /api/types
  GET  /api/definitions/:type
  POST /api/definitions/:type   {"records": [...]}

The server runs until interrupted.`,
		Example: `  curate serve --addr 127.0.0.1:8080`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := session.RequireFromCommand(cmd)
			if err != nil {
				return err
			}
			defer sc.Close() //nolint:errcheck
			return runServe(cmd.Context(), cmd.OutOrStdout(), sc, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default: server.addr, then :8080)")

	return cmd
}

func runServe(ctx context.Context, w io.Writer, sc *session.Context, opts *serveOptions) error {
	addr := opts.addr
	if addr == "" {
		addr = sc.Config.Addr()
	}

	c, err := connect(ctx, sc)
	if err != nil {
		return err
	}
	defer c.Close() //nolint:errcheck

	gin.SetMode(gin.ReleaseMode)
	api := &server.Server{
		Catalog: c.catalog,
		Engine:  c.engine,
		Rules:   sc.Rules,
		Logger:  sc.Logger,
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	_, _ = fmt.Fprintf(w, "Serving %s on http://%s\n", sc.Config.Engine.App, addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	sc.Logger.Printf("server stopped addr=%s", addr)
	return nil
}

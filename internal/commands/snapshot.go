// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dacolabs/curate/internal/catalog"
	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/prompts"
	"github.com/dacolabs/curate/internal/session"
	"github.com/dacolabs/curate/internal/snapshot"
)

func registerSnapshotCmd(parent *cobra.Command, load preRun) {
	cmd := newSnapshotCmd()
	cmd.PreRunE = load
	parent.AddCommand(cmd)
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot [TYPE]",
		Short: "Save the current definitions of a type to the snapshot store",
		Long: `Save every definition of a type to the snapshot store configured under
"snapshot" in curate.yaml, one row per definition.`,
		Example: `  # Back up all measures
  curate snapshot measures`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := session.RequireFromCommand(cmd)
			if err != nil {
				return err
			}
			defer sc.Close() //nolint:errcheck
			return runSnapshot(cmd.Context(), cmd.OutOrStdout(), sc, args)
		},
	}
	return cmd
}

func runSnapshot(ctx context.Context, w io.Writer, sc *session.Context, args []string) error {
	if !sc.Config.Snapshot.Enabled() {
		return errors.New("no snapshot store configured (set snapshot.kind in curate.yaml)")
	}
	t, err := typeArg(args)
	if err != nil {
		return err
	}

	c, err := connect(ctx, sc)
	if err != nil {
		return err
	}
	defer c.Close() //nolint:errcheck

	n, err := takeSnapshot(ctx, sc, c, t)
	if err != nil {
		return err
	}
	prompts.PrintResult(w, []prompts.ResultField{
		{Label: "Store", Value: sc.Config.Snapshot.Kind},
		{Label: "Type", Value: t.DisplayName()},
		{Label: "Definitions", Value: fmt.Sprint(n)},
	}, "Snapshot saved")
	return nil
}

// takeSnapshot saves the current definitions of type t. Having none is not
// an error.
func takeSnapshot(ctx context.Context, sc *session.Context, c *connected, t definition.Type) (int, error) {
	records, err := c.catalog.Fetch(ctx, t)
	if errors.Is(err, catalog.ErrNoDefinitions) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("snapshot %s: %w", t, err)
	}

	store, err := snapshot.New(ctx, sc.Config.Snapshot.Config)
	if err != nil {
		return 0, err
	}
	defer store.Close() //nolint:errcheck

	n, err := store.Save(ctx, snapshot.Snapshot{
		App:     sc.Config.Engine.App,
		Type:    t,
		TakenAt: time.Now(),
		Records: records,
	})
	if err != nil {
		return 0, fmt.Errorf("snapshot %s: %w", t, err)
	}
	sc.Logger.Printf("snapshot kind=%s type=%s rows=%d", sc.Config.Snapshot.Kind, t, n)
	return n, nil
}

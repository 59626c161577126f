// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package commands

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dacolabs/curate/internal/config"
	"github.com/dacolabs/curate/internal/prompts"
	"github.com/dacolabs/curate/internal/session"
	"github.com/dacolabs/curate/internal/snapshot"
)

type initOptions struct {
	prompts.InitAnswers
	nonInteractive bool
}

func registerInitCmd(parent *cobra.Command) {
	parent.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new curate project",
		Long: `Initialize a new curate project with a curate.yaml configuration file
pointing at the engine and application to curate.`,
		Example: `  # Interactive mode
  curate init

  # Non-interactive
  curate init --engine-url ws://localhost:9076/app --app Sales.qvf --non-interactive
  curate init --engine-url wss://qlik.example.com/app --app 1f2e --snapshot-kind sqlite --snapshot-dsn snapshots.db --non-interactive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString(session.FlagConfig)
			return runInit(cmd, path, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.EngineURL, "engine-url", "u", "", "Engine WebSocket URL")
	cmd.Flags().StringVarP(&opts.App, "app", "a", "", "Application id or document name")
	cmd.Flags().StringVar(&opts.SnapshotKind, "snapshot-kind", "", "Snapshot store ("+strings.Join(snapshot.Kinds(), ", ")+")")
	cmd.Flags().StringVar(&opts.SnapshotDSN, "snapshot-dsn", "", "Snapshot store DSN")
	cmd.Flags().BoolVar(&opts.BeforeUpdate, "snapshot-before-update", false, "Snapshot definitions before every update")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "none", "Metrics backend (none or datadog)")
	cmd.Flags().BoolVar(&opts.nonInteractive, "non-interactive", false, "Run without prompts (requires --engine-url and --app)")

	return cmd
}

func runInit(cmd *cobra.Command, path string, opts *initOptions) error {
	if path == "" {
		path = session.ConfigFileName
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists; project already initialized", path)
	}

	if opts.nonInteractive {
		if opts.EngineURL == "" || opts.App == "" {
			return errors.New("non-interactive mode requires --engine-url and --app")
		}
	} else if err := prompts.RunInitForm(&opts.InitAnswers, snapshot.Kinds()); err != nil {
		return err
	}

	if opts.SnapshotKind != "" && !slices.Contains(snapshot.Kinds(), opts.SnapshotKind) {
		return fmt.Errorf("unsupported snapshot kind %q", opts.SnapshotKind)
	}

	cfg := config.New(strings.TrimSpace(opts.EngineURL), strings.TrimSpace(opts.App))
	cfg.Snapshot.Kind = opts.SnapshotKind
	cfg.Snapshot.DSN = opts.SnapshotDSN
	cfg.Snapshot.BeforeUpdate = opts.BeforeUpdate
	if opts.Metrics != "" && opts.Metrics != string(config.MetricsNone) {
		cfg.Metrics.Backend = config.MetricsBackend(opts.Metrics)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("config file couldn't be saved: %w", err)
	}

	prompts.PrintResult(cmd.OutOrStdout(), []prompts.ResultField{
		{Label: "Config", Value: path},
		{Label: "Engine", Value: cfg.Engine.URL},
		{Label: "App", Value: cfg.Engine.App},
	}, "Initialization completed")
	return nil
}

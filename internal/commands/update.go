// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/metrics"
	"github.com/dacolabs/curate/internal/prompts"
	"github.com/dacolabs/curate/internal/proppath"
	"github.com/dacolabs/curate/internal/session"
	"github.com/dacolabs/curate/internal/tabular"
	"github.com/dacolabs/curate/internal/workspace"
)

// autoType asks update to infer the type from the first record.
const autoType = "auto"

type updateOptions struct {
	file       string
	sheet      string
	connection string
	path       string
	table      string
	yes        bool
	snapshot   bool
}

func registerUpdateCmd(parent *cobra.Command, load preRun) {
	cmd := newUpdateCmd()
	cmd.PreRunE = load
	parent.AddCommand(cmd)
}

func newUpdateCmd() *cobra.Command {
	opts := &updateOptions{}

	cmd := &cobra.Command{
		Use:   "update [TYPE]",
		Short: "Add or replace definitions from a spreadsheet",
		Long: `Add or replace definitions from a local .xlsx/.csv file or from a file
reachable through one of the application's data connections.

Each row is one definition and each column a property path such as
qMeasure/qDef. Rows with a qInfo/qId replace the definition with that id;
rows without one are added. When TYPE is omitted or "auto", it is inferred
from the qInfo/qType column of the first row.`,
		Example: `  # Update measures from a local workbook
  curate update measures --file Sales_Measures.xlsx

  # Infer the type, skip the confirmation
  curate update --file defs.csv --yes

  # Import through a data connection
  curate update dimensions --connection DataFiles --path masters/dims.xlsx --table Sheet1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := session.RequireFromCommand(cmd)
			if err != nil {
				return err
			}
			defer sc.Close() //nolint:errcheck
			return runUpdate(cmd.Context(), cmd.OutOrStdout(), sc, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Local .xlsx or .csv file")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "Sheet of the local workbook (default: first sheet)")
	cmd.Flags().StringVarP(&opts.connection, "connection", "c", "", "Data connection name or id")
	cmd.Flags().StringVarP(&opts.path, "path", "p", "", "File path inside the data connection")
	cmd.Flags().StringVarP(&opts.table, "table", "t", "", "Sheet of a workbook read through the data connection")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&opts.snapshot, "snapshot", false, "Snapshot the current definitions first")
	cmd.MarkFlagsMutuallyExclusive("file", "connection")
	cmd.MarkFlagsRequiredTogether("connection", "path")

	return cmd
}

func runUpdate(ctx context.Context, w io.Writer, sc *session.Context, args []string, opts *updateOptions) error {
	if opts.file == "" && opts.connection == "" {
		return errors.New("either --file or --connection with --path is required")
	}
	if (opts.snapshot || sc.Config.Snapshot.BeforeUpdate) && !sc.Config.Snapshot.Enabled() {
		return errors.New("--snapshot requires snapshot.kind in curate.yaml")
	}

	var records []*proppath.Record
	if opts.file != "" {
		var err error
		if records, err = tabular.Read(opts.file, opts.sheet); err != nil {
			return err
		}
	}

	c, err := connect(ctx, sc)
	if err != nil {
		return err
	}
	defer c.Close() //nolint:errcheck

	if opts.connection != "" {
		records, err = c.workspace(sc).Import(ctx, workspace.ImportRequest{
			Connection: opts.connection,
			Path:       splitPath(opts.path),
			Table:      opts.table,
		})
		if err != nil {
			return fmt.Errorf("import %s: %w", opts.path, err)
		}
	}
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "No rows to apply.")
		return nil
	}

	t, err := updateType(args, records, opts.yes)
	if err != nil {
		return err
	}

	if !opts.yes {
		confirmed, err := prompts.ConfirmUpdate(len(records), t, c.title(ctx))
		if err != nil {
			return err
		}
		if !confirmed {
			_, _ = fmt.Fprintln(w, "Update canceled.")
			return nil
		}
	}

	if opts.snapshot || sc.Config.Snapshot.BeforeUpdate {
		n, err := takeSnapshot(ctx, sc, c, t)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "Saved %d %s to the %s snapshot store.\n", n, t.DisplayName(), sc.Config.Snapshot.Kind)
	}

	outcomes := c.engine.Reconcile(ctx, records, t)
	if err := metrics.Flush(); err != nil {
		sc.Logger.Printf("metrics flush error=%v", err)
	}

	_, _ = fmt.Fprintln(w, prompts.RenderOutcomes(records, outcomes, recordLabel))
	tally := prompts.Count(outcomes)
	prompts.PrintResult(w, []prompts.ResultField{
		{Label: "Added", Value: fmt.Sprint(tally.Added)},
		{Label: "Replaced", Value: fmt.Sprint(tally.Replaced)},
		{Label: "Invalid", Value: fmt.Sprint(tally.Invalid)},
	}, "")

	if tally.Invalid > 0 {
		return fmt.Errorf("%d of %d records could not be applied", tally.Invalid, len(records))
	}
	return nil
}

// updateType resolves the type argument. "auto" or no argument infers the
// type from the first record, prompting when that fails and prompts are
// allowed.
func updateType(args []string, records []*proppath.Record, noPrompt bool) (definition.Type, error) {
	if len(args) > 0 && !strings.EqualFold(args[0], autoType) {
		return definition.ParseType(args[0])
	}
	if t, ok := definition.Infer(records[0].Text("qInfo/qType")); ok {
		return t, nil
	}
	if noPrompt {
		return "", errors.New("cannot infer the definition type: first row has no qInfo/qType; pass TYPE")
	}
	return typeArg(nil)
}

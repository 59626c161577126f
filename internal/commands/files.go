// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dacolabs/curate/internal/session"
)

type filesOptions struct {
	output string
}

func registerFilesCmd(parent *cobra.Command, load preRun) {
	cmd := newFilesCmd()
	cmd.PreRunE = load
	parent.AddCommand(cmd)
}

func newFilesCmd() *cobra.Command {
	opts := &filesOptions{}

	cmd := &cobra.Command{
		Use:   "files [CONNECTION] [PATH]",
		Short: "Browse data connections for files to import",
		Long: `Browse the application's data connections. Without arguments the
connections are listed; with a connection its folders and files; with a
workbook path its sheets.`,
		Example: `  # List data connections
  curate files

  # List a folder
  curate files DataFiles masters

  # List the sheets of a workbook
  curate files DataFiles masters/dims.xlsx`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := session.RequireFromCommand(cmd)
			if err != nil {
				return err
			}
			defer sc.Close() //nolint:errcheck
			return runFiles(cmd.Context(), cmd.OutOrStdout(), sc, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json)")

	return cmd
}

func runFiles(ctx context.Context, w io.Writer, sc *session.Context, args []string, opts *filesOptions) error {
	var connection string
	var path []string
	if len(args) > 0 {
		connection = args[0]
	}
	if len(args) > 1 {
		path = splitPath(args[1])
	}

	c, err := connect(ctx, sc)
	if err != nil {
		return err
	}
	defer c.Close() //nolint:errcheck

	items, err := c.workspace(sc).Browse(ctx, connection, path)
	if err != nil {
		return fmt.Errorf("browse %s: %w", strings.Join(append([]string{connection}, path...), "/"), err)
	}

	if opts.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "Nothing found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tKIND")
	for _, item := range items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", item.Name, item.Kind)
	}
	return tw.Flush()
}

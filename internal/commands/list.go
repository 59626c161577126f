// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dacolabs/curate/internal/catalog"
	"github.com/dacolabs/curate/internal/columns"
	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/prompts"
	"github.com/dacolabs/curate/internal/session"
	"github.com/dacolabs/curate/internal/tabular"
)

type listOptions struct {
	output string
	out    string
	export bool
}

func registerListCmd(parent *cobra.Command, load preRun) {
	cmd := newListCmd()
	cmd.PreRunE = load
	parent.AddCommand(cmd)
}

func newListCmd() *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list [TYPE]",
		Short: "List the definitions of a type",
		Long: `List every definition of a type with its properties flattened into
columns. Use --export or --out to write them to a spreadsheet instead. If no
type is provided, an interactive selection prompt is shown.`,
		Example: `  # Show measures as a table
  curate list measures

  # Export dimensions to <AppTitle>_Dimensions.xlsx
  curate list dimensions --export

  # Export KPIs to a CSV file
  curate list kpi --out kpis.csv

  # Print variables as JSON
  curate list variables -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := session.RequireFromCommand(cmd)
			if err != nil {
				return err
			}
			defer sc.Close() //nolint:errcheck
			return runList(cmd.Context(), cmd.OutOrStdout(), sc, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json, yaml)")
	cmd.Flags().StringVar(&opts.out, "out", "", "Export to a .xlsx or .csv file")
	cmd.Flags().BoolVar(&opts.export, "export", false, "Export to <AppTitle>_<Type>.xlsx")

	return cmd
}

func typeArg(args []string) (definition.Type, error) {
	if len(args) > 0 {
		return definition.ParseType(args[0])
	}
	var t definition.Type
	if err := prompts.SelectType(&t); err != nil {
		return "", err
	}
	return t, nil
}

func runList(ctx context.Context, w io.Writer, sc *session.Context, args []string, opts *listOptions) error {
	t, err := typeArg(args)
	if err != nil {
		return err
	}

	c, err := connect(ctx, sc)
	if err != nil {
		return err
	}
	defer c.Close() //nolint:errcheck

	records, err := c.catalog.Fetch(ctx, t)
	if errors.Is(err, catalog.ErrNoDefinitions) {
		_, _ = fmt.Fprintf(w, "No %s defined.\n", t.DisplayName())
		return nil
	}
	if err != nil {
		return fmt.Errorf("list %s: %w", t, err)
	}
	layout := columns.Layout(records, t, sc.Rules)

	if opts.export || opts.out != "" {
		path := opts.out
		if path == "" {
			path = exportFileName(c.title(ctx), t)
		}
		if err := tabular.Write(path, t.DisplayName(), tabular.Exportable(layout.Headers), layout.Rows); err != nil {
			return fmt.Errorf("export %s: %w", t, err)
		}
		prompts.PrintResult(w, []prompts.ResultField{
			{Label: "Definitions", Value: fmt.Sprint(len(layout.Rows))},
			{Label: "File", Value: path},
		}, "Export completed")
		return nil
	}

	switch opts.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(layout.Rows)
	case "yaml":
		return printRecordsYAML(w, layout)
	default:
		_, err := fmt.Fprintln(w, prompts.RenderTable(layout))
		return err
	}
}

// printRecordsYAML writes one mapping per record, keys in header order.
func printRecordsYAML(w io.Writer, layout columns.Table) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, rec := range layout.Rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, h := range tabular.Exportable(layout.Headers) {
			if !rec.Has(h) {
				continue
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: h},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: rec.Text(h)},
			)
		}
		seq.Content = append(seq.Content, m)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(seq)
}

// exportFileName builds "<title>_<Type>.xlsx" with path separators removed
// from the title.
func exportFileName(title string, t definition.Type) string {
	title = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	return title + "_" + strings.ReplaceAll(t.DisplayName(), " ", "") + tabular.ExtXLSX
}

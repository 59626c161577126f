// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dacolabs/curate/internal/definition"
)

type typesOptions struct {
	output string
}

type typeEntry struct {
	Type          definition.Type `json:"type" yaml:"type"`
	Name          string          `json:"name" yaml:"name"`
	Visualization bool            `json:"visualization" yaml:"visualization"`
	Creatable     bool            `json:"creatable" yaml:"creatable"`
}

func registerTypesCmd(parent *cobra.Command) {
	parent.AddCommand(newTypesCmd())
}

func newTypesCmd() *cobra.Command {
	opts := &typesOptions{}

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the definition types curate can work on",
		Example: `  # List types in table format
  curate types

  # List types as JSON
  curate types -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json, yaml)")

	return cmd
}

func typeEntries() []typeEntry {
	all := append(definition.Types(), definition.VisualizationTypes()...)
	entries := make([]typeEntry, len(all))
	for i, t := range all {
		entries[i] = typeEntry{
			Type:          t,
			Name:          t.DisplayName(),
			Visualization: t.IsVisualization(),
			Creatable:     t.Creatable(),
		}
	}
	return entries
}

func runTypes(w io.Writer, opts *typesOptions) error {
	entries := typeEntries()
	switch opts.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TYPE\tNAME\tCREATABLE")
	for _, e := range entries {
		name := e.Name
		if e.Visualization && e.Type != definition.Visualization {
			name = "  " + name
		}
		creatable := "-"
		if e.Creatable {
			creatable = "yes"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Type, name, creatable)
	}
	return tw.Flush()
}

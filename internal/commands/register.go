// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package commands contains all CLI command definitions.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dacolabs/curate/internal/session"
)

// NewRootCmd creates and returns the root command for the CLI. getenv
// supplies the environment overrides; nil means os.Getenv.
func NewRootCmd(getenv func(string) string) *cobra.Command {
	if getenv == nil {
		getenv = os.Getenv
	}

	rootCmd := &cobra.Command{
		Use:   "curate",
		Short: "Curate the master items of an analytics application",
		Long: `curate lists, exports and bulk-updates the measures, dimensions, variables
and visualizations of an analytics application through its engine API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String(session.FlagConfig, session.ConfigFileName, "Path to the config file")
	rootCmd.PersistentFlags().BoolP(session.FlagVerbose, "v", false, "Log engine traffic and recovered failures to stderr")

	load := session.PreRunLoad(getenv)

	registerInitCmd(rootCmd)
	registerTypesCmd(rootCmd)
	registerListCmd(rootCmd, load)
	registerUpdateCmd(rootCmd, load)
	registerFilesCmd(rootCmd, load)
	registerSnapshotCmd(rootCmd, load)
	registerServeCmd(rootCmd, load)
	registerVersionCmd(rootCmd)

	return rootCmd
}

// preRun loads the project context before a command runs.
type preRun = func(*cobra.Command, []string) error

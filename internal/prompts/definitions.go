// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package prompts

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/dacolabs/curate/internal/definition"
)

// SelectType asks which definition type to work on.
func SelectType(t *definition.Type) error {
	var options []huh.Option[definition.Type]
	for _, dt := range definition.Types() {
		options = append(options, huh.NewOption(dt.DisplayName(), dt))
	}
	for _, dt := range definition.VisualizationTypes() {
		options = append(options, huh.NewOption("  "+dt.DisplayName(), dt))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[definition.Type]().
				Title("Definition type").
				Options(options...).
				Height(min(len(options)+2, 14)).
				Value(t),
		),
	).WithTheme(Theme()).Run()
}

// ConfirmUpdate asks before records are written to app.
func ConfirmUpdate(n int, t definition.Type, app string) (bool, error) {
	var confirmed bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Apply %d %s to %s?", n, t.DisplayName(), app)).
				Description("Rows with an id replace existing definitions; rows without one are added.").
				Affirmative("Yes, update").
				Negative("No, cancel").
				Value(&confirmed),
		),
	).WithTheme(Theme()).Run()
	return confirmed, err
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package prompts

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dacolabs/curate/internal/columns"
	"github.com/dacolabs/curate/internal/definition"
	"github.com/dacolabs/curate/internal/proppath"
)

// MaxCellWidth truncates long expressions in rendered tables.
const MaxCellWidth = 40

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f9ca24")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#bababa"))
)

// RenderTable draws a laid-out batch. Each row takes its background from
// the matching entry of t.Colors.
func RenderTable(t columns.Table) string {
	rows := make([][]string, len(t.Rows))
	for i, rec := range t.Rows {
		rows[i] = truncate(columns.Cells(rec, t.Headers))
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(t.Colors) && t.Colors[row] != "" {
				return cellStyle.Background(lipgloss.Color(t.Colors[row])).Foreground(lipgloss.Color("#000000"))
			}
			return cellStyle
		}).
		Headers(t.Headers...).
		Rows(rows...).
		String()
}

// RenderOutcomes draws one line per reconciled record with its outcome,
// colored like the presentation layer colors rows.
func RenderOutcomes(records []*proppath.Record, outcomes []definition.Outcome, label func(*proppath.Record) string) string {
	headers := []string{"#", "RESULT", "DEFINITION"}
	rows := make([][]string, len(outcomes))
	for i, o := range outcomes {
		name := ""
		if i < len(records) && label != nil {
			name = label(records[i])
		}
		rows[i] = truncate([]string{fmt.Sprint(i + 1), o.String(), name})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(outcomes) {
				return cellStyle.Bold(true).Foreground(lipgloss.Color(outcomes[row].Color()))
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

// Tally counts outcomes by kind.
type Tally struct {
	Added, Replaced, Invalid int
}

// Count returns the tally of outcomes.
func Count(outcomes []definition.Outcome) Tally {
	var t Tally
	for _, o := range outcomes {
		switch o {
		case definition.Added:
			t.Added++
		case definition.Replaced:
			t.Replaced++
		default:
			t.Invalid++
		}
	}
	return t
}

func truncate(cells []string) []string {
	for i, c := range cells {
		if r := []rune(c); len(r) > MaxCellWidth {
			cells[i] = string(r[:MaxCellWidth-1]) + "…"
		}
	}
	return cells
}

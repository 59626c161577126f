// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package tabular

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/xuri/excelize/v2"

	"github.com/dacolabs/curate/internal/proppath"
)

// ReadXLSX reads one sheet of a workbook whose first row is the header. An
// empty sheet name selects the first sheet.
func ReadXLSX(r io.Reader, sheet string) ([]*proppath.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if sheet == "" {
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	} else if !slices.Contains(sheets, sheet) {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return toRecords(rows[0], rows[1:]), nil
}

// WriteXLSX writes a single-sheet workbook with a bold header row. Numbers
// and booleans keep their cell types.
func WriteXLSX(w io.Writer, sheet string, headers []string, records []*proppath.Record) error {
	if sheet == "" {
		sheet = DefaultSheet
	}
	headers = Exportable(headers)

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	head := make([]any, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}

	for i, rec := range records {
		row := make([]any, len(headers))
		for j, h := range headers {
			row[j] = cellValue(rec, h)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func cellValue(rec *proppath.Record, key string) any {
	v, _ := rec.Get(key)
	switch v.(type) {
	case string, float64, bool:
		return v
	}
	return proppath.FormatValue(v)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package tabular reads and writes definition tables as local CSV or Excel
// files. Every row becomes a flat record keyed by its column header.
package tabular

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dacolabs/curate/internal/proppath"
)

// File extensions.
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

// DefaultSheet names the sheet written when none is given.
const DefaultSheet = "Sheet1"

// UnsupportedFormatError is returned for files that are neither CSV nor XLSX.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q (expected %s or %s)", filepath.Ext(e.Path), ExtCSV, ExtXLSX)
}

// Format returns the normalized extension of path, or an
// UnsupportedFormatError.
func Format(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ExtCSV, ExtXLSX:
		return ext, nil
	}
	return "", &UnsupportedFormatError{Path: path}
}

// Read loads the file at path. For workbooks, sheet selects the sheet to read;
// empty means the first.
func Read(path, sheet string) ([]*proppath.Record, error) {
	ext, err := Format(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // path is provided by caller
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	if ext == ExtCSV {
		return ReadCSV(f)
	}
	return ReadXLSX(f, sheet)
}

// Write saves records to path with the given column order. Private columns
// (starting with "$" or "_") are never written.
func Write(path, sheet string, headers []string, records []*proppath.Record) error {
	ext, err := Format(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path) //nolint:gosec // path is provided by caller
	if err != nil {
		return err
	}

	if ext == ExtCSV {
		err = WriteCSV(f, headers, records)
	} else {
		err = WriteXLSX(f, sheet, headers, records)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Exportable drops private headers.
func Exportable(headers []string) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		if h == "" || strings.HasPrefix(h, "$") || strings.HasPrefix(h, "_") {
			continue
		}
		out = append(out, h)
	}
	return out
}

// toRecords keys each row by header. Columns without a header are dropped,
// short rows are padded with empty cells and blank rows are skipped.
func toRecords(header []string, rows [][]string) []*proppath.Record {
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		header[i] = h
	}

	out := make([]*proppath.Record, 0, len(rows))
	for _, row := range rows {
		if blank(row) {
			continue
		}
		rec := proppath.NewRecord()
		for i, h := range header {
			if h == "" {
				continue
			}
			v := ""
			if i < len(row) {
				v = row[i]
			}
			rec.Set(h, v)
		}
		out = append(out, rec)
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/dacolabs/curate/internal/columns"
	"github.com/dacolabs/curate/internal/proppath"
)

// ReadCSV reads a CSV document whose first row is the header.
func ReadCSV(r io.Reader) ([]*proppath.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv read: %w", err)
	}
	return toRecords(header, rows), nil
}

// WriteCSV writes a header row followed by one row per record.
func WriteCSV(w io.Writer, headers []string, records []*proppath.Record) error {
	headers = Exportable(headers)
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(columns.Cells(rec, headers)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

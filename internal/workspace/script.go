// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package workspace

import (
	"fmt"
	"strings"
)

// TableName is the name given to the loaded table.
const TableName = "TABLE1"

// Script builds the load script reading path from the connection named
// connName. Excel files always use embedded labels.
func Script(connName string, path []string, table string, f DataFormat) (string, error) {
	from := fmt.Sprintf("%s: LOAD * FROM [lib://%s/%s]", TableName, connName, strings.Join(path, "/"))

	switch f.Type {
	case FormatExcelOOXML, FormatExcelBIFF:
		if table == "" {
			return "", ErrTableRequired
		}
		kind := strings.ToLower(f.Type[strings.LastIndex(f.Type, "_")+1:])
		return fmt.Sprintf("%s(%s, embedded labels, table is [%s]);", from, kind, table), nil
	case FormatCSV:
		return fmt.Sprintf("%s(txt, codepage is %d, delimiter is %s, %s);",
			from, f.CodePage, f.Delimiter.ScriptCode, f.Quote), nil
	case FormatQVD:
		return from + "(qvd);", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, f.Type)
}

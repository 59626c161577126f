// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package workspace reads tabular files reachable through the application's
// data connections. The engine can only read such files by loading them into
// an app, so a scratch session app is opened, loaded with the file and read
// back as rows.
package workspace

import (
	"context"
	"errors"
)

var (
	// ErrSessionTimeout indicates the scratch session never became ready.
	ErrSessionTimeout = errors.New("scratch session did not become ready")

	// ErrUnsupportedFileType indicates a file the engine cannot load as a table.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrTableRequired indicates an Excel workbook was given without a sheet.
	ErrTableRequired = errors.New("a table name is required for Excel files")
)

// File formats reported by the engine.
const (
	FormatExcelBIFF  = "EXCEL_BIFF"
	FormatExcelOOXML = "EXCEL_OOXML"
	FormatCSV        = "CSV"
	FormatQVD        = "QVD"
)

// Connection is a data connection of an app.
type Connection struct {
	ID               string `json:"qId,omitempty"`
	Name             string `json:"qName"`
	ConnectionString string `json:"qConnectionString"`
	Type             string `json:"qType"`
}

// Delimiter describes a text file's field separator.
type Delimiter struct {
	Name       string `json:"qName,omitempty"`
	ScriptCode string `json:"qScriptCode,omitempty"`
	Number     int    `json:"qNumber,omitempty"`
}

// DataFormat is the engine's description of a file.
type DataFormat struct {
	Type       string    `json:"qType"`
	Label      string    `json:"qLabel,omitempty"`
	Quote      string    `json:"qQuote,omitempty"`
	CodePage   int       `json:"qCodePage,omitempty"`
	HeaderSize int       `json:"qHeaderSize,omitempty"`
	Delimiter  Delimiter `json:"qDelimiter,omitzero"`
}

// IsExcel reports whether the format is a workbook with named tables.
func (f DataFormat) IsExcel() bool {
	return f.Type == FormatExcelBIFF || f.Type == FormatExcelOOXML
}

// Supported reports whether the format can be loaded as a table.
func (f DataFormat) Supported() bool {
	return f.IsExcel() || f.Type == FormatCSV || f.Type == FormatQVD
}

// ItemKind classifies an entry while browsing connections.
type ItemKind string

// Item kinds.
const (
	KindConnection ItemKind = "CONNECTION"
	KindFolder     ItemKind = "FOLDER"
	KindFile       ItemKind = "FILE"
	KindTable      ItemKind = "TABLE"
)

// FolderItem is one entry of a browse listing.
type FolderItem struct {
	Name string   `json:"name"`
	Kind ItemKind `json:"kind"`
}

// Table is a loaded file: headers and rows of cell text.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Session is a scratch app used to load files.
type Session interface {
	// Ready reports whether the session accepts calls.
	Ready(ctx context.Context) (bool, error)
	CreateConnection(ctx context.Context, c Connection) (string, error)
	Connection(ctx context.Context, id string) (Connection, error)
	SetScript(ctx context.Context, script string) error
	Reload(ctx context.Context) error
	// Table returns the first table produced by the last reload.
	Table(ctx context.Context) (Table, error)
	Close() error
}

// Opener creates scratch sessions.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// Browser lists what the main app's connections can reach.
type Browser interface {
	Connections(ctx context.Context) ([]Connection, error)
	FolderItems(ctx context.Context, connID, path string) ([]FolderItem, error)
	GuessFileType(ctx context.Context, connID, path string) (DataFormat, error)
	FileTables(ctx context.Context, connID, path string, f DataFormat) ([]string, error)
}

// Package file serves a grid from a local CSV or XLSX copy of the report,
// for development and offline extraction.
package file

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"patdash/internal/core"
	"patdash/internal/source"
	"patdash/internal/source/export"
)

// Fetcher re-reads the file on every Fetch so edits show up on refresh.
type Fetcher struct {
	path    string
	sheet   string
	charset string
}

var _ source.Fetcher = (*Fetcher)(nil)

// New returns a Fetcher for path. The format follows the extension:
// .xlsx/.xlsm are workbooks, anything else is read as CSV.
func New(path, sheet, charset string) *Fetcher {
	return &Fetcher{path: path, sheet: sheet, charset: charset}
}

// Fetch reads and decodes the file.
func (f *Fetcher) Fetch(ctx context.Context) (core.Grid, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, source.Fail(f.path, "read", err)
	}

	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".xlsx", ".xlsm":
		g, err := export.DecodeXLSX(data, f.sheet)
		if err != nil {
			return nil, source.Fail(f.path, "decode xlsx", err)
		}
		return g, nil
	default:
		g, skipped, err := export.DecodeCSV(bytes.NewReader(data), f.charset)
		if err != nil {
			return nil, source.Fail(f.path, "decode csv", err)
		}
		if skipped > 0 {
			slog.WarnContext(ctx, "Skipped malformed CSV lines", "component", "source", "source", f.path, "skipped", skipped)
		}
		return g, nil
	}
}

func (f *Fetcher) String() string { return fmt.Sprintf("file:%s", f.path) }

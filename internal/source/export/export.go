// Package export downloads a drive spreadsheet through its public export
// endpoint, as CSV or as an XLSX workbook.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"

	"patdash/internal/core"
	"patdash/internal/source"
)

// Options configures a Fetcher.
type Options struct {
	Format  source.Format
	Charset string
	Sheet   string
	Timeout time.Duration
	Client  *http.Client
	// BaseURL replaces the export URL; used against test servers.
	BaseURL string
}

// Fetcher downloads the export of one spreadsheet link.
type Fetcher struct {
	link source.Link
	opts Options
}

var _ source.Fetcher = (*Fetcher)(nil)

// New builds a Fetcher for link. Only csv and xlsx formats are accepted.
func New(link source.Link, opts Options) (*Fetcher, error) {
	switch opts.Format {
	case "":
		opts.Format = source.FormatCSV
	case source.FormatCSV, source.FormatXLSX:
	default:
		return nil, fmt.Errorf("%w: export fetcher cannot serve %q", source.ErrUnknownFormat, opts.Format)
	}
	if !ValidCharset(opts.Charset) {
		return nil, fmt.Errorf("unsupported charset %q", opts.Charset)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{link: link, opts: opts}, nil
}

// URL returns the address the fetcher downloads from.
func (f *Fetcher) URL() string {
	if f.opts.BaseURL != "" {
		return f.opts.BaseURL
	}
	return f.link.ExportURL(f.opts.Format)
}

// Fetch downloads and decodes the spreadsheet.
func (f *Fetcher) Fetch(ctx context.Context) (core.Grid, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	src := f.link.String()
	start := time.Now()

	var buf bytes.Buffer
	err := requests.
		URL(f.URL()).
		Client(f.opts.Client).
		UserAgent("patdash/1.0").
		ToBytesBuffer(&buf).
		Fetch(ctx)
	if err != nil {
		return nil, source.Fail(src, "download", err)
	}
	body := buf.Bytes()
	if looksLikeHTML(body) {
		return nil, source.Fail(src, "download", ErrNotSpreadsheet)
	}

	var grid core.Grid
	switch f.opts.Format {
	case source.FormatXLSX:
		grid, err = DecodeXLSX(body, f.opts.Sheet)
		if err != nil {
			return nil, source.Fail(src, "decode xlsx", err)
		}
	default:
		var skipped int
		grid, skipped, err = DecodeCSV(bytes.NewReader(body), f.opts.Charset)
		if err != nil {
			return nil, source.Fail(src, "decode csv", err)
		}
		if skipped > 0 {
			slog.WarnContext(ctx, "Skipped malformed CSV lines", "component", "source", "source", src, "skipped", skipped)
		}
	}

	slog.InfoContext(ctx, "Spreadsheet downloaded",
		"component", "source",
		"source", src,
		"format", string(f.opts.Format),
		"bytes", len(body),
		"rows", grid.Rows(),
		"duration_ms", time.Since(start).Milliseconds())
	return grid, nil
}

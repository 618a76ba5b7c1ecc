// Package google reads the spreadsheet through the Sheets API v4 using a
// service account, for sheets that cannot be exported publicly.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"patdash/internal/core"
	"patdash/internal/source"
)

// Options configures the Sheets API client.
type Options struct {
	// Sheet is the tab title; empty picks the tab matching the link gid, or the first tab.
	Sheet string
	// Range is an A1 range inside the tab, "A:Z" when empty.
	Range              string
	Timeout            time.Duration
	ServiceAccountJSON string
	ServiceAccountFile string
}

// Client fetches raw values through the Sheets API.
type Client struct {
	svc     *gsheet.Service
	link    source.Link
	sheet   string
	rng     string
	timeout time.Duration
}

var _ source.Fetcher = (*Client)(nil)

// New creates a client authenticated with the configured service account.
func New(ctx context.Context, link source.Link, opts Options) (*Client, error) {
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, link, opts), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, link source.Link, opts Options) *Client {
	rng := strings.TrimSpace(opts.Range)
	if rng == "" {
		rng = "A:Z"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		svc:     svc,
		link:    link,
		sheet:   strings.TrimSpace(opts.Sheet),
		rng:     rng,
		timeout: timeout,
	}
}

// newSheetsService initializes a read-only Sheets service from inline JSON,
// a credentials file, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credsJSON := strings.TrimSpace(opts.ServiceAccountJSON)
	credsFile := strings.TrimSpace(opts.ServiceAccountFile)
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var data []byte
	switch {
	case credsJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials", "component", "sheets")
		data = []byte(credsJSON)
	case credsFile != "":
		slog.InfoContext(ctx, "Reading service account credentials", "component", "sheets", "path", credsFile)
		var err error
		data, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(data),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// Fetch reads the configured range with unformatted values so numbers keep
// their numeric type.
func (c *Client) Fetch(ctx context.Context) (core.Grid, error) {
	if c.svc == nil {
		return nil, source.Fail(c.link.String(), "init", errors.New("sheets service not initialized"))
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sheet, err := c.sheetTitle(ctx)
	if err != nil {
		return nil, source.Fail(c.link.String(), "resolve sheet", err)
	}

	rng := quoteSheet(sheet) + "!" + c.rng
	resp, err := c.svc.Spreadsheets.Values.Get(c.link.ID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, source.Fail(c.link.String(), "read "+rng, err)
	}

	grid := core.NewGrid(resp.Values)
	slog.InfoContext(ctx, "Sheet values read", "component", "sheets", "range", rng, "rows", grid.Rows())
	return grid, nil
}

// sheetTitle returns the configured tab, the tab whose id matches the link
// gid, or the first tab.
func (c *Client) sheetTitle(ctx context.Context) (string, error) {
	if c.sheet != "" {
		return c.sheet, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.link.ID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("get spreadsheet %s: %w", c.link.ID, err)
	}
	if len(ss.Sheets) == 0 {
		return "", errors.New("spreadsheet has no sheets")
	}
	if c.link.GID != "" {
		if gid, err := strconv.ParseInt(c.link.GID, 10, 64); err == nil {
			for _, s := range ss.Sheets {
				if s.Properties != nil && s.Properties.SheetId == gid {
					return s.Properties.Title, nil
				}
			}
		}
		slog.WarnContext(ctx, "No tab matches link gid, using first tab", "component", "sheets", "gid", c.link.GID)
	}
	if ss.Sheets[0].Properties == nil {
		return "", errors.New("first sheet has no properties")
	}
	return ss.Sheets[0].Properties.Title, nil
}

// quoteSheet quotes a tab title for A1 notation when it is not a plain word.
func quoteSheet(title string) string {
	if title == "" {
		return title
	}
	for _, r := range title {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			return "'" + strings.ReplaceAll(title, "'", "''") + "'"
		}
	}
	return title
}

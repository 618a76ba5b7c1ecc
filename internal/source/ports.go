// Package source turns a spreadsheet link into a raw grid.
package source

import (
	"context"
	"errors"
	"fmt"

	"patdash/internal/core"
)

// Fetcher retrieves the raw grid of the configured spreadsheet.
type Fetcher interface {
	Fetch(ctx context.Context) (core.Grid, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (core.Grid, error)

func (f FetcherFunc) Fetch(ctx context.Context) (core.Grid, error) { return f(ctx) }

// Format is the export format requested from the drive.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSheets Format = "sheets"
	FormatFile   Format = "file"
)

var (
	ErrEmptyLink     = errors.New("empty spreadsheet link")
	ErrUnknownFormat = errors.New("unknown source format")
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatXLSX, FormatSheets, FormatFile:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FetchError reports a failure retrieving or decoding the source grid.
type FetchError struct {
	Source string
	Op     string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fail wraps err as a FetchError. A nil err stays nil and an existing
// FetchError is returned unchanged.
func Fail(src, op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Source: src, Op: op, Err: err}
}

// IsFetchError reports whether err is a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

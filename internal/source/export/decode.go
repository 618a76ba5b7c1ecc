package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"patdash/internal/core"
)

// ErrNotSpreadsheet is returned when the drive answers with an HTML page,
// which is what happens for sheets that are not shared publicly.
var ErrNotSpreadsheet = errors.New("response is an HTML page, not a spreadsheet export (is the sheet shared publicly?)")

// Charsets understood by DecodeCSV.
const (
	CharsetUTF8    = "utf-8"
	CharsetLatin1  = "latin1"
	CharsetWindows = "windows-1252"
)

// ValidCharset reports whether DecodeCSV supports name.
func ValidCharset(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CharsetUTF8, "utf8", CharsetLatin1, "iso-8859-1", CharsetWindows, "cp1252":
		return true
	}
	return false
}

func decoder(r io.Reader, charset string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case CharsetLatin1, "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	case CharsetWindows, "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder())
	default:
		return r
	}
}

// DecodeCSV reads a headerless delimited export. Records that fail to parse
// are skipped and counted instead of aborting the whole grid.
func DecodeCSV(r io.Reader, charset string) (core.Grid, int, error) {
	cr := csv.NewReader(decoder(r, charset))
	cr.FieldsPerRecord = -1

	var (
		records [][]string
		skipped int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, rec)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return core.GridFromStrings(records), skipped, nil
}

// DecodeXLSX reads one worksheet of a workbook. An empty sheet name selects
// the first sheet.
func DecodeXLSX(data []byte, sheet string) (core.Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, errors.New("workbook has no worksheets")
		}
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return core.GridFromStrings(rows), nil
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

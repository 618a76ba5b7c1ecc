package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type (
	// Cell is a single untyped spreadsheet value: text, a number, or empty.
	Cell struct {
		text  string
		num   float64
		isNum bool
	}

	// Grid is a raw row-major sheet with no header interpretation.
	// It must not be mutated once built.
	Grid [][]Cell
)

// TextCell builds a text cell. Numeric-looking text stays text.
func TextCell(s string) Cell { return Cell{text: s} }

// NumberCell builds a numeric cell.
func NumberCell(f float64) Cell { return Cell{num: f, isNum: true} }

// CellOf converts a value as returned by a spreadsheet API into a Cell.
func CellOf(v any) Cell {
	switch t := v.(type) {
	case nil:
		return Cell{}
	case Cell:
		return t
	case string:
		return TextCell(t)
	case float64:
		return NumberCell(t)
	case float32:
		return NumberCell(float64(t))
	case int:
		return NumberCell(float64(t))
	case int64:
		return NumberCell(float64(t))
	case bool:
		return TextCell(strconv.FormatBool(t))
	default:
		return TextCell(strings.TrimSpace(fmt.Sprint(t)))
	}
}

// IsEmpty reports whether the cell holds nothing.
func (c Cell) IsEmpty() bool { return !c.isNum && c.text == "" }

// IsNumber reports whether the cell was produced as a number by the source.
func (c Cell) IsNumber() bool { return c.isNum }

// Text returns the cell rendered as text.
func (c Cell) Text() string {
	if c.isNum {
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	}
	return c.text
}

// Number coerces the cell to a float. It never fails loudly: anything that
// does not parse is reported as !ok.
func (c Cell) Number() (float64, bool) {
	if c.isNum {
		if math.IsNaN(c.num) || math.IsInf(c.num, 0) {
			return 0, false
		}
		return c.num, true
	}
	return ParseNumber(c.text)
}

// ParseNumber parses a trimmed decimal. A decimal comma ("12,5") is accepted
// when the plain form does not parse and at most two digits follow it, so a
// thousands separator ("1,234") stays unparsed.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		i := strings.IndexByte(s, ',')
		if i < 0 || strings.Count(s, ",") > 1 || strings.Contains(s, ".") {
			return 0, false
		}
		if frac := len(s) - i - 1; frac < 1 || frac > 2 {
			return 0, false
		}
		f, err = strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err != nil {
			return 0, false
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NewGrid converts a values matrix into a Grid.
func NewGrid(values [][]any) Grid {
	g := make(Grid, len(values))
	for i, row := range values {
		cells := make([]Cell, len(row))
		for j, v := range row {
			cells[j] = CellOf(v)
		}
		g[i] = cells
	}
	return g
}

// GridFromStrings converts string records (CSV, excelize rows) into a Grid.
func GridFromStrings(records [][]string) Grid {
	g := make(Grid, len(records))
	for i, row := range records {
		cells := make([]Cell, len(row))
		for j, v := range row {
			cells[j] = TextCell(v)
		}
		g[i] = cells
	}
	return g
}

// Rows returns the number of rows.
func (g Grid) Rows() int { return len(g) }

// At returns the cell at (row, col); out of range reads as empty.
func (g Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return Cell{}
	}
	return g[row][col]
}

// Package extract scans a raw PAT report grid for month headers and
// fortnight blocks and reshapes the numbers below them into a table.
package extract

import (
	"strings"

	"patdash/internal/core"
)

// Extract runs a single top-to-bottom pass over g and returns one record
// per section marker that has a data row. It never fails: cells that do not
// coerce to numbers become nulls or disqualify a candidate row.
func Extract(g core.Grid, p Profile) core.Table {
	table := core.Table{Profile: p.Name, Fields: p.FieldNames()}
	if len(p.Fields) == 0 {
		return table
	}

	months := make(map[string]struct{}, len(p.Months))
	for _, m := range p.Months {
		months[core.Normalize(m)] = struct{}{}
	}
	marker := core.Normalize(p.Marker)

	currentMonth := ""
	for i := 0; i < g.Rows(); i++ {
		text := core.Normalize(g.At(i, 0).Text())

		if _, ok := months[text]; ok {
			currentMonth = text
			continue
		}
		if currentMonth == "" || marker == "" || !strings.Contains(text, marker) {
			continue
		}

		var (
			label string
			rows  []int
		)
		switch p.Strategy {
		case StrategyFixedOffset:
			label = g.At(i-1, 0).Text()
			rows = []int{i + 1}
		default:
			label = text
			rows = window(i, p.Window, g.Rows())
		}

		for _, r := range rows {
			rec, ok := buildRecord(g, r, p)
			if !ok {
				continue
			}
			rec.Month = core.MonthDisplay(currentMonth)
			rec.Fortnight = core.FortnightFromLabel(label, p.LabelKeyword)
			table.Records = append(table.Records, rec)
			break
		}
	}
	return table
}

// window returns the candidate data rows i+1..i+size clipped to n rows.
func window(i, size, n int) []int {
	if size < 1 {
		size = 1
	}
	out := make([]int, 0, size)
	for r := i + 1; r <= i+size && r < n; r++ {
		out = append(out, r)
	}
	return out
}

// buildRecord reads the profile fields from row r. It reports false when a
// required field (always the anchor) does not coerce.
func buildRecord(g core.Grid, r int, p Profile) (core.Record, bool) {
	if r < 0 || r >= g.Rows() {
		return core.Record{}, false
	}
	values := make(map[string]core.Value, len(p.Fields))
	for idx, f := range p.Fields {
		v, ok := g.At(r, f.Column).Number()
		if !ok {
			if idx == 0 || f.Required {
				return core.Record{}, false
			}
			values[f.Name] = core.Null
			continue
		}
		values[f.Name] = core.Some(v)
	}
	return core.Record{Values: values}, true
}

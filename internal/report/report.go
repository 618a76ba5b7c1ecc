// Package report aggregates an extracted table into what the dashboard
// shows: headline totals, the placement rate, the hires-per-fortnight chart
// and the raw grid.
package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"patdash/internal/core"
)

// Field names the headline metrics are computed from.
const (
	FieldOpenings = "vagas"
	FieldHired    = "contratados"

	// Dataframe columns are positional so field names never collide.
	colMonth     = "_month"
	colFortnight = "_fortnight"
)

type (
	// Total is the column sum of one field, nulls skipped.
	Total struct {
		Field string
		Label string
		Sum   float64
		Count int
	}

	// Bar is one chart bar: hires of a month in a fortnight.
	Bar struct {
		Month     string
		Fortnight core.Fortnight
		Value     float64
		Valid     bool
		// Percent is Value relative to the tallest bar, 0..100.
		Percent int
	}

	// Group is all bars of one month, one per fortnight.
	Group struct {
		Month string
		Bars  []Bar
	}

	// Summary is the dashboard view of a table.
	Summary struct {
		Profile    string
		Records    int
		Totals     []Total
		Openings   float64
		Hired      float64
		Rate       float64
		HasRate    bool
		ChartField string
		Chart      []Group
		Header     []string
		Rows       [][]string
	}
)

// Build computes the summary of t. labels maps field names to column
// titles; missing labels fall back to the field name.
func Build(t core.Table, labels map[string]string) Summary {
	s := Summary{Profile: t.Profile, Records: t.Len(), ChartField: FieldHired}
	s.Header = append([]string{"Mês", "Quinzena"}, labelsFor(t.Fields, labels)...)
	if t.Empty() {
		for _, f := range t.Fields {
			s.Totals = append(s.Totals, Total{Field: f, Label: label(f, labels)})
		}
		return s
	}

	df := frame(t)
	for i, f := range t.Fields {
		var vals []float64
		if df.Err == nil {
			vals = df.Col(valueCol(i)).Float()
		} else {
			vals = column(t, f)
		}
		sum, n := sumValid(vals)
		s.Totals = append(s.Totals, Total{Field: f, Label: label(f, labels), Sum: sum, Count: n})
		switch f {
		case FieldOpenings:
			s.Openings = sum
		case FieldHired:
			s.Hired = sum
		}
	}
	if has(t.Fields, FieldOpenings) && has(t.Fields, FieldHired) && s.Openings > 0 {
		s.Rate = s.Hired / s.Openings * 100
		s.HasRate = true
	}
	if i := index(t.Fields, FieldHired); i >= 0 && df.Err == nil {
		s.Chart = chart(df, valueCol(i), t.Months())
	}
	s.Rows = rows(t)
	return s
}

// frame loads the table into a dataframe, nulls as NaN.
func frame(t core.Table) dataframe.DataFrame {
	months := make([]string, t.Len())
	fortnights := make([]string, t.Len())
	cols := make([]series.Series, 0, len(t.Fields)+2)
	for i, r := range t.Records {
		months[i] = r.Month
		fortnights[i] = string(r.Fortnight)
	}
	cols = append(cols,
		series.New(months, series.String, colMonth),
		series.New(fortnights, series.String, colFortnight))
	for i, f := range t.Fields {
		cols = append(cols, series.New(column(t, f), series.Float, valueCol(i)))
	}
	return dataframe.New(cols...)
}

func valueCol(i int) string { return "v" + strconv.Itoa(i) }

// column returns one field across all records, nulls as NaN.
func column(t core.Table, f string) []float64 {
	vals := make([]float64, t.Len())
	for i, r := range t.Records {
		v := r.Get(f)
		if v.Valid {
			vals[i] = v.V
		} else {
			vals[i] = math.NaN()
		}
	}
	return vals
}

// chart groups hires by month (encounter order) and fortnight.
func chart(df dataframe.DataFrame, hiredCol string, months []string) []Group {
	fortnights := []core.Fortnight{core.FirstFortnight, core.SecondFortnight}
	type key struct {
		month string
		f     core.Fortnight
	}
	sums := map[key]float64{}
	seen := map[key]bool{}
	for _, f := range fortnights {
		sub := df.Filter(dataframe.F{Colname: colFortnight, Comparator: series.Eq, Comparando: string(f)})
		if sub.Err != nil || sub.Nrow() == 0 {
			continue
		}
		ms := sub.Col(colMonth).Records()
		vs := sub.Col(hiredCol).Float()
		for i, m := range ms {
			k := key{m, f}
			if math.IsNaN(vs[i]) {
				continue
			}
			sums[k] += vs[i]
			seen[k] = true
		}
	}

	var maxV float64
	for _, v := range sums {
		maxV = math.Max(maxV, v)
	}
	groups := make([]Group, 0, len(months))
	for _, m := range months {
		g := Group{Month: m}
		for _, f := range fortnights {
			k := key{m, f}
			b := Bar{Month: m, Fortnight: f, Value: sums[k], Valid: seen[k]}
			if maxV > 0 && b.Value > 0 {
				b.Percent = int(math.Round(b.Value / maxV * 100))
				if b.Percent < 2 {
					b.Percent = 2
				}
			}
			g.Bars = append(g.Bars, b)
		}
		groups = append(groups, g)
	}
	return groups
}

func rows(t core.Table) [][]string {
	out := make([][]string, 0, t.Len())
	for _, r := range t.Records {
		row := []string{r.Month, string(r.Fortnight)}
		for _, f := range t.Fields {
			row = append(row, FormatValue(r.Get(f)))
		}
		out = append(out, row)
	}
	return out
}

// FormatValue renders a value for the grid, nulls as empty text.
func FormatValue(v core.Value) string {
	if !v.Valid {
		return ""
	}
	return FormatNumber(v.V)
}

// FormatNumber renders integers without decimals and others with a comma.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strings.Replace(strconv.FormatFloat(f, 'f', 1, 64), ".", ",", 1)
}

// FormatRate renders a percentage with one decimal, "12.5%" style.
func FormatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 1, 64) + "%"
}

func sumValid(vals []float64) (float64, int) {
	var sum float64
	n := 0
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	return sum, n
}

func label(field string, labels map[string]string) string {
	if l, ok := labels[field]; ok && l != "" {
		return l
	}
	return field
}

func labelsFor(fields []string, labels map[string]string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = label(f, labels)
	}
	return out
}

func has(fields []string, name string) bool { return index(fields, name) >= 0 }

func index(fields []string, name string) int {
	for i, f := range fields {
		if f == name {
			return i
		}
	}
	return -1
}

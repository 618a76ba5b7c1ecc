package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fortnight labels as shown on the dashboard.
const (
	FirstFortnight  Fortnight = "1ª"
	SecondFortnight Fortnight = "2ª"
)

// Default month set of the PAT report (August to December).
var DefaultMonths = []string{"AGOSTO", "SETEMBRO", "OUTUBRO", "NOVEMBRO", "DEZEMBRO"}

var monthCaser = cases.Title(language.BrazilianPortuguese)

type (
	// Fortnight is the half-month period a record belongs to.
	Fortnight string

	// Value is a numeric field that may be missing.
	Value struct {
		V     float64
		Valid bool
	}

	// Record is one extracted fortnight row.
	Record struct {
		Month     string
		Fortnight Fortnight
		Values    map[string]Value
	}

	// Table is the ordered result of one scan. Fields lists the value
	// names in profile order.
	Table struct {
		Profile string
		Fields  []string
		Records []Record
	}
)

// Null is the missing value.
var Null = Value{}

// Some wraps a present value.
func Some(v float64) Value { return Value{V: v, Valid: true} }

// MonthDisplay turns a normalised month key ("AGOSTO") into its display form ("Agosto").
func MonthDisplay(key string) string {
	return monthCaser.String(strings.ToLower(strings.TrimSpace(key)))
}

// FortnightFromLabel returns FirstFortnight when label mentions the first
// half of the month ("PRIMEIRA"), SecondFortnight otherwise.
func FortnightFromLabel(label, firstKeyword string) Fortnight {
	if firstKeyword == "" {
		firstKeyword = "PRIMEIRA"
	}
	if strings.Contains(Normalize(label), Normalize(firstKeyword)) {
		return FirstFortnight
	}
	return SecondFortnight
}

// Normalize trims and upper-cases cell text for marker comparisons.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Get returns the named value, Null when absent.
func (r Record) Get(field string) Value {
	if r.Values == nil {
		return Null
	}
	return r.Values[field]
}

// Empty reports whether the scan matched nothing.
func (t Table) Empty() bool { return len(t.Records) == 0 }

// Len returns the number of records.
func (t Table) Len() int { return len(t.Records) }

// Months returns the distinct months in encounter order.
func (t Table) Months() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(t.Records))
	for _, r := range t.Records {
		if _, ok := seen[r.Month]; ok {
			continue
		}
		seen[r.Month] = struct{}{}
		out = append(out, r.Month)
	}
	return out
}

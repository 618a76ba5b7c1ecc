package core

import (
	"math"
	"testing"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"12", 12, true},
		{" 12 ", 12, true},
		{"12.5", 12.5, true},
		{"12,5", 12.5, true},
		{"-3", -3, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"1.234,5", 0, false},
		{"12,25", 12.25, true},
		{"1,234", 0, false},
		{"12,", 0, false},
		{"1,2,3", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"Vagas captadas", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseNumber(%q) = %v,%v; want %v,%v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCellNumber(t *testing.T) {
	if v, ok := NumberCell(7).Number(); !ok || v != 7 {
		t.Fatalf("number cell: got %v,%v", v, ok)
	}
	if _, ok := NumberCell(math.NaN()).Number(); ok {
		t.Fatalf("NaN cell must not coerce")
	}
	if v, ok := TextCell("30").Number(); !ok || v != 30 {
		t.Fatalf("text cell: got %v,%v", v, ok)
	}
	if _, ok := (Cell{}).Number(); ok {
		t.Fatalf("empty cell must not coerce")
	}
}

func TestCellOf(t *testing.T) {
	tests := []struct {
		in       any
		wantText string
		wantNum  bool
	}{
		{nil, "", false},
		{"AGOSTO", "AGOSTO", false},
		{float64(12), "12", true},
		{int(5), "5", true},
		{int64(9), "9", true},
		{true, "true", false},
	}
	for _, tt := range tests {
		c := CellOf(tt.in)
		if c.Text() != tt.wantText || c.IsNumber() != tt.wantNum {
			t.Errorf("CellOf(%v) = %q num=%v; want %q num=%v", tt.in, c.Text(), c.IsNumber(), tt.wantText, tt.wantNum)
		}
	}
}

func TestGridAtOutOfRange(t *testing.T) {
	g := NewGrid([][]any{{"a"}, {}, {1.0, "b"}})
	if g.Rows() != 3 {
		t.Fatalf("rows: got %d", g.Rows())
	}
	if !g.At(1, 0).IsEmpty() {
		t.Fatalf("short row must read empty")
	}
	if !g.At(-1, 0).IsEmpty() || !g.At(3, 0).IsEmpty() || !g.At(0, 4).IsEmpty() {
		t.Fatalf("out of range must read empty")
	}
	if got := g.At(2, 1).Text(); got != "b" {
		t.Fatalf("At(2,1): got %q", got)
	}
}

func TestGridFromStrings(t *testing.T) {
	g := GridFromStrings([][]string{{"AGOSTO", ""}, {"12", "1"}})
	if g.At(1, 0).IsNumber() {
		t.Fatalf("string records must stay text")
	}
	if v, ok := g.At(1, 0).Number(); !ok || v != 12 {
		t.Fatalf("coercion: got %v,%v", v, ok)
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"patdash/internal/config"
	"patdash/internal/extract"
	"patdash/internal/source"
	"patdash/internal/source/export"
	"patdash/internal/source/file"
)

const sampleCSV = `RELATÓRIO PAT,,,,
AGOSTO,,,,
PRIMEIRA QUINZENA,,,,
VAGAS,PCD,EMPRESAS,ATENDIDOS,CONTRATADOS
12,1,4,30,5
SEGUNDA QUINZENA,,,,
8,0,3,22,2
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pat.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestBuildFetcher(t *testing.T) {
	base := config.Config{
		SheetLink:     config.DefaultSheetLink,
		SourceCharset: "utf-8",
		FetchTimeout:  config.Load().FetchTimeout,
	}

	t.Run("csv export", func(t *testing.T) {
		cfg := base
		cfg.SourceFormat = "csv"
		f, key, err := buildFetcher(context.Background(), &cfg)
		if err != nil {
			t.Fatalf("buildFetcher: %v", err)
		}
		if _, ok := f.(*export.Fetcher); !ok {
			t.Fatalf("fetcher type %T", f)
		}
		if !strings.HasPrefix(key, "csv:") || !strings.Contains(key, "1u2AbsJ-iiZLtHul2jv6yf1TEnYu8kOwe") {
			t.Fatalf("key=%q", key)
		}
	})

	t.Run("local file", func(t *testing.T) {
		cfg := base
		cfg.SourceFormat = "file"
		cfg.SourceFile = "/tmp/pat.xlsx"
		f, key, err := buildFetcher(context.Background(), &cfg)
		if err != nil {
			t.Fatalf("buildFetcher: %v", err)
		}
		if _, ok := f.(*file.Fetcher); !ok || key != "file:/tmp/pat.xlsx" {
			t.Fatalf("fetcher %T key %q", f, key)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		cfg := base
		cfg.SourceFormat = "ods"
		if _, _, err := buildFetcher(context.Background(), &cfg); !errors.Is(err, source.ErrUnknownFormat) {
			t.Fatalf("err=%v", err)
		}
	})

	t.Run("empty link", func(t *testing.T) {
		cfg := base
		cfg.SourceFormat = "xlsx"
		cfg.SheetLink = " "
		if _, _, err := buildFetcher(context.Background(), &cfg); !errors.Is(err, source.ErrEmptyLink) {
			t.Fatalf("err=%v", err)
		}
	})
}

func TestLoadProfile(t *testing.T) {
	cfg := &config.Config{LayoutProfile: "quinzena"}
	p, err := loadProfile(cfg, "")
	if err != nil || p.Name != "quinzena" {
		t.Fatalf("default profile: %v %q", err, p.Name)
	}
	p, err = loadProfile(cfg, "vagas-captadas")
	if err != nil || p.Strategy != extract.StrategyFixedOffset {
		t.Fatalf("override: %v %+v", err, p)
	}
	if _, err := loadProfile(cfg, "nope"); !errors.Is(err, extract.ErrUnknownProfile) {
		t.Fatalf("unknown profile err=%v", err)
	}
}

func TestRunExtract(t *testing.T) {
	for _, k := range []string{"LAYOUT_FILE", "SOURCE_CHARSET", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	path := writeSample(t)

	t.Run("table", func(t *testing.T) {
		var out bytes.Buffer
		if err := runExtract(context.Background(), extractOptions{file: path}, &out); err != nil {
			t.Fatalf("runExtract: %v", err)
		}
		got := out.String()
		for _, want := range []string{"Mês", "Agosto", "1ª", "2ª", "Total Vagas: 20", "Total Contratados: 7", "Taxa de Colocação: 35.0%"} {
			if !strings.Contains(got, want) {
				t.Errorf("output missing %q:\n%s", want, got)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		if err := runExtract(context.Background(), extractOptions{file: path, profile: "quinzena-completo", asJSON: true}, &out); err != nil {
			t.Fatalf("runExtract: %v", err)
		}
		var got struct {
			Profile string           `json:"profile"`
			Records []map[string]any `json:"records"`
		}
		if err := json.Unmarshal(out.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v\n%s", err, out.String())
		}
		if got.Profile != "quinzena-completo" || len(got.Records) != 2 {
			t.Fatalf("got %+v", got)
		}
		if got.Records[0]["atendidos"] != 30.0 || got.Records[1]["contratados"] != 2.0 {
			t.Fatalf("records %+v", got.Records)
		}
	})

	t.Run("missing file fails validation", func(t *testing.T) {
		err := runExtract(context.Background(), extractOptions{file: "/non/existent.csv"}, &bytes.Buffer{})
		if err == nil || !strings.Contains(err.Error(), "source file does not exist") {
			t.Fatalf("err=%v", err)
		}
	})
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	if !names["serve"] || !names["extract"] {
		t.Fatalf("commands = %v", names)
	}
}

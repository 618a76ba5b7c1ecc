package main

import (
	"context"
	"fmt"
	"io"

	"patdash/internal/config"
	"patdash/internal/extract"
	"patdash/internal/log"
	"patdash/internal/source"
	"patdash/internal/source/export"
	"patdash/internal/source/file"
	"patdash/internal/source/google"
)

// loadConfig reads and validates the environment.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *log.Logger {
	logger := log.New(log.Config{Level: cfg.SlogLevel(), Component: log.ComponentApp, Output: w})
	log.SetDefault(logger)
	return logger
}

// loadProfile resolves the layout profile, name overriding LAYOUT_PROFILE.
func loadProfile(cfg *config.Config, name string) (extract.Profile, error) {
	reg := extract.NewRegistry()
	if cfg.LayoutFile != "" {
		if err := reg.LoadFile(cfg.LayoutFile); err != nil {
			return extract.Profile{}, err
		}
	}
	if name == "" {
		name = cfg.LayoutProfile
	}
	return reg.Get(name)
}

// buildFetcher picks the source implementation for SOURCE_FORMAT. The
// returned key identifies the source in logs and the grid cache.
func buildFetcher(ctx context.Context, cfg *config.Config) (source.Fetcher, string, error) {
	format, err := source.ParseFormat(cfg.SourceFormat)
	if err != nil {
		return nil, "", err
	}

	if format == source.FormatFile {
		return file.New(cfg.SourceFile, cfg.SheetName, cfg.SourceCharset), "file:" + cfg.SourceFile, nil
	}

	link, err := source.ParseLink(cfg.SheetLink)
	if err != nil {
		return nil, "", fmt.Errorf("SHEET_LINK: %w", err)
	}

	if format == source.FormatSheets {
		cli, err := google.New(ctx, link, google.Options{
			Sheet:              cfg.SheetName,
			Range:              cfg.SheetRange,
			Timeout:            cfg.FetchTimeout,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, "", err
		}
		return cli, "sheets:" + link.String(), nil
	}

	f, err := export.New(link, export.Options{
		Format:  format,
		Charset: cfg.SourceCharset,
		Sheet:   cfg.SheetName,
		Timeout: cfg.FetchTimeout,
	})
	if err != nil {
		return nil, "", err
	}
	return f, string(format) + ":" + link.String(), nil
}

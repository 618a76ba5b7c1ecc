package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"patdash/internal/config"
	"patdash/internal/report"
	"patdash/internal/services"
)

type extractOptions struct {
	file    string
	profile string
	asJSON  bool
}

func newExtractCmd() *cobra.Command {
	var opts extractOptions
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Fetch the spreadsheet once and print the extracted table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runExtract(ctx, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read a local .csv or .xlsx instead of SHEET_LINK")
	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "", "layout profile (default LAYOUT_PROFILE)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print records as JSON")
	return cmd
}

func runExtract(ctx context.Context, opts extractOptions, out io.Writer) error {
	cfg := config.Load()
	if opts.file != "" {
		cfg.SourceFormat = "file"
		cfg.SourceFile = opts.file
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	newLogger(cfg, os.Stderr)

	profile, err := loadProfile(cfg, opts.profile)
	if err != nil {
		return err
	}
	fetcher, _, err := buildFetcher(ctx, cfg)
	if err != nil {
		return err
	}

	snap, err := services.NewDashboardService(fetcher, profile).Load(ctx)
	if err != nil {
		return err
	}
	if opts.asJSON {
		return writeJSON(out, snap)
	}
	return writeTable(out, snap)
}

type jsonRecord map[string]any

func writeJSON(out io.Writer, snap services.Snapshot) error {
	records := make([]jsonRecord, 0, snap.Table.Len())
	for _, r := range snap.Table.Records {
		rec := jsonRecord{"mes": r.Month, "quinzena": string(r.Fortnight)}
		for _, f := range snap.Table.Fields {
			if v := r.Get(f); v.Valid {
				rec[f] = v.V
			} else {
				rec[f] = nil
			}
		}
		records = append(records, rec)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"profile": snap.Table.Profile,
		"fields":  snap.Table.Fields,
		"records": records,
	})
}

func writeTable(out io.Writer, snap services.Snapshot) error {
	if snap.Empty() {
		_, err := fmt.Fprintln(out, "A planilha foi lida, mas os dados numéricos não foram encontrados. Verifique se os nomes dos meses estão na Coluna A.")
		return err
	}
	sum := snap.Summary
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(sum.Header, "\t"))
	for _, row := range sum.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	for _, t := range sum.Totals {
		fmt.Fprintf(out, "Total %s: %s\n", t.Label, report.FormatNumber(t.Sum))
	}
	if sum.HasRate {
		fmt.Fprintf(out, "Taxa de Colocação: %s\n", report.FormatRate(sum.Rate))
	}
	return nil
}

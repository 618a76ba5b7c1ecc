// Command patdash serves the PAT Jacareí monitoring dashboard and can
// print the extracted table of a spreadsheet from the command line.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "patdash",
		Short: "PAT Jacareí monitoring dashboard",
		Long: `patdash reads the PAT fortnightly report spreadsheet, extracts the
openings and hires of each fortnight and serves them as a dashboard.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newExtractCmd())
	return root
}

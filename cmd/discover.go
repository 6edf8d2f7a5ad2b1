package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nichescout/internal/report"
)

// newDiscoverCmd creates the 'discover' subcommand: one full pipeline
// pass from trending topics to ranked, exported products.
func newDiscoverCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run one discovery pass and export the ranked results",
		Long: `Fetches trending topics, searches the marketplace for related
products, validates each one against community sentiment, and writes
the ranked results to the configured report formats.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			progress := progressPrinter(quiet)
			outcome, err := a.finder.Run(ctx, progress)
			if err != nil {
				return fmt.Errorf("discovery run: %w", err)
			}

			if !quiet {
				fmt.Fprintln(os.Stdout, report.Summary(outcome.Products, a.cfg.Report.TopProducts))
			}

			for _, exporter := range a.exporters() {
				path, err := exporter.Export(outcome.Products)
				if err != nil {
					a.logger.Error("export failed", zap.Error(err))
					continue
				}
				fmt.Fprintf(os.Stdout, "Report written to %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress the terminal summary and progress output")
	return cmd
}

func progressPrinter(quiet bool) func(completed, total int) {
	if quiet {
		return nil
	}
	return func(completed, total int) {
		fmt.Fprintf(os.Stderr, "\rAnalyzing products: %d/%d", completed, total)
		if completed == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

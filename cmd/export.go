package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nichescout/internal/report"
)

// newExportCmd creates the 'export' subcommand: re-export previously
// persisted products without running the pipeline again.
func newExportCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the persisted product leaderboard",
		Long: `Reads the highest-scoring products from the database and writes
them to the configured report formats. Requires db.dsn to be set.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if a.store == nil {
				return errors.New("persistence is disabled; set db.dsn to use export")
			}

			products, err := a.store.TopProducts(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("fetch top products: %w", err)
			}
			if len(products) == 0 {
				fmt.Fprintln(os.Stdout, "No persisted products yet; run discover first.")
				return nil
			}

			fmt.Fprintln(os.Stdout, report.Summary(products, a.cfg.Report.TopProducts))
			for _, exporter := range a.exporters() {
				path, err := exporter.Export(products)
				if err != nil {
					return fmt.Errorf("export report: %w", err)
				}
				fmt.Fprintf(os.Stdout, "Report written to %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of products to export")
	return cmd
}

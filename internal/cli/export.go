package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rcsgugs/gugs-db/internal/logger"
	"github.com/rcsgugs/gugs-db/internal/storage"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *options) *cobra.Command {
	var (
		year int
		out  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a year's results table as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if year == 0 {
				year = a.now().Year()
			}

			table, err := a.store.LoadTable(year)
			if err != nil {
				return fmt.Errorf("loading snapshot: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating export file: %w", err)
				}
				defer f.Close()
				w = f
			}

			if err := storage.ExportCSV(table, w); err != nil {
				return fmt.Errorf("exporting %d: %w", year, err)
			}
			a.log.Info("Exported results", logger.Fields{"year": year, "rows": len(table.Rows), "out": out})
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Race year to export (default current year)")
	cmd.Flags().StringVar(&out, "out", "-", "Output file, - for stdout")

	return cmd
}

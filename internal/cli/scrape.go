package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newScrapeCmd(opts *options) *cobra.Command {
	var (
		year  int
		month int
		root  string
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Download result files from the calendar without ingesting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if month < 0 || month > 12 {
				return fmt.Errorf("invalid month: %d (must be 1-12)", month)
			}
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if year == 0 {
				year = a.now().Year()
			}
			dir := a.downloadRoot(root)

			var files []string
			if month == 0 {
				files, err = a.scraper().ScrapeYear(cmd.Context(), dir, year)
			} else {
				files, err = a.scraper().ScrapeMonth(cmd.Context(), dir, year, time.Month(month))
			}
			if err != nil {
				return err
			}
			return WriteFiles(cmd.OutOrStdout(), files, a.format)
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Race year (default current year)")
	cmd.Flags().IntVar(&month, "month", 0, "Month 1-12 (default every month up to now)")
	cmd.Flags().StringVar(&root, "root", "", "Download root folder (default download_dir)")

	return cmd
}

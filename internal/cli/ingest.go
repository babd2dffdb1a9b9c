package cli

import (
	"context"
	"fmt"

	"github.com/rcsgugs/gugs-db/internal/logger"
	"github.com/rcsgugs/gugs-db/internal/result"
	"github.com/spf13/cobra"
)

type ingestFlags struct {
	year   int
	scrape bool
	root   string
	db     bool
}

func newIngestCmd(opts *options) *cobra.Command {
	flags := &ingestFlags{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build the results table for a race year",
		Long: `Build the club results table for a race year from the downloaded
workbooks, save it as the year's snapshot, and report the rows gained and
lost since the previous snapshot. Exits with code 2 when new rows were added.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.flushMetrics()

			out, err := a.ingest(cmd.Context(), *flags)
			if err != nil {
				return err
			}
			if err := WriteIngest(cmd.OutOrStdout(), out, a.format, a.verbose); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			if out.NewRowCount > 0 {
				return ErrNewRows
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&flags.year, "year", 0, "Race year to ingest (default current year)")
	cmd.Flags().BoolVar(&flags.scrape, "scrape", false, "Download the year's result files before building")
	cmd.Flags().StringVar(&flags.root, "root", "", "Results root folder (default download_dir)")
	cmd.Flags().BoolVar(&flags.db, "db", false, "Also replace the year in the database")

	return cmd
}

// ingest runs one (year, scrape) ingestion and returns its summary.
func (a *app) ingest(ctx context.Context, flags ingestFlags) (*IngestResult, error) {
	year := flags.year
	if year == 0 {
		year = a.now().Year()
	}
	root := a.downloadRoot(flags.root)

	var downloaded []string
	if flags.scrape {
		a.log.Info("Scraping result files", logger.Fields{"year": year, "root": root})
		files, err := a.scraper().ScrapeYear(ctx, root, year)
		if err != nil {
			return nil, fmt.Errorf("scraping results: %w", err)
		}
		downloaded = files
	}

	b, err := a.builder()
	if err != nil {
		return nil, err
	}
	table, err := b.Build(ctx, year, root)
	if err != nil {
		return nil, fmt.Errorf("building results table: %w", err)
	}

	previous, err := a.store.LoadTable(year)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	diff := result.Diff(previous, table)

	if err := a.store.SaveTable(table); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	a.log.Debug("Saved snapshot", logger.Fields{"year": year, "dir": a.store.Dir()})

	if flags.db {
		store, closeDB, err := a.database(ctx)
		if err != nil {
			return nil, err
		}
		defer closeDB()
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		if err := store.ReplaceYear(ctx, table); err != nil {
			return nil, err
		}
	}

	return &IngestResult{
		Year:            year,
		RunID:           table.RunID,
		BuiltAt:         table.BuiltAt,
		Downloaded:      len(downloaded),
		Sources:         table.Sources,
		RowCount:        len(table.Rows),
		NewRows:         diff.NewRows,
		NewRowCount:     len(diff.NewRows),
		RemovedRowCount: len(diff.RemovedRows),
		ByRace:          diff.ByRace,
		Database:        flags.db,
	}, nil
}

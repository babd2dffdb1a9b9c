package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcsgugs/gugs-db/internal/database"
	"github.com/rcsgugs/gugs-db/internal/forecast"
	"github.com/rcsgugs/gugs-db/internal/result"
	"github.com/spf13/cobra"
)

const (
	sourceSnapshot = "snapshot"
	sourceDB       = "db"
)

func newPredictCmd(opts *options) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "predict NAME",
		Short: "Forecast a runner's next finishing time per distance category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(args[0]) == "" {
				return forecast.ErrEmptyQuery
			}
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.flushMetrics()

			rows, err := a.allRows(cmd.Context(), source)
			if err != nil {
				return err
			}
			report := a.forecaster().Forecast(args[0], rows)
			return WritePredict(cmd.OutOrStdout(), report, a.format)
		},
	}

	cmd.Flags().StringVar(&source, "source", sourceSnapshot, "Where to read results from: snapshot or db")

	return cmd
}

func (a *app) allRows(ctx context.Context, source string) ([]*result.Row, error) {
	switch strings.ToLower(source) {
	case sourceSnapshot:
		rows, err := a.store.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("loading snapshots: %w", err)
		}
		return rows, nil
	case sourceDB:
		store, closeDB, err := a.database(ctx)
		if err != nil {
			return nil, err
		}
		defer closeDB()
		return store.AllResults(ctx)
	default:
		return nil, fmt.Errorf("invalid source: %s (must be 'snapshot' or 'db')", source)
	}
}

func newRacesCmd(opts *options) *cobra.Command {
	var (
		threshold   float64
		withContact bool
		sortOrder   string
	)

	cmd := &cobra.Command{
		Use:   "races NAME",
		Short: "List the races of runners whose name resembles NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			order, err := parseSortOrder(sortOrder)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = a.cfg.SimilarityThreshold
			}

			ctx := cmd.Context()
			store, closeDB, err := a.database(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			out := &RacesResult{Query: args[0], Threshold: threshold}
			if withContact {
				races, err := store.FindRunnerRacesWithContact(ctx, args[0], threshold)
				if err != nil {
					return err
				}
				sortContactRows(races, order)
				out.WithContact = races
			} else {
				races, err := store.FindRunnerRaces(ctx, args[0], threshold)
				if err != nil {
					return err
				}
				sortRows(races, order)
				out.Races = races
			}
			return WriteRaces(cmd.OutOrStdout(), out, a.format)
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", database.DefaultThreshold, "Name similarity threshold between 0 and 1")
	cmd.Flags().BoolVar(&withContact, "with-contact", false, "Join the member contact details")
	cmd.Flags().StringVar(&sortOrder, "sort", string(SortByYear), "Sort order: year, race or time")

	return cmd
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rcsgugs/gugs-db/internal/logger"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func newScheduleCmd(opts *options) *cobra.Command {
	var (
		spec string
		db   bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Scrape and ingest the current year on a cron schedule",
		Long: `Run "ingest --scrape" for the current year on a cron schedule until
interrupted. Runs never overlap.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("spec") {
				spec = a.cfg.Schedule
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := a.schedule(ctx, spec, db)
			if err != nil {
				return err
			}
			c.Start()
			a.log.Info("Scheduler started", logger.Fields{"spec": spec})

			<-ctx.Done()
			<-c.Stop().Done()
			a.log.Info("Scheduler stopped", nil)
			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "spec", "0 3 1 * *", "Cron spec (minute hour dom month dow)")
	cmd.Flags().BoolVar(&db, "db", false, "Also replace the year in the database")

	return cmd
}

// schedule registers the ingestion job on a new cron without starting it.
func (a *app) schedule(ctx context.Context, spec string, db bool) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		a.runScheduled(ctx, db)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return c, nil
}

func (a *app) runScheduled(ctx context.Context, db bool) {
	defer a.flushMetrics()

	out, err := a.ingest(ctx, ingestFlags{scrape: true, db: db})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		a.log.Error("Scheduled ingest failed", nil, err)
		return
	}
	a.log.Info("Scheduled ingest finished", logger.Fields{
		"year":     out.Year,
		"run_id":   out.RunID,
		"rows":     out.RowCount,
		"new_rows": out.NewRowCount,
	})
}

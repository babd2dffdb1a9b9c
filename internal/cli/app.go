package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rcsgugs/gugs-db/internal/builder"
	"github.com/rcsgugs/gugs-db/internal/classify"
	"github.com/rcsgugs/gugs-db/internal/config"
	"github.com/rcsgugs/gugs-db/internal/database"
	"github.com/rcsgugs/gugs-db/internal/distance"
	"github.com/rcsgugs/gugs-db/internal/forecast"
	"github.com/rcsgugs/gugs-db/internal/logger"
	"github.com/rcsgugs/gugs-db/internal/metrics"
	"github.com/rcsgugs/gugs-db/internal/scraper"
	"github.com/rcsgugs/gugs-db/internal/storage"
	"github.com/rcsgugs/gugs-db/internal/unify"
)

// app wires configuration to the pipeline components for one command run.
type app struct {
	cfg     *config.Config
	format  OutputFormat
	verbose bool
	log     *logger.Logger
	metrics *metrics.Recorder
	store   *storage.Storage
	now     func() time.Time
}

func newApp(opts *options, stderr io.Writer) (*app, error) {
	format, err := opts.outputFormat()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, stderr))

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	return &app{
		cfg:     cfg,
		format:  format,
		verbose: opts.verbose,
		log:     logger.Named("cli"),
		metrics: metrics.New(),
		store:   store,
		now:     time.Now,
	}, nil
}

func (a *app) builder() (*builder.Builder, error) {
	var table *distance.Table
	if a.cfg.CorrectionsFile != "" {
		t, err := distance.Load(expandHome(a.cfg.CorrectionsFile))
		if err != nil {
			return nil, fmt.Errorf("loading distance corrections: %w", err)
		}
		table = t
	}
	resolver, err := distance.NewResolver(table)
	if err != nil {
		return nil, err
	}

	rules := a.cfg.Rules()
	classifier, err := classify.NewWithMarker(rules.ClubMarker)
	if err != nil {
		return nil, fmt.Errorf("building classifier: %w", err)
	}
	unifier, err := unify.New(rules)
	if err != nil {
		return nil, fmt.Errorf("building unifier: %w", err)
	}

	return builder.New(
		builder.WithClassifier(classifier),
		builder.WithUnifier(unifier),
		builder.WithResolver(resolver),
		builder.WithMetrics(a.metrics),
	)
}

func (a *app) scraper() *scraper.Scraper {
	return scraper.New(
		scraper.WithURL(a.cfg.CalendarURL),
		scraper.WithTheme(a.cfg.Theme),
		scraper.WithRetry(a.cfg.MaxAttempts, 2*time.Second),
	)
}

func (a *app) forecaster() *forecast.Forecaster {
	return forecast.New(forecast.WithMetrics(a.metrics))
}

// database connects to the configured database. The returned func closes
// the pool.
func (a *app) database(ctx context.Context) (*database.Store, func(), error) {
	if a.cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("database_url is not configured (set GUGS_DATABASE_URL)")
	}
	pool, err := database.Connect(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return database.New(pool), pool.Close, nil
}

func (a *app) downloadRoot(override string) string {
	if override != "" {
		return expandHome(override)
	}
	return expandHome(a.cfg.DownloadDir)
}

// flushMetrics writes the run's metrics when a textfile is configured.
func (a *app) flushMetrics() {
	if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		a.log.Warn("Failed to write metrics textfile", logger.Fields{
			"path":  a.cfg.MetricsTextfile,
			"error": err.Error(),
		})
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

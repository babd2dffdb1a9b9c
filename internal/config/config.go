// Package config defines the gugs-db configuration and its loader.
//
// Values are layered, lowest precedence first: built-in defaults, an
// optional YAML file, a .env file in the working directory, and GUGS_*
// environment variables.
package config

import (
	"errors"

	"github.com/rcsgugs/gugs-db/internal/database"
	"github.com/rcsgugs/gugs-db/internal/scraper"
	"github.com/rcsgugs/gugs-db/internal/unify"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Config contains process configuration.
type Config struct {
	// DataDir holds the per-year result snapshots.
	DataDir string `koanf:"data_dir"`

	// DownloadDir is the root of downloaded workbooks, laid out as
	// <year>/<Mon>/<file>.
	DownloadDir string `koanf:"download_dir"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DatabaseURL is the PostgreSQL connection string. Empty disables the
	// database.
	DatabaseURL string `koanf:"database_url"`

	CalendarURL string `koanf:"calendar_url"`
	Theme       string `koanf:"theme"`

	// MaxAttempts bounds download retries per file.
	MaxAttempts int `koanf:"max_attempts"`

	// CorrectionsFile overrides the embedded distance correction table.
	CorrectionsFile string `koanf:"corrections_file"`

	// ClubVariants are the club name fragments that select club runners.
	// They take precedence over rules.club_variants.
	ClubVariants []string `koanf:"club_variants"`

	// Unify overrides parts of the column unification table: the club
	// marker, name combos and column aliases.
	Unify unify.Rules `koanf:"rules"`

	SimilarityThreshold float64 `koanf:"similarity_threshold"`

	// MetricsTextfile, when set, receives the metrics of each batch run.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// Schedule is the cron spec of the schedule command.
	Schedule string `koanf:"schedule"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		DataDir:             "~/.local/share/gugs-db",
		DownloadDir:         "~/gugs_db/data/Race_downloads",
		LogLevel:            "info",
		CalendarURL:         scraper.CalendarURL,
		Theme:               scraper.DefaultTheme,
		MaxAttempts:         5,
		SimilarityThreshold: database.DefaultThreshold,
		Schedule:            "0 3 1 * *",
	}
}

// Rules returns the default unification rules with the configured overrides
// applied.
func (c *Config) Rules() unify.Rules {
	rules := unify.DefaultRules().Merge(c.Unify)
	if len(c.ClubVariants) > 0 {
		rules.ClubVariants = append([]string(nil), c.ClubVariants...)
	}
	return rules
}

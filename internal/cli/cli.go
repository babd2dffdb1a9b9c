package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitNewRows = 2
)

// ErrNewRows is returned by ingest when the run added rows to the year's
// snapshot. Execute maps it to ExitNewRows.
var ErrNewRows = errors.New("new rows ingested")

// Version is reported by --version. Set at build time by the main package.
var Version = "dev"

// options holds the global flags shared by every subcommand.
type options struct {
	configPath string
	format     string
	verbose    bool
}

func (o *options) outputFormat() (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(o.format))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", o.format)
	}
	return format, nil
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "gugs-db",
		Short: "Build and query the club's race results database",
		Long: `A CLI tool to collect the club's race results from the provincial
calendar workbooks, keep a per-year results table, and forecast a runner's
next finishing time per distance category.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file (default $GUGS_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(
		newIngestCmd(opts),
		newPredictCmd(opts),
		newRacesCmd(opts),
		newExportCmd(opts),
		newScrapeCmd(opts),
		newScheduleCmd(opts),
	)

	return cmd
}

// exitCode maps the error returned by the root command to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrNewRows):
		return ExitNewRows
	default:
		return ExitError
	}
}

// Execute runs the CLI
func Execute() {
	err := NewRootCmd().Execute()
	code := exitCode(err)
	if code == ExitError {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

// Package cli implements the command-line interface for gugs-db.
//
// The cli package provides the Cobra-based CLI with subcommands to ingest a
// race year (optionally scraping the calendar first), forecast a runner's next
// times, look up a runner's races in the database, export a year as CSV, and
// run ingestion on a cron schedule. It coordinates the config, scraper,
// builder, storage, database and forecast packages, and reports new rows
// against the previous snapshot with exit code 2.
package cli

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rcsgugs/gugs-db/internal/database"
	"github.com/rcsgugs/gugs-db/internal/forecast"
	"github.com/rcsgugs/gugs-db/internal/result"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	Year            int                      `json:"year"`
	RunID           string                   `json:"run_id"`
	BuiltAt         time.Time                `json:"built_at"`
	Downloaded      int                      `json:"downloaded"`
	Sources         []result.Source          `json:"sources"`
	RowCount        int                      `json:"row_count"`
	NewRows         []*result.Row            `json:"new_rows"`
	NewRowCount     int                      `json:"new_row_count"`
	RemovedRowCount int                      `json:"removed_row_count"`
	ByRace          map[string][]*result.Row `json:"by_race,omitempty"`
	Database        bool                     `json:"database,omitempty"`
}

// PredictResult is the JSON form of a forecast report.
type PredictResult struct {
	Query    string   `json:"query"`
	Matched  []string `json:"matched"`
	Messages []string `json:"messages"`
}

// RacesResult holds a runner race lookup.
type RacesResult struct {
	Query       string                      `json:"query"`
	Threshold   float64                     `json:"threshold"`
	Races       []*result.Row               `json:"races,omitempty"`
	WithContact []*database.RaceWithContact `json:"with_contact,omitempty"`
}

// WriteIngest writes the ingestion summary in the specified format
func WriteIngest(w io.Writer, res *IngestResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatText:
		return writeIngestText(w, res, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeIngestText(w io.Writer, res *IngestResult, verbose bool) error {
	if res.Downloaded > 0 {
		fmt.Fprintf(w, "Downloaded %d result files.\n", res.Downloaded)
	}
	fmt.Fprintf(w, "Ingested %d: %d rows from %d workbooks.\n", res.Year, res.RowCount, len(res.Sources))

	if verbose {
		for _, src := range res.Sources {
			fmt.Fprintf(w, "  %s: %d of %d sheets\n", src.Path, src.Accepted, src.Sheets)
		}
	}

	if res.NewRowCount == 0 {
		fmt.Fprintln(w, "No new rows found.")
	} else {
		races := make([]string, 0, len(res.ByRace))
		for race := range res.ByRace {
			races = append(races, race)
		}
		sort.Strings(races)

		for _, race := range races {
			rows := res.ByRace[race]
			fmt.Fprintf(w, "\n%s (%d new):\n", race, len(rows))
			for _, row := range rows {
				fmt.Fprintf(w, "  NEW: %s %s\n", row.Name, clock(row.Time))
				if verbose {
					fmt.Fprintf(w, "       ID: %s\n", row.ID)
				}
			}
		}
		fmt.Fprintf(w, "\nTotal: %d new across %d races\n", res.NewRowCount, len(res.ByRace))
	}

	if res.RemovedRowCount > 0 {
		fmt.Fprintf(w, "Removed: %d rows no longer present\n", res.RemovedRowCount)
	}
	if res.Database {
		fmt.Fprintln(w, "Database updated.")
	}
	return nil
}

// WritePredict writes the forecast messages in the specified format
func WritePredict(w io.Writer, report *forecast.Report, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, &PredictResult{
			Query:    report.Query,
			Matched:  report.Matched,
			Messages: report.Messages(),
		})
	case FormatText:
		if len(report.Matched) == 0 {
			fmt.Fprintf(w, "No results found for %q.\n", report.Query)
			return nil
		}
		for _, msg := range report.Messages() {
			fmt.Fprintln(w, msg)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteRaces writes a runner race lookup in the specified format
func WriteRaces(w io.Writer, res *RacesResult, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatText:
		return writeRacesText(w, res)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeRacesText(w io.Writer, res *RacesResult) error {
	count := len(res.Races) + len(res.WithContact)
	if count == 0 {
		fmt.Fprintf(w, "No races found for %q.\n", res.Query)
		return nil
	}

	for _, row := range res.Races {
		fmt.Fprintln(w, raceLine(row))
	}
	for _, rc := range res.WithContact {
		fmt.Fprintln(w, raceLine(rc.Row))
		fmt.Fprintf(w, "       Member: %s %s", rc.Contact.FirstName, rc.Contact.Surname)
		if rc.Contact.Cellphone != "" {
			fmt.Fprintf(w, ", %s", rc.Contact.Cellphone)
		}
		if rc.Contact.Email != "" {
			fmt.Fprintf(w, ", %s", rc.Contact.Email)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\nTotal: %d races\n", count)
	return nil
}

// WriteFiles lists downloaded files in the specified format
func WriteFiles(w io.Writer, files []string, format OutputFormat) error {
	switch format {
	case FormatJSON:
		if files == nil {
			files = []string{}
		}
		return writeJSON(w, map[string][]string{"files": files})
	case FormatText:
		if len(files) == 0 {
			fmt.Fprintln(w, "No result files downloaded.")
			return nil
		}
		for _, f := range files {
			fmt.Fprintln(w, f)
		}
		fmt.Fprintf(w, "\nTotal: %d files\n", len(files))
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func raceLine(row *result.Row) string {
	pos := "-"
	if row.Pos != nil {
		pos = fmt.Sprintf("%d", *row.Pos)
	}
	return fmt.Sprintf("%d %-40s %-9s pos %-4s %-8s %s",
		row.RaceYear, row.Race, row.DistanceCat, pos, clock(row.Time), row.Name)
}

func clock(c *result.Clock) string {
	if c == nil {
		return "-"
	}
	return c.String()
}

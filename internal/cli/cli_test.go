package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupEnv points the config at temp folders holding one race workbook.
func setupEnv(t *testing.T) (dataDir, root string) {
	t.Helper()
	dataDir = t.TempDir()
	root = t.TempDir()

	mar := filepath.Join(root, "2019", "Mar")
	if err := os.MkdirAll(mar, 0o755); err != nil {
		t.Fatal(err)
	}
	csv := "Position,Participant,TeamName,Finish\n" +
		"12,Joe Smith,RCS,3.42.30\n" +
		"13,Sipho Ndlovu,Celtic,3.43.00\n"
	if err := os.WriteFile(filepath.Join(mar, "forest_marathon.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GUGS_CONFIG", "")
	t.Setenv("GUGS_DATA_DIR", dataDir)
	t.Setenv("GUGS_DOWNLOAD_DIR", root)
	t.Setenv("GUGS_LOG_LEVEL", "error")
	t.Setenv("GUGS_DATABASE_URL", "")
	return dataDir, root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestIngestCommand(t *testing.T) {
	dataDir, _ := setupEnv(t)

	out, err := run(t, "ingest", "--year", "2019")
	if !errors.Is(err, ErrNewRows) {
		t.Fatalf("first ingest error = %v, want ErrNewRows", err)
	}
	if !strings.Contains(out, "Ingested 2019: 1 rows from 1 workbooks.") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, "NEW: joe smith 03:42:30") {
		t.Errorf("new row not reported:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "results_2019.json")); err != nil {
		t.Errorf("snapshot not saved: %v", err)
	}

	out, err = run(t, "ingest", "--year", "2019")
	if err != nil {
		t.Fatalf("second ingest error = %v", err)
	}
	if !strings.Contains(out, "No new rows found.") {
		t.Errorf("expected no new rows:\n%s", out)
	}
}

func TestIngestCommand_JSON(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "ingest", "--year", "2019", "--format", "json")
	if !errors.Is(err, ErrNewRows) {
		t.Fatalf("ingest error = %v, want ErrNewRows", err)
	}

	var res IngestResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, out)
	}
	if res.Year != 2019 || res.RowCount != 1 || res.NewRowCount != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.RunID == "" {
		t.Error("run id should be set")
	}
	if len(res.Sources) != 1 || res.Sources[0].Checksum == "" {
		t.Errorf("Sources = %+v", res.Sources)
	}
}

func TestPredictCommand(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "ingest", "--year", "2019"); !errors.Is(err, ErrNewRows) {
		t.Fatalf("ingest error = %v", err)
	}

	out, err := run(t, "predict", "Joe")
	if err != nil {
		t.Fatalf("predict error = %v", err)
	}
	want := "There was only 1 race(s) in category (21, 42]. Not enough for estimation"
	if strings.TrimSpace(out) != want {
		t.Errorf("predict output = %q, want %q", out, want)
	}

	out, err = run(t, "predict", "nobody")
	if err != nil {
		t.Fatalf("predict error = %v", err)
	}
	if !strings.Contains(out, "No results found") {
		t.Errorf("predict output = %q", out)
	}

	if _, err := run(t, "predict", "joe", "--source", "cloud"); err == nil {
		t.Error("expected error for unknown source")
	}
	if _, err := run(t, "predict", "  "); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestExportCommand(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "ingest", "--year", "2019"); !errors.Is(err, ErrNewRows) {
		t.Fatalf("ingest error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "2019.csv")
	if _, err := run(t, "export", "--year", "2019", "--out", path); err != nil {
		t.Fatalf("export error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "pos,name,race") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "joe smith") {
		t.Errorf("row = %q", lines[1])
	}

	out, err := run(t, "export", "--year", "2018")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if strings.Count(strings.TrimSpace(out), "\n") != 0 {
		t.Errorf("empty year should export the header only, got %q", out)
	}
}

func TestCommandErrors(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"invalid format", []string{"ingest", "--format", "xml"}, "invalid format"},
		{"races without database", []string{"races", "joe"}, "database_url"},
		{"invalid sort", []string{"races", "joe", "--sort", "club"}, "invalid sort order"},
		{"invalid month", []string{"scrape", "--month", "13"}, "invalid month"},
		{"invalid schedule", []string{"schedule", "--spec", "every day"}, "invalid schedule"},
		{"missing name", []string{"predict"}, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
			if exitCode(err) != ExitError {
				t.Errorf("exitCode = %d, want %d", exitCode(err), ExitError)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{ErrNewRows, ExitNewRows},
		{fmt.Errorf("wrapped: %w", ErrNewRows), ExitNewRows},
		{errors.New("boom"), ExitError},
	}

	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/gugs"); got != filepath.Join(home, "gugs") {
		t.Errorf("expandHome() = %q", got)
	}
	if got := expandHome("/data/gugs"); got != "/data/gugs" {
		t.Errorf("expandHome() = %q", got)
	}
}

func TestIngestCommand_ConfiguredClubMarker(t *testing.T) {
	_, root := setupEnv(t)
	apr := filepath.Join(root, "2019", "Apr")
	if err := os.MkdirAll(apr, 0o755); err != nil {
		t.Fatal(err)
	}
	csv := "Position,Participant,Squad,Finish\n" +
		"4,Ann Lee,RCS Gugs,1.05.00\n"
	if err := os.WriteFile(filepath.Join(apr, "club_10km.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "ingest", "--year", "2019")
	if !errors.Is(err, ErrNewRows) {
		t.Fatalf("ingest error = %v, want ErrNewRows", err)
	}
	if !strings.Contains(out, "Ingested 2019: 1 rows from 2 workbooks.") {
		t.Errorf("squad sheet should be rejected by the default marker:\n%s", out)
	}

	config := filepath.Join(t.TempDir(), "gugs.yaml")
	rules := "rules:\n  club_marker: \"(?i)^(Club|TeamName|Squad)\"\n"
	if err := os.WriteFile(config, []byte(rules), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err = run(t, "ingest", "--year", "2019", "--config", config)
	if !errors.Is(err, ErrNewRows) {
		t.Fatalf("ingest error = %v, want ErrNewRows", err)
	}
	if !strings.Contains(out, "Ingested 2019: 2 rows from 2 workbooks.") {
		t.Errorf("configured marker should accept the squad sheet:\n%s", out)
	}
	if !strings.Contains(out, "NEW: ann lee 01:05:00") {
		t.Errorf("new row not reported:\n%s", out)
	}
}

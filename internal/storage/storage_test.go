package storage

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rcsgugs/gugs-db/internal/result"
)

func sampleTable(year int) *result.Table {
	pos := 1
	clock := result.Clock(35*60 + 10)
	t := result.NewTable(year)
	t.RunID = "run-1"
	t.BuiltAt = time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
	t.Rows = []*result.Row{
		{
			Pos: &pos, Name: "joe smith", Race: "parkrun_10km_sheet1", Time: &clock,
			Sex: "male", DistanceKM: 10, DistanceCat: "(5, 10]", RaceYear: year,
		},
		{
			Name: "enzokuhle khumalo", Race: "forest_marathon_sheet1",
			DistanceKM: 42, DistanceCat: "(21, 42]", RaceYear: year,
		},
	}
	for _, r := range t.Rows {
		r.ID = result.GenerateID(r.Race, r.Name, r.Pos, r.Time)
	}
	return t
}

func TestLoadTable_Missing(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	table, err := s.LoadTable(2019)
	if err != nil {
		t.Fatalf("LoadTable() error = %v", err)
	}
	if table.Year != 2019 || len(table.Rows) != 0 {
		t.Errorf("expected empty 2019 table, got year %d with %d rows", table.Year, len(table.Rows))
	}
}

func TestSaveAndLoadTable(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	want := sampleTable(2019)
	if err := s.SaveTable(want); err != nil {
		t.Fatalf("SaveTable() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "results_2019.json")); err != nil {
		t.Errorf("expected snapshot file: %v", err)
	}

	got, err := s.LoadTable(2019)
	if err != nil {
		t.Fatalf("LoadTable() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadTable() = %+v, want %+v", got, want)
	}
	if !result.Equal(got, want) {
		t.Error("round-tripped table should hold the same rows")
	}
}

func TestLoadTable_Corrupt(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "results_2020.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.LoadTable(2020); err == nil {
		t.Error("expected error for corrupt snapshot")
	}
}

func TestYearsAndLoadAll(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	for _, y := range []int{2020, 2018, 2019} {
		if err := s.SaveTable(sampleTable(y)); err != nil {
			t.Fatalf("SaveTable(%d) error = %v", y, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	years, err := s.Years()
	if err != nil {
		t.Fatalf("Years() error = %v", err)
	}
	if !reflect.DeepEqual(years, []int{2018, 2019, 2020}) {
		t.Errorf("Years() = %v", years)
	}

	rows, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("LoadAll() returned %d rows, want 6", len(rows))
	}
	if rows[0].RaceYear != 2018 || rows[5].RaceYear != 2020 {
		t.Errorf("rows not ordered by year: first %d, last %d", rows[0].RaceYear, rows[5].RaceYear)
	}
}

func TestNew_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := New("~/gugs-data")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.Dir() != filepath.Join(home, "gugs-data") {
		t.Errorf("Dir() = %q", s.Dir())
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(sampleTable(2019), &buf); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d records", len(records))
	}
	if !reflect.DeepEqual(records[0], result.Columns) {
		t.Errorf("header = %v, want %v", records[0], result.Columns)
	}

	want := []string{"1", "joe smith", "parkrun_10km_sheet1", "00:35:10", "male", "", "", "", "10", "(5, 10]", "2019"}
	if !reflect.DeepEqual(records[1], want) {
		t.Errorf("row = %q, want %q", records[1], want)
	}
	if records[2][0] != "" || records[2][3] != "" {
		t.Errorf("missing pos and time should export empty, got %q", records[2])
	}
}

func TestExportCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(result.NewTable(2019), &buf); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}
	if len(records) != 1 || !reflect.DeepEqual(records[0], result.Columns) {
		t.Errorf("expected header only, got %v", records)
	}
}

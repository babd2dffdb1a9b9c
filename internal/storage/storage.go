package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rcsgugs/gugs-db/internal/result"
)

var tableFile = regexp.MustCompile(`^results_(\d{4})\.json$`)

// Storage handles persistence of result tables
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// Dir returns the data directory.
func (s *Storage) Dir() string {
	return s.dataDir
}

func (s *Storage) tablePath(year int) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("results_%d.json", year))
}

// LoadTable loads the table for year. A year never ingested yields an empty
// table.
func (s *Storage) LoadTable(year int) (*result.Table, error) {
	data, err := os.ReadFile(s.tablePath(year))
	if err != nil {
		if os.IsNotExist(err) {
			return result.NewTable(year), nil
		}
		return nil, fmt.Errorf("reading table: %w", err)
	}

	var table result.Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing table %d: %w", year, err)
	}
	if table.Rows == nil {
		table.Rows = make([]*result.Row, 0)
	}
	return &table, nil
}

// SaveTable replaces the stored table of t.Year.
func (s *Storage) SaveTable(t *result.Table) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding table: %w", err)
	}

	path := s.tablePath(t.Year)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing table: %w", err)
	}
	return nil
}

// Years lists the stored years in ascending order.
func (s *Storage) Years() ([]int, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	years := make([]int, 0)
	for _, e := range entries {
		m := tableFile.FindStringSubmatch(e.Name())
		if m == nil || e.IsDir() {
			continue
		}
		y, _ := strconv.Atoi(m[1])
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

// LoadAll returns the rows of every stored year, oldest year first.
func (s *Storage) LoadAll() ([]*result.Row, error) {
	years, err := s.Years()
	if err != nil {
		return nil, err
	}

	rows := make([]*result.Row, 0)
	for _, y := range years {
		t, err := s.LoadTable(y)
		if err != nil {
			return nil, err
		}
		rows = append(rows, t.Rows...)
	}
	return rows, nil
}

package workbook

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/extrame/xls"
	"github.com/rcsgugs/gugs-db/internal/result"
	"github.com/xuri/excelize/v2"
)

// Extensions lists the spreadsheet formats accepted from the calendar site.
var Extensions = []string{".xlsx", ".xls", ".csv"}

// IsSpreadsheet reports whether path has a workbook extension Open can read.
func IsSpreadsheet(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".xlsx" || ext == ".xls"
}

// Stem returns the file name without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Open reads every worksheet of the workbook at path.
func Open(path string) ([]*result.RawSheet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	case ".xls":
		return readXLS(path)
	default:
		return nil, fmt.Errorf("unsupported workbook format: %s", filepath.Ext(path))
	}
}

// List returns the workbooks in dir, sorted by name.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if IsSpreadsheet(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func readXLSX(path string) ([]*result.RawSheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	stem := Stem(path)
	sheets := make([]*result.RawSheet, 0)
	for _, name := range f.GetSheetList() {
		rows, err := readSheet(f, name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}
		sheets = append(sheets, result.NewRawSheet(stem, name, rows))
	}
	return sheets, nil
}

func readXLS(path string) ([]*result.RawSheet, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("opening xls: %w", err)
	}

	stem := Stem(path)
	sheets := make([]*result.RawSheet, 0, wb.NumSheets())
	for i := 0; i < wb.NumSheets(); i++ {
		sh := wb.GetSheet(i)
		if sh == nil {
			continue
		}

		grid := make([][]string, 0, int(sh.MaxRow)+1)
		for r := 0; r <= int(sh.MaxRow); r++ {
			row := sh.Row(r)
			if row == nil {
				grid = append(grid, nil)
				continue
			}
			cells := make([]string, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells[c] = row.Col(c)
			}
			grid = append(grid, cells)
		}
		sheets = append(sheets, result.NewRawSheet(stem, sh.Name, grid))
	}
	return sheets, nil
}

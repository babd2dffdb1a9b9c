package workbook

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ConvertCSV writes the delimited-text file at path as an .xlsx sibling with a
// single sheet and removes the original. It returns the new path.
func ConvertCSV(path string) (string, error) {
	records, err := readDelimited(path)
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return "", fmt.Errorf("addressing row %d: %w", i+1, err)
		}
		row := make([]interface{}, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return "", fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".xlsx"
	if err := f.SaveAs(out); err != nil {
		return "", fmt.Errorf("saving xlsx: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("removing csv: %w", err)
	}
	return out, nil
}

// ConvertDir converts every .csv file directly inside dir and returns the
// paths written.
func ConvertDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	names := make([]string, 0)
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	converted := make([]string, 0, len(names))
	for _, name := range names {
		out, err := ConvertCSV(filepath.Join(dir, name))
		if err != nil {
			return converted, fmt.Errorf("converting %s: %w", name, err)
		}
		converted = append(converted, out)
	}
	return converted, nil
}

func readDelimited(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	return records, nil
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab in the
// first line.
func sniffDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !sc.Scan() {
		return ','
	}
	line := sc.Text()

	best, bestCount := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

package result

import (
	"fmt"
	"strings"
)

// RawSheet is one worksheet of one source workbook, as read from disk.
// Columns holds the first row of the sheet; Rows holds everything below it.
// An empty string stands for a missing cell.
type RawSheet struct {
	Workbook string     // file stem, e.g. "wpa_road_10km"
	Name     string     // worksheet name
	Columns  []string   // header cells
	Rows     [][]string // data rows, padded to len(Columns)
}

// Race returns the race identifier tagged on every row unified from this sheet.
func (s *RawSheet) Race() string {
	return s.Workbook + "_" + s.Name
}

// Width returns the number of columns.
func (s *RawSheet) Width() int {
	return len(s.Columns)
}

// Cell returns the value at row, col or "" when out of range.
func (s *RawSheet) Cell(row, col int) string {
	if row < 0 || row >= len(s.Rows) {
		return ""
	}
	r := s.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Column returns the values of column col.
func (s *RawSheet) Column(col int) []string {
	values := make([]string, len(s.Rows))
	for i := range s.Rows {
		values[i] = s.Cell(i, col)
	}
	return values
}

// ColumnIndex returns the index of the column whose name equals name,
// ignoring case and surrounding whitespace, or -1.
func (s *RawSheet) ColumnIndex(name string) int {
	name = strings.TrimSpace(name)
	for i, c := range s.Columns {
		if strings.EqualFold(strings.TrimSpace(c), name) {
			return i
		}
	}
	return -1
}

// NewRawSheet builds a sheet from a full grid of cells, using the first row as
// column names. Blank header cells are named "Unnamed: <index>" and all rows
// are padded to a common width.
func NewRawSheet(workbook, name string, grid [][]string) *RawSheet {
	width := 0
	for _, r := range grid {
		if len(r) > width {
			width = len(r)
		}
	}

	sheet := &RawSheet{Workbook: workbook, Name: name}
	if len(grid) == 0 {
		return sheet
	}

	sheet.Columns = make([]string, width)
	for i := 0; i < width; i++ {
		var cell string
		if i < len(grid[0]) {
			cell = strings.TrimSpace(grid[0][i])
		}
		if cell == "" {
			cell = fmt.Sprintf("Unnamed: %d", i)
		}
		sheet.Columns[i] = cell
	}

	sheet.Rows = make([][]string, 0, len(grid)-1)
	for _, r := range grid[1:] {
		sheet.Rows = append(sheet.Rows, PadRow(r, width))
	}
	return sheet
}

// PadRow returns a copy of row with trimmed cells, padded or cut to width.
func PadRow(row []string, width int) []string {
	out := make([]string, width)
	for i := 0; i < width && i < len(row); i++ {
		out[i] = strings.TrimSpace(row[i])
	}
	return out
}

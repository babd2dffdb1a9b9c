// Package classify decides whether a worksheet holds race results and where
// its header row is.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rcsgugs/gugs-db/internal/result"
)

const (
	// DefaultMarker matches the club/team column label of result sheets.
	DefaultMarker = `(?i)^(Club|TeamName)`

	// ScanRows is how many leading rows are searched for the marker.
	ScanRows = 20
)

// Reason explains a classification outcome.
type Reason string

const (
	ReasonAccepted  Reason = "accepted"
	ReasonNoMarker  Reason = "no club marker"
	ReasonEmptyTime Reason = "time column empty"
	ReasonNoRows    Reason = "no data rows"
)

// capePeninsulaColumns names the fixed 14-column layout of the Cape Peninsula
// half-marathon sheets, which ship without a header row.
var capePeninsulaColumns = []string{
	"Race", "Event", "Pos", "FirstName", "LastName",
	"Race No", "Finish Status", "Time", "Age", "Category",
	"Category Pos", "Gender", "Gender Pos", "Club",
}

var timeColumn = regexp.MustCompile(`(?i)TIME|FINISH`)

// Result is the outcome of classifying one sheet.
type Result struct {
	Accepted bool
	Reason   Reason

	// HeaderRow is the 0-based row of the original sheet used as the header,
	// or -1 when a fixed layout was assigned.
	HeaderRow int

	// Sheet is the re-headed, footer-trimmed sheet. Nil when rejected.
	Sheet *result.RawSheet
}

// Classifier locates result tables in raw sheets.
type Classifier struct {
	marker   *regexp.Regexp
	scanRows int
}

// New creates a Classifier using the default club marker.
func New() *Classifier {
	return &Classifier{
		marker:   regexp.MustCompile(DefaultMarker),
		scanRows: ScanRows,
	}
}

// NewWithMarker creates a Classifier with a custom marker pattern.
func NewWithMarker(pattern string) (*Classifier, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling marker: %w", err)
	}
	return &Classifier{marker: re, scanRows: ScanRows}, nil
}

// Marker returns the club marker pattern.
func (c *Classifier) Marker() *regexp.Regexp {
	return c.marker
}

// Classify inspects sheet and returns the accepted, re-headed table or the
// reason it was rejected. The input sheet is not modified.
func (c *Classifier) Classify(sheet *result.RawSheet) Result {
	headed, headerRow, ok := c.locateHeader(sheet)
	if !ok {
		return Result{Reason: ReasonNoMarker, HeaderRow: -1}
	}

	headed = trimFooter(headed)
	if len(headed.Rows) == 0 {
		return Result{Reason: ReasonNoRows, HeaderRow: headerRow}
	}
	if hasEmptyTimeColumn(headed) {
		return Result{Reason: ReasonEmptyTime, HeaderRow: headerRow}
	}

	return Result{
		Accepted:  true,
		Reason:    ReasonAccepted,
		HeaderRow: headerRow,
		Sheet:     headed,
	}
}

// locateHeader finds the marker in the leading rows, then in the column
// names, and finally checks the headerless Cape Peninsula layout.
func (c *Classifier) locateHeader(sheet *result.RawSheet) (*result.RawSheet, int, bool) {
	limit := c.scanRows
	if limit > len(sheet.Rows) {
		limit = len(sheet.Rows)
	}

	for i := 0; i < limit; i++ {
		if c.rowMatches(sheet.Rows[i]) {
			// Data row i is row i+1 of the sheet; it becomes the header and
			// everything above it is dropped.
			return reheader(sheet, sheet.Rows[i], sheet.Rows[i+1:]), i + 1, true
		}
	}

	if c.rowMatches(sheet.Columns) {
		return reheader(sheet, sheet.Columns, sheet.Rows), 0, true
	}

	if isCapePeninsula(sheet.Rows[:limit]) {
		rows := make([][]string, 0, len(sheet.Rows)+1)
		rows = append(rows, sheet.Columns)
		rows = append(rows, sheet.Rows...)
		return reheader(sheet, capePeninsulaColumns, rows), -1, true
	}

	return nil, -1, false
}

func (c *Classifier) rowMatches(cells []string) bool {
	for _, cell := range cells {
		if c.marker.MatchString(strings.TrimSpace(cell)) {
			return true
		}
	}
	return false
}

// isCapePeninsula reports whether every scanned row carries both the event
// name and the 21km distance.
func isCapePeninsula(rows [][]string) bool {
	if len(rows) == 0 {
		return false
	}
	for _, row := range rows {
		if !containsCell(row, "Cape Peninsula") || !containsCell(row, "21km") {
			return false
		}
	}
	return true
}

func containsCell(row []string, needle string) bool {
	for _, cell := range row {
		if strings.Contains(cell, needle) {
			return true
		}
	}
	return false
}

func reheader(sheet *result.RawSheet, header []string, rows [][]string) *result.RawSheet {
	width := len(header)
	out := &result.RawSheet{
		Workbook: sheet.Workbook,
		Name:     sheet.Name,
		Columns:  make([]string, width),
		Rows:     make([][]string, 0, len(rows)),
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		out.Columns[i] = h
	}
	for _, r := range rows {
		out.Rows = append(out.Rows, result.PadRow(r, width))
	}
	return out
}

// trimFooter drops rows missing more than width-1 values, which removes
// blank separators and trailing signature lines.
func trimFooter(sheet *result.RawSheet) *result.RawSheet {
	width := sheet.Width()
	kept := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		missing := 0
		for _, cell := range row {
			if cell == "" {
				missing++
			}
		}
		if missing < width-1 {
			kept = append(kept, row)
		}
	}
	sheet.Rows = kept
	return sheet
}

// hasEmptyTimeColumn reports whether any time or finish column holds no values.
func hasEmptyTimeColumn(sheet *result.RawSheet) bool {
	for col, name := range sheet.Columns {
		if !timeColumn.MatchString(name) {
			continue
		}
		empty := true
		for _, v := range sheet.Column(col) {
			if v != "" {
				empty = false
				break
			}
		}
		if empty {
			return true
		}
	}
	return false
}

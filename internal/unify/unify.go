package unify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rcsgugs/gugs-db/internal/logger"
	"github.com/rcsgugs/gugs-db/internal/result"
)

var (
	ErrNoClubColumn  = errors.New("no club column")
	ErrAmbiguousClub = errors.New("ambiguous club column")
	ErrNoClubRunners = errors.New("no club runners")
)

// Record is one club runner's row mapped onto canonical columns. Values are
// raw cell text; cleaning happens in the table builder.
type Record struct {
	Race  string
	Pos   string
	Name  string
	Time  string
	Sex   string
	Age   string
	Cat   string
	LicNo string
}

// Result is the unification outcome for one sheet.
type Result struct {
	Race    string
	Records []Record

	// Matched maps each canonical column to the source header it was read
	// from, for diagnostics.
	Matched map[string]string

	// Skip is non-nil when the sheet contributed no rows.
	Skip error
}

// Unifier applies a Rules table to accepted sheets.
type Unifier struct {
	rules    Rules
	marker   *regexp.Regexp
	variants []string
	log      *logger.Logger
}

// New compiles rules into a Unifier.
func New(rules Rules) (*Unifier, error) {
	marker, err := regexp.Compile(rules.ClubMarker)
	if err != nil {
		return nil, fmt.Errorf("compiling club marker: %w", err)
	}
	if len(rules.ClubVariants) == 0 {
		return nil, errors.New("at least one club variant is required")
	}

	variants := make([]string, len(rules.ClubVariants))
	for i, v := range rules.ClubVariants {
		variants[i] = strings.ToLower(strings.TrimSpace(v))
	}

	return &Unifier{
		rules:    rules,
		marker:   marker,
		variants: variants,
		log:      logger.Named("unify"),
	}, nil
}

// Unify maps sheet onto canonical records. It never fails: sheets that cannot
// be mapped come back with Skip set and a logged diagnostic.
func (u *Unifier) Unify(sheet *result.RawSheet) *Result {
	res := &Result{Race: sheet.Race(), Matched: make(map[string]string)}

	clubCol, err := u.clubColumn(sheet)
	if err != nil {
		return u.skip(res, sheet, err)
	}
	res.Matched["CLUB"] = sheet.Columns[clubCol]

	rows := make([][]string, 0)
	for _, row := range sheet.Rows {
		if u.isClubRunner(row[clubCol]) {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return u.skip(res, sheet, ErrNoClubRunners)
	}

	headers := headerIndex(sheet.Columns)
	name := u.nameResolver(headers, rows, res.Matched)

	pos := u.pick(ColPos, headers, rows, res.Matched)
	tm := u.pick(ColTime, headers, rows, res.Matched)
	sex := u.pick(ColSex, headers, rows, res.Matched)
	age := u.pick(ColAge, headers, rows, res.Matched)
	cat := u.pick(ColCat, headers, rows, res.Matched)
	lic := u.pick(ColLicNo, headers, rows, res.Matched)

	res.Records = make([]Record, 0, len(rows))
	for _, row := range rows {
		res.Records = append(res.Records, Record{
			Race:  res.Race,
			Pos:   cell(row, pos),
			Name:  name(row),
			Time:  cell(row, tm),
			Sex:   cell(row, sex),
			Age:   cell(row, age),
			Cat:   cell(row, cat),
			LicNo: cell(row, lic),
		})
	}

	u.log.Debug("Unified sheet", logger.Fields{
		"race":    res.Race,
		"rows":    len(res.Records),
		"matched": res.Matched,
	})
	return res
}

func (u *Unifier) skip(res *Result, sheet *result.RawSheet, err error) *Result {
	res.Skip = err
	u.log.Warn("Skipping sheet", logger.Fields{
		"workbook": sheet.Workbook,
		"sheet":    sheet.Name,
		"reason":   err.Error(),
	})
	return res
}

// clubColumn resolves the single club column of sheet.
func (u *Unifier) clubColumn(sheet *result.RawSheet) (int, error) {
	found := -1
	for i, c := range sheet.Columns {
		if !u.marker.MatchString(strings.TrimSpace(c)) {
			continue
		}
		if found >= 0 {
			return -1, fmt.Errorf("%w: %q and %q", ErrAmbiguousClub, sheet.Columns[found], c)
		}
		found = i
	}
	if found < 0 {
		return -1, ErrNoClubColumn
	}
	return found, nil
}

func (u *Unifier) isClubRunner(club string) bool {
	club = strings.ToLower(club)
	if club == "" {
		return false
	}
	for _, v := range u.variants {
		if strings.Contains(club, v) {
			return true
		}
	}
	return false
}

// pick returns the column for canonical: the first of its names that is
// present and holds at least one value among rows, or -1.
func (u *Unifier) pick(canonical string, headers map[string]int, rows [][]string, matched map[string]string) int {
	fallback, fallbackName := -1, ""
	for _, name := range u.rules.variantsFor(canonical) {
		col, ok := headers[name]
		if !ok {
			continue
		}
		if fallback < 0 {
			fallback, fallbackName = col, name
		}
		if hasValues(rows, col) {
			matched[canonical] = name
			return col
		}
	}
	if fallback >= 0 {
		matched[canonical] = fallbackName
	}
	return fallback
}

// nameResolver returns a function building the full name of a row.
func (u *Unifier) nameResolver(headers map[string]int, rows [][]string, matched map[string]string) func([]string) string {
	for _, combo := range u.rules.NameCombos {
		cols, ok := columnsFor(headers, combo)
		if !ok {
			continue
		}
		matched[ColName] = strings.Join(combo, "+")
		return joinColumns(cols)
	}

	if col := u.pick(ColName, headers, rows, matched); col >= 0 {
		return joinColumns([]int{col})
	}

	// First name with a surname variant not covered by a known combo.
	for _, first := range []string{"FIRSTNAME", "FIRST NAME"} {
		fc, ok := headers[first]
		if !ok {
			continue
		}
		cols := []int{fc}
		for _, last := range u.rules.variantsFor("LASTNAME") {
			if lc, ok := headers[last]; ok {
				cols = append(cols, lc)
				matched[ColName] = first + "+" + last
				break
			}
		}
		return joinColumns(cols)
	}

	return func([]string) string { return "" }
}

func columnsFor(headers map[string]int, names []string) ([]int, bool) {
	cols := make([]int, 0, len(names))
	for _, n := range names {
		col, ok := headers[n]
		if !ok {
			return nil, false
		}
		cols = append(cols, col)
	}
	return cols, true
}

// joinColumns space-joins the given cells. Missing parts render as "" so
// a blank surname never blanks the whole name.
func joinColumns(cols []int) func([]string) string {
	return func(row []string) string {
		parts := make([]string, 0, len(cols))
		for _, c := range cols {
			v := cell(row, c)
			switch strings.ToLower(v) {
			case "nan", "none":
				v = ""
			}
			parts = append(parts, v)
		}
		return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	}
}

func headerIndex(columns []string) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		key := strings.ToUpper(strings.TrimSpace(c))
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

func hasValues(rows [][]string, col int) bool {
	for _, row := range rows {
		if cell(row, col) != "" {
			return true
		}
	}
	return false
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// Concat unions the records of all results in order, skipping skipped sheets.
func Concat(results []*Result) []Record {
	n := 0
	for _, r := range results {
		n += len(r.Records)
	}
	out := make([]Record, 0, n)
	for _, r := range results {
		if r.Skip != nil {
			continue
		}
		out = append(out, r.Records...)
	}
	return out
}

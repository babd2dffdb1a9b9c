package workbook

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// timeKind says how a numeric cell's number format renders it.
type timeKind int

const (
	notTime timeKind = iota
	clockTime
	elapsedTime
)

const timestampLayout = "2006-01-02 15:04:05"

// builtinTimeFormats are the built-in number formats with a time part.
// 46 is [h]:mm:ss.
var builtinTimeFormats = map[int]timeKind{
	18: clockTime, 19: clockTime, 20: clockTime, 21: clockTime, 22: clockTime,
	45: clockTime, 46: elapsedTime, 47: clockTime,
}

// readSheet returns the cell text of sheet. Cells styled with a time format
// are rendered from their stored serial as HH:MM:SS, or as a full timestamp
// when the serial carries a date, instead of the display text, which may
// drop hours or seconds.
func readSheet(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	kinds := make(map[int]timeKind)
	for r, rawRow := range raw {
		if r >= len(rows) {
			break
		}
		for c, v := range rawRow {
			if c >= len(rows[r]) || v == rows[r][c] {
				continue
			}
			serial, err := strconv.ParseFloat(v, 64)
			if err != nil || serial < 0 {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			kind, err := cellTimeKind(f, sheet, cell, kinds)
			if err != nil {
				return nil, err
			}
			if kind == notTime {
				continue
			}
			if text, ok := formatSerial(serial, kind); ok {
				rows[r][c] = text
			}
		}
	}
	return rows, nil
}

// cellTimeKind classifies the number format of cell. Results are cached per
// style.
func cellTimeKind(f *excelize.File, sheet, cell string, cache map[int]timeKind) (timeKind, error) {
	styleID, err := f.GetCellStyle(sheet, cell)
	if err != nil {
		return notTime, err
	}
	if kind, ok := cache[styleID]; ok {
		return kind, nil
	}

	style, err := f.GetStyle(styleID)
	if err != nil {
		return notTime, err
	}
	kind := builtinTimeFormats[style.NumFmt]
	if style.CustomNumFmt != nil {
		kind = customTimeKind(*style.CustomNumFmt)
	}
	cache[styleID] = kind
	return kind, nil
}

// customTimeKind inspects a custom format code such as "[h]:mm:ss" or
// "hh:mm:ss.0". Quoted literals, escapes and bracketed sections other than
// elapsed units are ignored.
func customTimeKind(code string) timeKind {
	var tokens strings.Builder
	elapsed := false
	s := strings.ToLower(code)
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '"':
			j := strings.IndexByte(s[i+1:], '"')
			if j < 0 {
				return notTime
			}
			i += j + 1
		case '\\', '_', '*':
			i++
		case '[':
			j := strings.IndexByte(s[i:], ']')
			if j < 0 {
				return notTime
			}
			if isElapsedUnit(s[i+1 : i+j]) {
				elapsed = true
			}
			i += j
		default:
			tokens.WriteByte(ch)
		}
	}

	rest := strings.ReplaceAll(tokens.String(), "general", "")
	switch {
	case elapsed:
		return elapsedTime
	case strings.ContainsAny(rest, "hs"):
		return clockTime
	}
	return notTime
}

// isElapsedUnit reports whether a bracketed section is [h], [mm], [ss] and
// the like.
func isElapsedUnit(section string) bool {
	if section == "" || !strings.ContainsAny(section[:1], "hms") {
		return false
	}
	return strings.Trim(section, section[:1]) == ""
}

// formatSerial renders a spreadsheet serial. Fractions of a day and elapsed
// durations become HH:MM:SS; serials with a date part become a timestamp.
func formatSerial(serial float64, kind timeKind) (string, bool) {
	secs := int64(math.Round(serial * 86400))
	if kind == elapsedTime || serial < 1 {
		return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60), true
	}

	// Serials before 1900-03-01 count from 1899-12-31 because of the
	// phantom 1900-02-29.
	if serial < 61 {
		base := time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)
		return base.Add(time.Duration(secs) * time.Second).Format(timestampLayout), true
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", false
	}
	return t.Round(time.Second).Format(timestampLayout), true
}

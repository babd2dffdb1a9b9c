package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rcsgugs/gugs-db/internal/database"
	"github.com/rcsgugs/gugs-db/internal/result"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByYear SortOrder = "year"
	SortByRace SortOrder = "race"
	SortByTime SortOrder = "time"
)

func parseSortOrder(s string) (SortOrder, error) {
	order := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch order {
	case SortByYear, SortByRace, SortByTime:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be 'year', 'race' or 'time')", s)
	}
}

// sortRows sorts rows based on the specified sort order
func sortRows(rows []*result.Row, order SortOrder) {
	sort.SliceStable(rows, func(i, j int) bool {
		return less(rows[i], rows[j], order)
	})
}

func sortContactRows(rows []*database.RaceWithContact, order SortOrder) {
	sort.SliceStable(rows, func(i, j int) bool {
		return less(rows[i].Row, rows[j].Row, order)
	})
}

// less reports whether row i should come before row j
func less(i, j *result.Row, order SortOrder) bool {
	switch order {
	case SortByRace:
		if i.Race != j.Race {
			return i.Race < j.Race
		}
		return compareByYear(i, j)
	case SortByTime:
		// Rows without a time go last
		if (i.Time == nil) != (j.Time == nil) {
			return i.Time != nil
		}
		if i.Time != nil && *i.Time != *j.Time {
			return *i.Time < *j.Time
		}
		return compareByYear(i, j)
	default:
		return compareByYear(i, j)
	}
}

// compareByYear orders by race year, event month, race, then name
func compareByYear(i, j *result.Row) bool {
	if i.RaceYear != j.RaceYear {
		return i.RaceYear < j.RaceYear
	}
	if i.RaceMonth != j.RaceMonth {
		return i.RaceMonth < j.RaceMonth
	}
	if i.Race != j.Race {
		return i.Race < j.Race
	}
	return i.Name < j.Name
}

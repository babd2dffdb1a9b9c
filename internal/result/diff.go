package result

import "sort"

// DiffResult contains the rows gained and lost between two tables.
type DiffResult struct {
	NewRows     []*Row
	RemovedRows []*Row
	ByRace      map[string][]*Row // new rows grouped by race
}

// Diff compares current against a previous table of the same year.
// A nil previous table is treated as empty.
func Diff(previous, current *Table) *DiffResult {
	result := &DiffResult{
		NewRows:     make([]*Row, 0),
		RemovedRows: make([]*Row, 0),
		ByRace:      make(map[string][]*Row),
	}

	prev := index(previous)
	cur := index(current)

	for id, row := range cur {
		if _, exists := prev[id]; !exists {
			result.NewRows = append(result.NewRows, row)
			result.ByRace[row.Race] = append(result.ByRace[row.Race], row)
		}
	}
	for id, row := range prev {
		if _, exists := cur[id]; !exists {
			result.RemovedRows = append(result.RemovedRows, row)
		}
	}

	sortRows(result.NewRows)
	sortRows(result.RemovedRows)
	for race := range result.ByRace {
		sortRows(result.ByRace[race])
	}

	return result
}

// Equal reports whether two tables hold the same rows, ignoring order.
func Equal(a, b *Table) bool {
	d := Diff(a, b)
	return len(d.NewRows) == 0 && len(d.RemovedRows) == 0 && len(index(a)) == len(index(b))
}

func index(t *Table) map[string]*Row {
	idx := make(map[string]*Row)
	if t == nil {
		return idx
	}
	for _, row := range t.Rows {
		idx[row.ID] = row
	}
	return idx
}

func sortRows(rows []*Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Race != rows[j].Race {
			return rows[i].Race < rows[j].Race
		}
		return rows[i].Name < rows[j].Name
	})
}

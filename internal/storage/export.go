package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/rcsgugs/gugs-db/internal/result"
)

// exportRow is the bulk-load shape of a row: exactly the canonical columns,
// with missing values as empty cells.
type exportRow struct {
	Pos         string `dataframe:"pos,string"`
	Name        string `dataframe:"name,string"`
	Race        string `dataframe:"race,string"`
	Time        string `dataframe:"time,string"`
	Sex         string `dataframe:"sex,string"`
	Age         string `dataframe:"age,string"`
	Cat         string `dataframe:"cat,string"`
	LicNo       string `dataframe:"lic_no,string"`
	DistanceKM  int    `dataframe:"distance_km,int"`
	DistanceCat string `dataframe:"distance_cat,string"`
	RaceYear    int    `dataframe:"race_year,int"`
}

func toExportRow(r *result.Row) exportRow {
	out := exportRow{
		Name:        r.Name,
		Race:        r.Race,
		Sex:         r.Sex,
		Age:         r.Age,
		Cat:         r.Cat,
		LicNo:       r.LicNo,
		DistanceKM:  r.DistanceKM,
		DistanceCat: r.DistanceCat,
		RaceYear:    r.RaceYear,
	}
	if r.Pos != nil {
		out.Pos = strconv.Itoa(*r.Pos)
	}
	if r.Time != nil {
		out.Time = r.Time.String()
	}
	return out
}

// Frame returns the rows of t as a dataframe with the canonical columns.
func Frame(t *result.Table) dataframe.DataFrame {
	rows := make([]exportRow, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = toExportRow(r)
	}
	return dataframe.LoadStructs(rows)
}

// ExportCSV writes t as CSV with a header of the canonical column names.
func ExportCSV(t *result.Table, w io.Writer) error {
	if len(t.Rows) == 0 {
		cw := csv.NewWriter(w)
		if err := cw.Write(result.Columns); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	}

	df := Frame(t)
	if df.Err != nil {
		return fmt.Errorf("building frame: %w", df.Err)
	}
	return df.WriteCSV(w)
}

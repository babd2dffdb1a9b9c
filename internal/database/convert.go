package database

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rcsgugs/gugs-db/internal/result"
)

// raceRecord holds one scanned race row with nullable columns.
type raceRecord struct {
	ID          string
	Pos         pgtype.Int4
	Name        string
	Race        string
	Time        pgtype.Interval
	Sex         pgtype.Text
	Age         pgtype.Text
	Cat         pgtype.Text
	LicNo       pgtype.Text
	DistanceKM  int32
	DistanceCat string
	RaceYear    int32
	RaceMonth   int32
}

func (r *raceRecord) dest() []any {
	return []any{
		&r.ID, &r.Pos, &r.Name, &r.Race, &r.Time, &r.Sex, &r.Age, &r.Cat,
		&r.LicNo, &r.DistanceKM, &r.DistanceCat, &r.RaceYear, &r.RaceMonth,
	}
}

func (r *raceRecord) row() *result.Row {
	row := &result.Row{
		ID:          r.ID,
		Name:        r.Name,
		Race:        r.Race,
		Time:        fromInterval(r.Time),
		Sex:         r.Sex.String,
		Age:         r.Age.String,
		Cat:         r.Cat.String,
		LicNo:       r.LicNo.String,
		DistanceKM:  int(r.DistanceKM),
		DistanceCat: r.DistanceCat,
		RaceYear:    int(r.RaceYear),
		RaceMonth:   int(r.RaceMonth),
	}
	if r.Pos.Valid {
		p := int(r.Pos.Int32)
		row.Pos = &p
	}
	return row
}

// rowValues returns r in raceColumns order for COPY.
func rowValues(r *result.Row) []any {
	var pos any
	if r.Pos != nil {
		pos = int32(*r.Pos)
	}
	return []any{
		r.ID, pos, r.Name, r.Race, toInterval(r.Time),
		nullable(r.Sex), nullable(r.Age), nullable(r.Cat), nullable(r.LicNo),
		int32(r.DistanceKM), r.DistanceCat, int32(r.RaceYear), int32(r.RaceMonth),
	}
}

func nullable(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func toInterval(c *result.Clock) pgtype.Interval {
	if c == nil {
		return pgtype.Interval{}
	}
	return pgtype.Interval{Microseconds: int64(*c) * 1_000_000, Valid: true}
}

// fromInterval converts a stored interval back to whole seconds. Day and
// month parts are folded in as 24h and 30d.
func fromInterval(iv pgtype.Interval) *result.Clock {
	if !iv.Valid {
		return nil
	}
	secs := iv.Microseconds/1_000_000 + int64(iv.Days)*86400 + int64(iv.Months)*30*86400
	c := result.Clock(secs)
	return &c
}

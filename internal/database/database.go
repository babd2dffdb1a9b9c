// Package database persists result tables to PostgreSQL and serves the fuzzy
// runner lookups of the web layer.
//
// Name matching uses the pg_trgm similarity() function; EnsureSchema enables
// the extension and creates the race table and its trigram index.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rcsgugs/gugs-db/internal/logger"
	"github.com/rcsgugs/gugs-db/internal/result"
)

// DefaultThreshold is the similarity above which a name matches.
const DefaultThreshold = 0.3

// DB is the subset of *pgxpool.Pool used by Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Connect opens a connection pool and checks it is reachable.
func Connect(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// Store reads and writes the race table.
type Store struct {
	db  DB
	log *logger.Logger
}

// New creates a Store over db.
func New(db DB) *Store {
	return &Store{db: db, log: logger.Named("database")}
}

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
	`CREATE TABLE IF NOT EXISTS race (
		id TEXT NOT NULL,
		pos INTEGER,
		name TEXT NOT NULL,
		race TEXT NOT NULL,
		time INTERVAL,
		sex TEXT,
		age TEXT,
		cat TEXT,
		lic_no TEXT,
		distance_km INTEGER NOT NULL,
		distance_cat TEXT NOT NULL,
		race_year INTEGER NOT NULL,
		race_month INTEGER NOT NULL DEFAULT 0
	)`,
	`ALTER TABLE race ADD COLUMN IF NOT EXISTS race_month INTEGER NOT NULL DEFAULT 0`,
	`CREATE INDEX IF NOT EXISTS race_race_year_idx ON race (race_year)`,
	`CREATE INDEX IF NOT EXISTS race_name_trgm_idx ON race USING gin (name gin_trgm_ops)`,
}

// EnsureSchema creates the race table and enables trigram matching.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("error creating schema: %w", err)
		}
	}
	return nil
}

// raceColumns is the column order of the race table. It must match
// rowValues and scanRow.
var raceColumns = []string{
	"id", "pos", "name", "race", "time", "sex", "age", "cat", "lic_no",
	"distance_km", "distance_cat", "race_year", "race_month",
}

const selectRace = `SELECT r.id, r.pos, r.name, r.race, r.time, r.sex, r.age, r.cat, r.lic_no,
	r.distance_km, r.distance_cat, r.race_year, r.race_month FROM race r`

// ReplaceYear replaces all rows of t.Year with the rows of t in one
// transaction.
func (s *Store) ReplaceYear(ctx context.Context, t *result.Table) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rx := tx.Rollback(ctx); rx != nil {
				s.log.Warn("Rollback failed", logger.Fields{"error": rx.Error()})
			}
		}
	}()

	tag, err := tx.Exec(ctx, `DELETE FROM race WHERE race_year = $1`, t.Year)
	if err != nil {
		return fmt.Errorf("error deleting year %d: %w", t.Year, err)
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"race"}, raceColumns,
		pgx.CopyFromSlice(len(t.Rows), func(i int) ([]any, error) {
			return rowValues(t.Rows[i]), nil
		}))
	if err != nil {
		return fmt.Errorf("error copying rows: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing year %d: %w", t.Year, err)
	}

	s.log.Info("Replaced year", logger.Fields{
		"year":     t.Year,
		"deleted":  tag.RowsAffected(),
		"inserted": copied,
	})
	return nil
}

// AllResults returns every stored row ordered by year and race.
func (s *Store) AllResults(ctx context.Context) ([]*result.Row, error) {
	rows, err := s.db.Query(ctx, selectRace+` ORDER BY r.race_year, r.race_month, r.race`)
	if err != nil {
		return nil, fmt.Errorf("error querying results: %w", err)
	}
	return collectRows(rows)
}

// FindRunnerRaces returns the rows whose name is more similar to name than
// threshold, best match first.
func (s *Store) FindRunnerRaces(ctx context.Context, name string, threshold float64) ([]*result.Row, error) {
	rows, err := s.db.Query(ctx, selectRace+`
	WHERE similarity(r.name, $1) > $2
	ORDER BY similarity(r.name, $1) DESC, r.race_year, r.race_month, r.race`, name, threshold)
	if err != nil {
		return nil, fmt.Errorf("error finding runner races: %w", err)
	}
	return collectRows(rows)
}

// Contact is the contact record of a club member.
type Contact struct {
	FirstName string `json:"firstname"`
	Surname   string `json:"surname"`
	Cellphone string `json:"cellphone,omitempty"`
	Email     string `json:"email,omitempty"`
}

// RaceWithContact is a result row joined to the member it most likely
// belongs to.
type RaceWithContact struct {
	*result.Row
	Contact Contact `json:"contact"`
}

// FindRunnerRacesWithContact is FindRunnerRaces joined to runner_contact on
// full-name similarity.
func (s *Store) FindRunnerRacesWithContact(ctx context.Context, name string, threshold float64) ([]*RaceWithContact, error) {
	rows, err := s.db.Query(ctx, `SELECT r.id, r.pos, r.name, r.race, r.time, r.sex, r.age, r.cat, r.lic_no,
	r.distance_km, r.distance_cat, r.race_year, r.race_month,
	c.firstname, c.surname, c.cellphone, c.email
	FROM race r
	JOIN runner_contact c
	  ON similarity(r.name, lower(concat_ws(' ', c.firstname, c.secondname, c.surname))) > $2
	WHERE similarity(r.name, $1) > $2
	ORDER BY similarity(r.name, $1) DESC, r.race_year, r.race_month, r.race`, name, threshold)
	if err != nil {
		return nil, fmt.Errorf("error finding runner races with contact: %w", err)
	}
	defer rows.Close()

	out := make([]*RaceWithContact, 0)
	for rows.Next() {
		var (
			rec                     raceRecord
			first, surname, cell, e pgtype.Text
		)
		dest := append(rec.dest(), &first, &surname, &cell, &e)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, &RaceWithContact{
			Row: rec.row(),
			Contact: Contact{
				FirstName: first.String,
				Surname:   surname.String,
				Cellphone: cell.String,
				Email:     e.String,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return out, nil
}

func collectRows(rows pgx.Rows) ([]*result.Row, error) {
	defer rows.Close()

	out := make([]*result.Row, 0)
	for rows.Next() {
		var rec raceRecord
		if err := rows.Scan(rec.dest()...); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, rec.row())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return out, nil
}

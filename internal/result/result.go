package result

import (
	"crypto/sha1"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Columns lists the output columns of a result table, in load order.
var Columns = []string{
	"pos", "name", "race", "time", "sex", "age", "cat", "lic_no",
	"distance_km", "distance_cat", "race_year",
}

// Clock is an elapsed race time in whole seconds.
type Clock int

// String formats the clock as HH:MM:SS. Hours are not wrapped at 24.
func (c Clock) String() string {
	s := int(c)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// Minutes returns the elapsed time in minutes.
func (c Clock) Minutes() float64 {
	return float64(c) / 60.0
}

// Duration converts the clock to a time.Duration.
func (c Clock) Duration() time.Duration {
	return time.Duration(c) * time.Second
}

// MarshalText encodes the clock as HH:MM:SS.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes an HH:MM:SS value.
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClock parses HH:MM:SS where hours may exceed 23. A fractional seconds
// part is accepted and dropped.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	if i := strings.IndexByte(parts[2], '.'); i >= 0 {
		parts[2] = parts[2][:i]
	}

	var vals [3]int
	for i, p := range parts {
		if p == "" {
			return 0, fmt.Errorf("invalid clock %q", s)
		}
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid clock %q", s)
		}
		vals[i] = v
	}
	if vals[1] > 59 || vals[2] > 59 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return Clock(vals[0]*3600 + vals[1]*60 + vals[2]), nil
}

// Row is one canonical race result.
type Row struct {
	ID          string `json:"id"`
	Pos         *int   `json:"pos"`
	Name        string `json:"name"`
	Race        string `json:"race"`
	Time        *Clock `json:"time"`
	Sex         string `json:"sex,omitempty"`
	Age         string `json:"age,omitempty"`
	Cat         string `json:"cat,omitempty"`
	LicNo       string `json:"lic_no,omitempty"`
	DistanceKM  int    `json:"distance_km"`
	DistanceCat string `json:"distance_cat"`
	RaceYear    int    `json:"race_year"`

	// RaceMonth is the month of the event folder the row was read from, or 0
	// when the folder does not name a month.
	RaceMonth int `json:"race_month,omitempty"`
}

// GenerateID creates a deterministic ID for a row from its identifying fields.
func GenerateID(race, name string, pos *int, t *Clock) string {
	var p, tm string
	if pos != nil {
		p = strconv.Itoa(*pos)
	}
	if t != nil {
		tm = t.String()
	}
	h := sha1.New()
	h.Write([]byte(race + "|" + name + "|" + p + "|" + tm))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Source records one workbook that fed a table.
type Source struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Sheets   int    `json:"sheets"`
	Accepted int    `json:"accepted"`
}

// Table is the unified result table for one race year.
type Table struct {
	Year    int       `json:"year"`
	RunID   string    `json:"run_id,omitempty"`
	BuiltAt time.Time `json:"built_at"`
	Sources []Source  `json:"sources,omitempty"`
	Rows    []*Row    `json:"rows"`
}

// NewTable creates an empty table for year.
func NewTable(year int) *Table {
	return &Table{
		Year: year,
		Rows: make([]*Row, 0),
	}
}

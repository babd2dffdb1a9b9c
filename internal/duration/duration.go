// Package duration turns the free-text time column of result sheets into
// canonical HH:MM:SS elapsed times.
//
// Normalization is an ordered chain of named pure steps. Decimal encodings
// such as "1.42.30" are rewritten first, then sub-second and full timestamp
// strings are trimmed, and a final pass pads short clocks and drops sentinel
// values.
package duration

import (
	"strconv"
	"strings"
	"time"

	"github.com/rcsgugs/gugs-db/internal/result"
)

// Step is one named rewrite of a time string.
type Step struct {
	Name  string
	Apply func(string) string
}

// sentinels never hold a time.
var sentinels = map[string]bool{
	"":            true,
	"not started": true,
	"99:99:99":    true,
	"nan":         true,
	"nat":         true,
	"none":        true,
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"01-02-06 15:04",
	"1/2/06 15:04",
}

// decimal reports whether s looks like a period-encoded time.
func decimal(s string) bool {
	return strings.Contains(s, ".") && !strings.Contains(s, ":") && len(s) < 15
}

var steps = []Step{
	{Name: "spurious-leading-part", Apply: func(s string) string {
		if !decimal(s) {
			return s
		}
		parts := strings.Split(s, ".")
		if len(parts) <= 2 {
			return s
		}
		first, err := strconv.Atoi(parts[0])
		if err != nil || first <= 20 {
			return s
		}
		return "00:" + strings.Join(parts[:len(parts)-1], ":")
	}},
	{Name: "three-part-decimal", Apply: func(s string) string {
		if !decimal(s) || len(strings.Split(s, ".")) != 3 {
			return s
		}
		return strings.ReplaceAll(s, ".", ":")
	}},
	{Name: "periods-to-colons", Apply: func(s string) string {
		if !decimal(s) {
			return s
		}
		return strings.ReplaceAll(s, ".", ":")
	}},
	{Name: "minutes-seconds", Apply: func(s string) string {
		if strings.Contains(s, ".") {
			return s
		}
		parts := strings.Split(s, ":")
		if len(parts) != 2 {
			return s
		}
		if len(parts[0]) == 1 {
			s = "0" + s
		}
		return "00:" + s
	}},
	{Name: "single-digit-hour", Apply: func(s string) string {
		if strings.Contains(s, ".") {
			return s
		}
		if parts := strings.Split(s, ":"); len(parts) > 1 && parts[0] == "1" {
			return "0" + s
		}
		return s
	}},
	{Name: "drop-subseconds", Apply: func(s string) string {
		if len(s) != 15 {
			return s
		}
		if i := strings.IndexByte(s, '.'); i >= 0 {
			return s[:i]
		}
		return s
	}},
	{Name: "timestamp", Apply: func(s string) string {
		if len(s) != 26 {
			return s
		}
		return timeOfDay(s)
	}},
	{Name: "sentinel", Apply: func(s string) string {
		if sentinels[strings.ToLower(s)] {
			return ""
		}
		return s
	}},
	{Name: "spreadsheet-date", Apply: func(s string) string {
		if !strings.Contains(s, "1900") {
			return s
		}
		return timeOfDay(s)
	}},
	{Name: "pad", Apply: func(s string) string {
		switch len(s) {
		case 5:
			return "00:" + s
		case 7:
			return "0" + s
		}
		return s
	}},
}

// Steps returns the normalization chain in application order.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// timeOfDay reduces a timestamp string to HH:MM:SS, or returns "" when it
// does not parse.
func timeOfDay(s string) string {
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.Format("15:04:05")
		}
	}
	return ""
}

// Normalize runs the step chain over raw and returns the canonical HH:MM:SS
// form. ok is false when no time could be recovered. Normalize is
// idempotent on its own output.
func Normalize(raw string) (string, bool) {
	c, ok := Parse(raw)
	if !ok {
		return "", false
	}
	return c.String(), true
}

// Parse normalizes raw and parses the result into elapsed seconds.
func Parse(raw string) (result.Clock, bool) {
	s := strings.TrimSpace(raw)
	for _, st := range steps {
		s = st.Apply(s)
	}
	if s == "" {
		return 0, false
	}
	c, err := result.ParseClock(s)
	if err != nil {
		return 0, false
	}
	return c, true
}

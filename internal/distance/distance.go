// Package distance derives a race distance in km and its category bucket
// from a race identifier, patched by a loadable correction table.
package distance

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrDistanceCoercion means a resolved distance is not a number. It stops
	// ingestion: the source format needs a new correction rule.
	ErrDistanceCoercion = errors.New("distance is not numeric")

	// ErrDistanceOutOfRange means a distance falls outside every bucket.
	ErrDistanceOutOfRange = errors.New("distance outside known categories")
)

// Bins are the bucket edges in km. The lowest bound is inclusive.
var Bins = []int{1, 5, 10, 21, 42, 50, 100}

// Categories lists the bucket labels in ascending order.
var Categories = func() []string {
	labels := make([]string, len(Bins)-1)
	for i := 1; i < len(Bins); i++ {
		open := "("
		if i == 1 {
			open = "["
		}
		labels[i-1] = fmt.Sprintf("%s%d, %d]", open, Bins[i-1], Bins[i])
	}
	return labels
}()

var kmPattern = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)\s*(?:km|k)$`)
var numberPattern = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)

// Extract returns the distance token of a race identifier, or "" when none
// is present. It accepts "10km", "10k" and "21.1km" tokens, or a bare number
// followed by a "km" token.
func Extract(race string) string {
	tokens := strings.Split(race, "_")
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if m := kmPattern.FindStringSubmatch(tok); m != nil {
			return m[1]
		}
		if numberPattern.MatchString(tok) && i+1 < len(tokens) {
			next := strings.ToLower(strings.TrimSpace(tokens[i+1]))
			if next == "km" || next == "k" {
				return tok
			}
		}
	}
	return ""
}

// Coerce converts a distance string to whole km.
func Coerce(s string) (int, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrDistanceCoercion, s)
	}
	return int(math.Round(v)), nil
}

// Bucket returns the category label for km.
func Bucket(km int) (string, error) {
	if km < Bins[0] || km > Bins[len(Bins)-1] {
		return "", fmt.Errorf("%w: %d km", ErrDistanceOutOfRange, km)
	}
	for i := 1; i < len(Bins); i++ {
		if km <= Bins[i] {
			return Categories[i-1], nil
		}
	}
	return "", fmt.Errorf("%w: %d km", ErrDistanceOutOfRange, km)
}

// CategoryIndex returns the position of label in Categories, or -1.
func CategoryIndex(label string) int {
	for i, c := range Categories {
		if c == label {
			return i
		}
	}
	return -1
}

// Resolver assigns distances using a correction table.
type Resolver struct {
	table *Table
}

// NewResolver returns a resolver over t. A nil table means the embedded
// defaults.
func NewResolver(t *Table) (*Resolver, error) {
	if t == nil {
		var err error
		if t, err = Default(); err != nil {
			return nil, err
		}
	}
	return &Resolver{table: t}, nil
}

// Resolve returns the distance in km and its category for one row.
func (r *Resolver) Resolve(race, name string) (int, string, error) {
	raw := r.table.apply(race, name, Extract(race))

	km, err := Coerce(raw)
	if err != nil {
		return 0, "", fmt.Errorf("race %q: %w", race, err)
	}
	cat, err := Bucket(km)
	if err != nil {
		return 0, "", fmt.Errorf("race %q: %w", race, err)
	}
	return km, cat, nil
}

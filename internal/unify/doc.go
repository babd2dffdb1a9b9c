// Package unify maps accepted result sheets onto the canonical result schema.
//
// Organizers label the same field in many ways across events and years. The
// mapping is driven by an ordered Rules table: a club filter, the five known
// split-name layouts, and an alias table from canonical column to source
// variants. Sheets whose club column cannot be resolved are skipped with a
// diagnostic rather than failing the run.
package unify

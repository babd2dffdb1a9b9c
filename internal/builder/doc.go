// Package builder assembles the canonical result table for one race year
// from a directory of downloaded workbooks.
//
// The directory layout is root/<year>/<event>/<workbook>. Every workbook is
// opened, every sheet classified, accepted sheets unified onto the canonical
// columns, and the concatenated rows cleaned: strings lowercased, times
// normalized, distances resolved and the race year stamped. Sheets that
// cannot be used are skipped with a diagnostic. A row without a name fails
// the whole build.
package builder

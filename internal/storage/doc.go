// Package storage provides JSON-based persistence for result tables.
//
// Each ingested year is stored as one snapshot file (results_<year>.json)
// under the data directory, together with the run id and the checksums of
// the source workbooks. Re-ingesting a year replaces its snapshot. The
// default storage location is ~/.local/share/gugs-db/.
package storage

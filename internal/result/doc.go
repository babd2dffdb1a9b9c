// Package result provides the row model shared by the ingestion pipeline and
// the forecaster.
//
// A RawSheet is the untyped block of cells read from one worksheet. Accepted
// sheets are unified into canonical Rows, which are collected into a Table for
// one race year. Each Row is assigned a deterministic SHA1-based ID generated
// from its race, name, position and time, so tables built from the same input
// compare equal and re-ingestion can be diffed against the previous snapshot.
package result

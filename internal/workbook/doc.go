// Package workbook reads race-result spreadsheets into raw sheets.
//
// Workbooks downloaded from the calendar site arrive as .xlsx, legacy .xls or
// loose delimited text. Delimited files are converted to .xlsx in place before
// an ingestion run so every event folder holds a single format.
package workbook

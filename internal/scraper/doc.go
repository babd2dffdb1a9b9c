// Package scraper downloads race result workbooks from the WPA calendar.
//
// The calendar page lists the month's events for a theme (Road, Cross
// Country, ...). Every link to a .xlsx, .xls or .csv file is downloaded
// sequentially into <root>/<year>/<Mon>/, the layout the table builder reads.
// Months that have not happened yet are skipped.
package scraper

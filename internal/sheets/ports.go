// Package sheets defines where the end-of-day tables are written.
package sheets

import (
	"context"

	"caisse/internal/report"
)

// Ports for outbound adapters.
type (
	// WorkbookWriter stores the tables of one day and returns a reference to
	// where they landed: a file path, a spreadsheet URL.
	WorkbookWriter interface {
		WriteTables(ctx context.Context, date string, tables []report.Table) (ref string, err error)
	}
)

// TabName is the sheet name of table for date.
func TabName(table, date string) string { return table + " " + date }

// WorkbookName is the file name of the workbook of date.
func WorkbookName(date string) string { return "TicketZ " + date + ".xlsx" }

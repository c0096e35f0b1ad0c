// Package xlsx writes the end-of-day tables to a local workbook.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"caisse/internal/log"
	"caisse/internal/report"
	ports "caisse/internal/sheets"
)

const defaultSheet = "Sheet1"

var _ ports.WorkbookWriter = (*Writer)(nil)

// Writer saves one workbook per day in a directory, one sheet per table.
// Writing a day again replaces its workbook.
type Writer struct {
	dir    string
	logger *log.Logger
}

func New(dir string, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.Discard()
	}
	return &Writer{dir: dir, logger: logger.WithComponent(log.ComponentSheets)}
}

func (w *Writer) WriteTables(ctx context.Context, date string, tables []report.Table) (string, error) {
	if len(tables) == 0 {
		return "", errors.New("no table to write")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", fmt.Errorf("header style: %w", err)
	}
	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.Name); err != nil {
				return "", fmt.Errorf("rename sheet %s: %w", t.Name, err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return "", fmt.Errorf("add sheet %s: %w", t.Name, err)
		}
		if err := writeTable(f, t, header); err != nil {
			return "", fmt.Errorf("write sheet %s: %w", t.Name, err)
		}
	}
	f.SetActiveSheet(0)

	path := filepath.Join(w.dir, ports.WorkbookName(date))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	w.logger.InfoContext(ctx, "Workbook written", log.FieldDate, date, log.FieldFile, path)
	return path, nil
}

func writeTable(f *excelize.File, t report.Table, headerStyle int) error {
	rows := append([][]string{t.Header}, t.Rows...)
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
		}
		if err := f.SetSheetRow(t.Name, cell, &values); err != nil {
			return err
		}
	}
	if len(t.Header) == 0 {
		return nil
	}
	last, err := excelize.ColumnNumberToName(len(t.Header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(t.Name, "A1", last+"1", headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(t.Name, "A", last, 16)
}

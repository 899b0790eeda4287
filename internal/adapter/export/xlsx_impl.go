package export

import (
	"context"
	"fmt"

	"github.com/user/catalog-etl/internal/entity"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// XLSXWriter writes the bulk-import rows as a single-sheet workbook.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates a new instance of XLSXWriter.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) Write(ctx context.Context, columns []string, rows []entity.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	// StreamWriter for efficiency on large tables
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", toCells(columns)); err != nil {
		return err
	}
	for i, row := range rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(row)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(w.path)
}

// toCells keeps every value a string so prices such as "95.00" survive as typed.
func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/catalog-etl/internal/entity"
)

// CSVWriter writes the bulk-import CSV. Output goes to a temporary file in the
// same directory that replaces path only once fully written.
type CSVWriter struct {
	path string
}

// NewCSVWriter creates a new instance of CSVWriter.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

func (w *CSVWriter) Write(ctx context.Context, columns []string, rows []entity.Row) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(w.path), ".export-*.csv")
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	cw := csv.NewWriter(tmp)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for i, row := range rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), w.path)
}

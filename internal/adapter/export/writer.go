package export

import (
	"path/filepath"
	"strings"

	"github.com/user/catalog-etl/internal/repository"
)

// New returns the writer matching the extension of path: .xlsx writes a
// workbook, anything else a CSV file.
func New(path string) repository.RowWriter {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return NewXLSXWriter(path)
	}
	return NewCSVWriter(path)
}

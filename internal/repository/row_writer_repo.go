package repository

import (
	"context"

	"github.com/user/catalog-etl/internal/entity"
)

// RowWriter is the sink for the bulk-import export.
type RowWriter interface {
	// Write emits a header of columns followed by rows and finalizes the output.
	Write(ctx context.Context, columns []string, rows []entity.Row) error
}

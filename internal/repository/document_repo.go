package repository

import (
	"context"

	"github.com/user/catalog-etl/internal/entity"
)

// DocumentRepository defines the interface for the append-only raw document store.
type DocumentRepository interface {
	// Put appends a (url, body) row to table. Concurrent calls are safe.
	Put(ctx context.Context, table, url string, body []byte) error
	// GetAll returns every row stored for table, in append order.
	GetAll(ctx context.Context, table string) ([]entity.StoredDocument, error)
	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}

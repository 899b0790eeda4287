package repository

import (
	"context"

	"github.com/user/catalog-etl/internal/entity"
)

// FailedURLRepository defines the interface for managing URLs that failed to be fetched.
type FailedURLRepository interface {
	// SaveOrUpdate creates or updates a record for a failed URL.
	// The retry count is incremented when the (url, table) pair already exists.
	SaveOrUpdate(ctx context.Context, failedURL *entity.FailedURL) error
	// FindRetryable retrieves up to limit failed URLs of table that have not
	// exhausted their retries, oldest attempt first.
	FindRetryable(ctx context.Context, table string, limit int) ([]*entity.FailedURL, error)
	// Delete removes a failed URL record, typically after a successful fetch.
	Delete(ctx context.Context, url, table string) error
}

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/user/catalog-etl/internal/entity"
)

// FailedURLRepoImpl provides a concrete implementation for the FailedURLRepository interface using SQLite.
type FailedURLRepoImpl struct {
	db *sql.DB
}

// NewFailedURLRepo creates a new instance of FailedURLRepoImpl.
func NewFailedURLRepo(db *sql.DB) *FailedURLRepoImpl {
	return &FailedURLRepoImpl{db: db}
}

// SaveOrUpdate creates or updates a record for a failed URL.
// It increments the retry_count on conflict.
func (r *FailedURLRepoImpl) SaveOrUpdate(ctx context.Context, failedURL *entity.FailedURL) error {
	if !entity.ValidTable(failedURL.Table) {
		return &entity.StorageError{Op: "record failure", Table: failedURL.Table, Err: entity.ErrInvalidTable}
	}
	query := `
		INSERT INTO failed_urls (url, source_table, failure_reason, http_status_code, last_attempt_at, retry_count)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT (url, source_table) DO UPDATE SET
			failure_reason = excluded.failure_reason,
			http_status_code = excluded.http_status_code,
			last_attempt_at = excluded.last_attempt_at,
			retry_count = failed_urls.retry_count + 1;
	`
	_, err := r.db.ExecContext(ctx, query,
		failedURL.URL,
		failedURL.Table,
		failedURL.FailureReason,
		failedURL.HTTPStatusCode,
		failedURL.LastAttemptTimestamp.UnixNano(),
	)
	if err != nil {
		return &entity.StorageError{Op: "record failure", Table: failedURL.Table, Err: err}
	}
	return nil
}

// FindRetryable retrieves failed URLs of table that have retries left, oldest attempt first.
func (r *FailedURLRepoImpl) FindRetryable(ctx context.Context, table string, limit int) ([]*entity.FailedURL, error) {
	query := `
		SELECT id, url, source_table, failure_reason, http_status_code, last_attempt_at, retry_count
		FROM failed_urls
		WHERE source_table = ? AND retry_count < ?
		ORDER BY last_attempt_at ASC, id ASC
		LIMIT ?;
	`
	rows, err := r.db.QueryContext(ctx, query, table, entity.MaxFetchRetries, limit)
	if err != nil {
		return nil, &entity.StorageError{Op: "find retryable", Table: table, Err: err}
	}
	defer rows.Close()

	var failedURLs []*entity.FailedURL
	for rows.Next() {
		var (
			fu        entity.FailedURL
			attemptNS int64
		)
		if err := rows.Scan(
			&fu.ID,
			&fu.URL,
			&fu.Table,
			&fu.FailureReason,
			&fu.HTTPStatusCode,
			&attemptNS,
			&fu.RetryCount,
		); err != nil {
			return nil, err
		}
		fu.LastAttemptTimestamp = time.Unix(0, attemptNS)
		failedURLs = append(failedURLs, &fu)
	}

	return failedURLs, rows.Err()
}

// Delete removes a failed URL record, typically after a successful fetch.
func (r *FailedURLRepoImpl) Delete(ctx context.Context, url, table string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM failed_urls WHERE url = ? AND source_table = ?;`, url, table); err != nil {
		return &entity.StorageError{Op: "delete failure", Table: table, Err: err}
	}
	return nil
}

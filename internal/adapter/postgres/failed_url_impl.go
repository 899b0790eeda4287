package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/catalog-etl/internal/entity"
)

const (
	upsertFailedURLSQL = `
		INSERT INTO failed_urls (url, source_table, failure_reason, http_status_code, last_attempt_timestamp, retry_count)
		VALUES ($1, $2, $3, $4, $5, 1)
		ON CONFLICT (url, source_table) DO UPDATE SET
			failure_reason = EXCLUDED.failure_reason,
			http_status_code = EXCLUDED.http_status_code,
			last_attempt_timestamp = EXCLUDED.last_attempt_timestamp,
			retry_count = failed_urls.retry_count + 1`

	findRetryableSQL = `
		SELECT id, url, source_table, failure_reason, http_status_code, last_attempt_timestamp, retry_count
		FROM failed_urls
		WHERE source_table = $1 AND retry_count < $2
		ORDER BY last_attempt_timestamp, id
		LIMIT $3`

	deleteFailedURLSQL = `DELETE FROM failed_urls WHERE url = $1 AND source_table = $2`
)

// FailedURLRepoImpl is the failed URL ledger on PostgreSQL.
type FailedURLRepoImpl struct {
	db *pgxpool.Pool
}

// NewFailedURLRepo creates a new instance of FailedURLRepoImpl.
func NewFailedURLRepo(db *pgxpool.Pool) *FailedURLRepoImpl {
	return &FailedURLRepoImpl{db: db}
}

// SaveOrUpdate records a failure, bumping retry_count when the (url, table)
// pair failed before.
func (r *FailedURLRepoImpl) SaveOrUpdate(ctx context.Context, f *entity.FailedURL) error {
	if !entity.ValidTable(f.Table) {
		return &entity.StorageError{Op: "record failure", Table: f.Table, Err: entity.ErrInvalidTable}
	}
	_, err := r.db.Exec(ctx, upsertFailedURLSQL, f.URL, f.Table, f.FailureReason, f.HTTPStatusCode, f.LastAttemptTimestamp)
	if err != nil {
		return &entity.StorageError{Op: "record failure", Table: f.Table, Err: err}
	}
	return nil
}

func (r *FailedURLRepoImpl) FindRetryable(ctx context.Context, table string, limit int) ([]*entity.FailedURL, error) {
	rows, err := r.db.Query(ctx, findRetryableSQL, table, entity.MaxFetchRetries, limit)
	if err != nil {
		return nil, &entity.StorageError{Op: "find retryable", Table: table, Err: err}
	}
	failed, err := pgx.CollectRows(rows, scanFailedURL)
	if err != nil {
		return nil, &entity.StorageError{Op: "find retryable", Table: table, Err: err}
	}
	return failed, nil
}

func (r *FailedURLRepoImpl) Delete(ctx context.Context, url, table string) error {
	if _, err := r.db.Exec(ctx, deleteFailedURLSQL, url, table); err != nil {
		return &entity.StorageError{Op: "delete failure", Table: table, Err: err}
	}
	return nil
}

func scanFailedURL(row pgx.CollectableRow) (*entity.FailedURL, error) {
	var f entity.FailedURL
	err := row.Scan(&f.ID, &f.URL, &f.Table, &f.FailureReason, &f.HTTPStatusCode, &f.LastAttemptTimestamp, &f.RetryCount)
	return &f, err
}

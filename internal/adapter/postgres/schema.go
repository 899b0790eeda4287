package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS search_src (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL,
	html BYTEA NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS product_src (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL,
	html BYTEA NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS failed_urls (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL,
	source_table TEXT NOT NULL,
	failure_reason TEXT NOT NULL,
	http_status_code INTEGER NOT NULL DEFAULT 0,
	last_attempt_timestamp TIMESTAMPTZ NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 1,
	UNIQUE (url, source_table)
);
CREATE INDEX IF NOT EXISTS idx_failed_urls_retry ON failed_urls (source_table, retry_count, last_attempt_timestamp);
`

// Open connects a pool to connString and applies the schema.
func Open(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return pool, nil
}

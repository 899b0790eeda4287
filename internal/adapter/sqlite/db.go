package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS search_src (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		html BLOB NOT NULL,
		fetched_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product_src (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		html BLOB NOT NULL,
		fetched_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS failed_urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		source_table TEXT NOT NULL,
		failure_reason TEXT NOT NULL,
		http_status_code INTEGER NOT NULL DEFAULT 0,
		last_attempt_at INTEGER NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 1,
		UNIQUE (url, source_table)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_failed_urls_retry ON failed_urls(source_table, retry_count, last_attempt_at)`,
}

// Open opens (creating if needed) the embedded document store at path and
// applies the schema. The pool holds a single connection so every write is
// serialized.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := "file:" + path + "?" + url.Values{
		"_pragma": []string{"journal_mode(WAL)", "busy_timeout(5000)", "synchronous(NORMAL)"},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return db, nil
}

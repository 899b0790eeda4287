package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/user/catalog-etl/internal/entity"
)

// DocumentRepoImpl provides a concrete implementation for the DocumentRepository interface using SQLite.
type DocumentRepoImpl struct {
	db *sql.DB
}

// NewDocumentRepo creates a new instance of DocumentRepoImpl.
func NewDocumentRepo(db *sql.DB) *DocumentRepoImpl {
	return &DocumentRepoImpl{db: db}
}

// Put appends a row to table. Table names are checked against the known
// document tables before being placed in the statement.
func (r *DocumentRepoImpl) Put(ctx context.Context, table, url string, body []byte) error {
	if !entity.ValidTable(table) {
		return &entity.StorageError{Op: "put", Table: table, Err: entity.ErrInvalidTable}
	}
	if body == nil {
		body = []byte{}
	}
	query := `INSERT INTO ` + table + ` (url, html, fetched_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, url, body, time.Now().Unix()); err != nil {
		return &entity.StorageError{Op: "put", Table: table, Err: err}
	}
	return nil
}

// GetAll returns every row of table in insertion order.
func (r *DocumentRepoImpl) GetAll(ctx context.Context, table string) ([]entity.StoredDocument, error) {
	if !entity.ValidTable(table) {
		return nil, &entity.StorageError{Op: "get", Table: table, Err: entity.ErrInvalidTable}
	}
	rows, err := r.db.QueryContext(ctx, `SELECT url, html FROM `+table+` ORDER BY id`)
	if err != nil {
		return nil, &entity.StorageError{Op: "get", Table: table, Err: err}
	}
	defer rows.Close()

	var docs []entity.StoredDocument
	for rows.Next() {
		var d entity.StoredDocument
		if err := rows.Scan(&d.URL, &d.Body); err != nil {
			return nil, &entity.StorageError{Op: "get", Table: table, Err: err}
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &entity.StorageError{Op: "get", Table: table, Err: err}
	}
	return docs, nil
}

// Ping verifies the database file is reachable.
func (r *DocumentRepoImpl) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

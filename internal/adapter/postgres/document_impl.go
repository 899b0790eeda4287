package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/catalog-etl/internal/entity"
)

// DocumentRepoImpl provides a concrete implementation for the DocumentRepository interface using PostgreSQL.
type DocumentRepoImpl struct {
	db *pgxpool.Pool
}

// NewDocumentRepo creates a new instance of DocumentRepoImpl.
func NewDocumentRepo(db *pgxpool.Pool) *DocumentRepoImpl {
	return &DocumentRepoImpl{db: db}
}

// Put appends a row to table. Concurrent inserts are safe; each one is its own
// statement.
func (r *DocumentRepoImpl) Put(ctx context.Context, table, url string, body []byte) error {
	if !entity.ValidTable(table) {
		return &entity.StorageError{Op: "put", Table: table, Err: entity.ErrInvalidTable}
	}
	if body == nil {
		body = []byte{}
	}
	query := `INSERT INTO ` + pgx.Identifier{table}.Sanitize() + ` (url, html) VALUES ($1, $2);`
	if _, err := r.db.Exec(ctx, query, url, body); err != nil {
		return &entity.StorageError{Op: "put", Table: table, Err: err}
	}
	return nil
}

// GetAll retrieves every row of table in insertion order.
func (r *DocumentRepoImpl) GetAll(ctx context.Context, table string) ([]entity.StoredDocument, error) {
	if !entity.ValidTable(table) {
		return nil, &entity.StorageError{Op: "get", Table: table, Err: entity.ErrInvalidTable}
	}
	query := `SELECT url, html FROM ` + pgx.Identifier{table}.Sanitize() + ` ORDER BY id;`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, &entity.StorageError{Op: "get", Table: table, Err: err}
	}

	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.StoredDocument, error) {
		var d entity.StoredDocument
		err := row.Scan(&d.URL, &d.Body)
		return d, err
	})
	if err != nil {
		return nil, &entity.StorageError{Op: "get", Table: table, Err: err}
	}
	return docs, nil
}

// Ping verifies the pool can reach the server.
func (r *DocumentRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

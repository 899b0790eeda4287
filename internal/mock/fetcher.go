// Package mock provides function-field doubles of the repository and usecase
// interfaces for tests.
package mock

import (
	"context"

	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/internal/repository"
)

var _ repository.PageFetcher = (*PageFetcher)(nil)

type PageFetcher struct {
	FetchFn func(ctx context.Context, url string) ([]byte, error)
}

func (m *PageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return m.FetchFn(ctx, url)
}

var _ repository.RowWriter = (*RowWriter)(nil)

type RowWriter struct {
	WriteFn func(ctx context.Context, columns []string, rows []entity.Row) error
}

func (m *RowWriter) Write(ctx context.Context, columns []string, rows []entity.Row) error {
	return m.WriteFn(ctx, columns, rows)
}

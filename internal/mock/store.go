package mock

import (
	"context"
	"time"

	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/internal/repository"
)

var _ repository.DocumentRepository = (*DocumentRepository)(nil)

type DocumentRepository struct {
	PutFn    func(ctx context.Context, table, url string, body []byte) error
	GetAllFn func(ctx context.Context, table string) ([]entity.StoredDocument, error)
	PingFn   func(ctx context.Context) error
}

func (m *DocumentRepository) Put(ctx context.Context, table, url string, body []byte) error {
	return m.PutFn(ctx, table, url, body)
}

func (m *DocumentRepository) GetAll(ctx context.Context, table string) ([]entity.StoredDocument, error) {
	return m.GetAllFn(ctx, table)
}

func (m *DocumentRepository) Ping(ctx context.Context) error {
	return m.PingFn(ctx)
}

var _ repository.FailedURLRepository = (*FailedURLRepository)(nil)

type FailedURLRepository struct {
	SaveOrUpdateFn  func(ctx context.Context, failedURL *entity.FailedURL) error
	FindRetryableFn func(ctx context.Context, table string, limit int) ([]*entity.FailedURL, error)
	DeleteFn        func(ctx context.Context, url, table string) error
}

func (m *FailedURLRepository) SaveOrUpdate(ctx context.Context, failedURL *entity.FailedURL) error {
	return m.SaveOrUpdateFn(ctx, failedURL)
}

func (m *FailedURLRepository) FindRetryable(ctx context.Context, table string, limit int) ([]*entity.FailedURL, error) {
	return m.FindRetryableFn(ctx, table, limit)
}

func (m *FailedURLRepository) Delete(ctx context.Context, url, table string) error {
	return m.DeleteFn(ctx, url, table)
}

var _ repository.VisitedRepository = (*VisitedRepository)(nil)

type VisitedRepository struct {
	MarkVisitedFn func(ctx context.Context, url string, expiry time.Duration) error
	UnvisitedFn   func(ctx context.Context, urls []string) ([]string, error)
}

func (m *VisitedRepository) MarkVisited(ctx context.Context, url string, expiry time.Duration) error {
	return m.MarkVisitedFn(ctx, url, expiry)
}

func (m *VisitedRepository) Unvisited(ctx context.Context, urls []string) ([]string, error) {
	return m.UnvisitedFn(ctx, urls)
}

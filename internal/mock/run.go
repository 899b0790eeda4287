package mock

import (
	"context"

	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/internal/repository"
)

var _ repository.QueueRepository = (*QueueRepository)(nil)

type QueueRepository struct {
	PushFn func(ctx context.Context, runID string) error
	PopFn  func(ctx context.Context) (string, error)
	SizeFn func(ctx context.Context) (int64, error)
}

func (m *QueueRepository) Push(ctx context.Context, runID string) error {
	return m.PushFn(ctx, runID)
}

func (m *QueueRepository) Pop(ctx context.Context) (string, error) {
	return m.PopFn(ctx)
}

func (m *QueueRepository) Size(ctx context.Context) (int64, error) {
	return m.SizeFn(ctx)
}

var _ repository.RunRepository = (*RunRepository)(nil)

type RunRepository struct {
	SaveFn     func(ctx context.Context, run *entity.CrawlRun) error
	FindByIDFn func(ctx context.Context, id string) (*entity.CrawlRun, error)
}

func (m *RunRepository) Save(ctx context.Context, run *entity.CrawlRun) error {
	return m.SaveFn(ctx, run)
}

func (m *RunRepository) FindByID(ctx context.Context, id string) (*entity.CrawlRun, error) {
	return m.FindByIDFn(ctx, id)
}

// Crawler doubles usecase.Crawler.
type Crawler struct {
	RunFn func(ctx context.Context, listingURL, stage string) (entity.RunSummary, error)
}

func (m *Crawler) Run(ctx context.Context, listingURL, stage string) (entity.RunSummary, error) {
	return m.RunFn(ctx, listingURL, stage)
}

// RunManager doubles usecase.RunManager.
type RunManager struct {
	SubmitFn              func(ctx context.Context, listingURL, stage string) (string, error)
	GetStatusFn           func(ctx context.Context, id string) (*entity.CrawlRun, error)
	ProcessRunFromQueueFn func(ctx context.Context) (bool, error)
}

func (m *RunManager) Submit(ctx context.Context, listingURL, stage string) (string, error) {
	return m.SubmitFn(ctx, listingURL, stage)
}

func (m *RunManager) GetStatus(ctx context.Context, id string) (*entity.CrawlRun, error) {
	return m.GetStatusFn(ctx, id)
}

func (m *RunManager) ProcessRunFromQueue(ctx context.Context) (bool, error) {
	return m.ProcessRunFromQueueFn(ctx)
}

package repository

import (
	"context"

	"github.com/user/catalog-etl/internal/entity"
)

// RunRepository stores the status of submitted pipeline runs.
type RunRepository interface {
	// Save creates or replaces the run record.
	Save(ctx context.Context, run *entity.CrawlRun) error
	// FindByID returns entity.ErrNotFound for an unknown ID.
	FindByID(ctx context.Context, id string) (*entity.CrawlRun, error)
}

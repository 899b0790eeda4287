package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/catalog-etl/internal/entity"
)

const runKeyPrefix = "catalog:run:"

// RunRepoImpl stores run records as JSON values that expire after ttl.
type RunRepoImpl struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunRepo creates a new instance of RunRepoImpl.
func NewRunRepo(client *redis.Client, ttl time.Duration) *RunRepoImpl {
	return &RunRepoImpl{client: client, ttl: ttl}
}

// Save creates or replaces the run record and refreshes its expiry.
func (r *RunRepoImpl) Save(ctx context.Context, run *entity.CrawlRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	return r.client.Set(ctx, runKeyPrefix+run.ID, data, r.ttl).Err()
}

// FindByID returns the stored run or entity.ErrNotFound.
func (r *RunRepoImpl) FindByID(ctx context.Context, id string) (*entity.CrawlRun, error) {
	data, err := r.client.Get(ctx, runKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var run entity.CrawlRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/user/catalog-etl/internal/entity"
)

const runQueueKey = "catalog:runs:queue"

// QueueRepoImpl provides a concrete implementation for the QueueRepository interface using Redis Lists.
type QueueRepoImpl struct {
	client *redis.Client
}

// NewQueueRepo creates a new instance of QueueRepoImpl.
func NewQueueRepo(client *redis.Client) *QueueRepoImpl {
	return &QueueRepoImpl{client: client}
}

// Push adds a run ID to the left side of the Redis list (acting as a queue).
func (r *QueueRepoImpl) Push(ctx context.Context, runID string) error {
	return r.client.LPush(ctx, runQueueKey, runID).Err()
}

// Pop removes and returns a run ID from the right side of the Redis list.
// An empty queue yields entity.ErrNotFound.
func (r *QueueRepoImpl) Pop(ctx context.Context) (string, error) {
	id, err := r.client.RPop(ctx, runQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", entity.ErrNotFound
	}
	return id, err
}

// Size returns the current number of items in the queue.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, runQueueKey).Result()
}

package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/catalog-etl/pkg/utils"
)

const visitedURLPrefix = "catalog:visited:"

// VisitedRepoImpl keeps one expiring key per fetched URL. The value is the
// unix time of the fetch.
type VisitedRepoImpl struct {
	client *redis.Client
}

// NewVisitedRepo creates a new instance of VisitedRepoImpl.
func NewVisitedRepo(client *redis.Client) *VisitedRepoImpl {
	return &VisitedRepoImpl{client: client}
}

func visitedKey(url string) string {
	return visitedURLPrefix + utils.HashURL(url)
}

func (r *VisitedRepoImpl) MarkVisited(ctx context.Context, url string, expiry time.Duration) error {
	return r.client.Set(ctx, visitedKey(url), time.Now().Unix(), expiry).Err()
}

// Unvisited checks every URL in a single pipelined round trip.
func (r *VisitedRepoImpl) Unvisited(ctx context.Context, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.IntCmd, len(urls))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, u := range urls {
			cmds[i] = pipe.Exists(ctx, visitedKey(u))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(urls))
	for i, cmd := range cmds {
		if cmd.Val() == 0 {
			out = append(out, urls[i])
		}
	}
	return out, nil
}

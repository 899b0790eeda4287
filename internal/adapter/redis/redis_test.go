package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/catalog-etl/internal/entity"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestVisitedRepo(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	repo := NewVisitedRepo(client)
	urls := []string{
		"https://thelashop.com/products/pole",
		"https://thelashop.com/products/flag",
		"https://thelashop.com/products/bracket",
	}

	fresh, err := repo.Unvisited(ctx, urls)
	require.NoError(t, err)
	assert.Equal(t, urls, fresh)

	require.NoError(t, repo.MarkVisited(ctx, urls[1], time.Hour))
	fresh, err = repo.Unvisited(ctx, urls)
	require.NoError(t, err)
	assert.Equal(t, []string{urls[0], urls[2]}, fresh)
	assert.Equal(t, time.Hour, mr.TTL(visitedKey(urls[1])))

	mr.FastForward(2 * time.Hour)
	fresh, err = repo.Unvisited(ctx, urls)
	require.NoError(t, err)
	assert.Equal(t, urls, fresh, "entry expires")

	fresh, err = repo.Unvisited(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestQueueRepoIsFIFO(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	repo := NewQueueRepo(client)

	_, err := repo.Pop(ctx)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	require.NoError(t, repo.Push(ctx, "run-1"))
	require.NoError(t, repo.Push(ctx, "run-2"))
	size, err := repo.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)

	first, err := repo.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", first)
	second, err := repo.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", second)
}

func TestRunRepo(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	repo := NewRunRepo(client, 24*time.Hour)

	_, err := repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	run := &entity.CrawlRun{
		ID:          "3f2b",
		ListingURL:  "https://thelashop.com/collections/all",
		Stage:       entity.StageCrawl,
		Status:      entity.RunCompleted,
		SubmittedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Summary:     entity.RunSummary{PageCount: 3, RowsExported: 120},
	}
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.FindByID(ctx, "3f2b")
	require.NoError(t, err)
	assert.Equal(t, run, got)
	assert.Equal(t, 24*time.Hour, mr.TTL(runKeyPrefix+"3f2b"))
}

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/internal/mock"
	"github.com/user/catalog-etl/internal/usecase"
	"go.uber.org/zap"
)

// runStore backs RunRepository and QueueRepository with maps and a slice.
type runStore struct {
	runs  map[string]entity.CrawlRun
	queue []string
	saves []string
}

func newRunStore() *runStore {
	return &runStore{runs: make(map[string]entity.CrawlRun)}
}

func (s *runStore) runRepo() *mock.RunRepository {
	return &mock.RunRepository{
		SaveFn: func(_ context.Context, run *entity.CrawlRun) error {
			s.runs[run.ID] = *run
			s.saves = append(s.saves, run.Status)
			return nil
		},
		FindByIDFn: func(_ context.Context, id string) (*entity.CrawlRun, error) {
			run, ok := s.runs[id]
			if !ok {
				return nil, entity.ErrNotFound
			}
			return &run, nil
		},
	}
}

func (s *runStore) queueRepo() *mock.QueueRepository {
	return &mock.QueueRepository{
		PushFn: func(_ context.Context, id string) error {
			s.queue = append(s.queue, id)
			return nil
		},
		PopFn: func(context.Context) (string, error) {
			if len(s.queue) == 0 {
				return "", entity.ErrNotFound
			}
			id := s.queue[0]
			s.queue = s.queue[1:]
			return id, nil
		},
		SizeFn: func(context.Context) (int64, error) { return int64(len(s.queue)), nil },
	}
}

func TestRunManager_Submit(t *testing.T) {
	t.Parallel()

	t.Run("queues a pending run", func(t *testing.T) {
		t.Parallel()

		s := newRunStore()
		m := newMetrics()
		rm := usecase.NewRunManager(s.runRepo(), s.queueRepo(), &mock.Crawler{}, m, zap.NewNop())

		id, err := rm.Submit(context.Background(), listingURL, "")

		require.NoError(t, err)
		_, err = uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, []string{id}, s.queue)
		assert.Equal(t, entity.RunPending, s.runs[id].Status)
		assert.Equal(t, entity.StageCrawl, s.runs[id].Stage, "empty stage means the full crawl")
		assert.Equal(t, float64(1), testutil.ToFloat64(m.RunsInQueue))
	})

	t.Run("rejects unknown stage", func(t *testing.T) {
		t.Parallel()

		s := newRunStore()
		rm := usecase.NewRunManager(s.runRepo(), s.queueRepo(), &mock.Crawler{}, newMetrics(), zap.NewNop())

		_, err := rm.Submit(context.Background(), listingURL, "publish")

		assert.ErrorIs(t, err, usecase.ErrUnknownStage)
		assert.Empty(t, s.queue)
	})
}

func TestRunManager_GetStatus(t *testing.T) {
	t.Parallel()

	s := newRunStore()
	rm := usecase.NewRunManager(s.runRepo(), s.queueRepo(), &mock.Crawler{}, newMetrics(), zap.NewNop())
	id, err := rm.Submit(context.Background(), listingURL, entity.StageExport)
	require.NoError(t, err)

	run, err := rm.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.StageExport, run.Stage)

	_, err = rm.GetStatus(context.Background(), "nope")
	assert.ErrorIs(t, err, usecase.ErrRunNotFound)
}

func TestRunManager_ProcessRunFromQueue(t *testing.T) {
	t.Parallel()

	t.Run("empty queue is idle", func(t *testing.T) {
		t.Parallel()

		s := newRunStore()
		rm := usecase.NewRunManager(s.runRepo(), s.queueRepo(), &mock.Crawler{}, newMetrics(), zap.NewNop())

		processed, err := rm.ProcessRunFromQueue(context.Background())

		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("completed run keeps its summary", func(t *testing.T) {
		t.Parallel()

		s := newRunStore()
		var gotStage string
		crawler := &mock.Crawler{
			RunFn: func(_ context.Context, url, stage string) (entity.RunSummary, error) {
				gotStage = stage
				return entity.RunSummary{PageCount: 3, RowsExported: 12}, nil
			},
		}
		rm := usecase.NewRunManager(s.runRepo(), s.queueRepo(), crawler, newMetrics(), zap.NewNop())
		id, err := rm.Submit(context.Background(), listingURL, entity.StageCrawl)
		require.NoError(t, err)

		processed, err := rm.ProcessRunFromQueue(context.Background())

		require.NoError(t, err)
		assert.True(t, processed)
		assert.Equal(t, entity.StageCrawl, gotStage)
		run := s.runs[id]
		assert.Equal(t, entity.RunCompleted, run.Status)
		assert.Equal(t, 12, run.Summary.RowsExported)
		require.NotNil(t, run.StartedAt)
		require.NotNil(t, run.FinishedAt)
		assert.Equal(t, []string{entity.RunPending, entity.RunRunning, entity.RunCompleted}, s.saves)
	})

	t.Run("failed run records the reason", func(t *testing.T) {
		t.Parallel()

		s := newRunStore()
		crawler := &mock.Crawler{
			RunFn: func(context.Context, string, string) (entity.RunSummary, error) {
				return entity.RunSummary{PageCount: 2}, errors.New("search stage: parse failed")
			},
		}
		rm := usecase.NewRunManager(s.runRepo(), s.queueRepo(), crawler, newMetrics(), zap.NewNop())
		id, err := rm.Submit(context.Background(), listingURL, entity.StageSearch)
		require.NoError(t, err)

		processed, err := rm.ProcessRunFromQueue(context.Background())

		require.NoError(t, err)
		assert.True(t, processed)
		run := s.runs[id]
		assert.Equal(t, entity.RunFailed, run.Status)
		assert.Equal(t, "search stage: parse failed", run.FailureReason)
		assert.Equal(t, 2, run.Summary.PageCount)
	})

	t.Run("queue error is returned", func(t *testing.T) {
		t.Parallel()

		s := newRunStore()
		queue := s.queueRepo()
		queue.PopFn = func(context.Context) (string, error) { return "", errors.New("connection refused") }
		rm := usecase.NewRunManager(s.runRepo(), queue, &mock.Crawler{}, newMetrics(), zap.NewNop())

		_, err := rm.ProcessRunFromQueue(context.Background())

		assert.ErrorContains(t, err, "connection refused")
	})
}

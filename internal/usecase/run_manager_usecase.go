package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/internal/repository"
	"github.com/user/catalog-etl/pkg/metrics"
	"go.uber.org/zap"
)

var (
	ErrUnknownStage = errors.New("unknown pipeline stage")
	ErrRunNotFound  = errors.New("run not found")
)

// RunManager defines the interface for submitting pipeline runs and checking
// on them.
type RunManager interface {
	Submit(ctx context.Context, listingURL, stage string) (string, error)
	GetStatus(ctx context.Context, id string) (*entity.CrawlRun, error)
	// ProcessRunFromQueue executes the oldest queued run. It reports false
	// when the queue was empty.
	ProcessRunFromQueue(ctx context.Context) (bool, error)
}

type runManagerUseCase struct {
	runRepo   repository.RunRepository
	queueRepo repository.QueueRepository
	crawler   Crawler
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewRunManager creates a new RunManager use case.
func NewRunManager(
	runRepo repository.RunRepository,
	queueRepo repository.QueueRepository,
	crawler Crawler,
	m *metrics.Metrics,
	logger *zap.Logger,
) RunManager {
	return &runManagerUseCase{
		runRepo:   runRepo,
		queueRepo: queueRepo,
		crawler:   crawler,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

func (uc *runManagerUseCase) Submit(ctx context.Context, listingURL, stage string) (string, error) {
	if stage == "" {
		stage = entity.StageCrawl
	}
	if !entity.ValidStage(stage) {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}

	run := &entity.CrawlRun{
		ID:          uuid.NewString(),
		ListingURL:  listingURL,
		Stage:       stage,
		Status:      entity.RunPending,
		SubmittedAt: uc.now().UTC(),
	}
	if err := uc.runRepo.Save(ctx, run); err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	if err := uc.queueRepo.Push(ctx, run.ID); err != nil {
		return "", fmt.Errorf("enqueue run: %w", err)
	}
	uc.refreshQueueGauge(ctx)

	uc.logger.Info("Run submitted", zap.String("run_id", run.ID), zap.String("stage", stage), zap.String("url", listingURL))
	return run.ID, nil
}

func (uc *runManagerUseCase) GetStatus(ctx context.Context, id string) (*entity.CrawlRun, error) {
	run, err := uc.runRepo.FindByID(ctx, id)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, ErrRunNotFound
	}
	return run, err
}

func (uc *runManagerUseCase) ProcessRunFromQueue(ctx context.Context) (bool, error) {
	id, err := uc.queueRepo.Pop(ctx)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			// Queue is empty, which is a normal state.
			return false, nil
		}
		return false, fmt.Errorf("failed to pop run from queue: %w", err)
	}
	uc.refreshQueueGauge(ctx)

	run, err := uc.runRepo.FindByID(ctx, id)
	if err != nil {
		return true, fmt.Errorf("load run %s: %w", id, err)
	}

	started := uc.now().UTC()
	run.Status = entity.RunRunning
	run.StartedAt = &started
	if err := uc.runRepo.Save(ctx, run); err != nil {
		return true, fmt.Errorf("save run %s: %w", id, err)
	}
	uc.logger.Info("Processing run from queue", zap.String("run_id", id), zap.String("stage", run.Stage))

	summary, runErr := uc.crawler.Run(ctx, run.ListingURL, run.Stage)

	finished := uc.now().UTC()
	run.Summary = summary
	run.FinishedAt = &finished
	if runErr != nil {
		run.Status = entity.RunFailed
		run.FailureReason = runErr.Error()
		uc.logger.Error("Run failed", zap.String("run_id", id), zap.Error(runErr))
	} else {
		run.Status = entity.RunCompleted
		uc.logger.Info("Run completed", zap.String("run_id", id), zap.Duration("duration", finished.Sub(started)))
	}

	// The run context may be gone by now; the final status must still land.
	if err := uc.runRepo.Save(context.WithoutCancel(ctx), run); err != nil {
		return true, fmt.Errorf("save run %s: %w", id, err)
	}
	return true, nil
}

func (uc *runManagerUseCase) refreshQueueGauge(ctx context.Context) {
	size, err := uc.queueRepo.Size(ctx)
	if err != nil {
		uc.logger.Warn("Failed to read queue size", zap.Error(err))
		return
	}
	uc.metrics.RunsInQueue.Set(float64(size))
}

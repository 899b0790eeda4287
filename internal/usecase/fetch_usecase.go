package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/internal/repository"
	"github.com/user/catalog-etl/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const defaultConcurrency = 10

// FetchOptions tune the admission gate of a BatchFetcher.
type FetchOptions struct {
	// Concurrency is the maximum number of fetches in flight.
	Concurrency int
	// ContentionDelay is slept, holding the slot, by every fetch whose
	// acquisition had to wait for a free slot.
	ContentionDelay time.Duration
	// RateLimit caps request starts per second. Zero disables the limiter.
	RateLimit float64
}

// BatchFetcher fetches many URLs through a counting admission gate. Every URL
// produces exactly one entity.FetchResult; a failed URL never cancels the
// others.
type BatchFetcher struct {
	fetcher         repository.PageFetcher
	gate            *semaphore.Weighted
	contentionDelay time.Duration
	limiter         *rate.Limiter
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

// NewBatchFetcher creates a new instance of BatchFetcher.
func NewBatchFetcher(fetcher repository.PageFetcher, opts FetchOptions, m *metrics.Metrics, logger *zap.Logger) *BatchFetcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultConcurrency
	}
	b := &BatchFetcher{
		fetcher:         fetcher,
		gate:            semaphore.NewWeighted(int64(opts.Concurrency)),
		contentionDelay: opts.ContentionDelay,
		metrics:         m,
		logger:          logger,
	}
	if opts.RateLimit > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return b
}

// Stream starts fetching urls and returns a channel of results in completion
// order. The channel is closed once every URL has a result. Slots are admitted
// in input order. When ctx is cancelled, URLs not yet admitted are reported
// with the context error.
func (b *BatchFetcher) Stream(ctx context.Context, urls []string) <-chan entity.FetchResult {
	out := make(chan entity.FetchResult, len(urls))

	go func() {
		var wg sync.WaitGroup
		defer func() {
			wg.Wait()
			close(out)
		}()

		for i, u := range urls {
			contended := !b.gate.TryAcquire(1)
			if contended {
				b.metrics.GateContentionTotal.Inc()
				if err := b.gate.Acquire(ctx, 1); err != nil {
					b.abandon(out, urls[i:], err)
					return
				}
			}
			b.metrics.GateInFlight.Inc()

			wg.Add(1)
			go func(url string, contended bool) {
				defer wg.Done()
				// Release the slot no matter how the fetch ends.
				defer func() {
					b.metrics.GateInFlight.Dec()
					b.gate.Release(1)
				}()
				out <- b.fetchOne(ctx, url, contended)
			}(u, contended)
		}
	}()

	return out
}

// FetchAll is Stream collected into a slice, still in completion order.
func (b *BatchFetcher) FetchAll(ctx context.Context, urls []string) []entity.FetchResult {
	results := make([]entity.FetchResult, 0, len(urls))
	for r := range b.Stream(ctx, urls) {
		results = append(results, r)
	}
	return results
}

func (b *BatchFetcher) fetchOne(ctx context.Context, url string, contended bool) entity.FetchResult {
	if contended && b.contentionDelay > 0 {
		if err := sleep(ctx, b.contentionDelay); err != nil {
			return b.finish(entity.FetchResult{URL: url, Err: &entity.FetchError{URL: url, Cause: err}})
		}
	}
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return b.finish(entity.FetchResult{URL: url, Err: &entity.FetchError{URL: url, Cause: err}})
		}
	}
	if err := ctx.Err(); err != nil {
		return b.finish(entity.FetchResult{URL: url, Err: &entity.FetchError{URL: url, Cause: err}})
	}

	start := time.Now()
	body, err := b.fetcher.Fetch(ctx, url)
	res := entity.FetchResult{URL: url, Body: body, Err: err, Duration: time.Since(start)}
	b.metrics.FetchDuration.Observe(res.Duration.Seconds())
	return b.finish(res)
}

func (b *BatchFetcher) finish(res entity.FetchResult) entity.FetchResult {
	outcome := fetchOutcome(res.Err)
	b.metrics.FetchesTotal.WithLabelValues(outcome).Inc()
	if res.Err != nil {
		b.logger.Warn("Fetch failed", zap.String("url", res.URL), zap.String("outcome", outcome), zap.Error(res.Err))
	} else {
		b.logger.Debug("Fetched page", zap.String("url", res.URL), zap.Duration("duration", res.Duration))
	}
	return res
}

func (b *BatchFetcher) abandon(out chan<- entity.FetchResult, urls []string, cause error) {
	for _, u := range urls {
		out <- b.finish(entity.FetchResult{URL: u, Err: &entity.FetchError{URL: u, Cause: cause}})
	}
}

// fetchOutcome maps a fetch error onto the outcome label of FetchesTotal.
func fetchOutcome(err error) string {
	var fe *entity.FetchError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &fe) && fe.Status != 0:
		return "http_status"
	default:
		return "network"
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

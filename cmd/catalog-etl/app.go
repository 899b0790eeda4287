package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/user/catalog-etl/internal/adapter/chromedp_fetcher"
	"github.com/user/catalog-etl/internal/adapter/export"
	"github.com/user/catalog-etl/internal/adapter/httpfetch"
	"github.com/user/catalog-etl/internal/adapter/postgres"
	redis_adapter "github.com/user/catalog-etl/internal/adapter/redis"
	"github.com/user/catalog-etl/internal/adapter/sqlite"
	"github.com/user/catalog-etl/internal/extractor"
	"github.com/user/catalog-etl/internal/normalizer"
	"github.com/user/catalog-etl/internal/repository"
	"github.com/user/catalog-etl/internal/usecase"
	"github.com/user/catalog-etl/pkg/config"
	"github.com/user/catalog-etl/pkg/metrics"
	"github.com/user/catalog-etl/pkg/proxy"
	"go.uber.org/zap"
)

const runRecordTTL = 7 * 24 * time.Hour

// app holds every wired component and the resources to release on exit.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	documents repository.DocumentRepository
	rdb       *redis.Client
	crawler   usecase.Crawler
	runs      usecase.RunManager

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	// --- Document store ---
	var failed repository.FailedURLRepository
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		a.onClose(pool.Close)
		a.documents, failed = postgres.NewDocumentRepo(pool), postgres.NewFailedURLRepo(pool)
		a.logger.Info("PostgreSQL connection pool established")
	default:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		a.onClose(closeDB(db, a.logger))
		a.documents, failed = sqlite.NewDocumentRepo(db), sqlite.NewFailedURLRepo(db)
		a.logger.Info("Document store opened", zap.String("path", cfg.SQLitePath))
	}

	// --- Redis (optional) ---
	var visited repository.VisitedRepository
	if cfg.RedisAddr != "" {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.onClose(func() { a.rdb.Close() })
		if _, err := a.rdb.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("unable to connect to redis: %w", err)
		}
		visited = redis_adapter.NewVisitedRepo(a.rdb)
		a.logger.Info("Redis connection established")
	}

	// --- Fetching ---
	proxies, err := proxy.NewManager(cfg.Proxies(), cfg.UserAgent)
	if err != nil {
		return err
	}
	var fetcher repository.PageFetcher
	if cfg.FetchMode == config.FetchModeBrowser {
		cf := chromedp_fetcher.NewChromedpFetcher(cfg.FetchTimeout(), proxies, a.logger)
		a.onClose(cf.Close)
		fetcher = cf
	} else {
		fetcher = httpfetch.NewFetcher(cfg.FetchTimeout(), proxies, a.logger)
	}
	batch := usecase.NewBatchFetcher(fetcher, usecase.FetchOptions{
		Concurrency:     cfg.FetchConcurrency,
		ContentionDelay: cfg.ContentionDelay(),
		RateLimit:       cfg.RateLimitRPS,
	}, a.metrics, a.logger)

	// --- Extraction and export ---
	base, err := cfg.Base()
	if err != nil {
		return err
	}
	norm, err := newNormalizer(cfg)
	if err != nil {
		return err
	}

	a.crawler = usecase.NewCrawlerUseCase(usecase.PipelineDeps{
		Fetcher:    fetcher,
		Batch:      batch,
		Documents:  a.documents,
		FailedURLs: failed,
		Visited:    visited,
		Writer:     export.New(cfg.OutputPath),
		Extractor:  extractor.NewExtractor(base, cfg.CustomLabel, cfg.DropDescription),
		Normalizer: norm,
		Metrics:    a.metrics,
		Logger:     a.logger,
		Base:       base,
		VisitedTTL: cfg.VisitedTTL(),
	})

	if a.rdb != nil {
		a.runs = usecase.NewRunManager(
			redis_adapter.NewRunRepo(a.rdb, runRecordTTL),
			redis_adapter.NewQueueRepo(a.rdb),
			a.crawler, a.metrics, a.logger,
		)
	}
	return nil
}

func newNormalizer(cfg *config.Config) (*normalizer.Normalizer, error) {
	var variantCols, imageCols []string
	var err error
	if cfg.VariantDedupeColumnsFile != "" {
		if variantCols, err = normalizer.LoadColumnList(cfg.VariantDedupeColumnsFile); err != nil {
			return nil, err
		}
	}
	if cfg.ImageDedupeColumnsFile != "" {
		if imageCols, err = normalizer.LoadColumnList(cfg.ImageDedupeColumnsFile); err != nil {
			return nil, err
		}
	}
	return normalizer.New(variantCols, imageCols)
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func closeDB(db *sql.DB, logger *zap.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close document store", zap.Error(err))
		}
	}
}

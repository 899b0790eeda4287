package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/internal/extractor"
	"github.com/user/catalog-etl/internal/normalizer"
	"github.com/user/catalog-etl/internal/repository"
	"github.com/user/catalog-etl/pkg/metrics"
	"go.uber.org/zap"
)

// retryBatchSize bounds how many recorded failures one retry pass re-fetches
// per table.
const retryBatchSize = 500

// Crawler runs the pipeline stages against one listing.
type Crawler interface {
	Run(ctx context.Context, listingURL, stage string) (entity.RunSummary, error)
}

// PipelineDeps are the collaborators of the pipeline. Visited may be nil, in
// which case every product URL is fetched.
type PipelineDeps struct {
	Fetcher    repository.PageFetcher
	Batch      *BatchFetcher
	Documents  repository.DocumentRepository
	FailedURLs repository.FailedURLRepository
	Visited    repository.VisitedRepository
	Writer     repository.RowWriter
	Extractor  *extractor.Extractor
	Normalizer *normalizer.Normalizer
	Metrics    *metrics.Metrics
	Logger     *zap.Logger

	Base       *url.URL
	VisitedTTL time.Duration
}

type crawlerUseCase struct {
	PipelineDeps
}

// NewCrawlerUseCase creates a new instance of the crawler use case.
func NewCrawlerUseCase(deps PipelineDeps) Crawler {
	return &crawlerUseCase{PipelineDeps: deps}
}

// Run executes stage, or every stage in order for entity.StageCrawl. Errors
// are prefixed with the stage that failed; the summary holds the counters
// gathered up to that point.
func (uc *crawlerUseCase) Run(ctx context.Context, listingURL, stage string) (entity.RunSummary, error) {
	var sum entity.RunSummary

	steps := map[string]func(context.Context, *entity.RunSummary) error{
		entity.StageSearch: func(ctx context.Context, sum *entity.RunSummary) error {
			return uc.FetchSearchPages(ctx, listingURL, sum)
		},
		entity.StageProducts: uc.FetchProductPages,
		entity.StageExport:   uc.Export,
		entity.StageRetry:    uc.RetryFailed,
	}

	var order []string
	switch {
	case stage == entity.StageCrawl:
		order = []string{entity.StageSearch, entity.StageProducts, entity.StageExport}
	case entity.ValidStage(stage):
		order = []string{stage}
	default:
		return sum, fmt.Errorf("unknown stage %q", stage)
	}

	for _, name := range order {
		start := time.Now()
		uc.Logger.Info("Stage started", zap.String("stage", name))
		if err := steps[name](ctx, &sum); err != nil {
			uc.Logger.Error("Stage failed", zap.String("stage", name), zap.Error(err))
			return sum, fmt.Errorf("%s stage: %w", name, err)
		}
		uc.Logger.Info("Stage finished", zap.String("stage", name), zap.Duration("duration", time.Since(start)))
	}
	return sum, nil
}

// DiscoverPageCount fetches listingURL once and reads its page count.
func (uc *crawlerUseCase) DiscoverPageCount(ctx context.Context, listingURL string) (int, error) {
	body, err := uc.Fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return 0, fmt.Errorf("discover page count: %w", err)
	}
	count, err := extractor.ParsePageCount(listingURL, body)
	if err != nil {
		return 0, err
	}
	uc.Logger.Info("Discovered page count", zap.String("url", listingURL), zap.Int("pages", count))
	return count, nil
}

// FetchSearchPages discovers the page count and stores every search page.
func (uc *crawlerUseCase) FetchSearchPages(ctx context.Context, listingURL string, sum *entity.RunSummary) error {
	if listingURL == "" {
		return errors.New("listing URL is required")
	}
	count, err := uc.DiscoverPageCount(ctx, listingURL)
	if err != nil {
		return err
	}
	sum.PageCount = count

	urls, err := extractor.PageURLs(listingURL, count)
	if err != nil {
		return err
	}
	stored, err := uc.fetchAndStore(ctx, entity.TableSearch, urls, false, sum)
	sum.SearchPagesStored += stored
	return err
}

// FetchProductPages collects product links from the stored search pages and
// stores every product page not visited within the visited TTL.
func (uc *crawlerUseCase) FetchProductPages(ctx context.Context, sum *entity.RunSummary) error {
	docs, err := uc.Documents.GetAll(ctx, entity.TableSearch)
	if err != nil {
		return err
	}
	links := extractor.ProductLinks(uc.Base, docs)
	sum.ProductURLs += len(links)
	uc.Logger.Info("Extracted product links", zap.Int("search_pages", len(docs)), zap.Int("links", len(links)))

	unique := uniqueURLs(links)
	urls := uc.unvisited(ctx, unique)
	sum.SkippedVisited += len(unique) - len(urls)

	stored, err := uc.fetchAndStore(ctx, entity.TableProduct, urls, false, sum)
	sum.ProductPagesStored += stored
	return err
}

// Export extracts the latest stored copy of every product page, normalizes
// the products and writes the bulk-import file. Per-document failures are
// logged and counted.
func (uc *crawlerUseCase) Export(ctx context.Context, sum *entity.RunSummary) error {
	stored, err := uc.Documents.GetAll(ctx, entity.TableProduct)
	if err != nil {
		return err
	}
	docs := latestDocuments(stored)
	if dup := len(stored) - len(docs); dup > 0 {
		uc.Logger.Info("Ignoring superseded product pages", zap.Int("superseded", dup))
	}

	products, failures := uc.Extractor.Products(docs)
	for _, f := range failures {
		uc.Logger.Warn("Extraction failed", zap.String("url", f.URL), zap.String("reason", f.Reason), zap.Error(f.Err))
		uc.Metrics.ExtractionsTotal.WithLabelValues("failure", f.Reason).Inc()
	}
	uc.Metrics.ExtractionsTotal.WithLabelValues("success", "").Add(float64(len(products)))
	sum.Products += len(products)
	sum.ExtractionFailures += len(failures)

	res := uc.Normalizer.Normalize(products)
	for _, err := range res.Rejected {
		uc.Logger.Warn("Product rejected", zap.Error(err))
	}
	sum.RejectedRecords += len(res.Rejected)

	if err := uc.Writer.Write(ctx, entity.Columns, res.Rows); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	uc.Metrics.RowsExportedTotal.Add(float64(len(res.Rows)))
	sum.RowsExported += len(res.Rows)
	uc.Logger.Info("Export written",
		zap.Int("documents", len(docs)),
		zap.Int("products", len(products)),
		zap.Int("rows", len(res.Rows)),
	)
	return nil
}

// RetryFailed re-fetches recorded failures of both document tables. A URL that
// now succeeds is stored and removed from the ledger.
func (uc *crawlerUseCase) RetryFailed(ctx context.Context, sum *entity.RunSummary) error {
	for _, table := range []string{entity.TableSearch, entity.TableProduct} {
		failed, err := uc.FailedURLs.FindRetryable(ctx, table, retryBatchSize)
		if err != nil {
			return fmt.Errorf("find retryable %s: %w", table, err)
		}
		if len(failed) == 0 {
			continue
		}
		urls := make([]string, len(failed))
		for i, f := range failed {
			urls[i] = f.URL
		}
		uc.Logger.Info("Retrying failed URLs", zap.String("table", table), zap.Int("count", len(urls)))

		stored, err := uc.fetchAndStore(ctx, table, urls, true, sum)
		if table == entity.TableSearch {
			sum.SearchPagesStored += stored
		} else {
			sum.ProductPagesStored += stored
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// fetchAndStore fetches urls and appends every successful body to table.
// Fetch failures are recorded in the failed URL ledger and counted. A storage
// failure cancels the outstanding fetches and is returned.
func (uc *crawlerUseCase) fetchAndStore(ctx context.Context, table string, urls []string, retry bool, sum *entity.RunSummary) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stored := 0
	for res := range uc.Batch.Stream(ctx, urls) {
		if res.Err != nil {
			if ctx.Err() != nil {
				continue
			}
			sum.FetchFailures++
			if err := uc.recordFailure(ctx, table, res); err != nil {
				return stored, err
			}
			continue
		}

		if err := uc.Documents.Put(ctx, table, res.URL, res.Body); err != nil {
			return stored, err
		}
		stored++
		uc.Metrics.DocumentsStoredTotal.WithLabelValues(table).Inc()

		if retry {
			if err := uc.FailedURLs.Delete(ctx, res.URL, table); err != nil {
				uc.Logger.Warn("Failed to delete URL from failed_urls table after successful fetch", zap.String("url", res.URL), zap.Error(err))
			}
		}
		if table == entity.TableProduct && uc.Visited != nil {
			if err := uc.Visited.MarkVisited(ctx, res.URL, uc.VisitedTTL); err != nil {
				uc.Logger.Warn("Failed to mark URL as visited", zap.String("url", res.URL), zap.Error(err))
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return stored, err
	}
	return stored, nil
}

func (uc *crawlerUseCase) recordFailure(ctx context.Context, table string, res entity.FetchResult) error {
	failed := &entity.FailedURL{
		URL:                  res.URL,
		Table:                table,
		FailureReason:        res.Err.Error(),
		LastAttemptTimestamp: time.Now(),
	}
	var fe *entity.FetchError
	if errors.As(res.Err, &fe) {
		failed.HTTPStatusCode = fe.Status
	}
	if err := uc.FailedURLs.SaveOrUpdate(ctx, failed); err != nil {
		return fmt.Errorf("failed to save or update failed URL record for %s: %w", res.URL, err)
	}
	return nil
}

// unvisited drops links fetched within the visited TTL. When the lookup
// fails every link is kept.
func (uc *crawlerUseCase) unvisited(ctx context.Context, links []string) []string {
	if uc.Visited == nil {
		return links
	}
	fresh, err := uc.Visited.Unvisited(ctx, links)
	if err != nil {
		uc.Logger.Warn("Visited lookup failed, fetching every link", zap.Error(err))
		return links
	}
	return fresh
}

// uniqueURLs drops repeated URLs, keeping first-seen order.
func uniqueURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

// latestDocuments keeps the most recently stored body of every URL, at the
// position the URL was first stored.
func latestDocuments(docs []entity.StoredDocument) []entity.StoredDocument {
	out := make([]entity.StoredDocument, 0, len(docs))
	index := make(map[string]int, len(docs))
	for _, d := range docs {
		if i, ok := index[d.URL]; ok {
			out[i] = d
			continue
		}
		index[d.URL] = len(out)
		out = append(out, d)
	}
	return out
}

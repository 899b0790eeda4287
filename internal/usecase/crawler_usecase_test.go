package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/internal/extractor"
	"github.com/user/catalog-etl/internal/mock"
	"github.com/user/catalog-etl/internal/normalizer"
	"github.com/user/catalog-etl/internal/usecase"
	"go.uber.org/zap"
)

const listingURL = "https://shop.test/collections/flags"

func searchPage(pages int, handles ...string) []byte {
	var b strings.Builder
	b.WriteString(`<html><body><div class="grid">`)
	for _, h := range handles {
		fmt.Fprintf(&b, `<div class="item"><a class="item__name" href="/products/%s">%s</a></div>`, h, h)
	}
	fmt.Fprintf(&b, `</div><div class="pagination"><span><a href="?page=1">1</a></span><span><a href="?page=%d">%d</a></span><span><a>Next</a></span></div></body></html>`, pages, pages)
	return []byte(b.String())
}

func productPage(handle string) []byte {
	return []byte(fmt.Sprintf(`<html><head>
<script type="application/json">{"1": {"sku": "%[1]s-1", "options": "None", "inventory_quantity": 2, "price": 10000}}</script>
<script>var seo_html = {name: '%[1]s title', brand: {name: 'Flagmaker'}, offers: {price: "100.00", availability: "InStock"}};</script>
</head><body><div class="pg__main"><a href="//cdn.shop.test/%[1]s.jpg"></a></div></body></html>`, handle))
}

// memStore is an in-memory document store.
type memStore struct {
	mu   sync.Mutex
	rows map[string][]entity.StoredDocument
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string][]entity.StoredDocument)}
}

func (s *memStore) repo() *mock.DocumentRepository {
	return &mock.DocumentRepository{
		PutFn: func(_ context.Context, table, url string, body []byte) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.rows[table] = append(s.rows[table], entity.StoredDocument{URL: url, Body: body})
			return nil
		},
		GetAllFn: func(_ context.Context, table string) ([]entity.StoredDocument, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			return append([]entity.StoredDocument(nil), s.rows[table]...), nil
		},
		PingFn: func(context.Context) error { return nil },
	}
}

func (s *memStore) urls(table string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, d := range s.rows[table] {
		out = append(out, d.URL)
	}
	return out
}

// site serves listing, search and product pages keyed by URL.
func site(pages map[string][]byte) *mock.PageFetcher {
	return &mock.PageFetcher{
		FetchFn: func(_ context.Context, u string) ([]byte, error) {
			if body, ok := pages[u]; ok {
				return body, nil
			}
			return nil, &entity.FetchError{URL: u, Status: 404}
		},
	}
}

type failedLedger struct {
	mu      sync.Mutex
	saved   []*entity.FailedURL
	deleted []string
}

func (l *failedLedger) repo(retryable ...*entity.FailedURL) *mock.FailedURLRepository {
	return &mock.FailedURLRepository{
		SaveOrUpdateFn: func(_ context.Context, f *entity.FailedURL) error {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.saved = append(l.saved, f)
			return nil
		},
		FindRetryableFn: func(_ context.Context, table string, _ int) ([]*entity.FailedURL, error) {
			var out []*entity.FailedURL
			for _, f := range retryable {
				if f.Table == table {
					out = append(out, f)
				}
			}
			return out, nil
		},
		DeleteFn: func(_ context.Context, url, table string) error {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.deleted = append(l.deleted, table+" "+url)
			return nil
		},
	}
}

func newDeps(t *testing.T, fetcher *mock.PageFetcher, store *memStore, ledger *failedLedger, writer *mock.RowWriter) usecase.PipelineDeps {
	t.Helper()
	base, err := url.Parse("https://shop.test")
	require.NoError(t, err)
	norm, err := normalizer.New(nil, nil)
	require.NoError(t, err)
	m := newMetrics()
	return usecase.PipelineDeps{
		Fetcher:    fetcher,
		Batch:      usecase.NewBatchFetcher(fetcher, usecase.FetchOptions{Concurrency: 3}, m, zap.NewNop()),
		Documents:  store.repo(),
		FailedURLs: ledger.repo(),
		Writer:     writer,
		Extractor:  extractor.NewExtractor(base, "TLS", true),
		Normalizer: norm,
		Metrics:    m,
		Logger:     zap.NewNop(),
		Base:       base,
		VisitedTTL: time.Hour,
	}
}

func capture(rows *[]entity.Row) *mock.RowWriter {
	return &mock.RowWriter{
		WriteFn: func(_ context.Context, columns []string, r []entity.Row) error {
			if len(columns) != len(entity.Columns) {
				return errors.New("unexpected header")
			}
			*rows = r
			return nil
		},
	}
}

func TestCrawler_RunCrawl(t *testing.T) {
	t.Parallel()

	pages := map[string][]byte{
		listingURL:                          searchPage(2, "pole-a", "pole-b"),
		listingURL + "?page=1":              searchPage(2, "pole-a", "pole-b"),
		listingURL + "?page=2":              searchPage(2, "pole-c", "missing"),
		"https://shop.test/products/pole-a": productPage("pole-a"),
		"https://shop.test/products/pole-b": productPage("pole-b"),
		"https://shop.test/products/pole-c": productPage("pole-c"),
	}
	store := newMemStore()
	ledger := &failedLedger{}
	var rows []entity.Row
	uc := usecase.NewCrawlerUseCase(newDeps(t, site(pages), store, ledger, capture(&rows)))

	sum, err := uc.Run(context.Background(), listingURL, entity.StageCrawl)

	require.NoError(t, err)
	assert.Equal(t, 2, sum.PageCount)
	assert.Equal(t, 2, sum.SearchPagesStored)
	assert.Equal(t, 4, sum.ProductURLs)
	assert.Equal(t, 3, sum.ProductPagesStored)
	assert.Equal(t, 1, sum.FetchFailures)
	assert.Equal(t, 3, sum.Products)
	assert.Equal(t, 3, sum.RowsExported)

	assert.ElementsMatch(t, []string{listingURL + "?page=1", listingURL + "?page=2"}, store.urls(entity.TableSearch))

	require.Len(t, ledger.saved, 1)
	assert.Equal(t, "https://shop.test/products/missing", ledger.saved[0].URL)
	assert.Equal(t, entity.TableProduct, ledger.saved[0].Table)
	assert.Equal(t, 404, ledger.saved[0].HTTPStatusCode)

	require.Len(t, rows, 3)
	handles := []string{rows[0].Get(entity.ColHandle), rows[1].Get(entity.ColHandle), rows[2].Get(entity.ColHandle)}
	assert.ElementsMatch(t, []string{"pole-a", "pole-b", "pole-c"}, handles)
	assert.Equal(t, "95.00", rows[0].Get(entity.ColVariantPrice))
}

func TestCrawler_RepeatedCrawlExportsEachProductOnce(t *testing.T) {
	t.Parallel()

	pages := map[string][]byte{
		listingURL:                          searchPage(2, "pole-a", "pole-b"),
		listingURL + "?page=1":              searchPage(2, "pole-a", "pole-b"),
		listingURL + "?page=2":              searchPage(2, "pole-a", "pole-c"),
		"https://shop.test/products/pole-a": productPage("pole-a"),
		"https://shop.test/products/pole-b": productPage("pole-b"),
		"https://shop.test/products/pole-c": productPage("pole-c"),
	}
	var (
		mu      sync.Mutex
		fetched = map[string]int{}
	)
	inner := site(pages)
	fetcher := &mock.PageFetcher{
		FetchFn: func(ctx context.Context, u string) ([]byte, error) {
			mu.Lock()
			fetched[u]++
			mu.Unlock()
			return inner.Fetch(ctx, u)
		},
	}
	store := newMemStore()
	var rows []entity.Row
	uc := usecase.NewCrawlerUseCase(newDeps(t, fetcher, store, &failedLedger{}, capture(&rows)))

	_, err := uc.Run(context.Background(), listingURL, entity.StageCrawl)
	require.NoError(t, err)
	sum, err := uc.Run(context.Background(), listingURL, entity.StageCrawl)
	require.NoError(t, err)

	assert.Len(t, store.urls(entity.TableSearch), 4, "search pages are appended on every run")
	assert.Equal(t, 8, sum.ProductURLs)
	assert.Equal(t, 3, sum.ProductPagesStored)
	assert.Equal(t, 2, fetched["https://shop.test/products/pole-a"], "one fetch per run")
	assert.Len(t, store.urls(entity.TableProduct), 6)

	assert.Equal(t, 3, sum.Products)
	require.Len(t, rows, 3)
	var skus []string
	for _, r := range rows {
		skus = append(skus, r.Get(entity.ColVariantSKU))
	}
	assert.ElementsMatch(t, []string{"pole-a-1", "pole-b-1", "pole-c-1"}, skus)
}

func TestCrawler_MissingPaginationIsFatal(t *testing.T) {
	t.Parallel()

	pages := map[string][]byte{listingURL: []byte(`<html><body>no pagination</body></html>`)}
	store := newMemStore()
	uc := usecase.NewCrawlerUseCase(newDeps(t, site(pages), store, &failedLedger{}, &mock.RowWriter{}))

	_, err := uc.Run(context.Background(), listingURL, entity.StageCrawl)

	var pe *entity.ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Contains(t, err.Error(), "search stage")
	assert.Empty(t, store.urls(entity.TableSearch))
}

func TestCrawler_StorageErrorIsFatal(t *testing.T) {
	t.Parallel()

	pages := map[string][]byte{listingURL: searchPage(5)}
	for i := 1; i <= 5; i++ {
		pages[fmt.Sprintf("%s?page=%d", listingURL, i)] = searchPage(5)
	}
	deps := newDeps(t, site(pages), newMemStore(), &failedLedger{}, &mock.RowWriter{})
	diskFull := &entity.StorageError{Op: "put", Table: entity.TableSearch, Err: errors.New("disk full")}
	deps.Documents = &mock.DocumentRepository{
		PutFn: func(context.Context, string, string, []byte) error { return diskFull },
	}

	sum, err := usecase.NewCrawlerUseCase(deps).Run(context.Background(), listingURL, entity.StageSearch)

	var se *entity.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 0, sum.SearchPagesStored)
}

func TestCrawler_SkipsVisitedProducts(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.rows[entity.TableSearch] = []entity.StoredDocument{{URL: listingURL + "?page=1", Body: searchPage(1, "pole-a", "pole-b")}}
	pages := map[string][]byte{
		"https://shop.test/products/pole-a": productPage("pole-a"),
		"https://shop.test/products/pole-b": productPage("pole-b"),
	}
	deps := newDeps(t, site(pages), store, &failedLedger{}, &mock.RowWriter{})

	var (
		mu     sync.Mutex
		marked = map[string]time.Duration{}
	)
	deps.Visited = &mock.VisitedRepository{
		UnvisitedFn: func(_ context.Context, urls []string) ([]string, error) {
			var out []string
			for _, u := range urls {
				if !strings.HasSuffix(u, "pole-a") {
					out = append(out, u)
				}
			}
			return out, nil
		},
		MarkVisitedFn: func(_ context.Context, u string, ttl time.Duration) error {
			mu.Lock()
			defer mu.Unlock()
			marked[u] = ttl
			return nil
		},
	}

	sum, err := usecase.NewCrawlerUseCase(deps).Run(context.Background(), "", entity.StageProducts)

	require.NoError(t, err)
	assert.Equal(t, 2, sum.ProductURLs)
	assert.Equal(t, 1, sum.SkippedVisited)
	assert.Equal(t, []string{"https://shop.test/products/pole-b"}, store.urls(entity.TableProduct))
	assert.Equal(t, map[string]time.Duration{"https://shop.test/products/pole-b": time.Hour}, marked)
}

func TestCrawler_ExportIsolatesBadDocuments(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.rows[entity.TableProduct] = []entity.StoredDocument{
		{URL: "https://shop.test/products/pole-a", Body: productPage("pole-a")},
		{URL: "https://shop.test/products/broken", Body: []byte(`<html><body>gone</body></html>`)},
		{URL: "https://shop.test/products/pole-b", Body: productPage("pole-b")},
	}
	var rows []entity.Row
	uc := usecase.NewCrawlerUseCase(newDeps(t, &mock.PageFetcher{}, store, &failedLedger{}, capture(&rows)))

	sum, err := uc.Run(context.Background(), "", entity.StageExport)

	require.NoError(t, err)
	assert.Equal(t, 2, sum.Products)
	assert.Equal(t, 1, sum.ExtractionFailures)
	require.Len(t, rows, 2)
	assert.Equal(t, "pole-a", rows[0].Get(entity.ColHandle))
	assert.Equal(t, "pole-b", rows[1].Get(entity.ColHandle))
}

func TestCrawler_RetryFailed(t *testing.T) {
	t.Parallel()

	pages := map[string][]byte{"https://shop.test/products/pole-a": productPage("pole-a")}
	store := newMemStore()
	ledger := &failedLedger{}
	deps := newDeps(t, site(pages), store, ledger, &mock.RowWriter{})
	deps.FailedURLs = ledger.repo(
		&entity.FailedURL{URL: "https://shop.test/products/pole-a", Table: entity.TableProduct, RetryCount: 1},
		&entity.FailedURL{URL: "https://shop.test/products/still-gone", Table: entity.TableProduct, RetryCount: 2},
	)

	sum, err := usecase.NewCrawlerUseCase(deps).Run(context.Background(), "", entity.StageRetry)

	require.NoError(t, err)
	assert.Equal(t, 1, sum.ProductPagesStored)
	assert.Equal(t, 1, sum.FetchFailures)
	assert.Equal(t, []string{"https://shop.test/products/pole-a"}, store.urls(entity.TableProduct))
	assert.Equal(t, []string{entity.TableProduct + " https://shop.test/products/pole-a"}, ledger.deleted)
	require.Len(t, ledger.saved, 1)
	assert.Equal(t, "https://shop.test/products/still-gone", ledger.saved[0].URL)
}

func TestCrawler_UnknownStage(t *testing.T) {
	t.Parallel()

	uc := usecase.NewCrawlerUseCase(newDeps(t, &mock.PageFetcher{}, newMemStore(), &failedLedger{}, &mock.RowWriter{}))

	_, err := uc.Run(context.Background(), listingURL, "deploy")

	assert.ErrorContains(t, err, `unknown stage "deploy"`)
}

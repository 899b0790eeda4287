package chromedp_fetcher

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/pkg/proxy"
	"go.uber.org/zap"
)

// ChromedpFetcher renders pages in headless Chrome for storefronts that build
// their markup client side.
type ChromedpFetcher struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	timeout     time.Duration
	logger      *zap.Logger
}

// NewChromedpFetcher starts one browser allocator shared by every fetch. Each
// Fetch opens its own tab. Only the first configured proxy is used because
// Chrome takes a single proxy server per process.
func NewChromedpFetcher(pageLoadTimeout time.Duration, proxies *proxy.Manager, logger *zap.Logger) *ChromedpFetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if ua := proxies.UserAgent(); ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}
	if p := proxies.NextProxy(); p != nil {
		opts = append(opts, chromedp.ProxyServer(p.Scheme+"://"+p.Host))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromedpFetcher{
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
		timeout:     pageLoadTimeout,
		logger:      logger,
	}
}

// Fetch navigates to url and returns the rendered document.
func (c *ChromedpFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	// Create a new browser tab from the shared allocator
	taskCtx, cancel := chromedp.NewContext(c.allocCtx, chromedp.WithLogf(c.logger.Sugar().Debugf))
	defer cancel()

	// Create a timeout for the entire fetch
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, c.timeout)
	defer cancelTimeout()

	// Tie the tab to the caller's context so cancellation closes it.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(taskCtx, chromedp.Navigate(url))
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, &entity.FetchError{URL: url, Cause: err}
	}
	if resp != nil {
		if err := statusError(url, resp.Status); err != nil {
			return nil, err
		}
	}

	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, &entity.FetchError{URL: url, Cause: err}
	}

	c.logger.Debug("Rendered page", zap.String("url", url), zap.Int("bytes", len(html)))
	return []byte(html), nil
}

// Close shuts the browser down.
func (c *ChromedpFetcher) Close() {
	c.cancelAlloc()
}

// statusError maps a non-2xx navigation status to a FetchError.
func statusError(url string, status int64) error {
	if status >= 200 && status <= 299 {
		return nil
	}
	return &entity.FetchError{URL: url, Status: int(status)}
}

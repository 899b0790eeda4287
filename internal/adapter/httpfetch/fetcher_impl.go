package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/pkg/proxy"
	"go.uber.org/zap"
)

const maxRedirects = 10

// Fetcher implements repository.PageFetcher over net/http.
type Fetcher struct {
	client  *http.Client
	proxies *proxy.Manager
	logger  *zap.Logger
}

// NewFetcher creates a Fetcher that follows redirects, applies timeout to
// each request and routes through proxies when any are configured.
func NewFetcher(timeout time.Duration, proxies *proxy.Manager, logger *zap.Logger) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxies.Proxy
	transport.MaxIdleConnsPerHost = 16

	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		proxies: proxies,
		logger:  logger,
	}
}

// Fetch performs a GET of url. Non-2xx responses and transport failures are
// returned as *entity.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &entity.FetchError{URL: url, Cause: err}
	}
	if ua := f.proxies.UserAgent(); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &entity.FetchError{URL: url, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		f.logger.Debug("Non-success status", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return nil, &entity.FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &entity.FetchError{URL: url, Cause: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

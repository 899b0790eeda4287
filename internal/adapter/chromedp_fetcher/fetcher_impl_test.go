package chromedp_fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/pkg/proxy"
	"go.uber.org/zap"
)

func TestStatusError(t *testing.T) {
	tests := []struct {
		status int64
		want   int
	}{
		{status: 200},
		{status: 204},
		{status: 301, want: 301},
		{status: 404, want: 404},
		{status: 503, want: 503},
	}
	for _, tt := range tests {
		err := statusError("https://shop.test/p", tt.status)
		if tt.want == 0 {
			assert.NoError(t, err, tt.status)
			continue
		}
		var fe *entity.FetchError
		require.True(t, errors.As(err, &fe), tt.status)
		assert.Equal(t, tt.want, fe.Status)
		assert.Equal(t, "https://shop.test/p", fe.URL)
	}
}

// newBrowserFetcher skips the test unless a Chrome binary is installed.
func newBrowserFetcher(t *testing.T) *ChromedpFetcher {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests are skipped in short mode")
	}
	found := false
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("no Chrome binary on PATH")
	}

	m, err := proxy.NewManager(nil, "catalog-etl-test")
	require.NoError(t, err)
	f := NewChromedpFetcher(30*time.Second, m, zap.NewNop())
	t.Cleanup(f.Close)
	return f
}

func TestFetchRendersPage(t *testing.T) {
	f := newBrowserFetcher(t)

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/pole" {
			http.NotFound(w, r)
			return
		}
		gotUA = r.UserAgent()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div id="out"></div><script>document.getElementById("out").textContent = "rendered";</script></body></html>`))
	}))
	defer srv.Close()

	body, err := f.Fetch(context.Background(), srv.URL+"/products/pole")

	require.NoError(t, err)
	assert.Contains(t, string(body), `<div id="out">rendered</div>`)
	assert.Equal(t, "catalog-etl-test", gotUA)
}

func TestFetchReportsHTTPStatus(t *testing.T) {
	f := newBrowserFetcher(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := f.Fetch(context.Background(), srv.URL+"/products/missing")

	var fe *entity.FetchError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Equal(t, http.StatusNotFound, fe.Status)
}

func TestFetchHonoursCancelledContext(t *testing.T) {
	f := newBrowserFetcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "http://127.0.0.1:1/")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

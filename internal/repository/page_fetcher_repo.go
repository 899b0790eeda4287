package repository

import "context"

// PageFetcher defines the contract for retrieving the raw body of a single page.
type PageFetcher interface {
	// Fetch performs one GET of url and returns the response body. A non-2xx
	// response or transport failure is returned as *entity.FetchError.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

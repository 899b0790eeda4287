package repository

import (
	"context"
	"time"
)

// VisitedRepository remembers product URLs fetched by recent runs so a later
// run can skip them.
type VisitedRepository interface {
	// MarkVisited records url as fetched for the given expiry.
	MarkVisited(ctx context.Context, url string, expiry time.Duration) error
	// Unvisited returns the urls with no live record, keeping their order.
	Unvisited(ctx context.Context, urls []string) ([]string, error)
}

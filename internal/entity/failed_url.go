package entity

import "time"

// FailedURL mirrors the `failed_urls` table schema.
type FailedURL struct {
	ID                   int64
	URL                  string
	Table                string // document table the URL was meant for
	FailureReason        string
	HTTPStatusCode       int
	LastAttemptTimestamp time.Time
	RetryCount           int
}

// MaxFetchRetries is the number of recorded failures after which a URL is no
// longer offered for retry.
const MaxFetchRetries = 5

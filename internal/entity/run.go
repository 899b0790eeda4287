package entity

import "time"

// Run statuses.
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Pipeline stages a run can execute.
const (
	StageCrawl    = "crawl"    // every stage below, in order
	StageSearch   = "search"   // discover page count, fetch and store search pages
	StageProducts = "products" // extract product links, fetch and store product pages
	StageExport   = "export"   // extract, normalize and write the bulk-import file
	StageRetry    = "retry"    // re-fetch previously failed URLs
)

// CrawlRun tracks one submitted pipeline execution.
type CrawlRun struct {
	ID          string     `json:"id"`
	ListingURL  string     `json:"listing_url"`
	Stage       string     `json:"stage"`
	Status      string     `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`

	Summary       RunSummary `json:"summary"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

// RunSummary aggregates the counters reported by each stage.
type RunSummary struct {
	PageCount          int `json:"page_count"`
	SearchPagesStored  int `json:"search_pages_stored"`
	ProductURLs        int `json:"product_urls"`
	ProductPagesStored int `json:"product_pages_stored"`
	FetchFailures      int `json:"fetch_failures"`
	SkippedVisited     int `json:"skipped_visited"`
	Products           int `json:"products"`
	ExtractionFailures int `json:"extraction_failures"`
	RejectedRecords    int `json:"rejected_records"`
	RowsExported       int `json:"rows_exported"`
}

// ValidStage reports whether stage names a runnable pipeline stage.
func ValidStage(stage string) bool {
	switch stage {
	case StageCrawl, StageSearch, StageProducts, StageExport, StageRetry:
		return true
	}
	return false
}

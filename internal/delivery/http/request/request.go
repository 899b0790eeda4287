package request

// SubmitRunRequest is the body of POST /api/runs.
type SubmitRunRequest struct {
	ListingURL string `json:"listing_url"`
	Stage      string `json:"stage"` // crawl (default), search, products, export or retry
}

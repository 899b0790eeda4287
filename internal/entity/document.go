package entity

import "time"

// Raw document tables.
const (
	TableSearch  = "search_src"
	TableProduct = "product_src"
)

// StoredDocument is one row of a raw document table. The store is append-only,
// so the same URL may appear more than once across crawl runs.
type StoredDocument struct {
	URL  string
	Body []byte
}

// FetchResult is the outcome of fetching a single URL. Err is nil on success.
type FetchResult struct {
	URL      string
	Body     []byte
	Err      error
	Duration time.Duration
}

// ValidTable reports whether table is one of the raw document tables.
func ValidTable(table string) bool {
	return table == TableSearch || table == TableProduct
}

package extractor

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/pkg/utils"
)

const paginationSelector = "div.pagination > span:nth-last-child(2) > a"

// ParsePageCount reads the total number of result pages from a listing page.
// The second-to-last pagination entry links to the final page.
func ParsePageCount(pageURL string, body []byte) (int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, &entity.ParseError{URL: pageURL, Reason: err.Error()}
	}

	sel := doc.Find(paginationSelector).First()
	if sel.Length() == 0 {
		return 0, &entity.ParseError{URL: pageURL, Reason: "pagination control not found"}
	}

	text := strings.TrimSpace(sel.Text())
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return 0, &entity.ParseError{URL: pageURL, Reason: fmt.Sprintf("page count %q is not a number", text)}
	}
	return n, nil
}

// PageURLs returns the listing URL with page=1..count.
func PageURLs(listingURL string, count int) ([]string, error) {
	urls := make([]string, 0, count)
	for page := 1; page <= count; page++ {
		u, err := utils.WithQueryParam(listingURL, "page", strconv.Itoa(page))
		if err != nil {
			return nil, fmt.Errorf("build page url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

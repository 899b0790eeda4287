package extractor

import (
	"bytes"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/pkg/utils"
)

const productLinkSelector = "a.item__name"

// ProductLinks collects product page URLs from stored search-result pages, in
// document order. Relative hrefs are resolved against base. Duplicates are
// kept; unparsable documents and hrefs are skipped.
func ProductLinks(base *url.URL, docs []entity.StoredDocument) []string {
	var links []string
	for _, d := range docs {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(d.Body))
		if err != nil {
			continue
		}
		doc.Find(productLinkSelector).Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok || href == "" {
				return
			}
			abs, err := utils.ToAbsoluteURL(base, href)
			if err != nil {
				return
			}
			links = append(links, abs)
		})
	}
	return links
}

package extractor

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/user/catalog-etl/internal/entity"
	"github.com/user/catalog-etl/pkg/utils"
)

const (
	variantScriptMarker = "inventory_quantity"
	productScriptMarker = "var seo_html"

	breadcrumbSelector  = `li[itemprop="itemListElement"]`
	optionLabelSelector = "span.pg__option-sub__label"
	gallerySelector     = "div.pg__main > a"
	bodySelector        = "div.pg__tabs > div > div > div"

	// stockedQuantity stands in for any positive upstream inventory count.
	stockedQuantity = 10
)

var (
	seoLiteral = regexp.MustCompile(`(?s)var\s+seo_html\s*=\s*(\{.*?\})\s*(?:;|\n\s*fetch)`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Extractor turns stored product pages into products.
type Extractor struct {
	base        *url.URL
	customLabel string
	repairer    *Repairer
}

// NewExtractor creates an Extractor. base resolves relative and
// protocol-relative URLs; customLabel fills the supplier label column.
func NewExtractor(base *url.URL, customLabel string, dropDescription bool) *Extractor {
	return &Extractor{
		base:        base,
		customLabel: customLabel,
		repairer:    NewRepairer(dropDescription),
	}
}

// Products extracts every document. A document that fails is reported in the
// returned errors and does not stop the batch.
func (e *Extractor) Products(docs []entity.StoredDocument) ([]*entity.Product, []*entity.ExtractionError) {
	var (
		products []*entity.Product
		failures []*entity.ExtractionError
	)
	for _, d := range docs {
		p, err := e.Product(d)
		if err != nil {
			var ee *entity.ExtractionError
			if !errors.As(err, &ee) {
				ee = &entity.ExtractionError{URL: d.URL, Reason: entity.ReasonProductDataMissing, Err: err}
			}
			failures = append(failures, ee)
			continue
		}
		products = append(products, p)
	}
	return products, failures
}

// Product extracts one document. The returned product always satisfies the
// equal-length invariant of its flattened record.
func (e *Extractor) Product(d entity.StoredDocument) (*entity.Product, error) {
	fail := func(reason string, err error) error {
		return &entity.ExtractionError{URL: d.URL, Reason: reason, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(d.Body))
	if err != nil {
		return nil, fail(entity.ReasonProductDataMissing, err)
	}

	variantScript, ok := findScript(doc, variantScriptMarker)
	if !ok {
		return nil, fail(entity.ReasonVariantDataMissing, nil)
	}
	variants, err := decodeVariants(variantScript)
	if err != nil {
		return nil, fail(entity.ReasonVariantDataMalformed, err)
	}

	productScript, ok := findScript(doc, productScriptMarker)
	if !ok {
		return nil, fail(entity.ReasonProductDataMissing, nil)
	}
	m := seoLiteral.FindStringSubmatch(productScript)
	if m == nil {
		return nil, fail(entity.ReasonProductDataMissing, nil)
	}
	var seo seoProduct
	if err := json.Unmarshal([]byte(e.repairer.Repair(m[1])), &seo); err != nil {
		return nil, fail(entity.ReasonMalformedEmbedded, err)
	}

	p := &entity.Product{
		SourceURL:    d.URL,
		Title:        seo.Name.String(),
		Description:  strings.TrimSpace(whitespace.ReplaceAllString(seo.Description.String(), " ")),
		SKU:          seo.SKU.String(),
		MPN:          seo.MPN.String(),
		Color:        seo.Color.String(),
		ProductID:    seo.ProductID.String(),
		Vendor:       seo.Brand.Name,
		Price:        seo.Offers.Price,
		Currency:     seo.Offers.PriceCurrency,
		Availability: availability(seo.Offers.Availability),
		CanonicalURL: seo.URL.String(),
		CustomLabel:  e.customLabel,
	}
	p.Handle = utils.LastPathSegment(d.URL)
	if p.Handle == "" {
		p.Handle = utils.Slugify(p.Title)
	}

	if body := doc.Find(bodySelector).First(); body.Length() > 0 {
		if html, err := goquery.OuterHtml(body); err == nil {
			p.BodyHTML = CleanHTML(html)
		}
	}

	applyBreadcrumbs(p, doc)
	applyOptionNames(p, doc)

	for _, rv := range variants {
		v, err := e.variant(rv)
		if err != nil {
			return nil, fail(entity.ReasonInvalidPrice, err)
		}
		p.Variants = append(p.Variants, v)
	}
	p.Images = e.gallery(doc)

	rec := p.Record()
	if err := rec.Validate(); err != nil {
		return nil, fail(entity.ReasonStructuralInvariant, err)
	}
	return p, nil
}

func (e *Extractor) variant(rv rawVariant) (entity.Variant, error) {
	v := entity.Variant{
		SKU:              rv.SKU.String(),
		Options:          []string(rv.Options),
		RequiresShipping: true,
		Taxable:          true,
	}

	if qty := strings.TrimSpace(rv.InventoryQuantity.String()); qty != "" {
		n, err := decimal.NewFromString(qty)
		if err == nil && n.IsPositive() {
			v.InventoryQty = stockedQuantity
		}
	}

	cost, err := centsToAmount(rv.Price)
	if err != nil {
		return v, err
	}
	v.Cost = cost.StringFixed(2)
	v.Price = derivePrice(cost)

	if rv.CompareAtPrice != nil && rv.CompareAtPrice.String() != "" {
		cmp, err := centsToAmount(*rv.CompareAtPrice)
		if err != nil {
			return v, err
		}
		v.CompareAtPrice = cmp.StringFixed(2)
	}

	if rv.FeaturedMedia != nil && rv.FeaturedMedia.Src != "" {
		if abs, err := utils.ToAbsoluteURL(e.base, rv.FeaturedMedia.Src); err == nil {
			v.Image = abs
		}
	}
	return v, nil
}

func (e *Extractor) gallery(doc *goquery.Document) []entity.Image {
	var images []entity.Image
	doc.Find(gallerySelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		src, err := utils.ToAbsoluteURL(e.base, href)
		if err != nil {
			return
		}
		images = append(images, entity.Image{Src: src, Alt: utils.LastPathSegment(href)})
	})
	return images
}

// applyBreadcrumbs derives category, tags and type from the breadcrumb trail.
// The first crumb is the home link and the last one names the product type.
func applyBreadcrumbs(p *entity.Product, doc *goquery.Document) {
	var crumbs []string
	doc.Find(breadcrumbSelector).Each(func(_ int, s *goquery.Selection) {
		crumbs = append(crumbs, strings.TrimSpace(s.Text()))
	})
	if len(crumbs) == 0 {
		return
	}
	p.Type = crumbs[len(crumbs)-1]
	if len(crumbs) > 2 {
		middle := crumbs[1 : len(crumbs)-1]
		p.Category = strings.Join(middle, " > ")
		p.Tags = strings.Join(middle, ", ")
	}
}

func applyOptionNames(p *entity.Product, doc *goquery.Document) {
	doc.Find(optionLabelSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= entity.MaxOptions {
			return false
		}
		label := strings.TrimSpace(s.Text())
		name, _, _ := strings.Cut(label, ":")
		p.OptionNames[i] = strings.TrimSpace(name)
		return true
	})
}

func availability(offer string) string {
	if strings.Contains(offer, "InStock") {
		return "In Stock"
	}
	return "Out of Stock"
}

// findScript returns the text of the first script element containing marker.
func findScript(doc *goquery.Document, marker string) (string, bool) {
	var (
		text  string
		found bool
	)
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t := s.Text(); strings.Contains(t, marker) {
			text, found = t, true
			return false
		}
		return true
	})
	return text, found
}

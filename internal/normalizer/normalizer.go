// Package normalizer flattens extracted products into bulk-import rows.
package normalizer

import (
	"fmt"
	"strconv"

	"github.com/user/catalog-etl/internal/entity"
)

// Fixed values the bulk importer expects on every variant row.
const (
	published          = "TRUE"
	statusActive       = "active"
	inventoryTracker   = "shopify"
	inventoryPolicy    = "deny"
	fulfillmentService = "manual"
)

// Normalizer explodes products over their variant and image axes and blanks
// repeated descriptive columns.
type Normalizer struct {
	variantDedupe []string
	imageDedupe   []string
}

// New returns a Normalizer using the given dedupe column sets. Nil slices
// select the defaults.
func New(variantDedupe, imageDedupe []string) (*Normalizer, error) {
	if variantDedupe == nil {
		variantDedupe = DefaultVariantDedupeColumns
	}
	if imageDedupe == nil {
		imageDedupe = DefaultImageDedupeColumns
	}
	for _, set := range [][]string{variantDedupe, imageDedupe} {
		for _, c := range set {
			if _, ok := entity.ColumnIndex(c); !ok {
				return nil, fmt.Errorf("unknown dedupe column %q", c)
			}
		}
	}
	return &Normalizer{variantDedupe: variantDedupe, imageDedupe: imageDedupe}, nil
}

// Result is the outcome of Normalize.
type Result struct {
	Rows []entity.Row
	// Rejected holds one error per product whose record broke the
	// equal-length invariant. Rejected products contribute no rows.
	Rejected []error
}

// Normalize flattens products in order. Products with a single option axis
// come first, followed by products with two or more, matching the importer's
// expectation that simpler products lead the file. When several products share
// a source URL only the last one is exported.
func (n *Normalizer) Normalize(products []*entity.Product) Result {
	var (
		res           Result
		single, multi []entity.ProductRecord
	)
	for _, p := range latestPerSource(products) {
		rec := p.Record()
		if err := rec.Validate(); err != nil {
			res.Rejected = append(res.Rejected, fmt.Errorf("reject %s: %w", p.SourceURL, err))
			continue
		}
		if len(rec.OptionValues[1]) == 0 {
			single = append(single, rec)
		} else {
			multi = append(multi, rec)
		}
	}

	type variantRow struct {
		row    entity.Row
		images *entity.ProductRecord
	}
	var variantRows []variantRow
	for _, part := range [][]entity.ProductRecord{single, multi} {
		for i := range part {
			rec := &part[i]
			for _, row := range explodeVariants(rec) {
				variantRows = append(variantRows, variantRow{row: row, images: rec})
			}
		}
	}

	seenHandle := make(map[string]bool)
	for _, vr := range variantRows {
		h := vr.row.Get(entity.ColHandle)
		if seenHandle[h] {
			blank(vr.row, n.variantDedupe)
		}
		seenHandle[h] = true
	}

	seenVariant := make(map[string]bool)
	for _, vr := range variantRows {
		for _, row := range explodeImages(vr.row, vr.images) {
			key := row.Get(entity.ColHandle) + "\x00" + row.Get(entity.ColVariantSKU)
			if seenVariant[key] {
				blank(row, n.imageDedupe)
			}
			seenVariant[key] = true
			res.Rows = append(res.Rows, row)
		}
	}
	return res
}

// latestPerSource keeps the last product of every source URL, at the position
// of its first occurrence. Products without a source URL are all kept.
func latestPerSource(products []*entity.Product) []*entity.Product {
	out := make([]*entity.Product, 0, len(products))
	index := make(map[string]int, len(products))
	for _, p := range products {
		if p.SourceURL == "" {
			out = append(out, p)
			continue
		}
		if i, ok := index[p.SourceURL]; ok {
			out[i] = p
			continue
		}
		index[p.SourceURL] = len(out)
		out = append(out, p)
	}
	return out
}

// explodeVariants yields one row per variant, or a single row without
// variant data when the product has none.
func explodeVariants(rec *entity.ProductRecord) []entity.Row {
	base := entity.NewRow()
	base.Set(entity.ColHandle, rec.Handle)
	base.Set(entity.ColTitle, rec.Title)
	base.Set(entity.ColBodyHTML, rec.BodyHTML)
	base.Set(entity.ColVendor, rec.Vendor)
	base.Set(entity.ColProductCategory, rec.Category)
	base.Set(entity.ColType, rec.Type)
	base.Set(entity.ColTags, rec.Tags)
	base.Set(entity.ColPublished, published)
	for k := 0; k < entity.MaxOptions; k++ {
		base.Set(entity.OptionNameColumns[k], rec.OptionNames[k])
	}
	base.Set(entity.ColCustomLabel0, rec.CustomLabel)
	base.Set(entity.ColStatus, statusActive)

	if rec.Variants() == 0 {
		return []entity.Row{base}
	}

	rows := make([]entity.Row, 0, rec.Variants())
	for i := 0; i < rec.Variants(); i++ {
		row := base.Clone()
		for k := 0; k < entity.MaxOptions; k++ {
			if rec.OptionActive(k) {
				row.Set(entity.OptionValueColumns[k], rec.OptionValues[k][i])
			}
		}
		row.Set(entity.ColVariantSKU, rec.VariantSKU[i])
		row.Set(entity.ColVariantGrams, rec.VariantGrams[i])
		row.Set(entity.ColVariantInventoryTracker, inventoryTracker)
		row.Set(entity.ColVariantInventoryQty, strconv.Itoa(rec.VariantInventoryQty[i]))
		row.Set(entity.ColVariantInventoryPolicy, inventoryPolicy)
		row.Set(entity.ColVariantFulfillment, fulfillmentService)
		row.Set(entity.ColVariantPrice, rec.VariantPrice[i])
		row.Set(entity.ColVariantCompareAtPrice, rec.VariantCompareAtPrice[i])
		row.Set(entity.ColVariantRequiresShipping, formatBool(rec.VariantRequiresShipping[i]))
		row.Set(entity.ColVariantTaxable, formatBool(rec.VariantTaxable[i]))
		row.Set(entity.ColVariantImage, rec.VariantImage[i])
		row.Set(entity.ColCostPerItem, rec.CostPerItem[i])
		rows = append(rows, row)
	}
	return rows
}

// explodeImages yields one copy of row per product image, or row itself when
// the product has no images.
func explodeImages(row entity.Row, rec *entity.ProductRecord) []entity.Row {
	if rec.Images() == 0 {
		return []entity.Row{row}
	}
	rows := make([]entity.Row, 0, rec.Images())
	for i := 0; i < rec.Images(); i++ {
		r := row.Clone()
		r.Set(entity.ColImageSrc, rec.ImageSrc[i])
		r.Set(entity.ColImagePosition, strconv.Itoa(i+1))
		r.Set(entity.ColImageAltText, rec.ImageAlt[i])
		rows = append(rows, r)
	}
	return rows
}

func blank(row entity.Row, cols []string) {
	for _, c := range cols {
		row.Set(c, "")
	}
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

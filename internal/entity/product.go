package entity

// MaxOptions is the number of option dimensions the bulk-import format supports.
const MaxOptions = 3

// Product is the normalized result of extracting one product page.
type Product struct {
	SourceURL    string
	Handle       string
	Title        string
	BodyHTML     string
	Description  string
	Vendor       string
	SKU          string
	MPN          string
	Color        string
	ProductID    string
	Price        string
	Currency     string
	Availability string
	CanonicalURL string
	Category     string
	Type         string
	Tags         string
	CustomLabel  string

	// OptionNames holds up to three option dimension names; an empty name
	// means the slot is not in use for this product.
	OptionNames [MaxOptions]string

	Variants []Variant
	Images   []Image
}

// Variant is one purchasable SKU of a product.
type Variant struct {
	SKU              string
	Grams            string
	InventoryQty     int
	Cost             string
	Price            string
	CompareAtPrice   string
	Image            string
	Options          []string // raw option values as published; nil when the source had none
	RequiresShipping bool
	Taxable          bool
}

// Image is one gallery image of a product.
type Image struct {
	Src string
	Alt string
}

// OptionActive reports whether option slot k (0-based) is in use.
func (p *Product) OptionActive(k int) bool {
	return k >= 0 && k < MaxOptions && p.OptionNames[k] != ""
}

// ProductRecord is the flattened, parallel-array form of a Product used at
// the export boundary. Every variant-axis slice has one entry per variant and
// every image-axis slice one entry per image; OptionValues[k] is nil when
// option slot k is not in use.
type ProductRecord struct {
	Handle      string
	Title       string
	BodyHTML    string
	Vendor      string
	Category    string
	Type        string
	Tags        string
	CustomLabel string

	OptionNames  [MaxOptions]string
	OptionValues [MaxOptions][]string

	VariantSKU              []string
	VariantGrams            []string
	VariantInventoryQty     []int
	VariantPrice            []string
	VariantCompareAtPrice   []string
	VariantImage            []string
	CostPerItem             []string
	VariantRequiresShipping []bool
	VariantTaxable          []bool

	ImageSrc []string
	ImageAlt []string
}

// Record flattens p. Option values are only collected for slots in use, and
// a variant lacking a value for an active slot contributes nothing to that
// slot, so Validate on the result exposes the mismatch.
func (p *Product) Record() ProductRecord {
	r := ProductRecord{
		Handle:      p.Handle,
		Title:       p.Title,
		BodyHTML:    p.BodyHTML,
		Vendor:      p.Vendor,
		Category:    p.Category,
		Type:        p.Type,
		Tags:        p.Tags,
		CustomLabel: p.CustomLabel,
		OptionNames: p.OptionNames,
	}
	for k := 0; k < MaxOptions; k++ {
		if p.OptionActive(k) {
			r.OptionValues[k] = make([]string, 0, len(p.Variants))
		}
	}

	for _, v := range p.Variants {
		for k := 0; k < MaxOptions; k++ {
			if p.OptionActive(k) && k < len(v.Options) {
				r.OptionValues[k] = append(r.OptionValues[k], v.Options[k])
			}
		}
		r.VariantSKU = append(r.VariantSKU, v.SKU)
		r.VariantGrams = append(r.VariantGrams, v.Grams)
		r.VariantInventoryQty = append(r.VariantInventoryQty, v.InventoryQty)
		r.VariantPrice = append(r.VariantPrice, v.Price)
		r.VariantCompareAtPrice = append(r.VariantCompareAtPrice, v.CompareAtPrice)
		r.VariantImage = append(r.VariantImage, v.Image)
		r.CostPerItem = append(r.CostPerItem, v.Cost)
		r.VariantRequiresShipping = append(r.VariantRequiresShipping, v.RequiresShipping)
		r.VariantTaxable = append(r.VariantTaxable, v.Taxable)
	}

	for _, img := range p.Images {
		r.ImageSrc = append(r.ImageSrc, img.Src)
		r.ImageAlt = append(r.ImageAlt, img.Alt)
	}
	return r
}

// Variants returns the length of the variant axis.
func (r *ProductRecord) Variants() int { return len(r.VariantSKU) }

// Images returns the length of the image axis.
func (r *ProductRecord) Images() int { return len(r.ImageSrc) }

// OptionActive reports whether option slot k (0-based) is in use.
func (r *ProductRecord) OptionActive(k int) bool {
	return k >= 0 && k < MaxOptions && r.OptionNames[k] != ""
}

// Validate checks that all parallel arrays on each axis have equal length.
func (r *ProductRecord) Validate() error {
	want := len(r.VariantSKU)
	variantFields := []struct {
		name string
		n    int
	}{
		{ColVariantGrams, len(r.VariantGrams)},
		{ColVariantInventoryQty, len(r.VariantInventoryQty)},
		{ColVariantPrice, len(r.VariantPrice)},
		{ColVariantCompareAtPrice, len(r.VariantCompareAtPrice)},
		{ColVariantImage, len(r.VariantImage)},
		{ColCostPerItem, len(r.CostPerItem)},
		{ColVariantRequiresShipping, len(r.VariantRequiresShipping)},
		{ColVariantTaxable, len(r.VariantTaxable)},
	}
	for k := 0; k < MaxOptions; k++ {
		if r.OptionActive(k) {
			variantFields = append(variantFields, struct {
				name string
				n    int
			}{OptionValueColumns[k], len(r.OptionValues[k])})
		}
	}
	for _, f := range variantFields {
		if f.n != want {
			return &StructuralInvariantError{Handle: r.Handle, Axis: "variant", Field: f.name, Want: want, Got: f.n}
		}
	}

	if len(r.ImageAlt) != len(r.ImageSrc) {
		return &StructuralInvariantError{Handle: r.Handle, Axis: "image", Field: ColImageAltText, Want: len(r.ImageSrc), Got: len(r.ImageAlt)}
	}
	return nil
}

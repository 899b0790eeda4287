package entity

// Bulk-import column names.
const (
	ColHandle                  = "Handle"
	ColTitle                   = "Title"
	ColBodyHTML                = "Body (HTML)"
	ColVendor                  = "Vendor"
	ColProductCategory         = "Product Category"
	ColType                    = "Type"
	ColTags                    = "Tags"
	ColPublished               = "Published"
	ColOption1Name             = "Option1 Name"
	ColOption1Value            = "Option1 Value"
	ColOption2Name             = "Option2 Name"
	ColOption2Value            = "Option2 Value"
	ColOption3Name             = "Option3 Name"
	ColOption3Value            = "Option3 Value"
	ColVariantSKU              = "Variant SKU"
	ColVariantGrams            = "Variant Grams"
	ColVariantInventoryTracker = "Variant Inventory Tracker"
	ColVariantInventoryQty     = "Variant Inventory Qty"
	ColVariantInventoryPolicy  = "Variant Inventory Policy"
	ColVariantFulfillment      = "Variant Fulfillment Service"
	ColVariantPrice            = "Variant Price"
	ColVariantCompareAtPrice   = "Variant Compare At Price"
	ColVariantRequiresShipping = "Variant Requires Shipping"
	ColVariantTaxable          = "Variant Taxable"
	ColImageSrc                = "Image Src"
	ColImagePosition           = "Image Position"
	ColImageAltText            = "Image Alt Text"
	ColCustomLabel0            = "Google Shopping / Custom Label 0"
	ColVariantImage            = "Variant Image"
	ColCostPerItem             = "Cost per item"
	ColStatus                  = "Status"
)

// Columns is the export column order expected by the bulk importer. Do not
// reorder.
var Columns = []string{
	ColHandle,
	ColTitle,
	ColBodyHTML,
	ColVendor,
	ColProductCategory,
	ColType,
	ColTags,
	ColPublished,
	ColOption1Name,
	ColOption1Value,
	ColOption2Name,
	ColOption2Value,
	ColOption3Name,
	ColOption3Value,
	ColVariantSKU,
	ColVariantGrams,
	ColVariantInventoryTracker,
	ColVariantInventoryQty,
	ColVariantInventoryPolicy,
	ColVariantFulfillment,
	ColVariantPrice,
	ColVariantCompareAtPrice,
	ColVariantRequiresShipping,
	ColVariantTaxable,
	ColImageSrc,
	ColImagePosition,
	ColImageAltText,
	ColCustomLabel0,
	ColVariantImage,
	ColCostPerItem,
	ColStatus,
}

var (
	OptionNameColumns  = [MaxOptions]string{ColOption1Name, ColOption2Name, ColOption3Name}
	OptionValueColumns = [MaxOptions]string{ColOption1Value, ColOption2Value, ColOption3Value}
)

var columnIndex = func() map[string]int {
	m := make(map[string]int, len(Columns))
	for i, c := range Columns {
		m[c] = i
	}
	return m
}()

// ColumnIndex returns the position of name in Columns.
func ColumnIndex(name string) (int, bool) {
	i, ok := columnIndex[name]
	return i, ok
}

// Row is one exported line, aligned with Columns.
type Row []string

// NewRow returns an empty row.
func NewRow() Row {
	return make(Row, len(Columns))
}

// Get returns the value of column name, or "" for an unknown column.
func (r Row) Get(name string) string {
	if i, ok := columnIndex[name]; ok {
		return r[i]
	}
	return ""
}

// Set assigns the value of column name. Unknown columns are ignored.
func (r Row) Set(name, value string) {
	if i, ok := columnIndex[name]; ok {
		r[i] = value
	}
}

// Clone returns an independent copy of r.
func (r Row) Clone() Row {
	c := make(Row, len(r))
	copy(c, r)
	return c
}

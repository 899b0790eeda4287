package extractor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// flexString accepts a JSON string, number, boolean or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		return fmt.Errorf("expected scalar, got %s", data[:1])
	default:
		*f = flexString(data)
	}
	return nil
}

func (f flexString) String() string { return string(f) }

// seoProduct is the typed form of the repaired seo_html object.
type seoProduct struct {
	Name        flexString `json:"name"`
	Description flexString `json:"description"`
	SKU         flexString `json:"sku"`
	MPN         flexString `json:"mpn"`
	Color       flexString `json:"color"`
	ProductID   flexString `json:"productID"`
	URL         flexString `json:"url"`
	Brand       seoBrand   `json:"brand"`
	Offers      seoOffer   `json:"offers"`
}

// seoBrand is either {"name": "..."} or a bare string.
type seoBrand struct {
	Name string
}

func (b *seoBrand) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Name flexString `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		b.Name = obj.Name.String()
		return nil
	}
	var s flexString
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b.Name = s.String()
	return nil
}

// seoOffer is a single offer object; when the source lists several, the first
// one wins.
type seoOffer struct {
	Price         string
	PriceCurrency string
	Availability  string
}

func (o *seoOffer) UnmarshalJSON(data []byte) error {
	type offer struct {
		Price         flexString `json:"price"`
		PriceCurrency flexString `json:"priceCurrency"`
		Availability  flexString `json:"availability"`
	}
	data = bytes.TrimSpace(data)
	var first offer
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '[':
		var all []offer
		if err := json.Unmarshal(data, &all); err != nil {
			return err
		}
		if len(all) == 0 {
			return nil
		}
		first = all[0]
	default:
		if err := json.Unmarshal(data, &first); err != nil {
			return err
		}
	}
	o.Price = first.Price.String()
	o.PriceCurrency = first.PriceCurrency.String()
	o.Availability = first.Availability.String()
	return nil
}

// rawVariant is one entry of the inventory script keyed by variant ID.
type rawVariant struct {
	SKU               flexString   `json:"sku"`
	Options           optionList   `json:"options"`
	InventoryQuantity json.Number  `json:"inventory_quantity"`
	Price             json.Number  `json:"price"`
	CompareAtPrice    *json.Number `json:"compare_at_price"`
	FeaturedMedia     *struct {
		Src string `json:"src"`
	} `json:"featured_media"`
}

// optionList is a variant's option values. The storefront writes the string
// "None" instead of an array for products without options.
type optionList []string

func (l *optionList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		var s flexString
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if v := s.String(); v != "" && v != "None" {
			*l = optionList{v}
		} else {
			*l = nil
		}
		return nil
	}
	var values []flexString
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	out := make(optionList, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	*l = out
	return nil
}

var errNotObject = errors.New("variant data is not a JSON object")

// decodeVariants parses the inventory script and returns its variants in
// source order.
func decodeVariants(script string) ([]rawVariant, error) {
	dec := json.NewDecoder(strings.NewReader(script))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}

	var variants []rawVariant
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var v rawVariant
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return variants, nil
}

package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	discountRate = decimal.RequireFromString("0.05")
	hundred      = decimal.NewFromInt(100)
)

const zeroPrice = "0.00"

// DerivePrice computes the sell price for a wholesale cost:
// cost - round(cost * 0.05, 2), formatted with two decimals. An empty, zero
// or "0.00" cost yields "0.00". Rounding is half away from zero.
func DerivePrice(cost string) (string, error) {
	cost = strings.TrimSpace(cost)
	if cost == "" || cost == zeroPrice {
		return zeroPrice, nil
	}
	d, err := decimal.NewFromString(cost)
	if err != nil {
		return "", fmt.Errorf("parse cost %q: %w", cost, err)
	}
	return derivePrice(d), nil
}

func derivePrice(cost decimal.Decimal) string {
	if cost.IsZero() {
		return zeroPrice
	}
	return cost.Sub(cost.Mul(discountRate).Round(2)).StringFixed(2)
}

// centsToAmount converts a minor-unit amount (1999) into a major-unit
// decimal (19.99).
func centsToAmount(n json.Number) (decimal.Decimal, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d.Div(hundred).Round(2), nil
}

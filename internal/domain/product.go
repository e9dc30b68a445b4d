package domain

import (
	"fmt"
	"strconv"
)

// CurrencyEUR is the currency symbol attached to every product price.
const CurrencyEUR = "€"

// Price is a non-negative amount in minor currency units (cents).
// It renders in JSON as a decimal number with two fractional digits.
type Price int64

// Whole returns a Price for the given amount of whole currency units.
func Whole(units int64) Price {
	return Price(units * 100)
}

// Cents returns a Price for the given amount of minor units.
func Cents(c int64) Price {
	return Price(c)
}

// String formats the price as a decimal, e.g. "29.99".
func (p Price) String() string {
	sign := ""
	v := int64(p)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the price as a JSON number.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalJSON decodes a JSON number into minor units, rounding to the cent.
func (p *Price) UnmarshalJSON(data []byte) error {
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("decode price: %w", err)
	}
	if f < 0 {
		*p = Price(f*100 - 0.5)
		return nil
	}
	*p = Price(f*100 + 0.5)
	return nil
}

// Product is a normalized, displayable search result. Products live for a
// single request and are never stored.
type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Brand      string `json:"brand"`
	Price      Price  `json:"price"`
	Currency   string `json:"currency"`
	ImageURL   string `json:"imageUrl"`
	ProductURL string `json:"productUrl"`
	Source     string `json:"source"`
}

// ValidateProducts checks the per-response invariants: every id is unique and
// no price is negative.
func ValidateProducts(products []Product) error {
	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate product id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Price < 0 {
			return fmt.Errorf("product %q has negative price %s", p.ID, p.Price)
		}
	}
	return nil
}

package payments

import "github.com/shopspring/decimal"

// Package is a purchasable bundle of card credits.
type Package struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Credits  int64           `json:"credits"`
	PriceVND decimal.Decimal `json:"priceVnd"`
	PriceUSD decimal.Decimal `json:"priceUsd"`
}

var catalog = []Package{
	{ID: "starter", Name: "Starter", Credits: 10, PriceVND: decimal.NewFromInt(50000), PriceUSD: decimal.RequireFromString("2.00")},
	{ID: "standard", Name: "Standard", Credits: 30, PriceVND: decimal.NewFromInt(120000), PriceUSD: decimal.RequireFromString("5.00")},
	{ID: "business", Name: "Business", Credits: 100, PriceVND: decimal.NewFromInt(350000), PriceUSD: decimal.RequireFromString("14.00")},
}

// Packages lists the credit catalog in display order.
func Packages() []Package {
	out := make([]Package, len(catalog))
	copy(out, catalog)
	return out
}

func findPackage(id string) (Package, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}

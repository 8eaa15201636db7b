package domain

import "time"

// Product is a catalog product owned by the commerce side of the system.
// The featured-products code only reads it.
type Product struct {
	ID          string
	Title       string
	Handle      string
	Description string
	Thumbnail   string
	CreatedAt   time.Time
	Variants    []Variant
}

// Variant is a purchasable variant of a product.
// Prices holds one entry per currency the variant is sold in.
// CalculatedPrice is only populated when a listing is requested for a region.
type Variant struct {
	ID              string
	ProductID       string
	Title           string
	SKU             string
	Prices          []Price
	CalculatedPrice *CalculatedPrice
}

// Price is a variant price in minor currency units (cents for USD).
// CurrencyCode is the lowercase ISO 4217 code, e.g. "eur".
type Price struct {
	CurrencyCode string
	Amount       int64
}

// Region is a pricing context: a geography with one currency.
type Region struct {
	ID           string
	Name         string
	CurrencyCode string
}

// RegionContext is the optional region/currency pair a storefront listing
// can be priced in.
type RegionContext struct {
	RegionID     string
	CurrencyCode string
}

// CalculatedPrice is the display price of a variant in a region's currency.
type CalculatedPrice struct {
	CurrencyCode string
	Amount       int64
	Formatted    string
}

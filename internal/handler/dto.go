package handler

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/dumper-shop/backend/internal/domain"
)

type createFeaturedRequest struct {
	Position *int `json:"position" validate:"required,min=1,max=2147483647"`
}

type productIDRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

// normalize trims product_id so a blank id fails the required check.
func (r *productIDRequest) normalize() { r.ProductID = strings.TrimSpace(r.ProductID) }

type priceResponse struct {
	CurrencyCode string `json:"currency_code"`
	Amount       int64  `json:"amount"`
}

type calculatedPriceResponse struct {
	CurrencyCode string `json:"currency_code"`
	Amount       int64  `json:"amount"`
	Formatted    string `json:"formatted"`
}

type variantResponse struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	SKU    string          `json:"sku,omitempty"`
	Prices []priceResponse `json:"prices"`
}

// storeVariantResponse always carries calculated_price: null means the
// variant has no price in the requested currency, or no region was given.
type storeVariantResponse struct {
	variantResponse
	CalculatedPrice *calculatedPriceResponse `json:"calculated_price"`
}

type productFields struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Handle      string    `json:"handle"`
	Description string    `json:"description,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type productResponse struct {
	productFields
	Variants []variantResponse `json:"variants"`
}

type storeProductResponse struct {
	productFields
	Variants []storeVariantResponse `json:"variants"`
}

type featuredResponse struct {
	ID       uuid.UUID       `json:"id"`
	Product  productResponse `json:"product"`
	Position int             `json:"position"`
}

type featuredListResponse struct {
	FeaturedProducts []featuredResponse `json:"featured_products"`
}

type storeFeaturedResponse struct {
	ID       uuid.UUID            `json:"id"`
	Position int                  `json:"position"`
	Product  storeProductResponse `json:"product"`
}

type storeFeaturedListResponse struct {
	FeaturedProducts []storeFeaturedResponse `json:"featured_products"`
}

type slotEnvelope struct {
	FeaturedProduct domain.Slot `json:"featured_product"`
}

type slotOccupancyResponse struct {
	domain.Slot
	ProductID *string `json:"product_id"`
}

type slotListResponse struct {
	Slots []slotOccupancyResponse `json:"slots"`
}

type linkEnvelope struct {
	Link domain.Link `json:"link"`
}

type unlinkedEnvelope struct {
	Unlinked domain.Unlinked `json:"unlinked"`
}

func toProductFields(p domain.Product) productFields {
	return productFields{
		ID:          p.ID,
		Title:       p.Title,
		Handle:      p.Handle,
		Description: p.Description,
		Thumbnail:   p.Thumbnail,
		CreatedAt:   p.CreatedAt,
	}
}

func toVariant(v domain.Variant) variantResponse {
	prices := make([]priceResponse, len(v.Prices))
	for i, p := range v.Prices {
		prices[i] = priceResponse{CurrencyCode: p.CurrencyCode, Amount: p.Amount}
	}
	return variantResponse{ID: v.ID, Title: v.Title, SKU: v.SKU, Prices: prices}
}

func toProduct(p domain.Product) productResponse {
	variants := make([]variantResponse, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = toVariant(v)
	}
	return productResponse{productFields: toProductFields(p), Variants: variants}
}

func toStoreProduct(p domain.Product) storeProductResponse {
	variants := make([]storeVariantResponse, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = storeVariantResponse{variantResponse: toVariant(v)}
		if cp := v.CalculatedPrice; cp != nil {
			variants[i].CalculatedPrice = &calculatedPriceResponse{
				CurrencyCode: cp.CurrencyCode,
				Amount:       cp.Amount,
				Formatted:    cp.Formatted,
			}
		}
	}
	return storeProductResponse{productFields: toProductFields(p), Variants: variants}
}

func toSlotOccupancy(o domain.SlotOccupancy) slotOccupancyResponse {
	out := slotOccupancyResponse{Slot: o.Slot}
	if !o.Free() {
		id := o.ProductID
		out.ProductID = &id
	}
	return out
}

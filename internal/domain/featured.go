// Package domain contains the core data types for the featured-products backend.
// This package has no database or HTTP dependencies and is imported by every
// other internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Slot is one featured-product display position.
// Position is unique among live slots and orders the storefront ascending.
// DeletedAt is set when the slot is soft-deleted; soft-deleted slots are
// ignored by allocation and listing.
type Slot struct {
	ID        uuid.UUID  `json:"id"`
	Position  int        `json:"position"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Link records that a product currently occupies a slot.
// A product appears in at most one link, and so does a slot.
type Link struct {
	ProductID string    `json:"product_id"`
	SlotID    uuid.UUID `json:"featured_product_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Unlinked echoes the association removed by an unlink request.
type Unlinked struct {
	ProductID string    `json:"product_id"`
	SlotID    uuid.UUID `json:"featured_product_id"`
}

// SlotOccupancy is a live slot together with the product occupying it.
// ProductID is empty for a free slot.
type SlotOccupancy struct {
	Slot      Slot
	ProductID string
}

// Free reports whether no product occupies the slot.
func (o SlotOccupancy) Free() bool { return o.ProductID == "" }

// FeaturedEntry is one row of the featured listing: a live, linked slot and
// the product id that occupies it. Rows are ordered by Position ascending.
type FeaturedEntry struct {
	SlotID    uuid.UUID
	Position  int
	ProductID string
}

// FeaturedProduct is a listing row joined to its product record.
type FeaturedProduct struct {
	SlotID   uuid.UUID
	Position int
	Product  Product
}

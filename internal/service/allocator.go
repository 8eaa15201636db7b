package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/dumper-shop/backend/internal/domain"
	"github.com/pkordes/dumper-shop/backend/internal/repo"
)

// Allocation is the slot a product should occupy.
// New is true when every live slot is occupied: the caller must create a slot
// at Position, and SlotID is unset until it does.
type Allocation struct {
	SlotID   uuid.UUID
	Position int
	New      bool
}

// Allocator picks the slot for a newly featured product.
type Allocator struct {
	slots repo.SlotRepo
	links repo.LinkRepo
}

// NewAllocator constructs an Allocator over the slot and link stores.
func NewAllocator(slots repo.SlotRepo, links repo.LinkRepo) *Allocator {
	return &Allocator{slots: slots, links: links}
}

// Allocate returns the lowest-positioned free slot, or a new allocation at
// max(position)+1 when every live slot is occupied. It never writes.
// Callers must hold the featured-products lock for the result to still be
// free when they link to it.
func (a *Allocator) Allocate(ctx context.Context) (Allocation, error) {
	slots, err := a.slots.List(ctx)
	if err != nil {
		return Allocation{}, fmt.Errorf("service.Allocator.Allocate: %w", err)
	}
	links, err := a.links.List(ctx)
	if err != nil {
		return Allocation{}, fmt.Errorf("service.Allocator.Allocate: %w", err)
	}

	if slot, ok := lowestFreeSlot(slots, links); ok {
		return Allocation{SlotID: slot.ID, Position: slot.Position}, nil
	}
	return Allocation{Position: nextPosition(slots), New: true}, nil
}

// lowestFreeSlot returns the unlinked slot with the smallest position.
func lowestFreeSlot(slots []domain.Slot, links []domain.Link) (domain.Slot, bool) {
	occupied := make(map[uuid.UUID]struct{}, len(links))
	for _, l := range links {
		occupied[l.SlotID] = struct{}{}
	}

	var (
		best  domain.Slot
		found bool
	)
	for _, s := range slots {
		if _, taken := occupied[s.ID]; taken {
			continue
		}
		if !found || s.Position < best.Position {
			best, found = s, true
		}
	}
	return best, found
}

// nextPosition is one above the highest live position, or 1 for no slots.
func nextPosition(slots []domain.Slot) int {
	maxPos := 0
	for _, s := range slots {
		if s.Position > maxPos {
			maxPos = s.Position
		}
	}
	return maxPos + 1
}

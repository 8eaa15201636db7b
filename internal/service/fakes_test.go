package service_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/dumper-shop/backend/internal/domain"
	"github.com/pkordes/dumper-shop/backend/internal/repo"
)

// memStore is an in-memory stand-in for the featured tables and the product
// catalog. It enforces the same uniqueness rules as the Postgres schema.
// Hooks let tests inject failures at precise points.
type memStore struct {
	mu       sync.Mutex
	slots    []*domain.Slot // includes soft-deleted rows
	links    []domain.Link
	products map[string]domain.Product
	regions  map[string]domain.Region

	// onLinkCreate, when set, runs before a link insert; a non-nil error is
	// returned from Create without inserting.
	onLinkCreate func(productID string, slotID uuid.UUID) error
	// onSoftDelete, when set, overrides SoftDelete's result.
	onSoftDelete func(id uuid.UUID) error

	slotCreates int
}

func newMemStore(productIDs ...string) *memStore {
	m := &memStore{products: map[string]domain.Product{}, regions: map[string]domain.Region{}}
	for _, id := range productIDs {
		m.products[id] = domain.Product{ID: id, Title: "Product " + id, Handle: id}
	}
	return m
}

func (m *memStore) slotRepo() repo.SlotRepo       { return memSlots{m} }
func (m *memStore) linkRepo() repo.LinkRepo       { return memLinks{m} }
func (m *memStore) productRepo() repo.ProductRepo { return memProducts{m} }
func (m *memStore) regionRepo() repo.RegionRepo   { return memRegions{m} }

// liveSlots returns a snapshot of live slots ordered by position.
func (m *memStore) liveSlots() []domain.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveSlotsLocked()
}

func (m *memStore) liveSlotsLocked() []domain.Slot {
	out := []domain.Slot{}
	for _, s := range m.slots {
		if s.DeletedAt == nil {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *memStore) slotByID(id uuid.UUID) (domain.Slot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s.ID == id {
			return *s, true
		}
	}
	return domain.Slot{}, false
}

func (m *memStore) linkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

// assertInvariants checks live position uniqueness and one-link-per-product
// and one-link-per-slot.
func (m *memStore) assertInvariants(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	positions := map[int]bool{}
	for _, s := range m.liveSlotsLocked() {
		require.False(t, positions[s.Position], "duplicate live position %d", s.Position)
		positions[s.Position] = true
	}
	products := map[string]bool{}
	slots := map[uuid.UUID]bool{}
	for _, l := range m.links {
		require.False(t, products[l.ProductID], "product %s linked twice", l.ProductID)
		require.False(t, slots[l.SlotID], "slot %s linked twice", l.SlotID)
		products[l.ProductID] = true
		slots[l.SlotID] = true
	}
}

// ---- SlotRepo ---------------------------------------------------------------

type memSlots struct{ m *memStore }

func (r memSlots) Create(_ context.Context, position int) (domain.Slot, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.liveSlotsLocked() {
		if s.Position == position {
			return domain.Slot{}, domain.ErrPositionTaken
		}
	}
	now := time.Now().UTC()
	s := &domain.Slot{ID: uuid.New(), Position: position, CreatedAt: now, UpdatedAt: now}
	r.m.slots = append(r.m.slots, s)
	r.m.slotCreates++
	return *s, nil
}

func (r memSlots) GetByID(_ context.Context, id uuid.UUID) (domain.Slot, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.slots {
		if s.ID == id && s.DeletedAt == nil {
			return *s, nil
		}
	}
	return domain.Slot{}, domain.ErrNotFound
}

func (r memSlots) List(context.Context) ([]domain.Slot, error) {
	return r.m.liveSlots(), nil
}

func (r memSlots) FindByPosition(_ context.Context, position int) (domain.Slot, error) {
	for _, s := range r.m.liveSlots() {
		if s.Position == position {
			return s, nil
		}
	}
	return domain.Slot{}, domain.ErrNotFound
}

func (r memSlots) ListOccupancy(context.Context) ([]domain.SlotOccupancy, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.SlotOccupancy{}
	for _, s := range r.m.liveSlotsLocked() {
		o := domain.SlotOccupancy{Slot: s}
		for _, l := range r.m.links {
			if l.SlotID == s.ID {
				o.ProductID = l.ProductID
			}
		}
		out = append(out, o)
	}
	return out, nil
}

func (r memSlots) SoftDelete(_ context.Context, id uuid.UUID) error {
	if r.m.onSoftDelete != nil {
		if err := r.m.onSoftDelete(id); err != nil {
			return err
		}
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.slots {
		if s.ID == id && s.DeletedAt == nil {
			now := time.Now().UTC()
			s.DeletedAt = &now
			return nil
		}
	}
	return domain.ErrNotFound
}

// ---- LinkRepo ---------------------------------------------------------------

type memLinks struct{ m *memStore }

func (r memLinks) Create(_ context.Context, productID string, slotID uuid.UUID) (domain.Link, error) {
	if r.m.onLinkCreate != nil {
		if err := r.m.onLinkCreate(productID, slotID); err != nil {
			return domain.Link{}, err
		}
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, l := range r.m.links {
		if l.ProductID == productID {
			return domain.Link{}, domain.ErrAlreadyFeatured
		}
		if l.SlotID == slotID {
			return domain.Link{}, domain.ErrSlotOccupied
		}
	}
	l := domain.Link{ProductID: productID, SlotID: slotID, CreatedAt: time.Now().UTC()}
	r.m.links = append(r.m.links, l)
	return l, nil
}

func (r memLinks) Dismiss(_ context.Context, productID string, slotID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, l := range r.m.links {
		if l.ProductID == productID && l.SlotID == slotID {
			r.m.links = append(r.m.links[:i], r.m.links[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r memLinks) FindByProduct(_ context.Context, productID string) (domain.Link, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, l := range r.m.links {
		if l.ProductID == productID {
			return l, nil
		}
	}
	return domain.Link{}, domain.ErrNotFound
}

func (r memLinks) FindBySlot(_ context.Context, slotID uuid.UUID) (domain.Link, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, l := range r.m.links {
		if l.SlotID == slotID {
			return l, nil
		}
	}
	return domain.Link{}, domain.ErrNotFound
}

func (r memLinks) List(context.Context) ([]domain.Link, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return append([]domain.Link{}, r.m.links...), nil
}

func (r memLinks) ListFeatured(context.Context) ([]domain.FeaturedEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.FeaturedEntry{}
	for _, s := range r.m.liveSlotsLocked() {
		for _, l := range r.m.links {
			if l.SlotID == s.ID {
				out = append(out, domain.FeaturedEntry{SlotID: s.ID, Position: s.Position, ProductID: l.ProductID})
			}
		}
	}
	return out, nil
}

// ---- ProductRepo / RegionRepo -----------------------------------------------

type memProducts struct{ m *memStore }

func (r memProducts) Exists(_ context.Context, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	_, ok := r.m.products[id]
	return ok, nil
}

func (r memProducts) ListByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.Product{}
	for _, id := range ids {
		if p, ok := r.m.products[id]; ok {
			// Copy variants so callers mutating prices cannot touch the store.
			p.Variants = append([]domain.Variant(nil), p.Variants...)
			out = append(out, p)
		}
	}
	return out, nil
}

type memRegions struct{ m *memStore }

func (r memRegions) GetByID(_ context.Context, id string) (domain.Region, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if reg, ok := r.m.regions[id]; ok {
		return reg, nil
	}
	return domain.Region{}, domain.ErrNotFound
}

// compile-time checks: the fakes must satisfy the repo interfaces.
var (
	_ repo.SlotRepo    = memSlots{}
	_ repo.LinkRepo    = memLinks{}
	_ repo.ProductRepo = memProducts{}
	_ repo.RegionRepo  = memRegions{}
)

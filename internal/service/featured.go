// Package service contains the business logic for the featured-products backend.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/dumper-shop/backend/internal/domain"
	"github.com/pkordes/dumper-shop/backend/internal/repo"
	"github.com/pkordes/dumper-shop/backend/internal/saga"
)

// lockKey names the advisory lock held by every operation that mutates the
// slot set or the link set.
const lockKey = "featured_products"

// MaxPosition is the largest slot position the schema can store.
const MaxPosition = math.MaxInt32

// maxLinkAttempts bounds allocation retries when the link table reports the
// chosen slot was taken underneath us.
const maxLinkAttempts = 3

// FeaturedDeps bundles the collaborators of FeaturedService.
// Log and Metrics may be nil.
type FeaturedDeps struct {
	Slots    repo.SlotRepo
	Links    repo.LinkRepo
	Products repo.ProductRepo
	Locker   repo.Locker
	Cache    ListingCache
	Log      *slog.Logger
	Metrics  Metrics
}

// FeaturedService owns the mutating featured-product operations: creating and
// deleting slots, and linking and unlinking products. Every mutation runs
// under one lock so allocation never races with another writer.
type FeaturedService struct {
	slots     repo.SlotRepo
	links     repo.LinkRepo
	products  repo.ProductRepo
	locker    repo.Locker
	cache     ListingCache
	allocator *Allocator
	log       *slog.Logger
	metrics   Metrics
}

// NewFeaturedService constructs a FeaturedService from deps.
func NewFeaturedService(deps FeaturedDeps) *FeaturedService {
	s := &FeaturedService{
		slots:     deps.Slots,
		links:     deps.Links,
		products:  deps.Products,
		locker:    deps.Locker,
		cache:     deps.Cache,
		allocator: NewAllocator(deps.Slots, deps.Links),
		log:       deps.Log,
		metrics:   deps.Metrics,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.cache == nil {
		s.cache = NoopCache{}
	}
	return s
}

// CreateSlot creates a live slot at position.
// Returns domain.ErrValidation if position is outside [1, MaxPosition] and
// domain.ErrPositionTaken if a live slot already holds it.
func (s *FeaturedService) CreateSlot(ctx context.Context, position int) (domain.Slot, error) {
	if position < 1 || position > MaxPosition {
		return domain.Slot{}, fmt.Errorf("%w: position must be an integer between 1 and %d", domain.ErrValidation, MaxPosition)
	}

	var slot domain.Slot
	err := s.locker.WithLock(ctx, lockKey, func(ctx context.Context) error {
		return saga.New("create-featured-product", s.log, s.metrics).
			Add(saga.Step{
				Name: "check-position",
				Forward: func(ctx context.Context) error {
					_, err := s.slots.FindByPosition(ctx, position)
					switch {
					case err == nil:
						return domain.ErrPositionTaken
					case errors.Is(err, domain.ErrNotFound):
						return nil
					}
					return err
				},
			}).
			Add(s.createSlotStep(func() (int, bool) { return position, true }, &slot)).
			Run(ctx)
	})
	if err != nil {
		return domain.Slot{}, fmt.Errorf("service.FeaturedService.CreateSlot: %w", err)
	}
	return slot, nil
}

// createSlotStep inserts a slot at the position reported by want into
// created, doing nothing when want reports false. Its compensator removes the
// slot again unless a product has meanwhile been linked to it.
func (s *FeaturedService) createSlotStep(want func() (int, bool), created *domain.Slot) saga.Step {
	return saga.Step{
		Name: "create-slot",
		Forward: func(ctx context.Context) error {
			position, ok := want()
			if !ok {
				return nil
			}
			return repo.InSavepoint(ctx, func(ctx context.Context) error {
				var err error
				*created, err = s.slots.Create(ctx, position)
				return err
			})
		},
		Compensate: func(ctx context.Context) error {
			if created.ID == uuid.Nil {
				return nil
			}
			return s.undoCreatedSlot(ctx, created.ID)
		},
	}
}

// DeleteSlot soft-deletes a free slot.
// Returns domain.ErrNotFound if no live slot has id and domain.ErrSlotOccupied
// if a product still occupies it.
func (s *FeaturedService) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	err := s.locker.WithLock(ctx, lockKey, func(ctx context.Context) error {
		if _, err := s.slots.GetByID(ctx, id); err != nil {
			return err
		}
		_, err := s.links.FindBySlot(ctx, id)
		switch {
		case err == nil:
			return domain.ErrSlotOccupied
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		return s.slots.SoftDelete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("service.FeaturedService.DeleteSlot: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

// ListSlots returns every live slot with its occupant, ordered by position.
func (s *FeaturedService) ListSlots(ctx context.Context) ([]domain.SlotOccupancy, error) {
	out, err := s.slots.ListOccupancy(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.FeaturedService.ListSlots: %w", err)
	}
	return out, nil
}

// LinkProduct features productID in the lowest free slot, creating a slot when
// none is free.
// Returns domain.ErrValidation for an empty id, domain.ErrProductNotFound if
// the product does not exist and domain.ErrAlreadyFeatured if it is already
// linked. On any failure after a mutation, the mutations are undone.
func (s *FeaturedService) LinkProduct(ctx context.Context, productID string) (domain.Link, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Link{}, fmt.Errorf("%w: product_id is required", domain.ErrValidation)
	}

	var link domain.Link
	err := s.locker.WithLock(ctx, lockKey, func(ctx context.Context) error {
		for attempt := 1; ; attempt++ {
			var err error
			link, err = s.linkOnce(ctx, productID)
			if errors.Is(err, domain.ErrSlotOccupied) && attempt < maxLinkAttempts {
				s.log.WarnContext(ctx, "featured slot taken concurrently, retrying allocation",
					"product_id", productID,
					"attempt", attempt,
				)
				continue
			}
			return err
		}
	})
	if err != nil {
		return domain.Link{}, fmt.Errorf("service.FeaturedService.LinkProduct: %w", err)
	}

	s.invalidate(ctx)
	return link, nil
}

// linkOnce runs one allocate-and-link attempt as a saga.
func (s *FeaturedService) linkOnce(ctx context.Context, productID string) (domain.Link, error) {
	var (
		alloc   Allocation
		created domain.Slot
		link    domain.Link
	)

	err := saga.New("link-product-to-featured", s.log, s.metrics).
		Add(saga.Step{
			Name:    "check-product",
			Forward: func(ctx context.Context) error { return s.requireProduct(ctx, productID) },
		}).
		Add(saga.Step{
			Name: "check-not-featured",
			Forward: func(ctx context.Context) error {
				_, err := s.links.FindByProduct(ctx, productID)
				switch {
				case err == nil:
					return domain.ErrAlreadyFeatured
				case errors.Is(err, domain.ErrNotFound):
					return nil
				}
				return err
			},
		}).
		Add(saga.Step{
			Name: "allocate-slot",
			Forward: func(ctx context.Context) error {
				var err error
				alloc, err = s.allocator.Allocate(ctx)
				return err
			},
		}).
		Add(s.createSlotStep(func() (int, bool) { return alloc.Position, alloc.New }, &created)).
		Add(saga.Step{
			Name: "create-link",
			Forward: func(ctx context.Context) error {
				slotID := alloc.SlotID
				if alloc.New {
					slotID = created.ID
				}
				return repo.InSavepoint(ctx, func(ctx context.Context) error {
					var err error
					link, err = s.links.Create(ctx, productID, slotID)
					return err
				})
			},
		}).
		Run(ctx)
	if err != nil {
		return domain.Link{}, err
	}

	if alloc.New {
		s.metrics.Allocation(AllocationCreated)
	} else {
		s.metrics.Allocation(AllocationReused)
	}
	s.log.InfoContext(ctx, "product featured",
		"product_id", productID,
		"featured_product_id", link.SlotID,
		"position", alloc.Position,
		"slot_created", alloc.New,
	)
	return link, nil
}

// UnlinkProduct removes productID from its slot. The slot itself stays live
// and becomes the first candidate for the next LinkProduct call.
// Returns domain.ErrProductNotFound if the product does not exist and
// domain.ErrNotFeatured if it has no link. Nothing is mutated on error.
func (s *FeaturedService) UnlinkProduct(ctx context.Context, productID string) (domain.Unlinked, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Unlinked{}, fmt.Errorf("%w: product_id is required", domain.ErrValidation)
	}

	var link domain.Link
	err := s.locker.WithLock(ctx, lockKey, func(ctx context.Context) error {
		return saga.New("unlink-product-from-featured", s.log, s.metrics).
			Add(saga.Step{
				Name:    "check-product",
				Forward: func(ctx context.Context) error { return s.requireProduct(ctx, productID) },
			}).
			Add(saga.Step{
				Name: "find-link",
				Forward: func(ctx context.Context) error {
					var err error
					link, err = s.links.FindByProduct(ctx, productID)
					if errors.Is(err, domain.ErrNotFound) {
						return domain.ErrNotFeatured
					}
					return err
				},
			}).
			Add(saga.Step{
				Name:    "dismiss-link",
				Forward: func(ctx context.Context) error { return s.links.Dismiss(ctx, link.ProductID, link.SlotID) },
			}).
			Run(ctx)
	})
	if err != nil {
		return domain.Unlinked{}, fmt.Errorf("service.FeaturedService.UnlinkProduct: %w", err)
	}

	s.invalidate(ctx)
	return domain.Unlinked{ProductID: link.ProductID, SlotID: link.SlotID}, nil
}

// requireProduct returns domain.ErrProductNotFound if productID is unknown.
func (s *FeaturedService) requireProduct(ctx context.Context, productID string) error {
	ok, err := s.products.Exists(ctx, productID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrProductNotFound
	}
	return nil
}

// undoCreatedSlot soft-deletes a slot created earlier in the same operation,
// unless a product has meanwhile been linked to it. A slot that is already
// gone counts as undone.
func (s *FeaturedService) undoCreatedSlot(ctx context.Context, id uuid.UUID) error {
	_, err := s.links.FindBySlot(ctx, id)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	err = s.slots.SoftDelete(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// invalidate drops cached storefront listings. Failures only cost freshness
// until the cache TTL expires, so they are logged and swallowed.
func (s *FeaturedService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.WarnContext(ctx, "failed to invalidate featured listing cache", "error", err)
	}
}

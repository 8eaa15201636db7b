package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkordes/dumper-shop/backend/internal/domain"
	"github.com/pkordes/dumper-shop/backend/internal/repo"
)

// ListingCache stores rendered storefront listings keyed by pricing context.
//
// Entries belong to a generation. Get reports the generation it looked in and
// Set must be handed that generation back: once Invalidate has started a new
// generation, a listing read from the database before the invalidation can no
// longer be served.
type ListingCache interface {
	Get(ctx context.Context, key string) (featured []domain.FeaturedProduct, gen int64, ok bool, err error)
	Set(ctx context.Context, key string, gen int64, featured []domain.FeaturedProduct) error
	Invalidate(ctx context.Context) error
}

// NoopCache is a ListingCache that never hits. Used when Redis is not configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]domain.FeaturedProduct, int64, bool, error) {
	return nil, 0, false, nil
}
func (NoopCache) Set(context.Context, string, int64, []domain.FeaturedProduct) error { return nil }
func (NoopCache) Invalidate(context.Context) error                                   { return nil }

// ListingService composes the read side: live linked slots joined to their
// products, ordered by position, optionally priced for a region.
type ListingService struct {
	links    repo.LinkRepo
	products repo.ProductRepo
	regions  repo.RegionRepo
	cache    ListingCache
	log      *slog.Logger
	metrics  Metrics
}

// NewListingService constructs a ListingService. cache, log and m may be nil.
func NewListingService(links repo.LinkRepo, products repo.ProductRepo, regions repo.RegionRepo, cache ListingCache, log *slog.Logger, m Metrics) *ListingService {
	if cache == nil {
		cache = NoopCache{}
	}
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = noopMetrics{}
	}
	return &ListingService{links: links, products: products, regions: regions, cache: cache, log: log, metrics: m}
}

// ListFeatured returns the featured products in position order without
// region pricing. Free slots are omitted.
func (s *ListingService) ListFeatured(ctx context.Context) ([]domain.FeaturedProduct, error) {
	out, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ListingService.ListFeatured: %w", err)
	}
	return out, nil
}

// ListStoreFeatured returns the storefront listing. When rc carries both a
// region and a currency every variant carries a calculated price in that
// currency; a nil or incomplete rc yields the unpriced listing.
// Returns domain.ErrValidation if rc names an unknown currency, and
// domain.ErrRegionNotFound if the region does not exist.
// Results are served from the cache when possible.
func (s *ListingService) ListStoreFeatured(ctx context.Context, rc *domain.RegionContext) ([]domain.FeaturedProduct, error) {
	key := "default"
	if rc != nil {
		norm, complete, err := normalizeRegionContext(*rc)
		if err != nil {
			return nil, fmt.Errorf("service.ListingService.ListStoreFeatured: %w", err)
		}
		rc = nil
		if complete {
			rc = &norm
			key = rc.RegionID + ":" + rc.CurrencyCode
		}
	}

	cached, gen, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.StoreCache(CacheError)
		s.log.WarnContext(ctx, "featured listing cache read failed", "key", key, "error", err)
	case ok:
		s.metrics.StoreCache(CacheHit)
		return cached, nil
	default:
		s.metrics.StoreCache(CacheMiss)
	}

	if rc != nil {
		if _, err := s.regions.GetByID(ctx, rc.RegionID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				err = domain.ErrRegionNotFound
			}
			return nil, fmt.Errorf("service.ListingService.ListStoreFeatured: %w", err)
		}
	}

	out, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ListingService.ListStoreFeatured: %w", err)
	}
	if rc != nil {
		for i := range out {
			applyRegionPricing(&out[i].Product, rc.CurrencyCode)
		}
	}

	if err := s.cache.Set(ctx, key, gen, out); err != nil {
		s.log.WarnContext(ctx, "featured listing cache write failed", "key", key, "error", err)
	}
	return out, nil
}

// load joins the linked slots to product records, keeping position order.
// A link whose product has since been deleted is skipped.
func (s *ListingService) load(ctx context.Context) ([]domain.FeaturedProduct, error) {
	entries, err := s.links.ListFeatured(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []domain.FeaturedProduct{}, nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ProductID
	}
	products, err := s.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	out := make([]domain.FeaturedProduct, 0, len(entries))
	for _, e := range entries {
		p, ok := byID[e.ProductID]
		if !ok {
			s.log.DebugContext(ctx, "featured product missing from catalog", "product_id", e.ProductID)
			continue
		}
		out = append(out, domain.FeaturedProduct{SlotID: e.SlotID, Position: e.Position, Product: p})
	}
	return out, nil
}

// normalizeRegionContext trims and lowercases the pair and reports whether
// both halves are present. Only a complete pair has its currency checked.
func normalizeRegionContext(rc domain.RegionContext) (domain.RegionContext, bool, error) {
	rc.RegionID = strings.TrimSpace(rc.RegionID)
	rc.CurrencyCode = strings.ToLower(strings.TrimSpace(rc.CurrencyCode))
	if rc.RegionID == "" || rc.CurrencyCode == "" {
		return domain.RegionContext{}, false, nil
	}
	if !knownCurrency(rc.CurrencyCode) {
		return domain.RegionContext{}, false, fmt.Errorf("%w: unknown currency_code %q", domain.ErrValidation, rc.CurrencyCode)
	}
	return rc, true, nil
}

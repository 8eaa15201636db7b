package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/dumper-shop/backend/internal/domain"
)

// ProductRepo reads the product catalog. Products belong to the commerce side
// of the system; this code never writes them.
type ProductRepo interface {
	// Exists reports whether a live product with id exists.
	Exists(ctx context.Context, id string) (bool, error)

	// ListByIDs returns the live products among ids with their variants and
	// variant prices loaded. Missing ids are skipped; order is unspecified.
	ListByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
}

// RegionRepo reads pricing regions.
type RegionRepo interface {
	// GetByID returns a region. Returns domain.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (domain.Region, error)
}

type pgProductRepo struct {
	db db
}

// NewProductRepo constructs a ProductRepo backed by the provided db connection.
func NewProductRepo(db db) ProductRepo {
	return &pgProductRepo{db: db}
}

// Exists runs a cheap EXISTS probe.
func (r *pgProductRepo) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM products WHERE id = @id AND deleted_at IS NULL)`

	var ok bool
	if err := conn(ctx, r.db).QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&ok); err != nil {
		return false, fmt.Errorf("repo.ProductRepo.Exists: %w", err)
	}
	return ok, nil
}

// ListByIDs loads products, then their variants, then variant prices, and
// stitches them together in memory. Three round trips regardless of size.
func (r *pgProductRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	products, err := r.listProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("repo.ProductRepo.ListByIDs: %w", err)
	}
	variants, err := r.listVariants(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("repo.ProductRepo.ListByIDs: %w", err)
	}
	prices, err := r.listPrices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("repo.ProductRepo.ListByIDs: %w", err)
	}

	for i := range variants {
		variants[i].Prices = prices[variants[i].ID]
	}
	byProduct := make(map[string][]domain.Variant, len(products))
	for _, v := range variants {
		byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
	}
	for i := range products {
		products[i].Variants = byProduct[products[i].ID]
	}
	return products, nil
}

func (r *pgProductRepo) listProducts(ctx context.Context, ids []string) ([]domain.Product, error) {
	const q = `
		SELECT id, title, handle, description, thumbnail, created_at
		FROM products
		WHERE id = ANY(@ids) AND deleted_at IS NULL`

	rows, err := conn(ctx, r.db).Query(ctx, q, pgx.NamedArgs{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Handle, &p.Description, &p.Thumbnail, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("products: scan: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("products: rows: %w", err)
	}
	return products, nil
}

func (r *pgProductRepo) listVariants(ctx context.Context, productIDs []string) ([]domain.Variant, error) {
	const q = `
		SELECT id, product_id, title, sku
		FROM product_variants
		WHERE product_id = ANY(@ids)
		ORDER BY created_at, id`

	rows, err := conn(ctx, r.db).Query(ctx, q, pgx.NamedArgs{"ids": productIDs})
	if err != nil {
		return nil, fmt.Errorf("variants: %w", err)
	}
	defer rows.Close()

	variants := []domain.Variant{}
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Title, &v.SKU); err != nil {
			return nil, fmt.Errorf("variants: scan: %w", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("variants: rows: %w", err)
	}
	return variants, nil
}

// listPrices returns variant prices keyed by variant id.
func (r *pgProductRepo) listPrices(ctx context.Context, productIDs []string) (map[string][]domain.Price, error) {
	const q = `
		SELECT vp.variant_id, vp.currency_code, vp.amount
		FROM variant_prices vp
		JOIN product_variants pv ON pv.id = vp.variant_id
		WHERE pv.product_id = ANY(@ids)
		ORDER BY vp.currency_code`

	rows, err := conn(ctx, r.db).Query(ctx, q, pgx.NamedArgs{"ids": productIDs})
	if err != nil {
		return nil, fmt.Errorf("prices: %w", err)
	}
	defer rows.Close()

	out := map[string][]domain.Price{}
	for rows.Next() {
		var (
			variantID string
			p         domain.Price
		)
		if err := rows.Scan(&variantID, &p.CurrencyCode, &p.Amount); err != nil {
			return nil, fmt.Errorf("prices: scan: %w", err)
		}
		out[variantID] = append(out[variantID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prices: rows: %w", err)
	}
	return out, nil
}

type pgRegionRepo struct {
	db db
}

// NewRegionRepo constructs a RegionRepo backed by the provided db connection.
func NewRegionRepo(db db) RegionRepo {
	return &pgRegionRepo{db: db}
}

// GetByID retrieves a region by primary key.
func (r *pgRegionRepo) GetByID(ctx context.Context, id string) (domain.Region, error) {
	const q = `SELECT id, name, currency_code FROM regions WHERE id = @id`

	var reg domain.Region
	err := conn(ctx, r.db).QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&reg.ID, &reg.Name, &reg.CurrencyCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Region{}, fmt.Errorf("repo.RegionRepo.GetByID: %w", domain.ErrNotFound)
		}
		return domain.Region{}, fmt.Errorf("repo.RegionRepo.GetByID: %w", err)
	}
	return reg, nil
}

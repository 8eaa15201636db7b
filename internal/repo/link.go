package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/dumper-shop/backend/internal/domain"
)

// Unique constraints on product_featured_product. They back the
// one-link-per-product and one-link-per-slot rules.
const (
	linkProductKey = "product_featured_product_product_key"
	linkSlotKey    = "product_featured_product_slot_key"
	linkPrimaryKey = "product_featured_product_pkey"
)

// LinkRepo defines the persistence operations for Product↔Slot links.
type LinkRepo interface {
	// Create stores the association and returns it.
	// Returns domain.ErrAlreadyFeatured if the product already has a link and
	// domain.ErrSlotOccupied if the slot already holds another product.
	Create(ctx context.Context, productID string, slotID uuid.UUID) (domain.Link, error)

	// Dismiss deletes the association.
	// Returns domain.ErrNotFound if it does not exist.
	Dismiss(ctx context.Context, productID string, slotID uuid.UUID) error

	// FindByProduct returns the link held by productID.
	// Returns domain.ErrNotFound if the product is not linked.
	FindByProduct(ctx context.Context, productID string) (domain.Link, error)

	// FindBySlot returns the link occupying slotID.
	// Returns domain.ErrNotFound if the slot is free.
	FindBySlot(ctx context.Context, slotID uuid.UUID) (domain.Link, error)

	// List returns every link whose slot is live.
	List(ctx context.Context) ([]domain.Link, error)

	// ListFeatured returns linked live slots ordered by position ascending.
	ListFeatured(ctx context.Context) ([]domain.FeaturedEntry, error)
}

// pgLinkRepo is the Postgres implementation of LinkRepo.
type pgLinkRepo struct {
	db db
}

// NewLinkRepo constructs a LinkRepo backed by the provided db connection.
func NewLinkRepo(db db) LinkRepo {
	return &pgLinkRepo{db: db}
}

// Create inserts a link row.
func (r *pgLinkRepo) Create(ctx context.Context, productID string, slotID uuid.UUID) (domain.Link, error) {
	const q = `
		INSERT INTO product_featured_product (product_id, featured_product_id)
		VALUES (@product_id, @slot_id)
		RETURNING product_id, featured_product_id, created_at`

	row := conn(ctx, r.db).QueryRow(ctx, q, pgx.NamedArgs{"product_id": productID, "slot_id": slotID})
	result, err := scanLink(row)
	if err != nil {
		switch uniqueConstraint(err) {
		case linkProductKey, linkPrimaryKey:
			return domain.Link{}, fmt.Errorf("repo.LinkRepo.Create: %w", domain.ErrAlreadyFeatured)
		case linkSlotKey:
			return domain.Link{}, fmt.Errorf("repo.LinkRepo.Create: %w", domain.ErrSlotOccupied)
		}
		return domain.Link{}, fmt.Errorf("repo.LinkRepo.Create: %w", err)
	}
	return result, nil
}

// Dismiss removes a link row.
func (r *pgLinkRepo) Dismiss(ctx context.Context, productID string, slotID uuid.UUID) error {
	const q = `
		DELETE FROM product_featured_product
		WHERE product_id = @product_id AND featured_product_id = @slot_id`

	tag, err := conn(ctx, r.db).Exec(ctx, q, pgx.NamedArgs{"product_id": productID, "slot_id": slotID})
	if err != nil {
		return fmt.Errorf("repo.LinkRepo.Dismiss: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.LinkRepo.Dismiss: %w", domain.ErrNotFound)
	}
	return nil
}

// FindByProduct looks up a product's link.
func (r *pgLinkRepo) FindByProduct(ctx context.Context, productID string) (domain.Link, error) {
	const q = `
		SELECT product_id, featured_product_id, created_at
		FROM product_featured_product
		WHERE product_id = @product_id`

	row := conn(ctx, r.db).QueryRow(ctx, q, pgx.NamedArgs{"product_id": productID})
	result, err := scanLink(row)
	if err != nil {
		return domain.Link{}, fmt.Errorf("repo.LinkRepo.FindByProduct: %w", err)
	}
	return result, nil
}

// FindBySlot looks up the link occupying a slot.
func (r *pgLinkRepo) FindBySlot(ctx context.Context, slotID uuid.UUID) (domain.Link, error) {
	const q = `
		SELECT product_id, featured_product_id, created_at
		FROM product_featured_product
		WHERE featured_product_id = @slot_id`

	row := conn(ctx, r.db).QueryRow(ctx, q, pgx.NamedArgs{"slot_id": slotID})
	result, err := scanLink(row)
	if err != nil {
		return domain.Link{}, fmt.Errorf("repo.LinkRepo.FindBySlot: %w", err)
	}
	return result, nil
}

// List returns all links attached to live slots.
func (r *pgLinkRepo) List(ctx context.Context) ([]domain.Link, error) {
	const q = `
		SELECT pfp.product_id, pfp.featured_product_id, pfp.created_at
		FROM product_featured_product pfp
		JOIN featured_product fp ON fp.id = pfp.featured_product_id
		WHERE fp.deleted_at IS NULL`

	rows, err := conn(ctx, r.db).Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.LinkRepo.List: %w", err)
	}
	defer rows.Close()

	links := []domain.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.LinkRepo.List: scan: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.LinkRepo.List: rows: %w", err)
	}
	return links, nil
}

// ListFeatured joins live slots to their links, ordered by position.
func (r *pgLinkRepo) ListFeatured(ctx context.Context) ([]domain.FeaturedEntry, error) {
	const q = `
		SELECT fp.id, fp.position, pfp.product_id
		FROM featured_product fp
		JOIN product_featured_product pfp ON pfp.featured_product_id = fp.id
		WHERE fp.deleted_at IS NULL
		ORDER BY fp.position`

	rows, err := conn(ctx, r.db).Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.LinkRepo.ListFeatured: %w", err)
	}
	defer rows.Close()

	entries := []domain.FeaturedEntry{}
	for rows.Next() {
		var (
			e  domain.FeaturedEntry
			id pgtype.UUID
		)
		if err := rows.Scan(&id, &e.Position, &e.ProductID); err != nil {
			return nil, fmt.Errorf("repo.LinkRepo.ListFeatured: scan: %w", err)
		}
		e.SlotID = uuid.UUID(id.Bytes)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.LinkRepo.ListFeatured: rows: %w", err)
	}
	return entries, nil
}

// scanLink maps a single database row into a domain.Link.
func scanLink(s scanner) (domain.Link, error) {
	var (
		l  domain.Link
		id pgtype.UUID
	)
	err := s.Scan(&l.ProductID, &id, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Link{}, domain.ErrNotFound
		}
		return domain.Link{}, err
	}
	l.SlotID = uuid.UUID(id.Bytes)
	return l, nil
}

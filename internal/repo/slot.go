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

// positionIndex is the partial unique index on live slot positions.
const positionIndex = "idx_featured_product_position_live"

// SlotRepo defines the persistence operations for featured slots.
type SlotRepo interface {
	// Create inserts a live slot at position and returns the persisted record.
	// Returns domain.ErrPositionTaken if a live slot already holds position.
	Create(ctx context.Context, position int) (domain.Slot, error)

	// GetByID returns a live slot by id.
	// Returns domain.ErrNotFound if no live slot has that id.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Slot, error)

	// List returns every live slot ordered by position ascending.
	List(ctx context.Context) ([]domain.Slot, error)

	// FindByPosition returns the live slot at position.
	// Returns domain.ErrNotFound if the position is unused.
	FindByPosition(ctx context.Context, position int) (domain.Slot, error)

	// ListOccupancy returns every live slot ordered by position together with
	// the id of the product occupying it ("" for a free slot).
	ListOccupancy(ctx context.Context) ([]domain.SlotOccupancy, error)

	// SoftDelete stamps deleted_at on a live slot.
	// Returns domain.ErrNotFound if the slot is missing or already deleted,
	// so a repeated call is harmless to callers that ignore ErrNotFound.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// pgSlotRepo is the Postgres implementation of SlotRepo.
type pgSlotRepo struct {
	db db
}

// NewSlotRepo constructs a SlotRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewSlotRepo(db db) SlotRepo {
	return &pgSlotRepo{db: db}
}

// Create inserts a new slot row and returns it.
func (r *pgSlotRepo) Create(ctx context.Context, position int) (domain.Slot, error) {
	const q = `
		INSERT INTO featured_product (position)
		VALUES (@position)
		RETURNING id, position, created_at, updated_at, deleted_at`

	row := conn(ctx, r.db).QueryRow(ctx, q, pgx.NamedArgs{"position": position})
	result, err := scanSlot(row)
	if err != nil {
		if uniqueConstraint(err) == positionIndex {
			return domain.Slot{}, fmt.Errorf("repo.SlotRepo.Create: %w", domain.ErrPositionTaken)
		}
		return domain.Slot{}, fmt.Errorf("repo.SlotRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a live slot by primary key.
func (r *pgSlotRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Slot, error) {
	const q = `
		SELECT id, position, created_at, updated_at, deleted_at
		FROM featured_product
		WHERE id = @id AND deleted_at IS NULL`

	row := conn(ctx, r.db).QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanSlot(row)
	if err != nil {
		return domain.Slot{}, fmt.Errorf("repo.SlotRepo.GetByID: %w", err)
	}
	return result, nil
}

// List returns all live slots ordered by position.
func (r *pgSlotRepo) List(ctx context.Context) ([]domain.Slot, error) {
	const q = `
		SELECT id, position, created_at, updated_at, deleted_at
		FROM featured_product
		WHERE deleted_at IS NULL
		ORDER BY position`

	rows, err := conn(ctx, r.db).Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.List: %w", err)
	}
	defer rows.Close()

	slots := []domain.Slot{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.SlotRepo.List: scan: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.List: rows: %w", err)
	}
	return slots, nil
}

// FindByPosition retrieves the live slot holding position.
func (r *pgSlotRepo) FindByPosition(ctx context.Context, position int) (domain.Slot, error) {
	const q = `
		SELECT id, position, created_at, updated_at, deleted_at
		FROM featured_product
		WHERE position = @position AND deleted_at IS NULL`

	row := conn(ctx, r.db).QueryRow(ctx, q, pgx.NamedArgs{"position": position})
	result, err := scanSlot(row)
	if err != nil {
		return domain.Slot{}, fmt.Errorf("repo.SlotRepo.FindByPosition: %w", err)
	}
	return result, nil
}

// ListOccupancy left-joins live slots to their links.
func (r *pgSlotRepo) ListOccupancy(ctx context.Context) ([]domain.SlotOccupancy, error) {
	const q = `
		SELECT fp.id, fp.position, fp.created_at, fp.updated_at, fp.deleted_at,
		       COALESCE(pfp.product_id, '')
		FROM featured_product fp
		LEFT JOIN product_featured_product pfp ON pfp.featured_product_id = fp.id
		WHERE fp.deleted_at IS NULL
		ORDER BY fp.position`

	rows, err := conn(ctx, r.db).Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.ListOccupancy: %w", err)
	}
	defer rows.Close()

	out := []domain.SlotOccupancy{}
	for rows.Next() {
		var (
			o         domain.SlotOccupancy
			id        pgtype.UUID
			deletedAt pgtype.Timestamptz
		)
		err := rows.Scan(&id, &o.Slot.Position, &o.Slot.CreatedAt, &o.Slot.UpdatedAt, &deletedAt, &o.ProductID)
		if err != nil {
			return nil, fmt.Errorf("repo.SlotRepo.ListOccupancy: scan: %w", err)
		}
		o.Slot.ID = uuid.UUID(id.Bytes)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.ListOccupancy: rows: %w", err)
	}
	return out, nil
}

// SoftDelete marks a live slot as deleted.
func (r *pgSlotRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	const q = `
		UPDATE featured_product
		SET deleted_at = now(), updated_at = now()
		WHERE id = @id AND deleted_at IS NULL`

	tag, err := conn(ctx, r.db).Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.SlotRepo.SoftDelete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.SlotRepo.SoftDelete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanSlot maps a single database row into a domain.Slot.
func scanSlot(s scanner) (domain.Slot, error) {
	var (
		sl        domain.Slot
		id        pgtype.UUID
		deletedAt pgtype.Timestamptz
	)

	err := s.Scan(&id, &sl.Position, &sl.CreatedAt, &sl.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Slot{}, domain.ErrNotFound
		}
		return domain.Slot{}, err
	}

	sl.ID = uuid.UUID(id.Bytes)
	if deletedAt.Valid {
		d := deletedAt.Time
		sl.DeletedAt = &d
	}
	return sl, nil
}

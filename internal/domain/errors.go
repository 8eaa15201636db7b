package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. a non-positive position or an empty product id).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a write would break a uniqueness rule.
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")

// Specific kinds. Each wraps one of the sentinels above, so callers can match
// either the broad class or the precise reason with errors.Is.
var (
	ErrAlreadyFeatured = fmt.Errorf("%w: product is already featured", ErrConflict)
	ErrPositionTaken   = fmt.Errorf("%w: position is already in use", ErrConflict)
	ErrSlotOccupied    = fmt.Errorf("%w: featured slot is occupied", ErrConflict)

	ErrNotFeatured     = fmt.Errorf("%w: product is not featured", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("%w: product not found", ErrNotFound)
	ErrRegionNotFound  = fmt.Errorf("%w: region not found", ErrNotFound)
)

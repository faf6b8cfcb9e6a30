package program

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a program entity does not exist.
var ErrNotFound = errors.New("program: not found")

// Repository exposes the pricing-relevant reference data the billing engine
// consumes. Divisions, schools and campuses themselves are managed elsewhere;
// only their pricing attributes surface here.
type Repository interface {
	GetEvent(ctx context.Context, id uuid.UUID) (Event, error)
	UpdateEventPricing(ctx context.Context, e Event) error

	ListAvailableDivisions(ctx context.Context, eventID uuid.UUID) ([]AvailableDivision, error)
	GetAvailableDivision(ctx context.Context, id uuid.UUID) (AvailableDivision, error)
	UpsertAvailableDivision(ctx context.Context, ad AvailableDivision) error
	DeleteAvailableDivision(ctx context.Context, id uuid.UUID) error

	ListDivisions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Division, error)

	// GetGlobalSettings returns the settings singleton. A missing row yields
	// the zero value, not an error.
	GetGlobalSettings(ctx context.Context) (GlobalSettings, error)
}

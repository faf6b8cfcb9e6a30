package entry

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("entry: not found")

// Repository is the billable-item store the invoice engine reads and the
// registration endpoints write.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (Entry, error)
	Insert(ctx context.Context, e Entry) error
	Update(ctx context.Context, e Entry) error
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns the entries matching a natural-scope filter, creation
	// time ascending. Override-carrying entries are excluded.
	List(ctx context.Context, f Filter) ([]Entry, error)

	// ListByOverride returns the entries redirected to the given invoice,
	// creation time ascending.
	ListByOverride(ctx context.Context, invoiceID uuid.UUID) ([]Entry, error)

	// ListSchoolTeams returns every team of a school (or of a mentor when
	// schoolID is nil) for an event across all campuses, creation time
	// ascending. The special rate tier is measured over this set.
	ListSchoolTeams(ctx context.Context, eventID uuid.UUID, schoolID *uuid.UUID, mentorUserID uuid.UUID) ([]Entry, error)

	// DistinctCampuses returns the non-null campuses present among a
	// school's entries for an event.
	DistinctCampuses(ctx context.Context, eventID, schoolID uuid.UUID) ([]uuid.UUID, error)
}

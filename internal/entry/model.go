package entry

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the two billable registration kinds.
type Kind string

const (
	KindTeam     Kind = "team"
	KindAttendee Kind = "attendee"
)

// AttendeeType splits workshop attendees into the two billed rates.
type AttendeeType string

const (
	AttendeeTeacher AttendeeType = "teacher"
	AttendeeStudent AttendeeType = "student"
)

// Entry is a billable registration: a competition team or a workshop
// attendee. Every entry belongs to exactly one invoice at any time — its
// natural (event/school/campus or event/mentor) invoice, or the invoice named
// by InvoiceOverrideID when set.
type Entry struct {
	ID           uuid.UUID
	Kind         Kind
	EventID      uuid.UUID
	DivisionID   uuid.UUID
	SchoolID     *uuid.UUID
	CampusID     *uuid.UUID
	MentorUserID uuid.UUID

	// Name is the team name or attendee full name, used for itemised
	// override lines.
	Name string

	// StudentCount is the team roster size, used for per-student billing.
	StudentCount int32

	// AttendeeType is set for workshop attendees only.
	AttendeeType AttendeeType

	InvoiceOverrideID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Independent reports whether the entry has no school and bills to its
// mentor directly.
func (e Entry) Independent() bool { return e.SchoolID == nil }

// Filter selects the entries one invoice covers. Exactly one of the three
// shapes from the invoice scope rules is produced: school+campus, school
// only, or independent mentor.
type Filter struct {
	EventID uuid.UUID

	// SchoolID constrains entries to one school when non-nil.
	SchoolID *uuid.UUID

	// MatchCampus constrains the campus column; CampusID nil then means
	// "campus IS NULL" rather than "any campus".
	MatchCampus bool
	CampusID    *uuid.UUID

	// MentorUserID with IndependentOnly selects school-less entries billed
	// to one mentor.
	MentorUserID    *uuid.UUID
	IndependentOnly bool
}

// Matches reports whether the entry satisfies the filter. Entries carrying an
// invoice override never match a natural-scope filter.
func (f Filter) Matches(e Entry) bool {
	if e.InvoiceOverrideID != nil {
		return false
	}
	if e.EventID != f.EventID {
		return false
	}
	if f.IndependentOnly {
		if e.SchoolID != nil {
			return false
		}
		if f.MentorUserID != nil && e.MentorUserID != *f.MentorUserID {
			return false
		}
		return true
	}
	if f.SchoolID != nil {
		if e.SchoolID == nil || *e.SchoolID != *f.SchoolID {
			return false
		}
	}
	if f.MatchCampus {
		if !uuidPtrEqual(e.CampusID, f.CampusID) {
			return false
		}
	}
	return true
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

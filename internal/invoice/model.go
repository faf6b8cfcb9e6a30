package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robocupjunioraustralia/registration-billing/internal/pricing"
	"github.com/robocupjunioraustralia/registration-billing/internal/program"
)

// Invoice bills one (event, school, campus) tuple, or one (event, mentor)
// tuple for independent entries. The four cached totals are owned exclusively
// by the recompute path; everything else reads them through the service so
// the "cache empty, recompute" fallback stays correct.
type Invoice struct {
	ID              uuid.UUID
	EventID         uuid.UUID
	SchoolID        *uuid.UUID
	CampusID        *uuid.UUID
	InvoiceToUserID uuid.UUID

	// InvoiceNumber is sequential, globally unique, and immutable once
	// assigned.
	InvoiceNumber int64

	// InvoicedDate is set the first time the invoice detail is viewed.
	InvoicedDate        *time.Time
	PurchaseOrderNumber string
	Notes               string

	// Cached holds the unrounded aggregate totals; nil means never
	// computed.
	Cached *pricing.Totals

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Scope identifies which invoice a billable entry naturally belongs to.
type Scope struct {
	EventID  uuid.UUID
	SchoolID *uuid.UUID
	CampusID *uuid.UUID

	// MentorUserID applies only when SchoolID is nil.
	MentorUserID uuid.UUID
}

// Scope returns the invoice's own scope tuple.
func (inv Invoice) Scope() Scope {
	return Scope{
		EventID:      inv.EventID,
		SchoolID:     inv.SchoolID,
		CampusID:     inv.CampusID,
		MentorUserID: inv.InvoiceToUserID,
	}
}

// EffectiveInvoicedDate returns the first-view date, defaulting to the
// event's payment due date while the invoice is unviewed.
func (inv Invoice) EffectiveInvoicedDate(ev program.Event) time.Time {
	if inv.InvoicedDate != nil {
		return *inv.InvoicedDate
	}
	return ev.PaymentDueDate
}

// Payment is one recorded payment against an invoice. Append-only: an
// invoice with payments can never be deleted.
type Payment struct {
	ID         uuid.UUID
	InvoiceID  uuid.UUID
	AmountPaid decimal.Decimal
	DatePaid   time.Time
	CreatedAt  time.Time
}

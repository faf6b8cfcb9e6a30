package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robocupjunioraustralia/registration-billing/internal/pricing"
)

var (
	// ErrNotFound is returned when no invoice matches.
	ErrNotFound = errors.New("invoice: not found")
	// ErrDuplicateScope is returned by Create when another invoice already
	// holds the scope tuple; the storage unique constraints are the
	// backstop for concurrent get-or-create races.
	ErrDuplicateScope = errors.New("invoice: scope already invoiced")
	// ErrHasPayments blocks deletion of invoices with recorded payments.
	ErrHasPayments = errors.New("invoice: payments recorded")
)

// Repository is the invoice store.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (Invoice, error)
	GetByScope(ctx context.Context, scope Scope) (Invoice, error)
	Create(ctx context.Context, inv Invoice) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Invoice, error)

	// SaveTotals persists the four cache fields in one write. The write
	// must not trigger another recompute.
	SaveTotals(ctx context.Context, id uuid.UUID, totals pricing.Totals) error

	SetInvoicedDate(ctx context.Context, id uuid.UUID, date time.Time) error
	UpdateDetails(ctx context.Context, id uuid.UUID, purchaseOrderNumber, notes string) error

	// CampusInvoiceExists reports whether any campus-scoped invoice exists
	// for the school and event; its existence is what "campus invoicing
	// enabled" means.
	CampusInvoiceExists(ctx context.Context, eventID, schoolID uuid.UUID) (bool, error)

	// NextInvoiceNumber allocates the next sequential number. Allocation is
	// serialised at the storage layer.
	NextInvoiceNumber(ctx context.Context) (int64, error)
}

// PaymentRepository stores payments recorded against invoices.
type PaymentRepository interface {
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)
	Insert(ctx context.Context, p Payment) error
	SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
}

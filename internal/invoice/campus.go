package invoice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/robocupjunioraustralia/registration-billing/internal/events"
	"github.com/robocupjunioraustralia/registration-billing/internal/obs"
)

var (
	// ErrCampusInvoicingUnavailable is returned when the split
	// preconditions do not hold.
	ErrCampusInvoicingUnavailable = errors.New("invoice: campus invoicing not available")
	// ErrCampusInvoicingForbidden is returned when the caller lacks the
	// capability.
	ErrCampusInvoicingForbidden = errors.New("invoice: campus invoicing not permitted")
)

// Authorizer answers capability questions for invoice mutations. The
// surrounding platform's authorization layer implements it; the engine never
// inspects roles itself.
type Authorizer interface {
	CanEnableCampusInvoicing(ctx context.Context, inv Invoice) bool
}

// CampusInvoicingAvailable reports whether the one-shot split can run for
// this invoice: it must be school-scoped, not already split, carry no
// payments, and at least one of the school's entries must name a campus.
func (s *Service) CampusInvoicingAvailable(ctx context.Context, inv Invoice) (bool, error) {
	if inv.SchoolID == nil || inv.CampusID != nil {
		return false, nil
	}
	enabled, err := s.CampusInvoicingEnabled(ctx, inv.EventID, inv.SchoolID)
	if err != nil {
		return false, err
	}
	if enabled {
		return false, nil
	}
	payments, err := s.Payments.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return false, err
	}
	if len(payments) > 0 {
		return false, nil
	}
	campuses, err := s.Entries.DistinctCampuses(ctx, inv.EventID, *inv.SchoolID)
	if err != nil {
		return false, err
	}
	return len(campuses) > 0, nil
}

// EnableCampusInvoicing creates one invoice per distinct campus among the
// school's entries. Entries are not moved: once a campus invoice exists the
// scope resolver reports campus-aware filters, so the recompute at the end
// re-partitions everything naturally. The originating school-only invoice is
// kept (payment history and number continuity) and converges to the campus-
// less remainder, usually zero.
func (s *Service) EnableCampusInvoicing(ctx context.Context, invoiceID uuid.UUID) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		inv, err := s.Invoices.Get(ctx, invoiceID)
		if err != nil {
			return err
		}
		if s.Authz != nil && !s.Authz.CanEnableCampusInvoicing(ctx, inv) {
			return ErrCampusInvoicingForbidden
		}
		available, err := s.CampusInvoicingAvailable(ctx, inv)
		if err != nil {
			return err
		}
		if !available {
			return ErrCampusInvoicingUnavailable
		}
		campuses, err := s.Entries.DistinctCampuses(ctx, inv.EventID, *inv.SchoolID)
		if err != nil {
			return err
		}
		for _, campusID := range campuses {
			campus := campusID
			scope := Scope{
				EventID:      inv.EventID,
				SchoolID:     inv.SchoolID,
				CampusID:     &campus,
				MentorUserID: inv.InvoiceToUserID,
			}
			created, err := s.getOrCreateByScope(ctx, scope, inv.InvoiceToUserID)
			if err != nil {
				return fmt.Errorf("create campus invoice: %w", err)
			}
			if _, err := s.Recalculate(ctx, created.ID); err != nil {
				return err
			}
		}
		if _, err := s.Recalculate(ctx, inv.ID); err != nil {
			return err
		}
		if obs.CampusSplitTotal != nil {
			obs.CampusSplitTotal.Inc()
		}
		s.emit(ctx, events.TopicInvoiceCampusSplit, inv.ID, map[string]any{
			"campuses": len(campuses),
		})
		return nil
	})
}

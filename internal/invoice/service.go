package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/robocupjunioraustralia/registration-billing/internal/entry"
	"github.com/robocupjunioraustralia/registration-billing/internal/events"
	"github.com/robocupjunioraustralia/registration-billing/internal/obs"
	"github.com/robocupjunioraustralia/registration-billing/internal/pricing"
	"github.com/robocupjunioraustralia/registration-billing/internal/program"
)

// Service is the invoice computation engine: it resolves which entries each
// invoice covers, itemises them, and keeps the cached totals consistent
// across every mutation path.
type Service struct {
	Invoices Repository
	Payments PaymentRepository
	Entries  entry.Repository
	Program  program.Repository

	// Tx wraps multi-write operations in a storage transaction; nil runs
	// them directly (in-memory stores).
	Tx entry.TxRunner

	// Authz gates capability-checked operations; nil allows everything
	// (capability enforcement then falls to the route middleware).
	Authz Authorizer

	Bus   *events.Bus
	Cache *Cache
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) inTx(ctx context.Context, fn func(context.Context) error) error {
	if s.Tx != nil {
		return s.Tx(ctx, fn)
	}
	return fn(ctx)
}

// CampusInvoicingEnabled reports whether the school's invoices for the event
// are split per campus. Enablement is derived purely from the existence of a
// campus-scoped invoice.
func (s *Service) CampusInvoicingEnabled(ctx context.Context, eventID uuid.UUID, schoolID *uuid.UUID) (bool, error) {
	if schoolID == nil {
		return false, nil
	}
	return s.Invoices.CampusInvoiceExists(ctx, eventID, *schoolID)
}

// ScopeFor resolves the natural invoice scope of an entry.
func (s *Service) ScopeFor(ctx context.Context, e entry.Entry) (Scope, error) {
	if e.SchoolID == nil {
		return Scope{EventID: e.EventID, MentorUserID: e.MentorUserID}, nil
	}
	enabled, err := s.CampusInvoicingEnabled(ctx, e.EventID, e.SchoolID)
	if err != nil {
		return Scope{}, err
	}
	scope := Scope{EventID: e.EventID, SchoolID: e.SchoolID, MentorUserID: e.MentorUserID}
	if enabled {
		scope.CampusID = e.CampusID
	}
	return scope, nil
}

// allItemsFilter returns the entry filter selecting everything the invoice
// covers: school+campus when campus invoicing is enabled, school otherwise,
// or the mentor for independents.
func (s *Service) allItemsFilter(ctx context.Context, inv Invoice) (entry.Filter, error) {
	if inv.SchoolID == nil {
		mentor := inv.InvoiceToUserID
		return entry.Filter{EventID: inv.EventID, MentorUserID: &mentor, IndependentOnly: true}, nil
	}
	enabled, err := s.CampusInvoicingEnabled(ctx, inv.EventID, inv.SchoolID)
	if err != nil {
		return entry.Filter{}, err
	}
	f := entry.Filter{EventID: inv.EventID, SchoolID: inv.SchoolID}
	if enabled {
		f.MatchCampus = true
		f.CampusID = inv.CampusID
	}
	return f, nil
}

// GetOrCreateInvoice returns the invoice an entry naturally bills to,
// creating it on first use. Creation races are settled by the storage unique
// constraint on the scope tuple: the loser's insert fails and falls back to a
// lookup.
func (s *Service) GetOrCreateInvoice(ctx context.Context, e entry.Entry) (Invoice, error) {
	scope, err := s.ScopeFor(ctx, e)
	if err != nil {
		return Invoice{}, err
	}
	return s.getOrCreateByScope(ctx, scope, e.MentorUserID)
}

func (s *Service) getOrCreateByScope(ctx context.Context, scope Scope, invoiceTo uuid.UUID) (Invoice, error) {
	inv, err := s.Invoices.GetByScope(ctx, scope)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Invoice{}, err
	}
	number, err := s.Invoices.NextInvoiceNumber(ctx)
	if err != nil {
		return Invoice{}, fmt.Errorf("allocate invoice number: %w", err)
	}
	now := s.now()
	inv = Invoice{
		ID:              uuid.New(),
		EventID:         scope.EventID,
		SchoolID:        scope.SchoolID,
		CampusID:        scope.CampusID,
		InvoiceToUserID: invoiceTo,
		InvoiceNumber:   number,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Invoices.Create(ctx, inv); err != nil {
		if errors.Is(err, ErrDuplicateScope) {
			return s.Invoices.GetByScope(ctx, scope)
		}
		return Invoice{}, err
	}
	if obs.InvoiceCreatedTotal != nil {
		obs.InvoiceCreatedTotal.Inc()
	}
	s.emit(ctx, events.TopicInvoiceCreated, inv.ID, map[string]any{"event_id": inv.EventID.String()})
	return inv, nil
}

// InvoiceItems builds the full line-item list for rendering.
func (s *Service) InvoiceItems(ctx context.Context, id uuid.UUID) ([]pricing.LineItem, error) {
	inv, err := s.Invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildItems(ctx, inv)
}

func (s *Service) buildItems(ctx context.Context, inv Invoice) ([]pricing.LineItem, error) {
	ev, err := s.Program.GetEvent(ctx, inv.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	// A missing settings row degrades to empty surcharge labels, never an
	// error.
	settings, err := s.Program.GetGlobalSettings(ctx)
	if err != nil {
		settings = program.GlobalSettings{}
	}
	filter, err := s.allItemsFilter(ctx, inv)
	if err != nil {
		return nil, err
	}
	items, err := s.Entries.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	var schoolTeams []entry.Entry
	if ev.HasSpecialRate() {
		schoolTeams, err = s.Entries.ListSchoolTeams(ctx, inv.EventID, inv.SchoolID, inv.InvoiceToUserID)
		if err != nil {
			return nil, fmt.Errorf("list school teams: %w", err)
		}
	}
	overrideItems, err := s.Entries.ListByOverride(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("list override entries: %w", err)
	}
	divOverrides, err := s.Program.ListAvailableDivisions(ctx, inv.EventID)
	if err != nil {
		return nil, fmt.Errorf("list division overrides: %w", err)
	}
	overrides := make(map[uuid.UUID]program.AvailableDivision, len(divOverrides))
	for _, ad := range divOverrides {
		overrides[ad.DivisionID] = ad
	}
	divisions, err := s.Program.ListDivisions(ctx, divisionIDs(items, overrideItems))
	if err != nil {
		return nil, fmt.Errorf("list divisions: %w", err)
	}
	return pricing.Build(pricing.BuildInput{
		Event:         ev,
		Settings:      settings,
		Items:         items,
		SchoolTeams:   schoolTeams,
		OverrideItems: overrideItems,
		Overrides:     overrides,
		Divisions:     divisions,
	}), nil
}

// Recalculate rebuilds the invoice's line items and persists the aggregate
// totals in one write. A failed build leaves the previous cached totals
// untouched.
func (s *Service) Recalculate(ctx context.Context, id uuid.UUID) (pricing.Totals, error) {
	ctx, span := otel.Tracer("invoice.Service").Start(ctx, "InvoiceService.Recalculate")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.id", id.String()))

	start := time.Now()
	result := "error"
	defer func() {
		if obs.InvoiceRecalcTotal != nil {
			obs.InvoiceRecalcTotal.WithLabelValues(result).Inc()
		}
		if obs.InvoiceRecalcDuration != nil {
			obs.InvoiceRecalcDuration.Observe(obs.DurationMillis(time.Since(start)))
		}
	}()

	inv, err := s.Invoices.Get(ctx, id)
	if err != nil {
		return pricing.Totals{}, err
	}
	items, err := s.buildItems(ctx, inv)
	if err != nil {
		span.RecordError(err)
		return pricing.Totals{}, err
	}
	totals := pricing.Sum(items)
	if err := s.Invoices.SaveTotals(ctx, id, totals); err != nil {
		span.RecordError(err)
		return pricing.Totals{}, fmt.Errorf("save totals: %w", err)
	}
	s.invalidate(ctx, inv.EventID)
	s.emit(ctx, events.TopicInvoiceRecomputed, inv.ID, map[string]any{"event_id": inv.EventID.String()})
	result = "ok"
	return totals, nil
}

// Totals returns the cached aggregate totals, computing and persisting them
// on first read.
func (s *Service) Totals(ctx context.Context, inv Invoice) (pricing.Totals, error) {
	if inv.Cached != nil {
		return *inv.Cached, nil
	}
	return s.Recalculate(ctx, inv.ID)
}

// EntrySaved implements entry.BillingHooks: it recomputes every invoice a
// create or update touches. On a scope change both the old-scope and
// new-scope invoices converge in the same transaction.
func (s *Service) EntrySaved(ctx context.Context, old *entry.Entry, cur entry.Entry) error {
	affected := map[uuid.UUID]bool{}

	if cur.InvoiceOverrideID != nil {
		affected[*cur.InvoiceOverrideID] = true
	}
	inv, err := s.GetOrCreateInvoice(ctx, cur)
	if err != nil {
		return err
	}
	affected[inv.ID] = true

	if old != nil {
		if old.InvoiceOverrideID != nil {
			affected[*old.InvoiceOverrideID] = true
		}
		if oldInv, err := s.lookupNatural(ctx, *old); err == nil {
			affected[oldInv.ID] = true
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return s.recalcAll(ctx, affected)
}

// EntryDeleted implements entry.BillingHooks.
func (s *Service) EntryDeleted(ctx context.Context, e entry.Entry) error {
	affected := map[uuid.UUID]bool{}
	if e.InvoiceOverrideID != nil {
		affected[*e.InvoiceOverrideID] = true
	}
	if inv, err := s.lookupNatural(ctx, e); err == nil {
		affected[inv.ID] = true
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.recalcAll(ctx, affected)
}

// PricingChanged implements program.BillingHooks: any change to an event's
// pricing configuration recomputes every invoice of that event.
func (s *Service) PricingChanged(ctx context.Context, eventID uuid.UUID) error {
	invoices, err := s.Invoices.ListByEvent(ctx, eventID)
	if err != nil {
		return err
	}
	for _, inv := range invoices {
		if _, err := s.Recalculate(ctx, inv.ID); err != nil {
			return err
		}
	}
	s.emit(ctx, events.TopicPricingChanged, eventID, nil)
	return nil
}

func (s *Service) lookupNatural(ctx context.Context, e entry.Entry) (Invoice, error) {
	scope, err := s.ScopeFor(ctx, e)
	if err != nil {
		return Invoice{}, err
	}
	return s.Invoices.GetByScope(ctx, scope)
}

func (s *Service) recalcAll(ctx context.Context, ids map[uuid.UUID]bool) error {
	for id := range ids {
		if _, err := s.Recalculate(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// MarkViewed records the first-view date once.
func (s *Service) MarkViewed(ctx context.Context, inv Invoice) error {
	if inv.InvoicedDate != nil {
		return nil
	}
	return s.Invoices.SetInvoicedDate(ctx, inv.ID, s.now())
}

// RecordPayment appends a payment against the invoice.
func (s *Service) RecordPayment(ctx context.Context, invoiceID uuid.UUID, p Payment) (Payment, error) {
	if !p.AmountPaid.IsPositive() {
		return Payment{}, errors.New("invoice: payment amount must be positive")
	}
	if _, err := s.Invoices.Get(ctx, invoiceID); err != nil {
		return Payment{}, err
	}
	p.ID = uuid.New()
	p.InvoiceID = invoiceID
	if p.DatePaid.IsZero() {
		p.DatePaid = s.now()
	}
	p.CreatedAt = s.now()
	if err := s.Payments.Insert(ctx, p); err != nil {
		return Payment{}, err
	}
	if obs.PaymentRecordedTotal != nil {
		obs.PaymentRecordedTotal.Inc()
	}
	s.emit(ctx, events.TopicPaymentRecorded, invoiceID, map[string]any{"amount": p.AmountPaid.String()})
	return p, nil
}

// PaymentSummary bundles the ledger-derived amounts for one invoice.
type PaymentSummary struct {
	InvoiceAmountInclGST decimal.Decimal
	AmountPaid           decimal.Decimal
	AmountDueInclGST     decimal.Decimal
	GatewayAmountDue     *decimal.Decimal
}

// Summary derives the payment position from cached totals (computing them if
// absent) and the payment ledger. All amounts are rounded to cents here, at
// the presentation boundary.
func (s *Service) Summary(ctx context.Context, inv Invoice) (PaymentSummary, error) {
	totals, err := s.Totals(ctx, inv)
	if err != nil {
		return PaymentSummary{}, err
	}
	paid, err := s.Payments.SumByInvoice(ctx, inv.ID)
	if err != nil {
		return PaymentSummary{}, err
	}
	due := AmountDue(totals.InclGST, paid)
	summary := PaymentSummary{
		InvoiceAmountInclGST: totals.InclGST.Round(2),
		AmountPaid:           paid.Round(2),
		AmountDueInclGST:     due.Round(2),
	}
	if gateway, ok := GatewayAmountDue(due); ok {
		rounded := gateway.Round(2)
		summary.GatewayAmountDue = &rounded
	}
	return summary, nil
}

func (s *Service) invalidate(ctx context.Context, eventID uuid.UUID) {
	if s.Cache != nil {
		_ = s.Cache.InvalidateEvent(ctx, eventID)
	}
}

func (s *Service) emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload map[string]any) {
	if s.Bus == nil {
		return
	}
	_ = s.Bus.Emit(ctx, topic, aggregateID, payload)
}

func divisionIDs(groups ...[]entry.Entry) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, group := range groups {
		for _, e := range group {
			if !seen[e.DivisionID] {
				seen[e.DivisionID] = true
				ids = append(ids, e.DivisionID)
			}
		}
	}
	return ids
}

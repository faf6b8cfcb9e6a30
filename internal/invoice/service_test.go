package invoice

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robocupjunioraustralia/registration-billing/internal/entry"
	"github.com/robocupjunioraustralia/registration-billing/internal/pricing"
	"github.com/robocupjunioraustralia/registration-billing/internal/program"
)

// In-memory stores mirroring the storage semantics the engine depends on:
// scope uniqueness, override exclusion, ascending creation order.

type memInvoices struct {
	byID map[uuid.UUID]Invoice

	nextNumber      int64
	saveTotalsCalls int
	setDateCalls    int

	// beforeCreate simulates a competing writer between the scope lookup
	// and the insert.
	beforeCreate func(inv Invoice)
}

func newMemInvoices() *memInvoices {
	return &memInvoices{byID: map[uuid.UUID]Invoice{}}
}

func scopeMatches(inv Invoice, s Scope) bool {
	if inv.EventID != s.EventID {
		return false
	}
	if s.SchoolID == nil {
		return inv.SchoolID == nil && inv.InvoiceToUserID == s.MentorUserID
	}
	if inv.SchoolID == nil || *inv.SchoolID != *s.SchoolID {
		return false
	}
	if s.CampusID == nil {
		return inv.CampusID == nil
	}
	return inv.CampusID != nil && *inv.CampusID == *s.CampusID
}

func (m *memInvoices) Get(_ context.Context, id uuid.UUID) (Invoice, error) {
	inv, ok := m.byID[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (m *memInvoices) GetByScope(_ context.Context, s Scope) (Invoice, error) {
	for _, inv := range m.byID {
		if scopeMatches(inv, s) {
			return inv, nil
		}
	}
	return Invoice{}, ErrNotFound
}

func (m *memInvoices) Create(_ context.Context, inv Invoice) error {
	if m.beforeCreate != nil {
		hook := m.beforeCreate
		m.beforeCreate = nil
		hook(inv)
	}
	for _, existing := range m.byID {
		if scopeMatches(existing, inv.Scope()) {
			return ErrDuplicateScope
		}
	}
	m.byID[inv.ID] = inv
	return nil
}

func (m *memInvoices) ListByEvent(_ context.Context, eventID uuid.UUID) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.byID {
		if inv.EventID == eventID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNumber < out[j].InvoiceNumber })
	return out, nil
}

func (m *memInvoices) SaveTotals(_ context.Context, id uuid.UUID, totals pricing.Totals) error {
	inv, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	m.saveTotalsCalls++
	t := totals
	inv.Cached = &t
	m.byID[id] = inv
	return nil
}

func (m *memInvoices) SetInvoicedDate(_ context.Context, id uuid.UUID, date time.Time) error {
	inv, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	m.setDateCalls++
	if inv.InvoicedDate == nil {
		d := date
		inv.InvoicedDate = &d
		m.byID[id] = inv
	}
	return nil
}

func (m *memInvoices) UpdateDetails(_ context.Context, id uuid.UUID, po, notes string) error {
	inv, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	inv.PurchaseOrderNumber = po
	inv.Notes = notes
	m.byID[id] = inv
	return nil
}

func (m *memInvoices) CampusInvoiceExists(_ context.Context, eventID, schoolID uuid.UUID) (bool, error) {
	for _, inv := range m.byID {
		if inv.EventID == eventID && inv.SchoolID != nil && *inv.SchoolID == schoolID && inv.CampusID != nil {
			return true, nil
		}
	}
	return false, nil
}

func (m *memInvoices) NextInvoiceNumber(_ context.Context) (int64, error) {
	m.nextNumber++
	return m.nextNumber, nil
}

type memEntries struct {
	items map[uuid.UUID]entry.Entry
}

func newMemEntries() *memEntries { return &memEntries{items: map[uuid.UUID]entry.Entry{}} }

func (m *memEntries) Get(_ context.Context, id uuid.UUID) (entry.Entry, error) {
	e, ok := m.items[id]
	if !ok {
		return entry.Entry{}, entry.ErrNotFound
	}
	return e, nil
}

func (m *memEntries) Insert(_ context.Context, e entry.Entry) error {
	m.items[e.ID] = e
	return nil
}

func (m *memEntries) Update(_ context.Context, e entry.Entry) error {
	if _, ok := m.items[e.ID]; !ok {
		return entry.ErrNotFound
	}
	m.items[e.ID] = e
	return nil
}

func (m *memEntries) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func sortEntries(items []entry.Entry) []entry.Entry {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
	return items
}

func (m *memEntries) List(_ context.Context, f entry.Filter) ([]entry.Entry, error) {
	var out []entry.Entry
	for _, e := range m.items {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return sortEntries(out), nil
}

func (m *memEntries) ListByOverride(_ context.Context, invoiceID uuid.UUID) ([]entry.Entry, error) {
	var out []entry.Entry
	for _, e := range m.items {
		if e.InvoiceOverrideID != nil && *e.InvoiceOverrideID == invoiceID {
			out = append(out, e)
		}
	}
	return sortEntries(out), nil
}

func (m *memEntries) ListSchoolTeams(_ context.Context, eventID uuid.UUID, schoolID *uuid.UUID, mentorUserID uuid.UUID) ([]entry.Entry, error) {
	var out []entry.Entry
	for _, e := range m.items {
		if e.EventID != eventID || e.Kind != entry.KindTeam || e.InvoiceOverrideID != nil {
			continue
		}
		if schoolID == nil {
			if e.SchoolID == nil && e.MentorUserID == mentorUserID {
				out = append(out, e)
			}
			continue
		}
		if e.SchoolID != nil && *e.SchoolID == *schoolID {
			out = append(out, e)
		}
	}
	return sortEntries(out), nil
}

func (m *memEntries) DistinctCampuses(_ context.Context, eventID, schoolID uuid.UUID) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	for _, e := range m.items {
		if e.EventID != eventID || e.SchoolID == nil || *e.SchoolID != schoolID || e.CampusID == nil {
			continue
		}
		if !seen[*e.CampusID] {
			seen[*e.CampusID] = true
			out = append(out, *e.CampusID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

type memProgram struct {
	events    map[uuid.UUID]program.Event
	overrides map[uuid.UUID]program.AvailableDivision
	divisions map[uuid.UUID]program.Division
	settings  program.GlobalSettings
}

func newMemProgram() *memProgram {
	return &memProgram{
		events:    map[uuid.UUID]program.Event{},
		overrides: map[uuid.UUID]program.AvailableDivision{},
		divisions: map[uuid.UUID]program.Division{},
	}
}

func (m *memProgram) GetEvent(_ context.Context, id uuid.UUID) (program.Event, error) {
	ev, ok := m.events[id]
	if !ok {
		return program.Event{}, program.ErrNotFound
	}
	return ev, nil
}

func (m *memProgram) UpdateEventPricing(_ context.Context, e program.Event) error {
	if _, ok := m.events[e.ID]; !ok {
		return program.ErrNotFound
	}
	m.events[e.ID] = e
	return nil
}

func (m *memProgram) ListAvailableDivisions(_ context.Context, eventID uuid.UUID) ([]program.AvailableDivision, error) {
	var out []program.AvailableDivision
	for _, ad := range m.overrides {
		if ad.EventID == eventID {
			out = append(out, ad)
		}
	}
	return out, nil
}

func (m *memProgram) GetAvailableDivision(_ context.Context, id uuid.UUID) (program.AvailableDivision, error) {
	ad, ok := m.overrides[id]
	if !ok {
		return program.AvailableDivision{}, program.ErrNotFound
	}
	return ad, nil
}

func (m *memProgram) UpsertAvailableDivision(_ context.Context, ad program.AvailableDivision) error {
	m.overrides[ad.ID] = ad
	return nil
}

func (m *memProgram) DeleteAvailableDivision(_ context.Context, id uuid.UUID) error {
	delete(m.overrides, id)
	return nil
}

func (m *memProgram) ListDivisions(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]program.Division, error) {
	out := map[uuid.UUID]program.Division{}
	for _, id := range ids {
		if d, ok := m.divisions[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

func (m *memProgram) GetGlobalSettings(_ context.Context) (program.GlobalSettings, error) {
	return m.settings, nil
}

type memPayments struct {
	rows []Payment
}

func (m *memPayments) ListByInvoice(_ context.Context, invoiceID uuid.UUID) ([]Payment, error) {
	var out []Payment
	for _, p := range m.rows {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPayments) Insert(_ context.Context, p Payment) error {
	m.rows = append(m.rows, p)
	return nil
}

func (m *memPayments) SumByInvoice(_ context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range m.rows {
		if p.InvoiceID == invoiceID {
			total = total.Add(p.AmountPaid)
		}
	}
	return total, nil
}

type fixture struct {
	svc      *Service
	invoices *memInvoices
	entries  *memEntries
	programs *memProgram
	payments *memPayments

	eventID  uuid.UUID
	divID    uuid.UUID
	schoolID uuid.UUID
	mentorID uuid.UUID
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		invoices: newMemInvoices(),
		entries:  newMemEntries(),
		programs: newMemProgram(),
		payments: &memPayments{},
		eventID:  uuid.New(),
		divID:    uuid.New(),
		schoolID: uuid.New(),
		mentorID: uuid.New(),
		now:      time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	f.programs.events[f.eventID] = program.Event{
		ID:              f.eventID,
		Name:            "Nationals",
		EventType:       program.EventTypeCompetition,
		DefaultEntryFee: d("100"),
		BillingType:     program.BillingTypeTeam,
		PaymentDueDate:  time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
	}
	f.programs.divisions[f.divID] = program.Division{ID: f.divID, Name: "Rescue Line"}
	f.svc = &Service{
		Invoices: f.invoices,
		Payments: f.payments,
		Entries:  f.entries,
		Program:  f.programs,
		Now:      func() time.Time { return f.now },
	}
	return f
}

func (f *fixture) team(schoolID, campusID *uuid.UUID, offset time.Duration) entry.Entry {
	e := entry.Entry{
		ID:           uuid.New(),
		Kind:         entry.KindTeam,
		EventID:      f.eventID,
		DivisionID:   f.divID,
		SchoolID:     schoolID,
		CampusID:     campusID,
		MentorUserID: f.mentorID,
		Name:         "Team",
		StudentCount: 3,
		CreatedAt:    f.now.Add(offset),
	}
	f.entries.items[e.ID] = e
	return e
}

func TestGetOrCreateInvoiceIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	school := f.schoolID
	e := f.team(&school, nil, 0)

	first, err := f.svc.GetOrCreateInvoice(ctx, e)
	require.NoError(t, err)
	second, err := f.svc.GetOrCreateInvoice(ctx, e)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), first.InvoiceNumber)
	assert.Len(t, f.invoices.byID, 1)
}

func TestGetOrCreateInvoiceLosesRaceFallsBackToLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	school := f.schoolID
	e := f.team(&school, nil, 0)

	// A competing writer lands the same scope between the lookup and the
	// insert; the engine must surface the winner's invoice.
	var winner Invoice
	f.invoices.beforeCreate = func(inv Invoice) {
		winner = inv
		winner.ID = uuid.New()
		winner.InvoiceNumber = 99
		f.invoices.byID[winner.ID] = winner
	}

	got, err := f.svc.GetOrCreateInvoice(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
	assert.Equal(t, int64(99), got.InvoiceNumber)
	assert.Len(t, f.invoices.byID, 1)
}

func TestEntrySavedRecomputesBothScopesOnMove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	schoolA := f.schoolID
	schoolB := uuid.New()

	e := f.team(&schoolA, nil, 0)
	require.NoError(t, f.svc.EntrySaved(ctx, nil, e))

	invA, err := f.invoices.GetByScope(ctx, Scope{EventID: f.eventID, SchoolID: &schoolA})
	require.NoError(t, err)
	require.NotNil(t, invA.Cached)
	assert.Equal(t, "100", invA.Cached.ExclGST.String())

	// Move the entry to another school: the old invoice converges to zero,
	// the new one picks the fee up.
	old := e
	e.SchoolID = &schoolB
	f.entries.items[e.ID] = e
	require.NoError(t, f.svc.EntrySaved(ctx, &old, e))

	invA, err = f.invoices.Get(ctx, invA.ID)
	require.NoError(t, err)
	assert.True(t, invA.Cached.InclGST.IsZero())

	invB, err := f.invoices.GetByScope(ctx, Scope{EventID: f.eventID, SchoolID: &schoolB})
	require.NoError(t, err)
	assert.Equal(t, "110", invB.Cached.InclGST.String())
}

func TestEnableCampusInvoicingSplitsAdditively(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	school := f.schoolID
	campus1 := uuid.New()
	campus2 := uuid.New()

	f.team(&school, &campus1, 0)
	f.team(&school, &campus1, time.Minute)
	f.team(&school, &campus2, 2*time.Minute)
	loose := f.team(&school, nil, 3*time.Minute)

	inv, err := f.svc.GetOrCreateInvoice(ctx, loose)
	require.NoError(t, err)
	before, err := f.svc.Recalculate(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "400", before.ExclGST.String())

	require.NoError(t, f.svc.EnableCampusInvoicing(ctx, inv.ID))

	enabled, err := f.svc.CampusInvoicingEnabled(ctx, f.eventID, &school)
	require.NoError(t, err)
	assert.True(t, enabled)

	all, err := f.invoices.ListByEvent(ctx, f.eventID)
	require.NoError(t, err)
	require.Len(t, all, 3)

	sum := decimal.Zero
	for _, inv := range all {
		require.NotNil(t, inv.Cached, "invoice %d missing totals", inv.InvoiceNumber)
		sum = sum.Add(inv.Cached.InclGST)
	}
	assert.True(t, sum.Equal(before.InclGST), "split totals %s != pre-split %s", sum, before.InclGST)

	// The originating invoice keeps only the campus-less remainder.
	kept, err := f.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "110", kept.Cached.InclGST.String())
}

func TestEnableCampusInvoicingUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	school := f.schoolID
	campus := uuid.New()
	e := f.team(&school, &campus, 0)

	inv, err := f.svc.GetOrCreateInvoice(ctx, e)
	require.NoError(t, err)

	t.Run("with recorded payments", func(t *testing.T) {
		f.payments.rows = []Payment{{InvoiceID: inv.ID, AmountPaid: d("10")}}
		err := f.svc.EnableCampusInvoicing(ctx, inv.ID)
		assert.ErrorIs(t, err, ErrCampusInvoicingUnavailable)
		f.payments.rows = nil
	})

	t.Run("already split", func(t *testing.T) {
		require.NoError(t, f.svc.EnableCampusInvoicing(ctx, inv.ID))
		err := f.svc.EnableCampusInvoicing(ctx, inv.ID)
		assert.ErrorIs(t, err, ErrCampusInvoicingUnavailable)
	})
}

type denyAuthorizer struct{}

func (denyAuthorizer) CanEnableCampusInvoicing(context.Context, Invoice) bool { return false }

func TestEnableCampusInvoicingChecksCapability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	school := f.schoolID
	campus := uuid.New()
	e := f.team(&school, &campus, 0)

	inv, err := f.svc.GetOrCreateInvoice(ctx, e)
	require.NoError(t, err)

	f.svc.Authz = denyAuthorizer{}
	err = f.svc.EnableCampusInvoicing(ctx, inv.ID)
	assert.ErrorIs(t, err, ErrCampusInvoicingForbidden)

	f.svc.Authz = nil
	require.NoError(t, f.svc.EnableCampusInvoicing(ctx, inv.ID))
}

func TestEnableCampusInvoicingRequiresCampusEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	school := f.schoolID
	e := f.team(&school, nil, 0)

	inv, err := f.svc.GetOrCreateInvoice(ctx, e)
	require.NoError(t, err)
	err = f.svc.EnableCampusInvoicing(ctx, inv.ID)
	assert.ErrorIs(t, err, ErrCampusInvoicingUnavailable)
}

func TestTotalsComputedOnFirstReadOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	school := f.schoolID
	e := f.team(&school, nil, 0)

	inv, err := f.svc.GetOrCreateInvoice(ctx, e)
	require.NoError(t, err)
	require.Nil(t, inv.Cached)

	totals, err := f.svc.Totals(ctx, inv)
	require.NoError(t, err)
	assert.Equal(t, "110", totals.InclGST.String())
	assert.Equal(t, 1, f.invoices.saveTotalsCalls)

	cached, err := f.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	_, err = f.svc.Totals(ctx, cached)
	require.NoError(t, err)
	assert.Equal(t, 1, f.invoices.saveTotalsCalls, "cached read must not recompute")
}

func TestPricingChangedRecomputesEveryInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	schoolA := f.schoolID
	schoolB := uuid.New()

	a := f.team(&schoolA, nil, 0)
	b := f.team(&schoolB, nil, time.Minute)
	require.NoError(t, f.svc.EntrySaved(ctx, nil, a))
	require.NoError(t, f.svc.EntrySaved(ctx, nil, b))

	ev := f.programs.events[f.eventID]
	ev.DefaultEntryFee = d("250")
	f.programs.events[f.eventID] = ev

	require.NoError(t, f.svc.PricingChanged(ctx, f.eventID))

	all, err := f.invoices.ListByEvent(ctx, f.eventID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, inv := range all {
		assert.Equal(t, "250", inv.Cached.ExclGST.String())
	}
}

func TestMarkViewedStampsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	school := f.schoolID
	e := f.team(&school, nil, 0)

	inv, err := f.svc.GetOrCreateInvoice(ctx, e)
	require.NoError(t, err)
	require.NoError(t, f.svc.MarkViewed(ctx, inv))
	assert.Equal(t, 1, f.invoices.setDateCalls)

	stamped, err := f.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, stamped.InvoicedDate)
	assert.Equal(t, f.now, *stamped.InvoicedDate)

	require.NoError(t, f.svc.MarkViewed(ctx, stamped))
	assert.Equal(t, 1, f.invoices.setDateCalls)
}

func TestRecordPaymentRejectsNonPositive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	school := f.schoolID
	e := f.team(&school, nil, 0)
	inv, err := f.svc.GetOrCreateInvoice(ctx, e)
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, inv.ID, Payment{AmountPaid: d("0")})
	assert.Error(t, err)
	_, err = f.svc.RecordPayment(ctx, inv.ID, Payment{AmountPaid: d("-5")})
	assert.Error(t, err)
	_, err = f.svc.RecordPayment(ctx, uuid.New(), Payment{AmountPaid: d("5")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSummaryRoundsAtPresentation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	school := f.schoolID
	e := f.team(&school, nil, 0)
	inv, err := f.svc.GetOrCreateInvoice(ctx, e)
	require.NoError(t, err)

	p, err := f.svc.RecordPayment(ctx, inv.ID, Payment{AmountPaid: d("50")})
	require.NoError(t, err)
	assert.Equal(t, inv.ID, p.InvoiceID)
	assert.Equal(t, f.now, p.DatePaid)

	summary, err := f.svc.Summary(ctx, inv)
	require.NoError(t, err)
	assert.Equal(t, "110", summary.InvoiceAmountInclGST.String())
	assert.Equal(t, "50", summary.AmountPaid.String())
	assert.Equal(t, "60", summary.AmountDueInclGST.String())
	require.NotNil(t, summary.GatewayAmountDue)
	assert.Equal(t, "61.95", summary.GatewayAmountDue.String())
}

func TestSummaryNoGatewayWhenSettled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	school := f.schoolID
	e := f.team(&school, nil, 0)
	inv, err := f.svc.GetOrCreateInvoice(ctx, e)
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, inv.ID, Payment{AmountPaid: d("110")})
	require.NoError(t, err)

	summary, err := f.svc.Summary(ctx, inv)
	require.NoError(t, err)
	assert.Equal(t, "0", summary.AmountDueInclGST.String())
	assert.Nil(t, summary.GatewayAmountDue)
}

func TestScopeForIndependentEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.team(nil, nil, 0)

	scope, err := f.svc.ScopeFor(ctx, e)
	require.NoError(t, err)
	assert.Nil(t, scope.SchoolID)
	assert.Nil(t, scope.CampusID)
	assert.Equal(t, f.mentorID, scope.MentorUserID)
}

func TestOverrideRedirectBillsTargetInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	schoolA := f.schoolID
	schoolB := uuid.New()

	anchor := f.team(&schoolB, nil, 0)
	target, err := f.svc.GetOrCreateInvoice(ctx, anchor)
	require.NoError(t, err)

	redirected := f.team(&schoolA, nil, time.Minute)
	redirected.InvoiceOverrideID = &target.ID
	f.entries.items[redirected.ID] = redirected

	totals, err := f.svc.Recalculate(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "200", totals.ExclGST.String())

	items, err := f.svc.InvoiceItems(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Other teams", items[1].Name)

	// The redirected entry must not appear on its natural-scope invoice.
	naturalFilter := entry.Filter{EventID: f.eventID, SchoolID: &schoolA}
	natural, err := f.entries.List(ctx, naturalFilter)
	require.NoError(t, err)
	assert.Empty(t, natural)
}

func TestSummaryVerifiesGatewayMathFromLedger(t *testing.T) {
	payments := []Payment{
		{AmountPaid: d("20.05")},
		{AmountPaid: d("30.45")},
	}
	paid := AmountPaid(payments)
	assert.Equal(t, "50.5", paid.String())

	due := AmountDue(d("110"), paid)
	gateway, ok := GatewayAmountDue(due)
	require.True(t, ok)
	assert.Equal(t, "61.44", gateway.Round(2).String())
}

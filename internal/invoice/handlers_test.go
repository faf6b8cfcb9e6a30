package invoice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(f *fixture) *chi.Mux {
	h := &Handler{Svc: f.svc, Program: f.programs, Validate: validator.New()}
	r := chi.NewRouter()
	r.Get("/events/{eventID}/invoices", h.ListByEvent)
	r.Get("/invoices/{invoiceID}", h.Get)
	r.Get("/invoices/{invoiceID}/summary", h.Summary)
	r.Patch("/invoices/{invoiceID}", h.UpdateDetails)
	r.Post("/invoices/{invoiceID}/campus-invoicing", h.EnableCampusInvoicing)
	r.Post("/invoices/{invoiceID}/payments", h.RecordPayment)
	r.Post("/invoices/{invoiceID}/recalculate", h.Recalculate)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, url, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestHandlerGetStampsInvoicedDate(t *testing.T) {
	f := newFixture(t)
	school := f.schoolID
	e := f.team(&school, nil, 0)
	inv, err := f.svc.GetOrCreateInvoice(context.Background(), e)
	require.NoError(t, err)

	router := newRouter(f)
	rec, body := doJSON(t, router, http.MethodGet, "/invoices/"+inv.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "2026-05-01", body["invoicedDate"])
	assert.Equal(t, "110", body["totalInclGst"])
	assert.Equal(t, "110", body["amountDue"])
	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	assert.Equal(t, "Rescue Line", first["name"])
	assert.Equal(t, "100", first["unitCost"])

	assert.Equal(t, 1, f.invoices.setDateCalls)

	// A second view must not restamp.
	rec, body = doJSON(t, router, http.MethodGet, "/invoices/"+inv.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-05-01", body["invoicedDate"])
	assert.Equal(t, 1, f.invoices.setDateCalls)
}

func TestHandlerGetUnviewedDefaultsToDueDate(t *testing.T) {
	f := newFixture(t)
	school := f.schoolID
	e := f.team(&school, nil, 0)
	inv, err := f.svc.GetOrCreateInvoice(context.Background(), e)
	require.NoError(t, err)

	// Summary does not stamp; only the detail view does.
	router := newRouter(f)
	rec, body := doJSON(t, router, http.MethodGet, "/invoices/"+inv.ID.String()+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "110", body["invoiceAmount"])
	assert.Equal(t, 0, f.invoices.setDateCalls)
}

func TestHandlerGetErrors(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	rec, body := doJSON(t, router, http.MethodGet, "/invoices/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", errCode(body))

	rec, body = doJSON(t, router, http.MethodGet, "/invoices/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "INVOICE_NOT_FOUND", errCode(body))
}

func errCode(body map[string]any) string {
	e, ok := body["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := e["code"].(string)
	return code
}

func TestHandlerListByEventHideZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	schoolA := f.schoolID
	schoolB := uuid.New()

	billed := f.team(&schoolA, nil, 0)
	require.NoError(t, f.svc.EntrySaved(ctx, nil, billed))

	// Second invoice converges to zero once its only entry moves away.
	mover := f.team(&schoolB, nil, time.Minute)
	require.NoError(t, f.svc.EntrySaved(ctx, nil, mover))
	old := mover
	mover.SchoolID = &schoolA
	f.entries.items[mover.ID] = mover
	require.NoError(t, f.svc.EntrySaved(ctx, &old, mover))

	router := newRouter(f)

	rec, body := doJSON(t, router, http.MethodGet, "/events/"+f.eventID.String()+"/invoices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["invoices"], 2)

	rec, body = doJSON(t, router, http.MethodGet, "/events/"+f.eventID.String()+"/invoices?hideZero=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	invoices, ok := body["invoices"].([]any)
	require.True(t, ok)
	require.Len(t, invoices, 1)
	row := invoices[0].(map[string]any)
	assert.Equal(t, "220", row["totalInclGst"])

	meta, ok := body["pagination"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), meta["page"])
	assert.Equal(t, float64(1), meta["total_items"])
}

func TestHandlerListByEventPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		school := uuid.New()
		e := f.team(&school, nil, time.Duration(i)*time.Minute)
		require.NoError(t, f.svc.EntrySaved(ctx, nil, e))
	}

	router := newRouter(f)
	rec, body := doJSON(t, router, http.MethodGet, "/events/"+f.eventID.String()+"/invoices?page=2&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	invoices, ok := body["invoices"].([]any)
	require.True(t, ok)
	assert.Len(t, invoices, 1)
	meta := body["pagination"].(map[string]any)
	assert.Equal(t, float64(3), meta["total_items"])
}

func TestHandlerUpdateDetails(t *testing.T) {
	f := newFixture(t)
	school := f.schoolID
	e := f.team(&school, nil, 0)
	inv, err := f.svc.GetOrCreateInvoice(context.Background(), e)
	require.NoError(t, err)

	router := newRouter(f)
	rec, _ := doJSON(t, router, http.MethodPatch, "/invoices/"+inv.ID.String(),
		`{"purchaseOrderNumber":"PO-4711","notes":"finance approved"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	saved, err := f.invoices.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "PO-4711", saved.PurchaseOrderNumber)
	assert.Equal(t, "finance approved", saved.Notes)

	rec, body := doJSON(t, router, http.MethodPatch, "/invoices/"+inv.ID.String(),
		`{"purchaseOrderNumber":"`+strings.Repeat("x", 65)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION", errCode(body))
}

func TestHandlerRecordPayment(t *testing.T) {
	f := newFixture(t)
	school := f.schoolID
	e := f.team(&school, nil, 0)
	inv, err := f.svc.GetOrCreateInvoice(context.Background(), e)
	require.NoError(t, err)

	router := newRouter(f)
	rec, body := doJSON(t, router, http.MethodPost, "/invoices/"+inv.ID.String()+"/payments",
		`{"amount":"55.00","datePaid":"2026-05-02"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "55", body["amountPaid"])
	assert.Equal(t, "2026-05-02T00:00:00Z", body["datePaid"])

	rec, body = doJSON(t, router, http.MethodPost, "/invoices/"+inv.ID.String()+"/payments",
		`{"amount":"-5"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", errCode(body))

	rec, body = doJSON(t, router, http.MethodPost, "/invoices/"+inv.ID.String()+"/payments",
		`{"amount":"fifty"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", errCode(body))
}

func TestHandlerEnableCampusInvoicing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	school := f.schoolID
	campus := uuid.New()
	f.team(&school, &campus, 0)
	anchor := f.team(&school, nil, time.Minute)
	inv, err := f.svc.GetOrCreateInvoice(ctx, anchor)
	require.NoError(t, err)

	router := newRouter(f)
	rec, body := doJSON(t, router, http.MethodPost, "/invoices/"+inv.ID.String()+"/campus-invoicing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["enabled"])

	rec, body = doJSON(t, router, http.MethodPost, "/invoices/"+inv.ID.String()+"/campus-invoicing", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CAMPUS_INVOICING_UNAVAILABLE", errCode(body))
}

func TestHandlerRecalculate(t *testing.T) {
	f := newFixture(t)
	school := f.schoolID
	e := f.team(&school, nil, 0)
	inv, err := f.svc.GetOrCreateInvoice(context.Background(), e)
	require.NoError(t, err)

	router := newRouter(f)
	rec, body := doJSON(t, router, http.MethodPost, "/invoices/"+inv.ID.String()+"/recalculate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", body["totalExclGst"])
	assert.Equal(t, "10", body["gst"])
	assert.Equal(t, "110", body["totalInclGst"])
	assert.Equal(t, float64(1), body["quantity"])
}

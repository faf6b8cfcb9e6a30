package invoice

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robocupjunioraustralia/registration-billing/internal/common"
	"github.com/robocupjunioraustralia/registration-billing/internal/pricing"
	"github.com/robocupjunioraustralia/registration-billing/internal/program"
)

// Handler exposes the invoice HTTP endpoints.
type Handler struct {
	Svc      *Service
	Program  program.Repository
	Validate *validator.Validate
}

type summaryResp struct {
	InvoiceAmount    string  `json:"invoiceAmount"`
	AmountPaid       string  `json:"amountPaid"`
	AmountDue        string  `json:"amountDue"`
	GatewayAmountDue *string `json:"gatewayAmountDue,omitempty"`
}

type listItemResp struct {
	ID                  string  `json:"id"`
	InvoiceNumber       int64   `json:"invoiceNumber"`
	EventID             string  `json:"eventId"`
	SchoolID            *string `json:"schoolId,omitempty"`
	CampusID            *string `json:"campusId,omitempty"`
	InvoiceToUserID     string  `json:"invoiceToUserId"`
	InvoicedDate        *string `json:"invoicedDate,omitempty"`
	PurchaseOrderNumber string  `json:"purchaseOrderNumber,omitempty"`
	TotalExclGST        string  `json:"totalExclGst"`
	GST                 string  `json:"gst"`
	TotalInclGST        string  `json:"totalInclGst"`
	Quantity            int32   `json:"quantity"`
	AmountPaid          string  `json:"amountPaid"`
	AmountDue           string  `json:"amountDue"`
}

type lineItemResp struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Quantity        int32  `json:"quantity"`
	Unit            string `json:"unit"`
	UnitCost        string `json:"unitCost"`
	UnitCostExclGST string `json:"unitCostExclGst"`
	TotalExclGST    string `json:"totalExclGst"`
	GST             string `json:"gst"`
	TotalInclGST    string `json:"totalInclGst"`
}

type detailResp struct {
	listItemResp
	InvoicedDate     string         `json:"invoicedDate"`
	Notes            string         `json:"notes,omitempty"`
	Items            []lineItemResp `json:"items"`
	GatewayAmountDue *string        `json:"gatewayAmountDue,omitempty"`
	Payments         []paymentResp  `json:"payments"`
}

type paymentResp struct {
	ID         string `json:"id"`
	AmountPaid string `json:"amountPaid"`
	DatePaid   string `json:"datePaid"`
}

// ListByEvent returns the invoice summaries for an event. hideZero=true drops
// invoices that total zero and carry no payments. The full list is served from
// the Redis cache when present.
func (h *Handler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid event id", nil)
		return
	}
	hideZero := r.URL.Query().Get("hideZero") == "true"
	page, perPage := common.ParsePagination(r, 50)

	var cached []listItemResp
	if !hideZero && h.Svc.Cache != nil {
		if ok, err := h.Svc.Cache.GetEventSummaries(r.Context(), eventID, &cached); err == nil && ok {
			writeInvoicePage(w, cached, page, perPage)
			return
		}
	}

	invoices, err := h.Svc.Invoices.ListByEvent(r.Context(), eventID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "list invoices failed", nil)
		return
	}

	resp := make([]listItemResp, 0, len(invoices))
	for _, inv := range invoices {
		totals, err := h.Svc.Totals(r.Context(), inv)
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "compute totals failed", nil)
			return
		}
		paid, err := h.Svc.Payments.SumByInvoice(r.Context(), inv.ID)
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "sum payments failed", nil)
			return
		}
		if hideZero && totals.InclGST.Round(2).IsZero() && paid.IsZero() {
			continue
		}
		resp = append(resp, listItem(inv, totals.InclGST, totals, paid))
	}

	if !hideZero && h.Svc.Cache != nil {
		_ = h.Svc.Cache.SetEventSummaries(r.Context(), eventID, resp)
	}
	writeInvoicePage(w, resp, page, perPage)
}

func writeInvoicePage(w http.ResponseWriter, all []listItemResp, page, perPage int) {
	meta := common.Pagination{Page: page, PerPage: perPage, TotalItems: len(all)}
	start, end := meta.Bounds(len(all))
	common.JSON(w, http.StatusOK, map[string]any{
		"invoices":   all[start:end],
		"pagination": meta,
	})
}

// Get renders the full invoice detail. The first view stamps the invoiced
// date.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if err := h.Svc.MarkViewed(ctx, inv); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "mark viewed failed", nil)
		return
	}
	if inv.InvoicedDate == nil {
		// Re-read so the response carries the date just stamped.
		refreshed, err := h.Svc.Invoices.Get(ctx, inv.ID)
		if err == nil {
			inv = refreshed
		}
	}

	ev, err := h.Program.GetEvent(ctx, inv.EventID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "load event failed", nil)
		return
	}
	items, err := h.Svc.InvoiceItems(ctx, inv.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "build items failed", nil)
		return
	}
	summary, err := h.Svc.Summary(ctx, inv)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "compute summary failed", nil)
		return
	}
	payments, err := h.Svc.Payments.ListByInvoice(ctx, inv.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "list payments failed", nil)
		return
	}

	itemResp := make([]lineItemResp, 0, len(items))
	for _, item := range items {
		itemResp = append(itemResp, lineItemResp{
			Name:            item.Name,
			Description:     item.Description,
			Quantity:        item.Quantity,
			Unit:            string(item.Unit),
			UnitCost:        item.UnitCost.Round(2).String(),
			UnitCostExclGST: item.UnitCostExclGST.Round(2).String(),
			TotalExclGST:    item.TotalExclGST.Round(2).String(),
			GST:             item.GST.Round(2).String(),
			TotalInclGST:    item.TotalInclGST.Round(2).String(),
		})
	}
	payResp := make([]paymentResp, 0, len(payments))
	for _, p := range payments {
		payResp = append(payResp, paymentResp{
			ID:         p.ID.String(),
			AmountPaid: p.AmountPaid.Round(2).String(),
			DatePaid:   p.DatePaid.Format(time.RFC3339),
		})
	}

	totals, err := h.Svc.Totals(ctx, inv)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "compute totals failed", nil)
		return
	}
	resp := detailResp{
		listItemResp:     listItem(inv, totals.InclGST, totals, summary.AmountPaid),
		InvoicedDate:     inv.EffectiveInvoicedDate(ev).Format("2006-01-02"),
		Notes:            inv.Notes,
		Items:            itemResp,
		Payments:         payResp,
		GatewayAmountDue: decimalString(summary.GatewayAmountDue),
	}
	resp.AmountDue = summary.AmountDueInclGST.String()
	common.JSON(w, http.StatusOK, resp)
}

type updateDetailsReq struct {
	PurchaseOrderNumber string `json:"purchaseOrderNumber" validate:"max=64"`
	Notes               string `json:"notes" validate:"max=2000"`
}

// UpdateDetails patches the purchase order number and notes.
func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}
	var req updateDetailsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
	}
	if err := h.Svc.Invoices.UpdateDetails(r.Context(), inv.ID, req.PurchaseOrderNumber, req.Notes); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "update failed", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

type recordPaymentReq struct {
	Amount   string `json:"amount" validate:"required"`
	DatePaid string `json:"datePaid"`
}

// RecordPayment appends a payment to the invoice ledger.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}
	var req recordPaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "amount must be a positive decimal", nil)
		return
	}
	payment := Payment{AmountPaid: amount}
	if req.DatePaid != "" {
		datePaid, err := time.Parse("2006-01-02", req.DatePaid)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "datePaid must be YYYY-MM-DD", nil)
			return
		}
		payment.DatePaid = datePaid
	}
	recorded, err := h.Svc.RecordPayment(r.Context(), inv.ID, payment)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "PAYMENT_FAILED", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusCreated, paymentResp{
		ID:         recorded.ID.String(),
		AmountPaid: recorded.AmountPaid.Round(2).String(),
		DatePaid:   recorded.DatePaid.Format(time.RFC3339),
	})
}

// Summary returns the payment position only.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}
	summary, err := h.Svc.Summary(r.Context(), inv)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "compute summary failed", nil)
		return
	}
	common.JSON(w, http.StatusOK, summaryResp{
		InvoiceAmount:    summary.InvoiceAmountInclGST.String(),
		AmountPaid:       summary.AmountPaid.String(),
		AmountDue:        summary.AmountDueInclGST.String(),
		GatewayAmountDue: decimalString(summary.GatewayAmountDue),
	})
}

// EnableCampusInvoicing performs the one-shot per-campus split.
func (h *Handler) EnableCampusInvoicing(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}
	if err := h.Svc.EnableCampusInvoicing(r.Context(), inv.ID); err != nil {
		if errors.Is(err, ErrCampusInvoicingUnavailable) {
			common.JSONError(w, http.StatusConflict, "CAMPUS_INVOICING_UNAVAILABLE", "campus invoicing is not available for this invoice", nil)
			return
		}
		if errors.Is(err, ErrCampusInvoicingForbidden) {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "not permitted to enable campus invoicing", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "campus invoicing failed", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"enabled": true})
}

// Recalculate forces a cache rebuild for one invoice.
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}
	totals, err := h.Svc.Recalculate(r.Context(), inv.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "recalculate failed", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"totalExclGst": totals.ExclGST.Round(2).String(),
		"gst":          totals.GST.Round(2).String(),
		"totalInclGst": totals.InclGST.Round(2).String(),
		"quantity":     totals.Quantity,
	})
}

func (h *Handler) loadInvoice(w http.ResponseWriter, r *http.Request) (Invoice, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "invoiceID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid invoice id", nil)
		return Invoice{}, false
	}
	inv, err := h.Svc.Invoices.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "INVOICE_NOT_FOUND", "invoice not found", nil)
			return Invoice{}, false
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "load invoice failed", nil)
		return Invoice{}, false
	}
	return inv, true
}

func listItem(inv Invoice, inclGST decimal.Decimal, totals pricing.Totals, paid decimal.Decimal) listItemResp {
	due := AmountDue(inclGST, paid)
	item := listItemResp{
		ID:                  inv.ID.String(),
		InvoiceNumber:       inv.InvoiceNumber,
		EventID:             inv.EventID.String(),
		InvoiceToUserID:     inv.InvoiceToUserID.String(),
		PurchaseOrderNumber: inv.PurchaseOrderNumber,
		TotalExclGST:        totals.ExclGST.Round(2).String(),
		GST:                 totals.GST.Round(2).String(),
		TotalInclGST:        totals.InclGST.Round(2).String(),
		Quantity:            totals.Quantity,
		AmountPaid:          paid.Round(2).String(),
		AmountDue:           due.Round(2).String(),
	}
	item.SchoolID = uuidString(inv.SchoolID)
	item.CampusID = uuidString(inv.CampusID)
	if inv.InvoicedDate != nil {
		formatted := inv.InvoicedDate.Format("2006-01-02")
		item.InvoicedDate = &formatted
	}
	return item
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func decimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

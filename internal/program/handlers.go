package program

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
)

// Handler exposes the pricing-configuration endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type eventPricingReq struct {
	DefaultEntryFee     string  `json:"defaultEntryFee" validate:"required"`
	BillingType         string  `json:"billingType" validate:"required,oneof=team student"`
	SpecialRateNumber   *int32  `json:"specialRateNumber" validate:"omitempty,gt=0"`
	SpecialRateFee      *string `json:"specialRateFee"`
	EntryFeeIncludesGST bool    `json:"entryFeeIncludesGst"`
	PaymentDueDate      string  `json:"paymentDueDate" validate:"required"`
}

// UpdateEventPricing saves an event's pricing fields and recomputes every
// invoice of the event.
func (h *Handler) UpdateEventPricing(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid event id", nil)
		return
	}
	var req eventPricingReq
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
	fee, err := decimal.NewFromString(req.DefaultEntryFee)
	if err != nil || fee.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "defaultEntryFee must be a non-negative decimal", nil)
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.PaymentDueDate)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "paymentDueDate must be YYYY-MM-DD", nil)
		return
	}
	ev := Event{
		ID:                  eventID,
		DefaultEntryFee:     fee,
		BillingType:         BillingType(req.BillingType),
		SpecialRateNumber:   req.SpecialRateNumber,
		EntryFeeIncludesGST: req.EntryFeeIncludesGST,
		PaymentDueDate:      dueDate,
	}
	if req.SpecialRateFee != nil {
		rate, err := decimal.NewFromString(*req.SpecialRateFee)
		if err != nil || rate.IsNegative() {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "specialRateFee must be a non-negative decimal", nil)
			return
		}
		ev.SpecialRateFee = &rate
	}
	if err := h.Svc.UpdateEventPricing(r.Context(), ev); err != nil {
		writeProgramError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

type availableDivisionReq struct {
	DivisionID  string  `json:"divisionId" validate:"required,uuid"`
	BillingType string  `json:"billingType" validate:"required,oneof=team student event"`
	EntryFee    *string `json:"entryFee"`
}

// SaveAvailableDivision creates or replaces a division-level billing override
// for an event.
func (h *Handler) SaveAvailableDivision(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid event id", nil)
		return
	}
	var req availableDivisionReq
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
	divisionID, err := uuid.Parse(req.DivisionID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid divisionId", nil)
		return
	}
	ad := AvailableDivision{
		EventID:     eventID,
		DivisionID:  divisionID,
		BillingType: BillingType(req.BillingType),
	}
	if req.EntryFee != nil && *req.EntryFee != "" {
		fee, err := decimal.NewFromString(*req.EntryFee)
		if err != nil || fee.IsNegative() {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "entryFee must be a non-negative decimal", nil)
			return
		}
		ad.EntryFee = &fee
	}
	if err := h.Svc.SaveAvailableDivision(r.Context(), ad); err != nil {
		writeProgramError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"saved": true})
}

// DeleteAvailableDivision removes a division override; affected invoices fall
// back to the event default pricing.
func (h *Handler) DeleteAvailableDivision(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "availableDivisionID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id", nil)
		return
	}
	if err := h.Svc.DeleteAvailableDivision(r.Context(), id); err != nil {
		writeProgramError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func writeProgramError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "not found", nil)
	case errors.Is(err, ErrSpecialRatePair),
		errors.Is(err, ErrSpecialRateWithOverride),
		errors.Is(err, ErrStudentBillingForWorkshop),
		errors.Is(err, ErrOverrideFeeRequired),
		errors.Is(err, ErrOverrideFeeForbidden):
		common.JSONError(w, http.StatusUnprocessableEntity, "PRICING_RULE", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "operation failed", nil)
	}
}

package entry

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/robocupjunioraustralia/registration-billing/internal/common"
)

// Handler exposes the registration entry endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type entryReq struct {
	Kind              string  `json:"kind" validate:"omitempty,oneof=team attendee"`
	EventID           string  `json:"eventId" validate:"required,uuid"`
	DivisionID        string  `json:"divisionId" validate:"required,uuid"`
	SchoolID          *string `json:"schoolId" validate:"omitempty,uuid"`
	CampusID          *string `json:"campusId" validate:"omitempty,uuid"`
	MentorUserID      string  `json:"mentorUserId" validate:"required,uuid"`
	Name              string  `json:"name" validate:"max=200"`
	StudentCount      int32   `json:"studentCount" validate:"gte=0"`
	AttendeeType      string  `json:"attendeeType" validate:"omitempty,oneof=teacher student"`
	InvoiceOverrideID *string `json:"invoiceOverrideId" validate:"omitempty,uuid"`
}

type entryResp struct {
	ID                string  `json:"id"`
	Kind              string  `json:"kind"`
	EventID           string  `json:"eventId"`
	DivisionID        string  `json:"divisionId"`
	SchoolID          *string `json:"schoolId,omitempty"`
	CampusID          *string `json:"campusId,omitempty"`
	MentorUserID      string  `json:"mentorUserId"`
	Name              string  `json:"name"`
	StudentCount      int32   `json:"studentCount"`
	AttendeeType      string  `json:"attendeeType,omitempty"`
	InvoiceOverrideID *string `json:"invoiceOverrideId,omitempty"`
	CreatedAt         string  `json:"createdAt"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Entry, bool) {
	var req entryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return Entry{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return Entry{}, false
		}
	}
	e := Entry{
		Kind:         Kind(req.Kind),
		Name:         req.Name,
		StudentCount: req.StudentCount,
		AttendeeType: AttendeeType(req.AttendeeType),
	}
	if e.Kind == "" {
		e.Kind = KindTeam
	}
	var err error
	if e.EventID, err = uuid.Parse(req.EventID); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid eventId", nil)
		return Entry{}, false
	}
	if e.DivisionID, err = uuid.Parse(req.DivisionID); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid divisionId", nil)
		return Entry{}, false
	}
	if e.MentorUserID, err = uuid.Parse(req.MentorUserID); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid mentorUserId", nil)
		return Entry{}, false
	}
	if e.SchoolID, err = parseOptionalUUID(req.SchoolID); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid schoolId", nil)
		return Entry{}, false
	}
	if e.CampusID, err = parseOptionalUUID(req.CampusID); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid campusId", nil)
		return Entry{}, false
	}
	if e.InvoiceOverrideID, err = parseOptionalUUID(req.InvoiceOverrideID); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid invoiceOverrideId", nil)
		return Entry{}, false
	}
	if e.SchoolID == nil && e.CampusID != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "campusId requires schoolId", nil)
		return Entry{}, false
	}
	return e, true
}

// Create registers a new billable entry. The invoice recompute happens inside
// the same transaction.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	e, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.Svc.Create(r.Context(), e)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "create entry failed", nil)
		return
	}
	common.JSON(w, http.StatusCreated, toResp(created))
}

// Update applies changes to an entry, recomputing the old and new scope
// invoices when the change moves it.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid entry id", nil)
		return
	}
	e, ok := h.decode(w, r)
	if !ok {
		return
	}
	e.ID = id
	updated, err := h.Svc.Update(r.Context(), e)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "ENTRY_NOT_FOUND", "entry not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "update entry failed", nil)
		return
	}
	common.JSON(w, http.StatusOK, toResp(updated))
}

// Delete removes an entry and recomputes the invoices it was billed on.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid entry id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "ENTRY_NOT_FOUND", "entry not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "delete entry failed", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func toResp(e Entry) entryResp {
	resp := entryResp{
		ID:           e.ID.String(),
		Kind:         string(e.Kind),
		EventID:      e.EventID.String(),
		DivisionID:   e.DivisionID.String(),
		MentorUserID: e.MentorUserID.String(),
		Name:         e.Name,
		StudentCount: e.StudentCount,
		AttendeeType: string(e.AttendeeType),
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
	if e.SchoolID != nil {
		s := e.SchoolID.String()
		resp.SchoolID = &s
	}
	if e.CampusID != nil {
		s := e.CampusID.String()
		resp.CampusID = &s
	}
	if e.InvoiceOverrideID != nil {
		s := e.InvoiceOverrideID.String()
		resp.InvoiceOverrideID = &s
	}
	return resp
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/meeting-finder/internal/application"
	"github.com/example/meeting-finder/internal/calendar"
	"github.com/example/meeting-finder/internal/scheduler"
)

type caseService interface {
	CreateCase(ctx context.Context, params application.CreateCaseParams) (application.Case, error)
	ListCases(ctx context.Context, principal application.Principal) ([]application.Case, error)
	GetCase(ctx context.Context, principal application.Principal, caseID string) (application.Case, error)
	DeleteCase(ctx context.Context, principal application.Principal, caseID string) error
	FindSlots(ctx context.Context, params application.FindSlotsParams) ([]scheduler.Slot, error)
	PromoteToProvisional(ctx context.Context, params application.PromoteParams) (application.Case, []string, error)
	ListProvisionalHolds(ctx context.Context, principal application.Principal, caseID string) ([]application.CalendarEvent, error)
	Confirm(ctx context.Context, params application.ConfirmParams) (application.Case, application.CalendarEvent, error)
}

// CaseHandler serves the case lifecycle endpoints.
type CaseHandler struct {
	service   caseService
	responder responder
	logger    *slog.Logger
	now       func() time.Time
}

// NewCaseHandler constructs a handler around the case service.
func NewCaseHandler(service caseService, logger *slog.Logger) *CaseHandler {
	base := defaultLogger(logger)
	return &CaseHandler{service: service, responder: newResponder(base), logger: base, now: time.Now}
}

func (h *CaseHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CaseHandler", operation, attrs...)
}

func (h *CaseHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *CaseHandler) caseID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "caseID"))
	if id == "" {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing case id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCaseID)
		return "", false
	}
	return id, true
}

// List returns the caller's cases.
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.OwnerID)

	cases, err := h.service.ListCases(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "case list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := caseListResponse{Cases: make([]caseDTO, 0, len(cases))}
	for _, c := range cases {
		resp.Cases = append(resp.Cases, toCaseDTO(c))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Create registers a new draft case.
func (h *CaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req caseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.OwnerID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode case request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.OwnerID)

	c, err := h.service.CreateCase(r.Context(), application.CreateCaseParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "case creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("case_id", c.ID).InfoContext(r.Context(), "case created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, caseResponse{Case: toCaseDTO(c)})
}

// Get returns one case.
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	caseID, ok := h.caseID(w, r, "Get")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	c, err := h.service.GetCase(r.Context(), principal, caseID)
	if err != nil {
		h.log(r.Context(), "Get", "principal_id", principal.OwnerID, "case_id", caseID).
			ErrorContext(r.Context(), "case read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, caseResponse{Case: toCaseDTO(c)})
}

// Delete removes a case and its remaining holds.
func (h *CaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	caseID, ok := h.caseID(w, r, "Delete")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.OwnerID, "case_id", caseID)
	if err := h.service.DeleteCase(r.Context(), principal, caseID); err != nil {
		logger.ErrorContext(r.Context(), "case delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "case deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
}

// Slots returns the selected candidate slots for a case.
func (h *CaseHandler) Slots(w http.ResponseWriter, r *http.Request) {
	slots, _, ok := h.findSlots(w, r, "Slots")
	if !ok {
		return
	}

	resp := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		resp = append(resp, toSlotDTO(slot.Start, slot.End))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// SlotsICS returns the selected candidate slots as an iCalendar document.
func (h *CaseHandler) SlotsICS(w http.ResponseWriter, r *http.Request) {
	slots, c, ok := h.findSlots(w, r, "SlotsICS")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := calendar.EncodeSlots(&buf, c.ID, c.Name, slots, h.now()); err != nil {
		if errors.Is(err, calendar.ErrNoSlots) {
			h.responder.writeError(r.Context(), w, http.StatusNotFound, errNoSlots)
			return
		}
		h.log(r.Context(), "SlotsICS", "case_id", c.ID).ErrorContext(r.Context(), "failed to encode slots", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+c.ID+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *CaseHandler) findSlots(w http.ResponseWriter, r *http.Request, operation string) ([]scheduler.Slot, application.Case, bool) {
	if !h.ready(w) {
		return nil, application.Case{}, false
	}
	caseID, ok := h.caseID(w, r, operation)
	if !ok {
		return nil, application.Case{}, false
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), operation, "principal_id", principal.OwnerID, "case_id", caseID)

	days := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			logger.With("error_kind", "bad_request").ErrorContext(r.Context(), "invalid days parameter", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDays)
			return nil, application.Case{}, false
		}
		days = parsed
	}

	c, err := h.service.GetCase(r.Context(), principal, caseID)
	if err != nil {
		logger.ErrorContext(r.Context(), "case read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return nil, application.Case{}, false
	}

	slots, err := h.service.FindSlots(r.Context(), application.FindSlotsParams{
		Principal:    principal,
		CaseID:       caseID,
		DaysToSearch: days,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "slot search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return nil, application.Case{}, false
	}
	return slots, c, true
}

// Promote creates provisional holds for the chosen slots.
func (h *CaseHandler) Promote(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	caseID, ok := h.caseID(w, r, "Promote")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Promote", "principal_id", principal.OwnerID, "case_id", caseID)

	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.With("error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode promote request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	slots, err := req.toTimeRanges()
	if err != nil {
		logger.With("error_kind", "bad_request").ErrorContext(r.Context(), "invalid slot time", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTime)
		return
	}

	c, eventIDs, err := h.service.PromoteToProvisional(r.Context(), application.PromoteParams{
		Principal: principal,
		CaseID:    caseID,
		Slots:     slots,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "promotion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "case promoted", "hold_count", len(eventIDs))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, promoteResponse{
		EventReferences: eventIDs,
		Case:            toCaseDTO(c),
	})
}

// ProvisionalTimes lists the holds the provider reports for a case.
func (h *CaseHandler) ProvisionalTimes(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	caseID, ok := h.caseID(w, r, "ProvisionalTimes")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	events, err := h.service.ListProvisionalHolds(r.Context(), principal, caseID)
	if err != nil {
		h.log(r.Context(), "ProvisionalTimes", "principal_id", principal.OwnerID, "case_id", caseID).
			ErrorContext(r.Context(), "provisional hold list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := make([]holdDTO, 0, len(events))
	for _, event := range events {
		resp = append(resp, holdDTO{ID: event.ID, slotDTO: toSlotDTO(event.Start, event.End)})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Confirm replaces the holds with the final meeting.
func (h *CaseHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	caseID, ok := h.caseID(w, r, "Confirm")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Confirm", "principal_id", principal.OwnerID, "case_id", caseID)

	var req slotDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.With("error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode confirm request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	interval, err := req.toTimeRange()
	if err != nil {
		logger.With("error_kind", "bad_request").ErrorContext(r.Context(), "invalid confirm time", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTime)
		return
	}

	c, event, err := h.service.Confirm(r.Context(), application.ConfirmParams{
		Principal: principal,
		CaseID:    caseID,
		Interval:  interval,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "confirmation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("event_id", event.ID).InfoContext(r.Context(), "case confirmed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, confirmResponse{
		ConfirmedEvent: toEventDTO(event),
		Case:           toCaseDTO(c),
	})
}

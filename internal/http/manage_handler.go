package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-finder/internal/application"
)

type reconciler interface {
	Reconcile(ctx context.Context, params application.ReconcileParams) (application.ReconcileResult, error)
}

// ManageHandler serves bulk maintenance endpoints.
type ManageHandler struct {
	reconciler reconciler
	responder  responder
	logger     *slog.Logger
}

// NewManageHandler constructs a handler around the bulk reconciler.
func NewManageHandler(r reconciler, logger *slog.Logger) *ManageHandler {
	base := defaultLogger(logger)
	return &ManageHandler{reconciler: r, responder: newResponder(base), logger: base}
}

// DeleteProvisional removes tagged holds in the optional from/to window and
// brings the stored cases back in line with what remains on the calendar.
func (h *ManageHandler) DeleteProvisional(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reconciler == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := handlerLogger(r.Context(), h.logger, "ManageHandler", "DeleteProvisional", "principal_id", principal.OwnerID)

	from, err := optionalTimestamp(r.URL.Query().Get("from"))
	if err != nil {
		logger.With("error_kind", "bad_request").ErrorContext(r.Context(), "invalid from parameter", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTime)
		return
	}
	to, err := optionalTimestamp(r.URL.Query().Get("to"))
	if err != nil {
		logger.With("error_kind", "bad_request").ErrorContext(r.Context(), "invalid to parameter", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTime)
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), application.ReconcileParams{
		Principal: principal,
		From:      from,
		To:        to,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "reconciliation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "provisional holds reconciled",
		"deleted_count", result.DeletedCount,
		"trimmed_cases", len(result.TrimmedCases),
		"deleted_cases", len(result.DeletedCases),
	)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reconcileResponse{
		DeletedCount: result.DeletedCount,
		TrimmedCases: nonNilStrings(result.TrimmedCases),
		DeletedCases: nonNilStrings(result.DeletedCases),
	})
}

func optionalTimestamp(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

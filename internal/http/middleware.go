package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/meeting-finder/internal/application"
	"github.com/example/meeting-finder/internal/calendar"
	"github.com/example/meeting-finder/internal/logging"
)

// CalendarTokenHeader carries the caller's calendar OAuth access token.
const CalendarTokenHeader = "X-Calendar-Token"

// Authenticator resolves an API key to the owning principal.
type Authenticator interface {
	Authenticate(token string) (application.Principal, error)
}

// RequireAPIKey rejects requests without a valid bearer API key and attaches
// the authenticated principal to the request context.
func RequireAPIKey(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingAPIKey)
				return
			}
			if auth == nil {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errInvalidAPIKey)
				return
			}

			principal, err := auth.Authenticate(token)
			if err != nil {
				switch {
				case errors.Is(err, application.ErrDomainNotAllowed):
					responder.writeError(r.Context(), w, http.StatusForbidden, errDomainNotAllowed)
				default:
					responder.writeError(r.Context(), w, http.StatusUnauthorized, errInvalidAPIKey)
				}
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			ctx = logging.With(ctx, "principal_id", principal.OwnerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CalendarToken forwards the X-Calendar-Token header to the calendar gateway
// through the request context.
func CalendarToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := strings.TrimSpace(r.Header.Get(CalendarTokenHeader)); token != "" {
			r = r.WithContext(calendar.WithAccessToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger attaches a logger tagged with the chi request id and logs the
// outcome of every request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	base = defaultLogger(base)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(ww, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed",
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

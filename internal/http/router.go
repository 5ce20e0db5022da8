package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig wires handlers and middleware into the router.
type RouterConfig struct {
	Cases          *CaseHandler
	Manage         *ManageHandler
	Auth           Authenticator
	Logger         *slog.Logger
	MetricsPath    string
	MetricsHandler http.Handler
	CORSOrigins    []string
	Middleware     []func(http.Handler) http.Handler
}

// NewRouter builds the chi router for the meeting finder API.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(Instrument)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", CalendarTokenHeader},
			MaxAge:         300,
		}))
	}
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.MetricsPath != "" {
		metrics := cfg.MetricsHandler
		if metrics == nil {
			metrics = promhttp.Handler()
		}
		r.Method(http.MethodGet, cfg.MetricsPath, metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireAPIKey(cfg.Auth, logger))
		r.Use(CalendarToken)

		if cfg.Cases != nil {
			r.Route("/cases", func(r chi.Router) {
				r.Get("/", cfg.Cases.List)
				r.Post("/", cfg.Cases.Create)
				r.Route("/{caseID}", func(r chi.Router) {
					r.Get("/", cfg.Cases.Get)
					r.Delete("/", cfg.Cases.Delete)
					r.Get("/slots", cfg.Cases.Slots)
					r.Get("/slots.ics", cfg.Cases.SlotsICS)
					r.Get("/provisional", cfg.Cases.ProvisionalTimes)
					r.Post("/provisional", cfg.Cases.Promote)
					r.Post("/confirm", cfg.Cases.Confirm)
				})
			})
		}

		if cfg.Manage != nil {
			r.Delete("/manage/provisional", cfg.Manage.DeleteProvisional)
		}
	})

	return r
}

// Package api provides the local HTTP API for worktracker: JSON endpoints
// over the ledger, timer, reports and exports, a server-sent change feed and
// Prometheus metrics.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/worktracker/worktracker/internal/app/export"
	"github.com/worktracker/worktracker/internal/app/ledger"
	"github.com/worktracker/worktracker/internal/app/report"
	"github.com/worktracker/worktracker/internal/app/timer"
	"github.com/worktracker/worktracker/internal/domain"
)

// Version is reported by /api/version.
const Version = "0.1.0"

// Server is the worktracker HTTP API server.
type Server struct {
	ledger         *ledger.Engine
	timer          *timer.Timer
	reports        *report.Service
	exports        *export.Service
	events         *EventHub
	unsubscribe    func()
	log            *slog.Logger
	metricsEnabled bool
	origins        map[string]struct{}
	loc            *time.Location
	now            func() time.Time
}

// NewServer creates an API server and subscribes its change feed to the
// ledger. Call Close to detach it.
func NewServer(eng *ledger.Engine, tmr *timer.Timer, reports *report.Service, exports *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ledger:  eng,
		timer:   tmr,
		reports: reports,
		exports: exports,
		events:  NewEventHub(),
		log:     logger.With("component", "api"),
		loc:     time.Local,
		now:     time.Now,
	}
	s.unsubscribe = eng.Subscribe(s.events.Broadcast)
	return s
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// AllowOrigins lists the browser origins that may call the API. Requests
// carrying any other Origin are refused.
func (s *Server) AllowOrigins(origins ...string) {
	s.origins = make(map[string]struct{}, len(origins))
	for _, o := range origins {
		s.origins[strings.TrimRight(o, "/")] = struct{}{}
	}
}

// SetClock replaces the clock used for rent and report endpoints.
func (s *Server) SetClock(now func() time.Time) { s.now = now }

// SetLocation sets the zone query dates are interpreted in.
func (s *Server) SetLocation(loc *time.Location) { s.loc = loc }

// Events returns the change feed hub.
func (s *Server) Events() *EventHub { return s.events }

// Close detaches the change feed from the ledger.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.AllowContentType("application/json"))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// The change feed is long-lived and stays outside the request timeout.
		r.Get("/events", s.events.HandleSSE)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(time.Minute))
			s.mountRoutes(r)
		})
	})

	return r
}

func (s *Server) mountRoutes(r chi.Router) {
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": Version})
	})

	r.Route("/budget", func(r chi.Router) {
		r.Get("/", s.handleBudget)
		r.Get("/history", s.handleBudgetHistory)
		r.Post("/settle", s.handleSettle)
		r.Post("/adjust", s.handleAdjust)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Post("/", s.handleCreateSession)
		r.Post("/manual", s.handleCreateManualSession)
		r.Get("/{id}", s.handleGetSession)
		r.Put("/{id}", s.handleUpdateSession)
		r.Delete("/{id}", s.handleDeleteSession)
	})

	r.Route("/timer", func(r chi.Router) {
		r.Get("/", s.handleTimerStatus)
		r.Post("/start", s.handleTimerStart)
		r.Post("/pause", s.handleTimerPause)
		r.Post("/resume", s.handleTimerResume)
		r.Post("/stop", s.handleTimerStop)
		r.Post("/discard", s.handleTimerDiscard)
	})

	r.Route("/finance", func(r chi.Router) {
		r.Get("/", s.handleListFinance)
		r.Post("/", s.handleCreateFinance)
		r.Get("/{id}", s.handleGetFinance)
		r.Put("/{id}", s.handleUpdateFinance)
		r.Delete("/{id}", s.handleDeleteFinance)
	})

	r.Route("/debts", func(r chi.Router) {
		r.Get("/", s.handleListDebts)
		r.Post("/", s.handleCreateDebt)
		r.Get("/{id}", s.handleGetDebt)
		r.Put("/{id}", s.handleUpdateDebt)
		r.Delete("/{id}", s.handleDeleteDebt)
		r.Get("/{id}/payments", s.handleListPayments)
		r.Post("/{id}/payments", s.handleRecordPayment)
	})
	r.Get("/payments", s.handleListAllPayments)

	r.Route("/rent", func(r chi.Router) {
		r.Get("/", s.handleRentStatus)
		r.Post("/check", s.handleRentCheck)
		r.Get("/settings", s.handleGetRentSettings)
		r.Put("/settings", s.handlePutRentSettings)
	})

	r.Get("/rates", s.handleGetRates)
	r.Put("/rates", s.handlePutRates)

	r.Route("/categories/{kind}", func(r chi.Router) {
		r.Get("/", s.handleListCategories)
		r.Post("/", s.handleAddCategory)
		r.Delete("/{name}", s.handleRemoveCategory)
	})

	r.Route("/settings/{key}", func(r chi.Router) {
		r.Get("/", s.handleGetSetting)
		r.Put("/", s.handlePutSetting)
		r.Delete("/", s.handleDeleteSetting)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/deductions", s.handleReportDeductions)
		r.Get("/finance", s.handleReportFinance)
		r.Get("/debts", s.handleReportDebts)
		r.Get("/today", s.handleReportToday)
	})

	r.Get("/export/workbook.xlsx", s.handleExportWorkbook)
	r.Get("/export/snapshot", s.handleExportSnapshot)
	r.Get("/export/{kind}.csv", s.handleExportCSV)
	r.Post("/import/snapshot", s.handleImportSnapshot)
	r.Delete("/data", s.handleResetData)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errorType(status),
		},
	})
}

// statusFor maps a domain error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTimerRunning), errors.Is(err, domain.ErrTimerNotRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	default:
		return "internal_error"
	}
}

// fail writes err with the status its kind maps to. Server errors are
// logged; client errors are not.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeError(w, status, err.Error())
}

// decodeJSON reads the request body into v. A malformed body is a
// validation error.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Invalid("request body: %v", err)
	}
	return nil
}

// requestLogger logs one line per request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// corsMiddleware answers CORS for the configured origins only. Requests
// without an Origin header (CLI, curl) pass untouched; a
// foreign Origin is refused before any handler runs.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := s.origins[origin]; !ok {
			writeError(w, http.StatusForbidden, "origin not allowed")
			return
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

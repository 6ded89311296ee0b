package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/domain"
)

// ─── Budget API ─────────────────────────────────────────────────────────────
//
// GET  /api/budget                : balance and last update
// GET  /api/budget/history?limit=N: newest journal entries
// POST /api/budget/settle         : one settlement pass, returns payments
// POST /api/budget/adjust         : {amount, note} manual correction

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.ledger.Balance(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleBudgetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.fail(w, r, domain.Invalid("limit: %v", err))
			return
		}
		limit = n
	}
	entries, err := s.ledger.History(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	payments, err := s.ledger.Settle(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.ledger.Balance(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"payments": payments,
		"balance":  b.Balance,
	})
}

type adjustRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Amount.IsZero() {
		s.fail(w, r, domain.Invalid("amount must not be zero"))
		return
	}
	balance, err := s.ledger.ApplyDelta(r.Context(), req.Amount, domain.SourceManual, req.Note)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// ─── Rates ──────────────────────────────────────────────────────────────────

func (s *Server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Rates())
}

func (s *Server) handlePutRates(w http.ResponseWriter, r *http.Request) {
	var rates domain.Rates
	if err := decodeJSON(r, &rates); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.ledger.UpdateRates(r.Context(), rates); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Rates())
}

// ─── Categories ─────────────────────────────────────────────────────────────
//
// GET    /api/categories/{task|expense}
// POST   /api/categories/{task|expense}        {name}
// DELETE /api/categories/{task|expense}/{name}

func categoryKind(r *http.Request) (domain.CategoryKind, error) {
	k := domain.CategoryKind(chi.URLParam(r, "kind"))
	if !k.Valid() {
		return "", domain.Invalid("unknown category kind %q", k)
	}
	return k, nil
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	kind, err := categoryKind(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	names, err := s.ledger.Categories(r.Context(), kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	kind, err := categoryKind(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.ledger.AddCategory(r.Context(), kind, req.Name); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"kind": string(kind), "name": req.Name})
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	kind, err := categoryKind(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.ledger.RemoveCategory(r.Context(), kind, chi.URLParam(r, "name")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Settings ───────────────────────────────────────────────────────────────
// Plain settings hold raw JSON values. Ledger-managed keys are read-only.

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	v, err := s.ledger.Setting(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, v)
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.fail(w, r, domain.Invalid("request body: %v", err))
		return
	}
	if err := s.ledger.PutSetting(r.Context(), chi.URLParam(r, "key"), string(body)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSetting(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteSetting(r.Context(), chi.URLParam(r, "key")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

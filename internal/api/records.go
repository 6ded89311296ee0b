package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/worktracker/worktracker/internal/app/ledger"
	"github.com/worktracker/worktracker/internal/domain"
)

// ─── Records API ────────────────────────────────────────────────────────────
// CRUD over the three ledger-backed collections. Every write returns the
// stored entity; deletes of unknown ids succeed with 204.
//
// GET    /api/sessions?person=&activity=&from=YYYY-MM-DD&to=YYYY-MM-DD
// POST   /api/sessions                {WorkSessionInput}
// POST   /api/sessions/manual         {ManualSession}
// GET    /api/sessions/{id}
// PUT    /api/sessions/{id}           {WorkSessionInput}
// DELETE /api/sessions/{id}
// (same shape for /api/finance and /api/debts)
// GET    /api/debts/{id}/payments
// POST   /api/debts/{id}/payments     {PaymentInput}
// GET    /api/payments

const dateLayout = "2006-01-02"

// sessionFilter reads the list filter from the query string. to is a
// calendar day and includes the whole day.
func (s *Server) sessionFilter(r *http.Request) (domain.WorkSessionFilter, error) {
	q := r.URL.Query()
	f := domain.WorkSessionFilter{
		Person:   domain.Person(q.Get("person")),
		Activity: q.Get("activity"),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, s.loc)
		if err != nil {
			return f, domain.Invalid("from: %v", err)
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, s.loc)
		if err != nil {
			return f, domain.Invalid("to: %v", err)
		}
		f.To = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return f, nil
}

// ─── Work Sessions ──────────────────────────────────────────────────────────

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	f, err := s.sessionFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sessions, err := s.ledger.ListWorkSessions(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var in ledger.WorkSessionInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	ws, err := s.ledger.CreateWorkSession(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleCreateManualSession(w http.ResponseWriter, r *http.Request) {
	var m ledger.ManualSession
	if err := decodeJSON(r, &m); err != nil {
		s.fail(w, r, err)
		return
	}
	in, err := m.Input(s.loc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ws, err := s.ledger.CreateWorkSession(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ws, err := s.ledger.GetWorkSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var in ledger.WorkSessionInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	ws, err := s.ledger.UpdateWorkSession(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteWorkSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Finance Records ────────────────────────────────────────────────────────

func (s *Server) handleListFinance(w http.ResponseWriter, r *http.Request) {
	records, err := s.ledger.ListFinanceRecords(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateFinance(w http.ResponseWriter, r *http.Request) {
	var in ledger.FinanceInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.ledger.CreateFinanceRecord(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetFinance(w http.ResponseWriter, r *http.Request) {
	rec, err := s.ledger.GetFinanceRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateFinance(w http.ResponseWriter, r *http.Request) {
	var in ledger.FinanceInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.ledger.UpdateFinanceRecord(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteFinance(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteFinanceRecord(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Debts ──────────────────────────────────────────────────────────────────

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := s.ledger.ListDebts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debts)
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var in ledger.DebtInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.ledger.CreateDebt(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDebt(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.GetDebt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	var in ledger.DebtInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.ledger.UpdateDebt(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteDebt(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.ledger.GetDebt(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	payments, err := s.ledger.ListPayments(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var in ledger.PaymentInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.ledger.RecordPayment(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListAllPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.ledger.ListAllPayments(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

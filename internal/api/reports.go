package api

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/worktracker/worktracker/internal/app/export"
	"github.com/worktracker/worktracker/internal/app/ledger"
)

// ─── Rent ───────────────────────────────────────────────────────────────────
//
// GET  /api/rent         : this month's state, no action
// POST /api/rent/check   : resolve a due rent (idempotent per month)
// GET  /api/rent/settings
// PUT  /api/rent/settings {amount, day}

func (s *Server) handleRentStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.RentStatus(r.Context(), s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRentCheck(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.CheckRent(r.Context(), s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetRentSettings(w http.ResponseWriter, r *http.Request) {
	rs, err := s.ledger.RentSettings(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handlePutRentSettings(w http.ResponseWriter, r *http.Request) {
	var rs ledger.RentSettings
	if err := decodeJSON(r, &rs); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.ledger.SetRentSettings(r.Context(), rs); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

// ─── Reports ────────────────────────────────────────────────────────────────

func (s *Server) handleReportDeductions(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.Deductions(r.Context(), s.now().In(s.loc))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleReportFinance(w http.ResponseWriter, r *http.Request) {
	sum, err := s.reports.Finance(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleReportDebts(w http.ResponseWriter, r *http.Request) {
	sum, err := s.reports.Debts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleReportToday(w http.ResponseWriter, r *http.Request) {
	sum, err := s.reports.Today(r.Context(), s.now().In(s.loc))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ─── Export / Import ────────────────────────────────────────────────────────
// Files are built in memory so a failure still yields a JSON error.

func attachment(w http.ResponseWriter, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
}

func exportName(kind string, now time.Time, ext string) string {
	return "worktracker-" + kind + "-" + now.Format(dateLayout) + "." + ext
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	kind, err := export.ParseKind(strings.ToLower(chi.URLParam(r, "kind")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f, err := s.sessionFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.exports.CSV(r.Context(), &buf, kind, f); err != nil {
		s.fail(w, r, err)
		return
	}
	attachment(w, "text/csv; charset=utf-8", exportName(string(kind), s.now(), "csv"))
	w.Write(buf.Bytes())
}

func (s *Server) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.exports.Workbook(r.Context(), &buf); err != nil {
		s.fail(w, r, err)
		return
	}
	attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", exportName("all", s.now(), "xlsx"))
	w.Write(buf.Bytes())
}

func (s *Server) handleExportSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.EncodeSnapshot(&buf, snap); err != nil {
		s.fail(w, r, err)
		return
	}
	attachment(w, "application/json", exportName("backup", s.now(), "json"))
	w.Write(buf.Bytes())
}

// handleImportSnapshot replaces every collection with the posted snapshot.
func (s *Server) handleImportSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := export.DecodeSnapshot(http.MaxBytesReader(w, r.Body, 64<<20))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.ledger.Restore(r.Context(), snap); err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.ledger.Balance(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"work_sessions":   len(snap.WorkSessions),
		"finance_records": len(snap.FinanceRecords),
		"debts":           len(snap.Debts),
		"debt_payments":   len(snap.DebtPayments),
		"balance":         b.Balance,
	})
}

// handleResetData wipes every collection and seeds the defaults. The request
// must carry confirm=true.
func (s *Server) handleResetData(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, "resetting deletes all data; pass confirm=true")
		return
	}
	if err := s.ledger.Reset(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

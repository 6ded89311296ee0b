package api

import (
	"net/http"

	"github.com/worktracker/worktracker/internal/app/timer"
)

// ─── Timer API ──────────────────────────────────────────────────────────────
// A second start or a pause of a stopped timer answers 409.

func (s *Server) handleTimerStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.timer.Status(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleTimerStart(w http.ResponseWriter, r *http.Request) {
	var in timer.StartInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.timer.Start(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleTimerPause(w http.ResponseWriter, r *http.Request) {
	st, err := s.timer.Pause(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleTimerResume(w http.ResponseWriter, r *http.Request) {
	st, err := s.timer.Resume(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleTimerStop(w http.ResponseWriter, r *http.Request) {
	ws, err := s.timer.Stop(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleTimerDiscard(w http.ResponseWriter, r *http.Request) {
	if err := s.timer.Discard(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Package timer implements the work stopwatch. A running timer survives a
// process restart: its state lives in the settings store and every command
// reads it back before acting.
//
// Lifecycle:
//
//	Start -> (Pause <-> Resume)* -> Stop   saves a work session
//	                              -> Discard drops it
package timer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/app/ledger"
	"github.com/worktracker/worktracker/internal/domain"
	"github.com/worktracker/worktracker/internal/infra/observability"
)

// Recorder receives finished sessions.
type Recorder interface {
	CreateWorkSession(ctx context.Context, in ledger.WorkSessionInput) (*domain.WorkSession, error)
	Rates() domain.Rates
}

// SettingsStore persists the timer state.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// State is the persisted stopwatch.
type State struct {
	Running       bool          `json:"running"`
	Person        domain.Person `json:"person"`
	Activity      string        `json:"activity"`
	Subcategory   string        `json:"subcategory,omitempty"`
	Note          string        `json:"note,omitempty"`
	StartedAt     time.Time     `json:"started_at"`     // first start; the session's start time
	ResumedAt     time.Time     `json:"resumed_at"`     // start of the current running segment
	AccumulatedMs int64         `json:"accumulated_ms"` // time banked by earlier segments
}

// Elapsed returns the worked time at now, excluding paused time.
func (s State) Elapsed(now time.Time) time.Duration {
	d := time.Duration(s.AccumulatedMs) * time.Millisecond
	if s.Running && now.After(s.ResumedAt) {
		d += now.Sub(s.ResumedAt)
	}
	return d
}

// Status is a point-in-time view of the timer with a live earnings preview.
type Status struct {
	Active    bool            `json:"active"`
	State     *State          `json:"state,omitempty"`
	ElapsedMs int64           `json:"elapsed_ms"`
	Earnings  decimal.Decimal `json:"earnings"`
	Deduction decimal.Decimal `json:"deduction"`
}

// StartInput names who is working on what.
type StartInput struct {
	Person      domain.Person `json:"person"`
	Activity    string        `json:"activity"`
	Subcategory string        `json:"subcategory"`
	Note        string        `json:"note"`
}

// Timer is the persistent work stopwatch.
type Timer struct {
	mu       sync.Mutex
	recorder Recorder
	settings SettingsStore
	log      *slog.Logger
	now      func() time.Time
}

// New creates a timer that saves finished sessions through recorder.
func New(recorder Recorder, settings SettingsStore, logger *slog.Logger) *Timer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Timer{
		recorder: recorder,
		settings: settings,
		log:      logger.With("component", "timer"),
		now:      time.Now,
	}
}

// SetClock replaces the timer clock.
func (t *Timer) SetClock(now func() time.Time) {
	t.now = now
}

// ─── Commands ───────────────────────────────────────────────────────────────

// Start begins timing. Only one timer can be active.
func (t *Timer) Start(ctx context.Context, in StartInput) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if strings.TrimSpace(in.Activity) == "" {
		return Status{}, domain.Invalid("activity is required")
	}
	if !t.recorder.Rates().Has(in.Person) {
		return Status{}, fmt.Errorf("%w: %q", domain.ErrUnknownPerson, in.Person)
	}
	cur, err := t.load(ctx)
	if err != nil {
		return Status{}, err
	}
	if cur != nil {
		return Status{}, domain.ErrTimerRunning
	}

	now := t.now()
	s := &State{
		Running:     true,
		Person:      in.Person,
		Activity:    strings.TrimSpace(in.Activity),
		Subcategory: in.Subcategory,
		Note:        in.Note,
		StartedAt:   now,
		ResumedAt:   now,
	}
	if err := t.save(ctx, s); err != nil {
		return Status{}, err
	}
	t.log.Info("timer started", "person", s.Person, "activity", s.Activity)
	return t.status(s, now), nil
}

// Pause banks the running segment.
func (t *Timer) Pause(ctx context.Context) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.load(ctx)
	if err != nil {
		return Status{}, err
	}
	if s == nil || !s.Running {
		return Status{}, domain.ErrTimerNotRunning
	}
	now := t.now()
	s.AccumulatedMs = s.Elapsed(now).Milliseconds()
	s.Running = false
	s.ResumedAt = time.Time{}
	if err := t.save(ctx, s); err != nil {
		return Status{}, err
	}
	return t.status(s, now), nil
}

// Resume starts a new segment on a paused timer.
func (t *Timer) Resume(ctx context.Context) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.load(ctx)
	if err != nil {
		return Status{}, err
	}
	if s == nil {
		return Status{}, domain.ErrTimerNotRunning
	}
	if s.Running {
		return Status{}, domain.ErrTimerRunning
	}
	now := t.now()
	s.Running = true
	s.ResumedAt = now
	if err := t.save(ctx, s); err != nil {
		return Status{}, err
	}
	return t.status(s, now), nil
}

// Status reports the active timer, if any.
func (t *Timer) Status(ctx context.Context) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.load(ctx)
	if err != nil {
		return Status{}, err
	}
	return t.status(s, t.now()), nil
}

// Stop finalizes the timer into a work session and clears it. The session
// runs from the first start to now with the paused time excluded. A timer
// with no elapsed time is rejected and stays active, as does one whose
// session could not be saved.
func (t *Timer) Stop(ctx context.Context) (*domain.WorkSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrTimerNotRunning
	}
	now := t.now()
	elapsed := s.Elapsed(now).Milliseconds()
	if elapsed <= 0 {
		return nil, domain.Invalid("timer has no elapsed time")
	}

	// Cleared before booking; a failed booking puts the state back.
	if err := t.clear(ctx); err != nil {
		return nil, err
	}
	w, err := t.recorder.CreateWorkSession(ctx, ledger.WorkSessionInput{
		Person:      s.Person,
		Activity:    s.Activity,
		Subcategory: s.Subcategory,
		Note:        s.Note,
		StartTime:   s.StartedAt,
		EndTime:     now,
		DurationMs:  elapsed,
	})
	if err != nil {
		if rerr := t.save(ctx, s); rerr != nil {
			return nil, errors.Join(fmt.Errorf("stop timer: %w", err), rerr)
		}
		return nil, fmt.Errorf("stop timer: %w", err)
	}
	t.log.Info("timer stopped", "session", w.ID, "duration_ms", elapsed)
	return w, nil
}

// Discard drops the active timer without saving anything.
func (t *Timer) Discard(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.load(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return domain.ErrTimerNotRunning
	}
	return t.clear(ctx)
}

// Sync republishes the persisted running flag to metrics. Called on startup.
func (t *Timer) Sync(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.load(ctx)
	if err != nil {
		return err
	}
	observability.SetTimerRunning(s != nil && s.Running)
	return nil
}

// ─── Persistence ────────────────────────────────────────────────────────────

func (t *Timer) load(ctx context.Context) (*State, error) {
	raw, err := t.settings.GetSetting(ctx, domain.SettingTimerState)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load timer: %w", err)
	}
	var s State
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode timer state: %w", err)
	}
	if s.Person == "" {
		return nil, nil
	}
	return &s, nil
}

func (t *Timer) save(ctx context.Context, s *State) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode timer state: %w", err)
	}
	if err := t.settings.PutSetting(ctx, domain.SettingTimerState, string(raw)); err != nil {
		return fmt.Errorf("save timer: %w", err)
	}
	observability.SetTimerRunning(s.Running)
	return nil
}

func (t *Timer) clear(ctx context.Context) error {
	if err := t.settings.DeleteSetting(ctx, domain.SettingTimerState); err != nil {
		return fmt.Errorf("clear timer: %w", err)
	}
	observability.SetTimerRunning(false)
	return nil
}

func (t *Timer) status(s *State, now time.Time) Status {
	st := Status{Earnings: decimal.Zero, Deduction: decimal.Zero}
	if s == nil {
		return st
	}
	st.Active = true
	st.State = s
	st.ElapsedMs = s.Elapsed(now).Milliseconds()

	rates := t.recorder.Rates()
	if earnings, err := rates.Earnings(s.Person, st.ElapsedMs); err == nil {
		st.Earnings = earnings
		st.Deduction = rates.DeductionFor(s.Person, earnings)
	}
	return st
}

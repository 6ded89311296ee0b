package timer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/worktracker/worktracker/internal/app/ledger"
	"github.com/worktracker/worktracker/internal/domain"
	"github.com/worktracker/worktracker/internal/infra/sqlite"
)

var ctx = context.Background()

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTimer(t *testing.T) (*Timer, *ledger.Engine, *clock) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	c := &clock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	e := ledger.New(ledger.DefaultConfig(), db, nil)
	e.SetClock(c.now)
	if err := e.Init(ctx); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	tm := New(e, db, nil)
	tm.SetClock(c.now)
	return tm, e, c
}

func TestTimer_StartPauseResumeStop(t *testing.T) {
	tm, e, c := newTestTimer(t)

	if _, err := tm.Start(ctx, StartInput{Person: "maru", Activity: "Marketing"}); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	c.advance(90 * time.Minute)
	if _, err := tm.Pause(ctx); err != nil {
		t.Fatalf("Pause() error: %v", err)
	}
	c.advance(30 * time.Minute) // paused, not counted
	if _, err := tm.Resume(ctx); err != nil {
		t.Fatalf("Resume() error: %v", err)
	}
	c.advance(30 * time.Minute)

	st, err := tm.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if !st.Active || st.ElapsedMs != (2*time.Hour).Milliseconds() {
		t.Errorf("Status() = %+v, want 2h elapsed", st)
	}
	if st.Earnings.String() != "550" {
		t.Errorf("preview earnings = %s, want 550", st.Earnings)
	}

	w, err := tm.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if w.DurationMs != (2 * time.Hour).Milliseconds() {
		t.Errorf("DurationMs = %d, want 2h", w.DurationMs)
	}
	if w.EndTime.Sub(w.StartTime) != 150*time.Minute {
		t.Errorf("span = %v, want 2h30m", w.EndTime.Sub(w.StartTime))
	}
	if w.Deduction.String() != "183" {
		t.Errorf("Deduction = %s, want 183", w.Deduction)
	}

	b, _ := e.Balance(ctx)
	if b.Balance.String() != "183" {
		t.Errorf("balance = %s, want 183", b.Balance)
	}
	st, _ = tm.Status(ctx)
	if st.Active {
		t.Error("timer still active after Stop()")
	}
}

func TestTimer_StateErrors(t *testing.T) {
	tm, _, _ := newTestTimer(t)

	if _, err := tm.Pause(ctx); !errors.Is(err, domain.ErrTimerNotRunning) {
		t.Errorf("Pause() idle = %v, want ErrTimerNotRunning", err)
	}
	if _, err := tm.Stop(ctx); !errors.Is(err, domain.ErrTimerNotRunning) {
		t.Errorf("Stop() idle = %v, want ErrTimerNotRunning", err)
	}
	if err := tm.Discard(ctx); !errors.Is(err, domain.ErrTimerNotRunning) {
		t.Errorf("Discard() idle = %v, want ErrTimerNotRunning", err)
	}

	if _, err := tm.Start(ctx, StartInput{Person: "marty", Activity: "Wellness"}); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if _, err := tm.Start(ctx, StartInput{Person: "maru", Activity: "Wellness"}); !errors.Is(err, domain.ErrTimerRunning) {
		t.Errorf("second Start() = %v, want ErrTimerRunning", err)
	}
	if _, err := tm.Resume(ctx); !errors.Is(err, domain.ErrTimerRunning) {
		t.Errorf("Resume() running = %v, want ErrTimerRunning", err)
	}
}

func TestTimer_StartValidation(t *testing.T) {
	tm, _, _ := newTestTimer(t)
	tests := []struct {
		name string
		in   StartInput
	}{
		{"no activity", StartInput{Person: "maru"}},
		{"blank activity", StartInput{Person: "maru", Activity: "   "}},
		{"unknown person", StartInput{Person: "ghost", Activity: "Marketing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tm.Start(ctx, tt.in); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Start() = %v, want ErrValidation", err)
			}
		})
	}
}

func TestTimer_StopWithZeroElapsed(t *testing.T) {
	tm, e, _ := newTestTimer(t)
	if _, err := tm.Start(ctx, StartInput{Person: "maru", Activity: "Marketing"}); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if _, err := tm.Stop(ctx); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Stop() = %v, want ErrValidation", err)
	}
	st, _ := tm.Status(ctx)
	if !st.Active {
		t.Error("rejected Stop() cleared the timer")
	}
	list, _ := e.ListWorkSessions(ctx, domain.WorkSessionFilter{})
	if len(list) != 0 {
		t.Errorf("sessions = %d, want 0", len(list))
	}
}

func TestTimer_SurvivesRestart(t *testing.T) {
	tm, e, c := newTestTimer(t)
	if _, err := tm.Start(ctx, StartInput{Person: "marty", Activity: "Marketing", Note: "flyers"}); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	c.advance(time.Hour)

	// A fresh Timer over the same store picks the state back up.
	restarted := New(e, e.Store(), nil)
	restarted.SetClock(c.now)
	st, err := restarted.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if !st.Active || !st.State.Running || st.State.Note != "flyers" {
		t.Fatalf("Status() after restart = %+v", st)
	}
	if st.ElapsedMs != time.Hour.Milliseconds() {
		t.Errorf("ElapsedMs = %d, want 1h", st.ElapsedMs)
	}

	w, err := restarted.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if w.Earnings.String() != "400" || w.Deduction.String() != "200" {
		t.Errorf("session = %s / %s, want 400 / 200", w.Earnings, w.Deduction)
	}
}

// flakySettings fails DeleteSetting while broken is set.
type flakySettings struct {
	SettingsStore
	broken bool
}

func (f *flakySettings) DeleteSetting(ctx context.Context, key string) error {
	if f.broken {
		return errors.New("disk full")
	}
	return f.SettingsStore.DeleteSetting(ctx, key)
}

// failingRecorder refuses to save sessions.
type failingRecorder struct{ Recorder }

func (failingRecorder) CreateWorkSession(context.Context, ledger.WorkSessionInput) (*domain.WorkSession, error) {
	return nil, domain.ErrStore
}

func TestTimer_StopFailureBooksNothing(t *testing.T) {
	t.Run("clear fails", func(t *testing.T) {
		_, e, c := newTestTimer(t)
		settings := &flakySettings{SettingsStore: e.Store()}
		tm := New(e, settings, nil)
		tm.SetClock(c.now)
		if _, err := tm.Start(ctx, StartInput{Person: "maru", Activity: "Marketing"}); err != nil {
			t.Fatalf("Start() error: %v", err)
		}
		c.advance(2 * time.Hour)

		settings.broken = true
		if _, err := tm.Stop(ctx); err == nil {
			t.Fatal("Stop() succeeded with a failing store")
		}
		list, _ := e.ListWorkSessions(ctx, domain.WorkSessionFilter{})
		if len(list) != 0 {
			t.Fatalf("sessions after failed Stop() = %d, want 0", len(list))
		}

		settings.broken = false
		if _, err := tm.Stop(ctx); err != nil {
			t.Fatalf("retried Stop() error: %v", err)
		}
		list, _ = e.ListWorkSessions(ctx, domain.WorkSessionFilter{})
		if len(list) != 1 {
			t.Errorf("sessions after retry = %d, want 1", len(list))
		}
		b, _ := e.Balance(ctx)
		if b.Balance.String() != "183" {
			t.Errorf("balance = %s, want one deduction of 183", b.Balance)
		}
	})

	t.Run("booking fails", func(t *testing.T) {
		_, e, c := newTestTimer(t)
		tm := New(failingRecorder{e}, e.Store(), nil)
		tm.SetClock(c.now)
		if _, err := tm.Start(ctx, StartInput{Person: "maru", Activity: "Marketing"}); err != nil {
			t.Fatalf("Start() error: %v", err)
		}
		c.advance(time.Hour)

		if _, err := tm.Stop(ctx); !errors.Is(err, domain.ErrStore) {
			t.Fatalf("Stop() = %v, want ErrStore", err)
		}
		st, err := tm.Status(ctx)
		if err != nil {
			t.Fatalf("Status() error: %v", err)
		}
		if !st.Active || st.ElapsedMs != time.Hour.Milliseconds() {
			t.Errorf("Status() after failed booking = %+v, want the timer back", st)
		}
	})
}

func TestTimer_Discard(t *testing.T) {
	tm, e, c := newTestTimer(t)
	tm.Start(ctx, StartInput{Person: "maru", Activity: "Marketing"})
	c.advance(time.Hour)

	if err := tm.Discard(ctx); err != nil {
		t.Fatalf("Discard() error: %v", err)
	}
	st, _ := tm.Status(ctx)
	if st.Active {
		t.Error("timer active after Discard()")
	}
	b, _ := e.Balance(ctx)
	if !b.Balance.IsZero() {
		t.Errorf("balance = %s, want 0", b.Balance)
	}
}

func TestState_Elapsed(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		s    State
		want time.Duration
	}{
		{"paused", State{AccumulatedMs: 5000}, 5 * time.Second},
		{"running", State{Running: true, ResumedAt: base.Add(-time.Minute), AccumulatedMs: 1000}, time.Minute + time.Second},
		{"clock behind", State{Running: true, ResumedAt: base.Add(time.Minute)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Elapsed(base); got != tt.want {
				t.Errorf("Elapsed() = %v, want %v", got, tt.want)
			}
		})
	}
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/worktracker/worktracker/internal/domain"
	"github.com/worktracker/worktracker/internal/infra/validate"
)

// ─── Work Sessions ──────────────────────────────────────────────────────────

// WorkSessionInput describes a work session to create or replace.
// DurationMs may be set by the timer, which excludes paused time; when zero
// it is derived from the times and the break.
type WorkSessionInput struct {
	Person       domain.Person `json:"person" validate:"required,notblank"`
	Activity     string        `json:"activity" validate:"required,notblank"`
	Subcategory  string        `json:"subcategory"`
	Note         string        `json:"note"`
	StartTime    time.Time     `json:"start_time" validate:"required"`
	EndTime      time.Time     `json:"end_time" validate:"required"`
	BreakMinutes int           `json:"break_minutes" validate:"gte=0"`
	DurationMs   int64         `json:"duration_ms" validate:"gte=0"`
}

// buildWorkSession validates the input and prices it with the current rates.
func (e *Engine) buildWorkSession(in WorkSessionInput) (domain.WorkSession, error) {
	if err := validate.Struct(in); err != nil {
		return domain.WorkSession{}, err
	}
	if !in.EndTime.After(in.StartTime) {
		return domain.WorkSession{}, domain.Invalid("end time must be after start time")
	}

	span := in.EndTime.Sub(in.StartTime).Milliseconds()
	duration := in.DurationMs
	if duration == 0 {
		duration = span - int64(in.BreakMinutes)*time.Minute.Milliseconds()
	}
	if duration <= 0 {
		return domain.WorkSession{}, domain.Invalid("duration must be positive")
	}
	if duration > span {
		return domain.WorkSession{}, domain.Invalid("duration exceeds start to end time")
	}

	rates := e.Rates()
	earnings, err := rates.Earnings(in.Person, duration)
	if err != nil {
		return domain.WorkSession{}, err
	}
	return domain.WorkSession{
		Person:       in.Person,
		Activity:     strings.TrimSpace(in.Activity),
		Subcategory:  in.Subcategory,
		Note:         in.Note,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		BreakMinutes: in.BreakMinutes,
		DurationMs:   duration,
		Earnings:     earnings,
		Deduction:    rates.DeductionFor(in.Person, earnings),
	}, nil
}

// CreateWorkSession stores a session and adds its deduction to the budget.
func (e *Engine) CreateWorkSession(ctx context.Context, in WorkSessionInput) (*domain.WorkSession, error) {
	w, err := e.buildWorkSession(in)
	if err != nil {
		return nil, err
	}
	_, err = e.mutate(ctx, "work_session.created", func(lt *ledgerTx) error {
		w.ID = e.newID()
		w.CreatedAt = lt.now
		lt.id = w.ID
		if err := lt.repo.InsertWorkSession(lt.ctx, w); err != nil {
			return err
		}
		return lt.apply(w.Deduction, domain.SourceWorkSession, w.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("create work session: %w", err)
	}
	e.log.Info("work session saved", "id", w.ID, "person", w.Person,
		"earnings", w.Earnings.String(), "deduction", w.Deduction.String())
	return &w, nil
}

// UpdateWorkSession replaces a session and applies the deduction difference.
// The session is re-priced with the current rates.
func (e *Engine) UpdateWorkSession(ctx context.Context, id string, in WorkSessionInput) (*domain.WorkSession, error) {
	w, err := e.buildWorkSession(in)
	if err != nil {
		return nil, err
	}
	_, err = e.mutate(ctx, "work_session.updated", func(lt *ledgerTx) error {
		old, err := lt.repo.GetWorkSession(lt.ctx, id)
		if err != nil {
			return err
		}
		w.ID = id
		w.CreatedAt = old.CreatedAt
		lt.id = id
		if err := lt.repo.UpdateWorkSession(lt.ctx, w); err != nil {
			return err
		}
		return lt.apply(w.Deduction.Sub(old.Deduction), domain.SourceWorkSession, id)
	})
	if err != nil {
		return nil, fmt.Errorf("update work session: %w", err)
	}
	return &w, nil
}

// DeleteWorkSession removes a session and reverses its deduction.
// Deleting a missing id does nothing.
func (e *Engine) DeleteWorkSession(ctx context.Context, id string) error {
	_, err := e.mutate(ctx, "work_session.deleted", func(lt *ledgerTx) error {
		lt.id = id
		old, err := lt.repo.GetWorkSession(lt.ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			lt.quiet = true
			return nil
		}
		if err != nil {
			return err
		}
		if err := lt.repo.DeleteWorkSession(lt.ctx, id); err != nil {
			return err
		}
		return lt.apply(old.Deduction.Neg(), domain.SourceWorkSession, id)
	})
	if err != nil {
		return fmt.Errorf("delete work session: %w", err)
	}
	return nil
}

// GetWorkSession returns one session.
func (e *Engine) GetWorkSession(ctx context.Context, id string) (*domain.WorkSession, error) {
	return e.store.GetWorkSession(ctx, id)
}

// ListWorkSessions returns sessions matching f, newest first.
func (e *Engine) ListWorkSessions(ctx context.Context, f domain.WorkSessionFilter) ([]domain.WorkSession, error) {
	return e.store.ListWorkSessions(ctx, f)
}

// ─── Manual Entry ───────────────────────────────────────────────────────────

// ManualSession is a session typed in by hand: a day, wall-clock start and
// end, and an optional break.
type ManualSession struct {
	Person       domain.Person `json:"person" validate:"required,notblank"`
	Date         string        `json:"date" validate:"required,datetime=2006-01-02"`
	Start        string        `json:"start" validate:"required,hhmm"`
	End          string        `json:"end" validate:"required,hhmm"`
	BreakMinutes int           `json:"break_minutes" validate:"gte=0"`
	Activity     string        `json:"activity" validate:"required,notblank"`
	Subcategory  string        `json:"subcategory"`
	Note         string        `json:"note"`
}

// Input converts the manual entry into a WorkSessionInput in loc.
func (m ManualSession) Input(loc *time.Location) (WorkSessionInput, error) {
	if err := validate.Struct(m); err != nil {
		return WorkSessionInput{}, err
	}
	if loc == nil {
		loc = time.Local
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", m.Date+" "+m.Start, loc)
	if err != nil {
		return WorkSessionInput{}, domain.Invalid("start: %v", err)
	}
	end, err := time.ParseInLocation("2006-01-02 15:04", m.Date+" "+m.End, loc)
	if err != nil {
		return WorkSessionInput{}, domain.Invalid("end: %v", err)
	}
	if !end.After(start) {
		return WorkSessionInput{}, domain.Invalid("end time must be after start time")
	}
	if end.Sub(start) <= time.Duration(m.BreakMinutes)*time.Minute {
		return WorkSessionInput{}, domain.Invalid("break is longer than the session")
	}
	return WorkSessionInput{
		Person:       m.Person,
		Activity:     m.Activity,
		Subcategory:  m.Subcategory,
		Note:         m.Note,
		StartTime:    start,
		EndTime:      end,
		BreakMinutes: m.BreakMinutes,
	}, nil
}

// AddManualSession validates a manual entry and stores it.
func (e *Engine) AddManualSession(ctx context.Context, m ManualSession) (*domain.WorkSession, error) {
	in, err := m.Input(time.Local)
	if err != nil {
		return nil, err
	}
	return e.CreateWorkSession(ctx, in)
}

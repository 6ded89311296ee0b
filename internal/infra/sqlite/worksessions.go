package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/worktracker/worktracker/internal/domain"
)

// ─── Work Sessions ──────────────────────────────────────────────────────────

const workSessionColumns = `id, person, activity, subcategory, note, start_time, end_time,
	break_minutes, duration_ms, earnings, deduction, created_at`

// InsertWorkSession stores a new work session.
func (q *queries) InsertWorkSession(ctx context.Context, w domain.WorkSession) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO work_sessions (`+workSessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, w.ID, string(w.Person), w.Activity, w.Subcategory, w.Note,
		fmtTime(w.StartTime), fmtTime(w.EndTime), w.BreakMinutes, w.DurationMs,
		w.Earnings.String(), w.Deduction.String(), fmtTime(w.CreatedAt))
	return storeErr("insert work session", err)
}

// UpdateWorkSession overwrites every mutable column of an existing session.
func (q *queries) UpdateWorkSession(ctx context.Context, w domain.WorkSession) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE work_sessions SET
			person        = ?,
			activity      = ?,
			subcategory   = ?,
			note          = ?,
			start_time    = ?,
			end_time      = ?,
			break_minutes = ?,
			duration_ms   = ?,
			earnings      = ?,
			deduction     = ?
		WHERE id = ?
	`, string(w.Person), w.Activity, w.Subcategory, w.Note,
		fmtTime(w.StartTime), fmtTime(w.EndTime), w.BreakMinutes, w.DurationMs,
		w.Earnings.String(), w.Deduction.String(), w.ID)
	if err != nil {
		return storeErr("update work session", err)
	}
	return requireRow(res, domain.ErrWorkSessionNotFound)
}

// DeleteWorkSession removes a session. Missing ids are ignored.
func (q *queries) DeleteWorkSession(ctx context.Context, id string) error {
	_, err := q.q.ExecContext(ctx, `DELETE FROM work_sessions WHERE id = ?`, id)
	return storeErr("delete work session", err)
}

// GetWorkSession returns one session by id.
func (q *queries) GetWorkSession(ctx context.Context, id string) (*domain.WorkSession, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+workSessionColumns+` FROM work_sessions WHERE id = ?`, id)
	w, err := scanWorkSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWorkSessionNotFound
	}
	if err != nil {
		return nil, storeErr("get work session", err)
	}
	return &w, nil
}

// ListWorkSessions returns sessions matching f, newest first.
func (q *queries) ListWorkSessions(ctx context.Context, f domain.WorkSessionFilter) ([]domain.WorkSession, error) {
	var (
		where []string
		args  []any
	)
	if f.Person != "" {
		where = append(where, "person = ?")
		args = append(args, string(f.Person))
	}
	if f.Activity != "" {
		where = append(where, "activity = ?")
		args = append(args, f.Activity)
	}
	if !f.From.IsZero() {
		where = append(where, "start_time >= ?")
		args = append(args, fmtTime(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "start_time <= ?")
		args = append(args, fmtTime(f.To))
	}

	query := `SELECT ` + workSessionColumns + ` FROM work_sessions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_time DESC, id`

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list work sessions", err)
	}
	defer rows.Close()

	var out []domain.WorkSession
	for rows.Next() {
		w, err := scanWorkSession(rows)
		if err != nil {
			return nil, storeErr("scan work session", err)
		}
		out = append(out, w)
	}
	return out, storeErr("list work sessions", rows.Err())
}

// ─── Scanning ───────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkSession(s scanner) (domain.WorkSession, error) {
	var (
		w                                    domain.WorkSession
		person, start, end, earnings, deduct string
		created                              string
	)
	if err := s.Scan(&w.ID, &person, &w.Activity, &w.Subcategory, &w.Note, &start, &end,
		&w.BreakMinutes, &w.DurationMs, &earnings, &deduct, &created); err != nil {
		return w, err
	}
	w.Person = domain.Person(person)

	var err error
	if w.StartTime, err = parseTime(start); err != nil {
		return w, err
	}
	if w.EndTime, err = parseTime(end); err != nil {
		return w, err
	}
	if w.Earnings, err = parseMoney(earnings); err != nil {
		return w, err
	}
	if w.Deduction, err = parseMoney(deduct); err != nil {
		return w, err
	}
	if w.CreatedAt, err = parseTime(created); err != nil {
		return w, err
	}
	return w, nil
}

// requireRow maps an UPDATE that touched nothing to notFound.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("rows affected", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

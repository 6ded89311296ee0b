package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/worktracker/worktracker/internal/domain"
)

// ─── Finance Records ────────────────────────────────────────────────────────

const financeColumns = `id, type, amount, currency, category, date, description, created_at`

// InsertFinanceRecord stores a new finance record.
func (q *queries) InsertFinanceRecord(ctx context.Context, r domain.FinanceRecord) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO finance_records (`+financeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, string(r.Type), r.Amount.String(), r.Currency, r.Category,
		fmtDate(r.Date), r.Description, fmtTime(r.CreatedAt))
	return storeErr("insert finance record", err)
}

// UpdateFinanceRecord overwrites an existing record.
func (q *queries) UpdateFinanceRecord(ctx context.Context, r domain.FinanceRecord) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE finance_records SET
			type        = ?,
			amount      = ?,
			currency    = ?,
			category    = ?,
			date        = ?,
			description = ?
		WHERE id = ?
	`, string(r.Type), r.Amount.String(), r.Currency, r.Category,
		fmtDate(r.Date), r.Description, r.ID)
	if err != nil {
		return storeErr("update finance record", err)
	}
	return requireRow(res, domain.ErrFinanceRecordNotFound)
}

// DeleteFinanceRecord removes a record. Missing ids are ignored.
func (q *queries) DeleteFinanceRecord(ctx context.Context, id string) error {
	_, err := q.q.ExecContext(ctx, `DELETE FROM finance_records WHERE id = ?`, id)
	return storeErr("delete finance record", err)
}

// GetFinanceRecord returns one record by id.
func (q *queries) GetFinanceRecord(ctx context.Context, id string) (*domain.FinanceRecord, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+financeColumns+` FROM finance_records WHERE id = ?`, id)
	r, err := scanFinanceRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrFinanceRecordNotFound
	}
	if err != nil {
		return nil, storeErr("get finance record", err)
	}
	return &r, nil
}

// ListFinanceRecords returns every record, newest date first.
func (q *queries) ListFinanceRecords(ctx context.Context) ([]domain.FinanceRecord, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+financeColumns+` FROM finance_records
		ORDER BY date DESC, created_at DESC, id
	`)
	if err != nil {
		return nil, storeErr("list finance records", err)
	}
	defer rows.Close()

	var out []domain.FinanceRecord
	for rows.Next() {
		r, err := scanFinanceRecord(rows)
		if err != nil {
			return nil, storeErr("scan finance record", err)
		}
		out = append(out, r)
	}
	return out, storeErr("list finance records", rows.Err())
}

func scanFinanceRecord(s scanner) (domain.FinanceRecord, error) {
	var (
		r                            domain.FinanceRecord
		typ, amount, date, createdAt string
	)
	if err := s.Scan(&r.ID, &typ, &amount, &r.Currency, &r.Category, &date,
		&r.Description, &createdAt); err != nil {
		return r, err
	}
	r.Type = domain.RecordType(typ)

	var err error
	if r.Amount, err = parseMoney(amount); err != nil {
		return r, err
	}
	if r.Date, err = parseDate(date); err != nil {
		return r, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return r, err
	}
	return r, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/domain"
)

// ─── Debts ──────────────────────────────────────────────────────────────────

const debtColumns = `id, person, description, amount, currency, date, due_date, creditor, priority, created_at`

// InsertDebt stores a new debt.
func (q *queries) InsertDebt(ctx context.Context, d domain.Debt) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO debts (`+debtColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, string(d.Person), d.Description, d.Amount.String(), d.Currency,
		fmtDate(d.Date), fmtOptDate(d.DueDate), d.Creditor, string(d.Priority), fmtTime(d.CreatedAt))
	return storeErr("insert debt", err)
}

// UpdateDebt overwrites an existing debt.
func (q *queries) UpdateDebt(ctx context.Context, d domain.Debt) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE debts SET
			person      = ?,
			description = ?,
			amount      = ?,
			currency    = ?,
			date        = ?,
			due_date    = ?,
			creditor    = ?,
			priority    = ?
		WHERE id = ?
	`, string(d.Person), d.Description, d.Amount.String(), d.Currency,
		fmtDate(d.Date), fmtOptDate(d.DueDate), d.Creditor, string(d.Priority), d.ID)
	if err != nil {
		return storeErr("update debt", err)
	}
	return requireRow(res, domain.ErrDebtNotFound)
}

// DeleteDebt removes a debt and all of its payments. Missing ids are ignored.
func (q *queries) DeleteDebt(ctx context.Context, id string) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM debt_payments WHERE debt_id = ?`, id); err != nil {
		return storeErr("delete debt payments", err)
	}
	_, err := q.q.ExecContext(ctx, `DELETE FROM debts WHERE id = ?`, id)
	return storeErr("delete debt", err)
}

// GetDebt returns one debt by id.
func (q *queries) GetDebt(ctx context.Context, id string) (*domain.Debt, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+debtColumns+` FROM debts WHERE id = ?`, id)
	d, err := scanDebt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDebtNotFound
	}
	if err != nil {
		return nil, storeErr("get debt", err)
	}
	return &d, nil
}

// ListDebts returns every debt, oldest date first.
func (q *queries) ListDebts(ctx context.Context) ([]domain.Debt, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+debtColumns+` FROM debts
		ORDER BY date, created_at, id
	`)
	if err != nil {
		return nil, storeErr("list debts", err)
	}
	defer rows.Close()

	var out []domain.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, storeErr("scan debt", err)
		}
		out = append(out, d)
	}
	return out, storeErr("list debts", rows.Err())
}

func scanDebt(s scanner) (domain.Debt, error) {
	var (
		d                                         domain.Debt
		person, amount, date, priority, createdAt string
		due                                       sql.NullString
	)
	if err := s.Scan(&d.ID, &person, &d.Description, &amount, &d.Currency, &date,
		&due, &d.Creditor, &priority, &createdAt); err != nil {
		return d, err
	}
	d.Person = domain.Person(person)
	d.Priority = domain.Priority(priority)

	var err error
	if d.Amount, err = parseMoney(amount); err != nil {
		return d, err
	}
	if d.Date, err = parseDate(date); err != nil {
		return d, err
	}
	if d.DueDate, err = parseOptDate(due); err != nil {
		return d, err
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return d, err
	}
	return d, nil
}

// ─── Debt Payments ──────────────────────────────────────────────────────────

const paymentColumns = `id, debt_id, amount, date, note, auto, created_at`

// InsertPayment stores a payment against an existing debt.
func (q *queries) InsertPayment(ctx context.Context, p domain.DebtPayment) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO debt_payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.DebtID, p.Amount.String(), fmtDate(p.Date), p.Note, boolToInt(p.Auto), fmtTime(p.CreatedAt))
	return storeErr("insert debt payment", err)
}

// ListPayments returns the payments for one debt, oldest first.
func (q *queries) ListPayments(ctx context.Context, debtID string) ([]domain.DebtPayment, error) {
	return q.listPayments(ctx, `
		SELECT `+paymentColumns+` FROM debt_payments
		WHERE debt_id = ?
		ORDER BY date, created_at, id
	`, debtID)
}

// ListAllPayments returns every payment, oldest first.
func (q *queries) ListAllPayments(ctx context.Context) ([]domain.DebtPayment, error) {
	return q.listPayments(ctx, `
		SELECT `+paymentColumns+` FROM debt_payments
		ORDER BY date, created_at, id
	`)
}

// SumPayments returns the total paid on a debt.
// Amounts are TEXT, so the sum is taken in decimal rather than in SQL.
func (q *queries) SumPayments(ctx context.Context, debtID string) (decimal.Decimal, error) {
	payments, err := q.ListPayments(ctx, debtID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}

func (q *queries) listPayments(ctx context.Context, query string, args ...any) ([]domain.DebtPayment, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list debt payments", err)
	}
	defer rows.Close()

	var out []domain.DebtPayment
	for rows.Next() {
		var (
			p                       domain.DebtPayment
			amount, date, createdAt string
			auto                    int
		)
		if err := rows.Scan(&p.ID, &p.DebtID, &amount, &date, &p.Note, &auto, &createdAt); err != nil {
			return nil, storeErr("scan debt payment", err)
		}
		p.Auto = auto == 1
		if p.Amount, err = parseMoney(amount); err != nil {
			return nil, storeErr("scan debt payment", err)
		}
		if p.Date, err = parseDate(date); err != nil {
			return nil, storeErr("scan debt payment", err)
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, storeErr("scan debt payment", err)
		}
		out = append(out, p)
	}
	return out, storeErr("list debt payments", rows.Err())
}

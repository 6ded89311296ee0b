package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/worktracker/worktracker/internal/domain"
)

// ─── Categories ─────────────────────────────────────────────────────────────

// ListCategories returns the names of one category set in insertion order.
func (q *queries) ListCategories(ctx context.Context, kind domain.CategoryKind) ([]string, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT name FROM categories WHERE kind = ? ORDER BY rowid
	`, string(kind))
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storeErr("scan category", err)
		}
		out = append(out, name)
	}
	return out, storeErr("list categories", rows.Err())
}

// AddCategory adds a name to a category set. Existing names are kept.
func (q *queries) AddCategory(ctx context.Context, kind domain.CategoryKind, name string) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO categories (kind, name) VALUES (?, ?)
		ON CONFLICT(kind, name) DO NOTHING
	`, string(kind), name)
	return storeErr("add category", err)
}

// RemoveCategory removes a name from a category set.
func (q *queries) RemoveCategory(ctx context.Context, kind domain.CategoryKind, name string) error {
	_, err := q.q.ExecContext(ctx, `DELETE FROM categories WHERE kind = ? AND name = ?`, string(kind), name)
	return storeErr("remove category", err)
}

// ─── Settings ───────────────────────────────────────────────────────────────

// GetSetting returns the raw JSON value stored under key.
func (q *queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrSettingNotFound
	}
	if err != nil {
		return "", storeErr("get setting", err)
	}
	return value, nil
}

// PutSetting inserts or replaces a setting.
func (q *queries) PutSetting(ctx context.Context, key, value string) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return storeErr("put setting", err)
}

// DeleteSetting removes a setting. Missing keys are ignored.
func (q *queries) DeleteSetting(ctx context.Context, key string) error {
	_, err := q.q.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return storeErr("delete setting", err)
}

// ListSettings returns every setting.
func (q *queries) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, storeErr("list settings", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, storeErr("scan setting", err)
		}
		out[k] = v
	}
	return out, storeErr("list settings", rows.Err())
}

// ─── Clear ──────────────────────────────────────────────────────────────────

// ClearAll empties every collection, including the budget and its journal.
func (q *queries) ClearAll(ctx context.Context) error {
	for _, table := range []string{
		"debt_payments",
		"debts",
		"work_sessions",
		"finance_records",
		"categories",
		"settings",
		"shared_budget",
		"budget_entries",
	} {
		if _, err := q.q.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return storeErr("clear "+table, err)
		}
	}
	return nil
}

// ─── Shared Budget ──────────────────────────────────────────────────────────

// GetBudget returns the shared budget. A store that has never been written
// reports a zero balance.
func (q *queries) GetBudget(ctx context.Context) (domain.SharedBudget, error) {
	var balance, updated string
	err := q.q.QueryRowContext(ctx, `SELECT balance, last_updated FROM shared_budget WHERE id = 1`).
		Scan(&balance, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SharedBudget{}, nil
	}
	if err != nil {
		return domain.SharedBudget{}, storeErr("get budget", err)
	}

	var b domain.SharedBudget
	if b.Balance, err = parseMoney(balance); err != nil {
		return b, storeErr("get budget", err)
	}
	if b.LastUpdated, err = parseTime(updated); err != nil {
		return b, storeErr("get budget", err)
	}
	return b, nil
}

// PutBudget writes the shared budget row.
func (q *queries) PutBudget(ctx context.Context, b domain.SharedBudget) error {
	updated := b.LastUpdated
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO shared_budget (id, balance, last_updated) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			balance      = excluded.balance,
			last_updated = excluded.last_updated
	`, b.Balance.String(), fmtTime(updated))
	return storeErr("put budget", err)
}

// AppendBudgetEntry adds one line to the budget journal.
func (q *queries) AppendBudgetEntry(ctx context.Context, e domain.BudgetEntry) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO budget_entries (id, source, ref_id, amount, balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.Source), e.RefID, e.Amount.String(), e.Balance.String(), fmtTime(e.CreatedAt))
	return storeErr("append budget entry", err)
}

// ListBudgetEntries returns journal entries, newest first. limit <= 0 returns all.
func (q *queries) ListBudgetEntries(ctx context.Context, limit int) ([]domain.BudgetEntry, error) {
	query := `SELECT id, source, ref_id, amount, balance, created_at FROM budget_entries ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list budget entries", err)
	}
	defer rows.Close()

	var out []domain.BudgetEntry
	for rows.Next() {
		var (
			e                                domain.BudgetEntry
			source, amount, balance, created string
		)
		if err := rows.Scan(&e.ID, &source, &e.RefID, &amount, &balance, &created); err != nil {
			return nil, storeErr("scan budget entry", err)
		}
		e.Source = domain.EntrySource(source)
		if e.Amount, err = parseMoney(amount); err != nil {
			return nil, storeErr("scan budget entry", err)
		}
		if e.Balance, err = parseMoney(balance); err != nil {
			return nil, storeErr("scan budget entry", err)
		}
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, storeErr("scan budget entry", err)
		}
		out = append(out, e)
	}
	return out, storeErr("list budget entries", rows.Err())
}

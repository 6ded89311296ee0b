// Package domain contains pure business types with no infrastructure imports.
// Money is carried as decimal.Decimal throughout; that is the only external dependency.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── People & Currencies ────────────────────────────────────────────────────

// Person identifies one of the two tracked people (e.g. "maru", "marty").
type Person string

// CurrencyCZK is the only currency that participates in the shared budget.
const CurrencyCZK = "CZK"

// DateOf returns the calendar day of t as midnight UTC.
// Record dates (finance, debts, payments) are stored at day precision.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ─── Work Sessions ──────────────────────────────────────────────────────────

// WorkSession is a finished block of paid work.
// Deduction is the amount that was moved into the shared budget for this
// session; it is stored so edits and deletes reverse exactly what was applied.
type WorkSession struct {
	ID           string          `json:"id"`
	Person       Person          `json:"person"`
	Activity     string          `json:"activity"`
	Subcategory  string          `json:"subcategory,omitempty"`
	Note         string          `json:"note,omitempty"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
	BreakMinutes int             `json:"break_minutes,omitempty"`
	DurationMs   int64           `json:"duration_ms"`
	Earnings     decimal.Decimal `json:"earnings"`
	Deduction    decimal.Decimal `json:"deduction"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Duration returns the worked duration.
func (w WorkSession) Duration() time.Duration {
	return time.Duration(w.DurationMs) * time.Millisecond
}

// Hours returns the worked duration in fractional hours.
func (w WorkSession) Hours() decimal.Decimal {
	return decimal.NewFromInt(w.DurationMs).Div(decimal.NewFromInt(int64(time.Hour / time.Millisecond)))
}

// WorkSessionFilter narrows ListWorkSessions. Zero fields match everything.
type WorkSessionFilter struct {
	Person   Person
	Activity string
	From     time.Time // inclusive, compared against StartTime
	To       time.Time // inclusive
}

// Match reports whether the session passes the filter.
func (f WorkSessionFilter) Match(w WorkSession) bool {
	if f.Person != "" && w.Person != f.Person {
		return false
	}
	if f.Activity != "" && w.Activity != f.Activity {
		return false
	}
	if !f.From.IsZero() && w.StartTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && w.StartTime.After(f.To) {
		return false
	}
	return true
}

// ─── Finance Records ────────────────────────────────────────────────────────

// RecordType is the direction of a finance record.
type RecordType string

const (
	RecordIncome  RecordType = "income"
	RecordExpense RecordType = "expense"
)

// FinanceRecord is a manually entered income or expense.
type FinanceRecord struct {
	ID          string          `json:"id"`
	Type        RecordType      `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category,omitempty"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Contribution is the signed effect of the record on the shared budget.
// Non-CZK records contribute nothing.
func (r FinanceRecord) Contribution() decimal.Decimal {
	if r.Currency != CurrencyCZK {
		return decimal.Zero
	}
	switch r.Type {
	case RecordIncome:
		return r.Amount
	case RecordExpense:
		return r.Amount.Neg()
	}
	return decimal.Zero
}

// ─── Debts ──────────────────────────────────────────────────────────────────

// Priority orders debts for automatic settlement.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the settlement rank (lower is paid first).
// An unset priority ranks as medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Debt is an obligation that is repaid through DebtPayments.
type Debt struct {
	ID          string          `json:"id"`
	Person      Person          `json:"person"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Date        time.Time       `json:"date"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Creditor    string          `json:"creditor,omitempty"`
	Priority    Priority        `json:"priority,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DebtPayment reduces the remaining amount of a debt.
type DebtPayment struct {
	ID        string          `json:"id"`
	DebtID    string          `json:"debt_id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Note      string          `json:"note,omitempty"`
	Auto      bool            `json:"auto"`
	CreatedAt time.Time       `json:"created_at"`
}

// DebtStatus is a debt together with what has been paid on it.
type DebtStatus struct {
	Debt      Debt            `json:"debt"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
	Settled   bool            `json:"settled"`
}

// NewDebtStatus sums payments for the debt.
func NewDebtStatus(d Debt, payments []DebtPayment) DebtStatus {
	paid := decimal.Zero
	for _, p := range payments {
		if p.DebtID == d.ID {
			paid = paid.Add(p.Amount)
		}
	}
	remaining := d.Amount.Sub(paid)
	return DebtStatus{
		Debt:      d,
		Paid:      paid,
		Remaining: remaining,
		Settled:   !remaining.IsPositive(),
	}
}

// ─── Categories ─────────────────────────────────────────────────────────────

// CategoryKind selects one of the two category sets.
type CategoryKind string

const (
	CategoryTask    CategoryKind = "task"
	CategoryExpense CategoryKind = "expense"
)

// Valid reports whether k is a known category kind.
func (k CategoryKind) Valid() bool {
	return k == CategoryTask || k == CategoryExpense
}

// DefaultTaskCategories are seeded on first init.
var DefaultTaskCategories = []string{
	"Wellness",
	"Příprava vily",
	"Pracovní hovor",
	"Marketing",
	"Administrativa",
}

// DefaultExpenseCategories are seeded on first init.
var DefaultExpenseCategories = []string{
	"Nákupy",
	"Účty",
	"Nájem",
	"Doprava",
	"Zábava",
	"Jídlo",
}

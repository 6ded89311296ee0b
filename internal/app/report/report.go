// Package report builds read-only summaries over the ledger: monthly
// deductions per person, finance totals, debt totals and today's work.
// Reports never write; they read through Source.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/domain"
)

// Source is the read side of the ledger.
type Source interface {
	ListWorkSessions(ctx context.Context, f domain.WorkSessionFilter) ([]domain.WorkSession, error)
	ListFinanceRecords(ctx context.Context) ([]domain.FinanceRecord, error)
	ListDebts(ctx context.Context) ([]domain.DebtStatus, error)
	Rates() domain.Rates
}

// Service computes reports.
type Service struct {
	src Source
}

// New creates a report service over src.
func New(src Source) *Service {
	return &Service{src: src}
}

// ─── Monthly Deductions ─────────────────────────────────────────────────────

// MonthlyDeduction is one person's work in one calendar month.
type MonthlyDeduction struct {
	Person        domain.Person   `json:"person"`
	Month         string          `json:"month"` // YYYY-MM
	Sessions      int             `json:"sessions"`
	DurationMs    int64           `json:"duration_ms"`
	Earnings      decimal.Decimal `json:"earnings"`
	DeductionRate decimal.Decimal `json:"deduction_rate"`
	Deduction     decimal.Decimal `json:"deduction"`
}

// Hours returns the month's worked hours.
func (m MonthlyDeduction) Hours() decimal.Decimal {
	return decimal.NewFromInt(m.DurationMs).Div(decimal.NewFromInt(time.Hour.Milliseconds()))
}

// Deductions summarizes every completed month, newest first. The month
// containing now is still open and left out. The deduction is the sum of
// what each session put into the budget.
func (s *Service) Deductions(ctx context.Context, now time.Time) ([]MonthlyDeduction, error) {
	sessions, err := s.src.ListWorkSessions(ctx, domain.WorkSessionFilter{})
	if err != nil {
		return nil, fmt.Errorf("deductions report: %w", err)
	}
	return MonthlyDeductions(sessions, s.src.Rates(), now), nil
}

// MonthlyDeductions groups sessions by person and start month in now's
// location.
func MonthlyDeductions(sessions []domain.WorkSession, rates domain.Rates, now time.Time) []MonthlyDeduction {
	loc := now.Location()
	current := now.Format("2006-01")

	type key struct {
		person domain.Person
		month  string
	}
	groups := make(map[key]*MonthlyDeduction)
	for _, w := range sessions {
		month := w.StartTime.In(loc).Format("2006-01")
		if month == current {
			continue
		}
		k := key{w.Person, month}
		g, ok := groups[k]
		if !ok {
			g = &MonthlyDeduction{
				Person:        w.Person,
				Month:         month,
				Earnings:      decimal.Zero,
				Deduction:     decimal.Zero,
				DeductionRate: rates.Deduction[w.Person],
			}
			groups[k] = g
		}
		g.Sessions++
		g.DurationMs += w.DurationMs
		g.Earnings = g.Earnings.Add(w.Earnings)
		g.Deduction = g.Deduction.Add(w.Deduction)
	}

	out := make([]MonthlyDeduction, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month > out[j].Month
		}
		return out[i].Person < out[j].Person
	})
	return out
}

// ─── Finance ────────────────────────────────────────────────────────────────

// Totals is income against expense in one currency.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
	Records int             `json:"records"`
}

// FinanceSummary totals finance records per currency. ExpenseByCategory
// covers CZK expenses only.
type FinanceSummary struct {
	ByCurrency        map[string]Totals          `json:"by_currency"`
	ExpenseByCategory map[string]decimal.Decimal `json:"expense_by_category"`
}

// Finance totals every finance record.
func (s *Service) Finance(ctx context.Context) (FinanceSummary, error) {
	records, err := s.src.ListFinanceRecords(ctx)
	if err != nil {
		return FinanceSummary{}, fmt.Errorf("finance report: %w", err)
	}
	return FinanceTotals(records), nil
}

// FinanceTotals totals records per currency.
func FinanceTotals(records []domain.FinanceRecord) FinanceSummary {
	sum := FinanceSummary{
		ByCurrency:        make(map[string]Totals),
		ExpenseByCategory: make(map[string]decimal.Decimal),
	}
	for _, r := range records {
		t, ok := sum.ByCurrency[r.Currency]
		if !ok {
			t = Totals{Income: decimal.Zero, Expense: decimal.Zero}
		}
		t.Records++
		switch r.Type {
		case domain.RecordIncome:
			t.Income = t.Income.Add(r.Amount)
		case domain.RecordExpense:
			t.Expense = t.Expense.Add(r.Amount)
			if r.Currency == domain.CurrencyCZK {
				cat := r.Category
				if cat == "" {
					cat = "Other"
				}
				sum.ExpenseByCategory[cat] = sum.ExpenseByCategory[cat].Add(r.Amount)
			}
		}
		t.Net = t.Income.Sub(t.Expense)
		sum.ByCurrency[r.Currency] = t
	}
	return sum
}

// ─── Debts ──────────────────────────────────────────────────────────────────

// DebtSummary totals CZK debts.
type DebtSummary struct {
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
	Active    int             `json:"active"`
	Settled   int             `json:"settled"`
}

// Debts totals every CZK debt.
func (s *Service) Debts(ctx context.Context) (DebtSummary, error) {
	debts, err := s.src.ListDebts(ctx)
	if err != nil {
		return DebtSummary{}, fmt.Errorf("debt report: %w", err)
	}
	return DebtTotals(debts), nil
}

// DebtTotals totals CZK debts; other currencies are skipped.
func DebtTotals(debts []domain.DebtStatus) DebtSummary {
	sum := DebtSummary{Total: decimal.Zero, Paid: decimal.Zero, Remaining: decimal.Zero}
	for _, d := range debts {
		if d.Debt.Currency != domain.CurrencyCZK {
			continue
		}
		sum.Total = sum.Total.Add(d.Debt.Amount)
		sum.Paid = sum.Paid.Add(d.Paid)
		if d.Settled {
			sum.Settled++
			continue
		}
		sum.Active++
		sum.Remaining = sum.Remaining.Add(d.Remaining)
	}
	return sum
}

// ─── Today ──────────────────────────────────────────────────────────────────

// DaySummary totals one day's work sessions.
type DaySummary struct {
	Date       string          `json:"date"`
	Sessions   int             `json:"sessions"`
	DurationMs int64           `json:"duration_ms"`
	Earnings   decimal.Decimal `json:"earnings"`
	Deductions decimal.Decimal `json:"deductions"`
	Net        decimal.Decimal `json:"net"`
}

// Today totals sessions that started on now's calendar day.
func (s *Service) Today(ctx context.Context, now time.Time) (DaySummary, error) {
	y, m, d := now.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	sessions, err := s.src.ListWorkSessions(ctx, domain.WorkSessionFilter{From: from, To: from.AddDate(0, 0, 1).Add(-time.Nanosecond)})
	if err != nil {
		return DaySummary{}, fmt.Errorf("today report: %w", err)
	}
	return DayTotals(sessions, from), nil
}

// DayTotals totals sessions for the day starting at day.
func DayTotals(sessions []domain.WorkSession, day time.Time) DaySummary {
	sum := DaySummary{
		Date:       day.Format("2006-01-02"),
		Earnings:   decimal.Zero,
		Deductions: decimal.Zero,
	}
	for _, w := range sessions {
		sum.Sessions++
		sum.DurationMs += w.DurationMs
		sum.Earnings = sum.Earnings.Add(w.Earnings)
		sum.Deductions = sum.Deductions.Add(w.Deduction)
	}
	sum.Net = sum.Earnings.Sub(sum.Deductions)
	return sum
}

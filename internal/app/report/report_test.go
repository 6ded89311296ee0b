package report

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/app/ledger"
	"github.com/worktracker/worktracker/internal/domain"
	"github.com/worktracker/worktracker/internal/infra/sqlite"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ws(person domain.Person, start time.Time, hours int64, earnings, deduction string) domain.WorkSession {
	return domain.WorkSession{
		Person:     person,
		StartTime:  start,
		EndTime:    start.Add(time.Duration(hours) * time.Hour),
		DurationMs: hours * time.Hour.Milliseconds(),
		Earnings:   dec(earnings),
		Deduction:  dec(deduction),
	}
}

func TestMonthlyDeductions(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	sessions := []domain.WorkSession{
		ws("maru", time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC), 2, "550", "183"),
		ws("maru", time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC), 1, "275", "92"),
		ws("marty", time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC), 1, "400", "200"),
		ws("marty", time.Date(2025, 2, 5, 9, 0, 0, 0, time.UTC), 3, "1200", "600"),
		ws("maru", time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), 8, "2200", "733"), // open month
	}

	got := MonthlyDeductions(sessions, domain.DefaultRates(), now)
	want := []struct {
		person    domain.Person
		month     string
		deduction string
		hours     string
	}{
		{"marty", "2025-02", "600", "3"},
		{"maru", "2025-01", "275", "3"},
		{"marty", "2025-01", "200", "1"},
	}
	if len(got) != len(want) {
		t.Fatalf("MonthlyDeductions() = %d rows, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		g := got[i]
		if g.Person != w.person || g.Month != w.month {
			t.Errorf("row %d = %s %s, want %s %s", i, g.Person, g.Month, w.person, w.month)
		}
		if !g.Deduction.Equal(dec(w.deduction)) {
			t.Errorf("row %d deduction = %s, want %s", i, g.Deduction, w.deduction)
		}
		if !g.Hours().Equal(dec(w.hours)) {
			t.Errorf("row %d hours = %s, want %s", i, g.Hours(), w.hours)
		}
	}
	if !got[0].DeductionRate.Equal(dec("0.5")) {
		t.Errorf("marty rate = %s, want 0.5", got[0].DeductionRate)
	}
}

func TestFinanceTotals(t *testing.T) {
	records := []domain.FinanceRecord{
		{Type: domain.RecordIncome, Amount: dec("1000"), Currency: "CZK"},
		{Type: domain.RecordExpense, Amount: dec("300"), Currency: "CZK", Category: "Jídlo"},
		{Type: domain.RecordExpense, Amount: dec("200"), Currency: "CZK"},
		{Type: domain.RecordExpense, Amount: dec("50"), Currency: "EUR", Category: "Jídlo"},
	}
	sum := FinanceTotals(records)

	czk := sum.ByCurrency["CZK"]
	if !czk.Net.Equal(dec("500")) || czk.Records != 3 {
		t.Errorf("CZK totals = %+v, want net 500 over 3 records", czk)
	}
	eur := sum.ByCurrency["EUR"]
	if !eur.Expense.Equal(dec("50")) || !eur.Net.Equal(dec("-50")) {
		t.Errorf("EUR totals = %+v", eur)
	}
	if !sum.ExpenseByCategory["Jídlo"].Equal(dec("300")) {
		t.Errorf("Jídlo = %s, want 300 (CZK only)", sum.ExpenseByCategory["Jídlo"])
	}
	if !sum.ExpenseByCategory["Other"].Equal(dec("200")) {
		t.Errorf("Other = %s, want 200", sum.ExpenseByCategory["Other"])
	}
}

func TestDebtTotals(t *testing.T) {
	debts := []domain.DebtStatus{
		{Debt: domain.Debt{Amount: dec("1000"), Currency: "CZK"}, Paid: dec("400"), Remaining: dec("600")},
		{Debt: domain.Debt{Amount: dec("200"), Currency: "CZK"}, Paid: dec("200"), Remaining: dec("0"), Settled: true},
		{Debt: domain.Debt{Amount: dec("90"), Currency: "EUR"}, Paid: dec("0"), Remaining: dec("90")},
	}
	sum := DebtTotals(debts)
	if !sum.Total.Equal(dec("1200")) || !sum.Paid.Equal(dec("600")) || !sum.Remaining.Equal(dec("600")) {
		t.Errorf("DebtTotals() = %+v", sum)
	}
	if sum.Active != 1 || sum.Settled != 1 {
		t.Errorf("active/settled = %d/%d, want 1/1", sum.Active, sum.Settled)
	}
}

func TestService_Today(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	e := ledger.New(ledger.DefaultConfig(), db, nil)
	if err := e.Init(ctx); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	now := time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC)
	add := func(start time.Time, hours int) {
		t.Helper()
		_, err := e.CreateWorkSession(ctx, ledger.WorkSessionInput{
			Person:    "maru",
			Activity:  "Marketing",
			StartTime: start,
			EndTime:   start.Add(time.Duration(hours) * time.Hour),
		})
		if err != nil {
			t.Fatalf("CreateWorkSession() error: %v", err)
		}
	}
	add(time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC), 2)
	add(time.Date(2025, 3, 15, 13, 0, 0, 0, time.UTC), 2)
	add(time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC), 1) // yesterday

	day, err := New(e).Today(ctx, now)
	if err != nil {
		t.Fatalf("Today() error: %v", err)
	}
	if day.Date != "2025-03-15" || day.Sessions != 2 {
		t.Errorf("Today() = %+v, want 2 sessions on 2025-03-15", day)
	}
	if !day.Earnings.Equal(dec("1100")) || !day.Deductions.Equal(dec("366")) || !day.Net.Equal(dec("734")) {
		t.Errorf("Today() money = %s / %s / %s", day.Earnings, day.Deductions, day.Net)
	}
}

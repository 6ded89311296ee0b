package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ─── Rates Tests ────────────────────────────────────────────────────────────

func TestRates_Earnings(t *testing.T) {
	r := DefaultRates()
	tests := []struct {
		name     string
		person   Person
		duration time.Duration
		want     string
	}{
		{"two hours maru", "maru", 2 * time.Hour, "550"},
		{"two hours marty", "marty", 2 * time.Hour, "800"},
		{"ninety minutes maru", "maru", 90 * time.Minute, "413"}, // 412.5 rounds up
		{"one minute marty", "marty", time.Minute, "7"},          // 6.67
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Earnings(tt.person, tt.duration.Milliseconds())
			if err != nil {
				t.Fatalf("Earnings() error: %v", err)
			}
			if !got.Equal(dec(tt.want)) {
				t.Errorf("Earnings() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRates_EarningsUnknownPerson(t *testing.T) {
	_, err := DefaultRates().Earnings("nobody", 1000)
	if !errors.Is(err, ErrUnknownPerson) {
		t.Fatalf("Earnings() error = %v, want ErrUnknownPerson", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("ErrUnknownPerson should match ErrValidation")
	}
}

func TestRates_DeductionFor(t *testing.T) {
	r := DefaultRates()
	if got := r.DeductionFor("maru", dec("550")); !got.Equal(dec("183")) {
		t.Errorf("DeductionFor(maru, 550) = %s, want 183", got)
	}
	if got := r.DeductionFor("marty", dec("801")); !got.Equal(dec("401")) {
		t.Errorf("DeductionFor(marty, 801) = %s, want 401", got)
	}
	if got := r.DeductionFor("nobody", dec("100")); !got.IsZero() {
		t.Errorf("DeductionFor(nobody) = %s, want 0", got)
	}
}

func TestRates_Validate(t *testing.T) {
	good := DefaultRates()
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() default rates: %v", err)
	}

	bad := good.Clone()
	bad.Deduction["maru"] = dec("1.5")
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("Validate() deduction 1.5 = %v, want ErrValidation", err)
	}

	if err := (Rates{}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("Validate() empty = %v, want ErrValidation", err)
	}
}

func TestRates_CloneIsDeep(t *testing.T) {
	r := DefaultRates()
	c := r.Clone()
	c.Hourly["maru"] = dec("1")
	if !r.Hourly["maru"].Equal(dec("275")) {
		t.Error("Clone() shares the hourly map with the original")
	}
}

func TestRates_People(t *testing.T) {
	got := DefaultRates().People()
	if len(got) != 2 || got[0] != "maru" || got[1] != "marty" {
		t.Errorf("People() = %v, want [maru marty]", got)
	}
}

// ─── Finance Tests ──────────────────────────────────────────────────────────

func TestFinanceRecord_Contribution(t *testing.T) {
	tests := []struct {
		name string
		rec  FinanceRecord
		want string
	}{
		{"czk income", FinanceRecord{Type: RecordIncome, Amount: dec("300"), Currency: "CZK"}, "300"},
		{"czk expense", FinanceRecord{Type: RecordExpense, Amount: dec("200"), Currency: "CZK"}, "-200"},
		{"eur income", FinanceRecord{Type: RecordIncome, Amount: dec("50"), Currency: "EUR"}, "0"},
		{"eur expense", FinanceRecord{Type: RecordExpense, Amount: dec("50"), Currency: "EUR"}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Contribution(); !got.Equal(dec(tt.want)) {
				t.Errorf("Contribution() = %s, want %s", got, tt.want)
			}
		})
	}
}

// The difference of contributions reproduces the income/expense transition table.
func TestFinanceRecord_ContributionTransitions(t *testing.T) {
	rec := func(typ RecordType, amt string) FinanceRecord {
		return FinanceRecord{Type: typ, Amount: dec(amt), Currency: "CZK"}
	}
	tests := []struct {
		name     string
		old, new FinanceRecord
		want     string
	}{
		{"income to income", rec(RecordIncome, "100"), rec(RecordIncome, "150"), "50"},
		{"expense to expense", rec(RecordExpense, "100"), rec(RecordExpense, "150"), "-50"},
		{"expense to income", rec(RecordExpense, "200"), rec(RecordIncome, "300"), "500"},
		{"income to expense", rec(RecordIncome, "200"), rec(RecordExpense, "300"), "-500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.new.Contribution().Sub(tt.old.Contribution())
			if !got.Equal(dec(tt.want)) {
				t.Errorf("delta = %s, want %s", got, tt.want)
			}
		})
	}
}

// ─── Debt Tests ─────────────────────────────────────────────────────────────

func TestPriority_Rank(t *testing.T) {
	if !(PriorityHigh.Rank() < PriorityMedium.Rank() && PriorityMedium.Rank() < PriorityLow.Rank()) {
		t.Error("expected high < medium < low")
	}
	if Priority("").Rank() != PriorityMedium.Rank() {
		t.Error("unset priority should rank as medium")
	}
}

func TestNewDebtStatus(t *testing.T) {
	d := Debt{ID: "d1", Amount: dec("1000")}
	payments := []DebtPayment{
		{DebtID: "d1", Amount: dec("400")},
		{DebtID: "other", Amount: dec("999")},
		{DebtID: "d1", Amount: dec("100")},
	}
	st := NewDebtStatus(d, payments)
	if !st.Paid.Equal(dec("500")) {
		t.Errorf("Paid = %s, want 500", st.Paid)
	}
	if !st.Remaining.Equal(dec("500")) {
		t.Errorf("Remaining = %s, want 500", st.Remaining)
	}
	if st.Settled {
		t.Error("Settled = true, want false")
	}

	payments = append(payments, DebtPayment{DebtID: "d1", Amount: dec("500")})
	if st := NewDebtStatus(d, payments); !st.Settled {
		t.Error("fully paid debt should be settled")
	}
}

// ─── Work Session Tests ─────────────────────────────────────────────────────

func TestWorkSessionFilter_Match(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	w := WorkSession{Person: "maru", Activity: "Marketing", StartTime: base}

	tests := []struct {
		name string
		f    WorkSessionFilter
		want bool
	}{
		{"empty filter", WorkSessionFilter{}, true},
		{"person match", WorkSessionFilter{Person: "maru"}, true},
		{"person mismatch", WorkSessionFilter{Person: "marty"}, false},
		{"activity mismatch", WorkSessionFilter{Activity: "Wellness"}, false},
		{"inside range", WorkSessionFilter{From: base.Add(-time.Hour), To: base.Add(time.Hour)}, true},
		{"before range", WorkSessionFilter{From: base.Add(time.Hour)}, false},
		{"after range", WorkSessionFilter{To: base.Add(-time.Hour)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Match(w); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWorkSession_Hours(t *testing.T) {
	w := WorkSession{DurationMs: (90 * time.Minute).Milliseconds()}
	if got := w.Hours(); !got.Equal(dec("1.5")) {
		t.Errorf("Hours() = %s, want 1.5", got)
	}
	if w.Duration() != 90*time.Minute {
		t.Errorf("Duration() = %v, want 1h30m", w.Duration())
	}
}

// ─── Error Tests ────────────────────────────────────────────────────────────

func TestStoreError_Unwrap(t *testing.T) {
	driverErr := errors.New("disk I/O error")
	err := fmt.Errorf("save session: %w", &StoreError{Op: "insert work_session", Err: driverErr})

	if !errors.Is(err, ErrStore) {
		t.Error("StoreError should match ErrStore")
	}
	if !errors.Is(err, driverErr) {
		t.Error("StoreError should match the driver error")
	}
	var se *StoreError
	if !errors.As(err, &se) || se.Op != "insert work_session" {
		t.Errorf("errors.As() = %v, want StoreError with op", se)
	}
}

func TestNotFoundSentinels(t *testing.T) {
	for _, err := range []error{ErrWorkSessionNotFound, ErrFinanceRecordNotFound, ErrDebtNotFound, ErrSettingNotFound} {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%v should match ErrNotFound", err)
		}
	}
	if !errors.Is(Invalid("amount %s", "0"), ErrValidation) {
		t.Error("Invalid() should match ErrValidation")
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	got := DateOf(time.Date(2025, 3, 10, 23, 30, 0, 0, loc))
	want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOf() = %v, want %v", got, want)
	}
}

package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/domain"
)

// ═══════════════════════════════════════════════════════════════════════════
// SQLite Store Tests
// ═══════════════════════════════════════════════════════════════════════════

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var ctx = context.Background()

// ─── Open ───────────────────────────────────────────────────────────────────

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := db.PutSetting(ctx, "theme", `"dark"`); err != nil {
		t.Fatalf("PutSetting() error: %v", err)
	}
	db.Close()

	// Migrations are idempotent and data survives.
	db2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	defer db2.Close()
	v, err := db2.GetSetting(ctx, "theme")
	if err != nil {
		t.Fatalf("GetSetting() error: %v", err)
	}
	if v != `"dark"` {
		t.Errorf("theme = %s, want \"dark\"", v)
	}
}

// ─── Work Sessions ──────────────────────────────────────────────────────────

func sampleSession(id string, person domain.Person, start time.Time) domain.WorkSession {
	return domain.WorkSession{
		ID:         id,
		Person:     person,
		Activity:   "Marketing",
		StartTime:  start,
		EndTime:    start.Add(2 * time.Hour),
		DurationMs: (2 * time.Hour).Milliseconds(),
		Earnings:   dec("550"),
		Deduction:  dec("183"),
		CreatedAt:  start.Add(2 * time.Hour),
	}
}

func TestWorkSession_CRUD(t *testing.T) {
	db := newTestDB(t)
	start := time.Date(2025, 3, 10, 9, 0, 0, 123456789, time.UTC)
	w := sampleSession("ws-1", "maru", start)
	w.Note = "client call"

	if err := db.InsertWorkSession(ctx, w); err != nil {
		t.Fatalf("InsertWorkSession() error: %v", err)
	}
	got, err := db.GetWorkSession(ctx, "ws-1")
	if err != nil {
		t.Fatalf("GetWorkSession() error: %v", err)
	}
	if !got.StartTime.Equal(start) {
		t.Errorf("StartTime = %v, want %v", got.StartTime, start)
	}
	if !got.Deduction.Equal(dec("183")) || got.Note != "client call" {
		t.Errorf("got %+v", got)
	}

	w.Deduction = dec("200")
	if err := db.UpdateWorkSession(ctx, w); err != nil {
		t.Fatalf("UpdateWorkSession() error: %v", err)
	}
	got, _ = db.GetWorkSession(ctx, "ws-1")
	if !got.Deduction.Equal(dec("200")) {
		t.Errorf("Deduction after update = %s, want 200", got.Deduction)
	}

	if err := db.DeleteWorkSession(ctx, "ws-1"); err != nil {
		t.Fatalf("DeleteWorkSession() error: %v", err)
	}
	if _, err := db.GetWorkSession(ctx, "ws-1"); !errors.Is(err, domain.ErrWorkSessionNotFound) {
		t.Errorf("GetWorkSession() after delete = %v, want ErrWorkSessionNotFound", err)
	}
	// Second delete is a no-op.
	if err := db.DeleteWorkSession(ctx, "ws-1"); err != nil {
		t.Errorf("DeleteWorkSession() missing id = %v, want nil", err)
	}
}

func TestWorkSession_UpdateMissing(t *testing.T) {
	db := newTestDB(t)
	err := db.UpdateWorkSession(ctx, sampleSession("nope", "maru", time.Now()))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateWorkSession() = %v, want ErrNotFound", err)
	}
}

func TestListWorkSessions_Filter(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, p := range []domain.Person{"maru", "marty", "maru"} {
		w := sampleSession(string(rune('a'+i)), p, base.AddDate(0, 0, i))
		if err := db.InsertWorkSession(ctx, w); err != nil {
			t.Fatalf("InsertWorkSession() error: %v", err)
		}
	}

	all, err := db.ListWorkSessions(ctx, domain.WorkSessionFilter{})
	if err != nil {
		t.Fatalf("ListWorkSessions() error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].ID != "c" {
		t.Errorf("first = %s, want newest c", all[0].ID)
	}

	maru, _ := db.ListWorkSessions(ctx, domain.WorkSessionFilter{Person: "maru"})
	if len(maru) != 2 {
		t.Errorf("maru sessions = %d, want 2", len(maru))
	}

	ranged, _ := db.ListWorkSessions(ctx, domain.WorkSessionFilter{
		From: base.AddDate(0, 0, 1),
		To:   base.AddDate(0, 0, 1),
	})
	if len(ranged) != 1 || ranged[0].ID != "b" {
		t.Errorf("ranged = %v, want [b]", ranged)
	}
}

// ─── Finance ────────────────────────────────────────────────────────────────

func TestFinanceRecord_CRUD(t *testing.T) {
	db := newTestDB(t)
	r := domain.FinanceRecord{
		ID:          "fr-1",
		Type:        domain.RecordExpense,
		Amount:      dec("199.90"),
		Currency:    "CZK",
		Category:    "Jídlo",
		Date:        day(2025, 3, 5),
		Description: "groceries",
		CreatedAt:   time.Now(),
	}
	if err := db.InsertFinanceRecord(ctx, r); err != nil {
		t.Fatalf("InsertFinanceRecord() error: %v", err)
	}
	got, err := db.GetFinanceRecord(ctx, "fr-1")
	if err != nil {
		t.Fatalf("GetFinanceRecord() error: %v", err)
	}
	if !got.Amount.Equal(dec("199.9")) || !got.Date.Equal(r.Date) || got.Category != "Jídlo" {
		t.Errorf("got %+v", got)
	}

	r.Type = domain.RecordIncome
	if err := db.UpdateFinanceRecord(ctx, r); err != nil {
		t.Fatalf("UpdateFinanceRecord() error: %v", err)
	}
	list, err := db.ListFinanceRecords(ctx)
	if err != nil {
		t.Fatalf("ListFinanceRecords() error: %v", err)
	}
	if len(list) != 1 || list[0].Type != domain.RecordIncome {
		t.Errorf("list = %+v", list)
	}

	if err := db.DeleteFinanceRecord(ctx, "fr-1"); err != nil {
		t.Fatalf("DeleteFinanceRecord() error: %v", err)
	}
	if _, err := db.GetFinanceRecord(ctx, "fr-1"); !errors.Is(err, domain.ErrFinanceRecordNotFound) {
		t.Errorf("GetFinanceRecord() = %v, want ErrFinanceRecordNotFound", err)
	}
}

// ─── Debts ──────────────────────────────────────────────────────────────────

func TestDebt_DeleteCascadesPayments(t *testing.T) {
	db := newTestDB(t)
	due := day(2025, 4, 15)
	d := domain.Debt{
		ID: "d-1", Person: "maru", Description: "loan", Amount: dec("1000"),
		Currency: "CZK", Date: day(2025, 4, 1), DueDate: &due, Priority: domain.PriorityHigh,
		CreatedAt: time.Now(),
	}
	if err := db.InsertDebt(ctx, d); err != nil {
		t.Fatalf("InsertDebt() error: %v", err)
	}
	for i, amt := range []string{"100", "250"} {
		p := domain.DebtPayment{
			ID: string(rune('p' + i)), DebtID: "d-1", Amount: dec(amt),
			Date: day(2025, 4, 2+i), CreatedAt: time.Now(),
		}
		if err := db.InsertPayment(ctx, p); err != nil {
			t.Fatalf("InsertPayment() error: %v", err)
		}
	}

	sum, err := db.SumPayments(ctx, "d-1")
	if err != nil {
		t.Fatalf("SumPayments() error: %v", err)
	}
	if !sum.Equal(dec("350")) {
		t.Errorf("SumPayments() = %s, want 350", sum)
	}

	got, _ := db.GetDebt(ctx, "d-1")
	if got.DueDate == nil || !got.DueDate.Equal(due) || got.Priority != domain.PriorityHigh {
		t.Errorf("GetDebt() = %+v", got)
	}

	if err := db.DeleteDebt(ctx, "d-1"); err != nil {
		t.Fatalf("DeleteDebt() error: %v", err)
	}
	all, _ := db.ListAllPayments(ctx)
	if len(all) != 0 {
		t.Errorf("payments after delete = %d, want 0", len(all))
	}
}

func TestInsertPayment_UnknownDebt(t *testing.T) {
	db := newTestDB(t)
	err := db.InsertPayment(ctx, domain.DebtPayment{
		ID: "p", DebtID: "missing", Amount: dec("1"), Date: day(2025, 1, 1), CreatedAt: time.Now(),
	})
	if !errors.Is(err, domain.ErrStore) {
		t.Errorf("InsertPayment() = %v, want ErrStore from foreign key", err)
	}
}

// ─── Categories & Settings ──────────────────────────────────────────────────

func TestCategories(t *testing.T) {
	db := newTestDB(t)
	for _, n := range []string{"Wellness", "Marketing", "Wellness"} {
		if err := db.AddCategory(ctx, domain.CategoryTask, n); err != nil {
			t.Fatalf("AddCategory() error: %v", err)
		}
	}
	got, _ := db.ListCategories(ctx, domain.CategoryTask)
	if len(got) != 2 || got[0] != "Wellness" || got[1] != "Marketing" {
		t.Errorf("ListCategories() = %v, want [Wellness Marketing]", got)
	}
	if exp, _ := db.ListCategories(ctx, domain.CategoryExpense); len(exp) != 0 {
		t.Errorf("expense categories = %v, want empty", exp)
	}

	db.RemoveCategory(ctx, domain.CategoryTask, "Wellness")
	got, _ = db.ListCategories(ctx, domain.CategoryTask)
	if len(got) != 1 || got[0] != "Marketing" {
		t.Errorf("after remove = %v", got)
	}
}

func TestSettings(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetSetting(ctx, "rentDay"); !errors.Is(err, domain.ErrSettingNotFound) {
		t.Errorf("GetSetting() missing = %v, want ErrSettingNotFound", err)
	}
	db.PutSetting(ctx, "rentDay", "1")
	db.PutSetting(ctx, "rentDay", "5")
	v, _ := db.GetSetting(ctx, "rentDay")
	if v != "5" {
		t.Errorf("rentDay = %s, want 5", v)
	}
	all, _ := db.ListSettings(ctx)
	if len(all) != 1 {
		t.Errorf("ListSettings() = %v", all)
	}
	db.DeleteSetting(ctx, "rentDay")
	if _, err := db.GetSetting(ctx, "rentDay"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetSetting() after delete = %v", err)
	}
}

// ─── Budget & Transactions ──────────────────────────────────────────────────

func TestBudget_DefaultsToZero(t *testing.T) {
	db := newTestDB(t)
	b, err := db.GetBudget(ctx)
	if err != nil {
		t.Fatalf("GetBudget() error: %v", err)
	}
	if !b.Balance.IsZero() {
		t.Errorf("Balance = %s, want 0", b.Balance)
	}
}

func TestBudgetEntries_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	for i, amt := range []string{"100", "-40", "7"} {
		e := domain.BudgetEntry{
			ID: string(rune('a' + i)), Source: domain.SourceManual,
			Amount: dec(amt), Balance: dec("0"), CreatedAt: time.Now(),
		}
		if err := db.AppendBudgetEntry(ctx, e); err != nil {
			t.Fatalf("AppendBudgetEntry() error: %v", err)
		}
	}
	all, _ := db.ListBudgetEntries(ctx, 0)
	if len(all) != 3 || all[0].ID != "c" {
		t.Fatalf("ListBudgetEntries(0) = %+v", all)
	}
	two, _ := db.ListBudgetEntries(ctx, 2)
	if len(two) != 2 {
		t.Errorf("ListBudgetEntries(2) len = %d, want 2", len(two))
	}
}

func TestInTx_RollbackOnError(t *testing.T) {
	db := newTestDB(t)
	boom := errors.New("boom")

	err := db.InTx(ctx, func(tx domain.Repository) error {
		if err := tx.PutBudget(ctx, domain.SharedBudget{Balance: dec("500"), LastUpdated: time.Now()}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() = %v, want boom", err)
	}
	b, _ := db.GetBudget(ctx)
	if !b.Balance.IsZero() {
		t.Errorf("Balance after rollback = %s, want 0", b.Balance)
	}

	err = db.InTx(ctx, func(tx domain.Repository) error {
		return tx.PutBudget(ctx, domain.SharedBudget{Balance: dec("500"), LastUpdated: time.Now()})
	})
	if err != nil {
		t.Fatalf("InTx() commit error: %v", err)
	}
	b, _ = db.GetBudget(ctx)
	if !b.Balance.Equal(dec("500")) {
		t.Errorf("Balance after commit = %s, want 500", b.Balance)
	}
}

func TestClearAll(t *testing.T) {
	db := newTestDB(t)
	db.InsertWorkSession(ctx, sampleSession("w", "maru", time.Now()))
	db.AddCategory(ctx, domain.CategoryExpense, "Nájem")
	db.PutBudget(ctx, domain.SharedBudget{Balance: dec("10"), LastUpdated: time.Now()})

	if err := db.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error: %v", err)
	}
	ws, _ := db.ListWorkSessions(ctx, domain.WorkSessionFilter{})
	cats, _ := db.ListCategories(ctx, domain.CategoryExpense)
	b, _ := db.GetBudget(ctx)
	if len(ws) != 0 || len(cats) != 0 || !b.Balance.IsZero() {
		t.Errorf("ClearAll left data: sessions=%d cats=%d balance=%s", len(ws), len(cats), b.Balance)
	}
}

package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/worktracker/worktracker/internal/app/ledger"
	"github.com/worktracker/worktracker/internal/domain"
	"github.com/worktracker/worktracker/internal/infra/sqlite"
)

var ctx = context.Background()

func newTestService(t *testing.T) (*Service, *ledger.Engine) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	e := ledger.New(ledger.DefaultConfig(), db, nil)
	if err := e.Init(ctx); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	start := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	// The session surplus settles part of the debt.
	due := start.AddDate(0, 1, 0)
	if _, err := e.CreateDebt(ctx, ledger.DebtInput{
		Person:      "marty",
		Description: "car",
		Amount:      decimal.RequireFromString("1000"),
		Date:        start,
		DueDate:     &due,
	}); err != nil {
		t.Fatalf("CreateDebt() error: %v", err)
	}

	if _, err := e.CreateWorkSession(ctx, ledger.WorkSessionInput{
		Person:    "maru",
		Activity:  "Marketing",
		Note:      `flyers, "big" batch`,
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	}); err != nil {
		t.Fatalf("CreateWorkSession() error: %v", err)
	}
	if _, err := e.CreateFinanceRecord(ctx, ledger.FinanceInput{
		Type:        domain.RecordExpense,
		Amount:      decimal.RequireFromString("99.5"),
		Date:        start,
		Category:    "Jídlo",
		Description: "groceries",
	}); err != nil {
		t.Fatalf("CreateFinanceRecord() error: %v", err)
	}
	s := New(e, time.UTC)
	s.SetClock(func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) })
	return s, e
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	return rows
}

func TestCSV_ColumnsAndRows(t *testing.T) {
	s, _ := newTestService(t)

	tests := []struct {
		kind   Kind
		header []string
		first  []string
	}{
		{KindSessions, SessionColumns, []string{"maru", "Marketing", "", "2025-01-10 09:00", "2025-01-10 11:00", "2.00", "550", "183", `flyers, "big" batch`}},
		{KindFinance, FinanceColumns, []string{"expense", "groceries", "99.50", "CZK", "2025-01-10", "Jídlo"}},
		{KindDebts, DebtColumns, []string{"marty", "car", "1000.00", "CZK", "2025-01-10", "2025-02-10", "183.00", "817.00", "medium", ""}},
		{KindDeductions, DeductionColumns, []string{"maru", "2025-01", "2.00", "550", "33.33", "183"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			var buf bytes.Buffer
			if err := s.CSV(ctx, &buf, tt.kind, domain.WorkSessionFilter{}); err != nil {
				t.Fatalf("CSV() error: %v", err)
			}
			rows := readCSV(t, buf.Bytes())
			if len(rows) != 2 {
				t.Fatalf("rows = %d, want header + 1", len(rows))
			}
			if strings.Join(rows[0], ",") != strings.Join(tt.header, ",") {
				t.Errorf("header = %v, want %v", rows[0], tt.header)
			}
			if strings.Join(rows[1], "|") != strings.Join(tt.first, "|") {
				t.Errorf("row = %v, want %v", rows[1], tt.first)
			}
		})
	}
}

func TestCSV_SessionFilter(t *testing.T) {
	s, _ := newTestService(t)
	var buf bytes.Buffer
	if err := s.CSV(ctx, &buf, KindSessions, domain.WorkSessionFilter{Person: "marty"}); err != nil {
		t.Fatalf("CSV() error: %v", err)
	}
	if rows := readCSV(t, buf.Bytes()); len(rows) != 1 {
		t.Errorf("filtered rows = %d, want header only", len(rows))
	}
}

func TestWorkbook_OneSheetPerExport(t *testing.T) {
	s, _ := newTestService(t)
	var buf bytes.Buffer
	if err := s.Workbook(ctx, &buf); err != nil {
		t.Fatalf("Workbook() error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != len(Kinds) {
		t.Fatalf("sheets = %v, want %v", sheets, Kinds)
	}
	for i, k := range Kinds {
		if sheets[i] != string(k) {
			t.Errorf("sheet %d = %s, want %s", i, sheets[i], k)
		}
	}
	rows, err := f.GetRows("finance")
	if err != nil {
		t.Fatalf("GetRows() error: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "groceries" {
		t.Errorf("finance sheet = %v", rows)
	}
}

func TestSnapshot_EncodeDecodeRestore(t *testing.T) {
	_, e := newTestService(t)

	snap, err := e.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, snap); err != nil {
		t.Fatalf("EncodeSnapshot() error: %v", err)
	}
	for _, key := range []string{`"work_sessions"`, `"shared_budget"`, `"version": 1`} {
		if !strings.Contains(buf.String(), key) {
			t.Errorf("snapshot JSON missing %s", key)
		}
	}

	decoded, err := DecodeSnapshot(&buf)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error: %v", err)
	}
	if err := e.Restore(ctx, decoded); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	debts, _ := e.ListDebts(ctx)
	if len(debts) != 1 || debts[0].Debt.ID != snap.Debts[0].ID || !debts[0].Paid.Equal(decimal.NewFromInt(183)) {
		t.Errorf("debts after round trip = %+v", debts)
	}
	b, _ := e.Balance(ctx)
	if !b.Balance.Equal(snap.SharedBudget.Balance) {
		t.Errorf("balance = %s, want %s", b.Balance, snap.SharedBudget.Balance)
	}
}

func TestDecodeSnapshot_Malformed(t *testing.T) {
	_, err := DecodeSnapshot(strings.NewReader(`{"version": "one"`))
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("DecodeSnapshot() = %v, want ErrValidation", err)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("debts"); err != nil || k != KindDebts {
		t.Errorf("ParseKind(debts) = %q, %v", k, err)
	}
	if _, err := ParseKind("budget"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("ParseKind(budget) = %v, want ErrValidation", err)
	}
}

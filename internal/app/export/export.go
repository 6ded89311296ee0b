// Package export writes ledger data out as CSV, as an XLSX workbook and as a
// JSON snapshot, and reads snapshots back in.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/worktracker/worktracker/internal/app/report"
	"github.com/worktracker/worktracker/internal/domain"
)

// Kind names one tabular export.
type Kind string

const (
	KindSessions   Kind = "sessions"
	KindFinance    Kind = "finance"
	KindDebts      Kind = "debts"
	KindDeductions Kind = "deductions"
)

// Kinds lists every tabular export in workbook order.
var Kinds = []Kind{KindSessions, KindFinance, KindDebts, KindDeductions}

// ParseKind validates an export name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", domain.Invalid("unknown export %q", s)
}

// Table is one export: a fixed header and its rows.
type Table struct {
	Kind   Kind
	Header []string
	Rows   [][]string
}

// Column orders are part of the file format.
var (
	SessionColumns   = []string{"person", "activity", "subcategory", "start", "end", "hours", "earnings", "deduction", "note"}
	FinanceColumns   = []string{"type", "description", "amount", "currency", "date", "category"}
	DebtColumns      = []string{"person", "description", "amount", "currency", "date", "due_date", "paid", "remaining", "priority", "creditor"}
	DeductionColumns = []string{"person", "month", "hours", "earnings", "deduction_rate_pct", "deduction"}
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "2006-01-02 15:04"
)

// ─── Tables ─────────────────────────────────────────────────────────────────

// SessionsTable renders sessions with times in loc.
func SessionsTable(sessions []domain.WorkSession, loc *time.Location) Table {
	t := Table{Kind: KindSessions, Header: SessionColumns}
	for _, w := range sessions {
		t.Rows = append(t.Rows, []string{
			string(w.Person),
			w.Activity,
			w.Subcategory,
			w.StartTime.In(loc).Format(clockLayout),
			w.EndTime.In(loc).Format(clockLayout),
			w.Hours().StringFixed(2),
			w.Earnings.StringFixed(0),
			w.Deduction.StringFixed(0),
			w.Note,
		})
	}
	return t
}

// FinanceTable renders finance records.
func FinanceTable(records []domain.FinanceRecord) Table {
	t := Table{Kind: KindFinance, Header: FinanceColumns}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			string(r.Type),
			r.Description,
			r.Amount.StringFixed(2),
			r.Currency,
			r.Date.Format(dateLayout),
			r.Category,
		})
	}
	return t
}

// DebtsTable renders debts with their paid and remaining amounts.
func DebtsTable(debts []domain.DebtStatus) Table {
	t := Table{Kind: KindDebts, Header: DebtColumns}
	for _, st := range debts {
		d := st.Debt
		due := ""
		if d.DueDate != nil {
			due = d.DueDate.Format(dateLayout)
		}
		priority := d.Priority
		if priority == "" {
			priority = domain.PriorityMedium
		}
		t.Rows = append(t.Rows, []string{
			string(d.Person),
			d.Description,
			d.Amount.StringFixed(2),
			d.Currency,
			d.Date.Format(dateLayout),
			due,
			st.Paid.StringFixed(2),
			st.Remaining.StringFixed(2),
			string(priority),
			d.Creditor,
		})
	}
	return t
}

// DeductionsTable renders the monthly deduction summary.
func DeductionsTable(rows []report.MonthlyDeduction) Table {
	t := Table{Kind: KindDeductions, Header: DeductionColumns}
	hundred := decimal.NewFromInt(100)
	for _, m := range rows {
		t.Rows = append(t.Rows, []string{
			string(m.Person),
			m.Month,
			m.Hours().StringFixed(2),
			m.Earnings.StringFixed(0),
			m.DeductionRate.Mul(hundred).StringFixed(2),
			m.Deduction.StringFixed(0),
		})
	}
	return t
}

// ─── Writers ────────────────────────────────────────────────────────────────

// WriteCSV writes the header and rows of t.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write %s csv: %w", t.Kind, err)
	}
	return nil
}

// WriteWorkbook writes one sheet per table, in order.
func WriteWorkbook(w io.Writer, tables ...Table) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		sheet := string(t.Kind)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return fmt.Errorf("name sheet %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("add sheet %s: %w", sheet, err)
		}

		if err := setRow(f, sheet, 1, t.Header); err != nil {
			return err
		}
		for r, row := range t.Rows {
			if err := setRow(f, sheet, r+2, row); err != nil {
				return err
			}
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// ─── Snapshot ───────────────────────────────────────────────────────────────

// EncodeSnapshot writes snap as indented JSON.
func EncodeSnapshot(w io.Writer, snap *domain.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a snapshot. Malformed input is a validation error.
func DecodeSnapshot(r io.Reader) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, domain.Invalid("decode snapshot: %v", err)
	}
	return &snap, nil
}

// ─── Service ────────────────────────────────────────────────────────────────

// Service assembles exports from the ledger.
type Service struct {
	src     report.Source
	reports *report.Service
	loc     *time.Location
	now     func() time.Time
}

// New creates an export service. Times are rendered in loc.
func New(src report.Source, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{src: src, reports: report.New(src), loc: loc, now: time.Now}
}

// SetClock replaces the clock that decides which month is still open.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Table builds one export. The filter applies to sessions only.
func (s *Service) Table(ctx context.Context, kind Kind, f domain.WorkSessionFilter) (Table, error) {
	switch kind {
	case KindSessions:
		sessions, err := s.src.ListWorkSessions(ctx, f)
		if err != nil {
			return Table{}, err
		}
		return SessionsTable(sessions, s.loc), nil
	case KindFinance:
		records, err := s.src.ListFinanceRecords(ctx)
		if err != nil {
			return Table{}, err
		}
		return FinanceTable(records), nil
	case KindDebts:
		debts, err := s.src.ListDebts(ctx)
		if err != nil {
			return Table{}, err
		}
		return DebtsTable(debts), nil
	case KindDeductions:
		rows, err := s.reports.Deductions(ctx, s.now().In(s.loc))
		if err != nil {
			return Table{}, err
		}
		return DeductionsTable(rows), nil
	}
	return Table{}, domain.Invalid("unknown export %q", kind)
}

// CSV writes one export as CSV.
func (s *Service) CSV(ctx context.Context, w io.Writer, kind Kind, f domain.WorkSessionFilter) error {
	t, err := s.Table(ctx, kind, f)
	if err != nil {
		return fmt.Errorf("export %s: %w", kind, err)
	}
	return WriteCSV(w, t)
}

// Workbook writes every export into one XLSX workbook.
func (s *Service) Workbook(ctx context.Context, w io.Writer) error {
	tables := make([]Table, 0, len(Kinds))
	for _, k := range Kinds {
		t, err := s.Table(ctx, k, domain.WorkSessionFilter{})
		if err != nil {
			return fmt.Errorf("export %s: %w", k, err)
		}
		tables = append(tables, t)
	}
	return WriteWorkbook(w, tables...)
}

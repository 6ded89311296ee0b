package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Shared Budget ──────────────────────────────────────────────────────────

// SharedBudget is the single running CZK balance shared by both people.
// A negative balance is a collective shortfall.
type SharedBudget struct {
	Balance     decimal.Decimal `json:"balance"`
	LastUpdated time.Time       `json:"last_updated"`
}

// EntrySource names what produced a balance change.
type EntrySource string

const (
	SourceWorkSession   EntrySource = "work_session"
	SourceFinanceRecord EntrySource = "finance_record"
	SourceDebtPayment   EntrySource = "debt_payment"
	SourceRent          EntrySource = "rent"
	SourceManual        EntrySource = "manual"
	SourceRestore       EntrySource = "restore"
)

// BudgetEntry is one line of the budget journal. The stored balance
// always equals the sum of all entry amounts.
type BudgetEntry struct {
	ID        string          `json:"id"`
	Source    EntrySource     `json:"source"`
	RefID     string          `json:"ref_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// ─── Settings ───────────────────────────────────────────────────────────────

// Well-known setting keys. Values are stored as JSON.
const (
	SettingRates          = "rates"
	SettingDeductionRates = "deductionRates"
	SettingRentAmount     = "rentAmount"
	SettingRentDay        = "rentDay"
	SettingTheme          = "theme"
	SettingInitialized    = "initialized"
	SettingTimerState     = "timerState"
)

// ─── Snapshot ───────────────────────────────────────────────────────────────

// SnapshotVersion is written into every exported snapshot.
const SnapshotVersion = 1

// Snapshot is a full backup of every collection.
type Snapshot struct {
	Version           int                        `json:"version"`
	CreatedAt         time.Time                  `json:"created_at"`
	WorkSessions      []WorkSession              `json:"work_sessions"`
	FinanceRecords    []FinanceRecord            `json:"finance_records"`
	TaskCategories    []string                   `json:"task_categories"`
	ExpenseCategories []string                   `json:"expense_categories"`
	Debts             []Debt                     `json:"debts"`
	DebtPayments      []DebtPayment              `json:"debt_payments"`
	Settings          map[string]json.RawMessage `json:"settings"`
	SharedBudget      SharedBudget               `json:"shared_budget"`
}

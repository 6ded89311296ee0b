package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Repository is the persistent store for every collection.
// Get* methods return a *NotFound sentinel when the id is missing.
// Delete* methods are no-ops for missing ids.
type Repository interface {
	InsertWorkSession(ctx context.Context, w WorkSession) error
	UpdateWorkSession(ctx context.Context, w WorkSession) error
	DeleteWorkSession(ctx context.Context, id string) error
	GetWorkSession(ctx context.Context, id string) (*WorkSession, error)
	ListWorkSessions(ctx context.Context, f WorkSessionFilter) ([]WorkSession, error)

	InsertFinanceRecord(ctx context.Context, r FinanceRecord) error
	UpdateFinanceRecord(ctx context.Context, r FinanceRecord) error
	DeleteFinanceRecord(ctx context.Context, id string) error
	GetFinanceRecord(ctx context.Context, id string) (*FinanceRecord, error)
	ListFinanceRecords(ctx context.Context) ([]FinanceRecord, error)

	InsertDebt(ctx context.Context, d Debt) error
	UpdateDebt(ctx context.Context, d Debt) error
	DeleteDebt(ctx context.Context, id string) error // cascades to payments
	GetDebt(ctx context.Context, id string) (*Debt, error)
	ListDebts(ctx context.Context) ([]Debt, error)

	InsertPayment(ctx context.Context, p DebtPayment) error
	ListPayments(ctx context.Context, debtID string) ([]DebtPayment, error)
	ListAllPayments(ctx context.Context) ([]DebtPayment, error)
	SumPayments(ctx context.Context, debtID string) (decimal.Decimal, error)

	ListCategories(ctx context.Context, kind CategoryKind) ([]string, error)
	AddCategory(ctx context.Context, kind CategoryKind, name string) error
	RemoveCategory(ctx context.Context, kind CategoryKind, name string) error

	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
	ListSettings(ctx context.Context) (map[string]string, error)

	GetBudget(ctx context.Context) (SharedBudget, error)
	PutBudget(ctx context.Context, b SharedBudget) error
	AppendBudgetEntry(ctx context.Context, e BudgetEntry) error
	ListBudgetEntries(ctx context.Context, limit int) ([]BudgetEntry, error)

	// ClearAll empties every collection.
	ClearAll(ctx context.Context) error
}

// Store is a Repository that can run a function inside one transaction.
// If fn returns an error nothing it wrote is kept.
type Store interface {
	Repository
	InTx(ctx context.Context, fn func(tx Repository) error) error
}

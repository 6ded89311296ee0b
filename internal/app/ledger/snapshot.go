package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/domain"
)

// ─── Backup & Restore ───────────────────────────────────────────────────────

// Snapshot reads every collection in one transaction.
func (e *Engine) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{Version: domain.SnapshotVersion, CreatedAt: e.now().UTC()}
	err := e.store.InTx(ctx, func(tx domain.Repository) error {
		var err error
		if snap.WorkSessions, err = tx.ListWorkSessions(ctx, domain.WorkSessionFilter{}); err != nil {
			return err
		}
		if snap.FinanceRecords, err = tx.ListFinanceRecords(ctx); err != nil {
			return err
		}
		if snap.TaskCategories, err = tx.ListCategories(ctx, domain.CategoryTask); err != nil {
			return err
		}
		if snap.ExpenseCategories, err = tx.ListCategories(ctx, domain.CategoryExpense); err != nil {
			return err
		}
		if snap.Debts, err = tx.ListDebts(ctx); err != nil {
			return err
		}
		if snap.DebtPayments, err = tx.ListAllPayments(ctx); err != nil {
			return err
		}
		settings, err := tx.ListSettings(ctx)
		if err != nil {
			return err
		}
		snap.Settings = make(map[string]json.RawMessage, len(settings))
		for k, v := range settings {
			snap.Settings[k] = json.RawMessage(v)
		}
		snap.SharedBudget, err = tx.GetBudget(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return snap, nil
}

// Restore replaces every collection with the snapshot in one transaction.
// Stored deductions and balances are taken as-is; no deltas are replayed and
// the budget journal restarts with a single restore entry.
func (e *Engine) Restore(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return domain.Invalid("empty snapshot")
	}
	if snap.Version < 1 || snap.Version > domain.SnapshotVersion {
		return domain.Invalid("unsupported snapshot version %d", snap.Version)
	}
	for k, v := range snap.Settings {
		if !json.Valid(v) {
			return domain.Invalid("setting %q is not valid JSON", k)
		}
	}
	if err := checkSnapshotPayments(snap); err != nil {
		return err
	}

	_, err := e.mutate(ctx, "store.restored", func(lt *ledgerTx) error {
		repo, ctx := lt.repo, lt.ctx
		if err := repo.ClearAll(ctx); err != nil {
			return err
		}
		for _, w := range snap.WorkSessions {
			if err := repo.InsertWorkSession(ctx, w); err != nil {
				return err
			}
		}
		for _, r := range snap.FinanceRecords {
			if err := repo.InsertFinanceRecord(ctx, r); err != nil {
				return err
			}
		}
		for _, name := range snap.TaskCategories {
			if err := repo.AddCategory(ctx, domain.CategoryTask, name); err != nil {
				return err
			}
		}
		for _, name := range snap.ExpenseCategories {
			if err := repo.AddCategory(ctx, domain.CategoryExpense, name); err != nil {
				return err
			}
		}
		for _, d := range snap.Debts {
			if err := repo.InsertDebt(ctx, d); err != nil {
				return err
			}
		}
		for _, p := range snap.DebtPayments {
			if err := repo.InsertPayment(ctx, p); err != nil {
				return err
			}
		}
		for k, v := range snap.Settings {
			if err := repo.PutSetting(ctx, k, string(v)); err != nil {
				return err
			}
		}
		// A restored store is never re-seeded by Init.
		if err := putJSON(ctx, repo, domain.SettingInitialized, true); err != nil {
			return err
		}

		budget := snap.SharedBudget
		if budget.LastUpdated.IsZero() {
			budget.LastUpdated = lt.now
		}
		if err := repo.PutBudget(ctx, budget); err != nil {
			return err
		}
		return repo.AppendBudgetEntry(ctx, domain.BudgetEntry{
			ID:        e.newID(),
			Source:    domain.SourceRestore,
			Amount:    budget.Balance,
			Balance:   budget.Balance,
			CreatedAt: lt.now,
		})
	})
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	e.log.Info("store restored from snapshot",
		"sessions", len(snap.WorkSessions),
		"records", len(snap.FinanceRecords),
		"debts", len(snap.Debts),
		"balance", snap.SharedBudget.Balance.String(),
	)
	return e.loadRates(ctx)
}

// checkSnapshotPayments rejects payments for unknown debts and debts paid
// beyond their amount.
func checkSnapshotPayments(snap *domain.Snapshot) error {
	amounts := make(map[string]decimal.Decimal, len(snap.Debts))
	for _, d := range snap.Debts {
		amounts[d.ID] = d.Amount
	}
	paid := make(map[string]decimal.Decimal, len(amounts))
	for _, p := range snap.DebtPayments {
		amount, ok := amounts[p.DebtID]
		if !ok {
			return domain.Invalid("payment %s references unknown debt %s", p.ID, p.DebtID)
		}
		paid[p.DebtID] = paid[p.DebtID].Add(p.Amount)
		if paid[p.DebtID].GreaterThan(amount) {
			return domain.Invalid("debt %s paid %s of %s", p.DebtID, paid[p.DebtID], amount)
		}
	}
	return nil
}

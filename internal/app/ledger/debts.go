package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/domain"
	"github.com/worktracker/worktracker/internal/infra/validate"
)

// ─── Debts ──────────────────────────────────────────────────────────────────

// DebtInput describes a debt to create or replace. An empty currency means CZK.
type DebtInput struct {
	Person      domain.Person   `json:"person" validate:"required,notblank"`
	Description string          `json:"description" validate:"required,notblank"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Currency    string          `json:"currency" validate:"omitempty,alpha,len=3"`
	Date        time.Time       `json:"date" validate:"required"`
	DueDate     *time.Time      `json:"due_date"`
	Creditor    string          `json:"creditor"`
	Priority    domain.Priority `json:"priority" validate:"omitempty,oneof=high medium low"`
}

func buildDebt(in DebtInput) (domain.Debt, error) {
	if err := validate.Struct(in); err != nil {
		return domain.Debt{}, err
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = domain.CurrencyCZK
	}
	d := domain.Debt{
		Person:      in.Person,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Currency:    currency,
		Date:        domain.DateOf(in.Date),
		Creditor:    in.Creditor,
		Priority:    in.Priority,
	}
	if in.DueDate != nil {
		due := domain.DateOf(*in.DueDate)
		d.DueDate = &due
	}
	return d, nil
}

// CreateDebt stores a new debt. The budget is untouched; surplus reaches the
// debt on the next positive delta or an explicit Settle.
func (e *Engine) CreateDebt(ctx context.Context, in DebtInput) (*domain.Debt, error) {
	d, err := buildDebt(in)
	if err != nil {
		return nil, err
	}
	_, err = e.mutate(ctx, "debt.created", func(lt *ledgerTx) error {
		return lt.insertDebt(&d)
	})
	if err != nil {
		return nil, fmt.Errorf("create debt: %w", err)
	}
	return &d, nil
}

func (lt *ledgerTx) insertDebt(d *domain.Debt) error {
	d.ID = lt.e.newID()
	d.CreatedAt = lt.now
	lt.id = d.ID
	return lt.repo.InsertDebt(lt.ctx, *d)
}

// UpdateDebt replaces a debt. The new amount may not be below what has
// already been paid.
func (e *Engine) UpdateDebt(ctx context.Context, id string, in DebtInput) (*domain.Debt, error) {
	d, err := buildDebt(in)
	if err != nil {
		return nil, err
	}
	_, err = e.mutate(ctx, "debt.updated", func(lt *ledgerTx) error {
		old, err := lt.repo.GetDebt(lt.ctx, id)
		if err != nil {
			return err
		}
		paid, err := lt.repo.SumPayments(lt.ctx, id)
		if err != nil {
			return err
		}
		if d.Amount.LessThan(paid) {
			return fmt.Errorf("%w: paid %s", domain.ErrAmountBelowPaid, paid)
		}
		d.ID = id
		d.CreatedAt = old.CreatedAt
		lt.id = id
		return lt.repo.UpdateDebt(lt.ctx, d)
	})
	if err != nil {
		return nil, fmt.Errorf("update debt: %w", err)
	}
	return &d, nil
}

// DeleteDebt removes a debt and every payment made on it. Money already paid
// is not returned to the budget. Deleting a missing id does nothing.
func (e *Engine) DeleteDebt(ctx context.Context, id string) error {
	_, err := e.mutate(ctx, "debt.deleted", func(lt *ledgerTx) error {
		lt.id = id
		if _, err := lt.repo.GetDebt(lt.ctx, id); err != nil {
			if isNotFound(err) {
				lt.quiet = true
				return nil
			}
			return err
		}
		return lt.repo.DeleteDebt(lt.ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	return nil
}

// GetDebt returns a debt with its paid and remaining amounts.
func (e *Engine) GetDebt(ctx context.Context, id string) (*domain.DebtStatus, error) {
	d, err := e.store.GetDebt(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := e.store.ListPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	st := domain.NewDebtStatus(*d, payments)
	return &st, nil
}

// ListDebts returns every debt with its paid and remaining amounts.
func (e *Engine) ListDebts(ctx context.Context) ([]domain.DebtStatus, error) {
	debts, err := e.store.ListDebts(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := e.store.ListAllPayments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DebtStatus, 0, len(debts))
	for _, d := range debts {
		out = append(out, domain.NewDebtStatus(d, payments))
	}
	return out, nil
}

// ─── Payments ───────────────────────────────────────────────────────────────

// PaymentInput describes a manual payment on a debt.
type PaymentInput struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Date   time.Time       `json:"date" validate:"required"`
	Note   string          `json:"note"`
}

// RecordPayment records a manual payment. Manual payments are made outside
// the shared budget, so the balance is untouched. The amount may not exceed
// what remains on the debt.
func (e *Engine) RecordPayment(ctx context.Context, debtID string, in PaymentInput) (*domain.DebtPayment, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	p := domain.DebtPayment{
		DebtID: debtID,
		Amount: in.Amount,
		Date:   domain.DateOf(in.Date),
		Note:   in.Note,
	}
	_, err := e.mutate(ctx, "debt_payment.created", func(lt *ledgerTx) error {
		d, err := lt.repo.GetDebt(lt.ctx, debtID)
		if err != nil {
			return err
		}
		paid, err := lt.repo.SumPayments(lt.ctx, debtID)
		if err != nil {
			return err
		}
		remaining := d.Amount.Sub(paid)
		if p.Amount.GreaterThan(remaining) {
			return fmt.Errorf("%w: remaining %s", domain.ErrPaymentExceedsDebt, remaining)
		}
		p.ID = e.newID()
		p.CreatedAt = lt.now
		lt.id = p.ID
		return lt.repo.InsertPayment(lt.ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	return &p, nil
}

// ListPayments returns the payments on one debt, oldest first.
func (e *Engine) ListPayments(ctx context.Context, debtID string) ([]domain.DebtPayment, error) {
	if _, err := e.store.GetDebt(ctx, debtID); err != nil {
		return nil, err
	}
	return e.store.ListPayments(ctx, debtID)
}

// ListAllPayments returns every payment, oldest first.
func (e *Engine) ListAllPayments(ctx context.Context) ([]domain.DebtPayment, error) {
	return e.store.ListAllPayments(ctx)
}

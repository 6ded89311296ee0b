package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/domain"
	"github.com/worktracker/worktracker/internal/infra/dsa"
)

// ─── Debt Settlement ────────────────────────────────────────────────────────
// Surplus in the shared budget is paid into active CZK debts.
//
// Order: priority (high, medium, low; unset counts as medium), then oldest
// date, then oldest creation time, then id. Each debt receives
// min(remaining, budget left). Payments go through adjust, so paying a debt
// never re-enters settlement.

// settle pays down active debts while the balance is positive.
func (lt *ledgerTx) settle() error {
	b, err := lt.repo.GetBudget(lt.ctx)
	if err != nil {
		return err
	}
	if !b.Balance.IsPositive() {
		return nil
	}

	queue, err := lt.activeDebts()
	if err != nil {
		return err
	}

	left := b.Balance
	for left.IsPositive() {
		item, ok := queue.Pop()
		if !ok {
			break
		}
		status := item.Value.(domain.DebtStatus)
		pay := decimal.Min(status.Remaining, left)
		if !pay.IsPositive() {
			continue
		}

		payment := domain.DebtPayment{
			ID:        lt.e.newID(),
			DebtID:    status.Debt.ID,
			Amount:    pay,
			Date:      domain.DateOf(lt.now),
			Note:      lt.e.config.AutoPaymentNote,
			Auto:      true,
			CreatedAt: lt.now,
		}
		if err := lt.repo.InsertPayment(lt.ctx, payment); err != nil {
			return err
		}
		if _, err := lt.adjust(pay.Neg(), domain.SourceDebtPayment, payment.ID); err != nil {
			return err
		}
		left = left.Sub(pay)
		lt.payments = append(lt.payments, payment)

		lt.e.log.Info("automatic debt payment",
			"debt", status.Debt.ID,
			"description", status.Debt.Description,
			"amount", pay.String(),
			"remaining", status.Remaining.Sub(pay).String(),
		)
	}
	return nil
}

// activeDebts loads every CZK debt with a positive remaining amount into a
// queue in payment order.
func (lt *ledgerTx) activeDebts() (*dsa.Queue, error) {
	debts, err := lt.repo.ListDebts(lt.ctx)
	if err != nil {
		return nil, err
	}
	payments, err := lt.repo.ListAllPayments(lt.ctx)
	if err != nil {
		return nil, err
	}

	queue := dsa.NewQueue(len(debts))
	for _, d := range debts {
		if d.Currency != domain.CurrencyCZK {
			continue
		}
		status := domain.NewDebtStatus(d, payments)
		if !status.Remaining.IsPositive() {
			continue
		}
		queue.Push(dsa.HeapItem{
			Key:       d.ID,
			Rank:      d.Priority.Rank(),
			Date:      d.Date,
			CreatedAt: d.CreatedAt,
			Value:     status,
		})
	}
	return queue, nil
}

package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/domain"
	"github.com/worktracker/worktracker/internal/infra/observability"
	"github.com/worktracker/worktracker/internal/infra/validate"
)

// ─── Rent Scheduler ─────────────────────────────────────────────────────────
// One state machine per calendar month:
//
//   pending  day < rent day, nothing resolved yet
//   due      day == rent day; CheckRent pays from the budget or books a debt
//   overdue  day > rent day and nothing resolved; no automatic action
//   paid     rentPaid_{y}_{m} is set
//   debt     rentDebt_{y}_{m} holds the id of the booked debt
//
// A rent day past the end of a short month falls on its last day.

// RentState is the state of one month's rent.
type RentState string

const (
	RentPending RentState = "pending"
	RentDue     RentState = "due"
	RentOverdue RentState = "overdue"
	RentPaid    RentState = "paid"
	RentDebt    RentState = "debt"
)

// RentAction is what a CheckRent call did.
type RentAction string

const (
	RentActionNone RentAction = "none"
	RentActionPaid RentAction = "paid"
	RentActionDebt RentAction = "debt"
)

const (
	rentPaidPrefix = "rentPaid_"
	rentDebtPrefix = "rentDebt_"
	rentCategory   = "Nájem"
)

// RentSettings is the configured rent.
type RentSettings struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Day    int             `json:"day" validate:"gte=1,lte=31"`
}

// RentStatus reports one month's rent.
type RentStatus struct {
	State       RentState       `json:"state"`
	Year        int             `json:"year"`
	Month       time.Month      `json:"month"`
	Amount      decimal.Decimal `json:"amount"`
	Day         int             `json:"day"`
	DueDate     time.Time       `json:"due_date"`
	NextDueDate time.Time       `json:"next_due_date"`
	Action      RentAction      `json:"action"`
	RecordID    string          `json:"record_id,omitempty"`
	DebtID      string          `json:"debt_id,omitempty"`
}

func rentPaidKey(y int, m time.Month) string {
	return fmt.Sprintf("%s%d_%d", rentPaidPrefix, y, int(m))
}
func rentDebtKey(y int, m time.Month) string {
	return fmt.Sprintf("%s%d_%d", rentDebtPrefix, y, int(m))
}

// dueDate returns the rent day of the month, clamped to the month's length.
func dueDate(y int, m time.Month, day int) time.Time {
	last := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// RentSettings returns the configured rent amount and day.
func (e *Engine) RentSettings(ctx context.Context) (RentSettings, error) {
	return readRentSettings(ctx, e.store)
}

func readRentSettings(ctx context.Context, repo domain.Repository) (RentSettings, error) {
	rs := RentSettings{Amount: decimal.NewFromInt(DefaultRentAmount), Day: DefaultRentDay}
	if err := getJSON(ctx, repo, domain.SettingRentAmount, &rs.Amount); err != nil && !isNotFound(err) {
		return rs, err
	}
	if err := getJSON(ctx, repo, domain.SettingRentDay, &rs.Day); err != nil && !isNotFound(err) {
		return rs, err
	}
	return rs, nil
}

// SetRentSettings persists the rent amount and day.
func (e *Engine) SetRentSettings(ctx context.Context, rs RentSettings) error {
	if err := validate.Struct(rs); err != nil {
		return err
	}
	_, err := e.mutate(ctx, "rent.settings_updated", func(lt *ledgerTx) error {
		if err := putJSON(lt.ctx, lt.repo, domain.SettingRentAmount, rs.Amount); err != nil {
			return err
		}
		return putJSON(lt.ctx, lt.repo, domain.SettingRentDay, rs.Day)
	})
	if err != nil {
		return fmt.Errorf("set rent settings: %w", err)
	}
	return nil
}

// RentStatus reports the rent state for the month containing now without
// acting on it.
func (e *Engine) RentStatus(ctx context.Context, now time.Time) (RentStatus, error) {
	return rentStatus(ctx, e.store, now)
}

func rentStatus(ctx context.Context, repo domain.Repository, now time.Time) (RentStatus, error) {
	rs, err := readRentSettings(ctx, repo)
	if err != nil {
		return RentStatus{}, err
	}
	y, m, d := now.Date()
	due := dueDate(y, m, rs.Day)
	st := RentStatus{
		Year:    y,
		Month:   m,
		Amount:  rs.Amount,
		Day:     rs.Day,
		DueDate: due,
		Action:  RentActionNone,
	}

	var paid bool
	if err := getJSON(ctx, repo, rentPaidKey(y, m), &paid); err != nil && !isNotFound(err) {
		return st, err
	}
	var debtID string
	if err := getJSON(ctx, repo, rentDebtKey(y, m), &debtID); err != nil && !isNotFound(err) {
		return st, err
	}

	switch {
	case paid:
		st.State = RentPaid
	case debtID != "":
		st.State = RentDebt
		st.DebtID = debtID
	case d < due.Day():
		st.State = RentPending
	case d == due.Day():
		st.State = RentDue
	default:
		st.State = RentOverdue
	}

	st.NextDueDate = due
	if st.State != RentPending && st.State != RentDue {
		st.NextDueDate = dueDate(y, m+1, rs.Day)
	}
	return st, nil
}

// CheckRent resolves the current month's rent when today is the rent day.
// If the budget covers the rent it is paid through an expense record and the
// month is flagged paid; otherwise a high-priority debt is booked once for the
// month. Any other state is reported without action, so repeated calls are
// safe.
func (e *Engine) CheckRent(ctx context.Context, now time.Time) (RentStatus, error) {
	var st RentStatus
	_, err := e.mutate(ctx, "rent.checked", func(lt *ledgerTx) error {
		var err error
		st, err = rentStatus(lt.ctx, lt.repo, now)
		if err != nil {
			return err
		}
		if st.State != RentDue {
			lt.quiet = true
			return nil
		}

		b, err := lt.repo.GetBudget(lt.ctx)
		if err != nil {
			return err
		}
		label := fmt.Sprintf("%s %02d/%d", rentCategory, int(st.Month), st.Year)

		if b.Balance.GreaterThanOrEqual(st.Amount) {
			rec := domain.FinanceRecord{
				Type:        domain.RecordExpense,
				Amount:      st.Amount,
				Currency:    domain.CurrencyCZK,
				Category:    rentCategory,
				Date:        domain.DateOf(now),
				Description: label,
			}
			lt.kind = "rent.paid"
			if err := lt.insertFinanceRecord(&rec, domain.SourceRent); err != nil {
				return err
			}
			if err := putJSON(lt.ctx, lt.repo, rentPaidKey(st.Year, st.Month), true); err != nil {
				return err
			}
			st.State, st.Action, st.RecordID = RentPaid, RentActionPaid, rec.ID
		} else {
			due := st.DueDate.Add(e.config.RentGrace)
			debt := domain.Debt{
				Person:      e.config.RentDebtor,
				Description: label,
				Amount:      st.Amount,
				Currency:    domain.CurrencyCZK,
				Date:        domain.DateOf(now),
				DueDate:     &due,
				Creditor:    e.config.Landlord,
				Priority:    domain.PriorityHigh,
			}
			lt.kind = "rent.debt"
			if err := lt.insertDebt(&debt); err != nil {
				return err
			}
			if err := putJSON(lt.ctx, lt.repo, rentDebtKey(st.Year, st.Month), debt.ID); err != nil {
				return err
			}
			st.State, st.Action, st.DebtID = RentDebt, RentActionDebt, debt.ID
		}
		st.NextDueDate = dueDate(st.Year, st.Month+1, st.Day)
		return nil
	})
	if err != nil {
		return RentStatus{}, fmt.Errorf("check rent: %w", err)
	}

	observability.RentOutcomes.WithLabelValues(string(st.Action)).Inc()
	if st.Action != RentActionNone {
		e.log.Info("rent resolved", "month", fmt.Sprintf("%d-%02d", st.Year, int(st.Month)),
			"action", st.Action, "amount", st.Amount.String())
	}
	return st, nil
}

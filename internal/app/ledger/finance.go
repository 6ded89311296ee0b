package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/domain"
	"github.com/worktracker/worktracker/internal/infra/validate"
)

// ─── Finance Records ────────────────────────────────────────────────────────

// FinanceInput describes a finance record to create or replace.
// An empty currency means CZK.
type FinanceInput struct {
	Type        domain.RecordType `json:"type" validate:"required,oneof=income expense"`
	Amount      decimal.Decimal   `json:"amount" validate:"gt=0"`
	Currency    string            `json:"currency" validate:"omitempty,alpha,len=3"`
	Category    string            `json:"category"`
	Date        time.Time         `json:"date" validate:"required"`
	Description string            `json:"description"`
}

func buildFinanceRecord(in FinanceInput) (domain.FinanceRecord, error) {
	if err := validate.Struct(in); err != nil {
		return domain.FinanceRecord{}, err
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = domain.CurrencyCZK
	}
	return domain.FinanceRecord{
		Type:        in.Type,
		Amount:      in.Amount,
		Currency:    currency,
		Category:    in.Category,
		Date:        domain.DateOf(in.Date),
		Description: in.Description,
	}, nil
}

// CreateFinanceRecord stores a record and applies its contribution.
// Only CZK records move the balance.
func (e *Engine) CreateFinanceRecord(ctx context.Context, in FinanceInput) (*domain.FinanceRecord, error) {
	r, err := buildFinanceRecord(in)
	if err != nil {
		return nil, err
	}
	_, err = e.mutate(ctx, "finance_record.created", func(lt *ledgerTx) error {
		return lt.insertFinanceRecord(&r, domain.SourceFinanceRecord)
	})
	if err != nil {
		return nil, fmt.Errorf("create finance record: %w", err)
	}
	return &r, nil
}

// insertFinanceRecord assigns an id, stores r and applies its contribution
// under the given journal source.
func (lt *ledgerTx) insertFinanceRecord(r *domain.FinanceRecord, source domain.EntrySource) error {
	r.ID = lt.e.newID()
	r.CreatedAt = lt.now
	lt.id = r.ID
	if err := lt.repo.InsertFinanceRecord(lt.ctx, *r); err != nil {
		return err
	}
	return lt.apply(r.Contribution(), source, r.ID)
}

// UpdateFinanceRecord replaces a record. The balance moves by the difference
// between the new and the old contribution, which covers type and currency
// changes alike.
func (e *Engine) UpdateFinanceRecord(ctx context.Context, id string, in FinanceInput) (*domain.FinanceRecord, error) {
	r, err := buildFinanceRecord(in)
	if err != nil {
		return nil, err
	}
	_, err = e.mutate(ctx, "finance_record.updated", func(lt *ledgerTx) error {
		old, err := lt.repo.GetFinanceRecord(lt.ctx, id)
		if err != nil {
			return err
		}
		r.ID = id
		r.CreatedAt = old.CreatedAt
		lt.id = id
		if err := lt.repo.UpdateFinanceRecord(lt.ctx, r); err != nil {
			return err
		}
		return lt.apply(r.Contribution().Sub(old.Contribution()), domain.SourceFinanceRecord, id)
	})
	if err != nil {
		return nil, fmt.Errorf("update finance record: %w", err)
	}
	return &r, nil
}

// DeleteFinanceRecord removes a record and reverses its contribution.
// Deleting a missing id does nothing.
func (e *Engine) DeleteFinanceRecord(ctx context.Context, id string) error {
	_, err := e.mutate(ctx, "finance_record.deleted", func(lt *ledgerTx) error {
		lt.id = id
		old, err := lt.repo.GetFinanceRecord(lt.ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			lt.quiet = true
			return nil
		}
		if err != nil {
			return err
		}
		if err := lt.repo.DeleteFinanceRecord(lt.ctx, id); err != nil {
			return err
		}
		return lt.apply(old.Contribution().Neg(), domain.SourceFinanceRecord, id)
	})
	if err != nil {
		return fmt.Errorf("delete finance record: %w", err)
	}
	return nil
}

// GetFinanceRecord returns one record.
func (e *Engine) GetFinanceRecord(ctx context.Context, id string) (*domain.FinanceRecord, error) {
	return e.store.GetFinanceRecord(ctx, id)
}

// ListFinanceRecords returns every record, newest first.
func (e *Engine) ListFinanceRecords(ctx context.Context) ([]domain.FinanceRecord, error) {
	return e.store.ListFinanceRecords(ctx)
}

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/domain"
)

// ─── Defaults ───────────────────────────────────────────────────────────────

const (
	DefaultRentAmount = 24500
	DefaultRentDay    = 1
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// ─── Init ───────────────────────────────────────────────────────────────────

// Init seeds a fresh store on first run (categories, rates, rent settings,
// a zero budget) and loads the rates. It is safe to call on every start.
func (e *Engine) Init(ctx context.Context) error {
	_, err := e.mutate(ctx, "store.initialized", func(lt *ledgerTx) error {
		if _, err := lt.repo.GetSetting(lt.ctx, domain.SettingInitialized); err == nil {
			lt.quiet = true
			return nil
		} else if !isNotFound(err) {
			return err
		}

		if err := e.seed(lt); err != nil {
			return err
		}
		e.log.Info("store initialized with defaults")
		return nil
	})
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return e.loadRates(ctx)
}

// Reset wipes every collection and seeds the defaults again, as on a first
// run. Rates fall back to the configured seed rates.
func (e *Engine) Reset(ctx context.Context) error {
	_, err := e.mutate(ctx, "store.reset", func(lt *ledgerTx) error {
		if err := lt.repo.ClearAll(lt.ctx); err != nil {
			return err
		}
		return e.seed(lt)
	})
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	e.log.Warn("store reset to defaults")
	return e.loadRates(ctx)
}

// seed writes the first-run defaults: categories, rates, rent settings and
// a zero budget.
func (e *Engine) seed(lt *ledgerTx) error {
	for _, name := range domain.DefaultTaskCategories {
		if err := lt.repo.AddCategory(lt.ctx, domain.CategoryTask, name); err != nil {
			return err
		}
	}
	for _, name := range domain.DefaultExpenseCategories {
		if err := lt.repo.AddCategory(lt.ctx, domain.CategoryExpense, name); err != nil {
			return err
		}
	}
	if err := putRates(lt.ctx, lt.repo, e.seedRates()); err != nil {
		return err
	}
	seeds := map[string]any{
		domain.SettingRentAmount:  DefaultRentAmount,
		domain.SettingRentDay:     DefaultRentDay,
		domain.SettingInitialized: true,
	}
	for k, v := range seeds {
		if err := putJSON(lt.ctx, lt.repo, k, v); err != nil {
			return err
		}
	}
	return lt.repo.PutBudget(lt.ctx, domain.SharedBudget{Balance: decimal.Zero, LastUpdated: lt.now})
}

// ─── Rates ──────────────────────────────────────────────────────────────────

// Rates returns a copy of the current rates.
func (e *Engine) Rates() domain.Rates {
	e.ratesMu.RLock()
	defer e.ratesMu.RUnlock()
	return e.rates.Clone()
}

// UpdateRates validates, persists and activates new rates. Existing sessions
// keep the deduction they were saved with.
func (e *Engine) UpdateRates(ctx context.Context, r domain.Rates) error {
	if err := r.Validate(); err != nil {
		return err
	}
	_, err := e.mutate(ctx, "rates.updated", func(lt *ledgerTx) error {
		return putRates(lt.ctx, lt.repo, r)
	})
	if err != nil {
		return fmt.Errorf("update rates: %w", err)
	}
	e.setRates(r)
	return nil
}

func (e *Engine) setRates(r domain.Rates) {
	e.ratesMu.Lock()
	e.rates = r.Clone()
	e.ratesMu.Unlock()
}

// loadRates reads rates from settings, keeping defaults for missing keys.
func (e *Engine) loadRates(ctx context.Context) error {
	r := e.seedRates()
	var hourly, deduction map[domain.Person]decimal.Decimal
	if err := getJSON(ctx, e.store, domain.SettingRates, &hourly); err != nil && !isNotFound(err) {
		return fmt.Errorf("load rates: %w", err)
	}
	if err := getJSON(ctx, e.store, domain.SettingDeductionRates, &deduction); err != nil && !isNotFound(err) {
		return fmt.Errorf("load deduction rates: %w", err)
	}
	if len(hourly) > 0 {
		r.Hourly = hourly
	}
	if deduction != nil {
		r.Deduction = deduction
	}
	e.setRates(r)
	return nil
}

func (e *Engine) seedRates() domain.Rates {
	if len(e.config.SeedRates.Hourly) == 0 {
		return domain.DefaultRates()
	}
	return e.config.SeedRates.Clone()
}

func putRates(ctx context.Context, repo domain.Repository, r domain.Rates) error {
	if err := putJSON(ctx, repo, domain.SettingRates, r.Hourly); err != nil {
		return err
	}
	return putJSON(ctx, repo, domain.SettingDeductionRates, r.Deduction)
}

// ─── Categories ─────────────────────────────────────────────────────────────

// Categories returns one category set.
func (e *Engine) Categories(ctx context.Context, kind domain.CategoryKind) ([]string, error) {
	if !kind.Valid() {
		return nil, domain.Invalid("unknown category kind %q", kind)
	}
	return e.store.ListCategories(ctx, kind)
}

// AddCategory adds a name to a category set.
func (e *Engine) AddCategory(ctx context.Context, kind domain.CategoryKind, name string) error {
	name = strings.TrimSpace(name)
	if !kind.Valid() {
		return domain.Invalid("unknown category kind %q", kind)
	}
	if name == "" {
		return domain.Invalid("category name must not be blank")
	}
	_, err := e.mutate(ctx, "category.added", func(lt *ledgerTx) error {
		lt.id = name
		return lt.repo.AddCategory(lt.ctx, kind, name)
	})
	return err
}

// RemoveCategory removes a name from a category set. Records that use it keep
// their category text.
func (e *Engine) RemoveCategory(ctx context.Context, kind domain.CategoryKind, name string) error {
	if !kind.Valid() {
		return domain.Invalid("unknown category kind %q", kind)
	}
	_, err := e.mutate(ctx, "category.removed", func(lt *ledgerTx) error {
		lt.id = name
		return lt.repo.RemoveCategory(lt.ctx, kind, name)
	})
	return err
}

// ─── Settings ───────────────────────────────────────────────────────────────

// reservedSetting reports keys that only dedicated operations may write.
func reservedSetting(key string) bool {
	switch key {
	case domain.SettingRates, domain.SettingDeductionRates, domain.SettingRentAmount,
		domain.SettingRentDay, domain.SettingInitialized, domain.SettingTimerState:
		return true
	}
	return strings.HasPrefix(key, rentPaidPrefix) || strings.HasPrefix(key, rentDebtPrefix)
}

// Setting returns the raw JSON stored under key.
func (e *Engine) Setting(ctx context.Context, key string) (string, error) {
	return e.store.GetSetting(ctx, key)
}

// PutSetting stores a plain setting such as the theme. value must be JSON.
func (e *Engine) PutSetting(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return domain.Invalid("setting key must not be blank")
	}
	if reservedSetting(key) {
		return domain.Invalid("setting %q is managed by the ledger", key)
	}
	if !json.Valid([]byte(value)) {
		return domain.Invalid("setting %q is not valid JSON", key)
	}
	_, err := e.mutate(ctx, "setting.updated", func(lt *ledgerTx) error {
		lt.id = key
		return lt.repo.PutSetting(lt.ctx, key, value)
	})
	return err
}

// DeleteSetting removes a plain setting.
func (e *Engine) DeleteSetting(ctx context.Context, key string) error {
	if reservedSetting(key) {
		return domain.Invalid("setting %q is managed by the ledger", key)
	}
	_, err := e.mutate(ctx, "setting.deleted", func(lt *ledgerTx) error {
		lt.id = key
		return lt.repo.DeleteSetting(lt.ctx, key)
	})
	return err
}

func putJSON(ctx context.Context, repo domain.Repository, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	return repo.PutSetting(ctx, key, string(raw))
}

func getJSON(ctx context.Context, repo domain.Repository, key string, v any) error {
	raw, err := repo.GetSetting(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode setting %s: %w", key, err)
	}
	return nil
}

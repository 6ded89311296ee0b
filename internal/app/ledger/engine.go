// Package ledger keeps the shared budget consistent with every event that
// feeds it: work-session deductions, finance records, automatic debt
// payments and rent charges.
//
// Every mutation runs the same way:
//  1. Validate the input (nothing is written on failure)
//  2. Take the engine lock
//  3. Open one store transaction
//  4. Write the entity and apply its balance delta
//  5. If the balance ended up positive, pay down debts from the surplus
//  6. Commit, release the lock, then notify subscribers
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/domain"
	"github.com/worktracker/worktracker/internal/infra/observability"
)

// Config controls engine behavior.
type Config struct {
	Landlord        string        // Creditor on rent debts
	RentDebtor      domain.Person // Person a rent debt is booked to
	RentGrace       time.Duration // Rent debt due date = rent day + grace
	AutoPaymentNote string        // Note on payments made by settlement
	SeedRates       domain.Rates  // Rates written on first Init; empty means DefaultRates
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Landlord:        "Pronajímatel",
		RentDebtor:      "maru",
		RentGrace:       14 * 24 * time.Hour,
		AutoPaymentNote: "Automatic payment from shared budget",
	}
}

// ChangeEvent is published after a mutation commits.
type ChangeEvent struct {
	Kind     string               `json:"kind"`
	ID       string               `json:"id,omitempty"`
	Delta    decimal.Decimal      `json:"delta"`
	Balance  decimal.Decimal      `json:"balance"`
	Payments []domain.DebtPayment `json:"payments,omitempty"`
	At       time.Time            `json:"at"`
}

// Engine is the shared-budget ledger.
type Engine struct {
	mu     sync.Mutex // serializes every budget read-modify-write
	store  domain.Store
	config Config
	log    *slog.Logger
	now    func() time.Time // injectable clock for testing
	newID  func() string

	ratesMu sync.RWMutex
	rates   domain.Rates

	subMu   sync.RWMutex
	subs    map[int]func(ChangeEvent)
	nextSub int
}

// New creates a ledger engine over store. Call Init before use so rates are
// loaded from settings.
func New(cfg Config, store domain.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  store,
		config: cfg,
		log:    logger.With("component", "ledger"),
		now:    time.Now,
		newID:  uuid.NewString,
		rates:  domain.DefaultRates(),
		subs:   make(map[int]func(ChangeEvent)),
	}
}

// SetClock replaces the engine clock.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Store returns the underlying store for read-only consumers.
func (e *Engine) Store() domain.Repository {
	return e.store
}

// ─── Subscriptions ──────────────────────────────────────────────────────────

// Subscribe registers fn to receive every ChangeEvent after commit.
// The returned function removes the subscription.
func (e *Engine) Subscribe(fn func(ChangeEvent)) (unsubscribe func()) {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subMu.Unlock()

	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

func (e *Engine) publish(ev ChangeEvent) {
	e.subMu.RLock()
	fns := make([]func(ChangeEvent), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// ─── Transactions ───────────────────────────────────────────────────────────

// ledgerTx is the state of one mutation while its transaction is open.
type ledgerTx struct {
	ctx      context.Context
	e        *Engine
	repo     domain.Repository
	now      time.Time
	kind     string
	id       string
	delta    decimal.Decimal
	balance  decimal.Decimal
	entries  []domain.BudgetEntry
	payments []domain.DebtPayment
	quiet    bool // nothing changed; skip the event
}

// mutate runs fn under the engine lock inside one store transaction and
// publishes the resulting ChangeEvent after commit.
func (e *Engine) mutate(ctx context.Context, kind string, fn func(lt *ledgerTx) error) (*ledgerTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	e.mu.Lock()
	var lt *ledgerTx
	err := e.store.InTx(ctx, func(tx domain.Repository) error {
		lt = &ledgerTx{ctx: ctx, e: e, repo: tx, now: e.now(), kind: kind}
		if err := fn(lt); err != nil {
			return err
		}
		b, err := tx.GetBudget(ctx)
		if err != nil {
			return err
		}
		lt.balance = b.Balance
		return nil
	})
	e.mu.Unlock()

	observability.ObserveOperation(kind, start, err)
	if err != nil {
		if errors.Is(err, domain.ErrStore) {
			observability.StoreFailures.WithLabelValues(kind).Inc()
			e.log.Error("store failure", "op", kind, "error", err)
		}
		return nil, err
	}

	e.recordMetrics(lt)
	if lt.quiet {
		return lt, nil
	}
	e.publish(ChangeEvent{
		Kind:     lt.kind,
		ID:       lt.id,
		Delta:    lt.delta,
		Balance:  lt.balance,
		Payments: lt.payments,
		At:       lt.now,
	})
	return lt, nil
}

func (e *Engine) recordMetrics(lt *ledgerTx) {
	bal, _ := lt.balance.Float64()
	observability.BudgetBalance.Set(bal)
	for _, entry := range lt.entries {
		observability.BudgetDeltas.WithLabelValues(string(entry.Source)).Inc()
	}
	for _, p := range lt.payments {
		amt, _ := p.Amount.Float64()
		observability.AutoPayments.Inc()
		observability.AutoPaymentAmount.Add(amt)
	}
}

// apply adds amount to the balance and, if the result is positive, settles
// debts from the surplus. A zero amount writes nothing.
func (lt *ledgerTx) apply(amount decimal.Decimal, source domain.EntrySource, refID string) error {
	if amount.IsZero() {
		return nil
	}
	balance, err := lt.adjust(amount, source, refID)
	if err != nil {
		return err
	}
	lt.delta = lt.delta.Add(amount)
	if balance.IsPositive() {
		return lt.settle()
	}
	return nil
}

// adjust is the raw balance primitive: read, add, write, journal.
// It never triggers settlement.
func (lt *ledgerTx) adjust(amount decimal.Decimal, source domain.EntrySource, refID string) (decimal.Decimal, error) {
	b, err := lt.repo.GetBudget(lt.ctx)
	if err != nil {
		return decimal.Zero, err
	}
	b.Balance = b.Balance.Add(amount)
	b.LastUpdated = lt.now
	if err := lt.repo.PutBudget(lt.ctx, b); err != nil {
		return decimal.Zero, err
	}

	entry := domain.BudgetEntry{
		ID:        lt.e.newID(),
		Source:    source,
		RefID:     refID,
		Amount:    amount,
		Balance:   b.Balance,
		CreatedAt: lt.now,
	}
	if err := lt.repo.AppendBudgetEntry(lt.ctx, entry); err != nil {
		return decimal.Zero, err
	}
	lt.entries = append(lt.entries, entry)
	return b.Balance, nil
}

// ─── Budget ─────────────────────────────────────────────────────────────────

// Balance returns the shared budget.
func (e *Engine) Balance(ctx context.Context) (domain.SharedBudget, error) {
	return e.store.GetBudget(ctx)
}

// History returns the newest journal entries. limit <= 0 returns all.
func (e *Engine) History(ctx context.Context, limit int) ([]domain.BudgetEntry, error) {
	return e.store.ListBudgetEntries(ctx, limit)
}

// ApplyDelta adds a signed amount to the shared budget and settles debts if
// the balance ends up positive. It returns the balance after settlement.
func (e *Engine) ApplyDelta(ctx context.Context, amount decimal.Decimal, source domain.EntrySource, refID string) (decimal.Decimal, error) {
	if source == "" {
		source = domain.SourceManual
	}
	lt, err := e.mutate(ctx, "budget.adjusted", func(lt *ledgerTx) error {
		lt.id = refID
		return lt.apply(amount, source, refID)
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("apply delta: %w", err)
	}
	return lt.balance, nil
}

// Settle runs one settlement pass over the current balance and returns the
// payments it made.
func (e *Engine) Settle(ctx context.Context) ([]domain.DebtPayment, error) {
	lt, err := e.mutate(ctx, "budget.settled", func(lt *ledgerTx) error {
		return lt.settle()
	})
	if err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}
	return lt.payments, nil
}

package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, no infrastructure dependency.

var (
	// Rejected input. Nothing was persisted.
	ErrValidation = errors.New("validation failed")

	// Lookup errors
	ErrNotFound              = errors.New("not found")
	ErrWorkSessionNotFound   = fmt.Errorf("work session %w", ErrNotFound)
	ErrFinanceRecordNotFound = fmt.Errorf("finance record %w", ErrNotFound)
	ErrDebtNotFound          = fmt.Errorf("debt %w", ErrNotFound)
	ErrSettingNotFound       = fmt.Errorf("setting %w", ErrNotFound)

	// Ledger errors
	ErrPaymentExceedsDebt = fmt.Errorf("payment exceeds remaining debt: %w", ErrValidation)
	ErrAmountBelowPaid    = fmt.Errorf("debt amount below already paid: %w", ErrValidation)
	ErrUnknownPerson      = fmt.Errorf("unknown person: %w", ErrValidation)

	// Timer errors
	ErrTimerRunning    = errors.New("timer already running")
	ErrTimerNotRunning = errors.New("timer not running")

	// Store errors
	ErrStore = errors.New("store failure")
)

// Invalid returns an ErrValidation carrying a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// StoreError wraps a failed read or write against the persistent store.
// errors.Is matches both ErrStore and the underlying driver error.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStore, e.Err}
}

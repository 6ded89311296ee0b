package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Rates ──────────────────────────────────────────────────────────────────

var msPerHour = decimal.NewFromInt(int64(time.Hour / time.Millisecond))

// Rates holds the per-person hourly rate (CZK) and the fraction of earnings
// that is diverted into the shared budget. The set of people is the set of
// keys in Hourly.
type Rates struct {
	Hourly    map[Person]decimal.Decimal `json:"hourly"`
	Deduction map[Person]decimal.Decimal `json:"deduction"`
}

// DefaultRates returns the rates used before anything is configured.
func DefaultRates() Rates {
	return Rates{
		Hourly: map[Person]decimal.Decimal{
			"maru":  decimal.NewFromInt(275),
			"marty": decimal.NewFromInt(400),
		},
		Deduction: map[Person]decimal.Decimal{
			"maru":  decimal.RequireFromString("0.3333"),
			"marty": decimal.RequireFromString("0.5"),
		},
	}
}

// People returns the configured people in stable order.
func (r Rates) People() []Person {
	out := make([]Person, 0, len(r.Hourly))
	for p := range r.Hourly {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether the person has an hourly rate.
func (r Rates) Has(p Person) bool {
	_, ok := r.Hourly[p]
	return ok
}

// Earnings returns round(hours × rate) in whole CZK.
func (r Rates) Earnings(p Person, durationMs int64) (decimal.Decimal, error) {
	rate, ok := r.Hourly[p]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownPerson, p)
	}
	return decimal.NewFromInt(durationMs).Mul(rate).Div(msPerHour).Round(0), nil
}

// DeductionFor returns round(earnings × deductionRate) in whole CZK.
// A person without a deduction rate contributes nothing.
func (r Rates) DeductionFor(p Person, earnings decimal.Decimal) decimal.Decimal {
	rate, ok := r.Deduction[p]
	if !ok {
		return decimal.Zero
	}
	return earnings.Mul(rate).Round(0)
}

// Validate checks that every rate is non-negative and every deduction
// fraction lies in [0, 1].
func (r Rates) Validate() error {
	if len(r.Hourly) == 0 {
		return Invalid("at least one person needs an hourly rate")
	}
	for p, v := range r.Hourly {
		if p == "" {
			return Invalid("empty person name")
		}
		if v.IsNegative() {
			return Invalid("hourly rate for %s is negative", p)
		}
	}
	for p, v := range r.Deduction {
		if v.IsNegative() || v.GreaterThan(decimal.NewFromInt(1)) {
			return Invalid("deduction rate for %s must be between 0 and 1", p)
		}
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate shared maps.
func (r Rates) Clone() Rates {
	out := Rates{
		Hourly:    make(map[Person]decimal.Decimal, len(r.Hourly)),
		Deduction: make(map[Person]decimal.Decimal, len(r.Deduction)),
	}
	for k, v := range r.Hourly {
		out.Hourly[k] = v
	}
	for k, v := range r.Deduction {
		out.Deduction[k] = v
	}
	return out
}

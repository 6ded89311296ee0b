// Package observability exposes Prometheus metrics for the ledger, the rent
// scheduler and the work timer. Metrics are registered on the default
// registry through promauto and served by the API on /metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ═══════════════════════════════════════════════════════════════════════════
// Ledger Metrics
// ═══════════════════════════════════════════════════════════════════════════

// ─── Budget ─────────────────────────────────────────────────────────────────

// BudgetBalance tracks the current shared budget balance in CZK.
var BudgetBalance = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "worktracker",
	Subsystem: "budget",
	Name:      "balance_czk",
	Help:      "Current shared budget balance in CZK.",
})

// BudgetDeltas counts applied balance changes by source.
var BudgetDeltas = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "worktracker",
	Subsystem: "budget",
	Name:      "deltas_total",
	Help:      "Total balance changes applied, by source.",
}, []string{"source"})

// ─── Settlement ─────────────────────────────────────────────────────────────

// AutoPayments counts automatic debt payments made from surplus.
var AutoPayments = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "worktracker",
	Subsystem: "settlement",
	Name:      "auto_payments_total",
	Help:      "Total automatic debt payments made from the shared budget.",
})

// AutoPaymentAmount sums the CZK paid by automatic settlement.
var AutoPaymentAmount = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "worktracker",
	Subsystem: "settlement",
	Name:      "auto_paid_czk_total",
	Help:      "Total CZK paid to debts by automatic settlement.",
})

// ─── Rent ───────────────────────────────────────────────────────────────────

// RentOutcomes counts rent checks by resulting action (paid, debt, none).
var RentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "worktracker",
	Subsystem: "rent",
	Name:      "checks_total",
	Help:      "Total rent checks by action taken.",
}, []string{"action"})

// ─── Timer ──────────────────────────────────────────────────────────────────

// TimerRunning is 1 while the work timer is running.
var TimerRunning = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "worktracker",
	Subsystem: "timer",
	Name:      "running",
	Help:      "Whether the work timer is running (1) or not (0).",
})

// ─── API ────────────────────────────────────────────────────────────────────

// EventSubscribers is the number of connected change-feed clients.
var EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "worktracker",
	Subsystem: "api",
	Name:      "event_subscribers",
	Help:      "Connected clients on the change-event stream.",
})

// ─── Operations ─────────────────────────────────────────────────────────────

// StoreFailures counts ledger operations that failed in the store.
var StoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "worktracker",
	Subsystem: "store",
	Name:      "failures_total",
	Help:      "Total ledger operations that failed in the store.",
}, []string{"op"})

// OperationDuration tracks ledger operation latency.
var OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "worktracker",
	Subsystem: "ledger",
	Name:      "operation_duration_ms",
	Help:      "Ledger operation latency in milliseconds.",
	Buckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250},
}, []string{"op", "status"})

// ObserveOperation records the latency and outcome of one ledger operation.
func ObserveOperation(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	OperationDuration.WithLabelValues(op, status).Observe(float64(time.Since(start).Microseconds()) / 1000)
}

// SetTimerRunning updates the timer gauge.
func SetTimerRunning(running bool) {
	if running {
		TimerRunning.Set(1)
		return
	}
	TimerRunning.Set(0)
}

// Package metrics defines and registers the custom Prometheus metrics of the
// loan service. It is the single source of truth for metric names, labels, and
// help strings.
//
// All metrics are registered with the default registry on package init via
// promauto, so importing the package is enough.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/citylibrary/loan-service/internal/core/domain"
)

const namespace = "loan"

// ── Loan action metrics ───────────────────────────────────────────────────────

// ActionsTotal counts submitted loan actions.
// Labels:
//   - action: "borrow" or "return"
//   - outcome: "succeeded", "rejected" (domain error) or "failed" (unexpected)
var ActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "Total number of loan actions, by action and outcome.",
	},
	[]string{"action", "outcome"},
)

// InventoryAdjustFailuresTotal counts inventory changes that were not applied
// after the loan record had been committed.
// Label:
//   - direction: "decrement" (borrow) or "increment" (return)
var InventoryAdjustFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_adjust_failures_total",
		Help:      "Total number of post-commit inventory adjustments that failed.",
	},
	[]string{"direction"},
)

// ── Remote call metrics ───────────────────────────────────────────────────────

// RemoteCallDuration measures calls to the inventory service and user directory.
// Labels:
//   - service: "inventory" or "users"
//   - operation: e.g. "get_availability", "adjust_availability", "exists"
//   - result: "ok", "not_found" or "error"
var RemoteCallDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "remote_call_duration_seconds",
		Help:      "Duration of calls to remote collaborators.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"service", "operation", "result"},
)

// ObserveRemoteCall records one remote call that started at start.
func ObserveRemoteCall(service, operation, result string, start time.Time) {
	RemoteCallDuration.WithLabelValues(service, operation, result).Observe(time.Since(start).Seconds())
}

// LoanObserver feeds orchestration outcomes into the counters above.
type LoanObserver struct{}

func (LoanObserver) ActionCompleted(kind domain.ActionKind, outcome string) {
	ActionsTotal.WithLabelValues(string(kind), outcome).Inc()
}

func (LoanObserver) InventoryAdjustFailed(direction string) {
	InventoryAdjustFailuresTotal.WithLabelValues(direction).Inc()
}

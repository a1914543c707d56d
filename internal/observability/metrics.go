// Package observability holds the Prometheus metrics of the ledger services.
// A nil *Metrics is valid and records nothing.
package observability

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"finance/internal/core"
)

const namespace = "finance"

type Metrics struct {
	obligationOps  *prometheus.CounterVec
	payments       *prometheus.CounterVec
	failures       *prometheus.CounterVec
	ledgerEntries  *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	breakerState   *prometheus.GaugeVec
	mirroredEvents *prometheus.CounterVec
}

// NewMetrics registers every collector on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		obligationOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "obligations",
			Name:      "operations_total",
			Help:      "Successful obligation create, edit and delete calls.",
		}, []string{"operation"}),
		payments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "obligations",
			Name:      "payments_total",
			Help:      "Paid obligations by kind and outcome (advanced or retired).",
		}, []string{"kind", "outcome"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "obligations",
			Name:      "failures_total",
			Help:      "Failed obligation operations by error reason.",
		}, []string{"operation", "reason"}),
		ledgerEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Committed ledger entries by kind and origin (direct or obligation).",
		}, []string{"kind", "origin"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "state",
			Help:      "Current circuit breaker state (0=closed, 1=open, 2=half-open).",
		}, []string{"name"}),
		mirroredEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "events_total",
			Help:      "Ledger events handled by the mirror worker by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObligationOp(op string) {
	if m == nil {
		return
	}
	m.obligationOps.WithLabelValues(op).Inc()
}

func (m *Metrics) Payment(kind core.Kind, retired bool) {
	if m == nil {
		return
	}
	outcome := "advanced"
	if retired {
		outcome = "retired"
	}
	m.payments.WithLabelValues(string(kind), outcome).Inc()
}

func (m *Metrics) Failure(op string, err error) {
	if m == nil || err == nil {
		return
	}
	m.failures.WithLabelValues(op, Reason(err)).Inc()
}

func (m *Metrics) LedgerEntry(kind core.Kind, fromObligation bool) {
	if m == nil {
		return
	}
	origin := "direct"
	if fromObligation {
		origin = "obligation"
	}
	m.ledgerEntries.WithLabelValues(string(kind), origin).Inc()
}

func (m *Metrics) HTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) CircuitState(name string, state int32) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) MirroredEvent(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.mirroredEvents.WithLabelValues(result).Inc()
}

// Reason maps an error onto a short label value.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, core.ErrScheduleNotAdvanced):
		return "not_advanced"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrInvalidSchedule):
		return "invalid_schedule"
	case errors.Is(err, core.ErrBadRequest):
		return "bad_request"
	case errors.Is(err, core.ErrConflict):
		return "conflict"
	case errors.Is(err, core.ErrDependency):
		return "dependency"
	}
	return "internal"
}

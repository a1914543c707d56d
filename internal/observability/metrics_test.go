package observability

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"finance/internal/core"
)

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{fmt.Errorf("load: %w", core.ErrNotFound), "not_found"},
		{fmt.Errorf("%w: %w", core.ErrInvalidSchedule, core.ErrSameAccount), "invalid_schedule"},
		{fmt.Errorf("%w: kind", core.ErrBadRequest), "bad_request"},
		{core.ErrConflict, "conflict"},
		{&core.AdvanceError{ObligationID: 1, Err: core.ErrConflict}, "not_advanced"},
		{fmt.Errorf("%w: disk", core.ErrDependency), "dependency"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Reason(tt.err); got != tt.want {
				t.Fatalf("Reason(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Payment(core.KindTransaction, false)
	m.Payment(core.KindTransaction, true)
	m.Payment(core.KindTransaction, true)
	m.Failure("pay", core.ErrConflict)

	if got := testutil.ToFloat64(m.payments.WithLabelValues("transaction", "retired")); got != 2 {
		t.Fatalf("retired payments = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("pay", "conflict")); got != 1 {
		t.Fatalf("conflict failures = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Payment(core.KindTransfer, true)
	m.Failure("pay", core.ErrNotFound)
	m.ObligationOp("create")
	m.CircuitState("amqp", 1)
}

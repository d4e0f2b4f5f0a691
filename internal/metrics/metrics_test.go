package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}

func TestObserveMutation(t *testing.T) {
	before := value(t, Mutations.WithLabelValues("save_day", ResultError))
	ObserveMutation("save_day", errors.New("boom"))
	if got := value(t, Mutations.WithLabelValues("save_day", ResultError)); got != before+1 {
		t.Fatalf("expected error counter to grow by one, got %v -> %v", before, got)
	}
}

func TestSetState(t *testing.T) {
	SetState(12, 3, 1)
	if got := value(t, LedgerDays); got != 12 {
		t.Fatalf("ledger days = %v", got)
	}
	if got := value(t, Customers.WithLabelValues("inactive")); got != 1 {
		t.Fatalf("inactive customers = %v", got)
	}
}

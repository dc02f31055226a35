package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	if err := vec.WithLabelValues(labels...).Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveBooking("ok", 0.02)
	m.ObserveBooking("SlotConflict", 0.01)
	m.ObserveBooking("SlotConflict", 0.01)
	m.ObserveSessionAttempt(false)
	m.ObserveSessionAttempt(true)
	m.ObserveSlotQuery("ok", 0.001)
	m.ObserveJoinToken("TooEarlyToJoin")
	m.ObserveTransition("CANCELLED")

	if got := counterValue(t, m.bookingsTotal, "SlotConflict"); got != 2 {
		t.Fatalf("expected 2 conflicts, got %v", got)
	}
	if got := counterValue(t, m.sessionAttempts, "error"); got != 1 {
		t.Fatalf("expected 1 failed session attempt, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveBooking("ok", 0.1)
	m.ObserveSessionAttempt(true)
	m.ObserveSlotQuery("ok", 0.1)
	m.ObserveJoinToken("ok")
	m.ObserveTransition("COMPLETED")
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters/histograms for slot queries and bookings.
type BookingMetrics struct {
	slotQueries       *prometheus.CounterVec
	slotQueryLatency  prometheus.Histogram
	bookingsTotal     *prometheus.CounterVec
	bookingLatency    prometheus.Histogram
	sessionAttempts   *prometheus.CounterVec
	joinTokensTotal   *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		slotQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "scheduling",
			Name:      "slot_queries_total",
			Help:      "Total available-slot queries by outcome",
		}, []string{"outcome"}),
		slotQueryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "telehealth",
			Subsystem: "scheduling",
			Name:      "slot_query_seconds",
			Help:      "Latency of available-slot queries",
			Buckets:   prometheus.DefBuckets,
		}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by result code",
		}, []string{"code"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "telehealth",
			Subsystem: "booking",
			Name:      "transaction_seconds",
			Help:      "Latency of the booking transaction",
			Buckets:   prometheus.DefBuckets,
		}),
		sessionAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "video",
			Name:      "session_attempts_total",
			Help:      "Video session provisioning attempts",
		}, []string{"result"}),
		joinTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "video",
			Name:      "join_tokens_total",
			Help:      "Join token requests by result code",
		}, []string{"code"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "booking",
			Name:      "status_transitions_total",
			Help:      "Appointment lifecycle transitions",
		}, []string{"to"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.slotQueries,
		m.slotQueryLatency,
		m.bookingsTotal,
		m.bookingLatency,
		m.sessionAttempts,
		m.joinTokensTotal,
		m.statusTransitions,
	)
	return m
}

func (m *BookingMetrics) ObserveSlotQuery(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.slotQueries.WithLabelValues(outcome).Inc()
	m.slotQueryLatency.Observe(seconds)
}

// ObserveBooking records a finished booking attempt; code is "ok" or the error code.
func (m *BookingMetrics) ObserveBooking(code string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(code).Inc()
	m.bookingLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveSessionAttempt(success bool) {
	if m == nil {
		return
	}
	result := "error"
	if success {
		result = "ok"
	}
	m.sessionAttempts.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveJoinToken(code string) {
	if m == nil {
		return
	}
	m.joinTokensTotal.WithLabelValues(code).Inc()
}

func (m *BookingMetrics) ObserveTransition(to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(to).Inc()
}

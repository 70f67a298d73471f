package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConversationMetrics exposes counters/histograms for the booking flow.
type ConversationMetrics struct {
	sessionsTotal     prometheus.Counter
	turnsTotal        *prometheus.CounterVec
	turnLatency       *prometheus.HistogramVec
	fallbacksTotal    prometheus.Counter
	availabilityFails prometheus.Counter
	bookingsTotal     *prometheus.CounterVec
	conflictsTotal    prometheus.Counter
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "conversation",
			Name:      "sessions_total",
			Help:      "Total conversation sessions created",
		}),
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total turns processed, labelled by resulting state",
		}, []string{"state"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medbook",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Latency of turn processing including classification and availability fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"state"}),
		fallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "conversation",
			Name:      "classification_fallbacks_total",
			Help:      "Total classifications that fell back to a general physician",
		}),
		availabilityFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "conversation",
			Name:      "availability_failures_total",
			Help:      "Total availability fetches that failed or came back empty",
		}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "booking",
			Name:      "committed_total",
			Help:      "Total bookings committed, labelled by specialist",
		}, []string{"specialist"}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "booking",
			Name:      "slot_conflicts_total",
			Help:      "Total booking attempts that lost a slot race",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.sessionsTotal,
		m.turnsTotal,
		m.turnLatency,
		m.fallbacksTotal,
		m.availabilityFails,
		m.bookingsTotal,
		m.conflictsTotal,
	)
	return m
}

func (m *ConversationMetrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsTotal.Inc()
}

func (m *ConversationMetrics) TurnProcessed(state string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(state).Inc()
	m.turnLatency.WithLabelValues(state).Observe(elapsed.Seconds())
}

func (m *ConversationMetrics) ClassificationFallback() {
	if m == nil {
		return
	}
	m.fallbacksTotal.Inc()
}

func (m *ConversationMetrics) AvailabilityFailure() {
	if m == nil {
		return
	}
	m.availabilityFails.Inc()
}

func (m *ConversationMetrics) BookingCommitted(specialist string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(specialist).Inc()
}

func (m *ConversationMetrics) BookingConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

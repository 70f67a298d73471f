package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConversationMetricsObserve(t *testing.T) {
	m := NewConversationMetrics(prometheus.NewRegistry())
	m.SessionCreated()
	m.TurnProcessed("doctor_confirmation", 120*time.Millisecond)
	m.ClassificationFallback()
	m.AvailabilityFailure()
	m.BookingCommitted("cardiologist")
	m.BookingConflict()
}

func TestConversationMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)
	m.BookingCommitted("general_physician")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "medbook_booking_committed_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected medbook_booking_committed_total to be registered")
	}
}

func TestConversationMetricsNilSafe(t *testing.T) {
	var m *ConversationMetrics
	m.SessionCreated()
	m.TurnProcessed("completed", time.Second)
	m.ClassificationFallback()
	m.AvailabilityFailure()
	m.BookingCommitted("cardiologist")
	m.BookingConflict()
}

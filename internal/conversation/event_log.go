package conversation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wolfman30/medbook-ai-platform/internal/booking"
	"github.com/wolfman30/medbook-ai-platform/internal/triage"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

// ConversationEvent is a structured event in the booking flow. All events
// share the same base fields for easy filtering/grep.
type ConversationEvent struct {
	Time      string         `json:"time"`
	Event     string         `json:"event"`
	SessionID string         `json:"session_id"`
	State     string         `json:"state,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventLogger emits structured JSON events at each decision point in the
// conversation flow. Designed for fast grep/filter debugging:
//
//	grep '"event":"symptoms_classified"' /var/log/app.log
//	grep '"session_id":"7f3a..."' /var/log/app.log
type EventLogger struct {
	logger *logging.Logger
}

// NewEventLogger creates a conversation event logger.
func NewEventLogger(logger *logging.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Log emits a structured conversation event. Safe on a nil receiver so the
// engine can fire events unconditionally.
func (e *EventLogger) Log(_ context.Context, event, sessionID string, state State, data map[string]any) {
	if e == nil || e.logger == nil {
		return
	}
	evt := ConversationEvent{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Event:     event,
		SessionID: sessionID,
		State:     string(state),
		Data:      data,
	}
	b, _ := json.Marshal(evt)
	e.logger.Info(string(b))
}

// Convenience methods for common events:

func (e *EventLogger) SessionCreated(ctx context.Context, sessionID, source string) {
	e.Log(ctx, "session_created", sessionID, StateSymptomCollection, map[string]any{
		"source": source,
	})
}

func (e *EventLogger) TurnReceived(ctx context.Context, sessionID string, state State, message string, hasSelection bool) {
	// Truncate message for logging
	msg := message
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	e.Log(ctx, "turn_received", sessionID, state, map[string]any{
		"message":       msg,
		"has_selection": hasSelection,
	})
}

func (e *EventLogger) SymptomsClassified(ctx context.Context, sessionID string, c triage.Classification, fallback bool) {
	e.Log(ctx, "symptoms_classified", sessionID, StateSymptomAnalysis, map[string]any{
		"specialist": string(c.Specialist),
		"confidence": c.Confidence,
		"fallback":   fallback,
	})
}

func (e *EventLogger) SpecialistSwitched(ctx context.Context, sessionID string, from, to triage.Specialist) {
	e.Log(ctx, "specialist_switched", sessionID, StateDoctorConfirmation, map[string]any{
		"from": string(from),
		"to":   string(to),
	})
}

func (e *EventLogger) AvailabilityFetched(ctx context.Context, sessionID string, specialist triage.Specialist, hospitals, slots int, durationMs int64) {
	e.Log(ctx, "availability_fetched", sessionID, StateFetchAvailability, map[string]any{
		"specialist":  string(specialist),
		"hospitals":   hospitals,
		"slot_count":  slots,
		"duration_ms": durationMs,
	})
}

func (e *EventLogger) SlotSelected(ctx context.Context, sessionID string, sel Selection) {
	e.Log(ctx, "slot_selected", sessionID, StateSlotSelection, map[string]any{
		"hospital_id": sel.HospitalID,
		"doctor_id":   sel.DoctorID,
		"slot_id":     sel.SlotID,
	})
}

func (e *EventLogger) BookingConfirmed(ctx context.Context, sessionID string, b booking.Booking) {
	e.Log(ctx, "booking_confirmed", sessionID, StateCompleted, map[string]any{
		"booking_id": b.ID,
		"doctor_id":  b.DoctorID,
		"slot_id":    b.SlotID,
	})
}

func (e *EventLogger) BookingConflict(ctx context.Context, sessionID, doctorID, slotID string) {
	e.Log(ctx, "booking_conflict", sessionID, StateBookingConfirmation, map[string]any{
		"doctor_id": doctorID,
		"slot_id":   slotID,
	})
}

func (e *EventLogger) CycleRestarted(ctx context.Context, sessionID string, cycle int) {
	e.Log(ctx, "cycle_restarted", sessionID, StateSymptomCollection, map[string]any{
		"cycle": cycle,
	})
}

func (e *EventLogger) ErrorOccurred(ctx context.Context, sessionID string, state State, step string, err error) {
	e.Log(ctx, "error", sessionID, state, map[string]any{
		"step":  step,
		"error": err.Error(),
	})
}

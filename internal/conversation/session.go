package conversation

import (
	"time"

	"github.com/wolfman30/medbook-ai-platform/internal/booking"
	"github.com/wolfman30/medbook-ai-platform/internal/directory"
	"github.com/wolfman30/medbook-ai-platform/internal/triage"
)

// State identifies where a session sits in the booking flow.
type State string

const (
	StateSymptomCollection   State = "symptom_collection"
	StateSymptomAnalysis     State = "symptom_analysis"
	StateDoctorConfirmation  State = "doctor_confirmation"
	StateFetchAvailability   State = "fetch_availability"
	StateSlotSelection       State = "slot_selection"
	StateBookingConfirmation State = "booking_confirmation"
	StateCompleted           State = "completed"
)

// MessageType tags an assistant message so clients know which structured
// payload rides along in the response data.
type MessageType string

const (
	MessageTypeText            MessageType = "text"
	MessageTypeSymptomSummary  MessageType = "symptom_summary"
	MessageTypeDoctorSelection MessageType = "doctor_selection"
	MessageTypeBookingSummary  MessageType = "booking_summary"
	MessageTypeConfirmation    MessageType = "confirmation"
	MessageTypeError           MessageType = "error"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// maxSessionMessages bounds the stored transcript. Older entries are dropped
// first; truncation affects display only, never flow decisions.
const maxSessionMessages = 50

// Message is a single transcript entry. Immutable once appended.
type Message struct {
	Role    string      `json:"role"`
	Type    MessageType `json:"message_type"`
	Content string      `json:"content"`
	At      time.Time   `json:"at"`
}

// Selection references one doctor, hospital, and slot from the session's
// availability snapshot. All three IDs are required and must be mutually
// consistent within that snapshot.
type Selection struct {
	HospitalID string `json:"hospital_id"`
	DoctorID   string `json:"doctor_id"`
	SlotID     string `json:"slot_id"`
}

// SymptomReport holds what the patient told us, plus the keyword list the
// classifier extracted. The keywords are for display and audit only; routing
// decisions always come from the classification itself.
type SymptomReport struct {
	Raw      string   `json:"raw"`
	Keywords []string `json:"keywords,omitempty"`
}

// Session is the unit of conversation state. It is owned by the SessionStore
// and mutated only by the Engine, one turn at a time.
//
// A session can outlive a single booking: once a booking completes, the next
// user message begins a fresh cycle under the same session ID. Completed
// bookings move to History so the new cycle starts clean.
type Session struct {
	ID             string    `json:"session_id"`
	State          State     `json:"state"`
	Cycle          int       `json:"cycle"`
	Trail          []State   `json:"trail,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`

	Messages []Message `json:"messages,omitempty"`

	Symptoms       *SymptomReport          `json:"symptoms,omitempty"`
	Classification *triage.Classification  `json:"classification,omitempty"`
	Availability   *directory.Availability `json:"availability,omitempty"`
	Selection      *Selection              `json:"selection,omitempty"`
	Booking        *booking.Booking        `json:"booking,omitempty"`

	History []booking.Booking `json:"history,omitempty"`
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:             id,
		State:          StateSymptomCollection,
		Cycle:          1,
		Trail:          []State{StateSymptomCollection},
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// setState records a transition on the trail. Staying in the current state is
// a no-op so re-prompts do not inflate the trail.
func (s *Session) setState(next State) {
	if s.State == next {
		return
	}
	s.State = next
	s.Trail = append(s.Trail, next)
}

// beginCycle clears per-booking data and restarts the flow under the same
// session ID. The finished booking, if any, is preserved in History.
func (s *Session) beginCycle() {
	if s.Booking != nil {
		s.History = append(s.History, *s.Booking)
	}
	s.Cycle++
	s.Symptoms = nil
	s.Classification = nil
	s.Availability = nil
	s.Selection = nil
	s.Booking = nil
	s.State = StateSymptomCollection
	s.Trail = []State{StateSymptomCollection}
}

func (s *Session) appendMessage(role string, msgType MessageType, content string, at time.Time) {
	s.Messages = append(s.Messages, Message{
		Role:    role,
		Type:    msgType,
		Content: content,
		At:      at,
	})
	if overflow := len(s.Messages) - maxSessionMessages; overflow > 0 {
		s.Messages = append(s.Messages[:0:0], s.Messages[overflow:]...)
	}
}

func (s *Session) touch(now time.Time) {
	s.LastActivityAt = now
}

package conversation

import (
	"fmt"
	"testing"
	"time"

	"github.com/wolfman30/medbook-ai-platform/internal/booking"
	"github.com/wolfman30/medbook-ai-platform/internal/triage"
)

func TestSession_SetStateSkipsRepeats(t *testing.T) {
	s := newSession("sess-1", time.Now())

	s.setState(StateSymptomAnalysis)
	s.setState(StateSymptomAnalysis)
	s.setState(StateDoctorConfirmation)

	want := []State{StateSymptomCollection, StateSymptomAnalysis, StateDoctorConfirmation}
	assertTrail(t, s.Trail, want)
}

func TestSession_BeginCycleArchivesBooking(t *testing.T) {
	s := newSession("sess-1", time.Now())
	s.State = StateCompleted
	s.Symptoms = &SymptomReport{Raw: "chest pain"}
	s.Classification = &triage.Classification{Specialist: triage.SpecialistCardiologist}
	s.Booking = &booking.Booking{ID: "APT-11111111"}

	s.beginCycle()

	if s.Cycle != 2 {
		t.Errorf("cycle = %d, want 2", s.Cycle)
	}
	if s.State != StateSymptomCollection {
		t.Errorf("state = %v, want symptom_collection", s.State)
	}
	if s.Symptoms != nil || s.Classification != nil || s.Booking != nil {
		t.Error("per-booking data should be cleared")
	}
	if len(s.History) != 1 || s.History[0].ID != "APT-11111111" {
		t.Errorf("history = %+v", s.History)
	}
	assertTrail(t, s.Trail, []State{StateSymptomCollection})
}

func TestSession_BeginCycleWithoutBooking(t *testing.T) {
	s := newSession("sess-1", time.Now())
	s.beginCycle()

	if len(s.History) != 0 {
		t.Errorf("history = %+v, want empty", s.History)
	}
	if s.Cycle != 2 {
		t.Errorf("cycle = %d, want 2", s.Cycle)
	}
}

func TestSession_AppendMessageBoundsTranscript(t *testing.T) {
	s := newSession("sess-1", time.Now())

	for i := 0; i < maxSessionMessages+10; i++ {
		s.appendMessage(RoleUser, MessageTypeText, fmt.Sprintf("msg-%d", i), time.Now())
	}

	if len(s.Messages) != maxSessionMessages {
		t.Fatalf("transcript length = %d, want %d", len(s.Messages), maxSessionMessages)
	}
	if got := s.Messages[0].Content; got != "msg-10" {
		t.Errorf("oldest surviving message = %q, want msg-10", got)
	}
	if got := s.Messages[len(s.Messages)-1].Content; got != fmt.Sprintf("msg-%d", maxSessionMessages+9) {
		t.Errorf("newest message = %q", got)
	}
}

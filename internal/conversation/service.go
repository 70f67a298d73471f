// Package conversation drives the multi-turn booking flow: symptom intake,
// specialist triage, availability browsing, slot selection, and the final
// commit against the booking ledger. Each session advances through a fixed
// state machine, one transition per user turn.
package conversation

import (
	"context"
	"time"

	"github.com/wolfman30/medbook-ai-platform/internal/booking"
	"github.com/wolfman30/medbook-ai-platform/internal/triage"
)

// Service is the conversational API surface. CreateSession opens a session
// and returns the greeting; ProcessTurn drives exactly one state-machine
// step; GetSession is a read-only snapshot for reconnects and debugging.
type Service interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*TurnResponse, error)
	ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error)
	GetSession(ctx context.Context, sessionID string) (*SessionView, error)
}

// CreateSessionRequest opens a new session. The session ID is always minted
// server-side; clients cannot choose their own.
type CreateSessionRequest struct {
	Source string `json:"source,omitempty"`
}

// TurnRequest is one user turn. Message carries free text; Selection carries
// the structured doctor/hospital/slot pick during slot selection. At least
// one of the two must be present.
type TurnRequest struct {
	SessionID string     `json:"session_id"`
	Message   string     `json:"message"`
	Selection *Selection `json:"selected_data,omitempty"`
}

// TurnResponse is the assistant's reply for one turn. Data carries the
// structured payload matching Type: the triage analysis for symptom_summary,
// the availability snapshot for doctor_selection, the selection summary for
// booking_summary, and the booking for confirmation.
type TurnResponse struct {
	SessionID string         `json:"session_id"`
	State     State          `json:"state"`
	Message   string         `json:"message"`
	Type      MessageType    `json:"message_type"`
	Data      map[string]any `json:"data,omitempty"`
}

// SessionView is the read-only projection returned by GetSession.
type SessionView struct {
	SessionID      string                 `json:"session_id"`
	State          State                  `json:"state"`
	Cycle          int                    `json:"cycle"`
	CreatedAt      time.Time              `json:"created_at"`
	LastActivityAt time.Time              `json:"last_activity_at"`
	Classification *triage.Classification `json:"classification,omitempty"`
	Messages       []Message              `json:"messages,omitempty"`
	Booking        *booking.Booking       `json:"booking,omitempty"`
	History        []booking.Booking      `json:"history,omitempty"`
}

func viewOf(s *Session) *SessionView {
	view := &SessionView{
		SessionID:      s.ID,
		State:          s.State,
		Cycle:          s.Cycle,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
	}
	if s.Classification != nil {
		c := *s.Classification
		view.Classification = &c
	}
	if len(s.Messages) > 0 {
		view.Messages = append([]Message(nil), s.Messages...)
	}
	if s.Booking != nil {
		b := *s.Booking
		view.Booking = &b
	}
	if len(s.History) > 0 {
		view.History = append([]booking.Booking(nil), s.History...)
	}
	return view
}

package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/medbook-ai-platform/internal/booking"
	"github.com/wolfman30/medbook-ai-platform/internal/directory"
	observemetrics "github.com/wolfman30/medbook-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/medbook-ai-platform/internal/triage"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

var engineTracer = otel.Tracer("medbook.internal.conversation.engine")

// BookingRecorder mirrors committed bookings into durable storage. The
// ledger stays the commit authority; a recorder failure is logged, never
// surfaced to the patient.
type BookingRecorder interface {
	Insert(ctx context.Context, b booking.Booking) error
}

// BookingNotifier delivers the confirmation message (email in production).
type BookingNotifier interface {
	BookingConfirmed(ctx context.Context, b booking.Booking) error
}

// SessionArchiver stores completed session records as blobs.
type SessionArchiver interface {
	Put(ctx context.Context, key string, body []byte) error
}

// EngineConfig wires the engine's collaborators. Sessions, Classifier,
// Directory, and Ledger are required; everything else is optional and
// disabled when nil.
type EngineConfig struct {
	Sessions   SessionStore
	Classifier triage.Classifier
	Directory  directory.AvailabilityProvider
	Ledger     booking.SlotLedger

	Bookings BookingRecorder
	Notifier BookingNotifier
	Archiver SessionArchiver
	Turns    *TurnLog
	Events   *EventLogger
	Metrics  *observemetrics.ConversationMetrics
	Logger   *logging.Logger
}

// Engine is the conversation state machine. It processes one turn at a
// time per session and is the only component that mutates sessions.
type Engine struct {
	sessions   SessionStore
	classifier triage.Classifier
	directory  directory.AvailabilityProvider
	ledger     booking.SlotLedger

	bookings BookingRecorder
	notifier BookingNotifier
	archiver SessionArchiver
	turns    *TurnLog
	events   *EventLogger
	metrics  *observemetrics.ConversationMetrics
	logger   *logging.Logger

	locks *sessionLocks
	now   func() time.Time
	newID func() string
}

var _ Service = (*Engine)(nil)

// NewEngine builds the state machine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Sessions == nil {
		panic("conversation: session store cannot be nil")
	}
	if cfg.Classifier == nil {
		panic("conversation: classifier cannot be nil")
	}
	if cfg.Directory == nil {
		panic("conversation: availability provider cannot be nil")
	}
	if cfg.Ledger == nil {
		panic("conversation: slot ledger cannot be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		sessions:   cfg.Sessions,
		classifier: cfg.Classifier,
		directory:  cfg.Directory,
		ledger:     cfg.Ledger,
		bookings:   cfg.Bookings,
		notifier:   cfg.Notifier,
		archiver:   cfg.Archiver,
		turns:      cfg.Turns,
		events:     cfg.Events,
		metrics:    cfg.Metrics,
		logger:     logger,
		locks:      newSessionLocks(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// CreateSession opens a new session and returns the greeting.
func (e *Engine) CreateSession(ctx context.Context, req CreateSessionRequest) (*TurnResponse, error) {
	ctx, span := engineTracer.Start(ctx, "conversation.create_session")
	defer span.End()

	now := e.now().UTC()
	session := newSession(e.newID(), now)
	session.appendMessage(RoleAssistant, MessageTypeText, greetingMessage, now)

	if err := e.sessions.Create(ctx, session); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("session.id", session.ID))

	e.events.SessionCreated(ctx, session.ID, req.Source)
	e.metrics.SessionCreated()
	e.mirrorMessage(ctx, session.ID, session.Messages[len(session.Messages)-1])

	return &TurnResponse{
		SessionID: session.ID,
		State:     session.State,
		Message:   greetingMessage,
		Type:      MessageTypeText,
	}, nil
}

// ProcessTurn drives exactly one state-machine step. Turns for the same
// session are serialized; the session is loaded, mutated, and written back
// under the per-session lock so a turn never observes a half-applied peer.
func (e *Engine) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, ErrSessionNotFound
	}

	release := e.locks.acquire(req.SessionID)
	defer release()

	ctx, span := engineTracer.Start(ctx, "conversation.process_turn",
		trace.WithAttributes(attribute.String("session.id", req.SessionID)))
	defer span.End()

	started := e.now()
	session, err := e.sessions.Get(ctx, req.SessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("session.state", string(session.State)))

	e.events.TurnReceived(ctx, session.ID, session.State, req.Message, req.Selection != nil)

	now := e.now().UTC()
	session.touch(now)
	var userMsg *Message
	if strings.TrimSpace(req.Message) != "" {
		session.appendMessage(RoleUser, MessageTypeText, req.Message, now)
		userMsg = &session.Messages[len(session.Messages)-1]
	}

	var resp *TurnResponse
	switch session.State {
	case StateSymptomCollection:
		resp = e.handleSymptoms(ctx, session, req.Message)
	case StateDoctorConfirmation:
		resp = e.handleDoctorConfirmation(ctx, session, req.Message)
	case StateFetchAvailability:
		resp = e.handleFetchRetry(ctx, session, req.Message)
	case StateSlotSelection:
		resp = e.handleSlotSelection(ctx, session, req.Message, req.Selection)
	case StateBookingConfirmation:
		resp = e.handleBookingConfirmation(ctx, session, req.Message)
	case StateCompleted:
		resp = e.handleCompleted(ctx, session, req.Message)
	default:
		// SYMPTOM_ANALYSIS resolves within the symptom turn and is never a
		// resting state, so a session should not be found here.
		err := fmt.Errorf("conversation: session %s in unexpected state %s", session.ID, session.State)
		span.RecordError(err)
		resp = e.reply(session, MessageTypeError, "Sorry - something went wrong on our side. Please try again.", map[string]any{
			"error_code": string(ErrCodeInternal),
		})
	}

	if err := e.sessions.Save(ctx, session); err != nil {
		// The session expired while this turn was in flight; its result is
		// discarded rather than applied to evicted state.
		span.RecordError(err)
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if userMsg != nil {
		e.mirrorMessage(ctx, session.ID, *userMsg)
	}
	if len(session.Messages) > 0 {
		e.mirrorMessage(ctx, session.ID, session.Messages[len(session.Messages)-1])
	}
	e.metrics.TurnProcessed(string(session.State), e.now().Sub(started))

	return resp, nil
}

// GetSession returns a read-only snapshot.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*SessionView, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionNotFound
	}
	session, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return viewOf(session), nil
}

// handleSymptoms stores the symptom report and resolves classification in
// the same turn. Empty input is a local validation miss: re-prompt without
// touching the classifier.
func (e *Engine) handleSymptoms(ctx context.Context, s *Session, input string) *TurnResponse {
	text := strings.TrimSpace(input)
	if text == "" {
		return e.reply(s, MessageTypeText, greetingMessage, nil)
	}

	s.Symptoms = &SymptomReport{Raw: text}
	s.setState(StateSymptomAnalysis)

	classification, err := e.classifier.Classify(ctx, text)
	if err != nil {
		// Classification never blocks the flow: fall back to a general
		// physician and keep going.
		e.logger.Warn("symptom classification failed, using fallback",
			"session_id", s.ID, "error", err)
		e.events.ErrorOccurred(ctx, s.ID, s.State, "classify", err)
		e.metrics.ClassificationFallback()
		classification = triage.GeneralFallback()
		classification.Symptoms = []string{text}
	}

	s.Classification = &classification
	s.Symptoms.Keywords = classification.Symptoms
	s.setState(StateDoctorConfirmation)
	e.events.SymptomsClassified(ctx, s.ID, classification, classification.Fallback)

	return e.reply(s, MessageTypeSymptomSummary, symptomSummaryMessage(classification), map[string]any{
		"analysis": classification,
	})
}

// handleDoctorConfirmation interprets the reply as yes, an alternate
// specialist, or anything else. An alternate overwrites the recommendation
// and re-presents it for confirmation; anything unrecognized re-prompts.
func (e *Engine) handleDoctorConfirmation(ctx context.Context, s *Session, input string) *TurnResponse {
	if s.Classification == nil {
		s.beginCycle()
		return e.handleSymptoms(ctx, s, input)
	}

	if isSpecialistAffirmative(input) {
		return e.fetchAndPresentAvailability(ctx, s)
	}

	if alt, ok := matchAlternateSpecialist(input, s.Classification.Specialist); ok {
		e.events.SpecialistSwitched(ctx, s.ID, s.Classification.Specialist, alt)
		s.Classification.Specialist = alt
		s.Classification.Reason = fmt.Sprintf("Patient requested a %s directly", alt.Display())
		s.Classification.Confidence = 1.0
		s.Classification.Fallback = false
		return e.reply(s, MessageTypeSymptomSummary, symptomSummaryMessage(*s.Classification), map[string]any{
			"analysis": *s.Classification,
		})
	}

	return e.reply(s, MessageTypeText, specialistRepromptMessage(s.Classification.Specialist), nil)
}

// fetchAndPresentAvailability pulls a fresh snapshot and moves the session
// into slot selection. On failure the session rests in FETCH_AVAILABILITY,
// where the patient can retry or go back to the specialist step.
func (e *Engine) fetchAndPresentAvailability(ctx context.Context, s *Session) *TurnResponse {
	specialist := e.currentSpecialist(s)
	s.setState(StateFetchAvailability)
	started := e.now()

	availability, err := e.directory.FetchAvailability(ctx, specialist)
	if err == nil && len(availability.Hospitals) == 0 {
		err = fmt.Errorf("conversation: no hospitals available for %s", specialist)
	}
	if err != nil {
		e.logger.Error("availability fetch failed", "session_id", s.ID, "specialist", string(specialist), "error", err)
		e.events.ErrorOccurred(ctx, s.ID, s.State, "fetch_availability", err)
		e.metrics.AvailabilityFailure()
		return e.reply(s, MessageTypeError, availabilityFailureMessage, map[string]any{
			"error_code": string(ErrCodeAvailability),
		})
	}

	s.Availability = &availability
	s.Selection = nil
	s.setState(StateSlotSelection)
	e.events.AvailabilityFetched(ctx, s.ID, specialist, len(availability.Hospitals), len(availability.Options()), e.now().Sub(started).Milliseconds())

	return e.reply(s, MessageTypeDoctorSelection, doctorOptionsMessage(specialist), e.availabilityData(s))
}

// handleFetchRetry rests after a failed availability fetch. Yes retries the
// same specialist; no returns to the confirmation step.
func (e *Engine) handleFetchRetry(ctx context.Context, s *Session, input string) *TurnResponse {
	if isRejection(input) {
		s.setState(StateDoctorConfirmation)
		if s.Classification != nil {
			return e.reply(s, MessageTypeSymptomSummary, symptomSummaryMessage(*s.Classification), map[string]any{
				"analysis": *s.Classification,
			})
		}
		return e.reply(s, MessageTypeText, specialistRepromptMessage(e.currentSpecialist(s)), nil)
	}

	if isSpecialistAffirmative(input) {
		return e.fetchAndPresentAvailability(ctx, s)
	}

	return e.reply(s, MessageTypeText, availabilityRetryPromptMessage, nil)
}

// handleSlotSelection validates a structured selection against the frozen
// snapshot. Free text at this stage earns a re-prompt, unless it asks to go
// back to the specialist step.
func (e *Engine) handleSlotSelection(ctx context.Context, s *Session, input string, sel *Selection) *TurnResponse {
	if s.Availability == nil {
		// Snapshot lost (should not happen); back up one step and refetch on
		// the next confirmation.
		s.setState(StateDoctorConfirmation)
		return e.reply(s, MessageTypeError, availabilityFailureMessage, map[string]any{
			"error_code": string(ErrCodeAvailability),
		})
	}

	if sel == nil {
		if isRejection(input) && s.Classification != nil {
			s.setState(StateDoctorConfirmation)
			return e.reply(s, MessageTypeSymptomSummary, symptomSummaryMessage(*s.Classification), map[string]any{
				"analysis": *s.Classification,
			})
		}
		return e.reply(s, MessageTypeDoctorSelection, slotRepromptMessage, e.availabilityData(s))
	}

	hospital, doctor, slot, ok := s.Availability.Find(sel.HospitalID, sel.DoctorID, sel.SlotID)
	if !ok || !slot.Available {
		data := e.availabilityData(s)
		data["error_code"] = string(ErrCodeValidation)
		return e.reply(s, MessageTypeError, invalidSelectionMessage, data)
	}

	chosen := *sel
	s.Selection = &chosen
	s.setState(StateBookingConfirmation)
	e.events.SlotSelected(ctx, s.ID, chosen)

	return e.reply(s, MessageTypeBookingSummary, bookingSummaryMessage(hospital, doctor, slot), e.summaryData(s, hospital, doctor, slot))
}

// handleBookingConfirmation runs the commit. Yes attempts the ledger write;
// no returns to slot selection on the same snapshot; anything else re-sends
// the summary.
func (e *Engine) handleBookingConfirmation(ctx context.Context, s *Session, input string) *TurnResponse {
	if s.Availability == nil || s.Selection == nil {
		s.Selection = nil
		s.setState(StateDoctorConfirmation)
		return e.reply(s, MessageTypeError, availabilityFailureMessage, map[string]any{
			"error_code": string(ErrCodeAvailability),
		})
	}

	hospital, doctor, slot, ok := s.Availability.Find(s.Selection.HospitalID, s.Selection.DoctorID, s.Selection.SlotID)
	if !ok {
		s.Selection = nil
		s.setState(StateSlotSelection)
		return e.reply(s, MessageTypeDoctorSelection, invalidSelectionMessage, e.availabilityData(s))
	}

	if isBookingAffirmative(input) {
		return e.commitBooking(ctx, s, hospital, doctor, slot)
	}

	if isRejection(input) {
		s.Selection = nil
		s.setState(StateSlotSelection)
		return e.reply(s, MessageTypeDoctorSelection, slotRepromptMessage, e.availabilityData(s))
	}

	return e.reply(s, MessageTypeBookingSummary, bookingSummaryMessage(hospital, doctor, slot), e.summaryData(s, hospital, doctor, slot))
}

func (e *Engine) commitBooking(ctx context.Context, s *Session, hospital directory.Hospital, doctor directory.Doctor, slot directory.TimeSlot) *TurnResponse {
	draft := booking.Draft{
		SessionID:       s.ID,
		Specialist:      e.currentSpecialist(s),
		HospitalID:      hospital.ID,
		HospitalName:    hospital.Name,
		HospitalAddress: hospital.Address,
		DoctorID:        doctor.ID,
		DoctorName:      doctor.Name,
		Specialization:  doctor.Specialization,
		ExperienceYears: doctor.ExperienceYears,
		ConsultationFee: doctor.ConsultationFee,
		SlotID:          slot.ID,
		SlotDate:        slot.Date,
		SlotTime:        slot.Time,
	}
	if s.Symptoms != nil {
		draft.Symptoms = s.Symptoms.Raw
	}

	committed, err := e.ledger.TryCommit(ctx, draft)
	if errors.Is(err, booking.ErrSlotTaken) {
		return e.handleSlotConflict(ctx, s, doctor.ID, slot.ID)
	}
	if err != nil {
		e.logger.Error("booking commit failed", "session_id", s.ID, "doctor_id", doctor.ID, "slot_id", slot.ID, "error", err)
		e.events.ErrorOccurred(ctx, s.ID, s.State, "commit_booking", err)
		return e.reply(s, MessageTypeError, bookingFailureMessage, map[string]any{
			"error_code": string(ErrCodeInternal),
		})
	}

	s.Booking = &committed
	s.setState(StateCompleted)
	e.events.BookingConfirmed(ctx, s.ID, committed)
	e.metrics.BookingCommitted(string(committed.Specialist))
	e.afterCommit(ctx, s, committed)

	return e.reply(s, MessageTypeConfirmation, bookingConfirmedMessage(committed), map[string]any{
		"booking":    committed,
		"booking_id": committed.ID,
	})
}

// handleSlotConflict reports the race loss and re-fetches availability so
// the patient is not left choosing from a snapshot that just went stale.
func (e *Engine) handleSlotConflict(ctx context.Context, s *Session, doctorID, slotID string) *TurnResponse {
	e.events.BookingConflict(ctx, s.ID, doctorID, slotID)
	e.metrics.BookingConflict()

	specialist := e.currentSpecialist(s)
	if refreshed, err := e.directory.FetchAvailability(ctx, specialist); err == nil && len(refreshed.Hospitals) > 0 {
		s.Availability = &refreshed
	} else if err != nil {
		e.logger.Warn("availability refresh after conflict failed, keeping previous snapshot",
			"session_id", s.ID, "error", err)
	}

	s.Selection = nil
	s.setState(StateSlotSelection)

	data := e.availabilityData(s)
	data["error_code"] = string(ErrCodeSlotConflict)
	return e.reply(s, MessageTypeError, slotConflictMessage, data)
}

// handleCompleted keeps the terminal state idempotent: repeating the
// confirmation re-sends the existing booking, and any other input starts a
// fresh cycle with the input consumed as the new symptom report.
func (e *Engine) handleCompleted(ctx context.Context, s *Session, input string) *TurnResponse {
	if s.Booking != nil && isBookingAffirmative(input) {
		b := *s.Booking
		return e.reply(s, MessageTypeConfirmation, bookingConfirmedMessage(b), map[string]any{
			"booking":    b,
			"booking_id": b.ID,
		})
	}

	s.beginCycle()
	e.events.CycleRestarted(ctx, s.ID, s.Cycle)
	return e.handleSymptoms(ctx, s, input)
}

// afterCommit runs the write-behind side effects. The booking is already
// committed; failures here are logged and swallowed.
func (e *Engine) afterCommit(ctx context.Context, s *Session, b booking.Booking) {
	if e.bookings != nil {
		if err := e.bookings.Insert(ctx, b); err != nil {
			e.logger.Error("failed to mirror booking to storage", "booking_id", b.ID, "error", err)
		}
	}
	if e.notifier != nil {
		if err := e.notifier.BookingConfirmed(ctx, b); err != nil {
			e.logger.Error("failed to send booking notification", "booking_id", b.ID, "error", err)
		}
	}
	if e.archiver != nil {
		record := struct {
			Booking booking.Booking `json:"booking"`
			Session *SessionView    `json:"session"`
		}{Booking: b, Session: viewOf(s)}
		if body, err := json.Marshal(record); err == nil {
			key := fmt.Sprintf("bookings/%s/%s.json", b.BookedAt.UTC().Format("2006/01"), b.ID)
			if err := e.archiver.Put(ctx, key, body); err != nil {
				e.logger.Error("failed to archive booking record", "booking_id", b.ID, "error", err)
			}
		}
	}
	if err := e.turns.MarkCompleted(ctx, s.ID, b.ID, b.BookedAt); err != nil {
		e.logger.Error("failed to mark session completed", "session_id", s.ID, "error", err)
	}
}

func (e *Engine) reply(s *Session, msgType MessageType, content string, data map[string]any) *TurnResponse {
	s.appendMessage(RoleAssistant, msgType, content, e.now().UTC())
	return &TurnResponse{
		SessionID: s.ID,
		State:     s.State,
		Message:   content,
		Type:      msgType,
		Data:      data,
	}
}

func (e *Engine) currentSpecialist(s *Session) triage.Specialist {
	if s.Classification != nil {
		return s.Classification.Specialist
	}
	return triage.SpecialistGeneralPhysician
}

// availabilityData is the doctor_selection payload: the full snapshot the
// client selects against, so selection validation has a consistent
// reference set.
func (e *Engine) availabilityData(s *Session) map[string]any {
	hospitals := []directory.Hospital{}
	if s.Availability != nil {
		hospitals = s.Availability.Hospitals
	}
	return map[string]any{
		"hospitals":       hospitals,
		"specialist_type": e.currentSpecialist(s).Display(),
	}
}

func (e *Engine) summaryData(s *Session, h directory.Hospital, d directory.Doctor, slot directory.TimeSlot) map[string]any {
	var keywords []string
	if s.Symptoms != nil {
		keywords = s.Symptoms.Keywords
	}
	return map[string]any{
		"booking_summary": map[string]any{
			"doctor": d,
			"hospital": map[string]any{
				"hospital_id": h.ID,
				"name":        h.Name,
				"address":     h.Address,
				"rating":      h.Rating,
			},
			"slot":            slot,
			"specialist_type": e.currentSpecialist(s).Display(),
			"symptoms":        keywords,
		},
	}
}

func (e *Engine) mirrorMessage(ctx context.Context, sessionID string, msg Message) {
	if err := e.turns.AppendMessage(ctx, sessionID, msg); err != nil {
		e.logger.Error("failed to mirror transcript message", "session_id", sessionID, "error", err)
	}
}

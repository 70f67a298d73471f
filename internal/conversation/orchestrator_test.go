package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

type stubService struct {
	createResp    *TurnResponse
	turnResp      *TurnResponse
	err           error
	lastCreateReq CreateSessionRequest
	lastTurnReq   TurnRequest
	getCalls      int
}

func (s *stubService) CreateSession(ctx context.Context, req CreateSessionRequest) (*TurnResponse, error) {
	s.lastCreateReq = req
	if s.err != nil {
		return nil, s.err
	}
	if s.createResp != nil {
		return s.createResp, nil
	}
	return &TurnResponse{SessionID: "sess-new", State: StateSymptomCollection, Message: greetingMessage, Type: MessageTypeText}, nil
}

func (s *stubService) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	s.lastTurnReq = req
	if s.err != nil {
		return nil, s.err
	}
	if s.turnResp != nil {
		return s.turnResp, nil
	}
	return &TurnResponse{SessionID: req.SessionID, State: StateDoctorConfirmation, Message: "ok", Type: MessageTypeText}, nil
}

func (s *stubService) GetSession(ctx context.Context, sessionID string) (*SessionView, error) {
	s.getCalls++
	if s.err != nil {
		return nil, s.err
	}
	return &SessionView{SessionID: sessionID, State: StateSymptomCollection}, nil
}

func newTestOrchestrator(t *testing.T, service Service) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(
		service,
		NewMemoryQueue(32),
		logging.Default(),
		WithWorkerCount(1),
		WithReceiveBatchSize(1),
		WithReceiveWaitSeconds(0),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = o.Shutdown(ctx)
	})
	return o
}

func TestOrchestrator_CreateSession(t *testing.T) {
	service := &stubService{
		createResp: &TurnResponse{SessionID: "sess-1", State: StateSymptomCollection, Message: greetingMessage, Type: MessageTypeText},
	}
	o := newTestOrchestrator(t, service)

	resp, err := o.CreateSession(context.Background(), CreateSessionRequest{Source: "web"})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if resp.SessionID != "sess-1" {
		t.Errorf("session ID = %q, want sess-1", resp.SessionID)
	}
	if service.lastCreateReq.Source != "web" {
		t.Errorf("service saw source %q, want web", service.lastCreateReq.Source)
	}
}

func TestOrchestrator_ProcessTurn(t *testing.T) {
	service := &stubService{}
	o := newTestOrchestrator(t, service)

	sel := &Selection{HospitalID: "hosp_001", DoctorID: "doc_001", SlotID: "doc_001_2026-08-26_0900_AM"}
	resp, err := o.ProcessTurn(context.Background(), TurnRequest{SessionID: "sess-1", Message: "yes", Selection: sel})
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if resp.SessionID != "sess-1" {
		t.Errorf("session ID = %q, want sess-1", resp.SessionID)
	}
	if service.lastTurnReq.Message != "yes" {
		t.Errorf("service saw message %q, want yes", service.lastTurnReq.Message)
	}
	if service.lastTurnReq.Selection == nil || service.lastTurnReq.Selection.SlotID != sel.SlotID {
		t.Errorf("selection did not survive the queue: %+v", service.lastTurnReq.Selection)
	}
}

func TestOrchestrator_PropagatesServiceError(t *testing.T) {
	service := &stubService{err: ErrSessionNotFound}
	o := newTestOrchestrator(t, service)

	_, err := o.ProcessTurn(context.Background(), TurnRequest{SessionID: "ghost", Message: "hello"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("ProcessTurn() error = %v, want ErrSessionNotFound", err)
	}
}

func TestOrchestrator_GetSessionBypassesQueue(t *testing.T) {
	service := &stubService{}
	o := newTestOrchestrator(t, service)

	view, err := o.GetSession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if view.SessionID != "sess-1" {
		t.Errorf("view session ID = %q", view.SessionID)
	}
	if service.getCalls != 1 {
		t.Errorf("GetSession() reached the service %d times, want 1", service.getCalls)
	}
}

type blockingService struct {
	stubService
	block chan struct{}
}

func (b *blockingService) CreateSession(ctx context.Context, req CreateSessionRequest) (*TurnResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.block:
		return &TurnResponse{SessionID: "unblocked"}, nil
	}
}

func TestOrchestrator_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	service := &blockingService{block: block}
	o := newTestOrchestrator(t, service)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := o.CreateSession(ctx, CreateSessionRequest{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("CreateSession() error = %v, want context.DeadlineExceeded", err)
	}

	close(block)
}

func TestOrchestrator_ShutdownStopsDispatch(t *testing.T) {
	service := &stubService{}
	o := NewOrchestrator(service, NewMemoryQueue(4), logging.Default(), WithWorkerCount(1), WithReceiveWaitSeconds(0))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := o.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if _, err := o.CreateSession(context.Background(), CreateSessionRequest{}); !errors.Is(err, ErrOrchestratorClosed) {
		t.Fatalf("CreateSession() after shutdown error = %v, want ErrOrchestratorClosed", err)
	}
}

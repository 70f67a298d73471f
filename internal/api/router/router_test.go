package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/medbook-ai-platform/internal/booking"
	"github.com/wolfman30/medbook-ai-platform/internal/conversation"
	"github.com/wolfman30/medbook-ai-platform/internal/http/handlers"
	"github.com/wolfman30/medbook-ai-platform/internal/webchat"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

const testStaffSecret = "router-test-secret"

// noopService satisfies conversation.Service with canned replies.
type noopService struct{}

func (noopService) CreateSession(ctx context.Context, req conversation.CreateSessionRequest) (*conversation.TurnResponse, error) {
	return &conversation.TurnResponse{
		SessionID: "sess-router",
		State:     conversation.StateSymptomCollection,
		Message:   "Hello!",
		Type:      conversation.MessageTypeText,
	}, nil
}

func (noopService) ProcessTurn(ctx context.Context, req conversation.TurnRequest) (*conversation.TurnResponse, error) {
	return &conversation.TurnResponse{
		SessionID: req.SessionID,
		State:     conversation.StateSymptomAnalysis,
		Message:   "Noted.",
		Type:      conversation.MessageTypeText,
	}, nil
}

func (noopService) GetSession(ctx context.Context, sessionID string) (*conversation.SessionView, error) {
	return &conversation.SessionView{SessionID: sessionID, State: conversation.StateSymptomCollection}, nil
}

// noopSessionReader satisfies the transcript admin handler.
type noopSessionReader struct{}

func (noopSessionReader) ListSessions(ctx context.Context, statuses []string, limit int) ([]conversation.SessionSummary, error) {
	return []conversation.SessionSummary{}, nil
}

func (noopSessionReader) GetMessages(ctx context.Context, sessionID string, limit int) ([]conversation.Message, error) {
	return nil, nil
}

// noopBookingStore satisfies both admin handler interfaces.
type noopBookingStore struct{}

func (noopBookingStore) ListRecent(ctx context.Context, limit int) ([]booking.Booking, error) {
	return []booking.Booking{}, nil
}

func (noopBookingStore) GetByID(ctx context.Context, bookingID string) (booking.Booking, error) {
	return booking.Booking{}, booking.ErrBookingNotFound
}

func (noopBookingStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}

func (noopBookingStore) CountByDay(ctx context.Context, since time.Time) ([]booking.DayCount, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.Default()
	store := noopBookingStore{}

	cfg := &Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(noopService{}, nil, nil, logger),
		WebChatHandler:      webchat.NewHandler(noopService{}, []byte("// widget"), logger),
		AdminBookings:       handlers.NewAdminBookingsHandler(store, logger),
		AdminSessions:       handlers.NewAdminSessionsHandler(noopSessionReader{}, logger),
		AdminDashboard:      handlers.NewAdminDashboardHandler(store, prometheus.NewRegistry(), logger),
		StaffAuthSecret:     testStaffSecret,
	}

	return New(cfg)
}

func staffToken(t *testing.T) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   "staff-router-test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testStaffSecret))
	if err != nil {
		t.Fatalf("failed to sign staff token: %v", err)
	}
	return token
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterCreateSessionEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"source":"web"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}

	var resp conversation.TurnResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SessionID != "sess-router" {
		t.Errorf("expected session_id 'sess-router', got %q", resp.SessionID)
	}
}

func TestRouterChatEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{"session_id":"sess-router","message":"I have a headache"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp conversation.TurnResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.State != conversation.StateSymptomAnalysis {
		t.Errorf("expected state %q, got %q", conversation.StateSymptomAnalysis, resp.State)
	}
}

func TestRouterGetSessionEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/session/sess-router", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

// TestRouterJobsUnavailableWithoutQueue documents that the async endpoints
// are registered but return 503 when no queue is wired at startup, so a
// misconfigured deployment is visible instead of silently 404ing.
func TestRouterJobsUnavailableWithoutQueue(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/session", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}

func TestRouterWebchatWidgetEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/webchat/widget.js", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/javascript" {
		t.Errorf("expected javascript content type, got %s", ct)
	}
}

func TestRouterAdminRequiresStaffToken(t *testing.T) {
	router := newTestRouter(t)

	for _, route := range []string{
		"/admin/api/bookings",
		"/admin/api/bookings/APT-123",
		"/admin/api/sessions",
		"/admin/api/sessions/sess-1",
		"/admin/api/dashboard",
	} {
		req := httptest.NewRequest(http.MethodGet, route, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 without token, got %d", route, rr.Code)
		}
	}
}

func TestRouterAdminWithStaffToken(t *testing.T) {
	router := newTestRouter(t)
	token := staffToken(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp handlers.ListBookingsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("expected empty booking list, got %d", resp.Total)
	}
}

func TestRouterAdminSessionsWithStaffToken(t *testing.T) {
	router := newTestRouter(t)
	token := staffToken(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/sessions?limit=5", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp handlers.ListSessionsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("expected empty session list, got %d", resp.Total)
	}
}

func TestRouterAdminDashboardWithStaffToken(t *testing.T) {
	router := newTestRouter(t)
	token := staffToken(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/dashboard?days=7", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

// TestRouterAdminDisabledWithoutSecret verifies staff routes stay registered
// with an empty secret and reject every request, rather than disappearing.
func TestRouterAdminDisabledWithoutSecret(t *testing.T) {
	logger := logging.Default()
	store := noopBookingStore{}
	router := New(&Config{
		Logger:        logger,
		AdminBookings: handlers.NewAdminBookingsHandler(store, logger),
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/api/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with staff auth disabled, got %d", rr.Code)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	logger := logging.Default()
	router := New(&Config{
		Logger:         logger,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestRouterRateLimitOnAPI(t *testing.T) {
	logger := logging.Default()
	router := New(&Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(noopService{}, nil, nil, logger),
		RateLimitPerSecond:  1,
		RateLimitBurst:      1,
	})

	body := `{"session_id":"sess-1","message":"hi"}`
	first := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, first)
	if rr.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rr.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, second)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rr.Code)
	}

	// Health is outside the rate-limited group.
	health := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, health)
	if rr.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rr.Code)
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/medbook-ai-platform/internal/conversation"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

// SessionReader is the slice of the transcript mirror the support surface
// reads.
type SessionReader interface {
	ListSessions(ctx context.Context, statuses []string, limit int) ([]conversation.SessionSummary, error)
	GetMessages(ctx context.Context, sessionID string, limit int) ([]conversation.Message, error)
}

// AdminSessionsHandler serves the staff view of mirrored conversation
// transcripts for support lookups.
type AdminSessionsHandler struct {
	sessions SessionReader
	logger   *logging.Logger
}

// NewAdminSessionsHandler creates a new admin sessions handler.
func NewAdminSessionsHandler(sessions SessionReader, logger *logging.Logger) *AdminSessionsHandler {
	if sessions == nil {
		panic("handlers: session reader cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminSessionsHandler{sessions: sessions, logger: logger}
}

// ListSessionsResponse contains sessions with the most recent activity first.
type ListSessionsResponse struct {
	Sessions []conversation.SessionSummary `json:"sessions"`
	Total    int                           `json:"total"`
}

// ListSessions returns mirrored sessions, optionally filtered by status.
// GET /admin/api/sessions?status=active,completed&limit=50
func (h *AdminSessionsHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	var statuses []string
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				statuses = append(statuses, trimmed)
			}
		}
	}

	sessions, err := h.sessions.ListSessions(r.Context(), statuses, limit)
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := ListSessionsResponse{Sessions: sessions, Total: len(sessions)}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode sessions response", "error", err)
	}
}

// SessionTranscriptResponse is a full mirrored transcript.
type SessionTranscriptResponse struct {
	SessionID string                 `json:"session_id"`
	Messages  []conversation.Message `json:"messages"`
}

// GetTranscript returns one session's transcript in chronological order.
// GET /admin/api/sessions/{sessionID}
func (h *AdminSessionsHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "missing sessionID", http.StatusBadRequest)
		return
	}

	messages, err := h.sessions.GetMessages(r.Context(), sessionID, 0)
	if err != nil {
		h.logger.Error("failed to load transcript", "error", err, "session_id", sessionID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(messages) == 0 {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	resp := SessionTranscriptResponse{SessionID: sessionID, Messages: messages}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode transcript response", "error", err)
	}
}

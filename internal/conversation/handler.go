package conversation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

// Handler wires HTTP requests to the conversation service.
//
// The synchronous endpoints serve the web chat directly. The job endpoints
// accept work for the queue worker and hand back a job ID the client polls,
// and respond 503 when no queue is configured.
type Handler struct {
	service  Service
	enqueuer Enqueuer
	jobs     JobRecorder
	logger   *logging.Logger
}

// NewHandler creates a conversation handler. The enqueuer and job store are
// optional; without them only the synchronous endpoints are served.
func NewHandler(service Service, enqueuer Enqueuer, jobs JobRecorder, logger *logging.Logger) *Handler {
	if service == nil {
		panic("conversation: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:  service,
		enqueuer: enqueuer,
		jobs:     jobs,
		logger:   logger,
	}
}

// CreateSession handles POST /api/session. The body is optional.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Error("failed to decode session request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.CreateSession(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, resp)
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	resp, err := h.service.ProcessTurn(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to process chat turn", "error", err, "session_id", req.SessionID)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetSession handles GET /api/session/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if strings.TrimSpace(sessionID) == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	view, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load session", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

// EnqueueSession handles POST /api/jobs/session and returns a job ID.
func (h *Handler) EnqueueSession(w http.ResponseWriter, r *http.Request) {
	if !h.asyncEnabled(w) {
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Error("failed to decode session request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	jobID := uuid.NewString()
	record := &JobRecord{
		JobID:         jobID,
		Status:        JobStatusPending,
		RequestType:   jobTypeCreate,
		CreateRequest: &req,
	}
	if err := h.jobs.PutPending(r.Context(), record); err != nil {
		h.logger.Error("failed to record pending job", "error", err, "job_id", jobID)
		http.Error(w, "Failed to accept job", http.StatusInternalServerError)
		return
	}

	if err := h.enqueuer.EnqueueCreate(r.Context(), jobID, req); err != nil {
		h.logger.Error("failed to enqueue session job", "error", err, "job_id", jobID)
		http.Error(w, "Failed to accept job", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

// EnqueueChat handles POST /api/jobs/chat and returns a job ID.
func (h *Handler) EnqueueChat(w http.ResponseWriter, r *http.Request) {
	if !h.asyncEnabled(w) {
		return
	}

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	jobID := uuid.NewString()
	record := &JobRecord{
		JobID:       jobID,
		Status:      JobStatusPending,
		RequestType: jobTypeTurn,
		SessionID:   req.SessionID,
		TurnRequest: &req,
	}
	if err := h.jobs.PutPending(r.Context(), record); err != nil {
		h.logger.Error("failed to record pending job", "error", err, "job_id", jobID)
		http.Error(w, "Failed to accept job", http.StatusInternalServerError)
		return
	}

	if err := h.enqueuer.EnqueueTurn(r.Context(), jobID, req); err != nil {
		h.logger.Error("failed to enqueue chat job", "error", err, "job_id", jobID)
		http.Error(w, "Failed to accept job", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

// JobStatus handles GET /api/jobs/{jobID}.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		http.Error(w, "Job queue not configured", http.StatusServiceUnavailable)
		return
	}

	jobID := chi.URLParam(r, "jobID")
	if strings.TrimSpace(jobID) == "" {
		http.Error(w, "job ID is required", http.StatusBadRequest)
		return
	}

	record, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load job", "error", err, "job_id", jobID)
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, record)
}

func (h *Handler) asyncEnabled(w http.ResponseWriter) bool {
	if h.enqueuer == nil || h.jobs == nil {
		http.Error(w, "Job queue not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

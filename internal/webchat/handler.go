// Package webchat is the browser-facing chat surface. It speaks a small
// JSON protocol over a WebSocket (with an HTTP fallback) and drives the
// same conversation service the REST API uses, so a visitor can go from
// symptoms to a confirmed booking without leaving the widget.
package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/medbook-ai-platform/internal/conversation"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

// Handler manages web chat connections and messages.
type Handler struct {
	service  conversation.Service
	logger   *logging.Logger
	widgetJS []byte

	mu       sync.RWMutex
	sessions map[string]*wsConn // sessionID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes; turns and pings interleave
}

func (c *wsConn) send(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.conn, msg)
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string                  `json:"type"` // "message", "ping"
	SessionID string                  `json:"session_id,omitempty"`
	Text      string                  `json:"text,omitempty"`
	Selection *conversation.Selection `json:"selected_data,omitempty"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type        string                   `json:"type"` // "message", "typing", "history", "session", "pong", "error"
	Text        string                   `json:"text,omitempty"`
	Role        string                   `json:"role,omitempty"`
	MessageType conversation.MessageType `json:"message_type,omitempty"`
	State       conversation.State       `json:"state,omitempty"`
	Data        map[string]any           `json:"data,omitempty"`
	SessionID   string                   `json:"session_id,omitempty"`
	Timestamp   string                   `json:"timestamp,omitempty"`
	Messages    []HistoryMessage         `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role        string                   `json:"role"`
	Text        string                   `json:"text"`
	MessageType conversation.MessageType `json:"message_type"`
	Timestamp   string                   `json:"timestamp"`
}

// NewHandler creates a web chat handler. A nil widgetJS serves the embedded
// default widget.
func NewHandler(service conversation.Service, widgetJS []byte, logger *logging.Logger) *Handler {
	if service == nil {
		panic("webchat: conversation service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if widgetJS == nil {
		widgetJS = defaultWidgetJS
	}
	return &Handler{
		service:  service,
		logger:   logger,
		widgetJS: widgetJS,
		sessions: make(map[string]*wsConn),
	}
}

// Routes mounts the webchat endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/ws", h.HandleWebSocket)
	r.Post("/message", h.HandleMessage)
	r.Get("/history", h.HandleHistory)
	r.Get("/widget.js", h.HandleWidgetJS)
	return r
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	wsc := &wsConn{conn: conn}

	sessionID := r.URL.Query().Get("session")
	if sessionID != "" {
		// Reconnect: replay the transcript so the widget can re-render.
		view, err := h.service.GetSession(ctx, sessionID)
		if err != nil {
			if !errors.Is(err, conversation.ErrSessionNotFound) {
				h.logger.Error("webchat: failed to load session", "error", err, "session_id", sessionID)
			}
			sessionID = ""
		} else {
			_ = wsc.send(OutboundMessage{Type: "session", SessionID: view.SessionID, State: view.State})
			_ = wsc.send(OutboundMessage{Type: "history", Messages: historyOf(view.Messages)})
		}
	}
	if sessionID == "" {
		resp, err := h.service.CreateSession(ctx, conversation.CreateSessionRequest{Source: "webchat"})
		if err != nil {
			h.logger.Error("webchat: failed to create session", "error", err)
			_ = wsc.send(OutboundMessage{Type: "error", Text: "Unable to start a conversation right now. Please try again."})
			return
		}
		sessionID = resp.SessionID
		_ = wsc.send(OutboundMessage{Type: "session", SessionID: sessionID, State: resp.State})
		_ = wsc.send(outboundReply(resp))
	}

	h.mu.Lock()
	h.sessions[sessionID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[sessionID] == wsc {
			delete(h.sessions, sessionID)
		}
		h.mu.Unlock()
	}()

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = wsc.send(OutboundMessage{Type: "pong"})
			continue
		}

		if msg.Type != "message" {
			continue
		}
		if strings.TrimSpace(msg.Text) == "" && msg.Selection == nil {
			continue
		}

		_ = wsc.send(OutboundMessage{Type: "typing"})
		h.processTurn(ctx, wsc, sessionID, msg)
	}
}

func (h *Handler) processTurn(ctx context.Context, wsc *wsConn, sessionID string, msg InboundMessage) {
	resp, err := h.service.ProcessTurn(ctx, conversation.TurnRequest{
		SessionID: sessionID,
		Message:   msg.Text,
		Selection: msg.Selection,
	})
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			_ = wsc.send(OutboundMessage{
				Type: "error",
				Text: "This conversation has expired. Refresh to start a new one.",
				Data: map[string]any{"error_code": string(conversation.ErrCodeSessionGone)},
			})
			return
		}
		h.logger.Error("webchat: turn failed", "error", err, "session_id", sessionID)
		_ = wsc.send(OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
		return
	}
	_ = wsc.send(outboundReply(resp))
}

// SendToSession pushes a message to an active WebSocket connection, if any.
func (h *Handler) SendToSession(sessionID string, msg OutboundMessage) {
	h.mu.RLock()
	wsc, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	_ = wsc.send(msg)
}

// HandleMessage is the HTTP fallback for widgets that cannot hold a
// WebSocket open. Without a session_id it opens a session first and the
// reply is the greeting.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string                  `json:"session_id"`
		Text      string                  `json:"text"`
		Selection *conversation.Selection `json:"selected_data,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var (
		resp *conversation.TurnResponse
		err  error
	)
	if req.SessionID == "" {
		resp, err = h.service.CreateSession(r.Context(), conversation.CreateSessionRequest{Source: "webchat"})
	} else {
		if strings.TrimSpace(req.Text) == "" && req.Selection == nil {
			http.Error(w, "text or selected_data is required", http.StatusBadRequest)
			return
		}
		resp, err = h.service.ProcessTurn(r.Context(), conversation.TurnRequest{
			SessionID: req.SessionID,
			Message:   req.Text,
			Selection: req.Selection,
		})
	}
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("webchat: message failed", "error", err)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleHistory returns the transcript for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	view, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("webchat: failed to load history", "error", err, "session_id", sessionID)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": view.SessionID,
		"state":      view.State,
		"messages":   historyOf(view.Messages),
	})
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}

func outboundReply(resp *conversation.TurnResponse) OutboundMessage {
	return OutboundMessage{
		Type:        "message",
		Role:        "assistant",
		Text:        resp.Message,
		MessageType: resp.Type,
		State:       resp.State,
		Data:        resp.Data,
		SessionID:   resp.SessionID,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func historyOf(msgs []conversation.Message) []HistoryMessage {
	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:        m.Role,
			Text:        m.Content,
			MessageType: m.Type,
			Timestamp:   m.At.Format(time.RFC3339),
		})
	}
	return history
}

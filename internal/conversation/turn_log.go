package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TurnLog mirrors session transcripts to PostgreSQL for long-term history
// and support lookups. Redis remains the live store; everything here is
// best-effort and a nil TurnLog disables persistence entirely, so dev setups
// without Postgres keep working.
type TurnLog struct {
	db *sql.DB
}

// NewTurnLog creates a transcript mirror. Returns nil when db is nil.
func NewTurnLog(db *sql.DB) *TurnLog {
	if db == nil {
		return nil
	}
	return &TurnLog{db: db}
}

// EnsureSession creates the session row if it does not exist yet.
func (l *TurnLog) EnsureSession(ctx context.Context, sessionID string, createdAt time.Time) error {
	if l == nil || l.db == nil {
		return nil
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO conversation_sessions (
			session_id, status, message_count, user_message_count, assistant_message_count,
			started_at, created_at, updated_at
		) VALUES ($1, $2, 0, 0, 0, $3, $3, $3)
		ON CONFLICT (session_id) DO NOTHING
	`, sessionID, "active", createdAt)
	if err != nil {
		return fmt.Errorf("conversation: failed to ensure session row: %w", err)
	}
	return nil
}

// AppendMessage persists one transcript entry and bumps the counters.
func (l *TurnLog) AppendMessage(ctx context.Context, sessionID string, msg Message) error {
	if l == nil || l.db == nil {
		return nil
	}

	if err := l.EnsureSession(ctx, sessionID, msg.At); err != nil {
		return err
	}

	at := msg.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	result, err := l.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (
			id, session_id, role, message_type, content, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, uuid.New(), sessionID, msg.Role, string(msg.Type), msg.Content, at)
	if err != nil {
		return fmt.Errorf("conversation: failed to insert message: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("conversation: failed to read insert result: %w", err)
	}
	if rowsAffected == 0 {
		return nil
	}

	counterColumn := "message_count"
	if msg.Role == RoleUser {
		counterColumn = "user_message_count"
	} else if msg.Role == RoleAssistant {
		counterColumn = "assistant_message_count"
	}

	_, err = l.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE conversation_sessions SET
			message_count = message_count + 1,
			%s = %s + 1,
			last_message_at = $1,
			updated_at = $1
		WHERE session_id = $2
	`, counterColumn, counterColumn), at, sessionID)
	if err != nil {
		return fmt.Errorf("conversation: failed to update counters: %w", err)
	}
	return nil
}

// MarkCompleted stamps the session row once a booking commits.
func (l *TurnLog) MarkCompleted(ctx context.Context, sessionID, bookingID string, at time.Time) error {
	if l == nil || l.db == nil {
		return nil
	}

	_, err := l.db.ExecContext(ctx, `
		UPDATE conversation_sessions SET
			status = 'completed',
			booking_id = $1,
			completed_at = $2,
			updated_at = $2
		WHERE session_id = $3
	`, bookingID, at, sessionID)
	if err != nil {
		return fmt.Errorf("conversation: failed to mark session completed: %w", err)
	}
	return nil
}

// SessionSummary is one row of the support view over mirrored sessions.
type SessionSummary struct {
	SessionID     string     `json:"session_id"`
	Status        string     `json:"status"`
	BookingID     string     `json:"booking_id,omitempty"`
	MessageCount  int        `json:"message_count"`
	StartedAt     time.Time  `json:"started_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// ListSessions returns mirrored sessions newest-activity first, optionally
// filtered to the given statuses.
func (l *TurnLog) ListSessions(ctx context.Context, statuses []string, limit int) ([]SessionSummary, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT session_id, status, COALESCE(booking_id, ''), message_count,
		       started_at, last_message_at, completed_at
		FROM conversation_sessions
	`
	args := []any{}
	if len(statuses) > 0 {
		query += " WHERE status = ANY($1) ORDER BY updated_at DESC LIMIT $2"
		args = append(args, pq.Array(statuses), limit)
	} else {
		query += " ORDER BY updated_at DESC LIMIT $1"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		var lastAt, doneAt sql.NullTime
		if err := rows.Scan(&s.SessionID, &s.Status, &s.BookingID, &s.MessageCount, &s.StartedAt, &lastAt, &doneAt); err != nil {
			return nil, fmt.Errorf("conversation: failed to scan session row: %w", err)
		}
		if lastAt.Valid {
			t := lastAt.Time
			s.LastMessageAt = &t
		}
		if doneAt.Valid {
			t := doneAt.Time
			s.CompletedAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetMessages retrieves the mirrored transcript in chronological order.
func (l *TurnLog) GetMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}

	query := `
		SELECT role, message_type, content, created_at
		FROM conversation_messages
		WHERE session_id = $1
		ORDER BY created_at ASC
	`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to load messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var msgType string
		if err := rows.Scan(&msg.Role, &msgType, &msg.Content, &msg.At); err != nil {
			continue
		}
		msg.Type = MessageType(msgType)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

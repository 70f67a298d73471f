package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnLog_NilIsDisabled(t *testing.T) {
	log := NewTurnLog(nil)
	require.Nil(t, log)

	ctx := context.Background()
	assert.NoError(t, log.EnsureSession(ctx, "sess-1", time.Now()))
	assert.NoError(t, log.AppendMessage(ctx, "sess-1", Message{Role: RoleUser, Content: "hi"}))
	assert.NoError(t, log.MarkCompleted(ctx, "sess-1", "APT-1", time.Now()))

	messages, err := log.GetMessages(ctx, "sess-1", 10)
	assert.NoError(t, err)
	assert.Nil(t, messages)

	sessions, err := log.ListSessions(ctx, nil, 10)
	assert.NoError(t, err)
	assert.Nil(t, sessions)
}

func TestTurnLog_AppendMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewTurnLog(db)
	at := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO conversation_sessions").
		WithArgs("sess-1", "active", at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO conversation_messages").
		WithArgs(sqlmock.AnyArg(), "sess-1", RoleUser, string(MessageTypeText), "I have chest pain", at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE conversation_sessions").
		WithArgs(at, "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = log.AppendMessage(context.Background(), "sess-1", Message{
		Role:    RoleUser,
		Type:    MessageTypeText,
		Content: "I have chest pain",
		At:      at,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTurnLog_AppendMessage_DuplicateSkipsCounters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewTurnLog(db)
	at := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO conversation_sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// ON CONFLICT DO NOTHING reports zero rows; the counter update is skipped.
	mock.ExpectExec("INSERT INTO conversation_messages").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = log.AppendMessage(context.Background(), "sess-1", Message{Role: RoleAssistant, Content: "hello", At: at})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTurnLog_MarkCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewTurnLog(db)
	at := time.Date(2026, 8, 25, 11, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE conversation_sessions").
		WithArgs("APT-A1B2C3D4", at, "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = log.MarkCompleted(context.Background(), "sess-1", "APT-A1B2C3D4", at)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTurnLog_GetMessages(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewTurnLog(db)
	at := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"role", "message_type", "content", "created_at"}).
		AddRow(RoleAssistant, string(MessageTypeText), greetingMessage, at).
		AddRow(RoleUser, string(MessageTypeText), "chest pain", at.Add(time.Minute))
	mock.ExpectQuery("SELECT role, message_type, content, created_at").
		WithArgs("sess-1", 50).
		WillReturnRows(rows)

	messages, err := log.GetMessages(context.Background(), "sess-1", 50)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, RoleAssistant, messages[0].Role)
	assert.Equal(t, MessageTypeText, messages[0].Type)
	assert.Equal(t, "chest pain", messages[1].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTurnLog_ListSessions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewTurnLog(db)
	started := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	last := started.Add(5 * time.Minute)

	rows := sqlmock.NewRows([]string{"session_id", "status", "booking_id", "message_count", "started_at", "last_message_at", "completed_at"}).
		AddRow("sess-1", "completed", "APT-A1B2C3D4", 9, started, last, last).
		AddRow("sess-2", "active", "", 3, started, last, nil)
	mock.ExpectQuery("SELECT session_id, status").
		WithArgs(sqlmock.AnyArg(), 20).
		WillReturnRows(rows)

	sessions, err := log.ListSessions(context.Background(), []string{"active", "completed"}, 20)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "APT-A1B2C3D4", sessions[0].BookingID)
	assert.Equal(t, 9, sessions[0].MessageCount)
	require.NotNil(t, sessions[0].CompletedAt)
	assert.True(t, sessions[0].CompletedAt.Equal(last))
	assert.Equal(t, "active", sessions[1].Status)
	assert.Nil(t, sessions[1].CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTurnLog_ListSessions_DefaultLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := NewTurnLog(db)

	mock.ExpectQuery("SELECT session_id, status").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "status", "booking_id", "message_count", "started_at", "last_message_at", "completed_at"}))

	sessions, err := log.ListSessions(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, sessions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

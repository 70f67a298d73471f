package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// defaultSessionTTL is the idle timeout. Every saved turn refreshes it, so
// only sessions the user has walked away from expire.
const defaultSessionTTL = 30 * time.Minute

// SessionStore owns session persistence. Create fails if the ID already
// exists; Get and Save report ErrSessionNotFound for unknown or expired
// sessions. A Save against an expired session must fail rather than
// resurrect it, so results computed during an in-flight turn are discarded
// once the session is gone.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, session *Session) error
}

// RedisSessionStore keeps sessions in Redis with a rolling TTL.
type RedisSessionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore builds the store. A non-positive ttl selects the
// default idle timeout.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisSessionStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("medbook.internal.conversation.sessions")
	}
	return &RedisSessionStore{
		redis:  client,
		ttl:    ttl,
		tracer: tracer,
	}
}

// Create stores a brand-new session. SET NX guards against ID collisions.
func (s *RedisSessionStore) Create(ctx context.Context, session *Session) error {
	ctx, span := s.tracer.Start(ctx, "conversation.create_session",
		trace.WithAttributes(attribute.String("session.id", session.ID)))
	defer span.End()

	data, err := json.Marshal(session)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}
	ok, err := s.redis.SetNX(ctx, sessionKey(session.ID), data, s.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to create session: %w", err)
	}
	if !ok {
		return errors.New("conversation: session id already exists")
	}
	return nil
}

// Get loads a session by ID.
func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.get_session",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode session: %w", err)
	}
	return &session, nil
}

// Save writes back an existing session and refreshes its TTL. SET XX makes
// the write a no-op when the key has already expired, which surfaces as
// ErrSessionNotFound instead of silently reviving dead state.
func (s *RedisSessionStore) Save(ctx context.Context, session *Session) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_session",
		trace.WithAttributes(attribute.String("session.id", session.ID)))
	defer span.End()

	data, err := json.Marshal(session)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}
	ok, err := s.redis.SetXX(ctx, sessionKey(session.ID), data, s.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist session: %w", err)
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("conversation:session:%s", id)
}

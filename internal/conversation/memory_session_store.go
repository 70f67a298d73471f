package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MemorySessionStore is the in-process SessionStore used by tests and
// single-node dev setups. Sessions are stored as serialized snapshots so
// callers never share mutable state with the store, matching the isolation
// the Redis store provides.
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memorySession
	now      func() time.Time
}

type memorySession struct {
	data      []byte
	expiresAt time.Time
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore builds the store. A non-positive ttl selects the
// default idle timeout.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &MemorySessionStore{
		ttl:      ttl,
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

// Create stores a brand-new session.
func (s *MemorySessionStore) Create(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.sessions[session.ID]; ok && entry.expiresAt.After(now) {
		return errors.New("conversation: session id already exists")
	}
	s.sessions[session.ID] = memorySession{data: data, expiresAt: now.Add(s.ttl)}
	return nil
}

// Get loads a session by ID. Expired entries are dropped on access.
func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	if ok && !entry.expiresAt.After(s.now()) {
		delete(s.sessions, sessionID)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	var session Session
	if err := json.Unmarshal(entry.data, &session); err != nil {
		return nil, fmt.Errorf("conversation: failed to decode session: %w", err)
	}
	return &session, nil
}

// Save writes back an existing session and refreshes its TTL. Saving a
// session that already expired fails with ErrSessionNotFound so in-flight
// turn results are discarded rather than applied to evicted state.
func (s *MemorySessionStore) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.sessions[session.ID]
	if !ok || !entry.expiresAt.After(now) {
		delete(s.sessions, session.ID)
		return ErrSessionNotFound
	}
	s.sessions[session.ID] = memorySession{data: data, expiresAt: now.Add(s.ttl)}
	return nil
}

// Sweep removes all expired sessions and reports how many were dropped.
func (s *MemorySessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.sessions {
		if !entry.expiresAt.After(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (s *MemorySessionStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Len reports the number of live sessions, expired entries included until
// the next sweep touches them.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

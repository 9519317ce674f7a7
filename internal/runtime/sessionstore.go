package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"eventmind/internal/domain"
)

// Turn is one stored conversation turn. Only user/model text survives
// between invocations; tool rounds are transient within a single run.
type Turn struct {
	Role string // "user" | "model"
	Text string
}

type session struct {
	appName string
	userID  string
	turns   []Turn
}

// SessionStore is an in-memory session service. Sessions do not survive a
// process restart.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	logger   *slog.Logger
}

var _ domain.SessionService = (*SessionStore)(nil)

func NewSessionStore(logger *slog.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		logger:   logger,
	}
}

// Create registers a session. Re-creating an existing identifier replaces
// it with a fresh, empty session: a registration after invalidation is
// genuinely new even though the identifier string repeats.
func (s *SessionStore) Create(ctx context.Context, appName, userID, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("empty session identifier")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = &session{appName: appName, userID: userID}

	s.logger.Debug("session registered", "app", appName, "user", userID, "session", sessionID)
	return nil
}

// History returns the stored turns for a session.
func (s *SessionStore) History(sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	turns := make([]Turn, len(sess.turns))
	copy(turns, sess.turns)
	return turns, nil
}

// Append adds turns to a session's history.
func (s *SessionStore) Append(sessionID string, turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	sess.turns = append(sess.turns, turns...)
	return nil
}

// Delete removes a session. Deleting an unknown session is a no-op.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Len reports the number of registered sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

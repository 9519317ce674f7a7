package agent

import (
	"context"
	"log/slog"
	"sync"

	"eventmind/internal/domain"
)

// SessionRegistry maps a platform user ID to the conversation session held
// by the agent runtime. A session is registered remotely on first contact
// and reused until Invalidate removes it.
type SessionRegistry struct {
	service domain.SessionService
	appName string
	logger  *slog.Logger
	mu      sync.RWMutex
	active  map[string]string // userID -> sessionID
}

func NewSessionRegistry(service domain.SessionService, appName string, logger *slog.Logger) *SessionRegistry {
	return &SessionRegistry{
		service: service,
		appName: appName,
		logger:  logger,
		active:  make(map[string]string),
	}
}

// SessionID derives the session identifier for a user. Deterministic, so a
// session recreated after invalidation carries the same name even though
// the remote registration is new.
func SessionID(userID string) string {
	return "session_" + userID
}

// GetOrCreate returns the user's session ID, registering a new session with
// the session service on first contact. Concurrent calls for the same user
// issue exactly one remote Create.
func (r *SessionRegistry) GetOrCreate(ctx context.Context, userID string) (string, error) {
	// Fast path: most calls hit an existing mapping.
	r.mu.RLock()
	sessionID, ok := r.active[userID]
	r.mu.RUnlock()
	if ok {
		return sessionID, nil
	}

	// Slow path: write lock, double-check.
	r.mu.Lock()
	defer r.mu.Unlock()

	if sessionID, ok := r.active[userID]; ok {
		return sessionID, nil
	}

	sessionID = SessionID(userID)
	if err := r.service.Create(ctx, r.appName, userID, sessionID); err != nil {
		return "", err
	}
	r.active[userID] = sessionID

	r.logger.Info("new session created",
		"app", r.appName,
		"user", userID,
		"session", sessionID,
	)

	return sessionID, nil
}

// Invalidate drops the user's mapping. Called when the session service
// reports the session no longer exists; the next GetOrCreate registers a
// fresh one.
func (r *SessionRegistry) Invalidate(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[userID]; ok {
		delete(r.active, userID)
		r.logger.Info("session invalidated", "user", userID)
	}
}

package domain

import (
	"context"
	"errors"
)

// ErrSessionNotFound is reported by the session service (and propagated by
// runners) when a session identifier has no registration. The orchestrator
// uses it as its retry predicate.
var ErrSessionNotFound = errors.New("session not found")

// RunRequest is a single query submitted to the agent runtime.
type RunRequest struct {
	UserID    string
	SessionID string
	Text      string
}

// Escalation carries the runtime's error signal on a final event.
type Escalation struct {
	Message string
}

// RunEvent is one event from a runner's stream. The stream yields zero or
// more intermediate events and exactly one final event per successful run;
// the final event carries either text content or an escalation.
type RunEvent struct {
	Final      bool
	Content    string
	Escalation *Escalation
}

// Runner executes one agent invocation, emitting events on out in order.
// Implementations must stop promptly when ctx is canceled and must not
// close out (the caller owns the channel's read side and wraps Run in a
// goroutine that closes it).
type Runner interface {
	Run(ctx context.Context, req RunRequest, out chan<- RunEvent) error
}

// SessionService is the conversation-session store the agent runtime keeps
// its per-user history in. Get/Append report ErrSessionNotFound for
// identifiers that were never created or were deleted.
type SessionService interface {
	Create(ctx context.Context, appName, userID, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
}

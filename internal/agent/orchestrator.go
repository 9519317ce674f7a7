package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventmind/internal/domain"
)

const (
	// noFinalResponse is returned when the runner's stream ends without a
	// final event.
	noFinalResponse = "Agent did not produce a final response."
	// noEscalationMessage stands in for an escalation without a message.
	noEscalationMessage = "No specific message."

	runEventBuffer = 16
)

// Orchestrator drives one agent invocation per inbound message: resolve the
// session, run the runner, take the first final event, and retry exactly
// once with a fresh session when the runtime reports the session is gone.
type Orchestrator struct {
	runner   domain.Runner
	registry *SessionRegistry
	logger   *slog.Logger
}

func NewOrchestrator(runner domain.Runner, registry *SessionRegistry, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		runner:   runner,
		registry: registry,
		logger:   logger,
	}
}

// Handle submits query for userID and returns the agent's final text. All
// failure classes are converted to user-facing text here; Handle never
// returns an error.
func (o *Orchestrator) Handle(ctx context.Context, userID, query string) string {
	sessionID, err := o.registry.GetOrCreate(ctx, userID)
	if err != nil {
		o.logger.Error("session registration failed", "user", userID, "err", err)
		return errorText(err)
	}

	text, err := o.runOnce(ctx, domain.RunRequest{UserID: userID, SessionID: sessionID, Text: query})
	if err == nil {
		return text
	}

	if !errors.Is(err, domain.ErrSessionNotFound) {
		o.logger.Error("agent run failed", "user", userID, "err", err)
		return errorText(err)
	}

	// The runtime lost the session: invalidate, register a fresh one, and
	// retry the whole run exactly once.
	o.logger.Warn("session missing, retrying with a fresh session", "user", userID, "session", sessionID)
	o.registry.Invalidate(userID)

	sessionID, err = o.registry.GetOrCreate(ctx, userID)
	if err != nil {
		o.logger.Error("session re-registration failed", "user", userID, "err", err)
		return errorText(err)
	}

	text, err = o.runOnce(ctx, domain.RunRequest{UserID: userID, SessionID: sessionID, Text: query})
	if err != nil {
		o.logger.Error("agent retry failed", "user", userID, "err", err)
		return errorText(err)
	}
	return text
}

// runOnce executes a single run and consumes its event stream in arrival
// order, stopping at the first final event. Events after the final one are
// never read; the producer is canceled and drained instead.
func (o *Orchestrator) runOnce(ctx context.Context, req domain.RunRequest) (string, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan domain.RunEvent, runEventBuffer)
	errCh := make(chan error, 1)
	go func() {
		errCh <- o.runner.Run(runCtx, req, events)
		close(events)
	}()

	result := noFinalResponse
	sawFinal := false
	for evt := range events {
		if !evt.Final {
			continue
		}
		sawFinal = true
		switch {
		case evt.Content != "":
			result = evt.Content
		case evt.Escalation != nil:
			msg := evt.Escalation.Message
			if msg == "" {
				msg = noEscalationMessage
			}
			result = "Agent escalated: " + msg
		}
		cancel()
		break
	}
	for range events {
		// Drain so the producer goroutine can finish.
	}

	err := <-errCh
	if sawFinal {
		// The final event decides the result; a producer error caused by
		// our own cancellation is expected.
		return result, nil
	}
	if err != nil {
		return "", err
	}
	return result, nil
}

func errorText(err error) string {
	return fmt.Sprintf("Sorry, I encountered an error: %s", err)
}

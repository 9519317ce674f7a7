package runtime

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"eventmind/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSessionStore_CreateAndHistory(t *testing.T) {
	store := NewSessionStore(testLogger())
	ctx := context.Background()

	if err := store.Create(ctx, "EventMind", "U1", "session_U1"); err != nil {
		t.Fatal(err)
	}
	turns, err := store.History("session_U1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 0 {
		t.Errorf("new session should have empty history, got %d turns", len(turns))
	}
}

func TestSessionStore_AppendAndHistory(t *testing.T) {
	store := NewSessionStore(testLogger())
	ctx := context.Background()
	store.Create(ctx, "EventMind", "U1", "session_U1")

	err := store.Append("session_U1",
		Turn{Role: "user", Text: "明天開會"},
		Turn{Role: "model", Text: `{"type":"NeedMoreDetails","data":{"message":"幾點？"}}`},
	)
	if err != nil {
		t.Fatal(err)
	}

	turns, err := store.History("session_U1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != "user" || turns[1].Role != "model" {
		t.Errorf("unexpected roles: %q %q", turns[0].Role, turns[1].Role)
	}
}

func TestSessionStore_NotFound(t *testing.T) {
	store := NewSessionStore(testLogger())

	if _, err := store.History("missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("History err = %v, want ErrSessionNotFound", err)
	}
	if err := store.Append("missing", Turn{Role: "user", Text: "x"}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Append err = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_DeleteThenHistory(t *testing.T) {
	store := NewSessionStore(testLogger())
	ctx := context.Background()
	store.Create(ctx, "EventMind", "U1", "session_U1")

	if err := store.Delete(ctx, "session_U1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.History("session_U1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("deleted session should be gone, got %v", err)
	}
	// Deleting again is a no-op.
	if err := store.Delete(ctx, "session_U1"); err != nil {
		t.Errorf("double delete should not fail: %v", err)
	}
}

func TestSessionStore_RecreateResetsHistory(t *testing.T) {
	store := NewSessionStore(testLogger())
	ctx := context.Background()
	store.Create(ctx, "EventMind", "U1", "session_U1")
	store.Append("session_U1", Turn{Role: "user", Text: "old"})

	// Re-creating the same identifier is a genuinely new session.
	if err := store.Create(ctx, "EventMind", "U1", "session_U1"); err != nil {
		t.Fatal(err)
	}
	turns, err := store.History("session_U1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 0 {
		t.Errorf("recreated session must start empty, got %d turns", len(turns))
	}
}

func TestSessionStore_EmptyID(t *testing.T) {
	store := NewSessionStore(testLogger())
	if err := store.Create(context.Background(), "EventMind", "U1", ""); err == nil {
		t.Error("empty session identifier must be rejected")
	}
}

func TestSessionStore_HistoryIsCopy(t *testing.T) {
	store := NewSessionStore(testLogger())
	ctx := context.Background()
	store.Create(ctx, "EventMind", "U1", "session_U1")
	store.Append("session_U1", Turn{Role: "user", Text: "original"})

	turns, _ := store.History("session_U1")
	turns[0].Text = "mutated"

	again, _ := store.History("session_U1")
	if again[0].Text != "original" {
		t.Error("History must return a copy, not the backing slice")
	}
}

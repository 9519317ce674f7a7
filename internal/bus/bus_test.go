package bus

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"eventmind/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPublishSubscribe(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	msg := domain.InboundMessage{
		Channel:    "line",
		UserID:     "U1",
		ReplyToken: "rt",
		Content:    "hello",
		Timestamp:  time.Now(),
	}
	b.Publish(msg)

	select {
	case got := <-b.Subscribe():
		if got.UserID != "U1" || got.Content != "hello" {
			t.Errorf("received %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestSendOutbound_RoutesToHandler(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	received := make(chan domain.OutboundMessage, 1)
	b.OnOutbound("line", func(msg domain.OutboundMessage) {
		received <- msg
	})

	b.SendOutbound(domain.OutboundMessage{
		Channel:    "line",
		ReplyToken: "rt",
		Reply:      domain.TextReply("hi"),
	})

	select {
	case got := <-received:
		if got.Reply.Text != "hi" {
			t.Errorf("handler got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestSendOutbound_NoHandler(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	// Must not panic or block when no handler is registered.
	b.SendOutbound(domain.OutboundMessage{Channel: "unknown"})
}

func TestPublish_AfterClose(t *testing.T) {
	b := New(10, testLogger())
	b.Close()

	// Publishing to a closed bus is a logged no-op, never a panic.
	b.Publish(domain.InboundMessage{Channel: "line", UserID: "U1"})

	// Double close is safe too.
	b.Close()
}

func TestSubscribe_ClosedChannelDrains(t *testing.T) {
	b := New(10, testLogger())
	b.Publish(domain.InboundMessage{UserID: "U1"})
	b.Close()

	ch := b.Subscribe()
	if got, ok := <-ch; !ok || got.UserID != "U1" {
		t.Errorf("buffered message should survive close: %+v ok=%v", got, ok)
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after draining")
	}
}

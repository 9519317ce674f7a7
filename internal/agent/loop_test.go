package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"eventmind/internal/clock"
	"eventmind/internal/domain"
)

// loopBus captures outbound messages; inbound delivery is not exercised here
// because processMessage is driven directly.
type loopBus struct {
	outbound []domain.OutboundMessage
}

func (b *loopBus) Publish(msg domain.InboundMessage)            {}
func (b *loopBus) Subscribe() <-chan domain.InboundMessage      { return nil }
func (b *loopBus) SendOutbound(msg domain.OutboundMessage)      { b.outbound = append(b.outbound, msg) }
func (b *loopBus) OnOutbound(string, func(domain.OutboundMessage)) {}
func (b *loopBus) Close()                                       {}

// recordingStore captures exchange log calls.
type recordingStore struct {
	conversations []string
	exchanges     []domain.Exchange
}

func (s *recordingStore) EnsureConversation(ctx context.Context, id, userID string) error {
	s.conversations = append(s.conversations, id)
	return nil
}

func (s *recordingStore) AddExchange(ctx context.Context, convID string, ex domain.Exchange) error {
	s.exchanges = append(s.exchanges, ex)
	return nil
}

func (s *recordingStore) RecentExchanges(ctx context.Context, convID string, limit int) ([]domain.Exchange, error) {
	return nil, nil
}

func (s *recordingStore) Close() error { return nil }

func newTestLoop(t *testing.T, runner domain.Runner, bus domain.MessageBus, store domain.ExchangeStore) *Loop {
	t.Helper()
	logger := testLogger()
	reg := NewSessionRegistry(&fakeSessionService{}, "EventMind", logger)
	return NewLoop(LoopConfig{
		Orchestrator: NewOrchestrator(runner, reg, logger),
		Router:       NewRouter(logger),
		Prompt:       NewPromptBuilder(clock.New("Asia/Taipei", logger)),
		Bus:          bus,
		Store:        store,
		Logger:       logger,
	})
}

func TestProcessMessage_EventReply(t *testing.T) {
	runner := &scriptedRunner{script: func(int64) ([]domain.RunEvent, error) {
		return []domain.RunEvent{
			{Final: true, Content: `{"type":"Event","data":{"title":"開會","date":"2025-06-16","time":"14:00","note":""}}`},
		}, nil
	}}
	bus := &loopBus{}
	loop := newTestLoop(t, runner, bus, nil)

	loop.processMessage(context.Background(), domain.InboundMessage{
		Channel:    "line",
		UserID:     "U1",
		ReplyToken: "rt-1",
		Content:    "明天下午兩點開會",
		Timestamp:  time.Now(),
	})

	if len(bus.outbound) != 1 {
		t.Fatalf("expected 1 outbound message, got %d", len(bus.outbound))
	}
	out := bus.outbound[0]
	if out.Channel != "line" || out.ReplyToken != "rt-1" {
		t.Errorf("outbound routing fields: %+v", out)
	}
	if out.Reply.Kind != domain.ReplyCard {
		t.Fatalf("expected card reply, got %q", out.Reply.Kind)
	}
	if !strings.Contains(out.Reply.Card.Button.URI, "dates=20250616T1400/20250616T1500") {
		t.Errorf("card link: %s", out.Reply.Card.Button.URI)
	}
}

func TestProcessMessage_NoResponseSkipsOutbound(t *testing.T) {
	runner := &scriptedRunner{script: func(int64) ([]domain.RunEvent, error) {
		return []domain.RunEvent{{Final: true, Content: `{"type":"NoResponse"}`}}, nil
	}}
	bus := &loopBus{}
	loop := newTestLoop(t, runner, bus, nil)

	loop.processMessage(context.Background(), domain.InboundMessage{
		Channel: "line", UserID: "U1", ReplyToken: "rt", Content: "早安",
	})

	if len(bus.outbound) != 0 {
		t.Errorf("NoResponse must not send anything, got %d outbound", len(bus.outbound))
	}
}

func TestProcessMessage_PromptCarriesCurrentTime(t *testing.T) {
	var seenQuery string
	runner := &scriptedRunner{script: func(int64) ([]domain.RunEvent, error) {
		return []domain.RunEvent{{Final: true, Content: `{"type":"NoResponse"}`}}, nil
	}}
	runner.onRun = func(req domain.RunRequest) { seenQuery = req.Text }
	bus := &loopBus{}
	loop := newTestLoop(t, runner, bus, nil)

	loop.processMessage(context.Background(), domain.InboundMessage{
		Channel: "line", UserID: "U1", Content: "明天開會",
	})

	if !strings.HasPrefix(seenQuery, "現在時間是 ") {
		t.Errorf("query should carry the time preamble, got %q", seenQuery)
	}
	if !strings.Contains(seenQuery, "user message:明天開會") {
		t.Errorf("query should carry the original message, got %q", seenQuery)
	}
}

func TestProcessMessage_RecordsExchange(t *testing.T) {
	runner := &scriptedRunner{script: func(int64) ([]domain.RunEvent, error) {
		return []domain.RunEvent{
			{Final: true, Content: `{"type":"NeedMoreDetails","data":{"message":"幾點？"}}`},
		}, nil
	}}
	bus := &loopBus{}
	store := &recordingStore{}
	loop := newTestLoop(t, runner, bus, store)

	loop.processMessage(context.Background(), domain.InboundMessage{
		Channel: "line", UserID: "U1", ReplyToken: "rt", Content: "明天開會",
	})

	if len(store.conversations) != 1 || store.conversations[0] != "session_U1" {
		t.Errorf("conversation should use the session identifier: %v", store.conversations)
	}
	if len(store.exchanges) != 1 {
		t.Fatalf("expected 1 recorded exchange, got %d", len(store.exchanges))
	}
	ex := store.exchanges[0]
	if ex.Query != "明天開會" || ex.Reply != "幾點？" || ex.ReplyKind != "text" {
		t.Errorf("recorded exchange: %+v", ex)
	}
}

func TestRun_StopsWhenBusCloses(t *testing.T) {
	runner := &scriptedRunner{script: func(int64) ([]domain.RunEvent, error) {
		return []domain.RunEvent{{Final: true, Content: `{"type":"NoResponse"}`}}, nil
	}}

	inbound := make(chan domain.InboundMessage)
	bus := &subscribableBus{inbound: inbound}
	loop := newTestLoop(t, runner, bus, nil)

	done := make(chan struct{})
	go func() {
		loop.Run(context.Background())
		close(done)
	}()

	close(inbound)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after the bus closed")
	}
}

// subscribableBus exposes a test-owned inbound channel.
type subscribableBus struct {
	loopBus
	inbound chan domain.InboundMessage
}

func (b *subscribableBus) Subscribe() <-chan domain.InboundMessage { return b.inbound }

package agent

import (
	"context"
	"log/slog"
	"time"

	"eventmind/internal/domain"
	"eventmind/internal/metrics"
)

const defaultConcurrency = 5

// Loop consumes inbound messages from the bus with bounded concurrency and
// runs each through the orchestrator and router.
type Loop struct {
	orchestrator *Orchestrator
	router       *Router
	prompt       *PromptBuilder
	bus          domain.MessageBus
	store        domain.ExchangeStore // optional
	logger       *slog.Logger
	concurrency  int
}

// LoopConfig holds the loop's dependencies.
type LoopConfig struct {
	Orchestrator *Orchestrator
	Router       *Router
	Prompt       *PromptBuilder
	Bus          domain.MessageBus
	Store        domain.ExchangeStore
	Logger       *slog.Logger
	Concurrency  int
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Loop{
		orchestrator: cfg.Orchestrator,
		router:       cfg.Router,
		prompt:       cfg.Prompt,
		bus:          cfg.Bus,
		store:        cfg.Store,
		logger:       cfg.Logger,
		concurrency:  cfg.Concurrency,
	}
}

// Run consumes inbound messages until ctx is canceled or the bus closes.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("agent loop started", "concurrency", l.concurrency)

	sem := make(chan struct{}, l.concurrency)
	inbound := l.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("agent loop stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				l.logger.Info("inbound channel closed, agent loop stopping")
				return
			}
			sem <- struct{}{}
			go func(m domain.InboundMessage) {
				defer func() { <-sem }()
				l.processMessage(ctx, m)
			}(msg)
		}
	}
}

// processMessage runs one inbound message end to end: time-stamped prompt,
// agent invocation, reply routing, outbound dispatch.
func (l *Loop) processMessage(ctx context.Context, msg domain.InboundMessage) {
	l.logger.Info("processing message",
		"channel", msg.Channel,
		"user", msg.UserID,
		"content_len", len(msg.Content),
	)
	metrics.Collector.Counter("eventmind_messages_received_total",
		"Inbound text messages accepted from the platform", "").Inc()

	start := time.Now()
	query := l.prompt.Build(msg.Content)
	raw := l.orchestrator.Handle(ctx, msg.UserID, query)
	reply := l.router.Route(raw)
	latency := time.Since(start)

	metrics.Collector.Histogram("eventmind_invocation_seconds",
		"End-to-end agent invocation latency",
		[]float64{0.5, 1, 2, 5, 10, 30}).Observe(latency.Seconds())
	metrics.Collector.Counter("eventmind_replies_total",
		"Routed replies by kind", `kind="`+string(reply.Kind)+`"`).Inc()

	l.logExchange(ctx, msg, reply, latency)

	if reply.Kind == domain.ReplyNone {
		l.logger.Debug("agent chose not to respond", "user", msg.UserID)
		return
	}

	l.bus.SendOutbound(domain.OutboundMessage{
		Channel:    msg.Channel,
		ReplyToken: msg.ReplyToken,
		Reply:      reply,
	})
}

func (l *Loop) logExchange(ctx context.Context, msg domain.InboundMessage, reply domain.Reply, latency time.Duration) {
	if l.store == nil {
		return
	}

	convID := SessionID(msg.UserID)
	if err := l.store.EnsureConversation(ctx, convID, msg.UserID); err != nil {
		l.logger.Warn("cannot record conversation", "err", err, "conv", convID)
		return
	}

	replyText := reply.Text
	if reply.Kind == domain.ReplyCard && reply.Card != nil {
		replyText = reply.Card.Button.URI
	}
	err := l.store.AddExchange(ctx, convID, domain.Exchange{
		ConvID:    convID,
		Query:     msg.Content,
		Reply:     replyText,
		ReplyKind: string(reply.Kind),
		LatencyMs: latency.Milliseconds(),
	})
	if err != nil {
		l.logger.Warn("cannot record exchange", "err", err, "conv", convID)
	}
}

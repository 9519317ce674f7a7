package domain

import (
	"context"
	"time"
)

// ExchangeStore logs completed user/agent exchanges for observability.
// It is not a session store: conversation state lives in the agent runtime,
// and the bridge works unchanged when no store is configured.
type ExchangeStore interface {
	EnsureConversation(ctx context.Context, id, userID string) error
	AddExchange(ctx context.Context, convID string, ex Exchange) error
	RecentExchanges(ctx context.Context, convID string, limit int) ([]Exchange, error)
	Close() error
}

// Exchange is one query/reply pair.
type Exchange struct {
	ID        int64     `json:"id"`
	ConvID    string    `json:"conv_id"`
	Query     string    `json:"query"`
	Reply     string    `json:"reply"`
	ReplyKind string    `json:"reply_kind"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

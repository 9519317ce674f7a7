// Package channel implements the LINE Messaging API surface: the signed
// webhook endpoint and the reply API client.
package channel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"eventmind/internal/domain"
)

const (
	lineReplyURL = "https://api.line.me/v2/bot/message/reply"

	// ChannelName identifies this channel on the message bus.
	ChannelName = "line"
)

// LineConfig configures the LINE channel.
type LineConfig struct {
	ChannelSecret  string
	AccessToken    string
	Port           int
	WebhookPath    string // default: /callback
	MetricsPath    string // default: /metrics
	MetricsHandler http.HandlerFunc
	Logger         *slog.Logger
}

// Line implements the webhook endpoint and the reply sender for the LINE
// Messaging API.
type Line struct {
	secret      string
	accessToken string
	port        int
	path        string
	metricsPath string
	metrics     http.HandlerFunc
	bus         domain.MessageBus
	logger      *slog.Logger
	client      *http.Client
	server      *http.Server
}

func NewLine(cfg LineConfig) *Line {
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = "/callback"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	return &Line{
		secret:      cfg.ChannelSecret,
		accessToken: cfg.AccessToken,
		port:        cfg.Port,
		path:        cfg.WebhookPath,
		metricsPath: cfg.MetricsPath,
		metrics:     cfg.MetricsHandler,
		logger:      cfg.Logger,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (l *Line) Name() string { return ChannelName }

// Start registers the outbound handler and runs the webhook HTTP server
// until ctx is canceled.
func (l *Line) Start(ctx context.Context, bus domain.MessageBus) error {
	l.bus = bus

	bus.OnOutbound(ChannelName, func(msg domain.OutboundMessage) {
		if err := l.reply(ctx, msg.ReplyToken, msg.Reply); err != nil {
			l.logger.Error("line reply failed", "err", err)
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+l.path, l.handleCallback)
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		fmt.Fprint(rw, "ok")
	})
	if l.metrics != nil {
		mux.HandleFunc("GET "+l.metricsPath, l.metrics)
	}

	l.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", l.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	l.logger.Info("line webhook server starting", "port", l.port, "path", l.path)

	errCh := make(chan error, 1)
	go func() {
		if err := l.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		l.logger.Info("line webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return l.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("line webhook server: %w", err)
	}
}

// handleCallback verifies the signature, extracts text message events, and
// publishes them to the bus. Responds "OK" so the platform does not retry.
func (l *Line) handleCallback(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(rw, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("X-Line-Signature")
	if !verifySignature(body, l.secret, signature) {
		l.logger.Warn("line webhook: invalid signature")
		http.Error(rw, "Invalid signature", http.StatusBadRequest)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		l.logger.Warn("line webhook: bad payload", "err", err)
		http.Error(rw, "Invalid JSON", http.StatusBadRequest)
		return
	}

	for _, event := range payload.Events {
		if event.Type != "message" || event.Message == nil || event.Message.Type != "text" {
			continue
		}
		if event.Source == nil || event.Source.UserID == "" {
			continue
		}

		l.logger.Info("line message received",
			"user", event.Source.UserID,
			"text_len", len(event.Message.Text),
		)

		l.bus.Publish(domain.InboundMessage{
			Channel:    ChannelName,
			UserID:     event.Source.UserID,
			ReplyToken: event.ReplyToken,
			Content:    event.Message.Text,
			Timestamp:  time.Now(),
		})
	}

	rw.WriteHeader(http.StatusOK)
	fmt.Fprint(rw, "OK")
}

// verifySignature checks the X-Line-Signature header: the base64 encoding
// of the HMAC-SHA256 of the raw body with the channel secret.
func verifySignature(body []byte, secret, signature string) bool {
	if signature == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}

// reply sends the routed reply through the reply API. ReplyNone never
// reaches this point; the loop skips sending instead.
func (l *Line) reply(ctx context.Context, replyToken string, reply domain.Reply) error {
	messages := replyMessages(reply)
	if len(messages) == 0 {
		return fmt.Errorf("no messages for reply kind %q", reply.Kind)
	}

	payload, err := json.Marshal(map[string]any{
		"replyToken": replyToken,
		"messages":   messages,
	})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	resp, err := doWithRetry(ctx, l.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, lineReplyURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+l.accessToken)
		return req, nil
	}, l.logger)
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("line API %d: %s", resp.StatusCode, string(respBody))
	}

	l.logger.Debug("line reply sent", "kind", string(reply.Kind))
	return nil
}

// --- LINE webhook payload types ---

type webhookPayload struct {
	Destination string         `json:"destination"`
	Events      []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string          `json:"type"`
	ReplyToken string          `json:"replyToken"`
	Timestamp  int64           `json:"timestamp"`
	Source     *eventSource    `json:"source"`
	Message    *messagePayload `json:"message"`
}

type eventSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type messagePayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

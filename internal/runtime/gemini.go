// Package runtime hosts the agent runtime collaborator: a Gemini-backed
// runner with two callable tools, and the in-memory session service its
// conversation state lives in.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"eventmind/internal/clock"
	"eventmind/internal/domain"
)

const defaultMaxToolRounds = 8

// GeminiRunner implements domain.Runner on the Gemini API with a bounded
// function-calling loop.
type GeminiRunner struct {
	client        *genai.Client
	store         *SessionStore
	clock         *clock.Clock
	model         string
	instruction   string
	maxToolRounds int
	logger        *slog.Logger
}

// GeminiConfig configures the runner.
type GeminiConfig struct {
	APIKey        string
	Model         string
	Instruction   string
	MaxToolRounds int
	Store         *SessionStore
	Clock         *clock.Clock
	Logger        *slog.Logger
}

func NewGeminiRunner(ctx context.Context, cfg GeminiConfig) (*GeminiRunner, error) {
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = defaultMaxToolRounds
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiRunner{
		client:        client,
		store:         cfg.Store,
		clock:         cfg.Clock,
		model:         cfg.Model,
		instruction:   cfg.Instruction,
		maxToolRounds: cfg.MaxToolRounds,
		logger:        cfg.Logger,
	}, nil
}

// Run executes one invocation: load the session history, loop over model
// calls executing requested tools, emit a non-final event per tool round,
// and finish with exactly one final event. A missing session surfaces as a
// wrapped domain.ErrSessionNotFound.
func (r *GeminiRunner) Run(ctx context.Context, req domain.RunRequest, out chan<- domain.RunEvent) error {
	turns, err := r.store.History(req.SessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	contents := make([]*genai.Content, 0, len(turns)+1)
	for _, t := range turns {
		contents = append(contents, genai.NewContentFromText(t.Text, genai.Role(t.Role)))
	}
	contents = append(contents, genai.NewContentFromText(req.Text, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(r.instruction, genai.RoleUser),
		Tools:             []*genai.Tool{{FunctionDeclarations: toolDeclarations()}},
		Temperature:       genai.Ptr[float32](0.2),
	}

	for round := 0; round < r.maxToolRounds; round++ {
		resp, err := r.client.Models.GenerateContent(ctx, r.model, contents, config)
		if err != nil {
			return fmt.Errorf("generate content: %w", err)
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			// Model produced nothing usable: final event with an
			// escalation signal instead of text.
			return emit(ctx, out, domain.RunEvent{
				Final:      true,
				Escalation: &domain.Escalation{Message: "model returned no candidates"},
			})
		}

		content := resp.Candidates[0].Content
		calls := functionCalls(content)

		if len(calls) == 0 {
			text := textOf(content)
			if appendErr := r.store.Append(req.SessionID,
				Turn{Role: string(genai.RoleUser), Text: req.Text},
				Turn{Role: string(genai.RoleModel), Text: text},
			); appendErr != nil {
				return fmt.Errorf("append session history: %w", appendErr)
			}
			return emit(ctx, out, domain.RunEvent{Final: true, Content: text})
		}

		contents = append(contents, content)

		responses := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			if err := emit(ctx, out, domain.RunEvent{Content: "tool: " + call.Name}); err != nil {
				return err
			}
			r.logger.Debug("executing agent tool", "tool", call.Name, "session", req.SessionID)
			responses = append(responses, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name:     call.Name,
					Response: r.callTool(call.Name, call.Args),
				},
			})
		}
		contents = append(contents, &genai.Content{Role: string(genai.RoleUser), Parts: responses})
	}

	return fmt.Errorf("tool loop did not converge after %d rounds", r.maxToolRounds)
}

// emit delivers an event unless the consumer has gone away.
func emit(ctx context.Context, out chan<- domain.RunEvent, evt domain.RunEvent) error {
	select {
	case out <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func functionCalls(content *genai.Content) []*genai.FunctionCall {
	var calls []*genai.FunctionCall
	for _, part := range content.Parts {
		if part != nil && part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

func textOf(content *genai.Content) string {
	var sb strings.Builder
	for _, part := range content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

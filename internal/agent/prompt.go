package agent

import (
	"fmt"

	"eventmind/internal/clock"
)

// PromptBuilder stamps each user message with the current time so the
// agent can resolve relative date expressions deterministically.
type PromptBuilder struct {
	clock *clock.Clock
}

func NewPromptBuilder(c *clock.Clock) *PromptBuilder {
	return &PromptBuilder{clock: c}
}

// Build prefixes the user's message with a current-time preamble.
func (p *PromptBuilder) Build(message string) string {
	return fmt.Sprintf(
		"現在時間是 %s，請以此為基準處理「明天」、「後天」、「下週一」、「今天下午」等模糊時間\n user message:%s",
		p.clock.Now(), message,
	)
}

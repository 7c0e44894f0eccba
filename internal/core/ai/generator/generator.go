// Package generator wraps generative text models behind one prompt-in,
// text-out interface.
package generator

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
)

// Usage is the token accounting reported by the provider.
type Usage struct {
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
}

// Result contains the generated text.
type Result struct {
	Text  string
	Model string
	Usage Usage
}

// Generator produces text from a prompt.
type Generator interface {
	// Generate sends prompt to the model and returns its reply.
	Generate(ctx context.Context, prompt string) (*Result, error)

	// Name returns the provider name.
	Name() string
}

// New creates a new Generator based on configuration.
func New(cfg config.GenerationConfig) (Generator, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAI(cfg)
	case "anthropic":
		return NewAnthropic(cfg)
	case "qwen":
		return NewQwen(cfg)
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Provider)
	}
}

// maxPromptChars bounds prompts sent to any provider.
const maxPromptChars = 100000

// truncate cuts prompt to at most maxPromptChars bytes on a rune boundary.
func truncate(prompt string) string {
	if len(prompt) <= maxPromptChars {
		return prompt
	}
	cut := maxPromptChars
	for cut > 0 && !utf8.RuneStart(prompt[cut]) {
		cut--
	}
	return prompt[:cut] + "\n\n[Text truncated due to length...]"
}

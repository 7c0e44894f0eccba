package generator

import (
	"context"
	"fmt"

	"github.com/Dev-derah/simple-content-ai/internal/core/config"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// QwenDefaultBaseURL is the OpenAI-compatible endpoint for Qwen
	QwenDefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
)

// systemPrompt frames every request; the prompt itself carries the schema.
const systemPrompt = "You are a social media content strategist. Reply with valid JSON only."

// OpenAI implements Generator using OpenAI chat completions (official SDK).
// It also serves OpenAI-compatible endpoints such as Qwen.
type OpenAI struct {
	client      openai.Client
	name        string
	model       openai.ChatModel
	maxTokens   int64
	temperature float64
}

// NewOpenAI creates a new OpenAI generator.
func NewOpenAI(cfg config.GenerationConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not provided (set OPENAI_API_KEY)")
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	return newOpenAICompatible("openai", cfg, cfg.BaseURL, model), nil
}

// NewQwen creates a generator for Alibaba Qwen via its OpenAI-compatible API.
func NewQwen(cfg config.GenerationConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Qwen API key not provided (set DASHSCOPE_API_KEY)")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = QwenDefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "qwen-plus"
	}
	return newOpenAICompatible("qwen", cfg, baseURL, model), nil
}

func newOpenAICompatible(name string, cfg config.GenerationConfig, baseURL, model string) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	return &OpenAI{
		client:      openai.NewClient(opts...),
		name:        name,
		model:       openai.ChatModel(model),
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

// Name returns the provider name.
func (o *OpenAI) Name() string {
	return o.name
}

// Generate sends the prompt as a single user message.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (*Result, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(truncate(prompt)),
		},
		MaxTokens:   openai.Int(o.maxTokens),
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("generation API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from API")
	}

	return &Result{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

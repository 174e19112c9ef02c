package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds connection settings for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIEngine answers prompts through any OpenAI-compatible chat API.
type OpenAIEngine struct {
	client *openai.Client
	model  string
}

// NewOpenAIEngine creates an engine backed by the chat completions API.
func NewOpenAIEngine(cfg OpenAIConfig) *OpenAIEngine {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIEngine{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}
}

func (e *OpenAIEngine) Initialize(ctx context.Context) error {
	if e.model == "" {
		return fmt.Errorf("openai engine requires a model")
	}
	return nil
}

func (e *OpenAIEngine) Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResponse, error) {
	model := req.Model
	if model == "" {
		model = e.model
	}

	if req.TimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutSec)*time.Second)
		defer cancel()
	}

	start := time.Now()

	slog.Debug("invoking chat completion", "model", model, "prompt_chars", len(req.Prompt))

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &InvokeResponse{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.CompletionTokens,
		ModelID:    resp.Model,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func (e *OpenAIEngine) Shutdown(ctx context.Context) error {
	return nil
}

// Package backend implements the generation service: the HTTP routes the
// workflow client talks to, and the LLM-backed writers behind them.
package backend

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Task identifies which generation step a prompt belongs to. Scripted
// clients dispatch on it; the OpenAI client ignores it.
type Task string

const (
	TaskInitialPolicy   Task = "initial-policy"
	TaskPublicPolicy    Task = "public-policy"
	TaskModeratorPolicy Task = "moderator-policy"
	TaskExamples        Task = "examples"
	TaskRefinePolicy    Task = "refine-policy"
)

// Prompt is one system/user message pair sent to the model.
type Prompt struct {
	Task   Task
	System string
	User   string
}

// LLMClient abstracts the model call so the writers can be tested offline.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings configures the OpenAI-backed client.
type LLMSettings struct {
	Model   string
	APIKey  string
	BaseURL string
}

// OpenAIClient implements LLMClient using the official openai-go SDK
// (chat completions).
type OpenAIClient struct {
	model string
	opts  []option.RequestOption
}

// NewOpenAIClient validates settings and prepares request options.
func NewOpenAIClient(settings LLMSettings) (*OpenAIClient, error) {
	if settings.APIKey == "" {
		return nil, fmt.Errorf("backend: openai api key missing")
	}
	if settings.Model == "" {
		return nil, fmt.Errorf("backend: llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(settings.APIKey)}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}
	return &OpenAIClient{model: settings.Model, opts: opts}, nil
}

// Complete implements LLMClient.
func (o *OpenAIClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	client := openai.NewClient(o.opts...)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
	})
	if err != nil {
		return "", fmt.Errorf("backend: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("backend: chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

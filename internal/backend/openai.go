package backend

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIBackend implements Backend against an OpenAI-compatible API. It is
// the fallback when no local model path is configured.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// OpenAIConfig holds configuration for the OpenAI backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Optional: for Azure or compatible APIs
	Model   string
}

// NewOpenAIBackend creates a new OpenAI backend.
func NewOpenAIBackend(cfg OpenAIConfig) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not provided (set OPENAI_API_KEY or pass in config)")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIBackend{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// Generate implements Backend. The rendered prompt is sent as a single user
// message; the remote service applies its own chat template.
func (b *OpenAIBackend) Generate(ctx context.Context, text string, params Params) (Generation, error) {
	req := openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = params.MaxTokens
	}
	if params.Temperature > 0 {
		req.Temperature = float32(params.Temperature)
	}
	if params.TopP > 0 {
		req.TopP = float32(params.TopP)
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Generation{}, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Generation{}, fmt.Errorf("openai returned no choices")
	}

	return Generation{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Name implements Backend.
func (b *OpenAIBackend) Name() string {
	return "openai"
}

// Close implements Backend.
func (b *OpenAIBackend) Close() error {
	return nil
}

// Package llmclient defines the capability interface the extractor uses for
// its LLM fallback pass, grounded on hyperifyio-goresearch's
// internal/llm/provider.go (Client interface wrapping *openai.Client).
// Gemini is reached through its OpenAI-compatible endpoint, so the same
// go-openai client and interface shape serve both.
package llmclient

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the minimal interface the extractor needs to run one chat
// completion. Any OpenAI-compatible backend (Gemini's compatibility layer,
// a local model gateway, ...) can satisfy it.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAICompatProvider adapts *openai.Client to Client.
type OpenAICompatProvider struct {
	Inner *openai.Client
	Model string
}

// NewOpenAICompatProvider builds a provider pointed at baseURL (e.g.
// Gemini's "https://generativelanguage.googleapis.com/v1beta/openai/") with
// apiKey as the bearer credential.
func NewOpenAICompatProvider(apiKey, baseURL, model string) *OpenAICompatProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAICompatProvider{
		Inner: openai.NewClientWithConfig(cfg),
		Model: model,
	}
}

func (p *OpenAICompatProvider) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if req.Model == "" {
		req.Model = p.Model
	}
	return p.Inner.CreateChatCompletion(ctx, req)
}

// NoopClient is the zero-value capability used when no LLM API key is
// configured (spec.md §9: "model this as a capability interface with a
// no-op implementation"). It always returns an error, so callers can treat
// "no key configured" identically to "LLM call failed" — both yield no
// update to the record.
type NoopClient struct{}

func (NoopClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, errNotConfigured
}

var errNotConfigured = noopError("llmclient: no LLM API key configured")

type noopError string

func (e noopError) Error() string { return string(e) }

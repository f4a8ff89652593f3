// Package llm is the suggestion service: it turns extracted file content into
// a proposed base name by calling the active LLM provider.
//
// Provider wiring:
//   - openai, deepseek, gemini, doubao, openai_compatible: go-openai against
//     the provider's OpenAI-compatible endpoint
//   - gemini_sdk: the native genai SDK
//   - ollama: the local /api/chat endpoint over resty
//
// Every provider failure leaves this package as a *domain.SuggestionError.
package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/renami-app/renami/internal/domain"
)

// CompletionRequest is one chat completion.
type CompletionRequest struct {
	System      string
	User        string
	Images      []Image // attached to the user message
	Temperature float32
	MaxTokens   int
}

// Image is raw image bytes sent alongside a prompt.
type Image struct {
	MIME string // e.g. image/png
	Data []byte
}

// DataURL returns the image as a base64 data: URL.
func (i Image) DataURL() string {
	return "data:" + i.MIME + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// ChatClient issues a single completion and returns the assistant text.
// An empty string with a nil error is a well-formed but empty answer.
type ChatClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ClientFactory builds a ChatClient for one provider configuration.
type ClientFactory func(ctx context.Context, cfg domain.ProviderConfig, timeout time.Duration) (ChatClient, error)

// NewClient is the default ClientFactory.
func NewClient(ctx context.Context, cfg domain.ProviderConfig, timeout time.Duration) (ChatClient, error) {
	switch cfg.ID {
	case domain.ProviderOpenAI, domain.ProviderDeepSeek, domain.ProviderGemini,
		domain.ProviderDoubao, domain.ProviderOpenAICompatible:
		return newOpenAIClient(cfg, timeout), nil
	case domain.ProviderGeminiSDK:
		return newGeminiClient(ctx, cfg)
	case domain.ProviderOllama:
		return newOllamaClient(cfg, timeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, cfg.ID)
	}
}

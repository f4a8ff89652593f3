package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/renami-app/renami/internal/domain"
)

// errMalformedResponse marks a 2xx answer that is not an Ollama chat reply.
var errMalformedResponse = errors.New("provider returned a malformed response")

// StatusError is a non-2xx HTTP answer from a provider reached over resty.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // base64, no data: prefix
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ollamaClient talks to a local Ollama server. No API key is sent.
type ollamaClient struct {
	http    *resty.Client
	baseURL string
	model   string
}

func newOllamaClient(cfg domain.ProviderConfig, timeout time.Duration) *ollamaClient {
	base := cfg.BaseURL
	if base == "" {
		base = domain.ProviderOllama.DefaultBaseURL()
	}
	return &ollamaClient{
		http:    resty.New().SetTimeout(timeout),
		baseURL: strings.TrimRight(base, "/"),
		model:   cfg.Model,
	}
}

func (c *ollamaClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	body := ollamaChatRequest{
		Model:  c.model,
		Stream: false,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.MaxTokens > 0 {
		body.Options["num_predict"] = req.MaxTokens
	}
	if req.System != "" {
		body.Messages = append(body.Messages, ollamaMessage{Role: "system", Content: req.System})
	}
	user := ollamaMessage{Role: "user", Content: req.User}
	for _, img := range req.Images {
		user.Images = append(user.Images, base64.StdEncoding.EncodeToString(img.Data))
	}
	body.Messages = append(body.Messages, user)

	r, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.baseURL + "/api/chat")
	if err != nil {
		return "", err
	}
	if r.IsError() {
		return "", &StatusError{Code: r.StatusCode(), Body: abbreviate(r.String(), 200)}
	}
	return parseOllamaReply(r.Body())
}

// parseOllamaReply decodes a non-streaming chat reply. resty only decodes
// results for JSON content types, so the body is decoded here and anything
// without an assistant message is rejected.
func parseOllamaReply(body []byte) (string, error) {
	var out ollamaChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %s", errMalformedResponse, abbreviate(string(body), 80))
	}
	if out.Message.Role == "" {
		return "", fmt.Errorf("%w: no message in reply", errMalformedResponse)
	}
	return out.Message.Content, nil
}

func abbreviate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

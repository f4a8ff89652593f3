package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/renami-app/renami/internal/domain"
)

var newGenaiClient = genai.NewClient

var errNoCandidates = errors.New("provider returned no candidates")

// contentGenerator is the part of *genai.GenerativeModel the service uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// geminiClient talks to Gemini through the native SDK. Generation settings
// differ per request, so a model handle is configured for each call.
type geminiClient struct {
	modelFor func(req CompletionRequest) contentGenerator
	closeFn  func() error
}

func newGeminiClient(ctx context.Context, cfg domain.ProviderConfig) (*geminiClient, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := newGenaiClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	name := cfg.Model
	return &geminiClient{
		modelFor: func(req CompletionRequest) contentGenerator {
			m := client.GenerativeModel(name)
			m.SetTemperature(req.Temperature)
			if req.MaxTokens > 0 {
				m.SetMaxOutputTokens(int32(req.MaxTokens))
			}
			if req.System != "" {
				m.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
			}
			return m
		},
		closeFn: client.Close,
	}, nil
}

func (c *geminiClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	parts := []genai.Part{genai.Text(req.User)}
	for _, img := range req.Images {
		parts = append(parts, genai.ImageData(strings.TrimPrefix(img.MIME, "image/"), img.Data))
	}
	resp, err := c.modelFor(req).GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}
	return firstCandidateText(resp)
}

// Close releases the SDK connection.
func (c *geminiClient) Close() error {
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn()
}

func firstCandidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errNoCandidates
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return "", nil
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

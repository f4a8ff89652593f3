package llm

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/renami-app/renami/internal/config"
	"github.com/renami-app/renami/internal/domain"
	"github.com/renami-app/renami/internal/infra/observability"
	"github.com/renami-app/renami/internal/settings"
)

const (
	DefaultVerifyTimeout   = 6 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 50

	// describeMaxTokens bounds an image description; it is prompt input, not a name.
	describeMaxTokens = 300

	opVerify   = "verify"
	opSuggest  = "suggest"
	opDescribe = "describe"
)

// Options tunes the service.
type Options struct {
	VerifyTimeout   time.Duration
	RequestTimeout  time.Duration
	Temperature     float32
	MaxOutputTokens int
	MaxContentChars int // 0 = unlimited
}

// OptionsFromConfig maps the [llm] section of config.toml.
func OptionsFromConfig(c config.LLMConfig) Options {
	return Options{
		VerifyTimeout:   c.VerifyTimeoutDuration(),
		RequestTimeout:  c.RequestTimeoutDuration(),
		Temperature:     c.Temperature,
		MaxOutputTokens: c.MaxOutputTokens,
		MaxContentChars: c.MaxContentChars,
	}
}

// Service implements domain.Suggester and credential verification.
// It holds no per-call state; provider settings are read on every call.
type Service struct {
	settings  domain.Settings
	opts      Options
	newClient ClientFactory
}

// NewService creates a service reading provider settings from s.
func NewService(s domain.Settings, opts Options) *Service {
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = DefaultVerifyTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return &Service{settings: s, opts: opts, newClient: NewClient}
}

// VerifyCredentials sends a one-token request with cfg and reports whether a
// well-formed answer arrived within the verify timeout.
func (s *Service) VerifyCredentials(ctx context.Context, cfg domain.ProviderConfig) error {
	if !cfg.HasCredentials() {
		return domain.NewSuggestionError(domain.KindInvalidCredentials, "API key is empty")
	}
	req := CompletionRequest{User: verifyPrompt, MaxTokens: 1}
	if _, err := s.complete(ctx, opVerify, cfg, req, s.opts.VerifyTimeout); err != nil {
		return err
	}
	return nil
}

// GetSuggestion asks the active provider for a base name for a file with the
// given content and extension. The returned name is trimmed but otherwise
// exactly what the model said.
func (s *Service) GetSuggestion(ctx context.Context, content, ext string, prefs domain.NamingPreferences) (string, error) {
	cfg, err := settings.ActiveProvider(s.settings)
	if err != nil {
		return "", domain.NewSuggestionError(domain.KindUnexpected, err.Error())
	}
	return s.SuggestWith(ctx, cfg, content, ext, prefs)
}

// SuggestWith is GetSuggestion against an already resolved provider, so the
// caller knows exactly which provider and model produced the name.
func (s *Service) SuggestWith(ctx context.Context, cfg domain.ProviderConfig, content, ext string, prefs domain.NamingPreferences) (string, error) {
	if !cfg.HasCredentials() {
		return "", domain.NewSuggestionError(domain.KindInvalidCredentials, "API key is empty")
	}

	req := CompletionRequest{
		System:      BuildSystemPrompt(prefs),
		User:        BuildUserPrompt(truncateRunes(content, s.opts.MaxContentChars), ext),
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxOutputTokens,
	}
	text, err := s.complete(ctx, opSuggest, cfg, req, s.opts.RequestTimeout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// DescribeImage asks cfg's model to describe an image so the description can
// be added to the content a name is suggested from. The model must accept
// image input.
func (s *Service) DescribeImage(ctx context.Context, cfg domain.ProviderConfig, data []byte, mimeType string) (string, error) {
	if !cfg.HasCredentials() {
		return "", domain.NewSuggestionError(domain.KindInvalidCredentials, "API key is empty")
	}
	req := CompletionRequest{
		User:        describePrompt,
		Images:      []Image{{MIME: mimeType, Data: data}},
		Temperature: s.opts.Temperature,
		MaxTokens:   describeMaxTokens,
	}
	text, err := s.complete(ctx, opDescribe, cfg, req, s.opts.RequestTimeout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// complete is the single place provider errors are translated.
func (s *Service) complete(ctx context.Context, op string, cfg domain.ProviderConfig, req CompletionRequest, timeout time.Duration) (string, error) {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := s.call(callCtx, cfg, req, timeout)
	elapsed := time.Since(start)
	if err == nil {
		log.Printf("[llm] %s ok provider=%s model=%s elapsed=%s", op, cfg.ID, cfg.Model, elapsed.Round(time.Millisecond))
		observability.ObserveSuggestion(string(cfg.ID), op, observability.OutcomeOK, elapsed)
		return text, nil
	}

	serr := translateError(err)
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		serr = domain.NewSuggestionError(domain.KindTimeout, serr.Detail)
	}
	log.Printf("[llm] %s failed provider=%s model=%s kind=%s: %s", op, cfg.ID, cfg.Model, serr.Kind, serr.Detail)
	observability.ObserveSuggestion(string(cfg.ID), op, serr.Kind.String(), elapsed)
	return "", serr
}

func (s *Service) call(ctx context.Context, cfg domain.ProviderConfig, req CompletionRequest, timeout time.Duration) (string, error) {
	client, err := s.newClient(ctx, cfg, timeout)
	if err != nil {
		return "", err
	}
	if c, ok := client.(io.Closer); ok {
		defer c.Close()
	}
	return client.Complete(ctx, req)
}

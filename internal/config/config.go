// Package config loads renami's application config from $RENAMI_HOME/config.toml.
//
// Credentials and naming preferences are NOT kept here; they live in the
// JSON settings store (see internal/settings) so a UI can edit them while
// the TOML file stays a hand-edited description of runtime behavior.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root of config.toml.
type Config struct {
	Settings  SettingsConfig  `toml:"settings"`
	LLM       LLMConfig       `toml:"llm"`
	Batch     BatchConfig     `toml:"batch"`
	Extractor ExtractorConfig `toml:"extractor"`
	API       APIConfig       `toml:"api"`
	History   HistoryConfig   `toml:"history"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// SettingsConfig locates the JSON settings store.
type SettingsConfig struct {
	Path      string `toml:"path"`       // default: $RENAMI_HOME/settings.json
	EnvPrefix string `toml:"env_prefix"` // environment overlay prefix
	DotEnv    string `toml:"dotenv"`     // optional .env file loaded at startup
}

// LLMConfig controls the suggestion service.
type LLMConfig struct {
	VerifyTimeout   string  `toml:"verify_timeout"`
	RequestTimeout  string  `toml:"request_timeout"`
	Temperature     float32 `toml:"temperature"`
	MaxOutputTokens int     `toml:"max_output_tokens"`
	MaxContentChars int     `toml:"max_content_chars"` // 0 = send everything
}

// BatchConfig controls the renamer.
type BatchConfig struct {
	MaxConcurrent       int      `toml:"max_concurrent"`
	SupportedExtensions []string `toml:"supported_extensions"`
	PlainTextExtensions []string `toml:"plain_text_extensions"`
	DescribeImages      bool     `toml:"describe_images"`  // ask the provider to describe images before naming
	ImageExtensions     []string `toml:"image_extensions"` // files sent for description
	MaxImageBytes       int64    `toml:"max_image_bytes"`  // larger images are not described; 0 = default
}

// ExtractorConfig describes the external converter command.
type ExtractorConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Timeout string   `toml:"timeout"`
}

// APIConfig controls the local HTTP API.
type APIConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"` // browser origins allowed to call the API; empty = none
}

// HistoryConfig controls the rename journal.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"` // default: $RENAMI_HOME
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultSupportedExtensions are the file types the renamer accepts.
var DefaultSupportedExtensions = []string{
	".pdf", ".docx", ".doc", ".pptx", ".ppt", ".xlsx", ".xls",
	".jpg", ".jpeg", ".png",
	".txt", ".md", ".json", ".csv", ".xml", ".html",
}

// DefaultImageExtensions are the images sent to the provider for a description.
var DefaultImageExtensions = []string{".jpg", ".jpeg", ".png"}

// DefaultMaxImageBytes caps the size of an image sent for description.
const DefaultMaxImageBytes = 4 << 20

// DefaultConfig returns safe defaults.
func DefaultConfig() Config {
	return Config{
		Settings: SettingsConfig{
			EnvPrefix: "RENAMI_",
			DotEnv:    ".env",
		},
		LLM: LLMConfig{
			VerifyTimeout:   "6s",
			RequestTimeout:  "30s",
			Temperature:     0.7,
			MaxOutputTokens: 50,
		},
		Batch: BatchConfig{
			MaxConcurrent:       8,
			SupportedExtensions: append([]string(nil), DefaultSupportedExtensions...),
			PlainTextExtensions: []string{".txt"},
			DescribeImages:      true,
			ImageExtensions:     append([]string(nil), DefaultImageExtensions...),
			MaxImageBytes:       DefaultMaxImageBytes,
		},
		Extractor: ExtractorConfig{
			Command: "markitdown",
			Timeout: "2m",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 11435,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Home returns renami's state directory: $RENAMI_HOME or ~/.renami.
func Home() string {
	if env := os.Getenv("RENAMI_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".renami")
}

// DefaultPath returns the config.toml location.
func DefaultPath() string {
	return filepath.Join(Home(), "config.toml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg.withResolvedPaths(), nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg.withResolvedPaths(), nil
}

// Save writes cfg as TOML, creating the parent directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// Validate checks durations and numeric bounds.
func (c Config) Validate() error {
	for name, raw := range map[string]string{
		"llm.verify_timeout":  c.LLM.VerifyTimeout,
		"llm.request_timeout": c.LLM.RequestTimeout,
		"extractor.timeout":   c.Extractor.Timeout,
	} {
		if _, err := parseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Batch.MaxConcurrent < 0 {
		return fmt.Errorf("batch.max_concurrent must not be negative")
	}
	if c.Batch.MaxImageBytes < 0 {
		return fmt.Errorf("batch.max_image_bytes must not be negative")
	}
	if c.LLM.MaxOutputTokens < 0 {
		return fmt.Errorf("llm.max_output_tokens must not be negative")
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	return nil
}

func (c Config) withResolvedPaths() Config {
	if c.Settings.Path == "" {
		c.Settings.Path = filepath.Join(Home(), "settings.json")
	}
	if c.History.Dir == "" {
		c.History.Dir = Home()
	}
	c.Batch.SupportedExtensions = NormalizeExtensions(c.Batch.SupportedExtensions)
	c.Batch.PlainTextExtensions = NormalizeExtensions(c.Batch.PlainTextExtensions)
	c.Batch.ImageExtensions = NormalizeExtensions(c.Batch.ImageExtensions)
	return c
}

// VerifyTimeoutDuration returns the credential check timeout (default 6s).
func (c LLMConfig) VerifyTimeoutDuration() time.Duration {
	return durationOr(c.VerifyTimeout, 6*time.Second)
}

// RequestTimeoutDuration returns the suggestion request timeout (default 30s).
func (c LLMConfig) RequestTimeoutDuration() time.Duration {
	return durationOr(c.RequestTimeout, 30*time.Second)
}

// TimeoutDuration returns the converter timeout (default 2m).
func (c ExtractorConfig) TimeoutDuration() time.Duration {
	return durationOr(c.Timeout, 2*time.Minute)
}

// Addr returns host:port for the API listener.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NormalizeExtensions lower-cases extensions and ensures a leading dot.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func parseDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", raw)
	}
	return d, nil
}

func durationOr(raw string, def time.Duration) time.Duration {
	d, err := parseDuration(raw)
	if err != nil || d == 0 {
		return def
	}
	return d
}

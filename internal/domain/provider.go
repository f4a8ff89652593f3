// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring: providers, naming preferences, per-file results
// and the error taxonomy shared by the suggestion service and the renamer.
package domain

import (
	"fmt"
	"strings"
)

// ─── Provider Types ─────────────────────────────────────────────────────────

// ProviderID identifies a remote (or local) LLM vendor.
type ProviderID string

const (
	ProviderOpenAI           ProviderID = "openai"
	ProviderDeepSeek         ProviderID = "deepseek"
	ProviderGemini           ProviderID = "gemini" // OpenAI-compatible Gemini endpoint
	ProviderDoubao           ProviderID = "doubao"
	ProviderOpenAICompatible ProviderID = "openai_compatible"
	ProviderOllama           ProviderID = "ollama"
	ProviderGeminiSDK        ProviderID = "gemini_sdk" // native generative-ai SDK
)

// AllProviders lists every supported provider in display order.
var AllProviders = []ProviderID{
	ProviderOpenAI,
	ProviderDeepSeek,
	ProviderGemini,
	ProviderDoubao,
	ProviderOpenAICompatible,
	ProviderOllama,
	ProviderGeminiSDK,
}

// GeminiOfficialOpenAIBase is the official OpenAI-compatible Gemini endpoint.
// It is the only Gemini base URL that is not forced to end in /v1.
const GeminiOfficialOpenAIBase = "https://generativelanguage.googleapis.com/v1beta/openai"

type providerInfo struct {
	display string
	baseURL string
	model   string
	local   bool
}

var providerTable = map[ProviderID]providerInfo{
	ProviderOpenAI:           {display: "OpenAI", baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini"},
	ProviderDeepSeek:         {display: "DeepSeek", baseURL: "https://api.deepseek.com/v1", model: "deepseek-chat"},
	ProviderGemini:           {display: "Google Gemini", baseURL: GeminiOfficialOpenAIBase, model: "gemini-2.0-flash"},
	ProviderDoubao:           {display: "Doubao", baseURL: "https://ark.cn-beijing.volces.com/api/v3", model: "doubao-1.5-lite-32k"},
	ProviderOpenAICompatible: {display: "OpenAI-compatible"},
	ProviderOllama:           {display: "Ollama (local)", baseURL: "http://localhost:11434", model: "llama3.2", local: true},
	ProviderGeminiSDK:        {display: "Google Gemini (SDK)", model: "gemini-2.0-flash"},
}

// ParseProviderID converts a settings value into a ProviderID.
func ParseProviderID(raw string) (ProviderID, error) {
	id := ProviderID(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := providerTable[id]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, raw)
	}
	return id, nil
}

// DisplayName returns the human-readable vendor name.
func (p ProviderID) DisplayName() string {
	if info, ok := providerTable[p]; ok {
		return info.display
	}
	return string(p)
}

// DefaultBaseURL returns the base URL used when none is configured.
func (p ProviderID) DefaultBaseURL() string { return providerTable[p].baseURL }

// DefaultModel returns the model used when none is configured.
func (p ProviderID) DefaultModel() string { return providerTable[p].model }

// IsLocal reports whether the provider runs on this machine and needs no API key.
func (p ProviderID) IsLocal() bool { return providerTable[p].local }

// Settings keys for this provider.
func (p ProviderID) APIKeyKey() string  { return string(p) + "_api_key" }
func (p ProviderID) BaseURLKey() string { return string(p) + "_api_base_url" }
func (p ProviderID) ModelKey() string   { return string(p) + "_model" }

// ProviderConfig is the credential set of a single provider.
type ProviderConfig struct {
	ID      ProviderID `json:"provider"`
	APIKey  string     `json:"api_key"`
	BaseURL string     `json:"base_url"`
	Model   string     `json:"model"`
}

// HasCredentials reports whether a network call may be attempted.
func (c ProviderConfig) HasCredentials() bool {
	return c.ID.IsLocal() || strings.TrimSpace(c.APIKey) != ""
}

// MaskedKey returns the API key with everything but the last four characters hidden.
func (c ProviderConfig) MaskedKey() string {
	return MaskSecret(c.APIKey)
}

// MaskSecret hides all but the last four characters of s.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

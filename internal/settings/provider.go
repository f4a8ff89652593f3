package settings

import (
	"strings"

	"github.com/renami-app/renami/internal/domain"
)

// ActiveProviderID returns the provider selected by llm_provider.
func ActiveProviderID(s domain.Settings) (domain.ProviderID, error) {
	return domain.ParseProviderID(s.Get(KeyLLMProvider, string(domain.ProviderOpenAI)))
}

// ActiveProvider returns the credentials of the selected provider.
func ActiveProvider(s domain.Settings) (domain.ProviderConfig, error) {
	id, err := ActiveProviderID(s)
	if err != nil {
		return domain.ProviderConfig{}, err
	}
	return ProviderConfigFor(s, id), nil
}

// ProviderConfigFor reads one provider's keys. Empty base URL and model fall
// back to the provider defaults; the base URL is normalized.
func ProviderConfigFor(s domain.Settings, id domain.ProviderID) domain.ProviderConfig {
	cfg := domain.ProviderConfig{
		ID:      id,
		APIKey:  strings.TrimSpace(s.Get(id.APIKeyKey(), "")),
		BaseURL: strings.TrimSpace(s.Get(id.BaseURLKey(), "")),
		Model:   strings.TrimSpace(s.Get(id.ModelKey(), "")),
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = id.DefaultBaseURL()
	}
	if cfg.Model == "" {
		cfg.Model = id.DefaultModel()
	}
	cfg.BaseURL = NormalizeBaseURL(id, cfg.BaseURL)
	return cfg
}

// Preferences reads the naming preferences.
func Preferences(s domain.Settings) domain.NamingPreferences {
	return domain.NamingPreferences{
		Language:          domain.Language(strings.TrimSpace(s.Get(KeyNamingLanguage, string(domain.LanguageEnglish)))),
		Convention:        domain.Convention(strings.TrimSpace(s.Get(KeyNamingConvention, string(domain.ConventionNotApplicable)))),
		CustomInstruction: strings.TrimSpace(s.Get(KeyCustomInstruction, "")),
	}
}

// NormalizeBaseURL applies the provider's base URL rule: an explicit scheme
// (https:// when missing), no trailing slash, and the canonical path suffix.
// Empty input stays empty.
func NormalizeBaseURL(id domain.ProviderID, raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	u = strings.TrimRight(u, "/")

	switch id {
	case domain.ProviderGemini:
		if u == domain.GeminiOfficialOpenAIBase {
			return u
		}
		return ensureSuffix(u, "/v1")
	case domain.ProviderDoubao:
		return ensureSuffix(u, "/api/v3")
	case domain.ProviderOllama, domain.ProviderGeminiSDK:
		return u
	default:
		return ensureSuffix(u, "/v1")
	}
}

func ensureSuffix(u, suffix string) string {
	if strings.HasSuffix(u, suffix) {
		return u
	}
	return u + suffix
}

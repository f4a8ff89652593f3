package domain

import (
	"errors"
	"fmt"
	"testing"
)

// ─── Provider Tests ─────────────────────────────────────────────────────────

func TestParseProviderID(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderID
		wantErr bool
	}{
		{"openai", ProviderOpenAI, false},
		{"  DeepSeek ", ProviderDeepSeek, false},
		{"ollama", ProviderOllama, false},
		{"gemini_sdk", ProviderGeminiSDK, false},
		{"", "", true},
		{"skynet", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProviderID(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownProvider) {
					t.Errorf("err = %v, want ErrUnknownProvider", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseProviderID(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestProviderTable(t *testing.T) {
	for _, id := range AllProviders {
		if id.DisplayName() == string(id) {
			t.Errorf("%s has no display name", id)
		}
		if id.APIKeyKey() != string(id)+"_api_key" {
			t.Errorf("%s APIKeyKey = %q", id, id.APIKeyKey())
		}
	}
	if !ProviderOllama.IsLocal() || ProviderOpenAI.IsLocal() {
		t.Error("only ollama is local")
	}
	if ProviderDoubao.DefaultBaseURL() != "https://ark.cn-beijing.volces.com/api/v3" {
		t.Errorf("doubao base = %q", ProviderDoubao.DefaultBaseURL())
	}
}

func TestHasCredentials(t *testing.T) {
	tests := []struct {
		cfg  ProviderConfig
		want bool
	}{
		{ProviderConfig{ID: ProviderOpenAI, APIKey: "sk-1"}, true},
		{ProviderConfig{ID: ProviderOpenAI, APIKey: "   "}, false},
		{ProviderConfig{ID: ProviderOllama}, true},
	}
	for _, tt := range tests {
		if got := tt.cfg.HasCredentials(); got != tt.want {
			t.Errorf("%+v HasCredentials() = %v, want %v", tt.cfg, got, tt.want)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"abc", "***"},
		{"abcd", "****"},
		{"sk-12345678", "*******5678"},
	}
	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ─── Naming Tests ───────────────────────────────────────────────────────────

func TestEffectiveConvention(t *testing.T) {
	tests := []struct {
		name  string
		prefs NamingPreferences
		want  Convention
	}{
		{"english keeps convention", NamingPreferences{Language: LanguageEnglish, Convention: ConventionSnakeCase}, ConventionSnakeCase},
		{"unset language is english", NamingPreferences{Convention: ConventionKebabCase}, ConventionKebabCase},
		{"other language forces not-applicable", NamingPreferences{Language: LanguageJapanese, Convention: ConventionSnakeCase}, ConventionNotApplicable},
		{"unknown convention", NamingPreferences{Language: LanguageEnglish, Convention: "shouting"}, ConventionNotApplicable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.prefs.EffectiveConvention(); got != tt.want {
				t.Errorf("EffectiveConvention() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLanguageDisplayName(t *testing.T) {
	if LanguageChineseSimplified.DisplayName() != "Simplified Chinese" {
		t.Errorf("zh-Hans = %q", LanguageChineseSimplified.DisplayName())
	}
	if Language("Klingon").DisplayName() != "Klingon" {
		t.Error("unknown languages pass through verbatim")
	}
}

func TestConventionRule_Fallback(t *testing.T) {
	if Convention("nope").Rule() != ConventionNotApplicable.Rule() {
		t.Error("unknown convention should use the not-applicable rule")
	}
	for _, c := range AllConventions {
		if c.Rule() == "" {
			t.Errorf("%s has no rule", c)
		}
	}
}

// ─── Extraction & Results ───────────────────────────────────────────────────

func TestExtraction_PromptContent(t *testing.T) {
	if got := ExtractedBlank().PromptContent(); got != BlankFileContent {
		t.Errorf("blank PromptContent = %q", got)
	}
	if got := ExtractedText("hello").PromptContent(); got != "hello" {
		t.Errorf("text PromptContent = %q", got)
	}
	if f := ExtractionFailed("boom"); f.Kind != ExtractFailed || f.Reason != "boom" || f.Kind.String() != "failed" {
		t.Errorf("failed extraction = %+v", f)
	}
}

func TestBatchSummary(t *testing.T) {
	s := BatchSummary{Total: 3, Succeeded: 2}
	if s.Failed() != 1 || s.AllSucceeded() {
		t.Errorf("summary %+v: Failed=%d AllSucceeded=%v", s, s.Failed(), s.AllSucceeded())
	}
	if (BatchSummary{}).AllSucceeded() {
		t.Error("empty batch should not count as all succeeded")
	}
}

func TestHistoryEntry_Undoable(t *testing.T) {
	base := HistoryEntry{Success: true, OriginalPath: "/a.pdf", FinalPath: "/b.pdf"}
	if !base.Undoable() {
		t.Error("successful move should be undoable")
	}
	failed := base
	failed.Success = false
	same := base
	same.FinalPath = "/a.pdf"
	for name, e := range map[string]HistoryEntry{"failed": failed, "unmoved": same} {
		if e.Undoable() {
			t.Errorf("%s entry should not be undoable", name)
		}
	}
}

// ─── Error Tests ────────────────────────────────────────────────────────────

func TestSuggestionError_Messages(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindInvalidCredentials, "AI Service Error: Invalid API key"},
		{KindTimeout, "AI Service Error: API timeout"},
		{KindConnectionError, "AI Service Error: API connection error"},
		{KindModelOrEndpointNotFound, "AI Service Error: Model or endpoint not found"},
		{KindRateLimited, "AI Service Error: Request rate limit exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := NewSuggestionError(tt.kind, "detail")
			if err.Message() != tt.want {
				t.Errorf("Message() = %q, want %q", err.Message(), tt.want)
			}
		})
	}

	u := NewSuggestionError(KindUnexpected, "weird body")
	if u.Message() != "AI Service Error: weird body" || u.Error() != u.Message() {
		t.Errorf("unexpected: Message=%q Error=%q", u.Message(), u.Error())
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("call: %w", NewSuggestionError(KindRateLimited, "429"))
	if KindOf(err) != KindRateLimited {
		t.Errorf("KindOf = %v", KindOf(err))
	}
	if UserMessage(err) != "AI Service Error: Request rate limit exceeded" {
		t.Errorf("UserMessage = %q", UserMessage(err))
	}
	plain := errors.New("disk full")
	if KindOf(plain) != KindUnexpected || UserMessage(plain) != "disk full" {
		t.Error("plain errors are unexpected and keep their text")
	}
}

func TestSentinelErrors(t *testing.T) {
	for _, err := range []error{
		ErrFileNotFound, ErrUnsupportedType, ErrMissingAPIKey, ErrUnknownProvider,
		ErrEmptySuggestion, ErrBatchInProgress, ErrHistoryNotFound, ErrNotUndoable,
	} {
		if err == nil || err.Error() == "" {
			t.Errorf("sentinel %v is empty", err)
		}
	}
}

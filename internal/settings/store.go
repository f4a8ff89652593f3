// Package settings is the configuration provider: a flat JSON object on disk
// holding per-provider credentials and naming preferences.
//
// Every read goes back to disk so the caller always sees a fresh snapshot.
// Unknown keys are preserved on write and ignored on read; missing keys fall
// back to documented defaults. Environment variables named
// <prefix><UPPER_KEY> (e.g. RENAMI_OPENAI_API_KEY) override the file.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/renami-app/renami/internal/domain"
)

// Top-level keys.
const (
	KeyLLMProvider       = "llm_provider"
	KeyNamingLanguage    = "naming_language"
	KeyNamingConvention  = "naming_convention"
	KeyCustomInstruction = "custom_instruction"
)

// Store is a JSON-file backed domain.Settings.
type Store struct {
	mu        sync.Mutex // serializes read-modify-write in Update
	path      string
	envPrefix string
}

// Open returns a store for path, writing the default template when the
// file does not exist yet.
func Open(path, envPrefix string) (*Store, error) {
	s := &Store{path: path, envPrefix: envPrefix}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(toAny(Template())); err != nil {
			return nil, fmt.Errorf("write settings template: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat settings: %w", err)
	}
	return s, nil
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// Get returns the value for key, or def when the key is absent.
func (s *Store) Get(key, def string) string {
	if v, ok := s.lookupEnv(key); ok {
		return v
	}
	raw, err := s.read()
	if err != nil {
		log.Printf("[settings] read %s: %v", s.path, err)
		return def
	}
	v, ok := raw[key]
	if !ok {
		return def
	}
	return stringify(v)
}

// Snapshot returns every known key merged with the environment overlay.
func (s *Store) Snapshot() (map[string]string, error) {
	raw, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = stringify(v)
	}
	for k := range Template() {
		if _, ok := out[k]; !ok {
			out[k] = ""
		}
	}
	for k := range out {
		if v, ok := s.lookupEnv(k); ok {
			out[k] = v
		}
	}
	return out, nil
}

// Update merges values into the file and persists immediately.
func (s *Store) Update(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.read()
	if err != nil {
		return err
	}
	for k, v := range values {
		raw[k] = v
	}
	return s.write(raw)
}

func (s *Store) read() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	raw := map[string]any{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	return raw, nil
}

// write replaces the file atomically (temp file + rename).
func (s *Store) write(raw map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

func (s *Store) lookupEnv(key string) (string, bool) {
	if s.envPrefix == "" {
		return "", false
	}
	return os.LookupEnv(s.envPrefix + strings.ToUpper(key))
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func toAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ─── Defaults ───────────────────────────────────────────────────────────────

// Template returns the default settings written on first use.
func Template() map[string]string {
	t := map[string]string{
		KeyLLMProvider:       string(domain.ProviderOpenAI),
		KeyNamingLanguage:    string(domain.LanguageEnglish),
		KeyNamingConvention:  string(domain.ConventionNotApplicable),
		KeyCustomInstruction: "",
	}
	for _, id := range domain.AllProviders {
		t[id.APIKeyKey()] = ""
		t[id.BaseURLKey()] = id.DefaultBaseURL()
		t[id.ModelKey()] = id.DefaultModel()
	}
	return t
}

// Keys returns every documented key, sorted.
func Keys() []string {
	t := Template()
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsSecretKey reports whether the key holds a credential.
func IsSecretKey(key string) bool {
	return strings.HasSuffix(key, "_api_key")
}

var loadDotEnvOnce sync.Once

// LoadDotEnv loads path into the process environment once, if it exists.
// Variables already set are not overridden.
func LoadDotEnv(path string) {
	if path == "" {
		return
	}
	loadDotEnvOnce.Do(func() {
		if _, err := os.Stat(path); err != nil {
			return
		}
		if err := godotenv.Load(path); err != nil {
			log.Printf("[settings] failed to load %s: %v", path, err)
		}
	})
}

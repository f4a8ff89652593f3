package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the renamer depends on them.

// Settings is the configuration provider. Every Get reads a fresh snapshot;
// settings may change between calls.
type Settings interface {
	Get(key, def string) string
	Update(values map[string]string) error
	Snapshot() (map[string]string, error)
}

// Extractor turns a file into text for the model.
type Extractor interface {
	Extract(ctx context.Context, path string) Extraction
}

// Suggester asks the active provider for a bare base name (no extension).
// Errors are *SuggestionError.
type Suggester interface {
	GetSuggestion(ctx context.Context, content, ext string, prefs NamingPreferences) (string, error)
}

// PinnedSuggester is a Suggester that can be told which provider to use
// instead of reading the active one itself.
type PinnedSuggester interface {
	Suggester
	SuggestWith(ctx context.Context, cfg ProviderConfig, content, ext string, prefs NamingPreferences) (string, error)
}

// ImageDescriber turns image bytes into a text description.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, cfg ProviderConfig, data []byte, mimeType string) (string, error)
}

// History journals rename attempts.
type History interface {
	RecordRename(ctx context.Context, entry HistoryEntry) (int64, error)
	GetRename(ctx context.Context, id int64) (*HistoryEntry, error)
	ListRenames(ctx context.Context, limit int) ([]HistoryEntry, error)
	ListBatch(ctx context.Context, batchID string) ([]HistoryEntry, error)
	MarkUndone(ctx context.Context, id int64) error
}

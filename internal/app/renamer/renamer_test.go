package renamer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/renami-app/renami/internal/domain"
)

// ─── Fakes ──────────────────────────────────────────────────────────────────

type mapSettings map[string]string

func (m mapSettings) Get(key, def string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}
func (m mapSettings) Update(values map[string]string) error {
	for k, v := range values {
		m[k] = v
	}
	return nil
}
func (m mapSettings) Snapshot() (map[string]string, error) { return m, nil }

type fakeExtractor struct {
	calls  atomic.Int32
	result func(path string) domain.Extraction
}

func (f *fakeExtractor) Extract(_ context.Context, path string) domain.Extraction {
	f.calls.Add(1)
	if f.result == nil {
		return domain.ExtractedText("content of " + filepath.Base(path))
	}
	return f.result(path)
}

type suggestFunc func(ctx context.Context, content, ext string, prefs domain.NamingPreferences) (string, error)

func (f suggestFunc) GetSuggestion(ctx context.Context, content, ext string, prefs domain.NamingPreferences) (string, error) {
	return f(ctx, content, ext, prefs)
}

func fixed(name string) suggestFunc {
	return func(context.Context, string, string, domain.NamingPreferences) (string, error) { return name, nil }
}

type memHistory struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
}

func (h *memHistory) RecordRename(_ context.Context, e domain.HistoryEntry) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e.ID = int64(len(h.entries) + 1)
	h.entries = append(h.entries, e)
	return e.ID, nil
}

func (h *memHistory) GetRename(_ context.Context, id int64) (*domain.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id < 1 || int(id) > len(h.entries) {
		return nil, domain.ErrHistoryNotFound
	}
	e := h.entries[id-1]
	return &e, nil
}

func (h *memHistory) ListRenames(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.HistoryEntry(nil), h.entries...), nil
}

func (h *memHistory) ListBatch(_ context.Context, batchID string) ([]domain.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.HistoryEntry
	for _, e := range h.entries {
		if e.BatchID == batchID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (h *memHistory) MarkUndone(_ context.Context, id int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	h.entries[id-1].UndoneAt = &now
	return nil
}

func newTestRenamer(t *testing.T, fs afero.Fs, sg domain.Suggester) (*Renamer, *fakeExtractor) {
	t.Helper()
	ex := &fakeExtractor{}
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 2
	return New(cfg, fs, mapSettings{"openai_api_key": "sk-test"}, ex, sg), ex
}

func writeFiles(t *testing.T, fs afero.Fs, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := afero.WriteFile(fs, p, []byte("data "+p), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func mustExist(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	if ok, _ := afero.Exists(fs, path); !ok {
		t.Errorf("%s should exist", path)
	}
}

func mustNotExist(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	if ok, _ := afero.Exists(fs, path); ok {
		t.Errorf("%s should not exist", path)
	}
}

// ─── Config ─────────────────────────────────────────────────────────────────

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d, want 8", cfg.MaxConcurrent)
	}
	r := New(Config{SupportedExtensions: []string{"PDF"}}, afero.NewMemMapFs(), mapSettings{}, nil, nil)
	if r.Stats().MaxSlots != 8 {
		t.Errorf("zero MaxConcurrent should fall back to 8, got %d", r.Stats().MaxSlots)
	}
	if !r.Supported(".Pdf") {
		t.Error("extension matching should be case-insensitive")
	}
}

// ─── Happy Path ─────────────────────────────────────────────────────────────

func TestProcessBatch_RenamesKeepingExtension(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/docs/scan001.PDF")
	r, _ := newTestRenamer(t, fs, fixed("Quarterly Report"))

	sum, err := r.ProcessBatch(context.Background(), []string{"/docs/scan001.PDF"}, nil)
	if err != nil {
		t.Fatalf("ProcessBatch() error: %v", err)
	}
	res := sum.Results[0]
	if !res.Success || res.Stage != domain.StageSucceeded {
		t.Fatalf("result = %+v", res)
	}
	if res.FinalPath != "/docs/Quarterly Report.PDF" {
		t.Errorf("FinalPath = %q", res.FinalPath)
	}
	if res.Message != "Successfully renamed to Quarterly Report.PDF" {
		t.Errorf("Message = %q", res.Message)
	}
	mustExist(t, fs, "/docs/Quarterly Report.PDF")
	mustNotExist(t, fs, "/docs/scan001.PDF")
	if sum.Succeeded != 1 || sum.Total != 1 || !sum.AllSucceeded() || sum.BatchID == "" {
		t.Errorf("summary = %+v", sum)
	}
}

func TestProcessBatch_SuggestionWithExtension(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/a/x.pdf")
	r, _ := newTestRenamer(t, fs, fixed("Invoice March.pdf"))

	sum, _ := r.ProcessBatch(context.Background(), []string{"/a/x.pdf"}, nil)
	if sum.Results[0].FinalPath != "/a/Invoice March.pdf" {
		t.Errorf("FinalPath = %q, want no doubled extension", sum.Results[0].FinalPath)
	}
}

func TestProcessBatch_SanitizesSuggestion(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/a/x.md")
	r, _ := newTestRenamer(t, fs, fixed(`Q3: "Plan" A/B?`))

	sum, _ := r.ProcessBatch(context.Background(), []string{"/a/x.md"}, nil)
	if sum.Results[0].FinalPath != "/a/Q3- -Plan- A-B-.md" {
		t.Errorf("FinalPath = %q", sum.Results[0].FinalPath)
	}
}

// ─── Collisions ─────────────────────────────────────────────────────────────

func TestProcessBatch_NeverOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/Report.pdf", "/d/Report_1.pdf", "/d/new.pdf")
	r, _ := newTestRenamer(t, fs, fixed("Report"))

	sum, _ := r.ProcessBatch(context.Background(), []string{"/d/new.pdf"}, nil)
	if got := sum.Results[0].FinalPath; got != "/d/Report_2.pdf" {
		t.Errorf("FinalPath = %q, want /d/Report_2.pdf", got)
	}
	for _, p := range []string{"/d/Report.pdf", "/d/Report_1.pdf"} {
		data, _ := afero.ReadFile(fs, p)
		if string(data) != "data "+p {
			t.Errorf("%s was modified", p)
		}
	}
}

func TestProcessBatch_SameNameIsNotACollision(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/Report.pdf")
	r, _ := newTestRenamer(t, fs, fixed("Report"))

	sum, _ := r.ProcessBatch(context.Background(), []string{"/d/Report.pdf"}, nil)
	if !sum.Results[0].Success || sum.Results[0].FinalPath != "/d/Report.pdf" {
		t.Errorf("result = %+v, want unchanged path", sum.Results[0])
	}
}

func TestProcessBatch_SequentialDuplicatesGetSuffixes(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/1.txt", "/d/2.txt", "/d/3.txt")
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 1
	r := New(cfg, fs, mapSettings{"openai_api_key": "k"}, &fakeExtractor{}, fixed("Notes"))

	sum, _ := r.ProcessBatch(context.Background(), []string{"/d/1.txt", "/d/2.txt", "/d/3.txt"}, nil)
	var got []string
	for _, res := range sum.Results {
		got = append(got, res.FinalPath)
	}
	sort.Strings(got)
	want := []string{"/d/Notes.txt", "/d/Notes_1.txt", "/d/Notes_2.txt"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("final paths = %v, want %v", got, want)
	}
}

// racingFs claims the destination between the collision check and the move.
type racingFs struct {
	afero.Fs
}

func (f racingFs) Rename(oldname, newname string) error {
	afero.WriteFile(f.Fs, newname, []byte("claimed by another writer"), 0644)
	return f.Fs.Rename(oldname, newname)
}

func TestProcessBatch_CheckThenRenameRace(t *testing.T) {
	base := afero.NewMemMapFs()
	writeFiles(t, base, "/d/a.pdf")
	r, _ := newTestRenamer(t, racingFs{base}, fixed("Report"))

	sum, _ := r.ProcessBatch(context.Background(), []string{"/d/a.pdf"}, nil)
	// The window is not locked: the move lands on the name chosen before the
	// other writer appeared and the filesystem decides the outcome.
	if !sum.Results[0].Success || sum.Results[0].FinalPath != "/d/Report.pdf" {
		t.Fatalf("result = %+v", sum.Results[0])
	}
	data, _ := afero.ReadFile(base, "/d/Report.pdf")
	if string(data) != "data /d/a.pdf" {
		t.Errorf("content = %q, want the renamed file", data)
	}
}

// ─── Pre-flight ─────────────────────────────────────────────────────────────

func TestProcessBatch_Preflight(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/app.exe", "/d/ok.pdf")
	fs.MkdirAll("/d/folder.pdf", 0755)

	tests := []struct {
		name     string
		settings mapSettings
		path     string
		want     string
	}{
		{"missing", mapSettings{"openai_api_key": "k"}, "/d/nope.pdf", "File not found: /d/nope.pdf"},
		{"directory", mapSettings{"openai_api_key": "k"}, "/d/folder.pdf", "File not found: /d/folder.pdf"},
		{"unsupported", mapSettings{"openai_api_key": "k"}, "/d/app.exe", "Unsupported file type: .exe"},
		{"no key", mapSettings{}, "/d/ok.pdf", "Please set your API key first"},
		{"other provider key", mapSettings{"llm_provider": "gemini", "openai_api_key": "k"}, "/d/ok.pdf", "Please set your API key first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var suggested atomic.Bool
			sg := suggestFunc(func(context.Context, string, string, domain.NamingPreferences) (string, error) {
				suggested.Store(true)
				return "x", nil
			})
			ex := &fakeExtractor{}
			r := New(DefaultConfig(), fs, tt.settings, ex, sg)

			sum, _ := r.ProcessBatch(context.Background(), []string{tt.path}, nil)
			res := sum.Results[0]
			if res.Success || res.Stage != domain.StagePreflight {
				t.Fatalf("result = %+v, want preflight failure", res)
			}
			if res.Message != tt.want {
				t.Errorf("Message = %q, want %q", res.Message, tt.want)
			}
			if ex.calls.Load() != 0 || suggested.Load() {
				t.Error("no work should happen after a failed pre-flight")
			}
		})
	}
}

func TestProcessBatch_OllamaNeedsNoKey(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/a.pdf")
	r := New(DefaultConfig(), fs, mapSettings{"llm_provider": "ollama"}, &fakeExtractor{}, fixed("Local"))

	sum, _ := r.ProcessBatch(context.Background(), []string{"/d/a.pdf"}, nil)
	if !sum.Results[0].Success {
		t.Errorf("result = %+v", sum.Results[0])
	}
}

// ─── Extraction & Suggestion ────────────────────────────────────────────────

func TestProcessBatch_PlainTextBypassesExtractor(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/d/todo.txt", []byte("buy milk"), 0644)
	afero.WriteFile(fs, "/d/empty.txt", nil, 0644)

	var mu sync.Mutex
	seen := map[string]string{}
	sg := suggestFunc(func(_ context.Context, content, ext string, _ domain.NamingPreferences) (string, error) {
		mu.Lock()
		seen[content] = ext
		mu.Unlock()
		return "Shopping " + fmt.Sprint(len(content)), nil
	})
	r, ex := newTestRenamer(t, fs, sg)

	sum, _ := r.ProcessBatch(context.Background(), []string{"/d/todo.txt", "/d/empty.txt"}, nil)
	if ex.calls.Load() != 0 {
		t.Errorf("extractor called %d times for .txt files", ex.calls.Load())
	}
	if seen["buy milk"] != ".txt" {
		t.Errorf("plain content not passed through: %v", seen)
	}
	if _, ok := seen[domain.BlankFileContent]; !ok {
		t.Errorf("empty file should be sent as %q: %v", domain.BlankFileContent, seen)
	}
	if sum.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", sum.Succeeded)
	}
}

func TestProcessBatch_ExtractionFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/a.docx")
	var suggested atomic.Bool
	sg := suggestFunc(func(context.Context, string, string, domain.NamingPreferences) (string, error) {
		suggested.Store(true)
		return "x", nil
	})
	r, ex := newTestRenamer(t, fs, sg)
	ex.result = func(string) domain.Extraction {
		return domain.ExtractionFailed("Error converting file: corrupt")
	}

	sum, _ := r.ProcessBatch(context.Background(), []string{"/d/a.docx"}, nil)
	res := sum.Results[0]
	if res.Success || res.Stage != domain.StageExtracting || res.Message != "Error converting file: corrupt" {
		t.Errorf("result = %+v", res)
	}
	if suggested.Load() {
		t.Error("suggestion should not be requested after failed extraction")
	}
	mustExist(t, fs, "/d/a.docx")
}

func TestProcessBatch_BlankExtraction(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/a.pdf")
	var got string
	sg := suggestFunc(func(_ context.Context, content, _ string, _ domain.NamingPreferences) (string, error) {
		got = content
		return "Empty", nil
	})
	r, ex := newTestRenamer(t, fs, sg)
	ex.result = func(string) domain.Extraction { return domain.ExtractedBlank() }

	r.ProcessBatch(context.Background(), []string{"/d/a.pdf"}, nil)
	if got != "blank file" {
		t.Errorf("content = %q, want blank file", got)
	}
}

func TestProcessBatch_SuggestionFailureLeavesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/a.pdf")
	sg := suggestFunc(func(context.Context, string, string, domain.NamingPreferences) (string, error) {
		return "", domain.NewSuggestionError(domain.KindInvalidCredentials, "401")
	})
	r, _ := newTestRenamer(t, fs, sg)

	sum, _ := r.ProcessBatch(context.Background(), []string{"/d/a.pdf"}, nil)
	res := sum.Results[0]
	if res.Success || res.Stage != domain.StageSuggesting {
		t.Fatalf("result = %+v", res)
	}
	if res.Message != "AI Service Error: Invalid API key" {
		t.Errorf("Message = %q", res.Message)
	}
	if res.FinalPath != "" {
		t.Errorf("FinalPath = %q, want empty", res.FinalPath)
	}
	mustExist(t, fs, "/d/a.pdf")
}

func TestProcessBatch_EmptySuggestion(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/a.pdf")
	r, _ := newTestRenamer(t, fs, fixed(".pdf"))

	sum, _ := r.ProcessBatch(context.Background(), []string{"/d/a.pdf"}, nil)
	res := sum.Results[0]
	if res.Success || res.Stage != domain.StageRenaming || !strings.HasPrefix(res.Message, "Failed to rename file:") {
		t.Errorf("result = %+v", res)
	}
	mustExist(t, fs, "/d/a.pdf")
}

func TestProcessBatch_PreferencesFromSettings(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/a.pdf")
	var got domain.NamingPreferences
	sg := suggestFunc(func(_ context.Context, _, _ string, prefs domain.NamingPreferences) (string, error) {
		got = prefs
		return "x", nil
	})
	s := mapSettings{"openai_api_key": "k", "naming_language": "en", "naming_convention": "snake-case", "custom_instruction": "add date"}
	r := New(DefaultConfig(), fs, s, &fakeExtractor{}, sg)

	r.ProcessBatch(context.Background(), []string{"/d/a.pdf"}, nil)
	if got.Convention != domain.ConventionSnakeCase || got.CustomInstruction != "add date" {
		t.Errorf("prefs = %+v", got)
	}
}

// ─── Image Descriptions ─────────────────────────────────────────────────────

type fakeDescriber struct {
	mu    sync.Mutex
	calls []describeCall
	desc  string
	err   error
}

type describeCall struct {
	cfg  domain.ProviderConfig
	data string
	mime string
}

func (d *fakeDescriber) DescribeImage(_ context.Context, cfg domain.ProviderConfig, data []byte, mimeType string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, describeCall{cfg: cfg, data: string(data), mime: mimeType})
	return d.desc, d.err
}

// recordContent returns a suggester that stores the content per extension.
func recordContent(name string) (suggestFunc, func(ext string) string) {
	var mu sync.Mutex
	got := map[string]string{}
	sg := suggestFunc(func(_ context.Context, content, ext string, _ domain.NamingPreferences) (string, error) {
		mu.Lock()
		got[ext] = content
		mu.Unlock()
		return name + strings.TrimPrefix(ext, "."), nil
	})
	return sg, func(ext string) string {
		mu.Lock()
		defer mu.Unlock()
		return got[ext]
	}
}

func TestProcessBatch_DescribesImages(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/photo.png", "/d/doc.pdf")
	sg, content := recordContent("Cat ")
	r, ex := newTestRenamer(t, fs, sg)
	ex.result = func(path string) domain.Extraction { return domain.ExtractedText("OCR " + filepath.Base(path)) }
	d := &fakeDescriber{desc: "  A cat asleep on a red sofa.\n"}
	r.SetImageDescriber(d)

	sum, _ := r.ProcessBatch(context.Background(), []string{"/d/photo.png", "/d/doc.pdf"}, nil)
	if sum.Succeeded != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if got, want := content(".png"), "OCR photo.png\n\n# Description:\nA cat asleep on a red sofa."; got != want {
		t.Errorf("image content = %q, want %q", got, want)
	}
	if got := content(".pdf"); got != "OCR doc.pdf" {
		t.Errorf("pdf content = %q, want extractor text only", got)
	}
	if len(d.calls) != 1 {
		t.Fatalf("describer called %d times, want 1", len(d.calls))
	}
	c := d.calls[0]
	if c.mime != "image/png" || c.data != "data /d/photo.png" || c.cfg.ID != domain.ProviderOpenAI {
		t.Errorf("describe call = %+v", c)
	}
}

func TestProcessBatch_DescriptionFailureFallsBack(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/shot.jpg")
	sg, content := recordContent("Shot ")
	r, ex := newTestRenamer(t, fs, sg)
	ex.result = func(string) domain.Extraction { return domain.ExtractedText("Invoice 7") }
	r.SetImageDescriber(&fakeDescriber{err: domain.NewSuggestionError(domain.KindUnexpected, "model does not accept images")})

	sum, _ := r.ProcessBatch(context.Background(), []string{"/d/shot.jpg"}, nil)
	if !sum.Results[0].Success {
		t.Fatalf("result = %+v", sum.Results[0])
	}
	if got := content(".jpg"); got != "Invoice 7" {
		t.Errorf("content = %q, want the extracted text alone", got)
	}
}

func TestProcessBatch_DescriptionRescuesFailedExtraction(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/a.jpeg", "/d/b.png")
	sg, content := recordContent("Pic ")
	r, ex := newTestRenamer(t, fs, sg)
	ex.result = func(string) domain.Extraction { return domain.ExtractionFailed("Error converting file: no text") }
	d := &fakeDescriber{desc: "A mountain lake."}
	r.SetImageDescriber(d)

	sum, _ := r.ProcessBatch(context.Background(), []string{"/d/a.jpeg"}, nil)
	if !sum.Results[0].Success {
		t.Fatalf("result = %+v", sum.Results[0])
	}
	if got := content(".jpeg"); got != "# Description:\nA mountain lake." {
		t.Errorf("content = %q", got)
	}
	if d.calls[0].mime != "image/jpeg" {
		t.Errorf("mime = %q", d.calls[0].mime)
	}

	d.desc, d.err = "", errors.New("offline")
	sum, _ = r.ProcessBatch(context.Background(), []string{"/d/b.png"}, nil)
	res := sum.Results[0]
	if res.Success || res.Stage != domain.StageExtracting || res.Message != "Error converting file: no text" {
		t.Errorf("result = %+v", res)
	}
	mustExist(t, fs, "/d/b.png")
}

func TestProcessBatch_LargeImageNotDescribed(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/huge.png")
	sg, content := recordContent("Big ")
	ex := &fakeExtractor{result: func(string) domain.Extraction { return domain.ExtractedText("pixels") }}
	cfg := DefaultConfig()
	cfg.MaxImageBytes = 4
	r := New(cfg, fs, mapSettings{"openai_api_key": "sk-test"}, ex, sg)
	d := &fakeDescriber{desc: "never used"}
	r.SetImageDescriber(d)

	r.ProcessBatch(context.Background(), []string{"/d/huge.png"}, nil)
	if len(d.calls) != 0 {
		t.Errorf("describer called for an image over the size cap")
	}
	if got := content(".png"); got != "pixels" {
		t.Errorf("content = %q", got)
	}
}

// ─── Batch Semantics ────────────────────────────────────────────────────────

func TestProcessBatch_OrderAndConcurrencyBound(t *testing.T) {
	fs := afero.NewMemMapFs()
	var paths []string
	for i := 0; i < 6; i++ {
		p := fmt.Sprintf("/d/f%d.pdf", i)
		paths = append(paths, p)
	}
	writeFiles(t, fs, paths...)

	var inFlight, peak atomic.Int32
	sg := suggestFunc(func(_ context.Context, content, _ string, _ domain.NamingPreferences) (string, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		// later files finish first
		idx := strings.TrimSuffix(strings.TrimPrefix(content, "content of f"), ".pdf")
		d := map[string]time.Duration{"0": 40, "1": 30, "2": 20, "3": 10, "4": 5, "5": 1}[idx]
		time.Sleep(d * time.Millisecond)
		inFlight.Add(-1)
		return "Named " + idx, nil
	})
	r, _ := newTestRenamer(t, fs, sg)

	var mu sync.Mutex
	var streamed int
	sum, err := r.ProcessBatch(context.Background(), paths, func(domain.RenameResult) {
		mu.Lock()
		streamed++
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, res := range sum.Results {
		if res.OriginalPath != paths[i] {
			t.Errorf("Results[%d].OriginalPath = %q, want %q", i, res.OriginalPath, paths[i])
		}
		if want := fmt.Sprintf("/d/Named %d.pdf", i); res.FinalPath != want {
			t.Errorf("Results[%d].FinalPath = %q, want %q", i, res.FinalPath, want)
		}
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
	if streamed != len(paths) {
		t.Errorf("onResult called %d times, want %d", streamed, len(paths))
	}
	if sum.Succeeded != 6 {
		t.Errorf("Succeeded = %d, want 6", sum.Succeeded)
	}
}

func TestProcessBatch_RejectsSecondBatch(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/a.pdf", "/d/b.pdf")
	entered := make(chan struct{})
	release := make(chan struct{})
	sg := suggestFunc(func(context.Context, string, string, domain.NamingPreferences) (string, error) {
		close(entered)
		<-release
		return "First", nil
	})
	r, _ := newTestRenamer(t, fs, sg)

	done := make(chan domain.BatchSummary)
	go func() {
		sum, _ := r.ProcessBatch(context.Background(), []string{"/d/a.pdf"}, nil)
		done <- sum
	}()
	<-entered

	if !r.IsProcessing() {
		t.Error("IsProcessing() = false during a batch")
	}
	if _, err := r.ProcessBatch(context.Background(), []string{"/d/b.pdf"}, nil); !errors.Is(err, domain.ErrBatchInProgress) {
		t.Errorf("second batch err = %v, want ErrBatchInProgress", err)
	}
	close(release)
	sum := <-done
	if !sum.Results[0].Success {
		t.Errorf("first batch result = %+v", sum.Results[0])
	}
	mustExist(t, fs, "/d/b.pdf")
	if r.IsProcessing() {
		t.Error("IsProcessing() = true after batch finished")
	}
}

func TestProcessBatch_RecoversPanic(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/bad.pdf", "/d/good.pdf")
	sg := suggestFunc(func(_ context.Context, content, _ string, _ domain.NamingPreferences) (string, error) {
		if strings.Contains(content, "bad") {
			panic("boom")
		}
		return "Good", nil
	})
	r, _ := newTestRenamer(t, fs, sg)

	sum, err := r.ProcessBatch(context.Background(), []string{"/d/bad.pdf", "/d/good.pdf"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Results[0].Success || sum.Results[0].Message != "Unexpected error: boom" {
		t.Errorf("panicking file result = %+v", sum.Results[0])
	}
	if !sum.Results[1].Success {
		t.Errorf("other file result = %+v", sum.Results[1])
	}
	if sum.Succeeded != 1 || sum.Failed() != 1 {
		t.Errorf("summary = %d/%d", sum.Succeeded, sum.Total)
	}
	if st := r.Stats(); st.Completed != 1 || st.Failed != 1 || st.Active != 0 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestProcessBatch_Empty(t *testing.T) {
	r, _ := newTestRenamer(t, afero.NewMemMapFs(), fixed("x"))
	sum, err := r.ProcessBatch(context.Background(), nil, nil)
	if err != nil || sum.Total != 0 || sum.AllSucceeded() {
		t.Errorf("sum = %+v, err = %v", sum, err)
	}
}

// ─── History & Undo ─────────────────────────────────────────────────────────

func TestProcessBatch_JournalsAndUndo(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/scan.pdf", "/d/app.exe")
	r, _ := newTestRenamer(t, fs, fixed("Contract"))
	h := &memHistory{}
	r.SetHistory(h)

	sum, _ := r.ProcessBatch(context.Background(), []string{"/d/scan.pdf", "/d/app.exe"}, nil)
	if len(h.entries) != 2 {
		t.Fatalf("journaled %d entries, want 2", len(h.entries))
	}
	var okID int64
	for _, e := range h.entries {
		if e.BatchID != sum.BatchID || e.Provider != domain.ProviderOpenAI {
			t.Errorf("entry = %+v", e)
		}
		if e.Success {
			okID = e.ID
		}
	}

	entry, err := r.Undo(context.Background(), okID)
	if err != nil {
		t.Fatalf("Undo() error: %v", err)
	}
	if entry.UndoneAt == nil {
		t.Error("entry not marked undone")
	}
	mustExist(t, fs, "/d/scan.pdf")
	mustNotExist(t, fs, "/d/Contract.pdf")

	if _, err := r.Undo(context.Background(), okID); !errors.Is(err, domain.ErrNotUndoable) {
		t.Errorf("second Undo() err = %v, want ErrNotUndoable", err)
	}
}

// pinnedSuggester records the provider each file was suggested with and
// switches the active provider after its first call.
type pinnedSuggester struct {
	mu       sync.Mutex
	settings mapSettings
	used     map[string]domain.ProviderID // content -> provider
}

func (p *pinnedSuggester) GetSuggestion(context.Context, string, string, domain.NamingPreferences) (string, error) {
	return "", errors.New("GetSuggestion called on a pinned suggester")
}

func (p *pinnedSuggester) SuggestWith(_ context.Context, cfg domain.ProviderConfig, content, _ string, _ domain.NamingPreferences) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.used) == 0 {
		p.settings.Update(map[string]string{"llm_provider": "deepseek"})
	}
	p.used[content] = cfg.ID
	return "Named " + string(cfg.ID) + " " + fmt.Sprint(len(p.used)), nil
}

func TestProcessBatch_JournalsProviderPerFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/d/a.pdf", "/d/b.pdf")
	st := mapSettings{"openai_api_key": "sk-test", "deepseek_api_key": "sk-ds"}
	sg := &pinnedSuggester{settings: st, used: map[string]domain.ProviderID{}}
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 1
	r := New(cfg, fs, st, &fakeExtractor{}, sg)
	h := &memHistory{}
	r.SetHistory(h)

	sum, err := r.ProcessBatch(context.Background(), []string{"/d/a.pdf", "/d/b.pdf"}, nil)
	if err != nil || sum.Succeeded != 2 {
		t.Fatalf("ProcessBatch() = %+v, %v", sum, err)
	}

	seen := map[domain.ProviderID]bool{}
	for _, e := range h.entries {
		want := sg.used["content of "+filepath.Base(e.OriginalPath)]
		if e.Provider != want {
			t.Errorf("%s journaled provider %q, suggested with %q", e.OriginalPath, e.Provider, want)
		}
		if e.Model != e.Provider.DefaultModel() {
			t.Errorf("%s journaled model %q", e.OriginalPath, e.Model)
		}
		seen[e.Provider] = true
	}
	if !seen[domain.ProviderOpenAI] || !seen[domain.ProviderDeepSeek] {
		t.Errorf("providers journaled = %v, want openai and deepseek", seen)
	}
	for _, res := range sum.Results {
		if res.Provider == "" {
			t.Errorf("result %s has no provider", res.OriginalPath)
		}
	}
}

func TestUndo_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	r, _ := newTestRenamer(t, fs, fixed("x"))
	if _, err := r.Undo(context.Background(), 1); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("err = %v, want ErrHistoryDisabled", err)
	}

	h := &memHistory{}
	r.SetHistory(h)
	if _, err := r.Undo(context.Background(), 42); !errors.Is(err, domain.ErrHistoryNotFound) {
		t.Errorf("err = %v, want ErrHistoryNotFound", err)
	}

	// original path taken again
	writeFiles(t, fs, "/d/orig.pdf", "/d/New.pdf")
	h.RecordRename(context.Background(), domain.HistoryEntry{OriginalPath: "/d/orig.pdf", FinalPath: "/d/New.pdf", Success: true})
	if _, err := r.Undo(context.Background(), 1); !errors.Is(err, domain.ErrNotUndoable) {
		t.Errorf("err = %v, want ErrNotUndoable", err)
	}
	mustExist(t, fs, "/d/New.pdf")

	// failed attempts cannot be undone
	h.RecordRename(context.Background(), domain.HistoryEntry{OriginalPath: "/d/x.pdf", Success: false})
	if _, err := r.Undo(context.Background(), 2); !errors.Is(err, domain.ErrNotUndoable) {
		t.Errorf("err = %v, want ErrNotUndoable", err)
	}
}

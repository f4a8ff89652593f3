// Package renamer orchestrates the rename pipeline for a batch of files.
//
// Each file moves through a linear state machine with no retries:
//
//	pre-flight → Pending → Extracting → Suggesting → Renaming → Succeeded | Failed
//
// Any failure short-circuits to Failed with a user-facing message. Files in
// a batch run concurrently, bounded by a semaphore; a Renamer runs at most
// one batch at a time.
package renamer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/renami-app/renami/internal/config"
	"github.com/renami-app/renami/internal/domain"
	"github.com/renami-app/renami/internal/infra/observability"
)

// Config controls renamer behavior.
type Config struct {
	MaxConcurrent       int      // Maximum files processed at once (default: 8)
	SupportedExtensions []string // Lower-case, dot-prefixed
	PlainTextExtensions []string // Read directly instead of converted
	ImageExtensions     []string // Described by the provider when a describer is set
	MaxImageBytes       int64    // Larger images are not described (default: 4 MiB)
}

// DefaultConfig returns the renamer defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:       8,
		SupportedExtensions: append([]string(nil), config.DefaultSupportedExtensions...),
		PlainTextExtensions: []string{".txt"},
		ImageExtensions:     append([]string(nil), config.DefaultImageExtensions...),
		MaxImageBytes:       config.DefaultMaxImageBytes,
	}
}

// ConfigFrom maps the [batch] section of config.toml.
func ConfigFrom(c config.BatchConfig) Config {
	return Config{
		MaxConcurrent:       c.MaxConcurrent,
		SupportedExtensions: config.NormalizeExtensions(c.SupportedExtensions),
		PlainTextExtensions: config.NormalizeExtensions(c.PlainTextExtensions),
		ImageExtensions:     config.NormalizeExtensions(c.ImageExtensions),
		MaxImageBytes:       c.MaxImageBytes,
	}
}

// Renamer runs rename batches.
type Renamer struct {
	mu         sync.RWMutex
	config     Config
	fs         afero.Fs
	settings   domain.Settings
	extractor  domain.Extractor
	suggester  domain.Suggester
	history    domain.History        // optional
	describer  domain.ImageDescriber // optional
	supported  map[string]bool
	plainText  map[string]bool
	images     map[string]bool
	sem        chan struct{} // Concurrency semaphore
	processing bool
	active     int
	completed  int64
	failed     int64
}

// New creates a renamer. fs is the filesystem files are read from and
// renamed on (afero.NewOsFs() in production).
func New(cfg Config, fs afero.Fs, s domain.Settings, ex domain.Extractor, sg domain.Suggester) *Renamer {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = config.DefaultMaxImageBytes
	}
	return &Renamer{
		config:    cfg,
		fs:        fs,
		settings:  s,
		extractor: ex,
		suggester: sg,
		supported: toSet(cfg.SupportedExtensions),
		plainText: toSet(cfg.PlainTextExtensions),
		images:    toSet(cfg.ImageExtensions),
		sem:       make(chan struct{}, cfg.MaxConcurrent),
	}
}

// SetHistory attaches a rename journal. Journaling is best effort.
func (r *Renamer) SetHistory(h domain.History) {
	r.mu.Lock()
	r.history = h
	r.mu.Unlock()
}

// SetImageDescriber enables image descriptions: images listed in
// ImageExtensions are described by the active provider and the description is
// appended to their extracted text. A failed description is logged and the
// extracted text is used alone.
func (r *Renamer) SetImageDescriber(d domain.ImageDescriber) {
	r.mu.Lock()
	r.describer = d
	r.mu.Unlock()
}

// Supported reports whether ext (with dot, any case) is accepted.
func (r *Renamer) Supported(ext string) bool {
	return r.supported[lower(ext)]
}

// IsProcessing reports whether a batch is running.
func (r *Renamer) IsProcessing() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.processing
}

// ProcessBatch renames every path and returns the results in input order.
// It returns domain.ErrBatchInProgress if another batch is running. onResult,
// if non-nil, is called once per file as it finishes; calls are serialized.
func (r *Renamer) ProcessBatch(ctx context.Context, paths []string, onResult func(domain.RenameResult)) (domain.BatchSummary, error) {
	r.mu.Lock()
	if r.processing {
		r.mu.Unlock()
		observability.BatchesRejected.Inc()
		return domain.BatchSummary{}, domain.ErrBatchInProgress
	}
	r.processing = true
	history := r.history
	r.mu.Unlock()

	observability.BatchInProgress.Set(1)
	defer func() {
		r.mu.Lock()
		r.processing = false
		r.mu.Unlock()
		observability.BatchInProgress.Set(0)
	}()

	summary := domain.BatchSummary{
		BatchID:   uuid.NewString(),
		Results:   make([]domain.RenameResult, len(paths)),
		Total:     len(paths),
		StartedAt: time.Now(),
	}
	observability.BatchesStarted.Inc()
	observability.BatchSize.Observe(float64(len(paths)))
	log.Printf("[renamer] batch %s started: %d file(s)", summary.BatchID, len(paths))

	var (
		wg   sync.WaitGroup
		cbMu sync.Mutex
	)
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			res := r.run(ctx, path)
			summary.Results[i] = res
			if history != nil {
				r.journal(ctx, history, summary.BatchID, res)
			}
			if onResult != nil {
				cbMu.Lock()
				onResult(res)
				cbMu.Unlock()
			}
		}(i, path)
	}
	wg.Wait()

	for _, res := range summary.Results {
		if res.Success {
			summary.Succeeded++
		}
	}
	summary.FinishedAt = time.Now()
	observability.BatchDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	log.Printf("[renamer] batch %s finished: %d/%d renamed in %s",
		summary.BatchID, summary.Succeeded, summary.Total, summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	return summary, nil
}

// run executes one file task inside a concurrency slot. Panics become a
// Failed result.
func (r *Renamer) run(ctx context.Context, path string) (res domain.RenameResult) {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return r.finish(failed(path, domain.StagePending, "Cancelled: "+ctx.Err().Error()))
	}
	defer func() { <-r.sem }()

	r.mu.Lock()
	r.active++
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}()

	defer func() {
		if p := recover(); p != nil {
			log.Printf("[renamer] panic processing %s: %v", path, p)
			res = r.finish(failed(path, domain.StageFailed, fmt.Sprintf("Unexpected error: %v", p)))
		}
	}()

	return r.finish(r.processFile(ctx, path))
}

// finish updates counters and metrics for a finished file.
func (r *Renamer) finish(res domain.RenameResult) domain.RenameResult {
	r.mu.Lock()
	if res.Success {
		r.completed++
	} else {
		r.failed++
	}
	r.mu.Unlock()

	observability.ObserveRename(string(res.Stage), res.Success)
	if res.Success {
		log.Printf("[renamer] %s -> %s", res.OriginalPath, res.FinalPath)
	} else {
		log.Printf("[renamer] %s failed at %s: %s", res.OriginalPath, res.Stage, res.Message)
	}
	return res
}

func (r *Renamer) journal(ctx context.Context, h domain.History, batchID string, res domain.RenameResult) {
	entry := domain.HistoryEntry{
		BatchID:      batchID,
		OriginalPath: res.OriginalPath,
		FinalPath:    res.FinalPath,
		Provider:     res.Provider,
		Model:        res.Model,
		Success:      res.Success,
		Message:      res.Message,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := h.RecordRename(ctx, entry); err != nil {
		log.Printf("[history] record %s: %v", res.OriginalPath, err)
	}
}

// Stats describes renamer activity since creation.
type Stats struct {
	Processing bool  `json:"processing"`
	Active     int   `json:"active"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	MaxSlots   int   `json:"max_slots"`
	FreeSlots  int   `json:"free_slots"`
}

// Stats returns current renamer statistics.
func (r *Renamer) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		Processing: r.processing,
		Active:     r.active,
		Completed:  r.completed,
		Failed:     r.failed,
		MaxSlots:   r.config.MaxConcurrent,
		FreeSlots:  r.config.MaxConcurrent - r.active,
	}
}

func toSet(exts []string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, e := range config.NormalizeExtensions(exts) {
		m[e] = true
	}
	return m
}

package domain

import "time"

// ─── Extraction ─────────────────────────────────────────────────────────────

// ExtractionKind tags an Extraction.
type ExtractionKind int

const (
	ExtractOK ExtractionKind = iota
	ExtractBlank
	ExtractFailed
)

func (k ExtractionKind) String() string {
	switch k {
	case ExtractOK:
		return "ok"
	case ExtractBlank:
		return "blank"
	default:
		return "failed"
	}
}

// BlankFileContent is sent to the model in place of empty content.
const BlankFileContent = "blank file"

// Extraction is the result of reading a file's textual content.
// Exactly one of Content (OK) or Reason (Failed) is meaningful.
type Extraction struct {
	Kind    ExtractionKind
	Content string
	Reason  string
}

// ExtractedText returns an OK extraction.
func ExtractedText(content string) Extraction {
	return Extraction{Kind: ExtractOK, Content: content}
}

// ExtractedBlank returns a Blank extraction.
func ExtractedBlank() Extraction { return Extraction{Kind: ExtractBlank} }

// ExtractionFailed returns a Failed extraction with the given reason.
func ExtractionFailed(reason string) Extraction {
	return Extraction{Kind: ExtractFailed, Reason: reason}
}

// PromptContent returns the text to send to the model, substituting the
// blank-file placeholder for blank input.
func (e Extraction) PromptContent() string {
	if e.Kind == ExtractBlank {
		return BlankFileContent
	}
	return e.Content
}

// ─── Per-file State ─────────────────────────────────────────────────────────

// Stage is a state of the per-file state machine:
// Pending → Extracting → Suggesting → Renaming → Succeeded | Failed.
type Stage string

const (
	StagePreflight  Stage = "preflight"
	StagePending    Stage = "pending"
	StageExtracting Stage = "extracting"
	StageSuggesting Stage = "suggesting"
	StageRenaming   Stage = "renaming"
	StageSucceeded  Stage = "succeeded"
	StageFailed     Stage = "failed"
)

// RenameResult is the outcome of processing one file.
// FinalPath is empty when the file was not moved.
type RenameResult struct {
	OriginalPath string `json:"original_path"`
	FinalPath    string `json:"final_path,omitempty"`
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Stage        Stage  `json:"stage"` // state the file was in when it finished or failed

	Provider ProviderID `json:"provider,omitempty"` // provider resolved for this file
	Model    string     `json:"model,omitempty"`
}

// BatchSummary aggregates a batch once every member result has resolved.
type BatchSummary struct {
	BatchID    string         `json:"batch_id"`
	Results    []RenameResult `json:"results"`
	Succeeded  int            `json:"succeeded"`
	Total      int            `json:"total"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Failed returns the number of failed results.
func (b BatchSummary) Failed() int { return b.Total - b.Succeeded }

// AllSucceeded reports whether every file was renamed.
func (b BatchSummary) AllSucceeded() bool { return b.Total > 0 && b.Succeeded == b.Total }

// ─── History ────────────────────────────────────────────────────────────────

// HistoryEntry is one journaled rename attempt.
type HistoryEntry struct {
	ID           int64      `json:"id"`
	BatchID      string     `json:"batch_id"`
	OriginalPath string     `json:"original_path"`
	FinalPath    string     `json:"final_path,omitempty"`
	Provider     ProviderID `json:"provider"`
	Model        string     `json:"model"`
	Success      bool       `json:"success"`
	Message      string     `json:"message"`
	CreatedAt    time.Time  `json:"created_at"`
	UndoneAt     *time.Time `json:"undone_at,omitempty"`
}

// Undoable reports whether the entry describes a move that can be reverted.
func (h HistoryEntry) Undoable() bool {
	return h.Success && h.FinalPath != "" && h.UndoneAt == nil && h.FinalPath != h.OriginalPath
}

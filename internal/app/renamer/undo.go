package renamer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/renami-app/renami/internal/domain"
	"github.com/renami-app/renami/internal/infra/observability"
)

// ErrHistoryDisabled is returned by Undo when no journal is attached.
var ErrHistoryDisabled = errors.New("rename history is disabled")

// Undo moves the file of a journaled rename back to its original path and
// marks the entry undone. The original path must be free.
func (r *Renamer) Undo(ctx context.Context, id int64) (domain.HistoryEntry, error) {
	r.mu.RLock()
	h := r.history
	r.mu.RUnlock()
	if h == nil {
		return domain.HistoryEntry{}, ErrHistoryDisabled
	}

	entry, err := h.GetRename(ctx, id)
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	if !entry.Undoable() {
		observability.Undos.WithLabelValues(observability.OutcomeFailed).Inc()
		return *entry, domain.ErrNotUndoable
	}
	if _, err := r.fs.Stat(entry.FinalPath); err != nil {
		observability.Undos.WithLabelValues(observability.OutcomeFailed).Inc()
		return *entry, fmt.Errorf("%w: %s no longer exists", domain.ErrNotUndoable, entry.FinalPath)
	}
	if _, err := r.fs.Stat(entry.OriginalPath); err == nil {
		observability.Undos.WithLabelValues(observability.OutcomeFailed).Inc()
		return *entry, fmt.Errorf("%w: %s is taken", domain.ErrNotUndoable, entry.OriginalPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return *entry, fmt.Errorf("check %s: %w", entry.OriginalPath, err)
	}

	if err := r.fs.Rename(entry.FinalPath, entry.OriginalPath); err != nil {
		observability.Undos.WithLabelValues(observability.OutcomeFailed).Inc()
		return *entry, fmt.Errorf("undo rename: %w", err)
	}
	if err := h.MarkUndone(ctx, id); err != nil {
		return *entry, fmt.Errorf("mark undone: %w", err)
	}
	observability.Undos.WithLabelValues(observability.OutcomeOK).Inc()
	log.Printf("[renamer] undo #%d: %s -> %s", id, entry.FinalPath, entry.OriginalPath)

	undone, err := h.GetRename(ctx, id)
	if err != nil {
		return *entry, nil
	}
	return *undone, nil
}

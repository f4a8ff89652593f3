package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/renami-app/renami/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ─── Open ───────────────────────────────────────────────────────────────────

func TestOpen_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	db.RecordRename(context.Background(), domain.HistoryEntry{BatchID: "b", OriginalPath: "/a"})
	db.Close()

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("re-Open() error: %v", err)
	}
	defer db.Close()
	list, _ := db.ListRenames(context.Background(), 0)
	if len(list) != 1 {
		t.Errorf("entries after reopen = %d, want 1", len(list))
	}
}

// ─── History ────────────────────────────────────────────────────────────────

func TestRecordAndGetRename(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	id, err := db.RecordRename(ctx, domain.HistoryEntry{
		BatchID:      "batch-1",
		OriginalPath: "/d/scan.pdf",
		FinalPath:    "/d/Contract.pdf",
		Provider:     domain.ProviderDeepSeek,
		Model:        "deepseek-chat",
		Success:      true,
		Message:      "Successfully renamed to Contract.pdf",
		CreatedAt:    created,
	})
	if err != nil {
		t.Fatalf("RecordRename() error: %v", err)
	}

	e, err := db.GetRename(ctx, id)
	if err != nil {
		t.Fatalf("GetRename() error: %v", err)
	}
	if e.OriginalPath != "/d/scan.pdf" || e.FinalPath != "/d/Contract.pdf" {
		t.Errorf("paths = %q -> %q", e.OriginalPath, e.FinalPath)
	}
	if e.Provider != domain.ProviderDeepSeek || e.Model != "deepseek-chat" || !e.Success {
		t.Errorf("entry = %+v", e)
	}
	if !e.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, created)
	}
	if e.UndoneAt != nil || !e.Undoable() {
		t.Errorf("fresh entry should be undoable: %+v", e)
	}
}

func TestGetRename_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetRename(context.Background(), 99); !errors.Is(err, domain.ErrHistoryNotFound) {
		t.Errorf("err = %v, want ErrHistoryNotFound", err)
	}
}

func TestListRenames_NewestFirstWithLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for _, p := range []string{"/1", "/2", "/3"} {
		if _, err := db.RecordRename(ctx, domain.HistoryEntry{BatchID: "b", OriginalPath: p}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := db.ListRenames(ctx, 2)
	if err != nil {
		t.Fatalf("ListRenames() error: %v", err)
	}
	if len(list) != 2 || list[0].OriginalPath != "/3" || list[1].OriginalPath != "/2" {
		t.Errorf("list = %+v", list)
	}

	all, _ := db.ListRenames(ctx, 0)
	if len(all) != 3 {
		t.Errorf("ListRenames(0) = %d entries, want 3", len(all))
	}
}

func TestListBatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	db.RecordRename(ctx, domain.HistoryEntry{BatchID: "a", OriginalPath: "/a1"})
	db.RecordRename(ctx, domain.HistoryEntry{BatchID: "b", OriginalPath: "/b1"})
	db.RecordRename(ctx, domain.HistoryEntry{BatchID: "a", OriginalPath: "/a2"})

	list, err := db.ListBatch(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].OriginalPath != "/a1" || list[1].OriginalPath != "/a2" {
		t.Errorf("batch a = %+v", list)
	}
}

func TestMarkUndone(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id, _ := db.RecordRename(ctx, domain.HistoryEntry{BatchID: "b", OriginalPath: "/a", FinalPath: "/b", Success: true})

	if err := db.MarkUndone(ctx, id); err != nil {
		t.Fatalf("MarkUndone() error: %v", err)
	}
	e, _ := db.GetRename(ctx, id)
	if e.UndoneAt == nil {
		t.Fatal("UndoneAt not set")
	}
	if e.Undoable() {
		t.Error("undone entry should not be undoable")
	}
	if err := db.MarkUndone(ctx, id); !errors.Is(err, domain.ErrNotUndoable) {
		t.Errorf("second MarkUndone() err = %v, want ErrNotUndoable", err)
	}
}

func TestDB_ImplementsHistory(t *testing.T) {
	var _ domain.History = newTestDB(t)
}

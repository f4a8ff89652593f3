package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/renami-app/renami/internal/domain"
)

// ─── History Schema ─────────────────────────────────────────────────────────

// HistoryMigrations returns the rename journal schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func HistoryMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS rename_history (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id      TEXT NOT NULL,
			original_path TEXT NOT NULL,
			final_path    TEXT NOT NULL DEFAULT '',
			provider      TEXT NOT NULL DEFAULT '',
			model         TEXT NOT NULL DEFAULT '',
			success       INTEGER NOT NULL DEFAULT 0,
			message       TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL,
			undone_at     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rename_history_batch ON rename_history(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rename_history_created ON rename_history(created_at)`,
	}
}

var historyColumns = []string{
	"id", "batch_id", "original_path", "final_path", "provider", "model",
	"success", "message", "created_at", "undone_at",
}

// ─── History Operations ─────────────────────────────────────────────────────

// RecordRename journals one rename attempt and returns its id.
func (db *DB) RecordRename(ctx context.Context, e domain.HistoryEntry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	q := db.sq.Insert("rename_history").
		Columns("batch_id", "original_path", "final_path", "provider", "model", "success", "message", "created_at").
		Values(e.BatchID, e.OriginalPath, e.FinalPath, string(e.Provider), e.Model, boolInt(e.Success), e.Message, formatTime(e.CreatedAt))
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := db.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("insert history: %w", err)
	}
	return res.LastInsertId()
}

// GetRename returns one entry, or domain.ErrHistoryNotFound.
func (db *DB) GetRename(ctx context.Context, id int64) (*domain.HistoryEntry, error) {
	sqlStr, args, err := db.sq.Select(historyColumns...).From("rename_history").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	e, err := scanEntry(db.db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: #%d", domain.ErrHistoryNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListRenames returns the newest entries first. limit <= 0 returns all.
func (db *DB) ListRenames(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	q := db.sq.Select(historyColumns...).From("rename_history").OrderBy("id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// ListBatch returns the entries of one batch in insertion order.
func (db *DB) ListBatch(ctx context.Context, batchID string) ([]domain.HistoryEntry, error) {
	sqlStr, args, err := db.sq.Select(historyColumns...).From("rename_history").
		Where(sq.Eq{"batch_id": batchID}).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list batch: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// MarkUndone stamps an entry as reverted.
func (db *DB) MarkUndone(ctx context.Context, id int64) error {
	sqlStr, args, err := db.sq.Update("rename_history").
		Set("undone_at", formatTime(time.Now())).
		Where(sq.And{sq.Eq{"id": id}, sq.Eq{"undone_at": nil}}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := db.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("mark undone: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: #%d", domain.ErrNotUndoable, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.HistoryEntry, error) {
	var (
		e        domain.HistoryEntry
		provider string
		success  int
		created  string
		undone   sql.NullString
	)
	if err := row.Scan(&e.ID, &e.BatchID, &e.OriginalPath, &e.FinalPath, &provider, &e.Model,
		&success, &e.Message, &created, &undone); err != nil {
		return nil, err
	}
	e.Provider = domain.ProviderID(provider)
	e.Success = success == 1
	e.CreatedAt = parseTime(created)
	if undone.Valid {
		t := parseTime(undone.String)
		e.UndoneAt = &t
	}
	return &e, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

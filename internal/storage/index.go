package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Index is the archive's SQLite bookkeeping table. It holds one row per
// archived article id so re-runs and state resets never duplicate log lines.
type Index struct {
	db *sql.DB
}

func NewIndex(dsn string) (*Index, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}
	if err := ensureIndexDir(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	index := &Index{db: db}
	if err := index.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return index, nil
}

func (i *Index) Has(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	var archivedAt time.Time
	err := i.db.QueryRowContext(ctx, "SELECT archived_at FROM archived_articles WHERE id = ?", id).Scan(&archivedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (i *Index) MarkBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO archived_articles (id, archived_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING")
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	now := time.Now().UTC()
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, id, now); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (i *Index) Close() error {
	if i == nil || i.db == nil {
		return nil
	}
	return i.db.Close()
}

func (i *Index) ensureSchema(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS archived_articles (
		id TEXT PRIMARY KEY,
		archived_at TIMESTAMP NOT NULL
	)`
	if _, err := i.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create archive index table: %w", err)
	}
	return nil
}

func ensureIndexDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") {
		dsn = strings.TrimPrefix(dsn, "file:")
		if idx := strings.IndexRune(dsn, '?'); idx >= 0 {
			dsn = dsn[:idx]
		}
	}
	if dsn == "" || dsn == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database used for caching prefetched thread content
// locally.
type Store struct {
	db *sql.DB
}

// Open opens (and creates/migrates) the cache database at the given path.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("empty cache path")
	}
	// Validate path to prevent directory traversal
	cleanPath := filepath.Clean(dbPath)
	if strings.Contains(cleanPath, "..") {
		return nil, fmt.Errorf("invalid cache path: contains directory traversal")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	// Ensure file exists with strict perms
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		f, err := os.OpenFile(dbPath, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("create cache db: %w", err)
		}
		_ = f.Close()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// Pragmas
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys=ON;")
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout=5000;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	// user_version based migrations (v1 initializes thread_contents)
	var ver int
	_ = s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver)
	if ver == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS thread_contents (
  account_email TEXT NOT NULL,
  thread_id     TEXT NOT NULL,
  subject       TEXT,
  content       TEXT NOT NULL,
  updated_at    INTEGER NOT NULL,
  PRIMARY KEY (account_email, thread_id)
);
`)
		if err == nil {
			_, err = tx.ExecContext(ctx, "PRAGMA user_version=1;")
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate v1: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// SaveThreadContent upserts prefetched content for (account_email, thread_id).
func (s *Store) SaveThreadContent(ctx context.Context, accountEmail, threadID, subject, content string, updatedAt int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("cache store not initialized")
	}
	if strings.TrimSpace(accountEmail) == "" || strings.TrimSpace(threadID) == "" {
		return fmt.Errorf("invalid thread content inputs")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO thread_contents(account_email, thread_id, subject, content, updated_at)
VALUES(?,?,?,?,?)
ON CONFLICT(account_email, thread_id) DO UPDATE SET subject=excluded.subject, content=excluded.content, updated_at=excluded.updated_at;
`, accountEmail, threadID, subject, content, updatedAt)
	return err
}

// LoadThreadContent returns cached content if present.
func (s *Store) LoadThreadContent(ctx context.Context, accountEmail, threadID string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, fmt.Errorf("cache store not initialized")
	}
	var out string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM thread_contents WHERE account_email=? AND thread_id=?`, accountEmail, threadID).Scan(&out)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return out, true, nil
}

// DeleteThreadContent removes cached content for (account_email, thread_id).
func (s *Store) DeleteThreadContent(ctx context.Context, accountEmail, threadID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("cache store not initialized")
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM thread_contents WHERE account_email=? AND thread_id=?`, accountEmail, threadID)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Package audiocache keeps synthesized speech in SQLite so repeated answers
// skip the voice API.
package audiocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/loqalabs/bolo/internal/config"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed audio cache. In ephemeral mode it holds no
// database and every lookup misses.
type Store struct {
	db    *sql.DB
	cfg   config.CacheConfig
	log   *slog.Logger
	clock func() time.Time
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open initializes the cache according to config.
func Open(ctx context.Context, cfg config.CacheConfig, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			log.Warn("audio cache vacuum failed", slog.String("error", err.Error()))
		}
	}
	if err := s.Prune(ctx); err != nil {
		log.Warn("audio cache prune on start failed", slog.String("error", err.Error()))
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS audio (
    cache_key TEXT PRIMARY KEY,
    content_type TEXT NOT NULL,
    content BLOB NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audio_created ON audio(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) vacuum(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lookup returns the cached audio for key.
func (s *Store) Lookup(ctx context.Context, key string) ([]byte, string, bool, error) {
	if s.db == nil {
		return nil, "", false, nil
	}
	var (
		content     []byte
		contentType string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT content, content_type FROM audio WHERE cache_key = ?`, key).Scan(&content, &contentType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, err
	}
	return content, contentType, true, nil
}

// Store upserts audio under key and trims the table to MaxEntries.
func (s *Store) Store(ctx context.Context, key string, content []byte, contentType string) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audio(cache_key, content_type, content, created_at)
		 VALUES(?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET content_type=excluded.content_type, content=excluded.content, created_at=excluded.created_at`,
		key, contentType, content, s.clock().UTC().UnixNano())
	if err != nil {
		return err
	}
	s.log.Debug("audio cached", slog.String("size", humanize.Bytes(uint64(len(content)))))
	return s.trim(ctx, s.db)
}

// Len reports the number of cached entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audio`).Scan(&n)
	return n, err
}

// Prune applies configured retention (called on startup and on a schedule).
func (s *Store) Prune(ctx context.Context) (err error) {
	if s.cfg.RetentionMode != "persistent" || s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM audio WHERE created_at < ?`, cutoff.UTC().UnixNano()); err != nil {
			return err
		}
	}
	if err = s.trim(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) trim(ctx context.Context, db execer) error {
	if s.cfg.MaxEntries <= 0 {
		return nil
	}
	_, err := db.ExecContext(ctx, `DELETE FROM audio WHERE cache_key IN (
		SELECT cache_key FROM audio ORDER BY created_at DESC LIMIT -1 OFFSET ?
	)`, s.cfg.MaxEntries)
	return err
}

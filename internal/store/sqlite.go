package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/coursetutor/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements ClipRepository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed clip repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL lets the sweeper delete while sessions read.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS tts_clips (
		clip_key TEXT PRIMARY KEY,
		audio BLOB NOT NULL,
		size_bytes INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		last_used_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tts_clips_last_used ON tts_clips(last_used_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetClip retrieves a clip and marks it as recently used.
func (s *SQLiteStore) GetClip(ctx context.Context, key string) ([]byte, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT audio FROM tts_clips WHERE clip_key = ?`, key)

	var audio []byte
	err := row.Scan(&audio)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scan clip row: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE tts_clips SET last_used_at = ? WHERE clip_key = ?`,
		time.Now().Unix(), key,
	); err != nil && !shared.IsSQLiteConflictError(err) {
		slog.Debug("failed to touch clip", "key", key, "error", err)
	}

	return audio, true, nil
}

// PutClip stores a clip. Writes that hit SQLITE_BUSY are retried with
// exponential backoff.
func (s *SQLiteStore) PutClip(ctx context.Context, key string, audio []byte) error {
	return shared.RetryOnConflict(ctx, "put clip", func() error {
		return s.putClipOnce(ctx, key, audio)
	})
}

func (s *SQLiteStore) putClipOnce(ctx context.Context, key string, audio []byte) error {
	query := `
	INSERT INTO tts_clips (clip_key, audio, size_bytes, created_at, last_used_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(clip_key) DO UPDATE SET
		audio = excluded.audio,
		size_bytes = excluded.size_bytes,
		last_used_at = excluded.last_used_at`

	now := time.Now().Unix()
	if _, err := s.db.ExecContext(ctx, query, key, audio, len(audio), now, now); err != nil {
		return fmt.Errorf("upsert clip: %w", err)
	}
	return nil
}

// DeleteExpiredClips removes clips whose last use is older than ttl.
func (s *SQLiteStore) DeleteExpiredClips(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).Unix()

	var deleted int64
	err := shared.RetryOnConflict(ctx, "delete expired clips", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM tts_clips WHERE last_used_at < ?`, threshold)
		if err != nil {
			return fmt.Errorf("delete expired clips: %w", err)
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

// Stats reports clip count and total size.
func (s *SQLiteStore) Stats(ctx context.Context) (ClipStats, error) {
	var stats ClipStats
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM tts_clips`)
	if err := row.Scan(&stats.Clips, &stats.Bytes); err != nil {
		return ClipStats{}, fmt.Errorf("scan clip stats: %w", err)
	}
	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

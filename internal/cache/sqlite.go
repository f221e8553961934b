package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend persists entries in a local SQLite file so cached payloads
// survive process restarts.
type SQLiteBackend struct {
	db        *sql.DB
	retention time.Duration
}

func OpenSQLite(dbPath string, retention time.Duration) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteBackend{db: db, retention: retention}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteBackend) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			key       TEXT PRIMARY KEY,
			value     BLOB NOT NULL,
			stored_at INTEGER NOT NULL,
			ttl_ms    INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_cache_entries_stored_at ON cache_entries(stored_at);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) Name() string {
	return "sqlite"
}

func (s *SQLiteBackend) Load(ctx context.Context, key string) (Entry, bool, error) {
	var (
		value    []byte
		storedAt int64
		ttlMs    int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, stored_at, ttl_ms FROM cache_entries WHERE key = ?`, key,
	).Scan(&value, &storedAt, &ttlMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	return Entry{
		Key:      key,
		Value:    value,
		StoredAt: time.UnixMilli(storedAt),
		TTL:      time.Duration(ttlMs) * time.Millisecond,
	}, true, nil
}

func (s *SQLiteBackend) Save(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, stored_at, ttl_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			stored_at = excluded.stored_at,
			ttl_ms = excluded.ttl_ms
	`, entry.Key, []byte(entry.Value), entry.StoredAt.UnixMilli(), entry.TTL.Milliseconds())
	if err != nil {
		return fmt.Errorf("upserting entry %s: %w", entry.Key, err)
	}
	return nil
}

func (s *SQLiteBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = k
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE key IN ("+strings.Join(placeholders, ",")+")", //nolint:gosec
		args...,
	)
	return err
}

func (s *SQLiteBackend) Demote(ctx context.Context, entry Entry, staleKey string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key = ? AND stored_at = ?`,
		entry.Key, entry.StoredAt.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("demoting entry %s: %w", entry.Key, err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, stored_at, ttl_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			stored_at = excluded.stored_at,
			ttl_ms = excluded.ttl_ms
	`, staleKey, []byte(entry.Value), entry.StoredAt.UnixMilli(), entry.TTL.Milliseconds())
	if err != nil {
		return false, fmt.Errorf("upserting entry %s: %w", staleKey, err)
	}
	return true, tx.Commit()
}

func (s *SQLiteBackend) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	return err
}

func (s *SQLiteBackend) Prune(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE stored_at + ttl_ms + ? < ?`,
		s.retention.Milliseconds(), now.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

var (
	_ Backend = (*SQLiteBackend)(nil)
	_ Pruner  = (*SQLiteBackend)(nil)
)

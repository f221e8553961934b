package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/johnrirwin/journalfeed/internal/cache"
)

// CacheStore persists cache entries in Postgres so several BFF instances can
// share one result cache.
type CacheStore struct {
	db        *DB
	retention time.Duration
}

func NewCacheStore(db *DB, retention time.Duration) *CacheStore {
	return &CacheStore{db: db, retention: retention}
}

func (s *CacheStore) Name() string {
	return "postgres"
}

func (s *CacheStore) Load(ctx context.Context, key string) (cache.Entry, bool, error) {
	var (
		value    []byte
		storedAt time.Time
		ttlMs    int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, stored_at, ttl_ms FROM cache_entries WHERE key = $1`, key,
	).Scan(&value, &storedAt, &ttlMs)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("load cache entry: %w", err)
	}

	return cache.Entry{
		Key:      key,
		Value:    value,
		StoredAt: storedAt,
		TTL:      time.Duration(ttlMs) * time.Millisecond,
	}, true, nil
}

func (s *CacheStore) Save(ctx context.Context, entry cache.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, stored_at, ttl_ms, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			stored_at = EXCLUDED.stored_at,
			ttl_ms = EXCLUDED.ttl_ms,
			updated_at = NOW()
	`, entry.Key, []byte(entry.Value), entry.StoredAt, entry.TTL.Milliseconds())
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (s *CacheStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ANY($1)`, pq.Array(keys))
	if err != nil {
		return fmt.Errorf("delete cache entries: %w", err)
	}
	return nil
}

func (s *CacheStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("clear cache entries: %w", err)
	}
	return nil
}

func (s *CacheStore) Prune(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM cache_entries
		WHERE stored_at + (ttl_ms + $1) * INTERVAL '1 millisecond' < $2
	`, s.retention.Milliseconds(), now)
	if err != nil {
		return 0, fmt.Errorf("prune cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

var (
	_ cache.Backend = (*CacheStore)(nil)
	_ cache.Pruner  = (*CacheStore)(nil)
)

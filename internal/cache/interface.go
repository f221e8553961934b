package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is one cached API payload. Entries are replaced wholesale, never
// mutated in place.
type Entry struct {
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
	StoredAt time.Time       `json:"stored_at"`
	TTL      time.Duration   `json:"ttl"`
}

// Expired reports whether the entry's TTL has fully elapsed at now. An entry
// aged exactly TTL is expired.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.StoredAt.Add(e.TTL))
}

// Age returns how long ago the entry was stored.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Backend defines the storage interface for cache entries. Backends keep
// expired entries for a retention window so stale values remain available
// as a fallback.
type Backend interface {
	Name() string
	Load(ctx context.Context, key string) (Entry, bool, error)
	Save(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}

// Pruner is implemented by backends that need an explicit sweep to drop
// entries past their retention window.
type Pruner interface {
	Prune(ctx context.Context, now time.Time) (int, error)
}

// Demoter is implemented by backends that can move an expired entry to its
// stale key atomically. Demote leaves the keyspace untouched and reports
// false when key no longer holds the entry stored at entry.StoredAt.
type Demoter interface {
	Demote(ctx context.Context, entry Entry, staleKey string) (bool, error)
}

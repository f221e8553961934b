// Package cache stores API payloads with a per-entry TTL over a pluggable
// backend (memory, redis, sqlite, postgres or none). It is an optimization
// only: backend failures are logged and surface as misses.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/johnrirwin/journalfeed/internal/logging"
	"github.com/johnrirwin/journalfeed/internal/metrics"
)

// staleKeyPrefix holds entries demoted by Get once they expire. They are no
// longer visible to Get but Peek can still serve them.
const staleKeyPrefix = "stale/"

type Cache struct {
	backend Backend
	logger  *logging.Logger
	now     func() time.Time
}

func New(backend Backend, logger *logging.Logger) *Cache {
	if backend == nil {
		backend = Nop{}
	}
	return &Cache{
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}
}

func (c *Cache) Backend() string {
	if c == nil {
		return Nop{}.Name()
	}
	return c.backend.Name()
}

// Get returns the value stored under key if it has not expired. An expired
// entry is removed from the live keyspace and kept only for Peek.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	if c == nil {
		return nil, false
	}

	entry, ok := c.load(ctx, key)
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	if entry.Expired(c.now()) {
		metrics.CacheLookups.WithLabelValues("expired").Inc()
		c.demote(ctx, entry)
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return entry.Value, true
}

// GetJSON decodes a fresh entry into v.
func (c *Cache) GetJSON(ctx context.Context, key string, v interface{}) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.logger.Warn("Discarding undecodable cache entry", logging.WithFields(map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		}))
		c.Clear(ctx, key)
		return false
	}
	return true
}

// Peek returns the most recent entry for key whether or not it has expired.
func (c *Cache) Peek(ctx context.Context, key string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}

	if entry, ok := c.load(ctx, key); ok {
		return entry, true
	}
	entry, ok := c.load(ctx, staleKeyPrefix+key)
	if !ok {
		return Entry{}, false
	}
	entry.Key = key
	metrics.CacheLookups.WithLabelValues("stale").Inc()
	return entry, true
}

// Set stores value under key, replacing any previous entry.
func (c *Cache) Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) {
	if c == nil || ttl <= 0 {
		return
	}

	entry := Entry{
		Key:      key,
		Value:    value,
		StoredAt: c.now(),
		TTL:      ttl,
	}
	if err := c.backend.Save(ctx, entry); err != nil {
		c.warn("save", key, err)
		return
	}
	if err := c.backend.Delete(ctx, staleKeyPrefix+key); err != nil {
		c.warn("delete", staleKeyPrefix+key, err)
	}
}

// SetJSON marshals v and stores it under key.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.warn("marshal", key, err)
		return
	}
	c.Set(ctx, key, raw, ttl)
}

// Clear removes the given keys, including their stale copies. With no keys
// it removes everything.
func (c *Cache) Clear(ctx context.Context, keys ...string) {
	if c == nil {
		return
	}

	if len(keys) == 0 {
		if err := c.backend.Clear(ctx); err != nil {
			c.warn("clear", "*", err)
		}
		return
	}

	all := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		all = append(all, k, staleKeyPrefix+k)
	}
	if err := c.backend.Delete(ctx, all...); err != nil {
		c.warn("delete", strings.Join(keys, ","), err)
	}
}

// Prune drops entries past their retention window on backends that need an
// explicit sweep.
func (c *Cache) Prune(ctx context.Context) int {
	if c == nil {
		return 0
	}
	p, ok := c.backend.(Pruner)
	if !ok {
		return 0
	}
	n, err := p.Prune(ctx, c.now())
	if err != nil {
		c.warn("prune", "*", err)
		return 0
	}
	return n
}

func (c *Cache) load(ctx context.Context, key string) (Entry, bool) {
	entry, ok, err := c.backend.Load(ctx, key)
	if err != nil {
		c.warn("load", key, err)
		return Entry{}, false
	}
	return entry, ok
}

// demote moves an expired entry to its stale key unless a newer Set has
// replaced it since it was loaded.
func (c *Cache) demote(ctx context.Context, entry Entry) {
	staleKey := staleKeyPrefix + entry.Key
	if d, ok := c.backend.(Demoter); ok {
		if _, err := d.Demote(ctx, entry, staleKey); err != nil {
			c.warn("demote", entry.Key, err)
		}
		return
	}

	current, ok := c.load(ctx, entry.Key)
	if !ok || !current.StoredAt.Equal(entry.StoredAt) {
		return
	}
	stale := entry
	stale.Key = staleKey
	if err := c.backend.Save(ctx, stale); err != nil {
		c.warn("save", stale.Key, err)
	}
	if err := c.backend.Delete(ctx, entry.Key); err != nil {
		c.warn("delete", entry.Key, err)
	}
}

func (c *Cache) warn(op, key string, err error) {
	c.logger.Warn("Cache backend error", logging.WithFields(map[string]interface{}{
		"backend": c.backend.Name(),
		"op":      op,
		"key":     key,
		"error":   err.Error(),
	}))
}

// Nop is a backend that never stores anything.
type Nop struct{}

func (Nop) Name() string { return "none" }

func (Nop) Load(context.Context, string) (Entry, bool, error) { return Entry{}, false, nil }

func (Nop) Save(context.Context, Entry) error { return nil }

func (Nop) Delete(context.Context, ...string) error { return nil }

func (Nop) Clear(context.Context) error { return nil }

var _ Backend = Nop{}

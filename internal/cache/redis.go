package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend is a Redis-backed cache backend
type RedisBackend struct {
	client    *redis.Client
	retention time.Duration
	prefix    string
}

// RedisConfig holds configuration for the Redis backend
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// redisEntry is the JSON envelope stored under each key.
type redisEntry struct {
	Value    json.RawMessage `json:"value"`
	StoredAt int64           `json:"stored_at_ms"`
	TTL      int64           `json:"ttl_ms"`
}

// NewRedis connects to Redis. Keys expire server-side after their TTL plus
// retention.
func NewRedis(cfg RedisConfig, retention time.Duration) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "journalfeed:"
	}

	return &RedisBackend{
		client:    client,
		retention: retention,
		prefix:    prefix,
	}, nil
}

func (r *RedisBackend) Name() string {
	return "redis"
}

func (r *RedisBackend) key(k string) string {
	return r.prefix + k
}

func (r *RedisBackend) Load(ctx context.Context, key string) (Entry, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var stored redisEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return Entry{}, false, fmt.Errorf("decode entry %s: %w", key, err)
	}

	return Entry{
		Key:      key,
		Value:    stored.Value,
		StoredAt: time.UnixMilli(stored.StoredAt),
		TTL:      time.Duration(stored.TTL) * time.Millisecond,
	}, true, nil
}

func (r *RedisBackend) Save(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(redisEntry{
		Value:    entry.Value,
		StoredAt: entry.StoredAt.UnixMilli(),
		TTL:      entry.TTL.Milliseconds(),
	})
	if err != nil {
		return err
	}

	// Expire relative to StoredAt so a demoted entry keeps its original
	// retention deadline.
	expiry := time.Until(entry.StoredAt.Add(entry.TTL + r.retention))
	if expiry <= 0 {
		return r.client.Del(ctx, r.key(entry.Key)).Err()
	}
	return r.client.Set(ctx, r.key(entry.Key), data, expiry).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.client.Del(ctx, full...).Err()
}

func (r *RedisBackend) Clear(ctx context.Context) error {
	// Use SCAN to find all keys with our prefix and delete them
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the Redis connection
func (r *RedisBackend) Close() error {
	return r.client.Close()
}

var _ Backend = (*RedisBackend)(nil)

package pages

import (
	"context"
	"encoding/json"
	"time"

	"github.com/johnrirwin/journalfeed/internal/fetch"
	"github.com/johnrirwin/journalfeed/internal/logging"
)

type source int

const (
	sourceLive source = iota
	sourceCache
	sourceStale
)

// cachedLoad returns a fresh cache entry for key, or calls load and caches
// its result. When load fails the last known value is returned from the
// stale copy along with the error.
func cachedLoad[T any](ctx context.Context, d Deps, key string, ttl time.Duration, load func(context.Context) (T, *fetch.Error)) (T, source, *fetch.Error) {
	var cached T
	if d.Cache.GetJSON(ctx, key, &cached) {
		return cached, sourceCache, nil
	}

	value, ferr := load(ctx)
	if ferr == nil {
		d.Cache.SetJSON(ctx, key, value, ttl)
		return value, sourceLive, nil
	}

	if stale, ok := peekJSON[T](ctx, d, key); ok {
		d.Logger.Warn("Serving stale data", logging.WithFields(map[string]interface{}{
			"key":   key,
			"error": ferr.Error(),
		}))
		return stale, sourceStale, ferr
	}

	var zero T
	return zero, sourceLive, ferr
}

func peekJSON[T any](ctx context.Context, d Deps, key string) (T, bool) {
	var v T
	entry, ok := d.Cache.Peek(ctx, key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(entry.Value, &v); err != nil {
		return v, false
	}
	return v, true
}

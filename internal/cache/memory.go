package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is an in-memory backend. A janitor goroutine removes entries
// once they are past their TTL plus the retention window.
type MemoryBackend struct {
	mu        sync.RWMutex
	items     map[string]Entry
	retention time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewMemory creates a memory backend that keeps expired entries for
// retention before dropping them.
func NewMemory(retention time.Duration) *MemoryBackend {
	m := &MemoryBackend{
		items:     make(map[string]Entry),
		retention: retention,
		stopCh:    make(chan struct{}),
	}
	go m.cleanup()
	return m
}

func (m *MemoryBackend) Name() string {
	return "memory"
}

func (m *MemoryBackend) Load(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.items[key]
	return e, ok, nil
}

func (m *MemoryBackend) Save(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[entry.Key] = entry
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *MemoryBackend) Demote(_ context.Context, entry Entry, staleKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.items[entry.Key]
	if !ok || !current.StoredAt.Equal(entry.StoredAt) {
		return false, nil
	}
	delete(m.items, entry.Key)
	current.Key = staleKey
	m.items[staleKey] = current
	return true, nil
}

func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]Entry)
	return nil
}

func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryBackend) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *MemoryBackend) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Prune(context.Background(), time.Now())
		case <-m.stopCh:
			return
		}
	}
}

func (m *MemoryBackend) Prune(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.items {
		if now.After(e.StoredAt.Add(e.TTL + m.retention)) {
			delete(m.items, key)
			removed++
		}
	}
	return removed, nil
}

var (
	_ Backend = (*MemoryBackend)(nil)
	_ Pruner  = (*MemoryBackend)(nil)
)

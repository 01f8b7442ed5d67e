// Package cache stores computed leaderboards between writes.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStale is returned by Set when the cache was invalidated after the
// caller read the generation. The value is not stored.
var ErrStale = errors.New("cache: generation changed")

// Cache holds opaque payloads keyed by string. Invalidate drops every entry
// written before the call and advances the generation. Set only stores a
// value computed under the current generation.
type Cache interface {
	Generation(ctx context.Context) (uint64, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, gen uint64) error
	Invalidate(ctx context.Context) error
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Generation(context.Context) (uint64, error) { return 0, nil }

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, []byte, time.Duration, uint64) error { return nil }

func (Noop) Invalidate(context.Context) error { return nil }

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a process-local cache guarded by a mutex.
type Memory struct {
	mu      sync.Mutex
	gen     uint64
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Generation(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

// Set stores value under key. A zero ttl means no expiry.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration, gen uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return ErrStale
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	entry := memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *Memory) Invalidate(context.Context) error {
	m.mu.Lock()
	m.gen++
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in process. ttl <= 0 keeps them forever.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryItem
	closed  bool
}

type memoryItem struct {
	entry   Entry
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: map[string]memoryItem{}}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Entry{}, false, ErrClosed
	}
	it, ok := m.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	if !it.expires.IsZero() && m.now().After(it.expires) {
		return Entry{}, false, nil
	}
	return it.entry, true, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	it := memoryItem{entry: e}
	if m.ttl > 0 {
		it.expires = m.now().Add(m.ttl)
	}
	m.entries[key] = it
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = map[string]memoryItem{}
	return nil
}

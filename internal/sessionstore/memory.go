package sessionstore

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryItem struct {
	snap    Snapshot
	expires time.Time
}

// MemoryStore keeps snapshots in process. Used when REDIS_URL is unset.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryStore keeps snapshots until they are deleted.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

// NewMemoryStoreWithTTL expires snapshots ttl after their last save, like the Redis keys.
func NewMemoryStoreWithTTL(ttl time.Duration, now func() time.Time) *MemoryStore {
	m := NewMemoryStore()
	m.ttl = ttl
	if now != nil {
		m.now = now
	}
	return m
}

func (m *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return nil
	}
	cp := *snap
	cp.MovesUCI = append([]string(nil), snap.MovesUCI...)
	item := memoryItem{snap: cp}
	now := m.now()
	if m.ttl > 0 {
		item.expires = now.Add(m.ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[strings.TrimSpace(snap.SessionID)] = item
	// saves are frequent enough to double as the expiry sweep
	for id, it := range m.items {
		if it.expired(now) {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	m.mu.RLock()
	item, ok := m.items[strings.TrimSpace(sessionID)]
	m.mu.RUnlock()
	if !ok || item.expired(m.now()) {
		return nil, ErrNotFound
	}
	snap := item.snap
	snap.MovesUCI = append([]string(nil), snap.MovesUCI...)
	return &snap, nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.items, strings.TrimSpace(sessionID))
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func (it memoryItem) expired(now time.Time) bool {
	return !it.expires.IsZero() && !now.Before(it.expires)
}

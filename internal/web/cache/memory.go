package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with TTL support
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string]memoryItem
	config Config
	cancel context.CancelFunc
}

type memoryItem struct {
	value      []byte
	expiration time.Time
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewMemoryStore creates a memory store and starts its expiry sweeper
func NewMemoryStore(config Config) *MemoryStore {
	ctx, cancel := context.WithCancel(context.Background())
	m := &MemoryStore{
		items:  make(map[string]memoryItem),
		config: config,
		cancel: cancel,
	}
	go m.sweep(ctx, time.Minute)
	return m
}

// Get retrieves a value
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	item, ok := m.items[m.config.Prefix+key]
	m.mu.RUnlock()

	if !ok || item.expired(time.Now()) {
		return nil, ErrMiss
	}
	return item.value, nil
}

// Set stores a value
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl == 0 {
		ttl = m.config.TTL
	}

	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiration = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.items[m.config.Prefix+key] = item
	m.mu.Unlock()
	return nil
}

// Delete removes a value
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, m.config.Prefix+key)
	m.mu.Unlock()
	return nil
}

// Clear removes every value
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.items = make(map[string]memoryItem)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close stops the sweeper
func (m *MemoryStore) Close() error {
	m.cancel()
	return nil
}

func (m *MemoryStore) sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for key, item := range m.items {
				if item.expired(now) {
					delete(m.items, key)
				}
			}
			m.mu.Unlock()
		}
	}
}

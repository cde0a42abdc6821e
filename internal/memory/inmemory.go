package memory

import (
	"context"
	"sync"
	"time"
)

// InMemoryBackend is a process-local Backend for demo mode and tests. TTLs
// are honored lazily on read and by Sweep, which the maintenance scheduler
// calls periodically.
type InMemoryBackend struct {
	mu     sync.RWMutex
	values map[string]entry
	lists  map[string][]string
}

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{
		values: make(map[string]entry),
		lists:  make(map[string][]string),
	}
}

func (m *InMemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	e, ok := m.values[key]
	m.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.values, key)
		m.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *InMemoryBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.values[key] = e
	m.mu.Unlock()
	return nil
}

func (m *InMemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.values, key)
	delete(m.lists, key)
	m.mu.Unlock()
	return nil
}

func (m *InMemoryBackend) Exists(ctx context.Context, key string) (bool, error) {
	if _, ok, _ := m.Get(ctx, key); ok {
		return true, nil
	}
	m.mu.RLock()
	_, ok := m.lists[key]
	m.mu.RUnlock()
	return ok, nil
}

func (m *InMemoryBackend) GetList(_ context.Context, key string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.lists[key]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	out := make([]string, len(list))
	copy(out, list)
	return out, nil
}

func (m *InMemoryBackend) AddToList(_ context.Context, key, value string, maxLen int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append([]string{value}, m.lists[key]...)
	if maxLen > 0 && len(list) > maxLen {
		list = list[:maxLen]
	}
	m.lists[key] = list
	return nil
}

func (m *InMemoryBackend) Ping(_ context.Context) error {
	return nil
}

// Sweep drops expired values and returns how many were removed.
func (m *InMemoryBackend) Sweep() int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.values {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(m.values, key)
			removed++
		}
	}
	return removed
}

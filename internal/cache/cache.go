// Package cache provides an injectable TTL cache abstraction.
//
// Providers consult a Cache before hitting their upstream APIs so repeated
// decision cycles for the same city within a short window reuse one fetch.
// The abstraction exists so components stay testable without process-wide
// singleton maps; tests inject their own clock.
package cache

import (
	"sync"
	"time"
)

// Cache is the minimal get/set/evict contract used by the providers.
type Cache interface {
	// Get returns the cached value and true if present and unexpired.
	Get(key string) (interface{}, bool)

	// Set stores a value with the given time-to-live.
	Set(key string, value interface{}, ttl time.Duration)

	// Evict removes a key immediately.
	Evict(key string)
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Memory is a mutex-guarded in-memory Cache with lazy expiry.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

// NewMemoryWithClock creates an in-memory cache with an injected clock for tests.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{entries: make(map[string]entry), now: now}
}

// Get returns the cached value and true if present and unexpired.
// Expired entries are removed on access.
func (m *Memory) Get(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores a value with the given time-to-live. Non-positive TTLs evict.
func (m *Memory) Set(key string, value interface{}, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl <= 0 {
		delete(m.entries, key)
		return
	}
	m.entries[key] = entry{value: value, expiresAt: m.now().Add(ttl)}
}

// Evict removes a key immediately.
func (m *Memory) Evict(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

package cache

import (
	"sync"
	"time"

	"billcast/internal/domain"
)

// Cache is one tier of the forecast cache. Implementations decide
// durability; callers own the freshness policy via maxAge.
type Cache interface {
	// Get returns the entry for key if present and younger than maxAge.
	Get(key string, maxAge time.Duration) (domain.Forecast, bool)
	// Put stores the forecast under key, overwriting any previous entry.
	Put(key string, f domain.Forecast)
	// Delete evicts the entry for key if present.
	Delete(key string)
}

type memoryEntry struct {
	forecast  domain.Forecast
	writtenAt time.Time
}

// Memory is the in-process tier. Safe for concurrent use;
// last writer wins on overlapping computations for the same key.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory builds an empty in-process cache. A nil now falls back to
// time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{entries: map[string]memoryEntry{}, now: now}
}

func (m *Memory) Get(key string, maxAge time.Duration) (domain.Forecast, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return domain.Forecast{}, false
	}
	if m.now().Sub(e.writtenAt) >= maxAge {
		return domain.Forecast{}, false
	}
	return e.forecast, true
}

func (m *Memory) Put(key string, f domain.Forecast) {
	m.mu.Lock()
	m.entries[key] = memoryEntry{forecast: f, writtenAt: m.now()}
	m.mu.Unlock()
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Len reports the number of live entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

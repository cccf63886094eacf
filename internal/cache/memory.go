package cache

import (
	"sync"
	"time"
)

type memEntry struct {
	payload   []byte
	storedAt  time.Time
	expiresAt time.Time
}

// Memory is an in-process Backend holding at most maxEntries payloads.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memEntry
	maxEntries int
}

func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = 512
	}
	return &Memory{
		entries:    make(map[string]memEntry),
		maxEntries: maxEntries,
	}
}

func (m *Memory) GetCachedResponse(key string, now time.Time) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !now.Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.payload...), true, nil
}

func (m *Memory) PutCachedResponse(key, _ string, payload []byte, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evict(now)
	}
	m.entries[key] = memEntry{
		payload:   append([]byte(nil), payload...),
		storedAt:  now,
		expiresAt: expiresAt,
	}
	return nil
}

// evict drops expired entries, then the oldest one if still full.
func (m *Memory) evict(now time.Time) {
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	if len(m.entries) < m.maxEntries {
		return
	}

	var oldestKey string
	var oldest time.Time
	for k, e := range m.entries {
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey, oldest = k, e.storedAt
		}
	}
	delete(m.entries, oldestKey)
}

// Len returns the number of stored entries, including expired ones not yet
// evicted.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	cachedAt  time.Time
	expiresAt time.Time
}

// MemoryBackend keeps entries in a map bounded by maxSize.
type MemoryBackend struct {
	mu        sync.RWMutex
	entries   map[string]*memoryEntry
	maxSize   int
	evictions int64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryBackend creates an in-memory backend. A positive cleanupPeriod
// starts a goroutine that drops expired entries until Close.
func NewMemoryBackend(maxSize int, cleanupPeriod time.Duration) *MemoryBackend {
	m := &MemoryBackend{
		entries: make(map[string]*memoryEntry),
		maxSize: maxSize,
		stop:    make(chan struct{}),
	}
	if cleanupPeriod > 0 {
		go m.cleanupLoop(cleanupPeriod)
	}
	return m
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && m.maxSize > 0 && len(m.entries) >= m.maxSize {
		m.evictOldest()
	}
	m.entries[key] = &memoryEntry{value: value, cachedAt: now, expiresAt: now.Add(ttl)}
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]*memoryEntry)
	m.mu.Unlock()
	return nil
}

// Close stops the cleanup goroutine.
func (m *MemoryBackend) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Evictions returns how many entries were dropped to stay under maxSize.
func (m *MemoryBackend) Evictions() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.evictions
}

func (m *MemoryBackend) cleanupLoop(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *MemoryBackend) cleanup() {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
		}
	}
}

// evictOldest removes the entry cached earliest. Caller holds the lock.
func (m *MemoryBackend) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	first := true

	for key, entry := range m.entries {
		if first || entry.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.cachedAt
			first = false
		}
	}

	if !first {
		delete(m.entries, oldestKey)
		m.evictions++
	}
}

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/metrics"
)

const backendMemory = "memory"

type entry struct {
	row       database.Compatibility
	expiresAt time.Time
}

// Stats tracks cache performance
type Stats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Evictions   int64     `json:"evictions"`
	Keys        int64     `json:"keys"`
	LastCleanup time.Time `json:"last_cleanup"`
}

// HitRate returns hits as a percentage of lookups
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Memory is a process-local TTL cache with a background sweep.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	stats   Stats

	stop      chan struct{}
	closeOnce sync.Once
}

// NewMemory creates a cache whose entries live for ttl. A sweep goroutine
// removes expired entries until Close is called.
func NewMemory(ttl time.Duration) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		stats:   Stats{LastCleanup: time.Now()},
		stop:    make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *Memory) Get(_ context.Context, key Key) (*database.Compatibility, bool) {
	k := key.String()

	m.mu.RLock()
	e, ok := m.entries[k]
	m.mu.RUnlock()

	if !ok {
		m.record(false)
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, k)
		m.stats.Evictions++
		m.stats.Keys = int64(len(m.entries))
		m.mu.Unlock()
		m.record(false)
		return nil, false
	}

	m.record(true)
	row := e.row
	return &row, true
}

func (m *Memory) Set(_ context.Context, key Key, row *database.Compatibility) {
	if row == nil {
		return
	}
	m.mu.Lock()
	m.entries[key.String()] = entry{row: *row, expiresAt: time.Now().Add(m.ttl)}
	m.stats.Keys = int64(len(m.entries))
	m.mu.Unlock()
}

func (m *Memory) Invalidate(_ context.Context, user string, others []string) {
	keys := pairKeys(user, others)

	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k.String())
	}
	m.stats.Keys = int64(len(m.entries))
	m.mu.Unlock()

	metrics.CacheInvalidations.WithLabelValues(backendMemory).Add(float64(len(keys)))
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.stats.Keys = 0
	m.mu.Unlock()
	return nil
}

// Close stops the sweep goroutine.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.stop) })
	return nil
}

// Stats returns a snapshot of cache statistics
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func (m *Memory) record(hit bool) {
	m.mu.Lock()
	if hit {
		m.stats.Hits++
	} else {
		m.stats.Misses++
	}
	m.mu.Unlock()
	metrics.RecordCacheLookup(backendMemory, hit)
}

func (m *Memory) cleanupLoop() {
	interval := m.ttl
	if interval <= 0 || interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) cleanup() {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
			m.stats.Evictions++
		}
	}
	m.stats.Keys = int64(len(m.entries))
	m.stats.LastCleanup = now
}

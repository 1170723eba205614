package cache

import (
	"context"
	"sync"
	"time"

	"physiotrack/backend/internal/domain"
)

// ProgressCache memoizes per-(patient, day) progress metrics. Entries are
// written on first computation and removed explicitly when new feedback
// arrives; the TTL is only a backstop.
type ProgressCache interface {
	Get(ctx context.Context, key string) (domain.ProgressMetrics, bool, error)
	Set(ctx context.Context, key string, metrics domain.ProgressMetrics) error
	Invalidate(ctx context.Context, key string) error
}

type memoryEntry struct {
	metrics   domain.ProgressMetrics
	expiresAt time.Time
}

// Memory is the in-process cache used when no Redis address is configured.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

var _ ProgressCache = (*Memory)(nil)

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key string) (domain.ProgressMetrics, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return domain.ProgressMetrics{}, false, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return domain.ProgressMetrics{}, false, nil
	}
	return e.metrics, true, nil
}

func (m *Memory) Set(ctx context.Context, key string, metrics domain.ProgressMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{metrics: metrics}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Invalidate(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

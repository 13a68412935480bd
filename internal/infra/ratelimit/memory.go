// Package ratelimit provides sliding-window limiters keyed by caller identity.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"assetguard/internal/domain"
)

type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	data    map[string]*memoryWindow
	maxKeys int
}

// memoryWindow holds the admission times inside the current window, oldest first.
// It never holds more than limit entries.
type memoryWindow struct {
	hits     []time.Time
	lastSeen time.Time
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

// NewMemoryLimiter keeps at most MaxKeys windows; when full it drops expired windows
// first and then the least recently seen caller.
func NewMemoryLimiter(cfg MemoryLimiterConfig) domain.RateLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &memoryLimiter{
		now:     cfg.Now,
		data:    make(map[string]*memoryWindow),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.now()
	cutoff := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.data[key]
	if !ok {
		if len(m.data) >= m.maxKeys {
			m.evict(cutoff)
		}
		w = &memoryWindow{}
		m.data[key] = w
	}
	w.lastSeen = now
	w.hits = prune(w.hits, cutoff)

	if len(w.hits) < limit {
		w.hits = append(w.hits, now)
		return domain.RateLimitDecision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - len(w.hits),
			ResetAt:   w.hits[0].Add(window),
		}, nil
	}
	return domain.RateLimitDecision{
		Allowed:   false,
		Limit:     limit,
		Remaining: 0,
		ResetAt:   w.hits[0].Add(window),
	}, nil
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}

func (m *memoryLimiter) evict(cutoff time.Time) {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, w := range m.data {
		if !w.lastSeen.After(cutoff) {
			delete(m.data, key)
			continue
		}
		if oldestKey == "" || w.lastSeen.Before(oldest) {
			oldestKey, oldest = key, w.lastSeen
		}
	}
	if len(m.data) >= m.maxKeys && oldestKey != "" {
		delete(m.data, oldestKey)
	}
}

func (m *memoryLimiter) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

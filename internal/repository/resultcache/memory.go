// Package resultcache stores ranked search results under opaque keys with a
// per-entry time-to-live.
package resultcache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Earthondev/hanaihang/internal/domain/search/result"
)

type entry struct {
	value     []result.Result
	expiresAt time.Time
}

// Memory is an in-process cache bounded by an LRU. Expired entries are
// dropped lazily on read.
type Memory struct {
	mu         sync.Mutex
	entries    *lru.Cache[string, entry]
	clock      clockwork.Clock
	cacheTotal *prometheus.CounterVec
}

// NewMemory creates a cache holding at most maxEntries keys.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), may be nil.
func NewMemory(maxEntries int, clock clockwork.Clock, cacheTotal *prometheus.CounterVec) (*Memory, error) {
	entries, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{entries: entries, clock: clock, cacheTotal: cacheTotal}, nil
}

// Get returns a copy of the live entry under key.
func (m *Memory) Get(_ context.Context, key string) ([]result.Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries.Get(key)
	if ok && !m.clock.Now().Before(e.expiresAt) {
		m.entries.Remove(key)
		ok = false
	}
	if !ok {
		incCache(m.cacheTotal, "miss")
		return nil, false
	}

	incCache(m.cacheTotal, "hit")
	return clone(e.value), true
}

// Set replaces the entry under key. A non-positive ttl stores nothing.
func (m *Memory) Set(_ context.Context, key string, value []result.Result, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries.Add(key, entry{value: clone(value), expiresAt: m.clock.Now().Add(ttl)})
}

// Invalidate removes every entry whose key starts with prefix and returns
// how many were removed. An empty prefix clears the cache.
func (m *Memory) Invalidate(_ context.Context, prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, key := range m.entries.Keys() {
		if strings.HasPrefix(key, prefix) && m.entries.Remove(key) {
			n++
		}
	}
	return n
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	return m.entries.Len()
}

func clone(in []result.Result) []result.Result {
	if in == nil {
		return nil
	}
	out := make([]result.Result, len(in))
	copy(out, in)
	return out
}

func incCache(cacheTotal *prometheus.CounterVec, res string) {
	if cacheTotal != nil {
		cacheTotal.WithLabelValues(res).Inc()
	}
}

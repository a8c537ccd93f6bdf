package search

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Earthondev/hanaihang/internal/domain/entity"
	"github.com/Earthondev/hanaihang/internal/domain/geo"
	"github.com/Earthondev/hanaihang/internal/domain/search/result"
	"github.com/Earthondev/hanaihang/internal/repository/resultcache"
)

// --- Mocks ---

// mockCatalog counts calls and delegates to optional funcs.
type mockCatalog struct {
	prefixFn func(ctx context.Context, kind entity.Kind, lower, upper string, limit int) ([]entity.Entity, error)
	tokenFn  func(ctx context.Context, kind entity.Kind, token string, limit int) ([]entity.Entity, error)

	prefixCalls atomic.Int32
	tokenCalls  atomic.Int32

	mu     sync.Mutex
	tokens []string
}

func (m *mockCatalog) PrefixRange(
	ctx context.Context, kind entity.Kind, lower, upper string, limit int,
) ([]entity.Entity, error) {
	m.prefixCalls.Add(1)
	if m.prefixFn != nil {
		return m.prefixFn(ctx, kind, lower, upper, limit)
	}
	return nil, nil
}

func (m *mockCatalog) TokenMatch(ctx context.Context, kind entity.Kind, token string, limit int) ([]entity.Entity, error) {
	m.tokenCalls.Add(1)
	m.mu.Lock()
	m.tokens = append(m.tokens, token)
	m.mu.Unlock()
	if m.tokenFn != nil {
		return m.tokenFn(ctx, kind, token, limit)
	}
	return nil, nil
}

func (m *mockCatalog) calls() int {
	return int(m.prefixCalls.Load() + m.tokenCalls.Load())
}

// --- Helpers ---

func newTestService(t *testing.T, cat Catalog) (*Service, *resultcache.Memory, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	cache, err := resultcache.NewMemory(100, clock, nil)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	svc := New(NewPlanner(cat, time.Second), cache, Options{Clock: clock, Location: time.UTC})
	return svc, cache, clock
}

func mall(id, name string, coords *geo.Point) entity.Entity {
	return entity.Entity{
		ID:          id,
		Path:        entity.MallPath(id),
		Kind:        entity.KindMall,
		DisplayName: name,
		Coords:      coords,
	}
}

func store(mallID, id, name, floor string) entity.Entity {
	return entity.Entity{
		ID:          id,
		Path:        entity.StorePath(mallID, id),
		Kind:        entity.KindStore,
		DisplayName: name,
		MallID:      mallID,
		FloorLabel:  floor,
	}
}

func ids(results []result.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func km(v float64) *float64 { return &v }

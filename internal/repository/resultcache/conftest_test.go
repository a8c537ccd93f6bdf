package resultcache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Earthondev/hanaihang/internal/domain/entity"
	"github.com/Earthondev/hanaihang/internal/domain/search/result"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn  func(ctx context.Context, key string) ([]byte, error)
	setFn  func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	delFn  func(ctx context.Context, keys ...string) error
	scanFn func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, nil
}

func (m *mockStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) Ping(context.Context) error { return nil }

func newCacheTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_result_cache_total",
	}, []string{"result"})
}

func sample() []result.Result {
	d := 1.5
	return []result.Result{
		{ID: "A", Path: "malls/A", Kind: entity.KindMall, Name: "Central World", DistanceKm: &d},
		{ID: "s1", Path: "malls/A/stores/s1", Kind: entity.KindStore, Name: "Starbucks", MallID: "A"},
	}
}

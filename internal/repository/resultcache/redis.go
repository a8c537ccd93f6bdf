package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Earthondev/hanaihang/internal/db"
	"github.com/Earthondev/hanaihang/internal/domain/search/result"
)

// store is the consumer interface for the shared cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
}

// Redis keeps results as JSON in a key-value store shared between
// instances. Store failures degrade to misses and are logged.
type Redis struct {
	store      store
	keyPrefix  string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// NewRedis creates a shared cache. keyPrefix namespaces cache keys in the
// store and is invisible to callers.
func NewRedis(s store, keyPrefix string, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Redis {
	return &Redis{store: s, keyPrefix: keyPrefix, cacheTotal: cacheTotal, logger: logger}
}

// Get returns the cached results under key.
func (r *Redis) Get(ctx context.Context, key string) ([]result.Result, bool) {
	k := r.keyPrefix + key
	data, err := r.store.Get(ctx, k)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			r.logger.Warn("Failed to get cached results", zap.String("key", key), zap.Error(err))
		}
		incCache(r.cacheTotal, "miss")
		return nil, false
	}

	var value []result.Result
	if err := json.Unmarshal(data, &value); err != nil {
		r.logger.Warn("Dropping malformed cached results", zap.String("key", key), zap.Error(err))
		if err := r.store.Del(ctx, k); err != nil {
			r.logger.Warn("Failed to delete cached results", zap.String("key", key), zap.Error(err))
		}
		incCache(r.cacheTotal, "miss")
		return nil, false
	}

	incCache(r.cacheTotal, "hit")
	return value, true
}

// Set stores results under key. A non-positive ttl stores nothing.
func (r *Redis) Set(ctx context.Context, key string, value []result.Result, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if value == nil {
		value = []result.Result{}
	}
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("Failed to encode results", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.store.SetWithTTL(ctx, r.keyPrefix+key, data, ttl); err != nil {
		r.logger.Warn("Failed to cache results", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate deletes every key starting with prefix and returns how many
// were found.
func (r *Redis) Invalidate(ctx context.Context, prefix string) int {
	keys, err := r.store.Scan(ctx, escapeGlob(r.keyPrefix+prefix)+"*")
	if err != nil {
		r.logger.Warn("Failed to scan cached results", zap.String("prefix", prefix), zap.Error(err))
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		r.logger.Warn("Failed to invalidate cached results", zap.String("prefix", prefix), zap.Error(err))
		return 0
	}
	return len(keys)
}

// Ping checks the backing store.
func (r *Redis) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// escapeGlob quotes Redis glob metacharacters so a literal prefix can be
// used in SCAN MATCH.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

package search

import (
	"context"
	"time"

	"github.com/Earthondev/hanaihang/internal/domain/entity"
	"github.com/Earthondev/hanaihang/internal/domain/search/result"
)

// Catalog answers the two query shapes the planner issues per entity kind.
type Catalog interface {
	// PrefixRange returns entities whose comparison name lies in [lower, upper).
	PrefixRange(ctx context.Context, kind entity.Kind, lower, upper string, limit int) ([]entity.Entity, error)
	// TokenMatch returns entities whose search tokens contain token.
	TokenMatch(ctx context.Context, kind entity.Kind, token string, limit int) ([]entity.Entity, error)
}

// Cache stores ranked results by key. Implementations never fail: errors
// degrade to a miss or a no-op.
type Cache interface {
	Get(ctx context.Context, key string) ([]result.Result, bool)
	Set(ctx context.Context, key string, value []result.Result, ttl time.Duration)
	// Invalidate removes every entry whose key starts with prefix and
	// reports how many were removed.
	Invalidate(ctx context.Context, prefix string) int
}

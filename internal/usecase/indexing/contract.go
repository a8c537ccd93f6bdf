package indexing

import (
	"context"

	"github.com/Earthondev/hanaihang/internal/domain/entity"
)

// Catalog reads and writes catalog entities.
type Catalog interface {
	All(ctx context.Context, kind entity.Kind) ([]entity.Entity, error)
	Put(ctx context.Context, e *entity.Entity) error
}

// Invalidator drops cached search results by key prefix.
type Invalidator interface {
	Invalidate(ctx context.Context, prefix string) int
}

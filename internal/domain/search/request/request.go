package request

import (
	"fmt"

	"github.com/Earthondev/hanaihang/internal/domain"
	"github.com/Earthondev/hanaihang/internal/domain/geo"
	"github.com/Earthondev/hanaihang/internal/domain/search/scope"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in bytes.
	MaxQueryLength = 512
	DefaultLimit   = 50
	MaxLimit       = 200
)

// Request is a validated search query.
type Request struct {
	query  string
	origin *geo.Point
	limit  int
	scope  scope.Scope
}

// New validates search parameters. An empty query is valid and yields no
// results. Defaults: limit=50, scope=all. Limit is clamped to MaxLimit.
func New(query string, origin *geo.Point, limit int, sc scope.Scope) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d bytes)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if origin != nil && !origin.Valid() {
		return Request{}, fmt.Errorf("%w: lat must be in [-90,90] and lng in [-180,180]", domain.ErrInvalidOrigin)
	}
	if sc == "" {
		sc = scope.All
	}
	if !sc.IsValid() {
		return Request{}, fmt.Errorf("%w: %q", domain.ErrInvalidScope, sc)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	var o *geo.Point
	if origin != nil {
		p := *origin
		o = &p
	}

	return Request{query: query, origin: o, limit: limit, scope: sc}, nil
}

// Query returns the raw search text.
func (r *Request) Query() string { return r.query }

// Origin returns the caller's position (nil when unknown).
func (r *Request) Origin() *geo.Point { return r.origin }

// Limit returns the maximum number of results.
func (r *Request) Limit() int { return r.limit }

// Scope returns the entity kinds to search.
func (r *Request) Scope() scope.Scope { return r.scope }

// PerKindLimit is the candidate cap requested from the catalog per entity
// kind: ceil(limit/2) when both kinds are searched so neither starves the
// other.
func (r *Request) PerKindLimit() int {
	if r.scope != scope.All {
		return r.limit
	}
	return (r.limit + 1) / 2
}

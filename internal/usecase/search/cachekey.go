package search

import (
	"strconv"
	"strings"

	"github.com/Earthondev/hanaihang/internal/domain/geo"
	"github.com/Earthondev/hanaihang/internal/domain/search/scope"
)

// CachePrefix starts every result cache key.
const CachePrefix = "search:"

const noCoords = "no-coords"

// CacheKey builds "search:<scope>:<normalized query>:<lat,lng|no-coords>:<limit>".
func CacheKey(sc scope.Scope, normalized string, origin *geo.Point, limit int) string {
	coords := noCoords
	if origin != nil {
		coords = origin.String()
	}
	return ScopePrefix(sc) + normalized + ":" + coords + ":" + strconv.Itoa(limit)
}

// ScopePrefix returns the key prefix shared by every entry of one scope.
func ScopePrefix(sc scope.Scope) string {
	return CachePrefix + string(sc) + ":"
}

// invalidationPrefixes expands a writer's prefix into every cache prefix it
// covers. Unified entries hold both kinds, so a per-kind prefix also reaches
// the unified entries with the same remainder.
func invalidationPrefixes(prefix string) []string {
	for _, sc := range []scope.Scope{scope.Malls, scope.Stores} {
		kp := ScopePrefix(sc)
		if strings.HasPrefix(prefix, kp) {
			return []string{prefix, ScopePrefix(scope.All) + strings.TrimPrefix(prefix, kp)}
		}
	}
	return []string{prefix}
}

package search

import (
	"math"
	"sort"

	"github.com/Earthondev/hanaihang/internal/domain/geo"
	"github.com/Earthondev/hanaihang/internal/domain/search/result"
)

// Rank annotates each result with its distance from origin and orders by
// ascending distance. Results without usable coordinates get no distance
// and sort last; ties keep their fused order. A nil or invalid origin
// returns the input unchanged.
func Rank(results []result.Result, origin *geo.Point) []result.Result {
	if origin == nil || !origin.Valid() {
		return results
	}

	out := make([]result.Result, len(results))
	copy(out, results)

	for i := range out {
		out[i].DistanceKm = nil
		loc, ok := out[i].Location()
		if !ok {
			continue
		}
		d := geo.DistanceKm(*origin, loc)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		out[i].DistanceKm = &d
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DistanceKm, out[j].DistanceKm
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return out
}

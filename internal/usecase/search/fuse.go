package search

import (
	"github.com/Earthondev/hanaihang/internal/domain/entity"
	"github.com/Earthondev/hanaihang/internal/domain/search/result"
)

// Fuse merges branch output into one list: malls first, then stores.
//
// Within a kind, prefix hits come before token hits and a document seen in
// both keeps its first position but takes the later value. Across the whole
// list, entries sharing a dedup key collapse to the first. The result is
// truncated to limit.
func Fuse(c Candidates, limit int) []result.Result {
	if limit <= 0 {
		return []result.Result{}
	}

	merged := mergeKind(c.Malls)
	merged = append(merged, mergeKind(c.Stores)...)

	out := make([]result.Result, 0, min(len(merged), limit))
	seen := make(map[string]struct{}, len(merged))
	for i := range merged {
		r := result.FromEntity(&merged[i])
		k := r.DedupKey()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

func mergeKind(b Branches) []entity.Entity {
	out := make([]entity.Entity, 0, len(b.Prefix)+len(b.Token))
	index := make(map[string]int, cap(out))
	for _, list := range [][]entity.Entity{b.Prefix, b.Token} {
		for _, e := range list {
			k := e.MergeKey()
			if i, ok := index[k]; ok {
				out[i] = e
				continue
			}
			index[k] = len(out)
			out = append(out, e)
		}
	}
	return out
}

// Package search implements unified mall and store search: planning the
// catalog queries, fusing and ranking their results, and caching them.
package search

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Earthondev/hanaihang/internal/domain/entity"
	"github.com/Earthondev/hanaihang/internal/domain/search/request"
	"github.com/Earthondev/hanaihang/internal/domain/search/result"
	"github.com/Earthondev/hanaihang/internal/domain/search/scope"
	"github.com/Earthondev/hanaihang/internal/domain/textnorm"
	"github.com/Earthondev/hanaihang/internal/logger"
	"github.com/Earthondev/hanaihang/internal/metrics"
)

// DefaultCacheTTL is how long ranked results stay cached.
const DefaultCacheTTL = 2 * time.Minute

// DegradedCacheTTL caps how long results with a failed branch stay cached.
const DegradedCacheTTL = 10 * time.Second

// Stage is the terminal state a search reached.
type Stage string

// Search stages.
const (
	StageEmpty    Stage = "empty"
	StageCacheHit Stage = "cache_hit"
	StageQueried  Stage = "queried"
)

// Response is a ranked result list and how it was produced.
type Response struct {
	Results []result.Result
	Stage   Stage
}

// Options tune the service. Zero values pick defaults.
type Options struct {
	CacheTTL time.Duration
	Clock    clockwork.Clock
	// Location is the timezone opening hours are expressed in.
	Location *time.Location
}

// Service is the unified search facade.
type Service struct {
	planner *Planner
	cache   Cache
	ttl     time.Duration
	clock   clockwork.Clock
	loc     *time.Location
	flight  singleflight.Group
}

// New creates a search service.
func New(planner *Planner, cache Cache, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{
		planner: planner,
		cache:   cache,
		ttl:     opts.CacheTTL,
		clock:   opts.Clock,
		loc:     opts.Location,
	}
}

// Search runs a unified search. It never fails: store errors degrade to
// fewer results and an empty query yields an empty list without touching
// the catalog or the cache.
func (s *Service) Search(ctx context.Context, req *request.Request) Response {
	start := time.Now()

	norm := textnorm.Normalize(req.Query())
	if norm.ComparisonKey == "" {
		return s.finish(ctx, req, start, Response{Results: []result.Result{}, Stage: StageEmpty})
	}

	key := CacheKey(req.Scope(), norm.ComparisonKey, req.Origin(), req.Limit())
	if cached, ok := s.cache.Get(ctx, key); ok {
		return s.finish(ctx, req, start, Response{Results: s.annotate(cached), Stage: StageCacheHit})
	}

	// Identical concurrent misses share one query. The shared run must not
	// be cut short by whichever caller arrived first.
	v, _, _ := s.flight.Do(key, func() (any, error) {
		return s.query(context.WithoutCancel(ctx), req, norm, key), nil
	})
	shared := v.([]result.Result)

	results := make([]result.Result, len(shared))
	copy(results, shared)
	return s.finish(ctx, req, start, Response{Results: s.annotate(results), Stage: StageQueried})
}

// query plans, fuses, ranks and caches. Results with a failed branch are
// cached for at most DegradedCacheTTL so a transient store failure clears
// quickly.
func (s *Service) query(ctx context.Context, req *request.Request, norm textnorm.Normalized, key string) []result.Result {
	candidates := s.planner.Plan(ctx, Plan{
		Query:        norm,
		Raw:          req.Query(),
		Kinds:        kindsOf(req.Scope()),
		PerKindLimit: req.PerKindLimit(),
	})

	results := Rank(Fuse(candidates, req.Limit()), req.Origin())

	ttl := s.ttl
	if candidates.Degraded() {
		ttl = min(ttl, DegradedCacheTTL)
		logger.FromContext(ctx).Warn("Caching degraded search results briefly",
			zap.String("key", key), zap.Duration("ttl", ttl))
	}
	s.cache.Set(ctx, key, results, ttl)
	return results
}

// Invalidate drops cached results whose key starts with prefix. A per-kind
// prefix such as "search:malls:" also drops the unified entries for the same
// remainder, since those carry results of that kind too.
func (s *Service) Invalidate(ctx context.Context, prefix string) int {
	n := 0
	for _, p := range invalidationPrefixes(prefix) {
		n += s.cache.Invalidate(ctx, p)
	}
	metrics.CacheInvalidationsTotal.Add(float64(n))
	logger.FromContext(ctx).Info("Result cache invalidated",
		zap.String("prefix", prefix), zap.Int("removed", n))
	return n
}

// annotate sets OpenNow on results with parseable opening hours. It is
// computed per response because it depends on the current time.
func (s *Service) annotate(results []result.Result) []result.Result {
	now := s.clock.Now().In(s.loc)
	for i := range results {
		results[i].OpenNow = nil
		if results[i].Hours == nil {
			continue
		}
		if open, ok := results[i].Hours.OpenAt(now); ok {
			results[i].OpenNow = &open
		}
	}
	return results
}

func (s *Service) finish(ctx context.Context, req *request.Request, start time.Time, resp Response) Response {
	elapsed := time.Since(start)
	metrics.SearchRequestsTotal.WithLabelValues(string(req.Scope()), string(resp.Stage)).Inc()
	metrics.SearchDuration.WithLabelValues(string(resp.Stage)).Observe(elapsed.Seconds())

	logger.FromContext(ctx).Debug("Search completed",
		zap.String("scope", string(req.Scope())),
		zap.String("stage", string(resp.Stage)),
		zap.Int("results", len(resp.Results)),
		zap.Duration("duration", elapsed),
	)
	return resp
}

func kindsOf(sc scope.Scope) []entity.Kind {
	var kinds []entity.Kind
	if sc.IncludesMalls() {
		kinds = append(kinds, entity.KindMall)
	}
	if sc.IncludesStores() {
		kinds = append(kinds, entity.KindStore)
	}
	return kinds
}

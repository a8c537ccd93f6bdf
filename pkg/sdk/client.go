package hanaihang

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/Earthondev/hanaihang/internal/app"
	"github.com/Earthondev/hanaihang/internal/config"
	dombatch "github.com/Earthondev/hanaihang/internal/domain/batch"
	"github.com/Earthondev/hanaihang/internal/domain/entity"
	"github.com/Earthondev/hanaihang/internal/domain/geo"
	"github.com/Earthondev/hanaihang/internal/domain/search/request"
	"github.com/Earthondev/hanaihang/internal/domain/search/result"
	"github.com/Earthondev/hanaihang/internal/domain/search/scope"
	healthuc "github.com/Earthondev/hanaihang/internal/usecase/health"
	indexinguc "github.com/Earthondev/hanaihang/internal/usecase/indexing"
	searchuc "github.com/Earthondev/hanaihang/internal/usecase/search"
)

// Internal interfaces so tests can substitute the use cases.
type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) searchuc.Response
	Invalidate(ctx context.Context, prefix string) int
}

type indexingUseCase interface {
	Upsert(ctx context.Context, e *entity.Entity) error
	Reindex(ctx context.Context) (indexinguc.Report, error)
	Import(ctx context.Context, r io.Reader) ([]dombatch.Result, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the hanaihang SDK entry point.
type Client struct {
	closer      func()
	searchSvc   searchUseCase
	indexingSvc indexingUseCase
	healthSvc   healthUseCase
	obs         *observer
}

// New creates a Client and connects to the store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	appCfg, err := buildConfig(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, appCfg, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("hanaihang: %w", err)
	}

	return &Client{
		closer:      a.Close,
		searchSvc:   a.Search,
		indexingSvc: a.Indexing,
		healthSvc:   a.Health,
		obs:         obs,
	}, nil
}

// buildConfig maps client options onto the service configuration.
func buildConfig(c *clientConfig) (config.Config, error) {
	if c.driver == "" {
		return config.Config{}, errors.New("hanaihang: store required (use WithRedis or WithMemory)")
	}

	cfg := config.Config{
		Database: config.DatabaseConfig{
			Driver:   c.driver,
			Addrs:    c.addrs,
			Password: c.password,
		},
		Cache: config.CacheConfig{
			Driver: config.DriverMemory,
			TTLSec: int(c.cacheTTL / time.Second),
		},
		Search: config.SearchConfig{
			QueryTimeoutMS: int(c.queryTimeout / time.Millisecond),
			Timezone:       c.timezone,
		},
		Storage: config.StorageConfig{KeyPrefix: c.keyPrefix},
		// The HTTP section is unused by the SDK but validated.
		HTTP: config.HTTPConfig{Port: 1},
	}
	if c.sharedCache {
		cfg.Cache.Driver = config.DriverRedis
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("hanaihang: %w", err)
	}
	return cfg, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// SearchOption narrows or ranks a search.
type SearchOption func(*searchOptions)

type searchOptions struct {
	origin *geo.Point
	limit  int
	scope  scope.Scope
}

// Near ranks results by distance from lat/lng.
func Near(lat, lng float64) SearchOption {
	return func(o *searchOptions) { o.origin = &geo.Point{Lat: lat, Lng: lng} }
}

// Limit caps the number of results. Default 50, maximum 200.
func Limit(n int) SearchOption {
	return func(o *searchOptions) { o.limit = n }
}

// InScope restricts the search to malls or stores.
func InScope(s Scope) SearchOption {
	return func(o *searchOptions) { o.scope = scope.Scope(s) }
}

// Search finds malls and stores whose names match query. It never fails:
// invalid options and store errors yield fewer or no results.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) []Result {
	start := time.Now()
	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}

	req, err := request.New(query, o.origin, o.limit, o.scope)
	if err != nil {
		c.obs.observe("search", start, err)
		return nil
	}

	resp := c.searchSvc.Search(ctx, &req)
	c.obs.observe("search", start, nil)
	c.obs.observeResults(string(resp.Stage), len(resp.Results))
	return fromResults(resp.Results)
}

// UpsertMall writes a mall and recomputes its search fields.
func (c *Client) UpsertMall(ctx context.Context, m Mall) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("mall.upsert", start, err) }()

	e := &entity.Entity{
		ID:          m.ID,
		Kind:        entity.KindMall,
		DisplayName: m.Name,
		Coords:      toGeo(m.Coords),
		Address:     m.Address,
		District:    m.District,
		Province:    m.Province,
		BrandGroup:  m.BrandGroup,
		Hours:       toHours(m.Hours),
	}
	if err = c.indexingSvc.Upsert(ctx, e); err != nil {
		return fmt.Errorf("upsert mall: %w", err)
	}
	return nil
}

// UpsertStore writes a store under its mall and recomputes its search fields.
func (c *Client) UpsertStore(ctx context.Context, s Store) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("store.upsert", start, err) }()

	e := &entity.Entity{
		ID:          s.ID,
		Kind:        entity.KindStore,
		DisplayName: s.Name,
		Coords:      toGeo(s.Coords),
		MallID:      s.MallID,
		MallName:    s.MallName,
		MallCoords:  toGeo(s.MallCoords),
		FloorLabel:  s.FloorLabel,
		FloorID:     s.FloorID,
		Unit:        s.Unit,
		Category:    s.Category,
		Status:      s.Status,
		BrandSlug:   s.BrandSlug,
	}
	if err = c.indexingSvc.Upsert(ctx, e); err != nil {
		return fmt.Errorf("upsert store: %w", err)
	}
	return nil
}

// Import loads a YAML or JSON fixture of malls with nested stores.
func (c *Client) Import(ctx context.Context, r io.Reader) (items []ItemResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("import", start, err) }()

	results, err := c.indexingSvc.Import(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	items = make([]ItemResult, len(results))
	for i, res := range results {
		items[i] = ItemResult{Path: res.Path(), OK: res.Err() == nil, Err: res.Err()}
	}
	return items, nil
}

// Reindex recomputes search fields for the whole catalog.
func (c *Client) Reindex(ctx context.Context) (rep ReindexReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reindex", start, err) }()

	r, err := c.indexingSvc.Reindex(ctx)
	if err != nil {
		return ReindexReport{}, fmt.Errorf("reindex: %w", err)
	}
	return ReindexReport{Scanned: r.Scanned, Written: r.Written, Unchanged: r.Unchanged, Failed: r.Failed}, nil
}

// Invalidate drops cached results whose key starts with prefix; an empty
// prefix drops every cached search.
func (c *Client) Invalidate(ctx context.Context, prefix string) int {
	if prefix == "" {
		prefix = searchuc.CachePrefix
	}
	return c.searchSvc.Invalidate(ctx, prefix)
}

// Health checks the health of all system components.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

func fromResults(rs []result.Result) []Result {
	out := make([]Result, len(rs))
	for i := range rs {
		r := &rs[i]
		out[i] = Result{
			ID:         r.ID,
			Path:       r.Path,
			Kind:       Kind(r.Kind),
			Name:       r.Name,
			MallID:     r.MallID,
			MallName:   r.MallName,
			FloorLabel: r.FloorLabel,
			Category:   r.Category,
			Status:     r.Status,
			OpenNow:    r.OpenNow,
			DistanceKm: r.DistanceKm,
		}
		if r.Hours != nil {
			out[i].Hours = &Hours{Open: r.Hours.Open, Close: r.Hours.Close}
		}
		if p, ok := r.Location(); ok {
			out[i].Coords = &Point{Lat: p.Lat, Lng: p.Lng}
		}
	}
	return out
}

func toGeo(p *Point) *geo.Point {
	if p == nil {
		return nil
	}
	return &geo.Point{Lat: p.Lat, Lng: p.Lng}
}

func toHours(h *Hours) *entity.Hours {
	if h == nil {
		return nil
	}
	return &entity.Hours{Open: h.Open, Close: h.Close}
}

// Package app wires configuration into the store, cache and use cases shared
// by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Earthondev/hanaihang/internal/config"
	"github.com/Earthondev/hanaihang/internal/db"
	dbMemory "github.com/Earthondev/hanaihang/internal/db/memory"
	dbRedis "github.com/Earthondev/hanaihang/internal/db/redis"
	dombatch "github.com/Earthondev/hanaihang/internal/domain/batch"
	"github.com/Earthondev/hanaihang/internal/metrics"
	"github.com/Earthondev/hanaihang/internal/repository/catalog"
	"github.com/Earthondev/hanaihang/internal/repository/resultcache"
	healthuc "github.com/Earthondev/hanaihang/internal/usecase/health"
	indexinguc "github.com/Earthondev/hanaihang/internal/usecase/indexing"
	searchuc "github.com/Earthondev/hanaihang/internal/usecase/search"
)

// resultCache is a search cache that can report its own health.
type resultCache interface {
	searchuc.Cache
	healthuc.Pinger
}

// App is the composed application.
type App struct {
	Store    db.Store
	Search   *searchuc.Service
	Indexing *indexinguc.Service
	Health   *healthuc.Service
}

// New connects the configured store, builds the use cases and imports the
// seed file if one is set.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.RegisterSearchMetrics()

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}

	cache, err := newCache(cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	loc, err := cfg.Search.Location()
	if err != nil {
		store.Close()
		return nil, err
	}

	repo := catalog.New(store)
	search := searchuc.New(
		searchuc.NewPlanner(repo, cfg.Search.QueryTimeout()),
		cache,
		searchuc.Options{
			CacheTTL: cfg.Cache.CacheTTL(),
			Clock:    clockwork.NewRealClock(),
			Location: loc,
		},
	)

	a := &App{
		Store:    store,
		Search:   search,
		Indexing: indexinguc.New(repo, search),
		Health:   healthuc.New(store, cache),
	}

	if cfg.Database.SeedFile != "" {
		if err := a.seed(ctx, cfg.Database.SeedFile, logger); err != nil {
			store.Close()
			return nil, err
		}
	}
	return a, nil
}

// Close releases the store connection.
func (a *App) Close() {
	a.Store.Close()
}

func (a *App) seed(ctx context.Context, path string, logger *zap.Logger) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	results, err := a.Indexing.Import(ctx, f)
	if err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	sum := dombatch.Summarize(results)
	logger.Info("Catalog seeded",
		zap.String("file", path),
		zap.Int("written", sum.Written),
		zap.Int("failed", sum.Failed),
	)
	return nil
}

func newStore(cfg config.Config) (db.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		return dbMemory.NewStore(), nil
	case config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:       cfg.Database.Addrs,
			Username:    cfg.Database.Username,
			Password:    cfg.Database.Password,
			DB:          cfg.Database.DB,
			KeyPrefix:   cfg.Storage.KeyPrefix,
			RangeFields: []string{catalog.FieldComparisonName},
			ArrayFields: []string{catalog.FieldSearchTokens},
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func newCache(cfg config.Config, store db.Store, logger *zap.Logger) (resultCache, error) {
	switch cfg.Cache.Driver {
	case config.DriverRedis:
		return resultcache.NewRedis(store, cfg.Storage.KeyPrefix+"cache:", metrics.ResultCacheTotal, logger), nil
	case config.DriverMemory:
		c, err := resultcache.NewMemory(cfg.Cache.MaxEntries, clockwork.NewRealClock(), metrics.ResultCacheTotal)
		if err != nil {
			return nil, fmt.Errorf("create result cache: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}

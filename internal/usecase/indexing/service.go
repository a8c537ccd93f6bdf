// Package indexing keeps the derived search fields of catalog documents in
// step with their display names and clears stale search results on writes.
package indexing

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/Earthondev/hanaihang/internal/domain"
	dombatch "github.com/Earthondev/hanaihang/internal/domain/batch"
	"github.com/Earthondev/hanaihang/internal/domain/entity"
	"github.com/Earthondev/hanaihang/internal/domain/textnorm"
	"github.com/Earthondev/hanaihang/internal/logger"
	"github.com/Earthondev/hanaihang/internal/usecase/search"
)

// Report summarizes a reindex run.
type Report struct {
	Scanned int `json:"scanned"`
	dombatch.Summary
}

// Service writes catalog entities with fresh derived fields.
type Service struct {
	catalog Catalog
	cache   Invalidator
}

// New creates an indexing service.
func New(catalog Catalog, cache Invalidator) *Service {
	return &Service{catalog: catalog, cache: cache}
}

// Derive recomputes ComparisonName and SearchTokens from the display name.
// Descriptive fields such as category or floor never feed the tokens. It
// reports whether either value changed.
func Derive(e *entity.Entity) bool {
	name := textnorm.Normalize(e.DisplayName).ComparisonKey
	tokens := textnorm.Keywords(e.DisplayName)
	changed := name != e.ComparisonName || !slices.Equal(tokens, e.SearchTokens)
	e.ComparisonName = name
	e.SearchTokens = tokens
	return changed
}

// Upsert validates e, assigns its path, derives its search fields and writes
// it. Cached search results are invalidated on success.
func (s *Service) Upsert(ctx context.Context, e *entity.Entity) error {
	if err := s.put(ctx, e); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, search.CachePrefix)
	return nil
}

func (s *Service) put(ctx context.Context, e *entity.Entity) error {
	if err := prepare(e); err != nil {
		return err
	}
	Derive(e)
	if err := s.catalog.Put(ctx, e); err != nil {
		return fmt.Errorf("upsert %s: %w", e.Path, err)
	}
	return nil
}

// Reindex re-derives the search fields of every mall and store and rewrites
// the documents whose stored values are out of date.
func (s *Service) Reindex(ctx context.Context) (Report, error) {
	var (
		report  Report
		results []dombatch.Result
	)
	for _, kind := range []entity.Kind{entity.KindMall, entity.KindStore} {
		items, err := s.catalog.All(ctx, kind)
		if err != nil {
			return report, fmt.Errorf("list %s: %w", kind, err)
		}
		report.Scanned += len(items)
		for i := range items {
			e := &items[i]
			if !Derive(e) {
				results = append(results, dombatch.NewUnchanged(e.Path))
				continue
			}
			if err := s.catalog.Put(ctx, e); err != nil {
				logger.FromContext(ctx).Warn("reindex write failed",
					zap.String("path", e.Path), zap.Error(err))
				results = append(results, dombatch.NewError(e.Path, err))
				continue
			}
			results = append(results, dombatch.NewWritten(e.Path))
		}
	}

	report.Summary = dombatch.Summarize(results)
	if report.Written > 0 {
		s.cache.Invalidate(ctx, search.CachePrefix)
	}
	logger.FromContext(ctx).Info("Reindex finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("written", report.Written),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// prepare checks the identity and location fields of e and fills in its path.
func prepare(e *entity.Entity) error {
	if err := entity.ValidateID(e.ID); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrInvalidDocument)
	}
	if strings.TrimSpace(e.DisplayName) == "" {
		return fmt.Errorf("%s %q: display name is required: %w", e.Kind, e.ID, domain.ErrInvalidDocument)
	}
	if e.Coords != nil && !e.Coords.Valid() {
		return fmt.Errorf("%s %q: coordinates out of range: %w", e.Kind, e.ID, domain.ErrInvalidDocument)
	}

	switch e.Kind {
	case entity.KindMall:
		e.Path = entity.MallPath(e.ID)
	case entity.KindStore:
		if err := entity.ValidateID(e.MallID); err != nil {
			return fmt.Errorf("store %q: mall id: %s: %w", e.ID, err.Error(), domain.ErrInvalidDocument)
		}
		e.Path = entity.StorePath(e.MallID, e.ID)
	default:
		return fmt.Errorf("unknown kind %q: %w", e.Kind, domain.ErrInvalidDocument)
	}
	return nil
}

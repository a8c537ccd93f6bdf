// Package catalog reads and writes malls and stores in the document store.
package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Earthondev/hanaihang/internal/db"
	"github.com/Earthondev/hanaihang/internal/domain/entity"
	"github.com/Earthondev/hanaihang/internal/logger"
)

// store is the consumer interface for catalog documents (ISP).
type store interface {
	QueryRange(ctx context.Context, scope db.Scope, field, lower, upper string, limit int) ([]db.Document, error)
	QueryArrayContains(ctx context.Context, scope db.Scope, field, value string, limit int) ([]db.Document, error)
	Put(ctx context.Context, doc db.Document) error
	List(ctx context.Context, scope db.Scope) ([]db.Document, error)
}

// Repo implements usecase/search.Catalog and usecase/indexing.Catalog.
type Repo struct {
	store store
}

// New creates a catalog repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// scopeOf maps a kind to its query scope: malls are a top-level collection,
// stores are queried as a collection group across every mall.
func scopeOf(kind entity.Kind) (db.Scope, error) {
	switch kind {
	case entity.KindMall:
		return db.CollectionScope(entity.MallsCollection), nil
	case entity.KindStore:
		return db.GroupScope(entity.StoresCollection), nil
	default:
		return db.Scope{}, fmt.Errorf("unknown kind %q", kind)
	}
}

// PrefixRange returns entities whose comparison name lies in [lower, upper).
func (r *Repo) PrefixRange(
	ctx context.Context, kind entity.Kind, lower, upper string, limit int,
) ([]entity.Entity, error) {
	scope, err := scopeOf(kind)
	if err != nil {
		return nil, err
	}
	docs, err := r.store.QueryRange(ctx, scope, FieldComparisonName, lower, upper, limit)
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", kind, err)
	}
	return r.parse(ctx, kind, docs, true), nil
}

// TokenMatch returns entities whose search tokens contain token.
func (r *Repo) TokenMatch(ctx context.Context, kind entity.Kind, token string, limit int) ([]entity.Entity, error) {
	scope, err := scopeOf(kind)
	if err != nil {
		return nil, err
	}
	docs, err := r.store.QueryArrayContains(ctx, scope, FieldSearchTokens, token, limit)
	if err != nil {
		return nil, fmt.Errorf("token %s: %w", kind, err)
	}
	return r.parse(ctx, kind, docs, true), nil
}

// All returns every entity of a kind ordered by path. Derived fields are
// returned exactly as stored so callers can detect stale or missing ones.
func (r *Repo) All(ctx context.Context, kind entity.Kind) ([]entity.Entity, error) {
	scope, err := scopeOf(kind)
	if err != nil {
		return nil, err
	}
	docs, err := r.store.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return r.parse(ctx, kind, docs, false), nil
}

// Put writes an entity at its path.
func (r *Repo) Put(ctx context.Context, e *entity.Entity) error {
	data, err := buildDocument(e)
	if err != nil {
		return err
	}
	doc, err := db.NewDocument(e.Path, data)
	if err != nil {
		return fmt.Errorf("put %s: %w", e.Path, err)
	}
	if err := r.store.Put(ctx, doc); err != nil {
		return fmt.Errorf("put %s: %w", e.Path, err)
	}
	return nil
}

// parse maps documents to entities. Undecodable documents are skipped so one
// bad record cannot fail a whole search.
func (r *Repo) parse(ctx context.Context, kind entity.Kind, docs []db.Document, deriveMissing bool) []entity.Entity {
	out := make([]entity.Entity, 0, len(docs))
	for _, doc := range docs {
		e, err := parseDocument(kind, doc, deriveMissing)
		if err != nil {
			logger.FromContext(ctx).Warn("skipping malformed catalog document",
				zap.String("path", doc.Path), zap.Error(err))
			continue
		}
		out = append(out, e)
	}
	return out
}

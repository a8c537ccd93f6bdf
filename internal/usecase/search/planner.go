package search

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Earthondev/hanaihang/internal/domain/entity"
	"github.com/Earthondev/hanaihang/internal/domain/textnorm"
	"github.com/Earthondev/hanaihang/internal/logger"
	"github.com/Earthondev/hanaihang/internal/metrics"
)

// prefixUpperBound is appended to a key to form the exclusive upper bound
// of a prefix range. It sorts after every BMP code point used in names.
const prefixUpperBound = "\uf8ff"

// DefaultBranchTimeout bounds a single planner branch.
const DefaultBranchTimeout = 3 * time.Second

// Branch labels.
const (
	branchPrefix = "prefix"
	branchToken  = "token"
)

// Plan is one normalized query to run against the catalog.
type Plan struct {
	Query        textnorm.Normalized
	Raw          string
	Kinds        []entity.Kind
	PerKindLimit int
}

// Branches holds one kind's candidates, each list in store order. A branch
// that failed has a nil list and a non-nil error.
type Branches struct {
	Prefix    []entity.Entity
	Token     []entity.Entity
	PrefixErr error
	TokenErr  error
}

// Candidates holds the raw branch output for both kinds.
type Candidates struct {
	Malls  Branches
	Stores Branches
}

// Degraded reports whether any branch failed.
func (c *Candidates) Degraded() bool {
	return c.Malls.PrefixErr != nil || c.Malls.TokenErr != nil ||
		c.Stores.PrefixErr != nil || c.Stores.TokenErr != nil
}

// IsEmpty reports whether no branch produced anything.
func (c *Candidates) IsEmpty() bool {
	return len(c.Malls.Prefix)+len(c.Malls.Token)+len(c.Stores.Prefix)+len(c.Stores.Token) == 0
}

// Planner fans a query out into a prefix branch and a token branch per kind.
type Planner struct {
	catalog Catalog
	timeout time.Duration
}

// NewPlanner creates a planner. A non-positive timeout uses DefaultBranchTimeout.
func NewPlanner(catalog Catalog, timeout time.Duration) *Planner {
	if timeout <= 0 {
		timeout = DefaultBranchTimeout
	}
	return &Planner{catalog: catalog, timeout: timeout}
}

// Plan runs every branch concurrently and waits for all of them. A failed or
// timed-out branch contributes nothing; Plan itself never fails. An empty
// comparison key issues no queries.
func (p *Planner) Plan(ctx context.Context, plan Plan) Candidates {
	var c Candidates
	if plan.Query.ComparisonKey == "" || plan.PerKindLimit <= 0 {
		return c
	}

	var g errgroup.Group
	for _, kind := range plan.Kinds {
		dst := c.branches(kind)
		if dst == nil {
			continue
		}
		g.Go(func() error {
			dst.Prefix, dst.PrefixErr = p.prefix(ctx, kind, plan)
			return nil
		})
		g.Go(func() error {
			dst.Token, dst.TokenErr = p.token(ctx, kind, plan)
			return nil
		})
	}
	_ = g.Wait()

	return c
}

func (c *Candidates) branches(kind entity.Kind) *Branches {
	switch kind {
	case entity.KindMall:
		return &c.Malls
	case entity.KindStore:
		return &c.Stores
	default:
		return nil
	}
}

func (p *Planner) prefix(ctx context.Context, kind entity.Kind, plan Plan) ([]entity.Entity, error) {
	key := plan.Query.ComparisonKey
	out, err := p.bounded(ctx, func(ctx context.Context) ([]entity.Entity, error) {
		return p.catalog.PrefixRange(ctx, kind, key, key+prefixUpperBound, plan.PerKindLimit)
	})
	if err != nil {
		p.branchFailed(ctx, kind, branchPrefix, err)
		return nil, err
	}
	return out, nil
}

// token matches the comparison key against stored tokens. When that finds
// nothing and the raw lowercased input differs, the raw form is tried once.
func (p *Planner) token(ctx context.Context, kind entity.Kind, plan Plan) ([]entity.Entity, error) {
	key := plan.Query.ComparisonKey
	raw := strings.ToLower(strings.TrimSpace(plan.Raw))

	out, err := p.bounded(ctx, func(ctx context.Context) ([]entity.Entity, error) {
		res, err := p.catalog.TokenMatch(ctx, kind, key, plan.PerKindLimit)
		if err != nil || len(res) > 0 || raw == "" || raw == key {
			return res, err
		}
		return p.catalog.TokenMatch(ctx, kind, raw, plan.PerKindLimit)
	})
	if err != nil {
		p.branchFailed(ctx, kind, branchToken, err)
		return nil, err
	}
	return out, nil
}

type branchResult struct {
	entities []entity.Entity
	err      error
}

// bounded runs fn under the branch timeout. It returns when the deadline
// passes even if fn ignores its context.
func (p *Planner) bounded(
	ctx context.Context, fn func(ctx context.Context) ([]entity.Entity, error),
) ([]entity.Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan branchResult, 1)
	go func() {
		res, err := fn(ctx)
		done <- branchResult{entities: res, err: err}
	}()

	select {
	case r := <-done:
		return r.entities, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Planner) branchFailed(ctx context.Context, kind entity.Kind, branch string, err error) {
	metrics.SearchBranchErrorsTotal.WithLabelValues(string(kind), branch).Inc()
	logger.FromContext(ctx).Warn("Search branch failed, treating as empty",
		zap.String("kind", string(kind)),
		zap.String("branch", branch),
		zap.Error(err),
	)
}

package indexing

import (
	"context"
	"sync"
	"testing"

	"github.com/Earthondev/hanaihang/internal/db/memory"
	"github.com/Earthondev/hanaihang/internal/domain/entity"
	"github.com/Earthondev/hanaihang/internal/repository/catalog"
)

// --- Mocks ---

type mockInvalidator struct {
	mu       sync.Mutex
	prefixes []string
}

func (m *mockInvalidator) Invalidate(_ context.Context, prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefixes = append(m.prefixes, prefix)
	return 1
}

func (m *mockInvalidator) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prefixes...)
}

type mockCatalog struct {
	allFn func(ctx context.Context, kind entity.Kind) ([]entity.Entity, error)
	putFn func(ctx context.Context, e *entity.Entity) error
	puts  []entity.Entity
}

func (m *mockCatalog) All(ctx context.Context, kind entity.Kind) ([]entity.Entity, error) {
	if m.allFn != nil {
		return m.allFn(ctx, kind)
	}
	return nil, nil
}

func (m *mockCatalog) Put(ctx context.Context, e *entity.Entity) error {
	if m.putFn != nil {
		if err := m.putFn(ctx, e); err != nil {
			return err
		}
	}
	m.puts = append(m.puts, *e)
	return nil
}

// --- Helpers ---

func newTestService(t *testing.T) (*Service, *catalog.Repo, *mockInvalidator) {
	t.Helper()
	repo := catalog.New(memory.NewStore())
	inv := &mockInvalidator{}
	return New(repo, inv), repo, inv
}

package catalog

import (
	"context"

	"github.com/Earthondev/hanaihang/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	queryRangeFn    func(ctx context.Context, scope db.Scope, field, lower, upper string, limit int) ([]db.Document, error)
	arrayContainsFn func(ctx context.Context, scope db.Scope, field, value string, limit int) ([]db.Document, error)
	putFn           func(ctx context.Context, doc db.Document) error
	listFn          func(ctx context.Context, scope db.Scope) ([]db.Document, error)
}

func (m *mockStore) QueryRange(
	ctx context.Context, scope db.Scope, field, lower, upper string, limit int,
) ([]db.Document, error) {
	if m.queryRangeFn != nil {
		return m.queryRangeFn(ctx, scope, field, lower, upper, limit)
	}
	return nil, nil
}

func (m *mockStore) QueryArrayContains(
	ctx context.Context, scope db.Scope, field, value string, limit int,
) ([]db.Document, error) {
	if m.arrayContainsFn != nil {
		return m.arrayContainsFn(ctx, scope, field, value, limit)
	}
	return nil, nil
}

func (m *mockStore) Put(ctx context.Context, doc db.Document) error {
	if m.putFn != nil {
		return m.putFn(ctx, doc)
	}
	return nil
}

func (m *mockStore) List(ctx context.Context, scope db.Scope) ([]db.Document, error) {
	if m.listFn != nil {
		return m.listFn(ctx, scope)
	}
	return nil, nil
}

func mustDoc(path, body string) db.Document {
	doc, err := db.NewDocument(path, []byte(body))
	if err != nil {
		panic(err)
	}
	return doc
}

package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces
type Store interface {
	Pinger
	KVStore
	DocumentStore
	DocumentWriter
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// DocumentStore answers the two query shapes the search planner needs.
// Results are ordered by (field value, path) for range queries and by path
// for array-contains queries.
type DocumentStore interface {
	// QueryRange returns documents in scope whose string field lies in
	// [lower, upper).
	QueryRange(ctx context.Context, scope Scope, field, lower, upper string, limit int) ([]Document, error)
	// QueryArrayContains returns documents in scope whose string-array field
	// contains value.
	QueryArrayContains(ctx context.Context, scope Scope, field, value string, limit int) ([]Document, error)
}

// DocumentWriter writes and enumerates documents.
type DocumentWriter interface {
	// Put creates or replaces the document at doc.Path and refreshes its
	// index entries.
	Put(ctx context.Context, doc Document) error
	List(ctx context.Context, scope Scope) ([]Document, error)
}

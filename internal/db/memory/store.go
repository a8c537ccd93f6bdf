// Package memory is an in-process db.Store for the local driver and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Earthondev/hanaihang/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type document struct {
	data   []byte
	fields db.Fields
}

type value struct {
	data      []byte
	expiresAt time.Time // zero = no expiry
}

// Store keeps documents and key-values in maps guarded by a single RWMutex.
// Queries scan every document; it is sized for fixtures, not production data.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]document
	kv    map[string]value
	clock clockwork.Clock
}

// NewStore creates an empty store on the real clock.
func NewStore() *Store {
	return NewStoreWithClock(clockwork.NewRealClock())
}

// NewStoreWithClock creates an empty store with an injected clock for TTLs.
func NewStoreWithClock(clock clockwork.Clock) *Store {
	return &Store{
		docs:  make(map[string]document),
		kv:    make(map[string]value),
		clock: clock,
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// --- documents ---

// Put creates or replaces a document.
func (s *Store) Put(_ context.Context, doc db.Document) error {
	if _, _, ok := db.SplitPath(doc.Path); !ok {
		return &db.Error{Op: db.OpPut, Err: db.ErrInvalidPath}
	}
	fields, err := db.DecodeFields(doc.Data)
	if err != nil {
		return &db.Error{Op: db.OpPut, Err: err}
	}

	data := append([]byte(nil), doc.Data...)

	s.mu.Lock()
	s.docs[doc.Path] = document{data: data, fields: fields}
	s.mu.Unlock()
	return nil
}

// List returns every document in scope ordered by path.
func (s *Store) List(_ context.Context, scope db.Scope) ([]db.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var paths []string
	for p := range s.docs {
		if scope.Contains(p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return s.collect(paths), nil
}

// QueryRange returns documents whose field lies in [lower, upper), ordered
// by field value then path. An empty upper bound is open.
func (s *Store) QueryRange(
	_ context.Context, scope db.Scope, field, lower, upper string, limit int,
) ([]db.Document, error) {
	if limit <= 0 {
		return nil, nil
	}

	type hit struct{ value, path string }

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []hit
	for p, d := range s.docs {
		if !scope.Contains(p) {
			continue
		}
		v, ok := d.fields.String(field)
		if !ok || v < lower || (upper != "" && v >= upper) {
			continue
		}
		hits = append(hits, hit{value: v, path: p})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].value != hits[j].value {
			return hits[i].value < hits[j].value
		}
		return hits[i].path < hits[j].path
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	paths := make([]string, len(hits))
	for i, h := range hits {
		paths[i] = h.path
	}
	return s.collect(paths), nil
}

// QueryArrayContains returns documents whose array field contains value,
// ordered by path.
func (s *Store) QueryArrayContains(
	_ context.Context, scope db.Scope, field, value string, limit int,
) ([]db.Document, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var paths []string
	for p, d := range s.docs {
		if !scope.Contains(p) {
			continue
		}
		for _, v := range d.fields.Strings(field) {
			if v == value {
				paths = append(paths, p)
				break
			}
		}
	}
	sort.Strings(paths)
	if len(paths) > limit {
		paths = paths[:limit]
	}
	return s.collect(paths), nil
}

// collect must be called with s.mu held.
func (s *Store) collect(paths []string) []db.Document {
	if len(paths) == 0 {
		return nil
	}
	out := make([]db.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := db.NewDocument(p, append([]byte(nil), s.docs[p].data...))
		if err != nil {
			continue
		}
		out = append(out, doc)
	}
	return out
}

// --- key-value ---

// Get retrieves a live value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	v, ok := s.kv[key]
	s.mu.RUnlock()
	if !ok || s.expired(v) {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), v.data...), nil
}

// SetWithTTL stores a value with an expiration. A non-positive ttl never expires.
func (s *Store) SetWithTTL(_ context.Context, key string, data []byte, ttl time.Duration) error {
	v := value{data: append([]byte(nil), data...)}
	if ttl > 0 {
		v.expiresAt = s.clock.Now().Add(ttl)
	}
	s.mu.Lock()
	s.kv[key] = v
	s.mu.Unlock()
	return nil
}

// Del deletes keys; missing keys are ignored.
func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.kv, k)
	}
	s.mu.Unlock()
	return nil
}

// Scan returns live keys matching a Redis-style glob pattern.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k, v := range s.kv {
		if s.expired(v) {
			delete(s.kv, k)
			continue
		}
		if globMatch(pattern, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) expired(v value) bool {
	return !v.expiresAt.IsZero() && !s.clock.Now().Before(v.expiresAt)
}

// globMatch implements the subset of Redis glob syntax used for key scans:
// '*', '?' and backslash escapes.
func globMatch(pattern, s string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			for len(pattern) > 0 && pattern[0] == '*' {
				pattern = pattern[1:]
			}
			if pattern == "" {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if globMatch(pattern, s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if s == "" {
				return false
			}
			pattern, s = pattern[1:], s[1:]
		case '\\':
			if len(pattern) > 1 {
				pattern = pattern[1:]
			}
			fallthrough
		default:
			if s == "" || s[0] != pattern[0] {
				return false
			}
			pattern, s = pattern[1:], s[1:]
		}
	}
	return s == ""
}

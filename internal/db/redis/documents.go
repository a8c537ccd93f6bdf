package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/Earthondev/hanaihang/internal/db"
)

// Layout:
//
//	<prefix>doc:<path>                      document JSON
//	<prefix>docs:<scope>                    zset of paths in scope
//	<prefix>lex:<scope>:<field>             zset of "<value>\x00<path>", all scores 0
//	<prefix>tok:<scope>:<field>:<value>     zset of paths, all scores 0
//
// Every document is indexed under its parent collection and its collection
// group, so both plain and group scopes are a single ZRANGE.
const lexSep = "\x00"

type indexEntry struct {
	key    string
	member string
}

func (s *Store) docKey(path string) string { return s.prefix + "doc:" + path }

func (s *Store) membersKey(sc db.Scope) string { return s.prefix + "docs:" + sc.Key() }

func (s *Store) lexKey(sc db.Scope, field string) string {
	return s.prefix + "lex:" + sc.Key() + ":" + field
}

func (s *Store) tokKey(sc db.Scope, field, value string) string {
	return s.prefix + "tok:" + sc.Key() + ":" + field + ":" + value
}

// entries computes the index members a document version owns.
func (s *Store) entries(path string, data []byte) ([]indexEntry, error) {
	scopes, err := db.ScopesOf(path)
	if err != nil {
		return nil, err
	}
	fields, err := db.DecodeFields(data)
	if err != nil {
		return nil, err
	}

	var out []indexEntry
	for _, sc := range scopes {
		out = append(out, indexEntry{key: s.membersKey(sc), member: path})
		for _, f := range s.rangeFields {
			if v, ok := fields.String(f); ok {
				out = append(out, indexEntry{key: s.lexKey(sc, f), member: v + lexSep + path})
			}
		}
		for _, f := range s.arrayFields {
			for _, v := range fields.Strings(f) {
				out = append(out, indexEntry{key: s.tokKey(sc, f, v), member: path})
			}
		}
	}
	return out, nil
}

// maxPutAttempts bounds optimistic retries when a concurrent Put touches
// the same document.
const maxPutAttempts = 3

// Put stores the document and swaps its index entries: members owned by the
// previous version and not by the new one are removed. The previous version
// is read under WATCH and the swap runs in MULTI/EXEC, so a concurrent Put to
// the same path forces a retry instead of leaving orphaned index members.
func (s *Store) Put(ctx context.Context, doc db.Document) error {
	next, err := s.entries(doc.Path, doc.Data)
	if err != nil {
		return &db.Error{Op: db.OpPut, Err: err}
	}

	for range maxPutAttempts {
		var committed bool
		err := s.client.Dedicated(func(c rueidis.DedicatedClient) error {
			var err error
			committed, err = s.swap(ctx, c, doc, next)
			return err
		})
		if err != nil {
			return &db.Error{Op: db.OpPut, Err: fmt.Errorf("path %s: %w", doc.Path, err)}
		}
		if committed {
			return nil
		}
	}
	return &db.Error{Op: db.OpPut, Err: fmt.Errorf("path %s: %w", doc.Path, db.ErrConflict)}
}

// swap runs one WATCH / GET / MULTI..EXEC round on a dedicated connection.
// It reports false when EXEC was aborted by a concurrent write.
func (s *Store) swap(ctx context.Context, c rueidis.DedicatedClient, doc db.Document, next []indexEntry) (bool, error) {
	key := s.docKey(doc.Path)
	if err := c.Do(ctx, s.b().Watch().Key(key).Build()).Error(); err != nil {
		return false, fmt.Errorf("watch: %w", err)
	}

	var prev []indexEntry
	old, err := c.Do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	switch {
	case err == nil:
		// A malformed previous body owns no entries.
		prev, _ = s.entries(doc.Path, old)
	case rueidis.IsRedisNil(err):
	default:
		_ = c.Do(ctx, s.b().Unwatch().Build()).Error()
		return false, fmt.Errorf("read previous version: %w", err)
	}

	keep := make(map[indexEntry]struct{}, len(next))
	for _, e := range next {
		keep[e] = struct{}{}
	}

	cmds := make([]rueidis.Completed, 0, len(prev)+len(next)+3)
	cmds = append(cmds, s.b().Multi().Build())
	for _, e := range prev {
		if _, ok := keep[e]; !ok {
			cmds = append(cmds, s.b().Arbitrary("ZREM").Keys(e.key).Args(e.member).Build())
		}
	}
	cmds = append(cmds, s.b().Set().Key(key).Value(string(doc.Data)).Build())
	for _, e := range next {
		cmds = append(cmds, s.b().Arbitrary("ZADD").Keys(e.key).Args("0", e.member).Build())
	}
	cmds = append(cmds, s.b().Exec().Build())

	results := c.DoMulti(ctx, cmds...)
	for _, res := range results[:len(results)-1] {
		if err := res.Error(); err != nil {
			return false, err
		}
	}
	replies, err := results[len(results)-1].ToArray()
	if rueidis.IsRedisNil(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exec: %w", err)
	}
	for _, r := range replies {
		if err := r.Error(); err != nil {
			return false, fmt.Errorf("exec: %w", err)
		}
	}
	return true, nil
}

// List returns every document in scope ordered by path.
func (s *Store) List(ctx context.Context, scope db.Scope) ([]db.Document, error) {
	cmd := s.b().Arbitrary("ZRANGE").Keys(s.membersKey(scope)).Args("0", "-1").Build()
	paths, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRange, Err: err}
	}
	return s.fetch(ctx, paths)
}

// QueryRange returns documents whose field lies in [lower, upper). An empty
// bound is open.
func (s *Store) QueryRange(
	ctx context.Context, scope db.Scope, field, lower, upper string, limit int,
) ([]db.Document, error) {
	if limit <= 0 {
		return nil, nil
	}

	lo, hi := "-", "+"
	if lower != "" {
		lo = "[" + lower
	}
	if upper != "" {
		hi = "(" + upper
	}

	cmd := s.b().Arbitrary("ZRANGE").
		Keys(s.lexKey(scope, field)).
		Args(lo, hi, "BYLEX", "LIMIT", "0", strconv.Itoa(limit)).
		Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRange, Err: err}
	}

	paths := make([]string, 0, len(members))
	for _, m := range members {
		if i := strings.LastIndex(m, lexSep); i >= 0 {
			paths = append(paths, m[i+len(lexSep):])
		}
	}
	return s.fetch(ctx, paths)
}

// QueryArrayContains returns documents whose array field contains value.
func (s *Store) QueryArrayContains(
	ctx context.Context, scope db.Scope, field, value string, limit int,
) ([]db.Document, error) {
	if limit <= 0 {
		return nil, nil
	}

	cmd := s.b().Arbitrary("ZRANGE").
		Keys(s.tokKey(scope, field, value)).
		Args("0", strconv.Itoa(limit-1)).
		Build()
	paths, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRange, Err: err}
	}
	return s.fetch(ctx, paths)
}

// fetch loads documents in a single DoMulti round-trip, preserving order.
// Paths whose document has vanished since indexing are skipped.
func (s *Store) fetch(ctx context.Context, paths []string) ([]db.Document, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(paths))
	for i, p := range paths {
		cmds[i] = s.b().Get().Key(s.docKey(p)).Build()
	}

	docs := make([]db.Document, 0, len(paths))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		data, err := res.AsBytes()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}
			return nil, &db.Error{Op: db.OpGet, Err: fmt.Errorf("path %s: %w", paths[i], err)}
		}
		doc, err := db.NewDocument(paths[i], data)
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

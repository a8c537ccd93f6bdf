package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/Earthondev/hanaihang/internal/db"
)

var testCfg = Config{
	KeyPrefix:   "hh:",
	RangeFields: []string{"comparisonName"},
	ArrayFields: []string{"searchTokens"},
}

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c, testCfg)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, testCfg)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "k")).
		Return(mock.Result(mock.RedisString("v")))

	s := NewStoreForTest(c, testCfg)
	v, err := s.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(v) != "v" {
		t.Errorf("expected v, got %q", v)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "k")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c, testCfg)
	_, err := s.Get(context.Background(), "k")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestGet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "k")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, testCfg)
	_, err := s.Get(context.Background(), "k")
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestSetWithTTL_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "v", "EX", "120")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c, testCfg)
	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), 2*time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDel_Multi(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), mock.Match("DEL", "a"), mock.Match("DEL", "b")).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(1)),
			mock.Result(mock.RedisInt64(0)),
		})

	s := NewStoreForTest(c, testCfg)
	if err := s.Del(context.Background(), "a", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDel_Empty(t *testing.T) {
	s := NewStoreForTest(nil, testCfg) // client not called
	if err := s.Del(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScan_MultiPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	first := true
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN"
		})).
		DoAndReturn(func(_ context.Context, _ rueidis.Completed) rueidis.RedisResult {
			if first {
				first = false
				return mock.Result(mock.RedisArray(
					mock.RedisInt64(42), // cursor=42 means more
					mock.RedisArray(mock.RedisString("key1")),
				))
			}
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(0), // cursor=0 means done
				mock.RedisArray(mock.RedisString("key2")),
			))
		}).Times(2)

	s := NewStoreForTest(c, testCfg)
	keys, err := s.Scan(context.Background(), "search:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
}

// --- documents.go tests ---

// expectDedicated routes Store.Put through a mocked dedicated connection.
func expectDedicated(c *mock.Client, dc *mock.DedicatedClient, times int) {
	c.EXPECT().
		Dedicated(gomock.Any()).
		Times(times).
		DoAndReturn(func(fn func(rueidis.DedicatedClient) error) error { return fn(dc) })
}

// execReplies answers a MULTI..EXEC batch: OK, QUEUED per command and the
// EXEC reply produced by exec.
func execReplies(cmds []rueidis.Completed, exec rueidis.RedisResult) []rueidis.RedisResult {
	out := make([]rueidis.RedisResult, len(cmds))
	out[0] = mock.Result(mock.RedisString("OK"))
	for i := 1; i < len(cmds)-1; i++ {
		out[i] = mock.Result(mock.RedisString("QUEUED"))
	}
	out[len(cmds)-1] = exec
	return out
}

func execOK(n int) rueidis.RedisResult {
	replies := make([]rueidis.RedisMessage, n)
	for i := range replies {
		replies[i] = mock.RedisInt64(1)
	}
	return mock.Result(mock.RedisArray(replies...))
}

func TestPut_NewDocument(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	dc := mock.NewDedicatedClient(ctrl)
	expectDedicated(c, dc, 1)

	dc.EXPECT().
		Do(gomock.Any(), mock.Match("WATCH", "hh:doc:malls/A/stores/s1")).
		Return(mock.Result(mock.RedisString("OK")))
	dc.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "hh:doc:malls/A/stores/s1")).
		Return(mock.Result(mock.RedisNil()))

	var got [][]string
	dc.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			for _, cmd := range cmds {
				got = append(got, cmd.Commands())
			}
			return execReplies(cmds, execOK(len(cmds)-2))
		})

	s := NewStoreForTest(c, testCfg)
	doc := db.Document{
		Path: "malls/A/stores/s1",
		ID:   "s1",
		Data: []byte(`{"comparisonName":"starbucks","searchTokens":["starbucks"]}`),
	}
	if err := s.Put(context.Background(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got[0][0] != "MULTI" || got[len(got)-1][0] != "EXEC" {
		t.Fatalf("swap must run inside MULTI/EXEC, got %v ... %v", got[0], got[len(got)-1])
	}
	want := map[string]bool{
		"SET hh:doc:malls/A/stores/s1":                                        false,
		"ZADD hh:docs:c:malls/A/stores 0 malls/A/stores/s1":                   false,
		"ZADD hh:docs:g:stores 0 malls/A/stores/s1":                           false,
		"ZADD hh:lex:g:stores:comparisonName 0 starbucks\x00malls/A/stores/s1": false,
		"ZADD hh:tok:g:stores:searchTokens:starbucks 0 malls/A/stores/s1":     false,
	}
	for _, cmd := range got {
		if cmd[0] == "ZREM" {
			t.Errorf("new document must not remove entries: %v", cmd)
		}
		line := strings.Join(cmd, " ")
		if cmd[0] == "SET" {
			line = strings.Join(cmd[:2], " ")
		}
		if _, ok := want[line]; ok {
			want[line] = true
		}
	}
	for line, seen := range want {
		if !seen {
			t.Errorf("missing command %q", line)
		}
	}
}

func TestPut_RemovesStaleEntries(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	dc := mock.NewDedicatedClient(ctrl)
	expectDedicated(c, dc, 1)

	dc.EXPECT().
		Do(gomock.Any(), mock.Match("WATCH", "hh:doc:malls/A")).
		Return(mock.Result(mock.RedisString("OK")))
	dc.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "hh:doc:malls/A")).
		Return(mock.Result(mock.RedisString(`{"comparisonName":"old name","searchTokens":["old","name"]}`)))

	var removed []string
	dc.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			for _, cmd := range cmds {
				if args := cmd.Commands(); args[0] == "ZREM" {
					removed = append(removed, args[1]+" "+args[2])
				}
			}
			return execReplies(cmds, execOK(len(cmds)-2))
		})

	s := NewStoreForTest(c, testCfg)
	doc := db.Document{
		Path: "malls/A",
		ID:   "A",
		Data: []byte(`{"comparisonName":"new name","searchTokens":["new","name"]}`),
	}
	if err := s.Put(context.Background(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(removed, "|")
	if !strings.Contains(joined, "hh:lex:c:malls:comparisonName old name\x00malls/A") {
		t.Errorf("stale range entry not removed: %q", joined)
	}
	if !strings.Contains(joined, "hh:tok:c:malls:searchTokens:old malls/A") {
		t.Errorf("stale token entry not removed: %q", joined)
	}
	if strings.Contains(joined, "searchTokens:name ") {
		t.Errorf("shared token must be kept: %q", joined)
	}
	if strings.Contains(joined, "hh:docs:") {
		t.Errorf("membership must be kept: %q", joined)
	}
}

func TestPut_RetriesWhenConcurrentWriteAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	dc := mock.NewDedicatedClient(ctrl)
	expectDedicated(c, dc, 2)

	dc.EXPECT().
		Do(gomock.Any(), mock.Match("WATCH", "hh:doc:malls/A")).
		Times(2).
		Return(mock.Result(mock.RedisString("OK")))
	// The first read sees the version another writer is replacing; the
	// retry sees that writer's result.
	gomock.InOrder(
		dc.EXPECT().
			Do(gomock.Any(), mock.Match("GET", "hh:doc:malls/A")).
			Return(mock.Result(mock.RedisString(`{"comparisonName":"first","searchTokens":["first"]}`))),
		dc.EXPECT().
			Do(gomock.Any(), mock.Match("GET", "hh:doc:malls/A")).
			Return(mock.Result(mock.RedisString(`{"comparisonName":"racer","searchTokens":["racer"]}`))),
	)

	var batches [][]string
	attempt := 0
	dc.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Times(2).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			attempt++
			var removed []string
			for _, cmd := range cmds {
				if args := cmd.Commands(); args[0] == "ZREM" {
					removed = append(removed, args[1]+" "+args[2])
				}
			}
			batches = append(batches, removed)
			if attempt == 1 {
				return execReplies(cmds, mock.Result(mock.RedisNil()))
			}
			return execReplies(cmds, execOK(len(cmds)-2))
		})

	s := NewStoreForTest(c, testCfg)
	doc := db.Document{Path: "malls/A", ID: "A", Data: []byte(`{"comparisonName":"final","searchTokens":["final"]}`)}
	if err := s.Put(context.Background(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(batches) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(batches))
	}
	retry := strings.Join(batches[1], "|")
	if !strings.Contains(retry, "hh:tok:c:malls:searchTokens:racer malls/A") {
		t.Errorf("retry must remove the concurrent writer's entries: %q", retry)
	}
	if strings.Contains(retry, "searchTokens:first") {
		t.Errorf("retry must not act on the superseded version: %q", retry)
	}
}

func TestPut_ConflictExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	dc := mock.NewDedicatedClient(ctrl)
	expectDedicated(c, dc, maxPutAttempts)

	dc.EXPECT().
		Do(gomock.Any(), mock.Match("WATCH", "hh:doc:malls/A")).
		Times(maxPutAttempts).
		Return(mock.Result(mock.RedisString("OK")))
	dc.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "hh:doc:malls/A")).
		Times(maxPutAttempts).
		Return(mock.Result(mock.RedisNil()))
	dc.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Times(maxPutAttempts).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			return execReplies(cmds, mock.Result(mock.RedisNil()))
		})

	s := NewStoreForTest(c, testCfg)
	err := s.Put(context.Background(), db.Document{Path: "malls/A", ID: "A", Data: []byte(`{}`)})
	if !errors.Is(err, db.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if !isDBError(err) {
		t.Errorf("expected *db.Error, got %T", err)
	}
}

func TestPut_ReadErrorUnwatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	dc := mock.NewDedicatedClient(ctrl)
	expectDedicated(c, dc, 1)

	dc.EXPECT().
		Do(gomock.Any(), mock.Match("WATCH", "hh:doc:malls/A")).
		Return(mock.Result(mock.RedisString("OK")))
	dc.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "hh:doc:malls/A")).
		Return(mock.ErrorResult(errors.New("connection reset")))
	dc.EXPECT().
		Do(gomock.Any(), mock.Match("UNWATCH")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c, testCfg)
	err := s.Put(context.Background(), db.Document{Path: "malls/A", ID: "A", Data: []byte(`{}`)})
	if err == nil || !isDBError(err) {
		t.Fatalf("expected *db.Error, got %v", err)
	}
}

func TestPut_InvalidPath(t *testing.T) {
	s := NewStoreForTest(nil, testCfg) // client not called
	err := s.Put(context.Background(), db.Document{Path: "malls", Data: []byte(`{}`)})
	if !errors.Is(err, db.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestPut_NotObject(t *testing.T) {
	s := NewStoreForTest(nil, testCfg) // client not called
	err := s.Put(context.Background(), db.Document{Path: "malls/A", Data: []byte(`[]`)})
	if !errors.Is(err, db.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestQueryRange_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match(
			"ZRANGE", "hh:lex:c:malls:comparisonName",
			"[central", "(central\uf8ff", "BYLEX", "LIMIT", "0", "5",
		)).
		Return(mock.Result(mock.RedisArray(
			mock.RedisString("central world\x00malls/A"),
			mock.RedisString("central ladprao\x00malls/B"),
		)))

	c.EXPECT().
		DoMulti(gomock.Any(), mock.Match("GET", "hh:doc:malls/A"), mock.Match("GET", "hh:doc:malls/B")).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString(`{"name":"Central World"}`)),
			mock.Result(mock.RedisNil()), // deleted since indexing
		})

	s := NewStoreForTest(c, testCfg)
	docs, err := s.QueryRange(context.Background(), db.CollectionScope("malls"),
		"comparisonName", "central", "central\uf8ff", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	if docs[0].Path != "malls/A" || docs[0].ID != "A" {
		t.Errorf("unexpected doc: %+v", docs[0])
	}
}

func TestQueryRange_ZeroLimit(t *testing.T) {
	s := NewStoreForTest(nil, testCfg) // client not called
	docs, err := s.QueryRange(context.Background(), db.CollectionScope("malls"), "comparisonName", "a", "b", 0)
	if err != nil || docs != nil {
		t.Fatalf("expected no docs and no error, got %v, %v", docs, err)
	}
}

func TestQueryRange_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "ZRANGE" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, testCfg)
	_, err := s.QueryRange(context.Background(), db.GroupScope("stores"), "comparisonName", "a", "b", 5)
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestQueryArrayContains_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("ZRANGE", "hh:tok:g:stores:searchTokens:starbucks", "0", "9")).
		Return(mock.Result(mock.RedisArray(mock.RedisString("malls/A/stores/s1"))))

	c.EXPECT().
		DoMulti(gomock.Any(), mock.Match("GET", "hh:doc:malls/A/stores/s1")).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString(`{"name":"Starbucks"}`)),
		})

	s := NewStoreForTest(c, testCfg)
	docs, err := s.QueryArrayContains(context.Background(), db.GroupScope("stores"), "searchTokens", "starbucks", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "s1" {
		t.Fatalf("unexpected docs: %+v", docs)
	}
}

func TestList_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("ZRANGE", "hh:docs:c:malls", "0", "-1")).
		Return(mock.Result(mock.RedisArray()))

	s := NewStoreForTest(c, testCfg)
	docs, err := s.List(context.Background(), db.CollectionScope("malls"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no docs, got %d", len(docs))
	}
}

// --- helpers ---

// isDBError is a test helper for checking wrapped db.Error.
func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}

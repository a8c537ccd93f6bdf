package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Earthondev/hanaihang/internal/domain"
	dombatch "github.com/Earthondev/hanaihang/internal/domain/batch"
	"github.com/Earthondev/hanaihang/internal/domain/entity"
	"github.com/Earthondev/hanaihang/internal/domain/search/request"
	"github.com/Earthondev/hanaihang/internal/domain/search/result"
	"github.com/Earthondev/hanaihang/internal/domain/search/scope"
	healthuc "github.com/Earthondev/hanaihang/internal/usecase/health"
	indexinguc "github.com/Earthondev/hanaihang/internal/usecase/indexing"
	searchuc "github.com/Earthondev/hanaihang/internal/usecase/search"
)

// --- Mocks ---

type mockSearcher struct {
	resp       searchuc.Response
	lastReq    *request.Request
	prefix     string
	removed    int
	searchHits int
}

func (m *mockSearcher) Search(_ context.Context, req *request.Request) searchuc.Response {
	m.searchHits++
	r := *req
	m.lastReq = &r
	return m.resp
}

func (m *mockSearcher) Invalidate(_ context.Context, prefix string) int {
	m.prefix = prefix
	return m.removed
}

type mockIndexer struct {
	report    indexinguc.Report
	reportErr error
	results   []dombatch.Result
	importErr error
	body      string
}

func (m *mockIndexer) Reindex(context.Context) (indexinguc.Report, error) {
	return m.report, m.reportErr
}

func (m *mockIndexer) Import(_ context.Context, r io.Reader) ([]dombatch.Result, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.body = string(b)
	return m.results, m.importErr
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- Helpers ---

func newTestRouter(t *testing.T, apiKeys ...string) (http.Handler, *mockSearcher, *mockIndexer, *mockHealth) {
	t.Helper()
	s := &mockSearcher{}
	ix := &mockIndexer{}
	h := &mockHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{healthuc.ComponentDatabase: healthuc.CheckOK},
	}}
	srv := NewServer(s, ix, h, zap.NewNop())
	return NewRouter(srv, apiKeys, zap.NewNop()), s, ix, h
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = http.NoBody
	}
	req := httptest.NewRequest(method, target, body)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return e
}

// --- Tests ---

func TestSearch_OK(t *testing.T) {
	h, s, _, _ := newTestRouter(t)
	s.resp = searchuc.Response{
		Stage:   searchuc.StageQueried,
		Results: []result.Result{{ID: "A", Kind: entity.KindMall, Name: "Central Rama 9"}},
	}

	rr := do(t, h, http.MethodGet, "/v1/search?q=central&lat=13.75&lng=100.5&limit=10&scope=malls", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stage != searchuc.StageQueried || len(resp.Items) != 1 || resp.Items[0].ID != "A" {
		t.Errorf("resp = %+v", resp)
	}

	req := s.lastReq
	if req.Query() != "central" || req.Limit() != 10 || req.Scope() != scope.Malls {
		t.Errorf("request = q:%q limit:%d scope:%q", req.Query(), req.Limit(), req.Scope())
	}
	if o := req.Origin(); o == nil || o.Lat != 13.75 || o.Lng != 100.5 {
		t.Errorf("origin = %v", o)
	}
}

func TestSearch_EmptyItemsNotNull(t *testing.T) {
	h, s, _, _ := newTestRouter(t)
	s.resp = searchuc.Response{Stage: searchuc.StageEmpty}

	rr := do(t, h, http.MethodGet, "/v1/search", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"items":[]`) {
		t.Errorf("body = %s", rr.Body.String())
	}
	if s.lastReq.Scope() != scope.All || s.lastReq.Limit() != request.DefaultLimit {
		t.Errorf("defaults not applied: scope=%q limit=%d", s.lastReq.Scope(), s.lastReq.Limit())
	}
}

func TestSearch_BadParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
		code   ErrorCode
	}{
		{"non-numeric lat", "/v1/search?q=x&lat=north&lng=100", CodeBadRequest},
		{"non-numeric limit", "/v1/search?q=x&limit=ten", CodeBadRequest},
		{"lat without lng", "/v1/search?q=x&lat=13", CodeValidationFailed},
		{"lat out of range", "/v1/search?q=x&lat=95&lng=100", CodeValidationFailed},
		{"unknown scope", "/v1/search?q=x&scope=offices", CodeValidationFailed},
		{"query too long", "/v1/search?q=" + strings.Repeat("a", request.MaxQueryLength+1), CodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s, _, _ := newTestRouter(t)
			rr := do(t, h, http.MethodGet, tt.target, nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if e := decodeError(t, rr); e.Code != tt.code {
				t.Errorf("code = %q, want %q", e.Code, tt.code)
			}
			if s.searchHits != 0 {
				t.Error("search must not run on invalid input")
			}
		})
	}
}

func TestInvalidateCache(t *testing.T) {
	h, s, _, _ := newTestRouter(t)
	s.removed = 3

	rr := do(t, h, http.MethodDelete, "/v1/cache", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp InvalidateResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Removed != 3 || resp.Prefix != searchuc.CachePrefix || s.prefix != searchuc.CachePrefix {
		t.Errorf("resp = %+v, prefix = %q", resp, s.prefix)
	}

	do(t, h, http.MethodDelete, "/v1/cache?prefix=search:malls", nil)
	if s.prefix != "search:malls" {
		t.Errorf("prefix = %q", s.prefix)
	}
}

func TestReindex(t *testing.T) {
	h, _, ix, _ := newTestRouter(t)
	ix.report = indexinguc.Report{Scanned: 4, Summary: dombatch.Summary{Written: 1, Unchanged: 3}}

	rr := do(t, h, http.MethodPost, "/v1/reindex", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var got map[string]int
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["scanned"] != 4 || got["written"] != 1 || got["unchanged"] != 3 {
		t.Errorf("report = %v", got)
	}
}

func TestReindex_Error(t *testing.T) {
	h, _, ix, _ := newTestRouter(t)
	ix.reportErr = errors.New("redis: connection refused")

	rr := do(t, h, http.MethodPost, "/v1/reindex", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Message != "internal error" {
		t.Errorf("message leaks internals: %q", e.Message)
	}
}

func TestImport(t *testing.T) {
	h, _, ix, _ := newTestRouter(t)
	ix.results = []dombatch.Result{
		dombatch.NewWritten("malls/A"),
		dombatch.NewError("malls/A/stores/bad id", errors.New("id: "+domain.ErrInvalidDocument.Error())),
		dombatch.NewError("malls/A/stores/s2", errors.Join(domain.ErrInvalidDocument)),
	}

	rr := do(t, h, http.MethodPost, "/v1/import", strings.NewReader("malls: []"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ix.body != "malls: []" {
		t.Errorf("body = %q", ix.body)
	}

	var resp ImportResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Written != 1 || resp.Failed != 2 || len(resp.Items) != 3 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Items[0].Error != nil {
		t.Errorf("written item has error: %+v", resp.Items[0].Error)
	}
	if e := resp.Items[1].Error; e == nil || e.Code != CodeInternalError || e.Message != "internal error" {
		t.Errorf("unwrapped error item = %+v", e)
	}
	if e := resp.Items[2].Error; e == nil || e.Code != CodeValidationFailed {
		t.Errorf("validation error item = %+v", e)
	}
}

func TestImport_DecodeError(t *testing.T) {
	h, _, ix, _ := newTestRouter(t)
	ix.importErr = errors.Join(errors.New("decode fixture"), domain.ErrInvalidDocument)

	rr := do(t, h, http.MethodPost, "/v1/import", strings.NewReader("{"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	h, _, _, hc := newTestRouter(t)

	rr := do(t, h, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	hc.report = healthuc.Report{Status: healthuc.Degraded}
	if rr := do(t, h, http.MethodGet, "/health", nil); rr.Code != http.StatusOK {
		t.Errorf("degraded: status = %d, want 200", rr.Code)
	}

	hc.report = healthuc.Report{Status: healthuc.Unhealthy}
	if rr := do(t, h, http.MethodGet, "/health", nil); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy: status = %d, want 503", rr.Code)
	}
}

func TestRouter_AdminRoutesRequireKey(t *testing.T) {
	h, _, _, _ := newTestRouter(t, "secret")

	for _, rt := range []struct{ method, path string }{
		{http.MethodDelete, "/v1/cache"},
		{http.MethodPost, "/v1/reindex"},
		{http.MethodPost, "/v1/import"},
	} {
		if rr := do(t, h, rt.method, rt.path, nil); rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without key: got %d, want 401", rt.method, rt.path, rr.Code)
		}
	}

	if rr := do(t, h, http.MethodPost, "/v1/reindex", nil, "Authorization", "Bearer secret"); rr.Code != http.StatusOK {
		t.Errorf("reindex with key: got %d", rr.Code)
	}
}

func TestRouter_PublicRoutes(t *testing.T) {
	h, _, _, _ := newTestRouter(t, "secret")

	for _, path := range []string{"/health", "/metrics", "/v1/search?q=x"} {
		if rr := do(t, h, http.MethodGet, path, nil); rr.Code != http.StatusOK {
			t.Errorf("%s: got %d, want 200", path, rr.Code)
		}
	}
}

func TestRouter_RequestIDHeader(t *testing.T) {
	h, _, _, _ := newTestRouter(t)
	rr := do(t, h, http.MethodGet, "/health", nil)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestRouter_NotFound(t *testing.T) {
	h, _, _, _ := newTestRouter(t)
	rr := do(t, h, http.MethodGet, "/v2/nothing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d", rr.Code)
	}
}

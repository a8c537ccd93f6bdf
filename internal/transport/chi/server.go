// Package chi exposes the search, indexing and health use cases over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/Earthondev/hanaihang/internal/domain"
	dombatch "github.com/Earthondev/hanaihang/internal/domain/batch"
	"github.com/Earthondev/hanaihang/internal/domain/geo"
	"github.com/Earthondev/hanaihang/internal/domain/search/request"
	"github.com/Earthondev/hanaihang/internal/domain/search/result"
	"github.com/Earthondev/hanaihang/internal/domain/search/scope"
	healthuc "github.com/Earthondev/hanaihang/internal/usecase/health"
	indexinguc "github.com/Earthondev/hanaihang/internal/usecase/indexing"
	searchuc "github.com/Earthondev/hanaihang/internal/usecase/search"
)

// maxImportBytes caps the fixture body accepted by POST /v1/import.
const maxImportBytes = 8 << 20

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchParams are the query parameters of GET /v1/search.
type SearchParams struct {
	Q     *string  `form:"q"`
	Lat   *float64 `form:"lat"`
	Lng   *float64 `form:"lng"`
	Limit *int     `form:"limit"`
	Scope *string  `form:"scope"`
}

// SearchResponse is the body of GET /v1/search.
type SearchResponse struct {
	Items []result.Result `json:"items"`
	Stage searchuc.Stage  `json:"stage"`
}

// InvalidateResponse is the body of DELETE /v1/cache.
type InvalidateResponse struct {
	Prefix  string `json:"prefix"`
	Removed int    `json:"removed"`
}

// ImportItem is the per-document outcome of POST /v1/import.
type ImportItem struct {
	Path   string              `json:"path"`
	Status dombatch.ItemStatus `json:"status"`
	Error  *ErrorResponse      `json:"error,omitempty"`
}

// ImportResponse is the body of POST /v1/import.
type ImportResponse struct {
	Items []ImportItem `json:"items"`
	dombatch.Summary
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// Searcher runs unified searches and drops cached results.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) searchuc.Response
	Invalidate(ctx context.Context, prefix string) int
}

// Indexer rewrites catalog documents.
type Indexer interface {
	Reindex(ctx context.Context) (indexinguc.Report, error)
	Import(ctx context.Context, r io.Reader) ([]dombatch.Result, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	search   Searcher
	indexing Indexer
	health   HealthChecker
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, indexing Indexer, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		search:   search,
		indexing: indexing,
		health:   health,
		logger:   logger,
	}
}

// Search handles GET /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	req, err := searchRequestFromParams(params)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := s.search.Search(r.Context(), &req)
	items := resp.Results
	if items == nil {
		items = []result.Result{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Items: items, Stage: resp.Stage})
}

// InvalidateCache handles DELETE /v1/cache.
func (s *Server) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var prefix *string
	if err := runtime.BindQueryParameter("form", true, false, "prefix", r.URL.Query(), &prefix); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid prefix parameter")
		return
	}

	p := searchuc.CachePrefix
	if prefix != nil && *prefix != "" {
		p = *prefix
	}
	n := s.search.Invalidate(r.Context(), p)
	writeJSON(w, http.StatusOK, InvalidateResponse{Prefix: p, Removed: n})
}

// Reindex handles POST /v1/reindex.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	report, err := s.indexing.Reindex(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Import handles POST /v1/import. The body is a YAML or JSON fixture.
func (s *Server) Import(w http.ResponseWriter, r *http.Request) {
	results, err := s.indexing.Import(r.Context(), http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]ImportItem, len(results))
	for i, res := range results {
		items[i] = importItemFromResult(res)
	}
	writeJSON(w, http.StatusOK, ImportResponse{Items: items, Summary: dombatch.Summarize(results)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: report.Status, Checks: report.Checks})
}

func bindSearchParams(r *http.Request) (SearchParams, error) {
	var p SearchParams
	q := r.URL.Query()
	binds := []struct {
		name string
		dest any
	}{
		{"q", &p.Q},
		{"lat", &p.Lat},
		{"lng", &p.Lng},
		{"limit", &p.Limit},
		{"scope", &p.Scope},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return SearchParams{}, errors.New("invalid " + b.name + " parameter")
		}
	}
	return p, nil
}

func searchRequestFromParams(p SearchParams) (request.Request, error) {
	var origin *geo.Point
	switch {
	case p.Lat != nil && p.Lng != nil:
		origin = &geo.Point{Lat: *p.Lat, Lng: *p.Lng}
	case p.Lat != nil || p.Lng != nil:
		return request.Request{}, fmt.Errorf("%w: lat and lng must be given together", domain.ErrInvalidOrigin)
	}

	var sc scope.Scope
	if p.Scope != nil {
		sc = scope.Scope(*p.Scope)
	}

	return request.New(deref(p.Q), origin, deref(p.Limit), sc)
}

func importItemFromResult(r dombatch.Result) ImportItem {
	item := ImportItem{Path: r.Path(), Status: r.Status()}
	if r.Err() != nil {
		code := CodeInternalError
		if isValidationError(r.Err()) {
			code = CodeValidationFailed
		}
		item.Error = &ErrorResponse{Code: code, Message: safeDomainMessage(r.Err())}
	}
	return item
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// validationErrors are caller mistakes; their messages carry no internals.
var validationErrors = []error{
	domain.ErrInvalidQuery,
	domain.ErrInvalidOrigin,
	domain.ErrInvalidScope,
	domain.ErrInvalidDocument,
}

func isValidationError(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// safeDomainMessage returns an error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	if isValidationError(err) {
		return err.Error()
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	if isValidationError(err) {
		s.logger.Warn("domain error", zap.Error(err))
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

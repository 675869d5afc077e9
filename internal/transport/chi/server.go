package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/domain"
	cacheuc "github.com/kailas-cloud/paperdex/internal/usecase/cache"
	healthuc "github.com/kailas-cloud/paperdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/paperdex/internal/usecase/search"
)

// rateLimitRetryAfter is the retry hint handed to throttled clients, in seconds.
const rateLimitRetryAfter = 10

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the search API over HTTP.
type Server struct {
	search        *searchuc.Service
	cache         *cacheuc.Service
	health        *healthuc.Service
	boundPort     func() int
	env           string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. boundPort reports the port the
// listener actually bound to; it is read lazily so the server can be
// constructed before the listener exists.
func NewServer(
	search *searchuc.Service,
	cache *cacheuc.Service,
	health *healthuc.Service,
	boundPort func() int,
	env string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:    search,
		cache:     cache,
		health:    health,
		boundPort: boundPort,
		env:       env,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		rateLimitedHandler,
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidSource, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrNoResults, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrCacheUnavailable, http.StatusServiceUnavailable, ErrorCodeCacheUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeProviderError),
		sentinelHandler(domain.ErrSummaryProviderError, http.StatusBadGateway, ErrorCodeProviderError),
	}
	return s
}

// RegisterRoutes mounts the API handlers on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/search", s.SearchPapers)
	r.Get("/health", s.HealthCheck)
	r.Get("/cache-status", s.CacheStatus)
	r.Get("/metrics", s.Metrics)
}

// SearchPapers handles POST /search.
func (s *Server) SearchPapers(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.search.Search(r.Context(), req.Query, req.Source)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResultToResponse(result))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string)
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:      string(report.Status),
		Timestamp:   time.Now().UTC(),
		CacheStatus: string(report.CacheStatus),
		Port:        s.boundPort(),
		Checks:      checks,
	})
}

// CacheStatus handles GET /cache-status.
func (s *Server) CacheStatus(w http.ResponseWriter, r *http.Request) {
	status, count, collection, err := s.cache.Status(r.Context())
	if err != nil {
		s.logger.Warn("cache status probe failed", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, CacheStatusResponse{
		Status:          string(status),
		DocumentsStored: count,
		CollectionName:  collection,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrInvalidSource,
		domain.ErrNoResults,
		domain.ErrRateLimited,
		domain.ErrCacheUnavailable,
		domain.ErrEmbeddingProviderError,
		domain.ErrSummaryProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// rateLimitedHandler handles ErrRateLimited with a Retry-After header and retryAfter field.
func rateLimitedHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrRateLimited) {
		return false
	}
	w.Header().Set("Retry-After", strconv.Itoa(rateLimitRetryAfter))
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Code:       ErrorCodeRateLimited,
		Message:    msg,
		RetryAfter: rateLimitRetryAfter,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	resp := ErrorResponse{Code: ErrorCodeInternalError, Message: "internal error"}
	if s.env != "prod" {
		resp.Details = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

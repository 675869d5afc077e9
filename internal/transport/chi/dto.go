package chi

import (
	"time"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

// ErrorCode is the machine-readable error class in error payloads.
type ErrorCode string

const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeNotFound         ErrorCode = "not_found"
	ErrorCodeRateLimited      ErrorCode = "rate_limited"
	ErrorCodeCacheUnavailable ErrorCode = "cache_unavailable"
	ErrorCodeProviderError    ErrorCode = "provider_error"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	Trace      string    `json:"trace,omitempty"`
	RetryAfter int       `json:"retryAfter,omitempty"`
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query  string `json:"query"`
	Source string `json:"source,omitempty"`
}

// PaperDTO is the wire form of a paper.
type PaperDTO struct {
	Title          string     `json:"title"`
	Authors        []string   `json:"authors,omitempty"`
	Abstract       string     `json:"abstract,omitempty"`
	Summary        string     `json:"summary,omitempty"`
	Link           string     `json:"link,omitempty"`
	Source         string     `json:"source"`
	Published      *time.Time `json:"published,omitempty"`
	RelevanceScore float64    `json:"relevanceScore,omitempty"`
}

// SearchResponse is the POST /search success payload.
type SearchResponse struct {
	Papers       []PaperDTO `json:"papers"`
	Summaries    []string   `json:"summaries"`
	Total        int        `json:"total"`
	FromCache    int        `json:"fromCache"`
	NewlyFetched int        `json:"newlyFetched"`
	CacheStatus  string     `json:"cacheStatus"`
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	CacheStatus string            `json:"cacheStatus"`
	Port        int               `json:"port"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// CacheStatusResponse is the GET /cache-status payload.
type CacheStatusResponse struct {
	Status          string `json:"status"`
	DocumentsStored int    `json:"documentsStored"`
	CollectionName  string `json:"collectionName"`
}

func paperToDTO(p domain.Paper) PaperDTO {
	dto := PaperDTO{
		Title:          p.Title,
		Authors:        p.Authors,
		Abstract:       p.Abstract,
		Summary:        p.Summary,
		Link:           p.Link,
		Source:         string(p.Source),
		RelevanceScore: p.RelevanceScore,
	}
	if !p.Published.IsZero() {
		t := p.Published
		dto.Published = &t
	}
	return dto
}

func searchResultToResponse(res domain.SearchResult) SearchResponse {
	papers := make([]PaperDTO, len(res.Papers))
	for i, p := range res.Papers {
		papers[i] = paperToDTO(p)
	}
	summaries := res.Summaries
	if summaries == nil {
		summaries = []string{}
	}
	return SearchResponse{
		Papers:       papers,
		Summaries:    summaries,
		Total:        res.Total(),
		FromCache:    res.FromCache,
		NewlyFetched: res.NewlyFetched,
		CacheStatus:  string(res.CacheStatus),
	}
}

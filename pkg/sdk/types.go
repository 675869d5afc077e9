package paperdex

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type searchRequest struct {
	Query  string `json:"query"`
	Source string `json:"source,omitempty"`
}

// Paper is a single result entry.
type Paper struct {
	Title          string     `json:"title"`
	Authors        []string   `json:"authors,omitempty"`
	Abstract       string     `json:"abstract,omitempty"`
	Summary        string     `json:"summary,omitempty"`
	Link           string     `json:"link,omitempty"`
	Source         string     `json:"source"`
	Published      *time.Time `json:"published,omitempty"`
	RelevanceScore float64    `json:"relevanceScore,omitempty"`
}

// SearchResult is the answer to one search request. Summaries[i]
// corresponds to Papers[i].
type SearchResult struct {
	Papers       []Paper  `json:"papers"`
	Summaries    []string `json:"summaries"`
	Total        int      `json:"total"`
	FromCache    int      `json:"fromCache"`
	NewlyFetched int      `json:"newlyFetched"`
	CacheStatus  string   `json:"cacheStatus"`
}

// HealthStatus is the service health report.
type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	CacheStatus string            `json:"cacheStatus"`
	Port        int               `json:"port"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// CacheStatus describes the vector cache state.
type CacheStatus struct {
	Status          string `json:"status"`
	DocumentsStored int    `json:"documentsStored"`
	CollectionName  string `json:"collectionName"`
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paperdex: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
		apiErr.Code = "unknown"
		apiErr.Message = resp.Status
	}
	return apiErr
}

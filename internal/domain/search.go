package domain

import "strings"

// Query length bounds enforced before any external call is made.
const (
	MinQueryLen = 2
	MaxQueryLen = 200
)

// SearchQuery is a validated search request.
type SearchQuery struct {
	Text   string
	Source Source
}

// NewSearchQuery trims and validates the raw query text and source filter.
func NewSearchQuery(text, source string) (SearchQuery, error) {
	text = strings.TrimSpace(text)
	if len(text) < MinQueryLen || len(text) > MaxQueryLen {
		return SearchQuery{}, ErrInvalidQuery
	}
	src, err := ParseSource(source)
	if err != nil {
		return SearchQuery{}, err
	}
	return SearchQuery{Text: text, Source: src}, nil
}

// CacheStatus describes whether the vector cache participated in a response.
type CacheStatus string

const (
	// CacheActive means lookup and insert were attempted against a reachable store.
	CacheActive CacheStatus = "active"
	// CacheDegraded means the store (or embedding) failed and the request
	// proceeded without it.
	CacheDegraded CacheStatus = "degraded"
)

// SearchResult is the assembled answer for one search request.
// Summaries[i] always corresponds to Papers[i]; the pairing survives
// de-duplication and concatenation.
type SearchResult struct {
	Papers       []Paper
	Summaries    []string
	FromCache    int
	NewlyFetched int
	CacheStatus  CacheStatus
}

// Total is the combined paper count.
func (r SearchResult) Total() int { return len(r.Papers) }

package domain

import "errors"

var (
	// ErrInvalidQuery signals a query outside the 2..200 char bounds.
	ErrInvalidQuery = errors.New("query must be between 2 and 200 characters")
	// ErrInvalidSource signals an unknown source filter.
	ErrInvalidSource = errors.New("source must be one of: all, arxiv, pubmed")
	// ErrNoResults signals that no papers could be found anywhere.
	ErrNoResults = errors.New("no papers found")
	// ErrRateLimited signals a per-client request ceiling hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrCacheUnavailable signals that the vector store cannot be reached.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrSummaryProviderError signals a chat-completion provider failure.
	ErrSummaryProviderError = errors.New("summary provider error")
)

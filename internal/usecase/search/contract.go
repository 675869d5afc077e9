package search

import (
	"context"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

// Cache is the best-effort vector cache.
type Cache interface {
	Lookup(ctx context.Context, q domain.SearchQuery) domain.Outcome[[]domain.Paper]
	Insert(ctx context.Context, papers []domain.Paper) domain.DegradedReason
}

// Fetcher queries the upstream paper catalogs.
type Fetcher interface {
	Fetch(ctx context.Context, q domain.SearchQuery) domain.Outcome[[]domain.Paper]
}

// Summarizer produces one summary per paper, in input order.
type Summarizer interface {
	SummarizeAll(ctx context.Context, papers []domain.Paper) []string
}

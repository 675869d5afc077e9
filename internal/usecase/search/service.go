// Package search orchestrates one search request: cache lookup and fresh
// fetch in parallel, de-duplication, summarization, and a best-effort
// cache write-back.
package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

// Service is the search orchestrator.
type Service struct {
	cache  Cache
	fetch  Fetcher
	summ   Summarizer
	logger *zap.Logger
}

// New creates a search service.
func New(cache Cache, fetch Fetcher, summ Summarizer, logger *zap.Logger) *Service {
	return &Service{cache: cache, fetch: fetch, summ: summ, logger: logger}
}

// Search runs the full pipeline for a raw query and source filter.
//
// Cache hits come first in the result, then newly fetched papers;
// Summaries[i] pairs with Papers[i] throughout. ErrNoResults is returned
// only when nothing was found AND the cache could not participate; an
// empty result with a healthy cache is a valid answer.
func (s *Service) Search(ctx context.Context, rawQuery, rawSource string) (domain.SearchResult, error) {
	q, err := domain.NewSearchQuery(rawQuery, rawSource)
	if err != nil {
		return domain.SearchResult{}, err
	}

	var lookupOut, fetchOut domain.Outcome[[]domain.Paper]
	done := make(chan struct{})
	go func() {
		defer close(done)
		lookupOut = s.cache.Lookup(ctx, q)
	}()
	fetchOut = s.fetch.Fetch(ctx, q)
	<-done

	cached := lookupOut.Value
	fresh := dedup(fetchOut.Value, cached)

	var freshSummaries []string
	if len(fresh) > 0 {
		freshSummaries = s.summ.SummarizeAll(ctx, fresh)
		for i := range fresh {
			fresh[i].Summary = freshSummaries[i]
		}
	}

	insertReason := domain.DegradedNone
	if len(fresh) > 0 {
		insertReason = s.cache.Insert(ctx, fresh)
	}

	result := assemble(cached, fresh, freshSummaries)
	result.CacheStatus = cacheStatus(lookupOut.Reason, insertReason)

	if result.Total() == 0 && result.CacheStatus == domain.CacheDegraded {
		return domain.SearchResult{}, domain.ErrNoResults
	}

	s.logger.Debug("Search completed",
		zap.String("query", q.Text),
		zap.String("source", string(q.Source)),
		zap.Int("from_cache", result.FromCache),
		zap.Int("newly_fetched", result.NewlyFetched),
		zap.String("cache_status", string(result.CacheStatus)))

	return result, nil
}

// dedup drops fetched papers whose normalized title already appeared in
// the cache hits or earlier in the fetched list itself. Title equality
// is the whole identity check; differently-worded titles for the same
// paper slip through.
func dedup(fetched, cached []domain.Paper) []domain.Paper {
	seen := make(map[string]bool, len(cached)+len(fetched))
	for _, p := range cached {
		seen[domain.NormalizeTitle(p.Title)] = true
	}

	var out []domain.Paper
	for _, p := range fetched {
		key := domain.NormalizeTitle(p.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// assemble builds the final result with cache hits first. Cached papers
// carry their stored summaries; fresh ones use the just-generated slice.
func assemble(cached, fresh []domain.Paper, freshSummaries []string) domain.SearchResult {
	papers := make([]domain.Paper, 0, len(cached)+len(fresh))
	summaries := make([]string, 0, len(cached)+len(fresh))

	for _, p := range cached {
		papers = append(papers, p)
		summaries = append(summaries, p.Summary)
	}
	for i, p := range fresh {
		papers = append(papers, p)
		summaries = append(summaries, freshSummaries[i])
	}

	return domain.SearchResult{
		Papers:       papers,
		Summaries:    summaries,
		FromCache:    len(cached),
		NewlyFetched: len(fresh),
	}
}

func cacheStatus(lookupReason, insertReason domain.DegradedReason) domain.CacheStatus {
	if lookupReason != domain.DegradedNone || insertReason == domain.DegradedStore {
		return domain.CacheDegraded
	}
	return domain.CacheActive
}

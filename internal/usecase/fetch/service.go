// Package fetch queries the upstream paper catalogs concurrently. A
// failed catalog never fails the fetch; it only marks the outcome degraded.
package fetch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/metrics"
)

// Service fans a query out to the registered catalogs.
type Service struct {
	sources []Source
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a fetch service. Results are returned in registration
// order, so the source slice ordering is part of the contract.
func New(sources []Source, timeout time.Duration, logger *zap.Logger) *Service {
	return &Service{sources: sources, timeout: timeout, logger: logger}
}

// Fetch queries every catalog matching the query's source filter in
// parallel, each under its own timeout. Papers arrive grouped by catalog
// in registration order. A catalog error or timeout drops that catalog's
// papers and marks the outcome degraded.
func (s *Service) Fetch(ctx context.Context, q domain.SearchQuery) domain.Outcome[[]domain.Paper] {
	selected := s.selectSources(q.Source)
	if len(selected) == 0 {
		return domain.Ok[[]domain.Paper](nil)
	}

	perSource := make([][]domain.Paper, len(selected))
	errored := make([]bool, len(selected))

	var wg sync.WaitGroup
	for i, src := range selected {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			perSource[i], errored[i] = s.fetchOne(ctx, src, q.Text)
		}(i, src)
	}
	wg.Wait()

	var papers []domain.Paper
	degraded := false
	for i := range selected {
		papers = append(papers, perSource[i]...)
		degraded = degraded || errored[i]
	}

	out := domain.Ok(papers)
	if degraded {
		out.Reason = domain.DegradedSource
	}
	return out
}

func (s *Service) fetchOne(ctx context.Context, src Source, query string) ([]domain.Paper, bool) {
	name := string(src.Source())

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	papers, err := src.Search(callCtx, query)
	duration := time.Since(start)

	metrics.SourceFetchDuration.WithLabelValues(name).Observe(duration.Seconds())

	if err != nil {
		metrics.SourceFetchTotal.WithLabelValues(name, "error").Inc()
		s.logger.Warn("Source fetch failed",
			zap.String("source", name),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, true
	}

	metrics.SourceFetchTotal.WithLabelValues(name, "success").Inc()
	return papers, false
}

func (s *Service) selectSources(filter domain.Source) []Source {
	if filter == domain.SourceAll {
		return s.sources
	}
	var selected []Source
	for _, src := range s.sources {
		if src.Source() == filter {
			selected = append(selected, src)
		}
	}
	return selected
}

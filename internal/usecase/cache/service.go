// Package cache is the best-effort layer between the orchestrator and the
// vector store. Every operation here degrades instead of failing: a dead
// store or embedding provider costs cache acceleration, never the request.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/metrics"
)

// defaultTimeout bounds a single store or embedding call.
const defaultTimeout = 10 * time.Second

// Service wraps the paper repository with fail-soft semantics.
type Service struct {
	repo       Repository // nil when no store is configured
	embed      Embedder
	dimensions int
	lookupK    int
	collection string
	timeout    time.Duration
	logger     *zap.Logger

	mu         sync.Mutex
	indexReady bool
}

// Config holds cache service settings.
type Config struct {
	Repo       Repository
	Embedder   Embedder
	Dimensions int
	LookupK    int
	Collection string
	Timeout    time.Duration // per external call, defaults to 10s
	Logger     *zap.Logger
}

// New creates a cache service. cfg.Repo may be nil, which pins the
// cache to permanently degraded.
func New(cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Service{
		repo:       cfg.Repo,
		embed:      cfg.Embedder,
		dimensions: cfg.Dimensions,
		lookupK:    cfg.LookupK,
		collection: cfg.Collection,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

// callCtx derives the deadline for one external call. A hung store or
// provider costs at most the timeout, never the whole request.
func (s *Service) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Lookup embeds the query text and KNN-searches the cache. Hits arrive
// ordered by descending similarity with RelevanceScore set. Any failure
// returns an empty degraded outcome.
func (s *Service) Lookup(ctx context.Context, q domain.SearchQuery) domain.Outcome[[]domain.Paper] {
	if s.repo == nil {
		metrics.CacheLookupTotal.WithLabelValues("degraded").Inc()
		return domain.DegradedOutcome[[]domain.Paper](domain.DegradedStore)
	}

	embCtx, cancel := s.callCtx(ctx)
	emb, err := s.embed.Embed(embCtx, q.Text)
	cancel()
	if err != nil {
		metrics.CacheLookupTotal.WithLabelValues("degraded").Inc()
		s.logger.Warn("Cache lookup skipped, query embedding failed", zap.Error(err))
		return domain.DegradedOutcome[[]domain.Paper](domain.DegradedEmbedding)
	}

	lookupCtx, cancel := s.callCtx(ctx)
	papers, err := s.repo.Lookup(lookupCtx, emb.Embedding, q.Source, s.lookupK)
	cancel()
	if err != nil {
		metrics.CacheLookupTotal.WithLabelValues("degraded").Inc()
		s.logger.Warn("Cache lookup failed", zap.Error(err))
		return domain.DegradedOutcome[[]domain.Paper](domain.DegradedStore)
	}

	if len(papers) == 0 {
		metrics.CacheLookupTotal.WithLabelValues("miss").Inc()
	} else {
		metrics.CacheLookupTotal.WithLabelValues("hit").Inc()
	}
	return domain.Ok(papers)
}

// Insert embeds each paper's summary and upserts the batch. Papers whose
// embedding fails are skipped individually; a store failure drops the
// whole batch. Either way the caller only learns the degradation reason.
func (s *Service) Insert(ctx context.Context, papers []domain.Paper) domain.DegradedReason {
	if s.repo == nil || len(papers) == 0 {
		if s.repo == nil {
			return domain.DegradedStore
		}
		return domain.DegradedNone
	}

	if err := s.ensureIndex(ctx); err != nil {
		s.logger.Warn("Cache insert skipped, index unavailable", zap.Error(err))
		return domain.DegradedStore
	}

	kept, vectors, reason := s.embedSummaries(ctx, papers)
	if len(kept) == 0 {
		return reason
	}

	insertCtx, cancel := s.callCtx(ctx)
	defer cancel()
	if err := s.repo.Insert(insertCtx, kept, vectors); err != nil {
		s.logger.Warn("Cache insert failed", zap.Int("papers", len(kept)), zap.Error(err))
		return domain.DegradedStore
	}
	return reason
}

// Status reports connectivity and document count for the status endpoint.
func (s *Service) Status(ctx context.Context) (domain.CacheStatus, int, string, error) {
	if s.repo == nil {
		return domain.CacheDegraded, 0, s.collection, domain.ErrCacheUnavailable
	}
	pingCtx, cancel := s.callCtx(ctx)
	defer cancel()
	if err := s.repo.Ping(pingCtx); err != nil {
		return domain.CacheDegraded, 0, s.collection, fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
	}

	countCtx, cancelCount := s.callCtx(ctx)
	defer cancelCount()
	count, err := s.repo.Count(countCtx)
	if err != nil {
		// A reachable store without the index yet is still active, just empty.
		s.logger.Debug("Cache count failed", zap.Error(err))
		return domain.CacheActive, 0, s.collection, nil
	}
	return domain.CacheActive, count, s.collection, nil
}

// embedSummaries embeds via the batch path first and falls back to
// per-item calls so one bad input cannot sink the whole batch.
func (s *Service) embedSummaries(ctx context.Context, papers []domain.Paper) ([]domain.Paper, [][]float32, domain.DegradedReason) {
	texts := make([]string, len(papers))
	for i, p := range papers {
		texts[i] = embedText(p)
	}

	if be, ok := s.embed.(domain.BatchEmbedder); ok {
		batchCtx, cancel := s.callCtx(ctx)
		res, err := be.BatchEmbed(batchCtx, texts)
		cancel()
		if err == nil && len(res.Embeddings) == len(papers) {
			return papers, res.Embeddings, domain.DegradedNone
		}
		if err != nil {
			s.logger.Warn("Batch embedding failed, retrying per paper", zap.Error(err))
		}
	}

	var kept []domain.Paper
	var vectors [][]float32
	reason := domain.DegradedNone
	for i, p := range papers {
		embCtx, cancel := s.callCtx(ctx)
		emb, err := s.embed.Embed(embCtx, texts[i])
		cancel()
		if err != nil {
			reason = domain.DegradedEmbedding
			s.logger.Warn("Skipping paper, embedding failed",
				zap.String("title", p.Title), zap.Error(err))
			continue
		}
		kept = append(kept, p)
		vectors = append(vectors, emb.Embedding)
	}
	return kept, vectors, reason
}

// ensureIndex creates the index on first use. A failed attempt retries
// on the next insert rather than wedging the cache permanently.
func (s *Service) ensureIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexReady {
		return nil
	}
	idxCtx, cancel := s.callCtx(ctx)
	defer cancel()
	if err := s.repo.EnsureIndex(idxCtx, s.dimensions); err != nil {
		return err
	}
	s.indexReady = true
	return nil
}

// embedText is the text a paper is indexed under. Lookup embeds the raw
// query, so title plus summary gives the closest comparable surface.
func embedText(p domain.Paper) string {
	if p.Summary != "" {
		return p.Title + "\n" + p.Summary
	}
	return p.Title
}

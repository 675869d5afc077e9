package cache

import (
	"context"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

// Repository persists and searches summarized papers.
type Repository interface {
	Ping(ctx context.Context) error
	EnsureIndex(ctx context.Context, dimensions int) error
	Insert(ctx context.Context, papers []domain.Paper, vectors [][]float32) error
	Lookup(ctx context.Context, vector []float32, source domain.Source, k int) ([]domain.Paper, error)
	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

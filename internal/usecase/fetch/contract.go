package fetch

import (
	"context"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

// Source fetches papers from one upstream catalog.
type Source interface {
	Source() domain.Source
	Search(ctx context.Context, query string) ([]domain.Paper, error)
}

package ports

import (
	"context"
	"io"

	"github.com/styleseek/fashion-recommender/internal/core/domain"
)

// Recommender is the inbound contract for one recommendation pass.
type Recommender interface {
	Recommend(ctx context.Context, query string) (*domain.Recommendation, error)
}

// CatalogIngestor imports a catalog file and schedules indexing.
type CatalogIngestor interface {
	Import(ctx context.Context, filename string, body io.Reader) (int, error)
}

// ProductIndexer is the inbound contract for asynchronous product indexing.
type ProductIndexer interface {
	IndexByID(ctx context.Context, productID string) error
}

package ports

import (
	"context"

	"github.com/styleseek/fashion-recommender/internal/core/domain"
)

// TopicClassifier grades whether a query belongs to the served domain.
type TopicClassifier interface {
	Classify(ctx context.Context, query string) (domain.TopicVerdict, error)
	ClassifyHeuristic(ctx context.Context, query string) (bool, error)
}

// QueryConstructor translates a natural-language query into a semantic
// search string plus an optional structured filter.
type QueryConstructor interface {
	Construct(ctx context.Context, query string) (domain.StructuredQuery, error)
}

// ProductSearcher executes a structured query against the dense index.
// Results are ordered by similarity, descending, ties stable.
type ProductSearcher interface {
	Search(ctx context.Context, query domain.StructuredQuery, vector []float32, limit int) ([]domain.Product, error)
}

// Reranker is the secondary full-catalog candidate source used only to
// top up an insufficient result set.
type Reranker interface {
	Rerank(ctx context.Context, query string, limit int) ([]domain.Product, error)
}

// Embedder builds vectors for product content and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// RecommendationGenerator creates the final user-facing text. It must not
// reorder or drop items from the supplied product list.
type RecommendationGenerator interface {
	GenerateRecommendation(ctx context.Context, query string, products []domain.Product) (string, error)
	GenerateSmallTalk(ctx context.Context, query string) (string, error)
}

// ProductRepository persists and reads catalog products.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, limit, offset int) ([]domain.Product, error)
}

// ProductWriter upserts products into the dense and sparse indexes.
type ProductWriter interface {
	IndexProduct(ctx context.Context, p *domain.Product, vector []float32) error
}

// MessageQueue publishes/consumes product index requests.
type MessageQueue interface {
	PublishIndexRequested(ctx context.Context, productID string) error
	SubscribeIndexRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// CatalogReader parses a raw catalog file into products.
type CatalogReader interface {
	Read(filename string, data []byte) ([]domain.Product, error)
}

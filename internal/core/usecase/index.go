package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/styleseek/fashion-recommender/internal/core/domain"
	"github.com/styleseek/fashion-recommender/internal/core/ports"
)

// IndexProductUseCase embeds one catalog product and upserts it into the
// dense and sparse indexes the serving pipeline queries.
type IndexProductUseCase struct {
	repo     ports.ProductRepository
	embedder ports.Embedder
	writer   ports.ProductWriter
}

func NewIndexProductUseCase(
	repo ports.ProductRepository,
	embedder ports.Embedder,
	writer ports.ProductWriter,
) *IndexProductUseCase {
	return &IndexProductUseCase{
		repo:     repo,
		embedder: embedder,
		writer:   writer,
	}
}

func (uc *IndexProductUseCase) IndexByID(ctx context.Context, productID string) error {
	p, err := uc.repo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("fetch product by id: %w", err)
	}
	if p.Content == "" {
		return domain.WrapError(domain.ErrInvalidInput, "index product", errors.New("empty product content"))
	}

	vector, err := uc.embedder.EmbedQuery(ctx, p.Content)
	if err != nil {
		return fmt.Errorf("embed product content: %w", err)
	}

	if err := uc.writer.IndexProduct(ctx, p, vector); err != nil {
		return fmt.Errorf("index product: %w", err)
	}
	return nil
}

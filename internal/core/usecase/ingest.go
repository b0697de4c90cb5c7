package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/styleseek/fashion-recommender/internal/core/ports"
)

// IngestCatalogUseCase imports a catalog file into the product store and
// schedules every imported product for indexing.
type IngestCatalogUseCase struct {
	reader ports.CatalogReader
	repo   ports.ProductRepository
	queue  ports.MessageQueue
}

func NewIngestCatalogUseCase(
	reader ports.CatalogReader,
	repo ports.ProductRepository,
	queue ports.MessageQueue,
) *IngestCatalogUseCase {
	return &IngestCatalogUseCase{
		reader: reader,
		repo:   repo,
		queue:  queue,
	}
}

func (uc *IngestCatalogUseCase) Import(ctx context.Context, filename string, body io.Reader) (int, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return 0, fmt.Errorf("read catalog file: %w", err)
	}

	products, err := uc.reader.Read(filename, data)
	if err != nil {
		return 0, fmt.Errorf("parse catalog file: %w", err)
	}

	imported := 0
	for i := range products {
		p := products[i]
		if err := uc.repo.Create(ctx, &p); err != nil {
			return imported, fmt.Errorf("store product %s: %w", p.ID, err)
		}
		if err := uc.queue.PublishIndexRequested(ctx, p.ID); err != nil {
			return imported, fmt.Errorf("publish index request for %s: %w", p.ID, err)
		}
		imported++
	}
	return imported, nil
}

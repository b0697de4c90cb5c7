package qdrant

import (
	"context"

	"github.com/styleseek/fashion-recommender/internal/core/domain"
)

// Writer fans one product out to both collections: the dense embedding
// index and the sparse keyword index.
type Writer struct {
	dense   *Client
	lexical *LexicalClient
}

func NewWriter(dense *Client, lexical *LexicalClient) *Writer {
	return &Writer{dense: dense, lexical: lexical}
}

func (w *Writer) IndexProduct(ctx context.Context, p *domain.Product, vector []float32) error {
	if err := w.dense.UpsertProduct(ctx, p, vector); err != nil {
		return err
	}
	return w.lexical.UpsertProduct(ctx, p)
}

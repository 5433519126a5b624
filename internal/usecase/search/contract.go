package search

import (
	"context"

	"github.com/kailas-cloud/cityvec/internal/domain"
)

// Embedder vectorizes the query text with the corpus model.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

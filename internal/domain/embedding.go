package domain

import (
	"context"
	"fmt"
	"strings"
)

// EmbeddingTablePrefix tags every persisted corpus-embedding table.
const EmbeddingTablePrefix = "ce_"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// BatchFallback calls Embed once per text, for providers without a native batch endpoint.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int

	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		embeddings[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

// EmbeddingRow is the vector of the catalog entry with the same ID.
type EmbeddingRow struct {
	ID     int64
	Vector []float32
}

// EmbeddingTable is the persisted corpus index of one model.
type EmbeddingTable struct {
	Name string
	Rows []EmbeddingRow
}

// Len returns the number of corpus vectors.
func (t *EmbeddingTable) Len() int { return len(t.Rows) }

// Dimensions returns the vector length, 0 for an empty table.
func (t *EmbeddingTable) Dimensions() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0].Vector)
}

// EmbeddingTableName derives the cache table name for a model identifier:
// "dima-does-code/LaBSE-geonames-15K" -> "ce_labse_geonames_15k".
func EmbeddingTableName(modelID string) string {
	suffix := modelID
	if i := strings.LastIndex(suffix, "/"); i >= 0 {
		suffix = suffix[i+1:]
	}
	suffix = strings.ToLower(strings.ReplaceAll(suffix, "-", "_"))
	return EmbeddingTablePrefix + suffix
}

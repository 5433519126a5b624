// Package search ranks catalog cities by cosine similarity to a free-text query.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/domain"
	"github.com/kailas-cloud/cityvec/internal/domain/search/result"
	"github.com/kailas-cloud/cityvec/internal/metrics"
)

// OpQuery names the query in logs and errors.
const OpQuery = "query"

type corpusItem struct {
	entry  *domain.CatalogEntry
	vector []float32
	norm   float64
}

// Engine is an immutable in-memory index; safe for concurrent queries.
type Engine struct {
	items  []corpusItem
	dim    int
	embed  Embedder
	logger *zap.Logger
}

// New joins embedding rows to catalog entries by ID, in embedding row order.
// Every row must reference an existing entry.
func New(
	catalog []domain.CatalogEntry, embeddings domain.EmbeddingTable, embed Embedder, logger *zap.Logger,
) (*Engine, error) {
	byID := make(map[int64]*domain.CatalogEntry, len(catalog))
	for i := range catalog {
		byID[catalog[i].ID] = &catalog[i]
	}

	dim := embeddings.Dimensions()
	items := make([]corpusItem, 0, embeddings.Len())
	for _, row := range embeddings.Rows {
		entry, ok := byID[row.ID]
		if !ok {
			return nil, fmt.Errorf("%w: embedding row %d has no catalog entry", domain.ErrBuild, row.ID)
		}
		if len(row.Vector) != dim {
			return nil, fmt.Errorf("%w: embedding row %d has %d dimensions, want %d",
				domain.ErrBuild, row.ID, len(row.Vector), dim)
		}
		items = append(items, corpusItem{entry: entry, vector: row.Vector, norm: norm(row.Vector)})
	}

	return &Engine{items: items, dim: dim, embed: embed, logger: logger}, nil
}

// Len returns the corpus size.
func (e *Engine) Len() int { return len(e.items) }

// Dimensions returns the corpus vector length.
func (e *Engine) Dimensions() int { return e.dim }

type hit struct {
	idx   int
	score float64
}

// Query returns up to topK matches by descending similarity. Equal scores keep corpus
// order. topK above the corpus size returns the whole corpus.
func (e *Engine) Query(ctx context.Context, text string, topK int) ([]result.Match, error) {
	start := time.Now()
	matches, err := e.query(ctx, text, topK)

	status := "ok"
	if err != nil {
		status = "error"
		e.logger.Warn("Query failed", zap.String("op", OpQuery), zap.String("text", text),
			zap.Int("top_k", topK), zap.Error(err))
	}
	metrics.QueryDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	return matches, domain.WrapOp(OpQuery, err)
}

func (e *Engine) query(ctx context.Context, text string, topK int) ([]result.Match, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty query text", domain.ErrInvalidQuery)
	}
	if topK < 1 {
		return nil, fmt.Errorf("%w: top_k must be >= 1, got %d", domain.ErrInvalidQuery, topK)
	}
	if len(e.items) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	res, err := e.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %w", domain.ErrModel, err)
	}
	if len(res.Embedding) != e.dim {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, corpus has %d",
			domain.ErrModel, len(res.Embedding), e.dim)
	}

	q := res.Embedding
	qNorm := norm(q)
	hits := make([]hit, len(e.items))
	for i, it := range e.items {
		hits[i] = hit{idx: i, score: cosine(q, qNorm, it.vector, it.norm)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	hits = hits[:min(topK, len(hits))]

	matches := make([]result.Match, len(hits))
	for i, h := range hits {
		matches[i] = result.FromEntry(e.items[h.idx].entry, h.score)
	}
	return matches, nil
}

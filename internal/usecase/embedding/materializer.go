// Package embedding encodes the catalog into the per-model embedding table.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/db"
	"github.com/kailas-cloud/cityvec/internal/domain"
	"github.com/kailas-cloud/cityvec/internal/repository/geonames"
	"github.com/kailas-cloud/cityvec/internal/repository/tables"
)

// OpBuild names the embedding build in logs and errors.
const OpBuild = "build_embeddings"

// Materializer builds and caches the ce_<model> table.
type Materializer struct {
	embed  domain.BatchEmbedder
	memo   *tables.Memo
	table  string
	logger *zap.Logger
}

// NewMaterializer creates a materializer for modelID.
func NewMaterializer(embed domain.BatchEmbedder, memo *tables.Memo, modelID string, logger *zap.Logger) *Materializer {
	return &Materializer{
		embed:  embed,
		memo:   memo,
		table:  domain.EmbeddingTableName(modelID),
		logger: logger,
	}
}

// Table returns the name of the embedding table.
func (m *Materializer) Table() string { return m.table }

// Cached returns the persisted embedding table. found is false when it does not exist.
func (m *Materializer) Cached(ctx context.Context) (_ domain.EmbeddingTable, found bool, _ error) {
	rows, found, err := tables.Get(ctx, m.memo, m.table, geonames.Embeddings)
	if err != nil {
		return domain.EmbeddingTable{}, false, domain.WrapOp(OpBuild, err)
	}
	return domain.EmbeddingTable{Name: m.table, Rows: rows}, found, nil
}

// Encode encodes every catalog name without persisting; see Stage.
func (m *Materializer) Encode(
	ctx context.Context, catalog []domain.CatalogEntry,
) (domain.EmbeddingTable, error) {
	rows, err := m.encode(ctx, catalog)
	if err != nil {
		return domain.EmbeddingTable{}, domain.WrapOp(OpBuild, err)
	}
	return domain.EmbeddingTable{Name: m.table, Rows: rows}, nil
}

// Stage encodes tbl for a joint commit with the catalog it was built from.
func (m *Materializer) Stage(tbl domain.EmbeddingTable) db.TableWrite {
	return tables.Stage(m.table, geonames.Embeddings, tbl.Rows)
}

// Materialize encodes every catalog name and replaces the embedding table alone.
// Use it only when the persisted catalog is the one being encoded.
func (m *Materializer) Materialize(
	ctx context.Context, catalog []domain.CatalogEntry,
) (domain.EmbeddingTable, error) {
	tbl, err := m.Encode(ctx, catalog)
	if err != nil {
		return domain.EmbeddingTable{}, err
	}
	if err := tables.Put(ctx, m.memo, m.table, geonames.Embeddings, tbl.Rows); err != nil {
		m.logger.Error("Embedding persist failed", zap.String("op", OpBuild), zap.String("table", m.table), zap.Error(err))
		return domain.EmbeddingTable{}, domain.WrapOp(OpBuild, err)
	}
	return tbl, nil
}

// encode runs one batch call over all names in catalog order. Row i carries catalog[i].ID.
func (m *Materializer) encode(ctx context.Context, catalog []domain.CatalogEntry) ([]domain.EmbeddingRow, error) {
	if len(catalog) == 0 {
		return nil, fmt.Errorf("%w: empty catalog", domain.ErrBuild)
	}

	names := make([]string, len(catalog))
	for i, e := range catalog {
		names[i] = e.NameCity
	}

	res, err := m.embed.BatchEmbed(ctx, names)
	if err != nil {
		m.logger.Error("Corpus encoding failed", zap.String("op", OpBuild), zap.Int("texts", len(names)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrModel, err)
	}
	if len(res.Embeddings) != len(names) {
		m.logger.Error("Corpus encoding returned wrong count",
			zap.String("op", OpBuild), zap.Int("texts", len(names)), zap.Int("vectors", len(res.Embeddings)))
		return nil, fmt.Errorf("%w: got %d vectors for %d names", domain.ErrModel, len(res.Embeddings), len(names))
	}

	dim := len(res.Embeddings[0])
	rows := make([]domain.EmbeddingRow, len(catalog))
	for i, vec := range res.Embeddings {
		if len(vec) == 0 || len(vec) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", domain.ErrModel, i, len(vec), dim)
		}
		rows[i] = domain.EmbeddingRow{ID: catalog[i].ID, Vector: vec}
	}

	m.logger.Info("Corpus encoded",
		zap.String("op", OpBuild),
		zap.String("table", m.table),
		zap.Int("rows", len(rows)),
		zap.Int("dimensions", dim),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return rows, nil
}

// Package bootstrap is the composition root shared by the server and the CLI.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/config"
	"github.com/kailas-cloud/cityvec/internal/db/valkey"
	"github.com/kailas-cloud/cityvec/internal/domain"
	"github.com/kailas-cloud/cityvec/internal/metrics"
	"github.com/kailas-cloud/cityvec/internal/repository/embcache"
	openaiEmb "github.com/kailas-cloud/cityvec/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/cityvec/internal/usecase/embedding"
	"github.com/kailas-cloud/cityvec/internal/usecase/session"
)

// Embedders holds the two decorator chains built over one model endpoint.
type Embedders struct {
	// Corpus encodes catalog names in sub-batches. It never touches the cache.
	Corpus *embeddinguc.InstrumentedEmbedder
	// Query encodes query texts through the Valkey cache when one is configured.
	Query *embeddinguc.InstrumentedEmbedder

	cache *valkey.Store
}

// Close releases the cache client, if any.
func (e *Embedders) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// NewEmbedders assembles the chains: OpenAI -> [Cached] -> Instrumented.
func NewEmbedders(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Embedders, error) {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Model.APIKey,
		BaseURL:    cfg.Model.BaseURL,
		Model:      cfg.Model.ID,
		Dimensions: cfg.Model.Dimensions,
		Provider:   cfg.Model.Provider,
		Timeout:    cfg.ModelTimeout(),
		Logger:     logger,
	})

	out := &Embedders{
		Corpus: embeddinguc.NewInstrumentedEmbedder(base, cfg.Model.Provider, cfg.Model.ID, logger).
			WithBatchSize(cfg.Model.BatchSize),
	}

	var query domain.Embedder = base
	if cfg.Cache.Enabled() {
		store, err := valkey.NewStore(cfg.Valkey())
		if err != nil {
			return nil, fmt.Errorf("%w: valkey: %w", domain.ErrConfiguration, err)
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("%w: valkey: %w", domain.ErrConnection, err)
		}
		out.cache = store
		query = embcache.New(base, store, cfg.Model.ID, metrics.EmbeddingCacheTotal, logger)
		logger.Info("Query embedding cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))
	}
	out.Query = embeddinguc.NewInstrumentedEmbedder(query, cfg.Model.Provider, cfg.Model.ID, logger)

	logger.Info("Embedders created",
		zap.String("provider", cfg.Model.Provider),
		zap.String("model", cfg.Model.ID),
		zap.String("base_url", cfg.Model.BaseURL),
		zap.Int("dimensions", cfg.Model.Dimensions),
	)
	return out, nil
}

// OpenSession registers metrics, builds the embedders and opens a session.
// The returned cleanup closes the session and then the cache client.
func OpenSession(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*session.Session, *Embedders, func(), error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	emb, err := NewEmbedders(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	sess, err := session.Open(ctx, cfg.Session(), session.Deps{
		Corpus:   emb.Corpus,
		Query:    emb.Query,
		Observer: metrics.TableObserver{},
		Logger:   logger,
	})
	if err != nil {
		emb.Close()
		return nil, nil, nil, fmt.Errorf("open session: %w", err)
	}

	cleanup := func() {
		if err := sess.Close(); err != nil {
			logger.Warn("Failed to close session", zap.Error(err))
		}
		emb.Close()
	}
	return sess, emb, cleanup, nil
}

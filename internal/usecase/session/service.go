// Package session owns the store connection and brings every cached tier up to date
// before serving similarity queries.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/db"
	"github.com/kailas-cloud/cityvec/internal/domain"
	"github.com/kailas-cloud/cityvec/internal/domain/search/result"
	"github.com/kailas-cloud/cityvec/internal/metrics"
	"github.com/kailas-cloud/cityvec/internal/repository/tables"
	"github.com/kailas-cloud/cityvec/internal/usecase/catalog"
	"github.com/kailas-cloud/cityvec/internal/usecase/embedding"
	"github.com/kailas-cloud/cityvec/internal/usecase/ingest"
	"github.com/kailas-cloud/cityvec/internal/usecase/search"
)

// Operation names used in logs and errors.
const (
	OpOpen    = "open_session"
	OpRebuild = "rebuild"
)

// Deps are the collaborators injected into a session.
type Deps struct {
	// Open acquires the store; OpenSQL when nil.
	Open Opener
	// Corpus encodes catalog names in one batch.
	Corpus domain.BatchEmbedder
	// Query encodes query text. When nil, Corpus is used if it also implements search.Embedder.
	Query search.Embedder
	// Observer receives table cache outcomes; may be nil.
	Observer tables.Observer
	Logger   *zap.Logger
}

// Stats describes the loaded corpus.
type Stats struct {
	ModelID        string
	EmbeddingTable string
	CatalogRows    int
	Dimensions     int
	Built          []string
	ReadyAt        time.Time
}

// Output is a query result in the requested format. Exactly one of Records and Table is set.
type Output struct {
	Format  result.Format
	Matches []result.Match
	Records []result.Record
	Table   *result.Table
}

// Session is ready to answer queries once Open returns.
type Session struct {
	cfg          Config
	store        db.TableStore
	memo         *tables.Memo
	ingest       *ingest.Service
	catalog      *catalog.Service
	materializer *embedding.Materializer
	query        search.Embedder
	logger       *zap.Logger

	mu     sync.RWMutex
	engine *search.Engine
	stats  Stats

	closeOnce sync.Once
	closeErr  error
}

// Open validates cfg, acquires the store and loads or builds the catalog and embedding tables.
// The store is released when any step after acquisition fails.
func Open(ctx context.Context, cfg Config, deps Deps) (_ *Session, err error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("model", cfg.ModelID))

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid session configuration", zap.String("op", OpOpen), zap.Error(err))
		return nil, domain.WrapOp(OpOpen, err)
	}
	if deps.Corpus == nil {
		return nil, domain.WrapOp(OpOpen, fmt.Errorf("%w: corpus embedder is required", domain.ErrConfiguration))
	}
	query := deps.Query
	if query == nil {
		qe, ok := deps.Corpus.(search.Embedder)
		if !ok {
			return nil, domain.WrapOp(OpOpen, fmt.Errorf("%w: query embedder is required", domain.ErrConfiguration))
		}
		query = qe
	}

	opener := deps.Open
	if opener == nil {
		opener = OpenSQL
	}
	store, err := opener(ctx, cfg.Store)
	if err != nil {
		logger.Error("Store unreachable", zap.String("op", OpOpen), zap.String("driver", cfg.Store.Driver), zap.Error(err))
		return nil, domain.WrapOp(OpOpen, fmt.Errorf("%w: %w", domain.ErrConnection, err))
	}
	defer func() {
		if err != nil {
			if cerr := store.Close(); cerr != nil {
				logger.Warn("Failed to release store", zap.Error(cerr))
			}
		}
	}()

	if err := store.Ping(ctx); err != nil {
		logger.Error("Store ping failed", zap.String("op", OpOpen), zap.Error(err))
		return nil, domain.WrapOp(OpOpen, fmt.Errorf("%w: %w", domain.ErrConnection, err))
	}

	memo := tables.New(store, deps.Observer, logger)
	ing := ingest.New(memo, logger)
	s := &Session{
		cfg:          cfg,
		store:        store,
		memo:         memo,
		ingest:       ing,
		catalog:      catalog.New(ing, memo, cfg.Paths, logger),
		materializer: embedding.NewMaterializer(deps.Corpus, memo, cfg.ModelID, logger),
		query:        query,
		logger:       logger,
	}

	if err := s.load(ctx); err != nil {
		return nil, domain.WrapOp(OpOpen, err)
	}
	return s, nil
}

// load serves the cached tiers when they agree. A missing catalog rebuilds both tiers
// together; a missing or misaligned embedding table is re-encoded from the cached catalog.
func (s *Session) load(ctx context.Context) error {
	entries, found, err := s.catalog.Cached(ctx)
	if err != nil {
		return err
	}
	if !found {
		return s.buildTiers(ctx)
	}

	emb, found, err := s.materializer.Cached(ctx)
	if err != nil {
		return err
	}
	if found {
		alignErr := checkAligned(entries, emb)
		if alignErr == nil {
			return s.install(entries, emb, nil)
		}
		s.logger.Warn("Cached embedding table does not match catalog, re-encoding",
			zap.String("table", emb.Name), zap.Error(alignErr))
	}

	emb, err = s.materializer.Materialize(ctx, entries)
	if err != nil {
		return err
	}
	return s.install(entries, emb, []string{emb.Name})
}

// buildTiers joins and encodes the catalog in memory, then commits selected_cities and
// the embedding table in one transaction. A failure leaves both persisted tables as they were.
func (s *Session) buildTiers(ctx context.Context) error {
	entries, err := s.catalog.Assemble(ctx, s.cfg.CountryCodes)
	if err != nil {
		return err
	}
	emb, err := s.materializer.Encode(ctx, entries)
	if err != nil {
		return err
	}
	if err := checkAligned(entries, emb); err != nil {
		return err
	}
	if err := s.memo.Commit(ctx, s.catalog.Stage(entries), s.materializer.Stage(emb)); err != nil {
		s.logger.Error("Failed to persist catalog and embeddings", zap.Error(err))
		return err //nolint:wrapcheck // carries the table names
	}
	return s.install(entries, emb, []string{domain.TableSelectedCities, emb.Name})
}

// install cross-checks the tiers and swaps in a new engine.
func (s *Session) install(entries []domain.CatalogEntry, emb domain.EmbeddingTable, built []string) error {
	if err := checkAligned(entries, emb); err != nil {
		s.logger.Error("Embedding table does not match catalog",
			zap.String("table", emb.Name), zap.Int("catalog_rows", len(entries)),
			zap.Int("embedding_rows", emb.Len()), zap.Error(err))
		return err
	}

	engine, err := search.New(entries, emb, s.query, s.logger)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	stats := Stats{
		ModelID:        s.cfg.ModelID,
		EmbeddingTable: emb.Name,
		CatalogRows:    len(entries),
		Dimensions:     emb.Dimensions(),
		Built:          built,
		ReadyAt:        time.Now(),
	}

	s.mu.Lock()
	s.engine = engine
	s.stats = stats
	s.mu.Unlock()

	metrics.CorpusSize.Set(float64(len(entries)))
	s.logger.Info("Session ready",
		zap.String("table", emb.Name),
		zap.Int("rows", len(entries)),
		zap.Int("dimensions", stats.Dimensions),
		zap.Strings("built", built))
	return nil
}

// checkAligned requires embedding row i to carry catalog row i's ID.
func checkAligned(entries []domain.CatalogEntry, emb domain.EmbeddingTable) error {
	if len(entries) != emb.Len() {
		return fmt.Errorf("%w: %d catalog rows, %d embedding rows in %s",
			domain.ErrBuild, len(entries), emb.Len(), emb.Name)
	}
	for i, row := range emb.Rows {
		if row.ID != entries[i].ID {
			return fmt.Errorf("%w: embedding row %d has id %d, catalog has %d",
				domain.ErrBuild, i, row.ID, entries[i].ID)
		}
	}
	return nil
}

// Query ranks the corpus against text and shapes the result as format.
func (s *Session) Query(ctx context.Context, text string, topK int, format result.Format) (Output, error) {
	if format != result.Records && format != result.Tabular {
		return Output{}, fmt.Errorf("%w: unknown format %q", domain.ErrInvalidQuery, format)
	}

	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	if engine == nil {
		return Output{}, errors.New("session is closed")
	}

	matches, err := engine.Query(ctx, text, topK)
	if err != nil {
		return Output{}, err //nolint:wrapcheck // engine errors carry the op
	}

	out := Output{Format: format, Matches: matches}
	if format == result.Tabular {
		tbl := result.ToTable(matches)
		out.Table = &tbl
	} else {
		out.Records = result.ToRecords(matches)
	}
	return out, nil
}

// Stats returns a snapshot of the loaded corpus.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.stats
	st.Built = append([]string(nil), s.stats.Built...)
	return st
}

// CorpusSize returns the number of indexed cities, 0 after Close.
func (s *Session) CorpusSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.engine == nil {
		return 0
	}
	return s.engine.Len()
}

// Ping checks the store connection.
func (s *Session) Ping(ctx context.Context) error {
	return s.store.Ping(ctx) //nolint:wrapcheck // health probe
}

// Rebuild recomputes the catalog and embedding tables and replaces both at once. With
// reingest, the source tables are first re-read from their files. The previous engine
// keeps serving until the new one is installed, and a failed rebuild leaves the
// persisted catalog and embeddings untouched.
func (s *Session) Rebuild(ctx context.Context, reingest bool) error {
	s.logger.Info("Rebuilding", zap.String("op", OpRebuild), zap.Bool("reingest", reingest))

	if reingest {
		if _, err := s.ingest.ReadCountries(ctx, s.cfg.Paths.Countries); err != nil {
			return domain.WrapOp(OpRebuild, err)
		}
		if _, err := s.ingest.ReadCities(ctx, s.cfg.Paths.Cities); err != nil {
			return domain.WrapOp(OpRebuild, err)
		}
		if _, err := s.ingest.ReadAdminCodes(ctx, s.cfg.Paths.AdminCodes); err != nil {
			return domain.WrapOp(OpRebuild, err)
		}
	}

	return domain.WrapOp(OpRebuild, s.buildTiers(ctx))
}

// Close releases the store. Subsequent calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.engine = nil
		s.mu.Unlock()
		if err := s.store.Close(); err != nil {
			s.closeErr = fmt.Errorf("close store: %w", err)
		}
		s.logger.Info("Session closed")
	})
	return s.closeErr
}

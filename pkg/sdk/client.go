package cityvec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/cityvec/internal/usecase/health"
	"github.com/kailas-cloud/cityvec/internal/usecase/session"
)

// sessionUseCase is the internal interface for the session, swapped in tests.
type sessionUseCase interface {
	Query(ctx context.Context, text string, topK int, format result.Format) (session.Output, error)
	Stats() session.Stats
	Rebuild(ctx context.Context, reingest bool) error
	Close() error
}

// Match is one ranked city.
type Match struct {
	Name       string  // city name
	Code       string  // "<country>.<admin1>"
	Region     string  // admin division name
	Country    string  // country name
	Similarity float64 // cosine similarity to the query
}

// Stats describes the loaded corpus.
type Stats struct {
	ModelID        string
	EmbeddingTable string
	Cities         int
	Dimensions     int
	// Built lists the tables created by the last open or rebuild; empty when all were cached.
	Built   []string
	ReadyAt time.Time
}

// Client is the cityvec entry point.
type Client struct {
	sess      sessionUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New opens the store and loads or builds every table.
// The provided context bounds ingestion and corpus encoding.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, fmt.Errorf("cityvec: %w: embedder required (use WithEmbedder)", ErrConfiguration)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	adapter := &embedderAdapter{inner: cfg.embedder}

	start := time.Now()
	sess, err := session.Open(ctx, session.Config{
		ModelID:      cfg.modelID,
		CountryCodes: cfg.countries,
		Paths:        cfg.paths,
		Store:        cfg.store,
	}, session.Deps{
		Open:   cfg.opener,
		Corpus: adapter,
		Query:  adapter,
		Logger: logger,
	})
	obs.observe("open", start, err)
	if err != nil {
		return nil, fmt.Errorf("cityvec: %w", err)
	}

	return &Client{
		sess:      sess,
		healthSvc: healthuc.New(sess, nil, sess),
		obs:       obs,
	}, nil
}

// Close releases the store.
func (c *Client) Close() error {
	if err := c.sess.Close(); err != nil {
		return fmt.Errorf("cityvec: %w", err)
	}
	return nil
}

// Query returns the topK cities most similar to text, best first.
// topK is clamped to the corpus size.
func (c *Client) Query(ctx context.Context, text string, topK int) (_ []Match, err error) {
	start := time.Now()
	defer func() { c.obs.observe("query", start, err) }()

	out, err := c.sess.Query(ctx, text, topK, result.Records)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	matches := make([]Match, len(out.Matches))
	for i := range out.Matches {
		m := &out.Matches[i]
		matches[i] = Match{
			Name:       m.Name(),
			Code:       m.Code(),
			Region:     m.Region(),
			Country:    m.Country(),
			Similarity: m.Similarity(),
		}
	}
	return matches, nil
}

// QueryTable returns the same ranking as Query in column-oriented form.
func (c *Client) QueryTable(ctx context.Context, text string, topK int) (_ []string, _ [][]any, err error) {
	start := time.Now()
	defer func() { c.obs.observe("query_table", start, err) }()

	out, err := c.sess.Query(ctx, text, topK, result.Tabular)
	if err != nil {
		return nil, nil, fmt.Errorf("query table: %w", err)
	}
	if out.Table == nil {
		return nil, nil, errors.New("query table: no table in output")
	}
	return out.Table.Columns, out.Table.Rows, nil
}

// Rebuild recomputes the catalog and embedding tables; with reingest the
// GeoNames files are read again first.
func (c *Client) Rebuild(ctx context.Context, reingest bool) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("rebuild", start, err) }()

	if err = c.sess.Rebuild(ctx, reingest); err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	return nil
}

// Stats reports the loaded corpus.
func (c *Client) Stats() Stats {
	st := c.sess.Stats()
	return Stats{
		ModelID:        st.ModelID,
		EmbeddingTable: st.EmbeddingTable,
		Cities:         st.CatalogRows,
		Dimensions:     st.Dimensions,
		Built:          st.Built,
		ReadyAt:        st.ReadyAt,
	}
}

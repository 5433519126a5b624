package chi

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/cityvec/internal/usecase/health"
	"github.com/kailas-cloud/cityvec/internal/usecase/session"
)

type queryCall struct {
	text   string
	topK   int
	format result.Format
}

type mockQuerier struct {
	matches []result.Match
	err     error
	panics  bool
	calls   []queryCall
	stats   session.Stats
}

func (m *mockQuerier) Query(_ context.Context, text string, topK int, format result.Format) (session.Output, error) {
	if m.panics {
		panic("engine exploded")
	}
	m.calls = append(m.calls, queryCall{text: text, topK: topK, format: format})
	if m.err != nil {
		return session.Output{}, m.err
	}
	matches := m.matches
	if topK < len(matches) {
		matches = matches[:topK]
	}
	out := session.Output{Format: format, Matches: matches}
	if format == result.Tabular {
		tbl := result.ToTable(matches)
		out.Table = &tbl
	} else {
		out.Records = result.ToRecords(matches)
	}
	return out, nil
}

func (m *mockQuerier) Stats() session.Stats { return m.stats }

type mockPinger struct{ err error }

func (m *mockPinger) Ping(context.Context) error { return m.err }

type mockCorpus struct{ n int }

func (m *mockCorpus) CorpusSize() int { return m.n }

func newTestServer(q *mockQuerier, opts Options) *Server {
	health := healthuc.New(&mockPinger{}, nil, &mockCorpus{n: len(q.matches)})
	return NewServer(q, health, opts, zap.NewNop())
}

func fixtureMatches() []result.Match {
	return []result.Match{
		result.New("Moscow", "RU.48", "Moscow", "Russia", 0.98),
		result.New("Minsk", "BY.04", "Minsk City", "Belarus", 0.71),
		result.New("Bishkek", "KG.11", "Bishkek", "Kyrgyzstan", 0.42),
	}
}

func fixtureStats() session.Stats {
	return session.Stats{
		ModelID:        "org/test-model",
		EmbeddingTable: "ce_test_model",
		CatalogRows:    3,
		Dimensions:     26,
		Built:          []string{"selected_cities"},
		ReadyAt:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

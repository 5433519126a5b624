package cityvec

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestNew_NoEmbedder(t *testing.T) {
	_, err := New(context.Background(), sources(t)...)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestNew_MissingStore(t *testing.T) {
	opts := append(sources(t), WithSQLite(""), WithEmbedder(&letterModel{}))
	_, err := New(context.Background(), opts...)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestClient_QueryWithoutBatchEndpoint(t *testing.T) {
	model := &letterModel{}
	c, err := New(context.Background(), append(sources(t), WithEmbedder(model))...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = c.Close() }()

	// One Embed per catalog row through the fallback.
	if model.calls != 3 {
		t.Errorf("corpus encode calls = %d, want 3", model.calls)
	}

	matches, err := c.Query(context.Background(), "Almaty", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches", len(matches))
	}
	top := matches[0]
	if top.Name != "Almaty" || top.Code != "KZ.02" || top.Country != "Kazakhstan" || top.Region != "Almaty" {
		t.Errorf("top = %+v", top)
	}
	if top.Similarity < 0.999 || matches[1].Similarity > top.Similarity {
		t.Errorf("similarities = %v, %v", top.Similarity, matches[1].Similarity)
	}
}

func TestClient_QueryTableAndStats(t *testing.T) {
	model := &batchLetterModel{}
	c, err := New(context.Background(), append(sources(t), WithEmbedder(model))...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = c.Close() }()

	if model.batches != 1 {
		t.Errorf("batch calls = %d, want 1", model.batches)
	}

	cols, rows, err := c.QueryTable(context.Background(), "Moscow", 10)
	if err != nil {
		t.Fatalf("QueryTable: %v", err)
	}
	if len(cols) != 5 || cols[4] != "similarity" {
		t.Errorf("columns = %v", cols)
	}
	if len(rows) != 3 {
		t.Errorf("rows = %d, want 3 (top_k clamped to corpus)", len(rows))
	}

	st := c.Stats()
	if st.Cities != 3 || st.Dimensions != 26 || st.EmbeddingTable != "ce_letter_model" {
		t.Errorf("stats = %+v", st)
	}

	if h := c.Health(context.Background()); h.Status != "ok" || h.Checks["corpus"] != "ok" {
		t.Errorf("health = %+v", h)
	}
}

func TestClient_QueryErrors(t *testing.T) {
	c, err := New(context.Background(), append(sources(t), WithEmbedder(&batchLetterModel{}))...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = c.Close() }()

	if _, err := c.Query(context.Background(), "  ", 1); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("blank text: %v", err)
	}
	if _, err := c.Query(context.Background(), "Moscow", 0); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("zero top_k: %v", err)
	}
}

func TestClient_RebuildAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	model := &batchLetterModel{}
	opts := append(sources(t), WithEmbedder(model), WithPrometheus(reg), WithLogger(zap.NewNop()))

	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Rebuild(context.Background(), true); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if model.batches != 2 {
		t.Errorf("batch calls = %d, want 2", model.batches)
	}
	if built := c.Stats().Built; len(built) != 2 {
		t.Errorf("built = %v", built)
	}

	_, _ = c.Query(context.Background(), "Astana", 1)
	_, _ = c.Query(context.Background(), "", 1)

	ops, err := newSDKMetrics(reg)
	if err != nil {
		t.Fatalf("reuse metrics: %v", err)
	}
	if got := testutil.ToFloat64(ops.operations.WithLabelValues("query", "ok")); got != 1 {
		t.Errorf("query ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ops.operations.WithLabelValues("query", "error")); got != 1 {
		t.Errorf("query error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ops.operations.WithLabelValues("rebuild", "ok")); got != 1 {
		t.Errorf("rebuild ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ops.operations.WithLabelValues("open", "ok")); got != 1 {
		t.Errorf("open ok = %v, want 1", got)
	}
}

func TestClient_ReopenLoadsCachedTables(t *testing.T) {
	opts := sources(t)
	first, err := New(context.Background(), append(opts, WithEmbedder(&batchLetterModel{}))...)
	if err != nil {
		t.Fatalf("first New: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	model := &batchLetterModel{}
	second, err := New(context.Background(), append(opts, WithEmbedder(model))...)
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	defer func() { _ = second.Close() }()

	if model.batches != 0 {
		t.Errorf("cached corpus was re-encoded %d times", model.batches)
	}
	if len(second.Stats().Built) != 0 {
		t.Errorf("built = %v, want none", second.Stats().Built)
	}
}

func TestRegisterOrReuse_IncompatibleType(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cityvec", Subsystem: "sdk", Name: "operations_total", Help: "x",
	}))

	if _, err := newSDKMetrics(reg); err == nil {
		t.Fatal("expected error for conflicting collector")
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var o *observer
	o.observe("query", testStart(), errors.New("boom"))
}

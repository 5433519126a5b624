package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	TableCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_cache_total",
			Help:      "Cached table loads and rebuilds",
		},
		[]string{"table", "result"}, // "hit" / "build"
	)

	CorpusSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_size",
			Help:      "Number of cities in the search corpus",
		},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Similarity query duration in seconds, including query encoding",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"status"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers the table cache and query metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(TableCacheTotal)
	prometheus.MustRegister(CorpusSize)
	prometheus.MustRegister(QueryDuration)
	pipelineMetricsRegistered = true
}

// TableObserver feeds table cache outcomes into TableCacheTotal.
type TableObserver struct{}

// TableCache implements tables.Observer.
func (TableObserver) TableCache(table, result string) {
	TableCacheTotal.WithLabelValues(table, result).Inc()
}

package health

import "context"

// DBPinger checks table store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusSizer reports the number of searchable cities.
type CorpusSizer interface {
	CorpusSize() int
}

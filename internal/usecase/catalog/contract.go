package catalog

import (
	"context"

	"github.com/kailas-cloud/cityvec/internal/domain"
)

// Sources provides the three ingested tables, loading caches before files.
type Sources interface {
	Countries(ctx context.Context, path string) ([]domain.CountryRecord, error)
	Cities(ctx context.Context, path string) ([]domain.CityRecord, error)
	AdminCodes(ctx context.Context, path string) ([]domain.AdminCodeRecord, error)
}

// Package ingest reads the GeoNames reference dumps and caches them as tables.
package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/domain"
	"github.com/kailas-cloud/cityvec/internal/repository/geonames"
	"github.com/kailas-cloud/cityvec/internal/repository/tables"
)

// Operation names used in logs and errors.
const (
	OpReadCountries  = "read_countries"
	OpReadCities     = "read_cities"
	OpReadAdminCodes = "read_admin_codes"
)

// Service parses source files and persists them under the fixed table names.
type Service struct {
	memo   *tables.Memo
	logger *zap.Logger
}

// New creates an ingest service.
func New(memo *tables.Memo, logger *zap.Logger) *Service {
	return &Service{memo: memo, logger: logger}
}

// ReadCountries parses path, replaces the countries table and returns the records.
func (s *Service) ReadCountries(ctx context.Context, path string) ([]domain.CountryRecord, error) {
	return read(ctx, s, OpReadCountries, domain.TableCountries, path, geonames.Countries, ParseCountries)
}

// ReadCities parses path, replaces the cities15000 table and returns the records.
func (s *Service) ReadCities(ctx context.Context, path string) ([]domain.CityRecord, error) {
	return read(ctx, s, OpReadCities, domain.TableCities, path, geonames.Cities, ParseCities)
}

// ReadAdminCodes parses path, replaces the admin_codes table and returns the records.
func (s *Service) ReadAdminCodes(ctx context.Context, path string) ([]domain.AdminCodeRecord, error) {
	return read(ctx, s, OpReadAdminCodes, domain.TableAdminCodes, path, geonames.AdminCodes, ParseAdminCodes)
}

// Countries loads the cached countries table, ingesting path only when it is absent.
func (s *Service) Countries(ctx context.Context, path string) ([]domain.CountryRecord, error) {
	return load(ctx, s, OpReadCountries, domain.TableCountries, path, geonames.Countries, ParseCountries)
}

// Cities loads the cached cities15000 table, ingesting path only when it is absent.
func (s *Service) Cities(ctx context.Context, path string) ([]domain.CityRecord, error) {
	return load(ctx, s, OpReadCities, domain.TableCities, path, geonames.Cities, ParseCities)
}

// AdminCodes loads the cached admin_codes table, ingesting path only when it is absent.
func (s *Service) AdminCodes(ctx context.Context, path string) ([]domain.AdminCodeRecord, error) {
	return load(ctx, s, OpReadAdminCodes, domain.TableAdminCodes, path, geonames.AdminCodes, ParseAdminCodes)
}

func read[T any](
	ctx context.Context, s *Service, op, table, path string,
	codec tables.Codec[T], parse func(string) ([]T, error),
) ([]T, error) {
	records, err := parse(path)
	if err != nil {
		s.logger.Error("Ingestion failed", zap.String("op", op), zap.String("path", path), zap.Error(err))
		return nil, domain.WrapOp(op, err)
	}
	if err := tables.Put(ctx, s.memo, table, codec, records); err != nil {
		s.logger.Error("Ingestion persist failed", zap.String("op", op), zap.String("table", table), zap.Error(err))
		return nil, domain.WrapOp(op, err)
	}
	s.logger.Info("Ingested file", zap.String("op", op), zap.String("path", path), zap.Int("rows", len(records)))
	return records, nil
}

func load[T any](
	ctx context.Context, s *Service, op, table, path string,
	codec tables.Codec[T], parse func(string) ([]T, error),
) ([]T, error) {
	records, _, err := tables.GetOrBuild(ctx, s.memo, table, codec, func(context.Context) ([]T, error) {
		return parse(path)
	})
	if err != nil {
		s.logger.Error("Source table unavailable", zap.String("op", op), zap.String("table", table),
			zap.String("path", path), zap.Error(err))
		return nil, domain.WrapOp(op, err)
	}
	return records, nil
}

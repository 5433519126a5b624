// Package catalog joins the ingested GeoNames tables into the selected_cities catalog.
package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/db"
	"github.com/kailas-cloud/cityvec/internal/domain"
	"github.com/kailas-cloud/cityvec/internal/repository/geonames"
	"github.com/kailas-cloud/cityvec/internal/repository/tables"
)

// OpBuild names the catalog build in logs and errors.
const OpBuild = "build_selected_cities"

// Paths locates the source files used when a source table is not cached.
type Paths struct {
	Countries  string
	Cities     string
	AdminCodes string
}

// Service builds and caches the catalog.
type Service struct {
	sources Sources
	memo    *tables.Memo
	paths   Paths
	logger  *zap.Logger
}

// New creates a catalog service.
func New(sources Sources, memo *tables.Memo, paths Paths, logger *zap.Logger) *Service {
	return &Service{sources: sources, memo: memo, paths: paths, logger: logger}
}

// Cached returns the persisted catalog. found is false when it has not been built yet.
func (s *Service) Cached(ctx context.Context) (_ []domain.CatalogEntry, found bool, _ error) {
	entries, found, err := tables.Get(ctx, s.memo, domain.TableSelectedCities, geonames.Catalog)
	if err != nil {
		return nil, false, domain.WrapOp(OpBuild, err)
	}
	return entries, found, nil
}

// Assemble joins the sources in memory. Nothing is persisted; see Stage.
func (s *Service) Assemble(ctx context.Context, allowed []string) ([]domain.CatalogEntry, error) {
	entries, err := s.join(ctx, allowed)
	if err != nil {
		return nil, domain.WrapOp(OpBuild, err)
	}
	return entries, nil
}

// Stage encodes entries as the selected_cities table for a joint commit.
func (s *Service) Stage(entries []domain.CatalogEntry) db.TableWrite {
	return tables.Stage(domain.TableSelectedCities, geonames.Catalog, entries)
}

func (s *Service) join(ctx context.Context, allowed []string) ([]domain.CatalogEntry, error) {
	countries, err := s.sources.Countries(ctx, s.paths.Countries)
	if err != nil {
		return nil, fmt.Errorf("countries: %w", err)
	}
	cities, err := s.sources.Cities(ctx, s.paths.Cities)
	if err != nil {
		return nil, fmt.Errorf("cities: %w", err)
	}
	admins, err := s.sources.AdminCodes(ctx, s.paths.AdminCodes)
	if err != nil {
		return nil, fmt.Errorf("admin codes: %w", err)
	}

	entries := Join(countries, cities, admins, allowed)
	if len(entries) == 0 {
		s.logger.Error("Catalog join produced no rows",
			zap.String("op", OpBuild),
			zap.Strings("country_codes", allowed),
			zap.Int("countries", len(countries)),
			zap.Int("cities", len(cities)),
			zap.Int("admin_codes", len(admins)))
		return nil, fmt.Errorf("%w: no cities for country codes %v", domain.ErrBuild, allowed)
	}

	s.logger.Info("Catalog joined",
		zap.String("op", OpBuild),
		zap.Strings("country_codes", allowed),
		zap.Int("rows", len(entries)))
	return entries, nil
}

type cityKey struct {
	countryCode string
	admin1Code  string
}

// Join links every admin division to its country and to each of its cities, keeping only
// complete rows whose country code is allowed. Rows follow admin order, then city order,
// and are numbered from 0.
func Join(
	countries []domain.CountryRecord,
	cities []domain.CityRecord,
	admins []domain.AdminCodeRecord,
	allowed []string,
) []domain.CatalogEntry {
	allow := make(map[string]struct{}, len(allowed))
	for _, cc := range allowed {
		allow[cc] = struct{}{}
	}

	countryNames := make(map[string][]string, len(countries))
	for _, c := range countries {
		countryNames[c.CountryCode] = append(countryNames[c.CountryCode], c.Country)
	}

	citiesByKey := make(map[cityKey][]int, len(cities))
	for i, c := range cities {
		k := cityKey{countryCode: c.CountryCode, admin1Code: c.Admin1Code}
		citiesByKey[k] = append(citiesByKey[k], i)
	}

	var entries []domain.CatalogEntry
	for _, a := range admins {
		cc, a1, ok := a.Split()
		if !ok || cc == "" || a1 == "" {
			continue
		}
		if _, ok := allow[cc]; !ok {
			continue
		}
		for _, country := range countryNames[cc] {
			for _, ci := range citiesByKey[cityKey{countryCode: cc, admin1Code: a1}] {
				city := cities[ci]
				entries = append(entries, domain.CatalogEntry{
					ID:                int64(len(entries)),
					ConcatenatedCodes: a.ConcatenatedCodes,
					NameAdmin:         a.Name,
					CountryCode:       cc,
					Admin1Code:        a1,
					Country:           country,
					GeonameID:         city.GeonameID,
					NameCity:          city.Name,
					Population:        city.Population,
				})
			}
		}
	}
	return entries
}

package catalog

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/db/sqldb"
	"github.com/kailas-cloud/cityvec/internal/domain"
	"github.com/kailas-cloud/cityvec/internal/repository/tables"
)

type mockSources struct {
	countries []domain.CountryRecord
	cities    []domain.CityRecord
	admins    []domain.AdminCodeRecord
	err       error
	calls     int
}

func (m *mockSources) Countries(_ context.Context, _ string) ([]domain.CountryRecord, error) {
	m.calls++
	return m.countries, m.err
}

func (m *mockSources) Cities(_ context.Context, _ string) ([]domain.CityRecord, error) {
	m.calls++
	return m.cities, m.err
}

func (m *mockSources) AdminCodes(_ context.Context, _ string) ([]domain.AdminCodeRecord, error) {
	m.calls++
	return m.admins, m.err
}

func fixtureSources() *mockSources {
	return &mockSources{
		countries: []domain.CountryRecord{
			{CountryCode: "RU", Country: "Russia"},
			{CountryCode: "BY", Country: "Belarus"},
			{CountryCode: "DE", Country: "Germany"},
		},
		cities: []domain.CityRecord{
			{GeonameID: 524901, Name: "Moscow", CountryCode: "RU", Admin1Code: "48", Population: 10381222},
			{GeonameID: 625144, Name: "Minsk", CountryCode: "BY", Admin1Code: "04", Population: 1742124},
			{GeonameID: 2950159, Name: "Berlin", CountryCode: "DE", Admin1Code: "16", Population: 3426354},
			{GeonameID: 463343, Name: "Zelenograd", CountryCode: "RU", Admin1Code: "48", Population: 216000},
		},
		admins: []domain.AdminCodeRecord{
			{ConcatenatedCodes: "RU.48", Name: "Moscow"},
			{ConcatenatedCodes: "BY.04", Name: "Minsk City"},
			{ConcatenatedCodes: "DE.16", Name: "Berlin"},
			{ConcatenatedCodes: "RU.99", Name: "No Cities"},
		},
	}
}

func newTestService(t *testing.T, src Sources) (*Service, *sqldb.Store) {
	t.Helper()
	store, err := sqldb.NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(src, tables.New(store, nil, zap.NewNop()), Paths{}, zap.NewNop()), store
}

package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/cityvec/internal/domain"
)

func TestJoin_FansOutAndFilters(t *testing.T) {
	src := fixtureSources()
	got := Join(src.countries, src.cities, src.admins, []string{"RU", "BY"})

	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(got), got)
	}
	wantNames := []string{"Moscow", "Zelenograd", "Minsk"}
	for i, e := range got {
		if e.ID != int64(i) {
			t.Errorf("entry %d has id %d", i, e.ID)
		}
		if e.NameCity != wantNames[i] {
			t.Errorf("entry %d name = %q, want %q", i, e.NameCity, wantNames[i])
		}
	}
	if got[2].Country != "Belarus" || got[2].NameAdmin != "Minsk City" || got[2].ConcatenatedCodes != "BY.04" {
		t.Errorf("unexpected Minsk entry: %+v", got[2])
	}
}

func TestJoin_EveryEntryComplete(t *testing.T) {
	src := fixtureSources()
	allowed := map[string]bool{"RU": true, "BY": true, "DE": true}
	countryOf := map[string]string{}
	for _, c := range src.countries {
		countryOf[c.CountryCode] = c.Country
	}

	for _, e := range Join(src.countries, src.cities, src.admins, []string{"RU", "BY", "DE"}) {
		if !allowed[e.CountryCode] {
			t.Errorf("entry outside allow-list: %+v", e)
		}
		if countryOf[e.CountryCode] != e.Country {
			t.Errorf("country mismatch: %+v", e)
		}
		if e.NameCity == "" || e.NameAdmin == "" || e.Admin1Code == "" || e.GeonameID == 0 {
			t.Errorf("incomplete entry: %+v", e)
		}
	}
}

func TestJoin_DropsMissingCountry(t *testing.T) {
	src := fixtureSources()
	src.countries = src.countries[1:] // no RU

	got := Join(src.countries, src.cities, src.admins, []string{"RU"})
	if len(got) != 0 {
		t.Errorf("expected no entries without a country row, got %+v", got)
	}
}

func TestJoin_SkipsMalformedAdminCode(t *testing.T) {
	src := fixtureSources()
	src.admins = append(src.admins, domain.AdminCodeRecord{ConcatenatedCodes: "RU", Name: "Broken"})

	got := Join(src.countries, src.cities, src.admins, []string{"RU"})
	if len(got) != 2 {
		t.Errorf("expected 2 entries, got %d", len(got))
	}
}

func TestAssemble_SingleRowPersistsNothing(t *testing.T) {
	src := &mockSources{
		countries: []domain.CountryRecord{{CountryCode: "RU", Country: "Russia"}},
		cities: []domain.CityRecord{
			{GeonameID: 524901, Name: "Moscow", CountryCode: "RU", Admin1Code: "48", Population: 10381222},
		},
		admins: []domain.AdminCodeRecord{{ConcatenatedCodes: "RU.48", Name: "Moscow"}},
	}
	svc, store := newTestService(t, src)
	ctx := context.Background()

	got, err := svc.Assemble(ctx, []string{"RU"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if ok, _ := store.TableExists(ctx, domain.TableSelectedCities); ok {
		t.Error("assemble must not persist the catalog")
	}
}

func TestAssemble_ZeroRows(t *testing.T) {
	svc, _ := newTestService(t, fixtureSources())

	_, err := svc.Assemble(context.Background(), []string{"FR"})
	if !errors.Is(err, domain.ErrBuild) {
		t.Fatalf("expected ErrBuild, got %v", err)
	}
	var opErr *domain.OpError
	if !errors.As(err, &opErr) || opErr.Op != OpBuild {
		t.Errorf("expected OpError %q, got %v", OpBuild, err)
	}
}

func TestAssemble_SourceError(t *testing.T) {
	src := fixtureSources()
	src.err = domain.ErrIngestion
	svc, _ := newTestService(t, src)

	_, err := svc.Assemble(context.Background(), []string{"RU"})
	if !errors.Is(err, domain.ErrIngestion) {
		t.Errorf("expected ErrIngestion, got %v", err)
	}
}

func TestCached_ReadsCommittedCatalog(t *testing.T) {
	src := fixtureSources()
	svc, _ := newTestService(t, src)
	ctx := context.Background()

	_, found, err := svc.Cached(ctx)
	if err != nil || found {
		t.Fatalf("expected no cached catalog, found=%v err=%v", found, err)
	}

	built, err := svc.Assemble(ctx, []string{"RU", "BY"})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if err := svc.memo.Commit(ctx, svc.Stage(built)); err != nil {
		t.Fatalf("commit: %v", err)
	}
	callsAfterBuild := src.calls

	cached, found, err := svc.Cached(ctx)
	if err != nil || !found {
		t.Fatalf("cached: found=%v err=%v", found, err)
	}
	if src.calls != callsAfterBuild {
		t.Errorf("sources touched on cache hit: %d calls", src.calls-callsAfterBuild)
	}
	if len(built) != len(cached) {
		t.Fatalf("len mismatch %d vs %d", len(built), len(cached))
	}
	for i := range built {
		if built[i] != cached[i] {
			t.Errorf("entry %d differs: %+v vs %+v", i, built[i], cached[i])
		}
	}
}

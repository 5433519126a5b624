package geonames

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/cityvec/internal/db"
	"github.com/kailas-cloud/cityvec/internal/domain"
)

func TestCatalog_EncodeDecode(t *testing.T) {
	entries := []domain.CatalogEntry{
		{
			ID: 0, ConcatenatedCodes: "RU.48", NameAdmin: "Moscow", CountryCode: "RU", Admin1Code: "48",
			Country: "Russia", GeonameID: 524901, NameCity: "Moscow", Population: 10381222,
		},
		{
			ID: 1, ConcatenatedCodes: "BY.04", NameAdmin: "Minsk City", CountryCode: "BY", Admin1Code: "04",
			Country: "Belarus", GeonameID: 625144, NameCity: "Minsk", Population: 1742124,
		},
	}

	tbl := Catalog.Encode(entries)
	if err := tbl.Validate(); err != nil {
		t.Fatalf("encoded table invalid: %v", err)
	}
	if tbl.ColumnIndex("id") != 0 {
		t.Errorf("id column at %d, want 0", tbl.ColumnIndex("id"))
	}

	got, err := Catalog.Decode(tbl)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Errorf("decoded = %+v, want %+v", got, entries)
	}
}

func TestCities_DecodeScannedTypes(t *testing.T) {
	// Column order differs from Encode, values come back as drivers scan them.
	tbl := &db.Table{
		Columns: []db.Column{
			{Name: "name", Type: db.ColumnText},
			{Name: "geonameid", Type: db.ColumnInteger},
			{Name: "population", Type: db.ColumnInteger},
			{Name: "country_code", Type: db.ColumnText},
			{Name: "admin1_code", Type: db.ColumnText},
		},
		Rows: [][]any{{[]byte("Bishkek"), int64(1528675), float64(900000), "KG", "11"}},
	}

	got, err := Cities.Decode(tbl)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := domain.CityRecord{GeonameID: 1528675, Name: "Bishkek", CountryCode: "KG", Admin1Code: "11", Population: 900000}
	if len(got) != 1 || got[0] != want {
		t.Errorf("decoded = %+v, want %+v", got, want)
	}
}

func TestDecode_MissingColumn(t *testing.T) {
	tbl := &db.Table{Columns: []db.Column{{Name: "country_code", Type: db.ColumnText}}}
	_, err := Countries.Decode(tbl)
	if !errors.Is(err, db.ErrInvalidTable) {
		t.Errorf("expected ErrInvalidTable, got %v", err)
	}
}

func TestDecode_BadValue(t *testing.T) {
	tbl := Cities.Encode([]domain.CityRecord{{GeonameID: 1, Name: "X", CountryCode: "RU", Admin1Code: "1"}})
	tbl.Rows[0][4] = "many"

	_, err := Cities.Decode(tbl)
	if !errors.Is(err, db.ErrInvalidTable) {
		t.Errorf("expected ErrInvalidTable, got %v", err)
	}
}

func TestEmbeddings_EncodeDecode(t *testing.T) {
	rows := []domain.EmbeddingRow{
		{ID: 0, Vector: []float32{0.5, -0.25, 1}},
		{ID: 1, Vector: []float32{0, 0.125, -1}},
	}

	tbl := Embeddings.Encode(rows)
	wantCols := []string{"id", "0", "1", "2"}
	for i, c := range tbl.Columns {
		if c.Name != wantCols[i] {
			t.Errorf("column %d = %q, want %q", i, c.Name, wantCols[i])
		}
	}
	if tbl.Columns[1].Type != db.ColumnReal {
		t.Errorf("component type = %q, want real", tbl.Columns[1].Type)
	}

	got, err := Embeddings.Decode(tbl)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("decoded = %+v, want %+v", got, rows)
	}
}

func TestEmbeddings_DecodeMissingComponent(t *testing.T) {
	tbl := &db.Table{
		Columns: []db.Column{
			{Name: "id", Type: db.ColumnInteger},
			{Name: "0", Type: db.ColumnReal},
			{Name: "2", Type: db.ColumnReal},
		},
	}
	if _, err := Embeddings.Decode(tbl); !errors.Is(err, db.ErrInvalidTable) {
		t.Errorf("expected ErrInvalidTable, got %v", err)
	}
}

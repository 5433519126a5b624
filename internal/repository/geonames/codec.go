// Package geonames maps GeoNames records and embedding rows to relational tables.
package geonames

import (
	"fmt"
	"strconv"

	"github.com/kailas-cloud/cityvec/internal/db"
	"github.com/kailas-cloud/cityvec/internal/domain"
	"github.com/kailas-cloud/cityvec/internal/repository/tables"
)

// Column names as persisted. name_admin/name_city disambiguate the two "name" columns of the join.
const (
	colID                = db.KeyColumn
	colCountryCode       = "country_code"
	colCountry           = "country"
	colGeonameID         = "geonameid"
	colName              = "name"
	colAdmin1Code        = "admin1_code"
	colPopulation        = "population"
	colConcatenatedCodes = "concatenated_codes"
	colNameAdmin         = "name_admin"
	colNameCity          = "name_city"
)

// Countries is the codec of the countries table.
var Countries = tables.Codec[domain.CountryRecord]{
	Encode: func(records []domain.CountryRecord) *db.Table {
		t := &db.Table{Columns: []db.Column{
			{Name: colCountryCode, Type: db.ColumnText},
			{Name: colCountry, Type: db.ColumnText},
		}}
		t.Rows = make([][]any, len(records))
		for i, r := range records {
			t.Rows[i] = []any{r.CountryCode, r.Country}
		}
		return t
	},
	Decode: func(t *db.Table) ([]domain.CountryRecord, error) {
		idx, err := indexes(t, colCountryCode, colCountry)
		if err != nil {
			return nil, err
		}
		out := make([]domain.CountryRecord, len(t.Rows))
		for i, row := range t.Rows {
			d := decoder{row: row, n: i}
			out[i] = domain.CountryRecord{
				CountryCode: d.str(idx[0]),
				Country:     d.str(idx[1]),
			}
			if d.err != nil {
				return nil, d.err
			}
		}
		return out, nil
	},
}

// Cities is the codec of the cities15000 table.
var Cities = tables.Codec[domain.CityRecord]{
	Encode: func(records []domain.CityRecord) *db.Table {
		t := &db.Table{Columns: []db.Column{
			{Name: colGeonameID, Type: db.ColumnInteger},
			{Name: colName, Type: db.ColumnText},
			{Name: colCountryCode, Type: db.ColumnText},
			{Name: colAdmin1Code, Type: db.ColumnText},
			{Name: colPopulation, Type: db.ColumnInteger},
		}}
		t.Rows = make([][]any, len(records))
		for i, r := range records {
			t.Rows[i] = []any{r.GeonameID, r.Name, r.CountryCode, r.Admin1Code, r.Population}
		}
		return t
	},
	Decode: func(t *db.Table) ([]domain.CityRecord, error) {
		idx, err := indexes(t, colGeonameID, colName, colCountryCode, colAdmin1Code, colPopulation)
		if err != nil {
			return nil, err
		}
		out := make([]domain.CityRecord, len(t.Rows))
		for i, row := range t.Rows {
			d := decoder{row: row, n: i}
			out[i] = domain.CityRecord{
				GeonameID:   d.int(idx[0]),
				Name:        d.str(idx[1]),
				CountryCode: d.str(idx[2]),
				Admin1Code:  d.str(idx[3]),
				Population:  d.int(idx[4]),
			}
			if d.err != nil {
				return nil, d.err
			}
		}
		return out, nil
	},
}

// AdminCodes is the codec of the admin_codes table.
var AdminCodes = tables.Codec[domain.AdminCodeRecord]{
	Encode: func(records []domain.AdminCodeRecord) *db.Table {
		t := &db.Table{Columns: []db.Column{
			{Name: colConcatenatedCodes, Type: db.ColumnText},
			{Name: colName, Type: db.ColumnText},
		}}
		t.Rows = make([][]any, len(records))
		for i, r := range records {
			t.Rows[i] = []any{r.ConcatenatedCodes, r.Name}
		}
		return t
	},
	Decode: func(t *db.Table) ([]domain.AdminCodeRecord, error) {
		idx, err := indexes(t, colConcatenatedCodes, colName)
		if err != nil {
			return nil, err
		}
		out := make([]domain.AdminCodeRecord, len(t.Rows))
		for i, row := range t.Rows {
			d := decoder{row: row, n: i}
			out[i] = domain.AdminCodeRecord{
				ConcatenatedCodes: d.str(idx[0]),
				Name:              d.str(idx[1]),
			}
			if d.err != nil {
				return nil, d.err
			}
		}
		return out, nil
	},
}

// Catalog is the codec of the selected_cities table.
var Catalog = tables.Codec[domain.CatalogEntry]{
	Encode: func(entries []domain.CatalogEntry) *db.Table {
		t := &db.Table{Columns: []db.Column{
			{Name: colID, Type: db.ColumnInteger},
			{Name: colConcatenatedCodes, Type: db.ColumnText},
			{Name: colNameAdmin, Type: db.ColumnText},
			{Name: colCountryCode, Type: db.ColumnText},
			{Name: colAdmin1Code, Type: db.ColumnText},
			{Name: colCountry, Type: db.ColumnText},
			{Name: colGeonameID, Type: db.ColumnInteger},
			{Name: colNameCity, Type: db.ColumnText},
			{Name: colPopulation, Type: db.ColumnInteger},
		}}
		t.Rows = make([][]any, len(entries))
		for i, e := range entries {
			t.Rows[i] = []any{
				e.ID, e.ConcatenatedCodes, e.NameAdmin, e.CountryCode, e.Admin1Code,
				e.Country, e.GeonameID, e.NameCity, e.Population,
			}
		}
		return t
	},
	Decode: func(t *db.Table) ([]domain.CatalogEntry, error) {
		idx, err := indexes(t, colID, colConcatenatedCodes, colNameAdmin, colCountryCode,
			colAdmin1Code, colCountry, colGeonameID, colNameCity, colPopulation)
		if err != nil {
			return nil, err
		}
		out := make([]domain.CatalogEntry, len(t.Rows))
		for i, row := range t.Rows {
			d := decoder{row: row, n: i}
			out[i] = domain.CatalogEntry{
				ID:                d.int(idx[0]),
				ConcatenatedCodes: d.str(idx[1]),
				NameAdmin:         d.str(idx[2]),
				CountryCode:       d.str(idx[3]),
				Admin1Code:        d.str(idx[4]),
				Country:           d.str(idx[5]),
				GeonameID:         d.int(idx[6]),
				NameCity:          d.str(idx[7]),
				Population:        d.int(idx[8]),
			}
			if d.err != nil {
				return nil, d.err
			}
		}
		return out, nil
	},
}

// Embeddings is the codec of a ce_<model> table: an id column followed by one
// REAL column per vector component, named "0", "1", ...
var Embeddings = tables.Codec[domain.EmbeddingRow]{
	Encode: func(rows []domain.EmbeddingRow) *db.Table {
		dim := 0
		if len(rows) > 0 {
			dim = len(rows[0].Vector)
		}
		t := &db.Table{Columns: make([]db.Column, 0, dim+1)}
		t.Columns = append(t.Columns, db.Column{Name: colID, Type: db.ColumnInteger})
		for j := range dim {
			t.Columns = append(t.Columns, db.Column{Name: strconv.Itoa(j), Type: db.ColumnReal})
		}
		t.Rows = make([][]any, len(rows))
		for i, r := range rows {
			row := make([]any, 0, len(r.Vector)+1)
			row = append(row, r.ID)
			for _, v := range r.Vector {
				row = append(row, float64(v))
			}
			t.Rows[i] = row
		}
		return t
	},
	Decode: func(t *db.Table) ([]domain.EmbeddingRow, error) {
		idIdx := t.ColumnIndex(colID)
		if idIdx < 0 {
			return nil, fmt.Errorf("%w: missing column %q", db.ErrInvalidTable, colID)
		}
		dim := len(t.Columns) - 1
		compIdx := make([]int, dim)
		for j := range dim {
			compIdx[j] = t.ColumnIndex(strconv.Itoa(j))
			if compIdx[j] < 0 {
				return nil, fmt.Errorf("%w: missing component column %d", db.ErrInvalidTable, j)
			}
		}

		out := make([]domain.EmbeddingRow, len(t.Rows))
		for i, row := range t.Rows {
			d := decoder{row: row, n: i}
			vec := make([]float32, dim)
			for j, c := range compIdx {
				vec[j] = float32(d.float(c))
			}
			out[i] = domain.EmbeddingRow{ID: d.int(idIdx), Vector: vec}
			if d.err != nil {
				return nil, d.err
			}
		}
		return out, nil
	},
}

func indexes(t *db.Table, names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		idx[i] = t.ColumnIndex(n)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: missing column %q", db.ErrInvalidTable, n)
		}
	}
	return idx, nil
}

// decoder converts one row, keeping the first conversion error.
type decoder struct {
	row []any
	n   int
	err error
}

func (d *decoder) fail(col int, want string) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: row %d column %d: want %s, got %T", db.ErrInvalidTable, d.n, col, want, d.row[col])
	}
}

func (d *decoder) str(col int) string {
	s, ok := db.AsString(d.row[col])
	if !ok {
		d.fail(col, "text")
	}
	return s
}

func (d *decoder) int(col int) int64 {
	n, ok := db.AsInt64(d.row[col])
	if !ok {
		d.fail(col, "integer")
	}
	return n
}

func (d *decoder) float(col int) float64 {
	f, ok := db.AsFloat64(d.row[col])
	if !ok {
		d.fail(col, "real")
	}
	return f
}

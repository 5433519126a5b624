package result

import (
	"fmt"

	"github.com/kailas-cloud/cityvec/internal/domain"
)

// Match is a single ranked city hit.
type Match struct {
	name       string
	code       string
	region     string
	country    string
	similarity float64
}

// New creates a match.
func New(name, code, region, country string, similarity float64) Match {
	return Match{name: name, code: code, region: region, country: country, similarity: similarity}
}

// FromEntry projects a catalog entry to the public match shape.
func FromEntry(e *domain.CatalogEntry, similarity float64) Match {
	return New(e.NameCity, e.ConcatenatedCodes, e.NameAdmin, e.Country, similarity)
}

// Name returns the city name.
func (m *Match) Name() string { return m.name }

// Code returns the "<country>.<admin1>" code.
func (m *Match) Code() string { return m.code }

// Region returns the admin division name.
func (m *Match) Region() string { return m.region }

// Country returns the country name.
func (m *Match) Country() string { return m.country }

// Similarity returns the cosine similarity to the query.
func (m *Match) Similarity() float64 { return m.similarity }

// Format selects the output shape of a query.
type Format string

const (
	// Records returns one key/value record per match.
	Records Format = "records"
	// Tabular returns a single column-oriented table.
	Tabular Format = "table"
)

// ParseFormat validates a format name; empty means Records.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", Records:
		return Records, nil
	case Tabular:
		return Tabular, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", domain.ErrInvalidQuery, s)
	}
}

// Columns is the public schema of a match, in table order.
var Columns = []string{"name", "code", "region", "country", "similarity"}

// Record is the key/value form of a match.
type Record map[string]any

// Table is the tabular form of a result set.
type Table struct {
	Columns []string
	Rows    [][]any
}

// ToRecords converts matches to key/value records.
func ToRecords(matches []Match) []Record {
	out := make([]Record, len(matches))
	for i := range matches {
		m := &matches[i]
		out[i] = Record{
			"name":       m.name,
			"code":       m.code,
			"region":     m.region,
			"country":    m.country,
			"similarity": m.similarity,
		}
	}
	return out
}

// ToTable converts matches to a table with Columns as header.
func ToTable(matches []Match) Table {
	rows := make([][]any, len(matches))
	for i := range matches {
		m := &matches[i]
		rows[i] = []any{m.name, m.code, m.region, m.country, m.similarity}
	}
	return Table{Columns: Columns, Rows: rows}
}

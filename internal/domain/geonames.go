package domain

import "strings"

// Fixed cache table names.
const (
	TableCountries      = "countries"
	TableCities         = "cities15000"
	TableAdminCodes     = "admin_codes"
	TableSelectedCities = "selected_cities"
)

// DefaultModelID is the multilingual LaBSE checkpoint fine-tuned on GeoNames city names.
const DefaultModelID = "dima-does-code/LaBSE-geonames-15K-MBML-5e-v1"

// DefaultCountryCodes is the catalog allow-list used when none is configured.
func DefaultCountryCodes() []string {
	return []string{"RU", "BY", "KG", "KZ", "AM", "TR", "RS"}
}

// CountryRecord is a row of countryInfo.txt projected to code and name.
type CountryRecord struct {
	CountryCode string
	Country     string
}

// CityRecord is a row of cities15000.txt projected to the joined columns.
type CityRecord struct {
	GeonameID   int64
	Name        string
	CountryCode string
	Admin1Code  string
	Population  int64
}

// AdminCodeRecord is a row of admin1CodesASCII.txt.
type AdminCodeRecord struct {
	ConcatenatedCodes string // "<country_code>.<admin1_code>"
	Name              string
}

// Split returns the country and admin1 codes. ok is false when there is no '.'.
func (r AdminCodeRecord) Split() (countryCode, admin1Code string, ok bool) {
	return strings.Cut(r.ConcatenatedCodes, ".")
}

// CatalogEntry is a city joined with its admin division and country.
// ID is the catalog position assigned at build time and keys the embedding rows.
type CatalogEntry struct {
	ID                int64
	ConcatenatedCodes string
	NameAdmin         string
	CountryCode       string
	Admin1Code        string
	Country           string
	GeonameID         int64
	NameCity          string
	Population        int64
}

package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/cityvec/internal/domain"
)

// Projected column positions of the GeoNames dumps.
const (
	countryColCode = 0
	countryColName = 4

	cityColGeonameID   = 0
	cityColName        = 1
	cityColCountryCode = 8
	cityColAdmin1Code  = 10
	cityColPopulation  = 14

	adminColCodes = 0
	adminColName  = 1
)

// ParseCountries reads countryInfo.txt. Comment lines are skipped.
func ParseCountries(path string) ([]domain.CountryRecord, error) {
	var d dedup[domain.CountryRecord]
	err := scanTSV(path, true, func(fields []string, _ int) error {
		code, ok1 := field(fields, countryColCode)
		name, ok2 := field(fields, countryColName)
		if ok1 && ok2 {
			d.add(domain.CountryRecord{CountryCode: code, Country: name})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d.rows, nil
}

// ParseCities reads cities15000.txt.
func ParseCities(path string) ([]domain.CityRecord, error) {
	var d dedup[domain.CityRecord]
	err := scanTSV(path, false, func(fields []string, line int) error {
		rawID, ok1 := field(fields, cityColGeonameID)
		name, ok2 := field(fields, cityColName)
		cc, ok3 := field(fields, cityColCountryCode)
		a1, ok4 := field(fields, cityColAdmin1Code)
		rawPop, ok5 := field(fields, cityColPopulation)
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			return nil
		}

		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s:%d: geonameid %q is not an integer", domain.ErrIngestion, path, line, rawID)
		}
		pop, err := strconv.ParseInt(rawPop, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s:%d: population %q is not an integer", domain.ErrIngestion, path, line, rawPop)
		}

		d.add(domain.CityRecord{GeonameID: id, Name: name, CountryCode: cc, Admin1Code: a1, Population: pop})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d.rows, nil
}

// ParseAdminCodes reads admin1CodesASCII.txt.
func ParseAdminCodes(path string) ([]domain.AdminCodeRecord, error) {
	var d dedup[domain.AdminCodeRecord]
	err := scanTSV(path, false, func(fields []string, _ int) error {
		codes, ok1 := field(fields, adminColCodes)
		name, ok2 := field(fields, adminColName)
		if ok1 && ok2 {
			d.add(domain.AdminCodeRecord{ConcatenatedCodes: codes, Name: name})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d.rows, nil
}

// field returns the trimmed value at i; ok is false for a missing or empty value.
func field(fields []string, i int) (string, bool) {
	if i >= len(fields) {
		return "", false
	}
	v := strings.TrimSpace(fields[i])
	return v, v != ""
}

// dedup keeps the first occurrence of every record in input order.
type dedup[T comparable] struct {
	seen map[T]struct{}
	rows []T
}

func (d *dedup[T]) add(r T) {
	if d.seen == nil {
		d.seen = make(map[T]struct{})
	}
	if _, ok := d.seen[r]; ok {
		return
	}
	d.seen[r] = struct{}{}
	d.rows = append(d.rows, r)
}

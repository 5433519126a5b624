package session

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/cityvec/internal/db"
	"github.com/kailas-cloud/cityvec/internal/db/sqldb"
	"github.com/kailas-cloud/cityvec/internal/domain"
	"github.com/kailas-cloud/cityvec/internal/usecase/catalog"
)

// Config is fixed for the lifetime of a session.
type Config struct {
	ModelID      string
	CountryCodes []string
	Paths        catalog.Paths
	Store        sqldb.Config
}

// Validate reports missing or malformed settings as domain.ErrConfiguration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ModelID) == "" {
		return fmt.Errorf("%w: model id is required", domain.ErrConfiguration)
	}
	if !db.ValidTableName(domain.EmbeddingTableName(c.ModelID)) {
		return fmt.Errorf("%w: model id %q does not yield a valid table name", domain.ErrConfiguration, c.ModelID)
	}
	if len(c.CountryCodes) == 0 {
		return fmt.Errorf("%w: at least one country code is required", domain.ErrConfiguration)
	}
	for _, cc := range c.CountryCodes {
		if len(cc) != 2 || strings.ToUpper(cc) != cc {
			return fmt.Errorf("%w: country code %q must be two upper-case letters", domain.ErrConfiguration, cc)
		}
	}
	if c.Paths.Countries == "" || c.Paths.Cities == "" || c.Paths.AdminCodes == "" {
		return fmt.Errorf("%w: countries, cities and admin codes paths are required", domain.ErrConfiguration)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	return nil
}

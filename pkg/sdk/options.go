package cityvec

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/db/sqldb"
	"github.com/kailas-cloud/cityvec/internal/domain"
	"github.com/kailas-cloud/cityvec/internal/usecase/catalog"
	"github.com/kailas-cloud/cityvec/internal/usecase/session"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	store     sqldb.Config
	modelID   string
	countries []string
	paths     catalog.Paths
	embedder  Embedder

	logger     *zap.Logger
	metricsReg prometheus.Registerer

	// opener replaces the SQL opener in tests.
	opener session.Opener
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		modelID:   domain.DefaultModelID,
		countries: domain.DefaultCountryCodes(),
	}
}

// WithPostgres stores the tables in a Postgres database.
func WithPostgres(host string, port int, user, password, database string) Option {
	return optionFunc(func(c *clientConfig) {
		c.store = sqldb.Config{
			Driver:   sqldb.DriverPostgres,
			Host:     host,
			Port:     port,
			User:     user,
			Password: password,
			Name:     database,
			SSLMode:  "disable",
		}
	})
}

// WithSQLite stores the tables in a SQLite file.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.store = sqldb.Config{Driver: sqldb.DriverSQLite, Path: path}
	})
}

// WithSources sets the GeoNames countryInfo, cities and admin1 code files.
// Plain, .gz and .zip files are accepted.
func WithSources(countries, cities, adminCodes string) Option {
	return optionFunc(func(c *clientConfig) {
		c.paths = catalog.Paths{Countries: countries, Cities: cities, AdminCodes: adminCodes}
	})
}

// WithModel sets the model identifier. It names the embedding table, so
// switching models builds a new table instead of reusing vectors.
func WithModel(id string) Option {
	return optionFunc(func(c *clientConfig) {
		c.modelID = id
	})
}

// WithCountries replaces the default country allow-list (ISO 3166 alpha-2 codes).
func WithCountries(codes ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.countries = append([]string(nil), codes...)
	})
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// DefaultModelID is the model used when WithModel is not given.
const DefaultModelID = domain.DefaultModelID

// Package config loads the immutable service configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/cityvec/internal/db/sqldb"
	"github.com/kailas-cloud/cityvec/internal/db/valkey"
	"github.com/kailas-cloud/cityvec/internal/domain"
	"github.com/kailas-cloud/cityvec/internal/usecase/catalog"
	"github.com/kailas-cloud/cityvec/internal/usecase/session"
)

// Config holds the cityvec configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Model    ModelConfig    `yaml:"model"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Data     DataConfig     `yaml:"data"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	DefaultTopK     int `yaml:"default_top_k"`
	MaxTopK         int `yaml:"max_top_k"`

	// APIKeys enables Bearer auth on /v1 routes when non-empty.
	APIKeys []string `yaml:"api_keys"`
}

// DatabaseConfig holds relational store connection settings.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres, sqlite (default: postgres)
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	Path     string `yaml:"path"` // sqlite only
}

// ModelConfig identifies the embedding model and its OpenAI-compatible endpoint.
type ModelConfig struct {
	ID         string `yaml:"id"`
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"` // 0 = model default
	BatchSize  int    `yaml:"batch_size"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// CatalogConfig holds the country allow-list.
type CatalogConfig struct {
	CountryCodes []string `yaml:"country_codes"`
}

// DataConfig locates the GeoNames source files.
type DataConfig struct {
	CountriesPath  string `yaml:"countries_path"`
	CitiesPath     string `yaml:"cities_path"`
	AdminCodesPath string `yaml:"admin_codes_path"`
}

// CacheConfig enables the Valkey query-embedding cache when Addrs is set.
type CacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLSec   int      `yaml:"ttl_sec"` // 0 = no expiry
}

// Enabled reports whether a cache backend is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.DefaultTopK <= 0 {
		c.HTTP.DefaultTopK = 1
	}
	if c.HTTP.MaxTopK <= 0 {
		c.HTTP.MaxTopK = 100
	}
	if c.Database.Driver == "" {
		c.Database.Driver = sqldb.DriverPostgres
	}
	if c.Database.Driver == sqldb.DriverPostgres {
		if c.Database.Port <= 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	}
	if c.Model.ID == "" {
		c.Model.ID = domain.DefaultModelID
	}
	if c.Model.Provider == "" {
		c.Model.Provider = "openai"
	}
	if c.Model.TimeoutSec <= 0 {
		c.Model.TimeoutSec = 60
	}
	if len(c.Catalog.CountryCodes) == 0 {
		c.Catalog.CountryCodes = domain.DefaultCountryCodes()
	}
	if c.Data.CountriesPath == "" {
		c.Data.CountriesPath = "data/countryInfo.txt"
	}
	if c.Data.CitiesPath == "" {
		c.Data.CitiesPath = "data/cities15000.txt"
	}
	if c.Data.AdminCodesPath == "" {
		c.Data.AdminCodesPath = "data/admin1CodesASCII.txt"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.DefaultTopK > c.HTTP.MaxTopK {
		return fmt.Errorf("http.default_top_k (%d) exceeds http.max_top_k (%d)", c.HTTP.DefaultTopK, c.HTTP.MaxTopK)
	}
	if err := c.Session().Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if c.Model.BaseURL == "" {
		return fmt.Errorf("model.base_url is required")
	}
	if c.Model.Dimensions < 0 {
		return fmt.Errorf("model.dimensions must be >= 0, got %d", c.Model.Dimensions)
	}
	if c.Cache.TTLSec < 0 {
		return fmt.Errorf("cache.ttl_sec must be >= 0, got %d", c.Cache.TTLSec)
	}
	return nil
}

// SQL returns the table store settings.
func (c *Config) SQL() sqldb.Config {
	return sqldb.Config{
		Driver:   c.Database.Driver,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Name:     c.Database.Name,
		SSLMode:  c.Database.SSLMode,
		Path:     c.Database.Path,
	}
}

// Valkey returns the cache client settings.
func (c *Config) Valkey() valkey.Config {
	return valkey.Config{
		Addrs:    c.Cache.Addrs,
		Password: c.Cache.Password,
		TTL:      secondsToDuration(c.Cache.TTLSec),
	}
}

// Session returns the immutable session settings.
func (c *Config) Session() session.Config {
	return session.Config{
		ModelID:      c.Model.ID,
		CountryCodes: append([]string(nil), c.Catalog.CountryCodes...),
		Paths: catalog.Paths{
			Countries:  c.Data.CountriesPath,
			Cities:     c.Data.CitiesPath,
			AdminCodes: c.Data.AdminCodesPath,
		},
		Store: c.SQL(),
	}
}

// ModelTimeout returns the embedding request timeout.
func (c *Config) ModelTimeout() time.Duration { return secondsToDuration(c.Model.TimeoutSec) }

func secondsToDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

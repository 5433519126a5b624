package sqldb

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/kailas-cloud/cityvec/internal/db"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds connection parameters for a relational store.
type Config struct {
	Driver   string // postgres, sqlite
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite only
}

// Validate checks that the parameters required by the driver are present.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, "postgresql":
		if c.Host == "" {
			return fmt.Errorf("database.host is required for %s", c.Driver)
		}
		if c.Name == "" {
			return fmt.Errorf("database.name is required for %s", c.Driver)
		}
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("database.port must be between 1 and 65535, got %d", c.Port)
		}
	case DriverSQLite:
		if c.Path == "" {
			return fmt.Errorf("database.path is required for %s", c.Driver)
		}
	default:
		return fmt.Errorf("%w: %q", db.ErrUnknownDriver, c.Driver)
	}
	return nil
}

// DSN builds a postgres:// URL from the connection parameters.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// Open creates a store for the configured driver.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	switch cfg.Driver {
	case DriverPostgres, "postgresql":
		s, err := NewPostgresStore(ctx, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return s, nil
	case DriverSQLite:
		s, err := NewSQLiteStore(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", db.ErrUnknownDriver, cfg.Driver)
	}
}

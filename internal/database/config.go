package database

import (
	"fmt"
	"time"
)

// Config selects the profile store and how to reach it. Driver is
// "sqlite" (default) or "postgres".
type Config struct {
	Driver     string
	SQLitePath string
	Postgres   PostgresConfig
}

// PostgresConfig holds PostgreSQL connection and pool settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Target describes where profiles are stored, without credentials.
func (c Config) Target() string {
	if DialectType(c.Driver) != DialectPostgres {
		return c.SQLitePath
	}
	p := c.Postgres
	return fmt.Sprintf("%s@%s:%d/%s", p.User, p.Host, p.Port, p.Database)
}

// DefaultConfig stores profiles in the SQLite file at sqlitePath.
func DefaultConfig(sqlitePath string) Config {
	return Config{Driver: string(DialectSQLite), SQLitePath: sqlitePath}
}

// DefaultPostgresConfig is a local server with a small pool; advisor
// requests touch the store only for profile reads and writes.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:            "localhost",
		Port:            5432,
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

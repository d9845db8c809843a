package pg

import (
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

type Config struct {
	Driver   string
	User     string
	Host     string
	Port     string
	Password string
	Database string
	SSLMode  string
	// Path is the database file for the sqlite driver.
	Path string
}

func (c Config) driver() string {
	if c.Driver == "" {
		return DriverPostgres
	}
	return c.Driver
}

// DSN renders the connection string understood by both lib/pq and pgx.
func (c Config) DSN() string {
	if c.driver() == DriverSqlite {
		return c.Path
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Database, c.Port, sslMode)
}

// newSqlConnection opens a plain database/sql handle, goose needs one.
func newSqlConnection(config Config) (*sql.DB, error) {
	switch config.driver() {
	case DriverPostgres:
		return sql.Open("postgres", config.DSN())
	case DriverSqlite:
		return sql.Open("sqlite3", config.DSN())
	}
	return nil, errors.Errorf("pg: unsupported driver %q", config.Driver)
}

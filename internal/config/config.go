package config

import (
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/session-ledger/pkg/logger"
	"github.com/nimasrn/session-ledger/pkg/pg"
	"github.com/pkg/errors"
)

const (
	DriverPostgres = pg.DriverPostgres
	DriverSqlite   = pg.DriverSqlite
)

var config *Config

// Config holds every configuration value of the ledger binaries.
// Nothing else should read the environment directly.
type Config struct {
	AppEnv              string `env:"APP_ENV,default=dev"`
	AppName             string `env:"APP_NAME,default=session_ledger"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI,default=/metrics"`

	HttpListenAddr           string        `env:"HTTP_LISTEN_ADDR,default=:3333"`
	HttpBaseRequestUrl       string        `env:"HTTP_BASE_REQUEST_URI,default=/transactions"`
	HttpServerReadTimeout    time.Duration `env:"HTTP_SERVER_READ_TIMEOUT,default=2500ms"`
	HttpServerWriteTimeout   time.Duration `env:"HTTP_SERVER_WRITE_TIMEOUT,default=2500ms"`
	HttpServerRequestTimeout time.Duration `env:"HTTP_SERVER_REQUEST_TIMEOUT,default=5s"`

	DBDriver   string `env:"DB_DRIVER,default=postgres"`
	SqlitePath string `env:"SQLITE_PATH,default=./ledger.db"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT,default=5432"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT,default=5432"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	PostgresSSLMode string `env:"POSTGRES_SSLMODE,default=disable"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX,default=ledger:"`

	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL,default=24h"`

	PromNamespace string `env:"PROM_NAMESPACE,default=ledger"`

	LogLevel string `env:"LOG_LEVEL"`

	SessionCookiePath string        `env:"SESSION_COOKIE_PATH,default=/"`
	SessionMaxAge     time.Duration `env:"SESSION_MAX_AGE,default=168h"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return errors.Wrap(err, "failed to map env variables to configuration object")
	}

	if err := c.validate(); err != nil {
		return err
	}

	config = c
	return nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.PostgresWriteHost == "" {
			return errors.New("POSTGRES_WRITE_HOST is required for the postgres driver")
		}
	case DriverSqlite:
		if c.SqlitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return errors.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if !strings.HasPrefix(c.HttpBaseRequestUrl, "/") {
		return errors.Errorf("HTTP_BASE_REQUEST_URI must start with /, got %q", c.HttpBaseRequestUrl)
	}
	if c.SessionMaxAge <= 0 {
		return errors.New("SESSION_MAX_AGE must be positive")
	}
	return nil
}

// Store returns the write-side connection settings for the configured driver.
func (c *Config) Store() pg.Config {
	if c.DBDriver == DriverSqlite {
		return pg.Config{Driver: pg.DriverSqlite, Path: c.SqlitePath}
	}
	return pg.Config{
		Driver:   pg.DriverPostgres,
		User:     c.PostgresWriteUser,
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
		SSLMode:  c.PostgresSSLMode,
	}
}

// ReadStore returns the read replica settings. A deployment without a
// replica leaves POSTGRES_READ_HOST empty and reads from the primary.
func (c *Config) ReadStore() pg.Config {
	if c.DBDriver == DriverSqlite || c.PostgresReadHost == "" {
		return c.Store()
	}
	return pg.Config{
		Driver:   pg.DriverPostgres,
		User:     c.PostgresReadUser,
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
		SSLMode:  c.PostgresSSLMode,
	}
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

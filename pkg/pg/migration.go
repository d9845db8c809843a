package pg

import (
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/nimasrn/session-ledger/pkg/logger"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

func gooseDialect(driver string) string {
	if driver == DriverSqlite {
		return "sqlite3"
	}
	return "postgres"
}

// Migrate applies every pending migration found in dir.
func Migrate(cfg Config, dir string) error {
	if err := goose.SetDialect(gooseDialect(cfg.driver())); err != nil {
		return errors.Wrap(err, "migration: set dialect")
	}

	db, err := newSqlConnection(cfg)
	if err != nil {
		return errors.Wrap(err, "migration: open connection")
	}
	defer db.Close()

	if err = goose.Up(db, dir); err != nil {
		return errors.Wrapf(err, "migration: up from %s", dir)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return errors.Wrap(err, "migration: read version")
	}
	logger.Info("migrations applied", "dir", dir, "version", version)
	return nil
}

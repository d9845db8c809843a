package pg

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type DB struct {
	read  *gorm.DB
	write *gorm.DB
}

func dialector(config Config) (gorm.Dialector, error) {
	switch config.driver() {
	case DriverPostgres:
		return postgres.Open(config.DSN()), nil
	case DriverSqlite:
		return sqlite.Open(config.DSN()), nil
	}
	return nil, errors.Errorf("pg: unsupported driver %q", config.Driver)
}

func Create(config Config, withDebug bool) (*gorm.DB, error) {
	d, err := dialector(config)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, err
	}

	if withDebug {
		db = db.Debug()
	}
	return db, nil
}

func CreateReadWrite(readConfig Config, writeConfig Config, withDebug bool) (*DB, error) {
	write, err := Create(writeConfig, withDebug)
	if err != nil {
		return nil, errors.Wrap(err, "open write connection")
	}
	if readConfig == writeConfig {
		return New(write, write), nil
	}
	read, err := Create(readConfig, withDebug)
	if err != nil {
		return nil, errors.Wrap(err, "open read connection")
	}
	return New(read, write), nil
}

// New wraps already opened handles; read and write may be the same handle.
func New(read, write *gorm.DB) *DB {
	return &DB{read: read, write: write}
}

func (r *DB) Write(ctx context.Context) *gorm.DB {
	return r.write.WithContext(ctx)
}

func (r *DB) Read(ctx context.Context) *gorm.DB {
	return r.read.WithContext(ctx)
}

// Ping checks both sides of the split.
func (r *DB) Ping(ctx context.Context) error {
	for _, g := range []*gorm.DB{r.write, r.read} {
		sqlDB, err := g.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *DB) Close() error {
	var firstErr error
	for _, g := range []*gorm.DB{r.write, r.read} {
		sqlDB, err := g.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if r.read == r.write {
			break
		}
	}
	return firstErr
}

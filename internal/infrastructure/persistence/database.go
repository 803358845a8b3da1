package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/erp/stockledger/internal/infrastructure/persistence/tenant"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Database owns the gorm handle for the process.
type Database struct {
	DB *gorm.DB
}

type Options struct {
	Logger        *zap.Logger
	LogLevel      string        // the log.level setting; see logger.SQLLogLevel
	SlowThreshold time.Duration // zero disables slow-query warnings
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(cfg.DSN()), nil
	case "", "postgres":
		return postgres.Open(cfg.DSN()), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// NewDatabase connects, sizes the pool and pings. SQLite gets a single
// connection: it has one writer, and ":memory:" exists per connection.
func NewDatabase(cfg *config.DatabaseConfig, opts Options) (*Database, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewSQLLogger(log, logger.SQLLogConfig{
			Level:         logger.SQLLogLevel(opts.LogLevel),
			SlowThreshold: opts.SlowThreshold,
		}),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	d := &Database{DB: db}
	pool, err := d.pool()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		pool.SetMaxOpenConns(1)
	} else {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
		pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
		pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}
	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return d, nil
}

func (d *Database) pool() (*sql.DB, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	return pool, nil
}

// AutoMigrate builds the schema from the models. Postgres deployments run
// the versioned SQL migrations instead.
func (d *Database) AutoMigrate() error {
	return d.DB.AutoMigrate(models.AllModels()...)
}

// TenantDB installs the isolation callbacks on this connection.
func (d *Database) TenantDB(cfg tenant.Config) (*tenant.TenantDB, error) {
	return tenant.NewTenantDB(d.DB, cfg)
}

func (d *Database) Close() error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.Close()
}

func (d *Database) Ping() error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.Ping()
}

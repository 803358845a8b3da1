// Package migration runs and authors the versioned postgres schema with
// golang-migrate. SQLite deployments use gorm AutoMigrate instead.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// Source picks the migration files: Dir on disk when set, else the
// embedded FS.
type Source struct {
	FS  fs.FS
	Dir string
}

// open returns either a source instance or a source URL for migrate to open.
func (s Source) open() (source.Driver, string, error) {
	switch {
	case s.Dir != "":
		return nil, "file://" + s.Dir, nil
	case s.FS == nil:
		return nil, "", errors.New("migration source has neither FS nor Dir")
	}
	d, err := iofs.New(s.FS, ".")
	if err != nil {
		return nil, "", fmt.Errorf("open embedded migrations: %w", err)
	}
	return d, "iofs", nil
}

// New migrates through an already open connection. Close closes db as well.
func New(db *sql.DB, src Source, logger *zap.Logger) (*Migrator, error) {
	target, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	srcDriver, srcURL, err := src.open()
	if err != nil {
		return nil, err
	}

	var m *migrate.Migrate
	if srcDriver != nil {
		m, err = migrate.NewWithInstance(srcURL, srcDriver, "postgres", target)
	} else {
		m, err = migrate.NewWithDatabaseInstance(srcURL, "postgres", target)
	}
	return wrap(m, err, logger)
}

// NewFromURL lets golang-migrate open the database from a postgres:// URL.
func NewFromURL(databaseURL string, src Source, logger *zap.Logger) (*Migrator, error) {
	srcDriver, srcURL, err := src.open()
	if err != nil {
		return nil, err
	}

	var m *migrate.Migrate
	if srcDriver != nil {
		m, err = migrate.NewWithSourceInstance(srcURL, srcDriver, databaseURL)
	} else {
		m, err = migrate.New(srcURL, databaseURL)
	}
	return wrap(m, err, logger)
}

func wrap(m *migrate.Migrate, err error, logger *zap.Logger) (*Migrator, error) {
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	m.Log = migrateLogger{logger.Named("migrate").Sugar()}
	return &Migrator{migrate: m, logger: logger}, nil
}

// migrateLogger routes golang-migrate's own progress lines through zap.
// Its verbose output appears at debug level.
type migrateLogger struct {
	log *zap.SugaredLogger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.log.Debugf(strings.TrimSuffix(format, "\n"), v...)
}

func (l migrateLogger) Verbose() bool {
	return l.log.Desugar().Core().Enabled(zapcore.DebugLevel)
}

func (m *Migrator) Up() error {
	return m.apply("up", m.migrate.Up)
}

func (m *Migrator) Down() error {
	return m.apply("down", m.migrate.Down)
}

// Steps moves n versions; negative n rolls back.
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("step %d", n), func() error { return m.migrate.Steps(n) })
}

func (m *Migrator) GoTo(version uint) error {
	return m.apply(fmt.Sprintf("goto %d", version), func() error { return m.migrate.Migrate(version) })
}

// apply treats migrate.ErrNoChange as success and logs the version reached.
func (m *Migrator) apply(op string, fn func() error) error {
	m.logger.Info("Migrating", zap.String("op", op))
	switch err := fn(); {
	case errors.Is(err, migrate.ErrNoChange):
		m.logger.Info("Schema already current", zap.String("op", op))
		return nil
	case err != nil:
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info("Migration completed",
		zap.String("op", op),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}

// Version reports 0 when no migration has run.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied without running it, clearing a dirty
// state left by a failed migration.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Drop removes every table, ledger history included.
func (m *Migrator) Drop() error {
	m.logger.Warn("Dropping all tables")
	if err := m.migrate.Drop(); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.migrate.Close()
	return errors.Join(srcErr, dbErr)
}

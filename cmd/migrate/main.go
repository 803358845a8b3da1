// Command migrate applies and authors the versioned postgres schema.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/migration"
	"github.com/erp/stockledger/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type options struct {
	dir         string
	databaseURL string
	confirm     bool
}

var errUsage = errors.New("usage")

func main() {
	var (
		opts     options
		logLevel string
	)
	flag.StringVar(&opts.dir, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.databaseURL, "database-url", "", "postgres:// URL to migrate instead of the configured database")
	flag.BoolVar(&opts.confirm, "confirm", false, "Confirm a destructive command (drop)")
	flag.Usage = printUsage
	flag.Parse()

	log, err := logger.New(&logger.Config{Level: logLevel, Format: "console", TimeFormat: "2006-01-02 15:04:05"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	err = run(flag.Args(), opts, log)
	if errors.Is(err, errUsage) {
		if msg := err.Error(); msg != errUsage.Error() {
			log.Error(msg)
		}
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.Error(err))
	}
}

func run(args []string, opts options, log *zap.Logger) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	// create and list only touch migration files
	switch cmd {
	case "create":
		return create(rest, opts.dir, log)
	case "list":
		return list(opts.dir)
	}

	m, closeDB, err := connect(opts, log)
	if err != nil {
		return err
	}
	defer closeDB()
	defer m.Close()

	switch cmd {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		n, err := intArg(rest, "step <n>")
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: step count must be non-zero", errUsage)
		}
		return m.Steps(n)
	case "goto":
		v, err := intArg(rest, "goto <version>")
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("%w: version must not be negative", errUsage)
		}
		return m.GoTo(uint(v))
	case "force":
		v, err := intArg(rest, "force <version>")
		if err != nil {
			return err
		}
		return m.Force(v)
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if v == 0 {
			log.Info("No migrations applied")
			return nil
		}
		log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return nil
	case "drop":
		if !opts.confirm {
			return fmt.Errorf("%w: drop destroys every tenant's ledger; re-run as 'migrate -confirm drop'", errUsage)
		}
		return m.Drop()
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func create(args []string, dir string, log *zap.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: create <name> [description]", errUsage)
	}
	var description string
	if len(args) > 1 {
		description = args[1]
	}
	if dir == "" {
		dir = "migrations"
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.Uint("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath))
	return nil
}

func list(dir string) error {
	var (
		entries []migration.Entry
		err     error
	)
	if dir == "" {
		entries, err = migration.List(migrations.FS)
	} else {
		entries, err = migration.ListMigrations(dir)
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No migrations found")
	}
	for _, e := range entries {
		suffix := ""
		if !e.HasDown {
			suffix = "  (no down)"
		}
		fmt.Printf("  %s%s\n", e.BaseName(), suffix)
	}
	return nil
}

// connect builds a migrator against -database-url, or against the
// database the STOCK_ configuration names.
func connect(opts options, log *zap.Logger) (*migration.Migrator, func(), error) {
	src := migration.Source{FS: migrations.FS, Dir: opts.dir}
	if opts.databaseURL != "" {
		m, err := migration.NewFromURL(opts.databaseURL, src, log)
		return m, func() {}, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return nil, nil, fmt.Errorf("versioned migrations target postgres; the %s driver migrates itself on startup", cfg.Database.Driver)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	m, err := migration.New(db, src, log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, func() { _ = db.Close() }, nil
}

func intArg(args []string, usage string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: %s", errUsage, usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, args[0])
	}
	return n, nil
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: migrate [flags] <command> [arguments]

Commands:
  up                    apply every pending migration
  down                  roll every migration back
  step <n>              apply n migrations; negative n rolls back
  goto <version>        migrate up or down to version
  version               print the applied version
  force <version>       record version without running it (clears a dirty state)
  drop                  drop every table (needs -confirm)
  create <name> [desc]  write the next numbered up/down pair
  list                  list migrations

Flags:
  -path dir             migrations directory (default: embedded; create writes ./migrations)
  -database-url url     migrate this postgres:// URL instead of the configured database
  -log-level level      debug, info, warn or error (default info)
  -confirm              allow drop

Without -database-url the STOCK_DATABASE_* settings pick the database.

Examples:
  migrate up
  migrate step -1
  migrate create add_item_sku "Add a SKU column to items"
  migrate -database-url 'postgres://app@db:5432/stockledger?sslmode=require' version
`)
}

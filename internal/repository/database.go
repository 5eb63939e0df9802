package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/baleriiupanki/tienda-val/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// NewDB establishes a new connection to the configured database.
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	dsn := cfg.URL
	if cfg.Driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Connect(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite serialises writers anyway, and an in-memory database only
		// lives as long as its single connection.
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Driver, err)
	}

	logger.Info("Successfully connected to the database!", zap.String("driver", cfg.Driver))
	return db, nil
}

// sqliteDSN turns on foreign key enforcement, which SQLite leaves off by default.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// MigrateDB applies every pending migration for the connection's dialect.
func MigrateDB(db *sqlx.DB, logger *zap.Logger) error {
	m, release, err := newMigrator(context.Background(), db)
	if err != nil {
		return err
	}
	defer release()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("couldn't run database migration: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Database migration was run successfully",
		zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// RollbackDB reverts every applied migration.
func RollbackDB(db *sqlx.DB, logger *zap.Logger) error {
	m, release, err := newMigrator(context.Background(), db)
	if err != nil {
		return err
	}
	defer release()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("couldn't roll back database migration: %w", err)
	}

	logger.Info("Database migrations were rolled back")
	return nil
}

// newMigrator builds a migrator on top of the shared pool. The returned
// release func must be called once migrating is done; it hands back any
// connection the migrator pinned but never closes db itself.
func newMigrator(ctx context.Context, db *sqlx.DB) (*migrate.Migrate, func(), error) {
	dialect := db.DriverName()
	release := func() {}

	var (
		driver database.Driver
		err    error
	)
	switch dialect {
	case DriverPostgres:
		conn, connErr := db.Conn(ctx)
		if connErr != nil {
			return nil, nil, fmt.Errorf("couldn't get connection for running migrations: %w", connErr)
		}
		release = func() { _ = conn.Close() }
		driver, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
	case DriverSQLite:
		driver, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	default:
		return nil, nil, fmt.Errorf("no migrations for driver %q", dialect)
	}
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("couldn't get database instance for running migrations: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+dialect)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("couldn't open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dialect, driver)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("couldn't create migrate instance: %w", err)
	}
	return m, release, nil
}

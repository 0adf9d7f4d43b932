package database

import (
	"context"
	"database/sql"
	"fmt"

	"todolist/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB is the todo store. It owns a database/sql pool; every method runs a
// single statement on a connection borrowed from that pool.
type DB struct {
	db      *sql.DB
	dialect dialect
	logger  zerolog.Logger
}

// Open bootstraps the configured database and returns a ready store: the
// target database exists, the pool answers a ping and the todos table is in
// place. Any failure is returned unretried.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger) (*DB, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	if err := EnsureDatabase(ctx, cfg, logger); err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}

	dsn, err := targetDSN(cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	configurePool(sqlDB, d, cfg)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := New(sqlDB, d.name, logger)
	if err := db.EnsureTable(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	db.logger.Info().Str("driver", d.name).Msg("database ready")
	return db, nil
}

// New wraps an already opened pool. driver picks the SQL dialect and falls
// back to postgres when unknown.
func New(sqlDB *sql.DB, driver string, logger *zerolog.Logger) *DB {
	d, err := dialectFor(driver)
	if err != nil {
		d = postgresDialect
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "database").Logger()
	}
	return &DB{db: sqlDB, dialect: d, logger: l}
}

func configurePool(sqlDB *sql.DB, d dialect, cfg config.DatabaseConfig) {
	if d.name == sqliteDialect.name {
		// A single connection serializes writers and keeps :memory: shared.
		sqlDB.SetMaxOpenConns(1)
		return
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

// EnsureTable creates the todos table when it is missing.
func (db *DB) EnsureTable(ctx context.Context) error {
	if _, err := db.db.ExecContext(ctx, db.dialect.createSQL); err != nil {
		return fmt.Errorf("failed to create todos table: %w", err)
	}
	db.logger.Info().Msg("todos table ready")
	return nil
}

// Driver reports the dialect in use.
func (db *DB) Driver() string {
	return db.dialect.name
}

func (db *DB) PingContext(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.db.Close()
}

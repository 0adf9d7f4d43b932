package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"todolist/internal/config"
	"todolist/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// pgDuplicateDatabase is SQLSTATE duplicate_database.
const pgDuplicateDatabase = "42P04"

// EnsureDatabase makes sure the target database exists. For postgres it
// connects to the maintenance database, looks the target up by name and
// creates it when absent. For sqlite the database is the file itself, so only
// its directory has to exist. Safe to call any number of times.
func EnsureDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger) error {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return err
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "database").Logger()
	}

	if d.name == sqliteDialect.name {
		return ensureSQLiteDir(cfg.Path)
	}

	adminDSN, target, err := postgresAdminDSN(cfg)
	if err != nil {
		return err
	}

	admin, err := sql.Open(postgresDialect.driverName, adminDSN)
	if err != nil {
		return fmt.Errorf("open admin connection: %w", err)
	}
	defer admin.Close()
	admin.SetMaxOpenConns(1)

	return ensurePostgresDatabase(ctx, admin, target, &l)
}

func ensurePostgresDatabase(ctx context.Context, admin *sql.DB, name string, logger *zerolog.Logger) error {
	var one int
	err := admin.QueryRowContext(ctx, `SELECT 1 FROM pg_database WHERE datname = $1`, name).Scan(&one)
	switch {
	case err == nil:
		logger.Info().Str("database", name).Msg("database already exists")
		return nil
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("check database %q: %w", name, err)
	}

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateDatabase {
			logger.Info().Str("database", name).Msg("database already exists")
			return nil
		}
		return fmt.Errorf("create database %q: %w", name, err)
	}

	logger.Info().Str("database", name).Msg("database created")
	return nil
}

func ensureSQLiteDir(path string) error {
	if path == "" || isSQLiteMemory(path) {
		return nil
	}
	dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

func isSQLiteMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory") || strings.HasPrefix(path, "file::memory:")
}

// DatabaseName reports the name of the database the store lives in.
func DatabaseName(cfg config.DatabaseConfig) (string, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return "", err
	}
	if d.name == sqliteDialect.name {
		return cfg.Path, nil
	}
	_, name, err := postgresTarget(cfg)
	if err != nil {
		return "", err
	}
	if name == "" {
		name = models.DefaultDatabaseName
	}
	return name, nil
}

package database

import (
	"fmt"
	"net/url"
	"strings"

	"todolist/internal/config"
	"todolist/internal/models"
)

// dialect holds the driver-specific pieces of the store: how to reach the
// target database and the SQL text of the four statements the service runs.
type dialect struct {
	name       string
	driverName string
	createSQL  string
	listSQL    string
	insertSQL  string
	deleteSQL  string
}

var postgresDialect = dialect{
	name:       models.DriverPostgres,
	driverName: "pgx",
	createSQL: `CREATE TABLE IF NOT EXISTS todos (
            id SERIAL PRIMARY KEY,
            title TEXT NOT NULL
        )`,
	listSQL:   `SELECT id, title FROM todos ORDER BY id`,
	insertSQL: `INSERT INTO todos (title) VALUES ($1) RETURNING id, title`,
	deleteSQL: `DELETE FROM todos WHERE id = $1`,
}

var sqliteDialect = dialect{
	name:       models.DriverSQLite,
	driverName: "sqlite3",
	createSQL: `CREATE TABLE IF NOT EXISTS todos (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL
        )`,
	listSQL:   `SELECT id, title FROM todos ORDER BY id`,
	insertSQL: `INSERT INTO todos (title) VALUES (?) RETURNING id, title`,
	deleteSQL: `DELETE FROM todos WHERE id = ?`,
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case models.DriverPostgres, "postgresql", "pgx":
		return postgresDialect, nil
	case models.DriverSQLite, "sqlite":
		return sqliteDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// targetDSN returns the connection string of the database that holds the
// todos table.
func targetDSN(cfg config.DatabaseConfig) (string, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return "", err
	}
	if d.name == models.DriverSQLite {
		return cfg.Path, nil
	}
	u, _, err := postgresTarget(cfg)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// postgresTarget parses the configured URL and fills in the database name
// and sslmode when the URL leaves them out.
func postgresTarget(cfg config.DatabaseConfig) (*url.URL, string, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, "", fmt.Errorf("parse database url: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, "", fmt.Errorf("database url must use postgres:// or postgresql://, got %q", u.Scheme)
	}

	name := strings.Trim(u.Path, "/")
	if name == "" {
		name = models.DefaultDatabaseName
	}
	u.Path = "/" + name

	if cfg.SSLMode != "" {
		q := u.Query()
		if q.Get("sslmode") == "" {
			q.Set("sslmode", cfg.SSLMode)
			u.RawQuery = q.Encode()
		}
	}
	return u, name, nil
}

// postgresAdminDSN points the target URL at the maintenance database. A
// database cannot be created over a connection to itself.
func postgresAdminDSN(cfg config.DatabaseConfig) (dsn string, target string, err error) {
	u, target, err := postgresTarget(cfg)
	if err != nil {
		return "", "", err
	}
	admin := cfg.AdminDatabase
	if admin == "" {
		admin = models.DefaultAdminDatabase
	}
	u.Path = "/" + admin
	return u.String(), target, nil
}

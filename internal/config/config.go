package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"todolist/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	API        APIConfig        `yaml:"api"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Client     ClientConfig     `yaml:"client"`
	Google     GoogleConfig     `yaml:"google"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// DatabaseConfig selects the storage driver. URL is a Postgres connection
// string whose path names the target database; Path is the SQLite file.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	AdminDatabase   string        `yaml:"admin_database"`
	SSLMode         string        `yaml:"sslmode"`
	Path            string        `yaml:"path"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	CORS      APICORSConfig      `yaml:"cors"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type APIGRPCConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port"`
	Reflection bool `yaml:"reflection"`
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// APIRateLimitConfig is disabled when RPS is zero.
type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ClientConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
}

// Load reads .env (if present), the YAML file at configPath (if non-empty),
// then applies defaults and environment overrides before validating.
func Load(configPath string) (*Config, error) {
	cfg, err := read(configPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadClient is Load for processes that only talk to the HTTP API and never
// open the database, so the storage settings are not validated.
func LoadClient(configPath string) (*Config, error) {
	return read(configPath)
}

func read(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		expanded := []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv lets the process environment override the file. PG_URI and PORT
// are the two settings the service has always been configured with.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("PG_URI")); v != "" {
		c.Database.URL = v
		if c.Database.Driver == "" {
			c.Database.Driver = models.DriverPostgres
		}
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_DRIVER")); v != "" {
		c.Database.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_PATH")); v != "" {
		c.Database.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.API.HTTP.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		c.Redis.Address = v
	}
	if v := strings.TrimSpace(os.Getenv("TODO_API")); v != "" {
		c.Client.BaseURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "todolist"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = models.DriverPostgres
	}
	if c.Database.AdminDatabase == "" {
		c.Database.AdminDatabase = models.DefaultAdminDatabase
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = models.DefaultHTTPPort
	}
	if c.API.HTTP.ReadHeaderTimeout == 0 {
		c.API.HTTP.ReadHeaderTimeout = 5 * time.Second
	}
	if c.API.HTTP.WriteTimeout == 0 {
		c.API.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.API.HTTP.ShutdownTimeout == 0 {
		c.API.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = models.DefaultGRPCPort
	}
	if len(c.API.CORS.AllowedOrigins) == 0 {
		c.API.CORS.AllowedOrigins = []string{"*"}
	}
	if c.API.RateLimit.RPS > 0 && c.API.RateLimit.Burst <= 0 {
		c.API.RateLimit.Burst = 5
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = models.DefaultPrometheusPort
	}
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = fmt.Sprintf("http://localhost:%d", c.API.HTTP.Port)
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = 10 * time.Second
	}
	if c.Google.SheetName == "" {
		c.Google.SheetName = "Todos"
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case models.DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database url is required for postgres (set PG_URI)")
		}
	case models.DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required for sqlite3")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if err := validatePort("api.http.port", c.API.HTTP.Port); err != nil {
		return err
	}
	if c.API.GRPC.Enabled {
		if err := validatePort("api.grpc.port", c.API.GRPC.Port); err != nil {
			return err
		}
	}
	if c.Monitoring.PrometheusEnabled {
		if err := validatePort("monitoring.prometheus_port", c.Monitoring.PrometheusPort); err != nil {
			return err
		}
	}
	if c.API.RateLimit.RPS < 0 {
		return errors.New("api.rate_limit.rps must not be negative")
	}
	return nil
}

func validatePort(name string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%s out of range: %d", name, port)
	}
	return nil
}

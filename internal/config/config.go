package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverREST     = "rest"
)

type Config struct {
	Hevy      HevyConfig      `yaml:"hevy"`
	Store     StoreConfig     `yaml:"store"`
	Sync      SyncConfig      `yaml:"sync"`
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
}

type HevyConfig struct {
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	PageSize int    `yaml:"page_size"`
	MaxPages int    `yaml:"max_pages"`
}

// StoreConfig selects where synced tables live. The database section is
// also used by the rest driver to create tables.
type StoreConfig struct {
	Driver     string         `yaml:"driver"`
	URL        string         `yaml:"url"`
	Database   DatabaseConfig `yaml:"database"`
	SQLitePath string         `yaml:"sqlite_path"`
	REST       RESTConfig     `yaml:"rest"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RESTConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

type SyncConfig struct {
	WorkoutsTable string        `yaml:"workouts_table"`
	RoutinesTable string        `yaml:"routines_table"`
	ChunkSize     int           `yaml:"chunk_size"`
	PageSize      int           `yaml:"page_size"`
	PageDelay     time.Duration `yaml:"page_delay"`
}

type ServerConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// DSN returns store.url when set, otherwise the DSN built from store.database.
// It is empty when neither is configured.
func (s StoreConfig) DSN() string {
	if s.URL != "" {
		return s.URL
	}
	if s.Database.Host == "" {
		return ""
	}
	return s.Database.DSN()
}

// Defaults returns a config with every optional field filled in.
func Defaults() *Config {
	return &Config{
		Hevy: HevyConfig{
			BaseURL:  "https://api.hevyapp.com",
			PageSize: 10,
		},
		Store: StoreConfig{
			Driver:     DriverPostgres,
			Database:   DatabaseConfig{Port: 5432},
			SQLitePath: "hevysync.db",
		},
		Sync: SyncConfig{
			WorkoutsTable: "workouts",
			RoutinesTable: "routines",
			ChunkSize:     400,
			PageSize:      1000,
			PageDelay:     200 * time.Millisecond,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Tailscale: TailscaleConfig{
			Hostname: "hevysync",
			StateDir: "tsnet-state",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. An empty path skips the file.
// Env vars use the prefix HEVYSYNC_:
//
//	HEVYSYNC_HEVY_BASE_URL, HEVYSYNC_HEVY_API_KEY, HEVYSYNC_HEVY_PAGE_SIZE, HEVYSYNC_HEVY_MAX_PAGES,
//	HEVYSYNC_STORE_DRIVER, HEVYSYNC_DATABASE_URL, HEVYSYNC_SQLITE_PATH,
//	HEVYSYNC_DB_HOST, HEVYSYNC_DB_PORT, HEVYSYNC_DB_NAME,
//	HEVYSYNC_DB_USER, HEVYSYNC_DB_PASSWORD, HEVYSYNC_DB_SSLMODE,
//	HEVYSYNC_REST_URL, HEVYSYNC_REST_API_KEY,
//	HEVYSYNC_SYNC_WORKOUTS_TABLE, HEVYSYNC_SYNC_ROUTINES_TABLE,
//	HEVYSYNC_SYNC_CHUNK_SIZE, HEVYSYNC_SYNC_PAGE_SIZE, HEVYSYNC_SYNC_PAGE_DELAY,
//	HEVYSYNC_SERVER_HOST, HEVYSYNC_SERVER_PORT, HEVYSYNC_SERVER_API_KEY,
//	HEVYSYNC_TAILSCALE_ENABLED, HEVYSYNC_TAILSCALE_HOSTNAME, HEVYSYNC_TAILSCALE_STATE_DIR,
//	HEVYSYNC_LOG_LEVEL
//
// HEVY_API_KEY, DATABASE_URL, SUPABASE_URL and SUPABASE_ANON_KEY are
// honored as fallbacks for the matching HEVYSYNC_ variables.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// lookup returns the first non-empty variable among keys.
func lookup(keys ...string) (string, bool) {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v, true
		}
	}
	return "", false
}

func envString(dst *string, keys ...string) {
	if v, ok := lookup(keys...); ok {
		*dst = v
	}
}

func envInt(dst *int, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envBool(dst *bool, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envDuration(dst *time.Duration, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	envString(&cfg.Hevy.BaseURL, "HEVYSYNC_HEVY_BASE_URL")
	envString(&cfg.Hevy.APIKey, "HEVYSYNC_HEVY_API_KEY", "HEVY_API_KEY")

	envString(&cfg.Store.Driver, "HEVYSYNC_STORE_DRIVER")
	envString(&cfg.Store.URL, "HEVYSYNC_DATABASE_URL", "DATABASE_URL")
	envString(&cfg.Store.SQLitePath, "HEVYSYNC_SQLITE_PATH")
	envString(&cfg.Store.Database.Host, "HEVYSYNC_DB_HOST")
	envString(&cfg.Store.Database.Name, "HEVYSYNC_DB_NAME")
	envString(&cfg.Store.Database.User, "HEVYSYNC_DB_USER")
	envString(&cfg.Store.Database.Password, "HEVYSYNC_DB_PASSWORD")
	envString(&cfg.Store.Database.SSLMode, "HEVYSYNC_DB_SSLMODE")
	envString(&cfg.Store.REST.URL, "HEVYSYNC_REST_URL", "SUPABASE_URL")
	envString(&cfg.Store.REST.APIKey, "HEVYSYNC_REST_API_KEY", "SUPABASE_ANON_KEY")

	envString(&cfg.Sync.WorkoutsTable, "HEVYSYNC_SYNC_WORKOUTS_TABLE")
	envString(&cfg.Sync.RoutinesTable, "HEVYSYNC_SYNC_ROUTINES_TABLE")

	envString(&cfg.Server.Host, "HEVYSYNC_SERVER_HOST")
	envString(&cfg.Server.APIKey, "HEVYSYNC_SERVER_API_KEY")

	envString(&cfg.Tailscale.Hostname, "HEVYSYNC_TAILSCALE_HOSTNAME")
	envString(&cfg.Tailscale.StateDir, "HEVYSYNC_TAILSCALE_STATE_DIR")

	envString(&cfg.Log.Level, "HEVYSYNC_LOG_LEVEL")

	for _, f := range []func() error{
		func() error { return envInt(&cfg.Hevy.PageSize, "HEVYSYNC_HEVY_PAGE_SIZE") },
		func() error { return envInt(&cfg.Hevy.MaxPages, "HEVYSYNC_HEVY_MAX_PAGES") },
		func() error { return envInt(&cfg.Store.Database.Port, "HEVYSYNC_DB_PORT") },
		func() error { return envInt(&cfg.Sync.ChunkSize, "HEVYSYNC_SYNC_CHUNK_SIZE") },
		func() error { return envInt(&cfg.Sync.PageSize, "HEVYSYNC_SYNC_PAGE_SIZE") },
		func() error { return envDuration(&cfg.Sync.PageDelay, "HEVYSYNC_SYNC_PAGE_DELAY") },
		func() error { return envInt(&cfg.Server.Port, "HEVYSYNC_SERVER_PORT") },
		func() error { return envBool(&cfg.Tailscale.Enabled, "HEVYSYNC_TAILSCALE_ENABLED") },
	} {
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.Hevy.PageSize <= 0 {
		return fmt.Errorf("hevy.page_size must be positive")
	}
	if c.Hevy.MaxPages < 0 {
		return fmt.Errorf("hevy.max_pages must not be negative")
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DSN() == "" {
			return fmt.Errorf("store.url or store.database.host is required for the postgres driver")
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case DriverREST:
		if c.Store.REST.URL == "" {
			return fmt.Errorf("store.rest.url is required for the rest driver")
		}
		if c.Store.REST.APIKey == "" {
			return fmt.Errorf("store.rest.api_key is required for the rest driver")
		}
	default:
		return fmt.Errorf("store.driver %q is not one of postgres, sqlite, rest", c.Store.Driver)
	}

	if c.Sync.WorkoutsTable == "" || c.Sync.RoutinesTable == "" {
		return fmt.Errorf("sync.workouts_table and sync.routines_table are required")
	}
	if c.Sync.WorkoutsTable == c.Sync.RoutinesTable {
		return fmt.Errorf("sync.workouts_table and sync.routines_table must differ")
	}
	if c.Sync.ChunkSize <= 0 || c.Sync.PageSize <= 0 {
		return fmt.Errorf("sync.chunk_size and sync.page_size must be positive")
	}
	if c.Sync.PageDelay < 0 {
		return fmt.Errorf("sync.page_delay must not be negative")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port is required")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// RequireSource checks the settings needed to fetch from Hevy.
func (c *Config) RequireSource() error {
	if c.Hevy.APIKey == "" {
		return fmt.Errorf("hevy.api_key is required")
	}
	return nil
}

// RequireServerAuth checks the settings only the HTTP server needs.
func (c *Config) RequireServerAuth() error {
	if c.Server.APIKey == "" {
		return fmt.Errorf("server.api_key is required")
	}
	return nil
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	l, _ := parseLevel(c.Log.Level)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", s)
	}
}

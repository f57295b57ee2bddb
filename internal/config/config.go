package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	LocalDB  LocalDBConfig
	RemoteDB RemoteDBConfig
	Cache    CacheConfig
	Sync     SyncConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"agrovet-pos"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// LocalDBConfig holds the on-device offline store settings.
type LocalDBConfig struct {
	Path string `envconfig:"OFFLINE_DB_PATH" default:"./data/offline.db"`
}

// RemoteDBConfig holds the hosted database service settings.
type RemoteDBConfig struct {
	Type     string `envconfig:"REMOTE_DB_TYPE" default:"postgres"` // postgres or mysql
	Host     string `envconfig:"REMOTE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"REMOTE_DB_PORT" default:"5432"`
	Name     string `envconfig:"REMOTE_DB_NAME" default:"agrovet"`
	User     string `envconfig:"REMOTE_DB_USER" default:"postgres"`
	Password string `envconfig:"REMOTE_DB_PASS" default:""`
	SSLMode  string `envconfig:"REMOTE_DB_SSLMODE" default:"disable"`
}

// CacheConfig holds read-cache settings.
type CacheConfig struct {
	Type string `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// SyncConfig holds the reconciliation policy.
type SyncConfig struct {
	// Interval between periodic passes in production; development uses
	// DevInterval so local testing converges faster.
	Interval      time.Duration `envconfig:"SYNC_INTERVAL" default:"30s"`
	DevInterval   time.Duration `envconfig:"SYNC_DEV_INTERVAL" default:"10s"`
	MaxRetries    int           `envconfig:"SYNC_MAX_RETRIES" default:"3"`
	RetryDelay    time.Duration `envconfig:"SYNC_RETRY_DELAY" default:"5s"`
	ProbeInterval time.Duration `envconfig:"SYNC_PROBE_INTERVAL" default:"5s"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (r *RemoteDBConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		r.User, r.Password, r.Host, r.Port, r.Name, r.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (r *RemoteDBConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		r.User, r.Password, r.Host, r.Port, r.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// EffectiveInterval returns the pass interval for the given environment.
func (s *SyncConfig) EffectiveInterval(development bool) time.Duration {
	if development {
		return s.DevInterval
	}
	return s.Interval
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

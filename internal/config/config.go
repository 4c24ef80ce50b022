package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_ENV"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`      // debug, info, warn, error
	LogFormat  string `envconfig:"LOG_FORMAT" default:"color"`    // text, json, color
	AdminToken string `envconfig:"ADMIN_TOKEN"`
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Storage    StorageConfig
	Redis      RedisConfig
	Postgres   PostgresConfig
	StoreAPI   StoreAPIConfig
	Catalog    CatalogConfig
	Session    SessionConfig
	Checkout   CheckoutConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// StorageConfig selects where session documents and the store config live.
type StorageConfig struct {
	Backend string `envconfig:"KV_BACKEND" default:"memory"` // memory, redis, postgres
}

type RedisConfig struct {
	Addr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password  string        `envconfig:"REDIS_PASSWORD"`
	DB        int           `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix string        `envconfig:"REDIS_KEY_PREFIX" default:"storefront"`
	TTL       time.Duration `envconfig:"REDIS_TTL" default:"720h"`
}

// PostgresConfig holds PostgreSQL database connection details.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DBNAME"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// StoreAPIConfig points at the external multi-tenant REST API.
type StoreAPIConfig struct {
	BaseURL         string        `envconfig:"STORE_API_BASE_URL" required:"true"`
	Store           string        `envconfig:"STORE_SLUG" required:"true"`
	Timeout         time.Duration `envconfig:"STORE_API_TIMEOUT" default:"10s"`
	RetryAttempts   int           `envconfig:"STORE_API_RETRY_ATTEMPTS" default:"3"`
	RetryInitial    time.Duration `envconfig:"STORE_API_RETRY_INITIAL_INTERVAL" default:"200ms"`
	RetryMax        time.Duration `envconfig:"STORE_API_RETRY_MAX_INTERVAL" default:"2s"`
	BreakerFailures uint32        `envconfig:"STORE_API_BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"STORE_API_BREAKER_TIMEOUT" default:"30s"`
}

type CatalogConfig struct {
	CacheTTL     time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"5m"`
	FeedCooldown time.Duration `envconfig:"FEED_COOLDOWN" default:"300ms"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"30m"`
	SweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"1m"`
}

type CheckoutConfig struct {
	Locale       string `envconfig:"CHECKOUT_LOCALE" default:"en"`
	Currency     string `envconfig:"CHECKOUT_CURRENCY" default:"USD"`
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"storefront.events"`
}

// Load reads the configuration from environment variables and checks the
// settings the selected backends depend on.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: REDIS_ADDR is required for the redis backend")
		}
	case BackendPostgres:
		if c.Postgres.Host == "" || c.Postgres.User == "" || c.Postgres.DBName == "" {
			return fmt.Errorf("config: POSTGRES_HOST, POSTGRES_USER and POSTGRES_DBNAME are required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: invalid KV_BACKEND %q", c.Storage.Backend)
	}

	u, err := url.Parse(c.StoreAPI.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid STORE_API_BASE_URL %q", c.StoreAPI.BaseURL)
	}
	if c.StoreAPI.RetryAttempts < 1 {
		return fmt.Errorf("config: STORE_API_RETRY_ATTEMPTS must be at least 1")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

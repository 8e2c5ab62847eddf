package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_PORT"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
// `required:"true"` makes an environment variable mandatory.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // e.g., development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`      // e.g., debug, info, warn, error
	LogFormat  string `envconfig:"LOG_FORMAT" default:"json"`     // json or console
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Postgres   PostgresConfig
	Auth       AuthConfig
	EcoScore   EcoScoreConfig
	Catalog    CatalogConfig
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

// PostgresConfig holds PostgreSQL database connection details.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	DBName   string `envconfig:"POSTGRES_DBNAME" required:"true"`
	// Migrate applies the embedded schema migrations on startup.
	Migrate bool `envconfig:"POSTGRES_MIGRATE" default:"true"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName)
}

// URL returns the connection string in URL form, as expected by the migrator.
func (pc *PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(pc.User, pc.Password),
		Host:     pc.Host + ":" + pc.Port,
		Path:     "/" + pc.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// AuthConfig holds the bearer token settings.
type AuthConfig struct {
	JWTSecret string        `envconfig:"AUTH_JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"24h"`
}

// EcoScoreConfig holds the Open Food Facts enrichment settings.
type EcoScoreConfig struct {
	Enabled        bool          `envconfig:"ECOSCORE_ENABLED" default:"true"`
	BaseURL        string        `envconfig:"ECOSCORE_BASE_URL" default:"https://world.openfoodfacts.org"`
	Timeout        time.Duration `envconfig:"ECOSCORE_TIMEOUT" default:"2s"`
	CachePath      string        `envconfig:"ECOSCORE_CACHE_PATH" default:"ecoscore_cache.db"`
	CacheTTL       time.Duration `envconfig:"ECOSCORE_CACHE_TTL" default:"1h"`
	DefaultBarcode string        `envconfig:"ECOSCORE_DEFAULT_BARCODE" default:""`
	// RequestBudget is shared by every lookup made while serving one request.
	RequestBudget time.Duration `envconfig:"ECOSCORE_REQUEST_BUDGET" default:"3s"`
	Concurrency   int           `envconfig:"ECOSCORE_CONCURRENCY" default:"8"`
}

// CatalogConfig holds behaviour switches for the catalog resources.
type CatalogConfig struct {
	PageSize int `envconfig:"CATALOG_PAGE_SIZE" default:"100"`
	// DisableCascadeArticles extends the disable cascade from products to their articles.
	DisableCascadeArticles bool `envconfig:"CATALOG_DISABLE_CASCADE_ARTICLES" default:"false"`
}

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if cfg.Catalog.PageSize <= 0 {
		return nil, fmt.Errorf("invalid CATALOG_PAGE_SIZE: %d", cfg.Catalog.PageSize)
	}
	if cfg.EcoScore.RequestBudget <= 0 || cfg.EcoScore.Concurrency <= 0 {
		return nil, fmt.Errorf("invalid eco-score limits: budget %s, concurrency %d",
			cfg.EcoScore.RequestBudget, cfg.EcoScore.Concurrency)
	}
	return &cfg, nil
}

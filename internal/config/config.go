package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Auth        AuthConfig
	Marketplace MarketplaceConfig
	Sync        SyncConfig
	Logging     LoggingConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	FrontendURL     string
	Environment     string
}

// StorageConfig contains blob store configuration
type StorageConfig struct {
	Driver string // sqlite or postgres
	Path   string // sqlite file path
	DSN    string // postgres connection string
}

// AuthConfig contains dashboard authentication configuration
type AuthConfig struct {
	JWTSecret         string
	TokenExpiry       time.Duration
	AdminPasswordHash string // bcrypt hash of the operator password
}

// MarketplaceConfig contains marketplace API and OAuth configuration
type MarketplaceConfig struct {
	BaseURL         string
	AuthURL         string // external authorization endpoint
	ClientID        string
	RedirectURL     string
	TokenBackendURL string // trusted backend that performs the secret exchange
	MasterSecret    string // key material for the credential store
	RequestTimeout  time.Duration
	CacheTTL        time.Duration
	RatePerSecond   float64
	RateBurst       int
}

// SyncConfig contains sync orchestration configuration
type SyncConfig struct {
	Interval time.Duration
	Workers  int
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "sqlite"),
			Path:   getEnv("STORAGE_PATH", "./sellerhub.db"),
			DSN:    getEnv("STORAGE_DSN", ""),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			TokenExpiry:       getEnvAsDuration("JWT_EXPIRY", 12*time.Hour),
			AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Marketplace: MarketplaceConfig{
			BaseURL:         getEnv("MARKETPLACE_BASE_URL", "https://api.mercadolibre.com"),
			AuthURL:         getEnv("MARKETPLACE_AUTH_URL", "https://auth.mercadolibre.com/authorization"),
			ClientID:        getEnv("MARKETPLACE_CLIENT_ID", ""),
			RedirectURL:     getEnv("MARKETPLACE_REDIRECT_URL", "http://localhost:8080/api/v1/accounts/callback"),
			TokenBackendURL: getEnv("TOKEN_BACKEND_URL", "http://localhost:9000"),
			MasterSecret:    getEnv("CREDENTIAL_MASTER_SECRET", ""),
			RequestTimeout:  getEnvAsDuration("MARKETPLACE_REQUEST_TIMEOUT", 15*time.Second),
			CacheTTL:        getEnvAsDuration("MARKETPLACE_CACHE_TTL", 5*time.Minute),
			RatePerSecond:   getEnvAsFloat("MARKETPLACE_RATE_PER_SECOND", 10),
			RateBurst:       getEnvAsInt("MARKETPLACE_RATE_BURST", 20),
		},
		Sync: SyncConfig{
			Interval: getEnvAsDuration("SYNC_INTERVAL", 30*time.Minute),
			Workers:  getEnvAsInt("SYNC_WORKERS", 3),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Marketplace.MasterSecret == "" {
		return fmt.Errorf("CREDENTIAL_MASTER_SECRET is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("STORAGE_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("STORAGE_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Sync.Workers < 1 {
		return fmt.Errorf("SYNC_WORKERS must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

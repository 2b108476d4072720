package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mixmentor/mixmentor/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Blob          BlobConfig
	LLM           LLMConfig
	Auth          AuthConfig
	Stripe        StripeConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// AllowedOrigins enables CORS when the web client is served elsewhere
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// RedisConfig holds Redis connection and session settings
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	PoolSize   int
	SessionTTL time.Duration
}

// BlobConfig holds audio blob storage settings
type BlobConfig struct {
	// Backend selects the blob store: "s3" or "filesystem"
	Backend string

	// Filesystem backend
	FilesystemRoot string
	PublicBaseURL  string

	// S3 backend
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// LLMConfig holds the completion endpoint settings
type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// AuthConfig holds login and session settings
type AuthConfig struct {
	OIDCIssuerURL    string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
	// OwnerOpenID promotes one external identity to admin on login
	OwnerOpenID   string
	SecureCookies bool
}

// StripeConfig holds billing settings
type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	SuccessURL     string
	CancelURL      string
	ProPriceID     string
	ProPlusPriceID string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("MIXMENTOR_HOST", "0.0.0.0"),
			Port:        getEnv("MIXMENTOR_PORT", "8080"),
			ReadTimeout: getEnvDuration("MIXMENTOR_READ_TIMEOUT", 15*time.Second),
			// Model round-trips run inside the request, so writes get a
			// longer deadline than reads
			WriteTimeout:    getEnvDuration("MIXMENTOR_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:     getEnvDuration("MIXMENTOR_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("MIXMENTOR_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("MIXMENTOR_HEALTH_PORT", "9090"),
			AllowedOrigins:  getEnvList("MIXMENTOR_ALLOWED_ORIGINS", nil),
		},
		Database: DatabaseConfig{
			URL:         getEnv("MIXMENTOR_POSTGRES_URL", ""),
			MaxConns:    getEnvInt("MIXMENTOR_POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("MIXMENTOR_POSTGRES_MIN_CONNS", 2),
			Timeout:     getEnvDuration("MIXMENTOR_POSTGRES_TIMEOUT", 5*time.Second),
			MaxLifetime: getEnvDuration("MIXMENTOR_POSTGRES_MAX_LIFETIME", 30*time.Minute),
			MaxIdleTime: getEnvDuration("MIXMENTOR_POSTGRES_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:        getEnv("MIXMENTOR_REDIS_URL", "redis://localhost:6379"),
			Password:   getEnv("MIXMENTOR_REDIS_PASSWORD", ""),
			DB:         getEnvInt("MIXMENTOR_REDIS_DB", 0),
			PoolSize:   getEnvInt("MIXMENTOR_REDIS_POOL_SIZE", 10),
			SessionTTL: getEnvDuration("MIXMENTOR_SESSION_TTL", 7*24*time.Hour),
		},
		Blob: BlobConfig{
			Backend:        getEnv("MIXMENTOR_BLOB_BACKEND", "filesystem"),
			FilesystemRoot: getEnv("MIXMENTOR_FILESYSTEM_ROOT", "/var/mixmentor/audio"),
			PublicBaseURL:  getEnv("MIXMENTOR_PUBLIC_BASE_URL", "http://localhost:8080/files"),
			S3Endpoint:     getEnv("MIXMENTOR_S3_ENDPOINT", ""),
			S3Region:       getEnv("MIXMENTOR_S3_REGION", "us-east-1"),
			S3Bucket:       getEnv("MIXMENTOR_S3_BUCKET", ""),
			S3AccessKey:    getEnv("MIXMENTOR_S3_ACCESS_KEY", ""),
			S3SecretKey:    getEnv("MIXMENTOR_S3_SECRET_KEY", ""),
			S3UsePathStyle: getEnvBool("MIXMENTOR_S3_USE_PATH_STYLE", false),
		},
		LLM: LLMConfig{
			BaseURL: getEnv("MIXMENTOR_LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  getEnv("MIXMENTOR_LLM_API_KEY", ""),
			Model:   getEnv("MIXMENTOR_LLM_MODEL", "gpt-4o-mini"),
		},
		Auth: AuthConfig{
			OIDCIssuerURL:    getEnv("MIXMENTOR_OIDC_ISSUER_URL", ""),
			OIDCClientID:     getEnv("MIXMENTOR_OIDC_CLIENT_ID", ""),
			OIDCClientSecret: getEnv("MIXMENTOR_OIDC_CLIENT_SECRET", ""),
			OIDCRedirectURL:  getEnv("MIXMENTOR_OIDC_REDIRECT_URL", "http://localhost:8080/api/auth/callback"),
			OwnerOpenID:      getEnv("MIXMENTOR_OWNER_OPEN_ID", ""),
			SecureCookies:    getEnvBool("MIXMENTOR_SECURE_COOKIES", true),
		},
		Stripe: StripeConfig{
			SecretKey:      getEnv("MIXMENTOR_STRIPE_SECRET_KEY", ""),
			WebhookSecret:  getEnv("MIXMENTOR_STRIPE_WEBHOOK_SECRET", ""),
			SuccessURL:     getEnv("MIXMENTOR_STRIPE_SUCCESS_URL", "http://localhost:8080/billing/success"),
			CancelURL:      getEnv("MIXMENTOR_STRIPE_CANCEL_URL", "http://localhost:8080/billing/cancel"),
			ProPriceID:     getEnv("MIXMENTOR_STRIPE_PRO_PRICE_ID", ""),
			ProPlusPriceID: getEnv("MIXMENTOR_STRIPE_PRO_PLUS_PRICE_ID", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:           parseLogLevel(getEnv("MIXMENTOR_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("MIXMENTOR_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("MIXMENTOR_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("MIXMENTOR_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("MIXMENTOR_OTEL_SERVICE_NAME", "mixmentor"),
			OTelServiceVersion: getEnv("MIXMENTOR_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("MIXMENTOR_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required")
	}

	switch c.Blob.Backend {
	case "filesystem":
		if c.Blob.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem blob storage")
		}
	case "s3":
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 blob storage")
		}
	default:
		return fmt.Errorf("invalid blob backend: %s (must be filesystem or s3)", c.Blob.Backend)
	}

	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required")
	}

	if c.Auth.OIDCIssuerURL == "" || c.Auth.OIDCClientID == "" {
		return fmt.Errorf("OIDC issuer URL and client ID are required")
	}

	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("stripe secret key is required")
	}
	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is required")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

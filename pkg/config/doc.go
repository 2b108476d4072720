// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	MIXMENTOR_HOST="0.0.0.0"
//	MIXMENTOR_PORT="8080"
//	MIXMENTOR_HEALTH_PORT="9090"
//	MIXMENTOR_READ_TIMEOUT="15s"
//	MIXMENTOR_WRITE_TIMEOUT="90s"
//
// Database and session settings:
//
//	MIXMENTOR_POSTGRES_URL="postgres://localhost/mixmentor"
//	MIXMENTOR_POSTGRES_MAX_CONNS="20"
//	MIXMENTOR_REDIS_URL="redis://localhost:6379"
//	MIXMENTOR_SESSION_TTL="168h"
//
// Blob storage settings:
//
//	MIXMENTOR_BLOB_BACKEND="s3"  # s3, filesystem
//	MIXMENTOR_S3_BUCKET="mixmentor-audio"
//	MIXMENTOR_S3_REGION="us-east-1"
//	MIXMENTOR_FILESYSTEM_ROOT="/var/mixmentor/audio"
//
// Model, login, and billing settings:
//
//	MIXMENTOR_LLM_BASE_URL="https://api.openai.com/v1"
//	MIXMENTOR_LLM_API_KEY="sk-..."
//	MIXMENTOR_OIDC_ISSUER_URL="https://auth.example.com"
//	MIXMENTOR_STRIPE_SECRET_KEY="sk_live_..."
//	MIXMENTOR_STRIPE_WEBHOOK_SECRET="whsec_..."
//
// Observability settings:
//
//	MIXMENTOR_LOG_LEVEL="info"  # debug, info, warn, error
//	MIXMENTOR_METRICS_ENABLED="true"
//	MIXMENTOR_OTEL_ENABLED="false"
//	MIXMENTOR_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config

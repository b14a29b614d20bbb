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
//	VERIHUB_HOST="0.0.0.0"
//	VERIHUB_PORT="8080"
//	VERIHUB_HEALTH_PORT="9090"
//	VERIHUB_READ_TIMEOUT="15s"
//	VERIHUB_WRITE_TIMEOUT="15s"
//
// Session store settings:
//
//	VERIHUB_REDIS_URL="redis://localhost:6379/0"
//	VERIHUB_REDIS_POOL_SIZE="10"
//	VERIHUB_SESSION_LIFETIME="90m"
//	VERIHUB_SESSION_CYCLE3_WINDOW="1h"
//	VERIHUB_SESSION_TTL_GRACE="1h"
//
// SAML settings:
//
//	VERIHUB_SAML_ENTITY_ID="https://hub.example.com"
//	VERIHUB_SAML_CERT_PATH="/etc/verihub/tls/hub.crt"
//	VERIHUB_SAML_KEY_PATH="/etc/verihub/tls/hub.key"
//	VERIHUB_SAML_CLOCK_SKEW="30s"
//
// Federation settings:
//
//	VERIHUB_FEDERATION_CONFIG="/etc/verihub/federation.yaml"
//	VERIHUB_FEDERATION_RELOAD_SCHEDULE="@every 5m"
//
// Audit settings:
//
//	VERIHUB_AUDIT_FILE_ENABLED="true"
//	VERIHUB_AUDIT_FILE_PATH="/var/log/verihub/audit"
//	VERIHUB_AUDIT_DATABASE_URL=""  # postgres sink, off when empty
//
// Observability settings:
//
//	VERIHUB_LOG_LEVEL="info"  # debug, info, warn, error
//	VERIHUB_METRICS_ENABLED="true"
//	VERIHUB_OTEL_ENABLED="false"
//	VERIHUB_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Federation: %s\n", cfg.Federation.ConfigPath)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/session: Uses session and redis configuration
//   - pkg/observability: Uses observability configuration
package config

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/verihub/pkg/observability"
	"github.com/platinummonkey/verihub/pkg/session"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Redis session store configuration
	Redis RedisConfig

	// SAML signing and validation configuration
	SAML SAMLConfig

	// Federation registry configuration
	Federation FederationConfig

	// Session semantics configuration
	Session SessionConfig

	// Audit sink configuration
	Audit AuditConfig

	// Observability configuration
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
}

// RedisConfig holds the session store connection settings
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
}

// SAMLConfig holds the hub's own identity and trust settings
type SAMLConfig struct {
	HubEntityID     string
	CertificatePath string
	PrivateKeyPath  string
	AudienceURI     string
	ClockSkew       time.Duration
}

// FederationConfig holds the federation registry settings
type FederationConfig struct {
	// ConfigPath is the YAML file listing federation entities.
	ConfigPath string

	// ReloadSchedule is a cron expression for periodic reloads on top
	// of the fsnotify watcher; empty disables it.
	ReloadSchedule string
}

// SessionConfig holds the session state machine tunables
type SessionConfig struct {
	// Lifetime is how long a new session may run before the deadline.
	Lifetime time.Duration

	// Cycle3Window is the supplementary-attribute entry window.
	Cycle3Window time.Duration

	// TTLGrace keeps expired records readable past the deadline.
	TTLGrace time.Duration
}

// AuditConfig holds the audit sink settings
type AuditConfig struct {
	// FileEnabled turns on the JSON-lines file sink.
	FileEnabled bool
	FilePath    string
	MaxSizeMB   int
	MaxFiles    int

	// DatabaseURL turns on the postgres sink when set.
	DatabaseURL string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Redis:         loadRedisConfig(),
		SAML:          loadSAMLConfig(),
		Federation:    loadFederationConfig(),
		Session:       loadSessionConfig(),
		Audit:         loadAuditConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("VERIHUB_HOST", "0.0.0.0"),
		Port:            getEnv("VERIHUB_PORT", "8080"),
		ReadTimeout:     getEnvDuration("VERIHUB_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("VERIHUB_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("VERIHUB_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("VERIHUB_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("VERIHUB_HEALTH_PORT", "9090"),
	}
}

// loadRedisConfig loads session store configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:        getEnv("VERIHUB_REDIS_URL", "redis://localhost:6379/0"),
		Password:   getEnv("VERIHUB_REDIS_PASSWORD", ""),
		DB:         getEnvInt("VERIHUB_REDIS_DB", 0),
		MaxRetries: getEnvInt("VERIHUB_REDIS_MAX_RETRIES", 3),
		PoolSize:   getEnvInt("VERIHUB_REDIS_POOL_SIZE", 10),
	}
}

// loadSAMLConfig loads the hub identity configuration from environment
func loadSAMLConfig() SAMLConfig {
	return SAMLConfig{
		HubEntityID:     getEnv("VERIHUB_SAML_ENTITY_ID", ""),
		CertificatePath: getEnv("VERIHUB_SAML_CERT_PATH", ""),
		PrivateKeyPath:  getEnv("VERIHUB_SAML_KEY_PATH", ""),
		AudienceURI:     getEnv("VERIHUB_SAML_AUDIENCE_URI", ""),
		ClockSkew:       getEnvDuration("VERIHUB_SAML_CLOCK_SKEW", 30*time.Second),
	}
}

// loadFederationConfig loads federation registry configuration
func loadFederationConfig() FederationConfig {
	return FederationConfig{
		ConfigPath:     getEnv("VERIHUB_FEDERATION_CONFIG", "/etc/verihub/federation.yaml"),
		ReloadSchedule: getEnv("VERIHUB_FEDERATION_RELOAD_SCHEDULE", "@every 5m"),
	}
}

// loadSessionConfig loads session semantics configuration
func loadSessionConfig() SessionConfig {
	return SessionConfig{
		Lifetime:     getEnvDuration("VERIHUB_SESSION_LIFETIME", 90*time.Minute),
		Cycle3Window: getEnvDuration("VERIHUB_SESSION_CYCLE3_WINDOW", session.DefaultCycle3Window),
		TTLGrace:     getEnvDuration("VERIHUB_SESSION_TTL_GRACE", session.DefaultTTLGrace),
	}
}

// loadAuditConfig loads audit sink configuration
func loadAuditConfig() AuditConfig {
	return AuditConfig{
		FileEnabled: getEnvBool("VERIHUB_AUDIT_FILE_ENABLED", true),
		FilePath:    getEnv("VERIHUB_AUDIT_FILE_PATH", "/var/log/verihub/audit"),
		MaxSizeMB:   getEnvInt("VERIHUB_AUDIT_MAX_SIZE_MB", 100),
		MaxFiles:    getEnvInt("VERIHUB_AUDIT_MAX_FILES", 10),
		DatabaseURL: getEnv("VERIHUB_AUDIT_DATABASE_URL", ""),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("VERIHUB_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("VERIHUB_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("VERIHUB_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("VERIHUB_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("VERIHUB_OTEL_SERVICE_NAME", "verihub"),
		OTelServiceVersion: getEnv("VERIHUB_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("VERIHUB_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required")
	}

	if c.SAML.HubEntityID == "" {
		return fmt.Errorf("hub entity id is required")
	}
	if c.SAML.CertificatePath == "" || c.SAML.PrivateKeyPath == "" {
		return fmt.Errorf("hub signing certificate and key paths are required")
	}

	if c.Federation.ConfigPath == "" {
		return fmt.Errorf("federation config path is required")
	}

	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("session lifetime must be positive")
	}
	if c.Session.Cycle3Window <= 0 {
		return fmt.Errorf("cycle-3 window must be positive")
	}

	if c.Audit.FileEnabled && c.Audit.FilePath == "" {
		return fmt.Errorf("audit file path is required when the file sink is enabled")
	}

	// Validate OpenTelemetry config
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

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

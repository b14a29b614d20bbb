package config

import (
	"os"
	"testing"
	"time"

	"github.com/platinummonkey/verihub/pkg/observability"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{name: "returns true for 'true'", envValue: "true", want: true},
		{name: "returns true for '1'", envValue: "1", want: true},
		{name: "returns false for 'false'", defaultValue: true, envValue: "false", want: false},
		{name: "returns default when not set", defaultValue: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_BOOL", tt.envValue)
				defer os.Unsetenv("TEST_BOOL")
			}

			got := getEnvBool("TEST_BOOL", tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvInt tests the getEnvInt helper function
func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue int
		envValue     string
		want         int
	}{
		{name: "parses valid integer", envValue: "42", want: 42},
		{name: "returns default for invalid integer", defaultValue: 7, envValue: "not-a-number", want: 7},
		{name: "returns default when not set", defaultValue: 7, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_INT", tt.envValue)
				defer os.Unsetenv("TEST_INT")
			}

			got := getEnvInt("TEST_INT", tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvDuration tests the getEnvDuration helper function
func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue time.Duration
		envValue     string
		want         time.Duration
	}{
		{name: "parses valid duration", envValue: "45s", want: 45 * time.Second},
		{name: "returns default for invalid duration", defaultValue: time.Minute, envValue: "soon", want: time.Minute},
		{name: "returns default when not set", defaultValue: time.Minute, want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_DURATION", tt.envValue)
				defer os.Unsetenv("TEST_DURATION")
			}

			got := getEnvDuration("TEST_DURATION", tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestParseLogLevel tests log level parsing
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  observability.LogLevel
	}{
		{"debug", observability.DebugLevel},
		{"info", observability.InfoLevel},
		{"warn", observability.WarnLevel},
		{"warning", observability.WarnLevel},
		{"error", observability.ErrorLevel},
		{"ERROR", observability.ErrorLevel},
		{"unknown", observability.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// validConfig returns a configuration that passes validation.
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       "8080",
			HealthPort: "9090",
		},
		Redis: RedisConfig{URL: "redis://localhost:6379/0"},
		SAML: SAMLConfig{
			HubEntityID:     "https://hub.example.com",
			CertificatePath: "/etc/verihub/tls/hub.crt",
			PrivateKeyPath:  "/etc/verihub/tls/hub.key",
		},
		Federation: FederationConfig{ConfigPath: "/etc/verihub/federation.yaml"},
		Session: SessionConfig{
			Lifetime:     90 * time.Minute,
			Cycle3Window: time.Hour,
			TTLGrace:     time.Hour,
		},
		Audit: AuditConfig{FileEnabled: true, FilePath: "/var/log/verihub/audit"},
		Observability: ObservabilityConfig{
			LogLevel: observability.InfoLevel,
		},
	}
}

// TestConfigValidate tests configuration validation
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: true},
		{name: "missing health port", mutate: func(c *Config) { c.Server.HealthPort = "" }, wantErr: true},
		{name: "clashing ports", mutate: func(c *Config) { c.Server.HealthPort = c.Server.Port }, wantErr: true},
		{name: "missing redis url", mutate: func(c *Config) { c.Redis.URL = "" }, wantErr: true},
		{name: "missing hub entity id", mutate: func(c *Config) { c.SAML.HubEntityID = "" }, wantErr: true},
		{name: "missing key path", mutate: func(c *Config) { c.SAML.PrivateKeyPath = "" }, wantErr: true},
		{name: "missing federation config", mutate: func(c *Config) { c.Federation.ConfigPath = "" }, wantErr: true},
		{name: "zero session lifetime", mutate: func(c *Config) { c.Session.Lifetime = 0 }, wantErr: true},
		{name: "zero cycle3 window", mutate: func(c *Config) { c.Session.Cycle3Window = 0 }, wantErr: true},
		{
			name:    "file sink without path",
			mutate:  func(c *Config) { c.Audit.FilePath = "" },
			wantErr: true,
		},
		{
			name: "otel enabled without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestLoadConfig tests end-to-end loading from the environment
func TestLoadConfig(t *testing.T) {
	vars := map[string]string{
		"VERIHUB_PORT":               "8181",
		"VERIHUB_SAML_ENTITY_ID":     "https://hub.example.com",
		"VERIHUB_SAML_CERT_PATH":     "/tmp/hub.crt",
		"VERIHUB_SAML_KEY_PATH":      "/tmp/hub.key",
		"VERIHUB_SESSION_LIFETIME":   "2h",
		"VERIHUB_AUDIT_DATABASE_URL": "postgres://localhost/verihub_audit",
	}
	for k, v := range vars {
		os.Setenv(k, v)
		defer os.Unsetenv(k)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "8181" {
		t.Errorf("Server.Port = %v, want 8181", cfg.Server.Port)
	}
	if cfg.Server.HealthPort != "9090" {
		t.Errorf("Server.HealthPort = %v, want default 9090", cfg.Server.HealthPort)
	}
	if cfg.Session.Lifetime != 2*time.Hour {
		t.Errorf("Session.Lifetime = %v, want 2h", cfg.Session.Lifetime)
	}
	if cfg.Redis.DB != 0 {
		t.Errorf("Redis.DB = %v, want default 0", cfg.Redis.DB)
	}
	if cfg.Audit.DatabaseURL != "postgres://localhost/verihub_audit" {
		t.Errorf("Audit.DatabaseURL = %v", cfg.Audit.DatabaseURL)
	}
	if !cfg.Audit.FileEnabled {
		t.Error("Audit.FileEnabled should default to true")
	}
}

// TestLoadConfigValidationFailure tests that an invalid environment is rejected
func TestLoadConfigValidationFailure(t *testing.T) {
	// No SAML identity configured.
	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() should fail without a hub entity id")
	}
}

// Package config loads and validates application configuration from YAML files
// and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Schemas       SchemasConfig       `yaml:"schemas"`
	Rules         RulesConfig         `yaml:"rules"`
	AWS           AWSConfig           `yaml:"aws"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig describes Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// SchemasConfig describes the schema store and startup preloading.
type SchemasConfig struct {
	// Directory holds the flat-file schema documents, one per type.
	Directory string `yaml:"directory"`

	// Preload selects what to download from the registry on startup:
	// "none", "common", or "all".
	Preload string `yaml:"preload"`
}

// RulesConfig describes the policy rule store.
type RulesConfig struct {
	Directory string `yaml:"directory"`

	// SeedExamples writes the starter S3 rules when the directory is
	// empty.
	SeedExamples bool `yaml:"seed_examples"`
}

// AWSConfig describes the provisioning backend connection.
type AWSConfig struct {
	// Enabled turns on the Cloud Control backend. When false the
	// service runs preview-only: parsing, validation, and policy work,
	// execution is refused.
	Enabled bool   `yaml:"enabled"`
	Region  string `yaml:"region"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled           bool    `yaml:"enabled"`
	Exporter          string  `yaml:"exporter"`
	Endpoint          string  `yaml:"endpoint"`
	SamplingRate      float64 `yaml:"sampling_rate"`
	ForceSampleErrors bool    `yaml:"force_sample_errors"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			HandlerTimeout:  25 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Correlation-Id"},
				MaxAge:         86400,
			},
		},
		Schemas: SchemasConfig{
			Directory: "/var/lib/stratus/schemas",
			Preload:   "none",
		},
		Rules: RulesConfig{
			Directory:    "/var/lib/stratus/rules",
			SeedExamples: true,
		},
		AWS: AWSConfig{
			Enabled: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields. An empty path skips the file and runs on
// defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Schemas.Directory == "" {
		errs = append(errs, "schemas.directory is required")
	}
	switch c.Schemas.Preload {
	case "none", "common", "all":
	default:
		errs = append(errs, "schemas.preload must be one of: none, common, all")
	}
	if c.Rules.Directory == "" {
		errs = append(errs, "rules.directory is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads STRATUS_* environment variables and overrides
// config values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STRATUS_SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("STRATUS_SCHEMAS_DIRECTORY"); v != "" {
		cfg.Schemas.Directory = v
	}
	if v := os.Getenv("STRATUS_SCHEMAS_PRELOAD"); v != "" {
		cfg.Schemas.Preload = v
	}
	if v := os.Getenv("STRATUS_RULES_DIRECTORY"); v != "" {
		cfg.Rules.Directory = v
	}
	if v := os.Getenv("STRATUS_AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("STRATUS_OBSERVABILITY_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}

// Package config loads editor and server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Editor configures the coordinator's timing and presentation.
type Editor struct {
	// QuietPeriod is the autosave debounce window.
	QuietPeriod time.Duration `env:"EDITOR_AUTOSAVE_QUIET_PERIOD" envDefault:"3s"`
	// RetryInterval is how long a timer that fired during an in-flight save waits before trying again.
	RetryInterval time.Duration `env:"EDITOR_AUTOSAVE_RETRY_INTERVAL" envDefault:"250ms"`
	Locale        string        `env:"EDITOR_LOCALE" envDefault:"en-US"`
	APIBaseURL    string        `env:"EDITOR_API_BASE_URL" envDefault:"http://localhost:8080"`
}

// Server configures cmd/server.
type Server struct {
	SpannerDB string `env:"SPANNER_DATABASE" envDefault:"projects/test-project/instances/dev-instance/databases/scenario-catalog-db"`
	HTTPPort  string `env:"HTTP_PORT" envDefault:"8080"`
}

// Observability configures logging and tracing.
type Observability struct {
	LogLevel     string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"json"`
	OTELEndpoint string `env:"OTEL_ENDPOINT"`
	OTELEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// Config is the full application configuration.
type Config struct {
	Editor        Editor
	Server        Server
	Observability Observability
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the full configuration and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects timing values the scheduler cannot honour.
func (c *Config) Validate() error {
	if c.Editor.QuietPeriod <= 0 {
		return fmt.Errorf("EDITOR_AUTOSAVE_QUIET_PERIOD must be positive, got %s", c.Editor.QuietPeriod)
	}
	if c.Editor.RetryInterval <= 0 {
		return fmt.Errorf("EDITOR_AUTOSAVE_RETRY_INTERVAL must be positive, got %s", c.Editor.RetryInterval)
	}
	return nil
}

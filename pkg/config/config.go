// Package config defines the gateway configuration file format and loader.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voxlink/mcp-voice-gateway/pkg/auth"
	"github.com/voxlink/mcp-voice-gateway/pkg/session"
	"github.com/voxlink/mcp-voice-gateway/pkg/voxlink"
)

// Config is the top-level gateway configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Auth      AuthConfig      `yaml:"auth"`
	VoxLink   voxlink.Config  `yaml:"voxlink"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig identifies the MCP server and its transport.
type ServerConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Transport string `yaml:"transport"` // "stdio" or "http"
	Address   string `yaml:"address"`   // http transport listen address
}

// SessionConfig bounds the session layer.
type SessionConfig struct {
	// TTL is the idle lifetime of a session before it expires.
	TTL time.Duration `yaml:"ttl"`

	// MaxSessions caps concurrently live sessions.
	MaxSessions int `yaml:"max_sessions"`

	// ReapInterval is how often the expiry backstop sweeps.
	ReapInterval time.Duration `yaml:"reap_interval"`
}

// AuthConfig selects and configures request authentication.
type AuthConfig struct {
	// Bearer enables JWT bearer token authentication when a secret is set.
	Bearer auth.BearerConfig `yaml:"bearer"`

	// APIKeys lists bcrypt-hashed API keys accepted via X-API-Key.
	APIKeys []auth.APIKey `yaml:"api_keys"`

	// AllowAnonymous lets unauthenticated requests through as the
	// anonymous user. Intended for local development only.
	AllowAnonymous bool `yaml:"allow_anonymous"`
}

// TelemetryConfig controls the Prometheus metrics endpoint.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text" or "json"
}

// Load loads configuration from a file.
// The path is expected to come from command line arguments, controlled by the administrator.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "mcp-voice-gateway"
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "1.0.0"
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = "stdio"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = session.DefaultTTL
	}
	if cfg.Session.MaxSessions == 0 {
		cfg.Session.MaxSessions = session.DefaultMaxSessions
	}
	if cfg.Session.ReapInterval == 0 {
		cfg.Session.ReapInterval = session.DefaultReapInterval
	}
	if cfg.Telemetry.Path == "" {
		cfg.Telemetry.Path = "/metrics"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport %q: must be \"stdio\" or \"http\"", c.Server.Transport)
	}

	if c.Session.TTL < 0 {
		return fmt.Errorf("session ttl must not be negative")
	}
	if c.Session.MaxSessions < 0 {
		return fmt.Errorf("session max_sessions must not be negative")
	}

	if c.VoxLink.BaseURL == "" {
		return fmt.Errorf("voxlink base_url is required")
	}

	if !c.Auth.AllowAnonymous && c.Auth.Bearer.Secret == "" && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("auth: configure a bearer secret or api keys, or set allow_anonymous")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}

	return nil
}

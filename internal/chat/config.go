// Package chat provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the chat relay.
package chat

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `env:"RATE_LIMIT_BURST,default=5"`
	RefillInterval time.Duration `env:"RATE_LIMIT_INTERVAL,default=1s"`
}

// Config holds the relay configuration, loaded from the environment.
type Config struct {
	Addr           string        `env:"HTTP_ADDR,default=:8080"`
	AllowedOrigins string        `env:"ALLOWED_ORIGINS,default=http://localhost:8080"`
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE,default=4096"`
	SendBufferSize int           `env:"SEND_BUFFER_SIZE,default=256"`
	GracePeriod    time.Duration `env:"CHAT_GRACE_PERIOD,default=30s"`
	RequireAuth    bool          `env:"REQUIRE_AUTH,default=false"`
	JWTSecret      string        `env:"JWT_SECRET"`
	LogLevel       string        `env:"LOG_LEVEL,default=info"`
	RateLimit      RateLimitConfig
}

// LoadConfig reads the relay configuration from the process environment and
// validates it.
func LoadConfig() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("loading chat config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewConfig returns a configuration populated with the defaults used when no
// environment overrides are present. Tests use it as a baseline.
func NewConfig() *Config {
	return &Config{
		Addr:           ":8080",
		AllowedOrigins: "http://localhost:8080",
		MaxMessageSize: 4096,
		SendBufferSize: 256,
		GracePeriod:    30 * time.Second,
		LogLevel:       "info",
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
	}
}

// Validate checks the configuration for values the relay cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("chat config: HTTP_ADDR must not be empty")
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("chat config: MAX_MESSAGE_SIZE must be positive, got %d", c.MaxMessageSize)
	}
	if c.SendBufferSize <= 0 {
		return fmt.Errorf("chat config: SEND_BUFFER_SIZE must be positive, got %d", c.SendBufferSize)
	}
	if c.GracePeriod < 0 {
		return fmt.Errorf("chat config: CHAT_GRACE_PERIOD must not be negative, got %s", c.GracePeriod)
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("chat config: RATE_LIMIT_BURST must be positive, got %d", c.RateLimit.Burst)
	}
	if c.RateLimit.RefillInterval <= 0 {
		return fmt.Errorf("chat config: RATE_LIMIT_INTERVAL must be positive, got %s", c.RateLimit.RefillInterval)
	}
	if c.RequireAuth && c.JWTSecret == "" {
		return fmt.Errorf("chat config: JWT_SECRET is required when REQUIRE_AUTH is set")
	}
	return nil
}

// Origins returns the allowed upgrade origins as a slice. A single "*" entry
// allows every origin.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// AllowsAllOrigins reports whether the wildcard origin is configured.
func (c *Config) AllowsAllOrigins() bool {
	for _, o := range c.Origins() {
		if o == "*" {
			return true
		}
	}
	return false
}

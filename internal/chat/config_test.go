package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfig_DefaultsAreValid(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"empty addr", func(cfg *Config) { cfg.Addr = "" }},
		{"non-positive message size", func(cfg *Config) { cfg.MaxMessageSize = 0 }},
		{"non-positive send buffer", func(cfg *Config) { cfg.SendBufferSize = -1 }},
		{"negative grace period", func(cfg *Config) { cfg.GracePeriod = -time.Second }},
		{"non-positive rate limit burst", func(cfg *Config) { cfg.RateLimit.Burst = 0 }},
		{"non-positive rate limit interval", func(cfg *Config) { cfg.RateLimit.RefillInterval = 0 }},
		{"auth without secret", func(cfg *Config) { cfg.RequireAuth = true; cfg.JWTSecret = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewConfig()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_Origins(t *testing.T) {
	req := require.New(t)
	cfg := NewConfig()
	cfg.AllowedOrigins = "http://localhost:3000, https://shop.example.com ,"

	req.Equal([]string{"http://localhost:3000", "https://shop.example.com"}, cfg.Origins())
	req.False(cfg.AllowsAllOrigins())

	cfg.AllowedOrigins = "*"
	req.True(cfg.AllowsAllOrigins())
}

func TestLoadConfig_ReadsEnvironment(t *testing.T) {
	req := require.New(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CHAT_GRACE_PERIOD", "5s")
	t.Setenv("RATE_LIMIT_BURST", "10")

	cfg, err := LoadConfig()
	req.NoError(err)
	req.Equal(":9090", cfg.Addr)
	req.Equal(5*time.Second, cfg.GracePeriod)
	req.Equal(10, cfg.RateLimit.Burst)
	// Untouched fields keep their defaults.
	req.Equal(int64(4096), cfg.MaxMessageSize)
}

func TestLoadConfig_RejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("REQUIRE_AUTH", "true")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	req := require.New(t)

	cfg, err := LoadConfig()
	req.NoError(err)

	req.Equal(NewConfig(), cfg)
	req.False(cfg.AuthEnabled())
	req.Equal([]string{"http://localhost:8080"}, cfg.Origins())
}

func TestLoadConfigFromEnv(t *testing.T) {
	req := require.New(t)

	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", " https://app.example.com , http://localhost:3000,")
	t.Setenv("MAX_MESSAGE_SIZE", "8192")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TYPING_SENDER", "Connection")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	req.NoError(err)

	req.Equal(":9000", cfg.Port)
	req.Equal([]string{"https://app.example.com", "http://localhost:3000"}, cfg.Origins())
	req.Equal(8192, cfg.MaxMessageSize)
	req.Equal(RateLimitConfig{Burst: 3, RefillInterval: 2 * time.Second}, cfg.RateLimit())
	req.True(cfg.AuthEnabled())
	req.Equal(TypingSenderConnection, cfg.TypingIdentity())
	req.Equal("DEBUG", cfg.LogLevel)
}

func TestLoadConfigRejectsUnknownTypingSender(t *testing.T) {
	t.Setenv("TYPING_SENDER", "socket")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestSanitizeConfigRestoresDefaults(t *testing.T) {
	req := require.New(t)

	cfg := sanitizeConfig(Config{
		MaxMessageSize: -1,
		RateLimitBurst: 0,
		RefillInterval: -time.Second,
	})

	req.Equal(defaultPort, cfg.Port)
	req.Equal(defaultMaxMessageSize, cfg.MaxMessageSize)
	req.Equal(defaultSendBufferSize, cfg.SendBufferSize)
	req.Equal(defaultRateLimitBurst, cfg.RateLimitBurst)
	req.Equal(defaultRefillInterval, cfg.RefillInterval)
	req.Equal(TypingSenderUser, cfg.TypingIdentity())
	req.Equal("INFO", cfg.LogLevel)
	req.NoError(cfg.Validate())
}

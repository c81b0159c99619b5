// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the relay service.
package server

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const (
	defaultPort            = ":8080"
	defaultMaxMessageSize  = 4096
	defaultSendBufferSize  = 256
	defaultRateLimitBurst  = 20
	defaultRefillInterval  = time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// TypingSender selects which identity is placed in user_typing events.
type TypingSender string

const (
	// TypingSenderConnection relays the sender's connection id.
	TypingSenderConnection TypingSender = "connection"
	// TypingSenderUser relays the sender's user id when one is known.
	TypingSenderUser TypingSender = "user"
)

// RateLimitConfig defines the parameters for per-connection event rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port            string        `env:"SERVER_PORT,default=:8080"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS,default=http://localhost:8080"`
	MaxMessageSize  int           `env:"MAX_MESSAGE_SIZE,default=4096" validate:"gt=0"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE,default=256" validate:"gt=0"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST,default=20" validate:"gt=0"`
	RefillInterval  time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL,default=1s" validate:"gt=0"`
	JWTSecret       string        `env:"JWT_SECRET"`
	JWTIssuer       string        `env:"JWT_ISSUER"`
	TypingSender    string        `env:"TYPING_SENDER,default=user" validate:"oneof=user connection"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
}

var validate = validator.New()

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() Config {
	return Config{
		Port:            defaultPort,
		AllowedOrigins:  "http://localhost:8080",
		MaxMessageSize:  defaultMaxMessageSize,
		SendBufferSize:  defaultSendBufferSize,
		RateLimitBurst:  defaultRateLimitBurst,
		RefillInterval:  defaultRefillInterval,
		TypingSender:    string(TypingSenderUser),
		LogLevel:        "INFO",
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// LoadConfig reads the configuration from environment variables, falling back
// to defaults for anything unset, and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}

	cfg = sanitizeConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// AuthEnabled reports whether handshake tokens are required.
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// Origins returns the configured origin allow-list.
func (c Config) Origins() []string {
	return parseOrigins(c.AllowedOrigins)
}

// TypingIdentity returns the typed TypingSender setting.
func (c Config) TypingIdentity() TypingSender {
	return TypingSender(c.TypingSender)
}

// RateLimit groups the rate limiting settings.
func (c Config) RateLimit() RateLimitConfig {
	return RateLimitConfig{
		Burst:          c.RateLimitBurst,
		RefillInterval: c.RefillInterval,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaultSendBufferSize
	}

	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = defaultRateLimitBurst
	}

	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = defaultRefillInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	cfg.TypingSender = strings.ToLower(strings.TrimSpace(cfg.TypingSender))
	if cfg.TypingSender == "" {
		cfg.TypingSender = string(TypingSenderUser)
	}

	cfg.LogLevel = strings.ToUpper(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}

	return cfg
}

func parseOrigins(origins string) []string {
	parts := lo.Map(strings.Split(origins, ","), func(part string, _ int) string {
		return strings.TrimSpace(part)
	})
	return lo.Compact(parts)
}

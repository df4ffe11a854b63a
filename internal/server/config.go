// Package server provides configuration helpers that define runtime
// defaults, validation, and the security-relevant settings of the relay.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultGlobalAdminPassword is the fallback shared secret used when
// GLOBAL_ADMIN_PASSWORD is unset. It is deliberately weak and exists only so
// development setups work out of the box; startup logs a warning when it is
// in effect.
const DefaultGlobalAdminPassword = "insecurePassword"

// RateLimitConfig defines the parameters for per-connection frame rate
// limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration, read once at startup.
type Config struct {
	Env                 string
	Port                string
	AllowedOrigins      []string
	MaxMessageSize      int64
	RateLimit           RateLimitConfig
	GlobalAdminPassword string
	FilterPath          string
}

func defaultConfig() Config {
	return Config{
		Env:  "dev",
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 4096,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		GlobalAdminPassword: DefaultGlobalAdminPassword,
		FilterPath:          "filter.json",
	}
}

// NewConfig returns a Config populated with defaults for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv builds a Config from environment variables, falling back
// to defaults for anything unset or unparsable.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Env = env
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseRefillInterval(interval, cfg.RateLimit.RefillInterval)
	}
	if password := os.Getenv("GLOBAL_ADMIN_PASSWORD"); password != "" {
		cfg.GlobalAdminPassword = password
	}
	if path := os.Getenv("FILTER_PATH"); path != "" {
		cfg.FilterPath = path
	}

	return &cfg
}

// Sanitize replaces zero or invalid values with defaults and returns the
// config for chaining.
func (cfg *Config) Sanitize() *Config {
	def := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if cfg.GlobalAdminPassword == "" {
		cfg.GlobalAdminPassword = def.GlobalAdminPassword
	}
	if cfg.FilterPath == "" {
		cfg.FilterPath = def.FilterPath
	}
	return cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseRefillInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Database DatabaseConfig
	Review   ReviewConfig
	Logging  LoggingConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Host string
	Port int
}

// Addr is the listen address for the gateway.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DatabaseConfig points at the optional submission audit store. An empty URL
// disables auditing to the database.
type DatabaseConfig struct {
	URL string
}

type ReviewConfig struct {
	ModifiedHold     time.Duration
	RecheckOnConfirm bool
	IndexPath        string
	// SessionTTL is how long an unused review session is kept. Zero keeps
	// sessions until they are submitted.
	SessionTTL time.Duration
}

// SweepInterval is how often idle sessions are looked for.
func (c ReviewConfig) SweepInterval() time.Duration {
	return min(c.SessionTTL/4, time.Minute)
}

type LoggingConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Upstream: UpstreamConfig{
			BaseURL: strings.TrimRight(getEnv("UPSTREAM_BASE_URL", "http://localhost:5000"), "/"),
			Timeout: time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		Database: DatabaseConfig{
			URL: getEnv("AUDIT_DATABASE_URL", ""),
		},
		Review: ReviewConfig{
			ModifiedHold:     time.Duration(getEnvInt("REVIEW_MODIFIED_HOLD_MS", 1000)) * time.Millisecond,
			RecheckOnConfirm: getEnvBool("REVIEW_RECHECK_ON_CONFIRM", false),
			IndexPath:        getEnv("REVIEW_INDEX_PATH", "/"),
			SessionTTL:       time.Duration(getEnvInt("REVIEW_SESSION_TTL_MIN", 120)) * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		},
	}

	if _, err := url.ParseRequestURI(cfg.Upstream.BaseURL); err != nil {
		return Config{}, fmt.Errorf("UPSTREAM_BASE_URL is invalid: %w", err)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("SERVER_PORT out of range: %d", cfg.Server.Port)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

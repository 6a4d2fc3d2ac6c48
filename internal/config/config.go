// Package config provides application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	BackendURL     string
	BackendTimeout time.Duration
	BackendCookie  string // raw Cookie header used by the terminal client
	VoiceDefault   bool
	PlayerCommand  string // external audio player for the terminal client
	LogFile        string // terminal client log destination
	ClipCache      ClipCacheConfig
}

// ClipCacheConfig controls the SQLite cache of synthesized speech.
type ClipCacheConfig struct {
	Enabled       bool
	Path          string
	TTL           time.Duration
	SweepInterval time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		BackendURL:     getEnv("BACKEND_URL", "http://localhost:8000/api"),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 60*time.Second),
		BackendCookie:  getEnv("BACKEND_COOKIE", ""),
		VoiceDefault:   getEnvBool("VOICE_DEFAULT", true),
		PlayerCommand:  getEnv("PLAYER_COMMAND", "mpg123 -q -"),
		LogFile:        getEnv("TUTOR_LOG_FILE", "./data/tutor.log"),
		ClipCache: ClipCacheConfig{
			Enabled:       getEnvBool("CLIP_CACHE_ENABLED", true),
			Path:          getEnv("CLIP_CACHE_PATH", "./data/clips.db"),
			TTL:           getEnvDuration("CLIP_CACHE_TTL", 24*time.Hour),
			SweepInterval: getEnvDuration("CLIP_CACHE_SWEEP_INTERVAL", 10*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL cannot be empty")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL, got %q", c.BackendURL)
	}
	if c.BackendTimeout < 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be >= 0")
	}
	if c.ClipCache.Enabled {
		if c.ClipCache.Path == "" {
			return fmt.Errorf("CLIP_CACHE_PATH cannot be empty")
		}
		if c.ClipCache.TTL <= 0 {
			return fmt.Errorf("CLIP_CACHE_TTL must be > 0")
		}
		if c.ClipCache.SweepInterval <= 0 {
			return fmt.Errorf("CLIP_CACHE_SWEEP_INTERVAL must be > 0")
		}
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs := getEnvInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// Package config loads portal and CLI settings. Precedence, lowest first:
// built-in defaults, the YAML file, the process environment (which .env
// populates without overriding).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	BackendURL string `yaml:"backend_url"`
	ListenAddr string `yaml:"listen_addr"`
	StorageDSN string `yaml:"storage_dsn"`

	Log LoggingConfig `yaml:"log"`

	// OTLPEndpoint enables trace export when set, e.g. http://localhost:4318.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	SessionIdleTTL  time.Duration `yaml:"session_idle_ttl"`
	LoginPerMinute  int           `yaml:"login_per_minute"`
	CookieSecure    bool          `yaml:"cookie_secure"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

func Default() *Config {
	return &Config{
		BackendURL:      "http://localhost:8080/api",
		ListenAddr:      ":3000",
		StorageDSN:      "memory://",
		Log:             LoggingConfig{Level: "info", Format: "json"},
		SessionIdleTTL:  30 * time.Minute,
		LoginPerMinute:  5,
		ShutdownTimeout: 10 * time.Second,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

// Load builds the configuration. path names a YAML file; when empty,
// LIBRA_CONFIG is consulted, and a missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("LIBRA_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.BackendURL = getEnv("LIBRA_BACKEND_URL", c.BackendURL)
	c.ListenAddr = getEnv("LIBRA_LISTEN_ADDR", c.ListenAddr)
	c.StorageDSN = getEnv("LIBRA_STORAGE_DSN", c.StorageDSN)
	c.Log.Level = getEnv("LIBRA_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LIBRA_LOG_FORMAT", c.Log.Format)
	c.OTLPEndpoint = getEnv("LIBRA_OTLP_ENDPOINT", c.OTLPEndpoint)
	c.SessionIdleTTL = getDurationEnv("LIBRA_SESSION_IDLE_TTL", c.SessionIdleTTL)
	c.LoginPerMinute = getIntEnv("LIBRA_LOGIN_RATE", c.LoginPerMinute)
	c.CookieSecure = getBoolEnv("LIBRA_COOKIE_SECURE", c.CookieSecure)
	c.ShutdownTimeout = getDurationEnv("LIBRA_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.BreakerFailures = getIntEnv("LIBRA_BREAKER_FAILURES", c.BreakerFailures)
	c.BreakerCooldown = getDurationEnv("LIBRA_BREAKER_COOLDOWN", c.BreakerCooldown)
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend url %q: want an absolute http(s) url", c.BackendURL)
	}
	if c.StorageDSN == "" {
		return errors.New("storage dsn is required")
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("session idle ttl must be positive, got %s", c.SessionIdleTTL)
	}
	if c.LoginPerMinute <= 0 {
		return fmt.Errorf("login rate must be positive, got %d", c.LoginPerMinute)
	}
	if c.BreakerFailures <= 0 {
		return fmt.Errorf("breaker failures must be positive, got %d", c.BreakerFailures)
	}
	if c.BreakerCooldown <= 0 {
		return fmt.Errorf("breaker cooldown must be positive, got %s", c.BreakerCooldown)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log format %q: want json or console", c.Log.Format)
	}
	return nil
}

// DefaultStatePath is where libractl keeps its session between runs.
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "libranexus", "session.json")
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

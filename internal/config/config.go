// Package config loads the tukey settings from the environment (and an optional .env file).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"github.com/tukey-analytics/tukey/internal/storage"
)

type Config struct {
	Environment string `env:"ENVIRONMENT,default=dev"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	// remote API
	APIBaseURL         string        `env:"API_BASE_URL,default=http://localhost:8000/api"`
	DashboardServerURL string        `env:"DASHBOARD_SERVER_URL"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT,default=300s"`
	DevLoginBypass     bool          `env:"DEV_LOGIN_BYPASS,default=false"`
	AttachAuthToken    bool          `env:"ATTACH_AUTH_TOKEN,default=false"`

	// session storage
	StorageBackend string `env:"STORAGE_BACKEND,default=file"`
	StoragePath    string `env:"STORAGE_PATH"`
	RedisURL       string `env:"REDIS_URL,default=redis://localhost:6379/0"`
	StoragePrefix  string `env:"STORAGE_PREFIX,default=tukey_"`

	// gateway (tukey serve)
	Host           string        `env:"HOST,default=127.0.0.1"`
	Port           int           `env:"PORT,default=3000"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS,separator=|"`
	RateLimitRPS   int           `env:"RATE_LIMIT_RPS,default=20"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST,default=40"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT,default=15s"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT,default=60s"`
}

// DefaultAllowedOrigin is the local front-end dev server
const DefaultAllowedOrigin = "http://localhost:5173"

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"staging": true,
	"prod":    true,
}

// NewConfig reads the environment. Variables already set take precedence over the .env file.
func NewConfig() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	cfg.normalize()

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func (cfg *Config) normalize() {
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")

	origins := cfg.AllowedOrigins[:0]
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = append(origins, DefaultAllowedOrigin)
	}
	cfg.AllowedOrigins = origins

	if cfg.StoragePath == "" {
		cfg.StoragePath = DefaultStoragePath(cfg.StorageBackend)
	}
}

// DefaultStoragePath is the session file under ~/.tukey for the file and sqlite backends
func DefaultStoragePath(backend string) string {
	name := "session.json"
	if backend == storage.BackendSQLite {
		name = "session.db"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tukey", name)
	}
	return filepath.Join(home, ".tukey", name)
}

func validateConfig(cfg *Config) error {
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid environment '%s'. Valid environments: dev, test, staging, prod", cfg.Environment)
	}

	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", cfg.APIBaseURL)
	}

	if cfg.DashboardServerURL != "" {
		if u, err := url.Parse(cfg.DashboardServerURL); err != nil || !u.IsAbs() {
			return fmt.Errorf("DASHBOARD_SERVER_URL must be an absolute URL, got %q", cfg.DashboardServerURL)
		}
	}

	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", cfg.RequestTimeout)
	}

	if !storage.ValidBackend(cfg.StorageBackend) {
		return fmt.Errorf("invalid storage backend '%s'. Valid backends: file, sqlite, redis, memory", cfg.StorageBackend)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}

	if cfg.RateLimitRPS < 0 || cfg.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst == 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive when RATE_LIMIT_RPS is set")
	}

	if cfg.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got %v", cfg.ReadTimeout)
	}
	if cfg.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive, got %v", cfg.IdleTimeout)
	}

	return nil
}

// ListenAddr is the gateway listen address
func (cfg *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// StorageOptions returns the options for storage.Open
func (cfg *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:  cfg.StorageBackend,
		Path:     cfg.StoragePath,
		RedisURL: cfg.RedisURL,
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable read by NewConfig for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"ENVIRONMENT", "LOG_LEVEL", "API_BASE_URL", "DASHBOARD_SERVER_URL", "REQUEST_TIMEOUT",
		"DEV_LOGIN_BYPASS", "ATTACH_AUTH_TOKEN", "STORAGE_BACKEND", "STORAGE_PATH", "REDIS_URL",
		"STORAGE_PREFIX", "HOST", "PORT", "ALLOWED_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"READ_TIMEOUT", "IDLE_TIMEOUT",
	} {
		if value, ok := os.LookupEnv(name); ok {
			require.NoError(t, os.Unsetenv(name))
			t.Cleanup(func() { _ = os.Setenv(name, value) })
		}
	}
	// keep any .env in the developer's working directory out of the test
	t.Chdir(t.TempDir())
}

func TestNewConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", "/home/tester")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "http://localhost:8000/api", cfg.APIBaseURL)
	assert.Equal(t, 300*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.DevLoginBypass)
	assert.Equal(t, "file", cfg.StorageBackend)
	assert.Equal(t, filepath.Join("/home/tester", ".tukey", "session.json"), cfg.StoragePath)
	assert.Equal(t, "tukey_", cfg.StoragePrefix)
	assert.Equal(t, "127.0.0.1:3000", cfg.ListenAddr())
	assert.Equal(t, []string{DefaultAllowedOrigin}, cfg.AllowedOrigins)
	assert.Equal(t, 20, cfg.RateLimitRPS)
	assert.Equal(t, 40, cfg.RateLimitBurst)
}

func TestNewConfigFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", "/home/tester")
	t.Setenv("ENVIRONMENT", "PROD")
	t.Setenv("API_BASE_URL", "https://api.example.com/api/")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("DEV_LOGIN_BYPASS", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com| https://b.example.com")
	t.Setenv("REQUEST_TIMEOUT", "30s")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, "https://api.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, filepath.Join("/home/tester", ".tukey", "session.db"), cfg.StoragePath)
	assert.True(t, cfg.DevLoginBypass)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)

	opts := cfg.StorageOptions()
	assert.Equal(t, "sqlite", opts.Backend)
	assert.Equal(t, cfg.StoragePath, opts.Path)
}

func TestNewConfigReadsDotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("LOG_LEVEL=debug\nPORT=4000\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("LOG_LEVEL")
		_ = os.Unsetenv("PORT")
	})

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4000, cfg.Port)
}

func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown environment", key: "ENVIRONMENT", value: "qa"},
		{name: "relative api url", key: "API_BASE_URL", value: "/api"},
		{name: "relative dashboard url", key: "DASHBOARD_SERVER_URL", value: "tableau"},
		{name: "zero timeout", key: "REQUEST_TIMEOUT", value: "0s"},
		{name: "unknown backend", key: "STORAGE_BACKEND", value: "etcd"},
		{name: "port out of range", key: "PORT", value: "70000"},
		{name: "negative rate limit", key: "RATE_LIMIT_RPS", value: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := NewConfig()
			assert.Error(t, err)
		})
	}
}

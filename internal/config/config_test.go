package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ListenPort)
	assert.Equal(t, SessionStoreCookie, cfg.SessionStore)
	assert.Equal(t, StorageJSON, cfg.StorageDriver)
	assert.Equal(t, "uploads", cfg.UploadPath)
	assert.Equal(t, []string{"png", "jpg", "jpeg", "gif", "webp"}, cfg.AllowedExtensions)
	assert.Equal(t, int64(16*1024*1024), cfg.MaxUploadSize)
	assert.Equal(t, time.Minute, cfg.LoginRateWindow)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, DefaultSessionSecret, cfg.SessionSecret)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "top-secret")
	t.Setenv("UPLOAD_PATH", "/tmp/up")
	t.Setenv("MAX_UPLOAD_SIZE", "2048")
	t.Setenv("ALLOWED_EXTENSIONS", " PNG, .jpg ,,")
	t.Setenv("STORAGE_DRIVER", "SQLite")
	t.Setenv("LOGIN_RATE_WINDOW", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "top-secret", cfg.SessionSecret)
	assert.Equal(t, "/tmp/up", cfg.UploadPath)
	assert.Equal(t, int64(2048), cfg.MaxUploadSize)
	assert.Equal(t, []string{"png", "jpg"}, cfg.AllowedExtensions)
	assert.Equal(t, StorageSQLite, cfg.StorageDriver)
	assert.Equal(t, 30*time.Second, cfg.LoginRateWindow)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_port: "9090"
allowed_extensions:
  - png
  - webp
session_store: memory
`), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ListenPort)
	assert.Equal(t, []string{"png", "webp"}, cfg.AllowedExtensions)
	assert.Equal(t, SessionStoreMemory, cfg.SessionStore)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"STORAGE_DRIVER":  "postgres",
		"SESSION_STORE":   "redis",
		"MAX_UPLOAD_SIZE": "0",
		"GIN_MODE":        "verbose",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNewRedisClient_DisabledWithoutAddr(t *testing.T) {
	assert.Nil(t, NewRedisClient(&Config{}))
}

func TestNewRedisClient_UnreachableReturnsNil(t *testing.T) {
	assert.Nil(t, NewRedisClient(&Config{RedisAddr: "127.0.0.1:1"}))
}

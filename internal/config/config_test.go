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
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "surveyflow", cfg.Mongo.Database)
	assert.Equal(t, 5, cfg.Collaborator.MaxRetries)
	assert.Equal(t, 12*time.Hour, cfg.Auth.HostTokenTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "surveyflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
log_level: debug
redis:
  addr: cache:6379
  session_ttl: 2h
collaborator:
  verify_url: https://verify.example.com/check
  max_retries: 3
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("REDIS_URI", "redis://redis:6380")
	t.Setenv("COLLABORATOR_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Redis.SessionTTL)
	assert.Equal(t, 10*time.Minute, cfg.Redis.DefinitionTTL)
	assert.Equal(t, "https://verify.example.com/check", cfg.Collaborator.VerifyURL)
	assert.Equal(t, 3, cfg.Collaborator.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Collaborator.Timeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad environment", "ENVIRONMENT", "moon"},
		{"short secret", "JWT_SECRET", "short"},
		{"bad submit url", "SUBMIT_URL", "not a url"},
		{"too many retries", "COLLABORATOR_MAX_RETRIES", "50"},
		{"negative host token ttl", "HOST_TOKEN_TTL", "-1h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

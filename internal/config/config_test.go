package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: sqlite
  path: /tmp/bemaster.db
auth:
  token_secret: file-secret
  token_ttl: 1h
storage:
  bucket: media
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Database.IsEmbedded())
	assert.Equal(t, "/tmp/bemaster.db", cfg.Database.Path)
	assert.Equal(t, "file-secret", cfg.Auth.TokenSecret)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "media", cfg.Storage.Bucket)

	assert.Equal(t, "x-token", cfg.Auth.Header)
	assert.Equal(t, "videos", cfg.Storage.Prefix)
	assert.Equal(t, 30*time.Second, cfg.Cache.TopRatedTTL)
	assert.False(t, cfg.Server.TrustProxy)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  token_secret: file-secret
storage:
  bucket: media
`)
	t.Setenv("BEMASTER_AUTH_TOKEN_SECRET", "env-secret")
	t.Setenv("BEMASTER_SERVER_PORT", "8081")
	t.Setenv("BEMASTER_SERVER_TRUST_PROXY", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Auth.TokenSecret)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.True(t, cfg.Server.TrustProxy)
	assert.Equal(t, 48*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRequiresTokenSecret(t *testing.T) {
	path := writeConfig(t, `
storage:
  bucket: media
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.token_secret")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Server:   ServerConfig{Port: 4000},
		Database: DatabaseConfig{Driver: "postgres", URL: "postgres://localhost/db"},
		Auth:     AuthConfig{TokenSecret: "s", TokenTTL: time.Hour},
		Storage:  StorageConfig{Bucket: "media"},
		Logging:  LoggingConfig{Format: "json"},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }},
		{"sqlite without path", func(c *Config) { c.Database.Driver = "sqlite"; c.Database.Path = "" }},
		{"missing bucket", func(c *Config) { c.Storage.Bucket = "" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

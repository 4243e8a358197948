package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guille1999utp/bemaster-part-2/internal/config"
	"github.com/guille1999utp/bemaster-part-2/internal/handlers"
	"github.com/guille1999utp/bemaster-part-2/internal/repositories/sqlite"
)

func testConfig() config.Config {
	return config.Config{
		Server:   config.ServerConfig{Port: 4000, MaxUploadBytes: 1 << 20},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: sqlite.MemoryPath},
		Auth:     config.AuthConfig{TokenSecret: "test-secret", TokenTTL: time.Hour, Header: "x-token"},
		Storage: config.StorageConfig{
			Bucket:          "media",
			Region:          "us-east-1",
			Endpoint:        "http://localhost:9000",
			Prefix:          "videos",
			AccessKeyID:     "test",
			SecretAccessKey: "test",
		},
		Cache:     config.CacheConfig{TopRatedTTL: time.Minute},
		RateLimit: config.RateLimitConfig{Enabled: true, Requests: 10, Window: time.Minute, Burst: 5, TTL: time.Minute},
		Logging:   config.LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestBuildDependencies(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, Addr: mr.Addr()}

	ctx := context.Background()
	st, err := openStores(ctx, cfg.Database, zerolog.Nop())
	require.NoError(t, err)
	defer st.close()

	deps, cleanup, err := buildDependencies(ctx, cfg, st, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, cleanup)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, cleanup(ctx))
	}()

	assert.NotNil(t, deps.Users)
	assert.NotNil(t, deps.Tokens)
	assert.NotNil(t, deps.Verifier)
	assert.NotNil(t, deps.Videos)
	assert.NotNil(t, deps.Limiter)
	assert.NotNil(t, deps.Metrics)
	assert.NotNil(t, deps.MetricsHandler)
	assert.Equal(t, int64(1<<20), deps.MaxUploadBytes)

	router := handlers.NewRouter(deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/video/top-rate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, mr.Exists("bemaster:videos:top-rated:0"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bemaster_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestBuildDependenciesWithoutOptionalServices(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	cfg := testConfig()
	cfg.RateLimit.Enabled = false

	ctx := context.Background()
	st, err := openStores(ctx, cfg.Database, zerolog.Nop())
	require.NoError(t, err)
	defer st.close()

	deps, cleanup, err := buildDependencies(ctx, cfg, st, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = cleanup(context.Background()) }()

	assert.Nil(t, deps.Limiter)
}

func TestBuildDependenciesRequiresBucket(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Bucket = ""

	st, err := openStores(context.Background(), cfg.Database, zerolog.Nop())
	require.NoError(t, err)
	defer st.close()

	_, _, err = buildDependencies(context.Background(), cfg, st, zerolog.Nop())
	assert.Error(t, err)
}

func TestRunRejectsUnknownCommands(t *testing.T) {
	assert.Error(t, Run(context.Background(), nil))

	err := Run(context.Background(), []string{"seed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "seed"`)
}

func writeSQLiteConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "bemaster.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"database:",
		"  driver: sqlite",
		"  path: " + dbPath,
		"auth:",
		"  token_secret: secret",
		"storage:",
		"  bucket: media",
	}, "\n")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	return cfgPath, dbPath
}

func TestRunMigrationsSQLite(t *testing.T) {
	cfgPath, dbPath := writeSQLiteConfig(t)

	var out bytes.Buffer
	require.NoError(t, runMigrations(context.Background(), []string{"--config", cfgPath, "up"}, &out))

	assert.Contains(t, out.String(), "sqlite schema is up to date")
	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestRunMigrationsRejectsUnknownSubcommand(t *testing.T) {
	cfgPath, _ := writeSQLiteConfig(t)

	err := runMigrations(context.Background(), []string{"--config", cfgPath, "down"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown migrate command "down"`)
}

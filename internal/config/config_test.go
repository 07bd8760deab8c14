package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NODE_ENV", "APP_ENV", "PORT", "CORS_ORIGINS", "SHUTDOWN_TIMEOUT", "BODY_LIMIT", "ENABLE_METRICS",
		"DB_DRIVER", "MONGO_URI", "DATABASE_URL", "DUCKDB_PATH", "DB_CONNECT_ATTEMPTS", "DB_CONNECT_DELAY",
		"DB_AUTO_MIGRATE", "STORAGE_BACKEND", "STORAGE_FOLDER", "CLOUD_NAME", "API_KEY", "API_SECRET",
		"LOCAL_STORAGE_DIR", "PUBLIC_BASE_URL", "MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY",
		"MINIO_BUCKET", "MINIO_REGION", "MINIO_PUBLIC_URL", "MINIO_PUBLIC_READ", "LOG_LEVEL", "LOG_FORMAT",
		"REQUEST_LOGGING",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3999, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Database.ConnectAttempts)
	assert.Equal(t, 2*time.Second, cfg.Database.ConnectDelay)
	assert.Equal(t, "uploads", cfg.Storage.Folder)
	assert.Equal(t, BackendLocal, cfg.Storage.Backend, "no cloud credentials falls back to local storage")
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "0.0.0.0:3999", cfg.GetServerAddr())
	assert.Equal(t, "http://localhost:3999", cfg.GetPublicBaseURL())
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
env: production
server:
  port: 8080
  allowOrigins: ["https://rrhh.example.com"]
  shutdownTimeout: 5s
database:
  driver: duckdb
  duckdbPath: /tmp/hojas.duckdb
storage:
  backend: minio
  folder: documentos
  minio:
    endpoint: http://minio:9000
    bucket: docs
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"https://rrhh.example.com"}, cfg.Server.AllowOrigins)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverDuckDB, cfg.Database.Driver)
	assert.Equal(t, "/tmp/hojas.duckdb", cfg.Database.DuckDBPath)
	assert.Equal(t, BackendMinio, cfg.Storage.Backend)
	assert.Equal(t, "documentos", cfg.Storage.Folder)
	assert.Equal(t, "docs", cfg.Storage.Minio.Bucket)
	assert.Equal(t, "us-east-1", cfg.Storage.Minio.Region, "unset keys keep their defaults")
}

func TestLoad_EnvironmentWins(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0644))

	t.Setenv("PORT", "9090")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("MONGO_URI", "postgres://legacy")
	t.Setenv("DATABASE_URL", "postgres://user:pass@db:5432/hojas")
	t.Setenv("CLOUD_NAME", "demo")
	t.Setenv("API_KEY", "key")
	t.Setenv("API_SECRET", "secret")
	t.Setenv("DB_CONNECT_DELAY", "500")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres://user:pass@db:5432/hojas", cfg.Database.URL)
	assert.Equal(t, BackendCloudinary, cfg.Storage.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.Database.ConnectDelay)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowOrigins)
	assert.Empty(t, cfg.MissingRequired())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		path string
	}{
		{name: "missing config file", path: "/nonexistent/config.yaml"},
		{name: "invalid port", env: map[string]string{"PORT": "abc"}},
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "mongodb"}},
		{name: "unknown backend", env: map[string]string{"STORAGE_BACKEND": "ftp"}},
		{name: "zero attempts", env: map[string]string{"DB_CONNECT_ATTEMPTS": "0"}},
		{name: "bad bool", env: map[string]string{"ENABLE_METRICS": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestMissingRequired(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Backend = BackendCloudinary
	assert.Equal(t, []string{"DATABASE_URL", "CLOUD_NAME", "API_KEY", "API_SECRET"}, cfg.MissingRequired())

	cfg.Database.Driver = DriverDuckDB
	cfg.Storage.Backend = BackendMinio
	assert.Equal(t, []string{"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY"}, cfg.MissingRequired())

	cfg.Storage.Backend = BackendLocal
	assert.Empty(t, cfg.MissingRequired())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("verbose"))
}

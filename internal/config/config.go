// Package config provides file- and environment-based configuration for the API server.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverDuckDB   = "duckdb"
)

// Storage backends.
const (
	BackendCloudinary = "cloudinary"
	BackendMinio      = "minio"
	BackendLocal      = "local"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	// Env is the deployment mode; "production" hides internal error details.
	Env string `yaml:"env"`

	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int           `yaml:"port"`
	BindAddress     string        `yaml:"bindAddress"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	BodyLimit       string        `yaml:"bodyLimit"`
	EnableMetrics   bool          `yaml:"enableMetrics"`
}

// DatabaseConfig selects and tunes the record store.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	DuckDBPath      string        `yaml:"duckdbPath"`
	MaxConns        int32         `yaml:"maxConns"`
	ConnectAttempts int           `yaml:"connectAttempts"`
	ConnectDelay    time.Duration `yaml:"connectDelay"`
	AutoMigrate     bool          `yaml:"autoMigrate"`
}

// StorageConfig selects the object-storage backend for uploaded documents.
type StorageConfig struct {
	Backend       string      `yaml:"backend"`
	Folder        string      `yaml:"folder"`
	CloudName     string      `yaml:"cloudName"`
	APIKey        string      `yaml:"apiKey"`
	APISecret     string      `yaml:"apiSecret"`
	LocalDir      string      `yaml:"localDir"`
	PublicBaseURL string      `yaml:"publicBaseUrl"`
	Minio         MinioConfig `yaml:"minio"`
}

// MinioConfig holds S3-compatible endpoint settings.
type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
	Bucket     string `yaml:"bucket"`
	Region     string `yaml:"region"`
	PublicURL  string `yaml:"publicUrl"`
	PublicRead bool   `yaml:"publicRead"`
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	RequestLogging bool   `yaml:"requestLogging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Env: "development",
		Server: ServerConfig{
			Port:            3999,
			BindAddress:     "0.0.0.0",
			AllowOrigins:    []string{"*"},
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			BodyLimit:       "110M",
			EnableMetrics:   true,
		},
		Database: DatabaseConfig{
			Driver:          DriverPostgres,
			MaxConns:        10,
			ConnectAttempts: 3,
			ConnectDelay:    2 * time.Second,
			AutoMigrate:     true,
		},
		Storage: StorageConfig{
			Folder:   "uploads",
			LocalDir: "./data/files",
			Minio: MinioConfig{
				Bucket: "hojas-de-vida",
				Region: "us-east-1",
			},
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "json",
			RequestLogging: true,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and finally the environment, which always wins.
func Load(path string) (*AppConfig, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}

	if cfg.Storage.Backend == "" {
		if cfg.Storage.CloudName != "" {
			cfg.Storage.Backend = BackendCloudinary
		} else {
			cfg.Storage.Backend = BackendLocal
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() error {
	envString("NODE_ENV", &c.Env)
	envString("APP_ENV", &c.Env)

	if err := envInt("PORT", &c.Server.Port); err != nil {
		return err
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.AllowOrigins = splitList(origins)
	}
	if err := envDuration("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout); err != nil {
		return err
	}
	envString("BODY_LIMIT", &c.Server.BodyLimit)
	if err := envBool("ENABLE_METRICS", &c.Server.EnableMetrics); err != nil {
		return err
	}

	envString("DB_DRIVER", &c.Database.Driver)
	envString("MONGO_URI", &c.Database.URL)
	envString("DATABASE_URL", &c.Database.URL)
	envString("DUCKDB_PATH", &c.Database.DuckDBPath)
	if err := envInt("DB_CONNECT_ATTEMPTS", &c.Database.ConnectAttempts); err != nil {
		return err
	}
	if err := envDuration("DB_CONNECT_DELAY", &c.Database.ConnectDelay); err != nil {
		return err
	}
	if err := envBool("DB_AUTO_MIGRATE", &c.Database.AutoMigrate); err != nil {
		return err
	}

	envString("STORAGE_BACKEND", &c.Storage.Backend)
	envString("STORAGE_FOLDER", &c.Storage.Folder)
	envString("CLOUD_NAME", &c.Storage.CloudName)
	envString("API_KEY", &c.Storage.APIKey)
	envString("API_SECRET", &c.Storage.APISecret)
	envString("LOCAL_STORAGE_DIR", &c.Storage.LocalDir)
	envString("PUBLIC_BASE_URL", &c.Storage.PublicBaseURL)
	envString("MINIO_ENDPOINT", &c.Storage.Minio.Endpoint)
	envString("MINIO_ACCESS_KEY", &c.Storage.Minio.AccessKey)
	envString("MINIO_SECRET_KEY", &c.Storage.Minio.SecretKey)
	envString("MINIO_BUCKET", &c.Storage.Minio.Bucket)
	envString("MINIO_REGION", &c.Storage.Minio.Region)
	envString("MINIO_PUBLIC_URL", &c.Storage.Minio.PublicURL)
	if err := envBool("MINIO_PUBLIC_READ", &c.Storage.Minio.PublicRead); err != nil {
		return err
	}

	envString("LOG_LEVEL", &c.Logging.Level)
	envString("LOG_FORMAT", &c.Logging.Format)
	return envBool("REQUEST_LOGGING", &c.Logging.RequestLogging)
}

func (c *AppConfig) validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverDuckDB:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Storage.Backend {
	case BackendCloudinary, BackendMinio, BackendLocal:
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}
	if c.Database.ConnectAttempts < 1 {
		return fmt.Errorf("database connect attempts must be at least 1, got %d", c.Database.ConnectAttempts)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
}

// MissingRequired lists the environment variables the selected backends need but
// that were not provided. Startup only logs them.
func (c *AppConfig) MissingRequired() []string {
	var missing []string
	if c.Database.Driver == DriverPostgres && c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Storage.Backend == BackendCloudinary {
		if c.Storage.CloudName == "" {
			missing = append(missing, "CLOUD_NAME")
		}
		if c.Storage.APIKey == "" {
			missing = append(missing, "API_KEY")
		}
		if c.Storage.APISecret == "" {
			missing = append(missing, "API_SECRET")
		}
	}
	if c.Storage.Backend == BackendMinio {
		if c.Storage.Minio.Endpoint == "" {
			missing = append(missing, "MINIO_ENDPOINT")
		}
		if c.Storage.Minio.AccessKey == "" {
			missing = append(missing, "MINIO_ACCESS_KEY")
		}
		if c.Storage.Minio.SecretKey == "" {
			missing = append(missing, "MINIO_SECRET_KEY")
		}
	}
	return missing
}

// IsProduction reports whether internal error details must be hidden.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetPublicBaseURL returns the externally visible base URL used for locally served files.
func (c *AppConfig) GetPublicBaseURL() string {
	if c.Storage.PublicBaseURL != "" {
		return strings.TrimRight(c.Storage.PublicBaseURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", c.Server.Port)
}

// SetupLogger creates the process logger and installs it as the slog default.
func SetupLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLogLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLogLevel maps a level name to slog.Level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

// envDuration accepts Go durations ("2s") or plain milliseconds ("2000").
func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(ms) * time.Millisecond
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

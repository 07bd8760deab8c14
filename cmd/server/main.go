package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hojasdevida/backend/internal/api"
	"github.com/hojasdevida/backend/internal/config"
	"github.com/hojasdevida/backend/internal/database"
	"github.com/hojasdevida/backend/internal/records"
	"github.com/hojasdevida/backend/internal/storage"
	"github.com/hojasdevida/backend/internal/upload"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := config.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting hojas de vida api",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("env", cfg.Env),
		slog.String("database", cfg.Database.Driver),
		slog.String("storage", cfg.Storage.Backend),
	)

	if missing := cfg.MissingRequired(); len(missing) > 0 {
		logger.Warn("missing environment variables", slog.String("variables", strings.Join(missing, ", ")))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	provider, local, err := openProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}

	policy := upload.NewPolicy(provider, cfg.Storage.Folder, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareOptions{
		AllowOrigins:   cfg.Server.AllowOrigins,
		BodyLimit:      cfg.Server.BodyLimit,
		RequestLogging: cfg.Logging.RequestLogging,
		EnableMetrics:  cfg.Server.EnableMetrics,
		Production:     cfg.IsProduction(),
		Logger:         logger,
	})
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:    store,
		Policy:   policy,
		Provider: provider,
		Local:    local,
		Version:  Version,
		Env:      cfg.Env,
		Logger:   logger,
	}))

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.GetServerAddr()))
		serverErr <- e.StartServer(s)
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", slog.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore connects the record store with the bounded startup retry. Failure is fatal.
func openStore(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (records.Store, func(), error) {
	policy := database.RetryPolicy{
		Attempts: cfg.Database.ConnectAttempts,
		Delay:    cfg.Database.ConnectDelay,
	}

	switch cfg.Database.Driver {
	case config.DriverDuckDB:
		var store *records.DuckStore
		var closeDB func()
		err := database.Retry(ctx, policy, logger, "duckdb", func(ctx context.Context) error {
			db, err := database.OpenDuckDB(cfg.Database.DuckDBPath, logger)
			if err != nil {
				return err
			}
			store = records.NewDuckStore(db)
			closeDB = func() { db.Close() }
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening record store: %w", err)
		}
		return store, closeDB, nil

	default:
		pool, err := database.ConnectWithRetry(ctx, cfg.Database.URL, cfg.Database.MaxConns, policy, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(cfg.Database.URL, logger); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return records.NewPostgresStore(pool), pool.Close, nil
	}
}

// openProvider builds the configured storage backend. local is non-nil only for
// the filesystem backend, whose files the API serves itself.
func openProvider(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (storage.Provider, *storage.LocalProvider, error) {
	switch cfg.Storage.Backend {
	case config.BackendCloudinary:
		p, err := storage.NewCloudinaryProvider(cfg.Storage.CloudName, cfg.Storage.APIKey, cfg.Storage.APISecret, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("configuring cloudinary: %w", err)
		}
		return p, nil, nil

	case config.BackendMinio:
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		m := cfg.Storage.Minio
		p, err := storage.NewMinioProvider(connectCtx, storage.MinioOptions{
			Endpoint:   m.Endpoint,
			AccessKey:  m.AccessKey,
			SecretKey:  m.SecretKey,
			Bucket:     m.Bucket,
			Region:     m.Region,
			PublicURL:  m.PublicURL,
			PublicRead: m.PublicRead,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("configuring minio: %w", err)
		}
		return p, nil, nil

	default:
		p, err := storage.NewLocalProvider(cfg.Storage.LocalDir, cfg.GetPublicBaseURL(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("configuring local storage: %w", err)
		}
		return p, p, nil
	}
}

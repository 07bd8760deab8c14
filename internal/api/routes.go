// routes.go - Route registration helpers
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hojasdevida/backend/internal/records"
	"github.com/hojasdevida/backend/internal/storage"
	"github.com/hojasdevida/backend/internal/upload"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store    records.Store
	Policy   *upload.Policy
	Provider storage.Provider
	// Local is set when the filesystem backend is in use; it enables /files/*.
	Local   *storage.LocalProvider
	Version string
	Env     string
	Logger  *slog.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	User   UserHandler
	Upload UploadHandler
	File   FileHandler
	// serveLocal registers /files/* when the filesystem backend is in use.
	serveLocal bool
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(deps.Version, deps.Env, deps.Store, deps.Provider),
		User:       NewUserHandler(deps.Store, deps.Logger),
		Upload:     NewUploadHandler(deps.Policy, deps.Logger),
		File:       NewFileHandler(deps.Policy, deps.Local, deps.Logger),
		serveLocal: deps.Local != nil,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/", handlers.Health.HandleRoot)
	e.GET("/health", handlers.Health.HandleHealth)

	// Employee records
	userGroup := e.Group("/api/user")
	userGroup.POST("", handlers.User.HandleCreateUser)
	userGroup.GET("", handlers.User.HandleListUsers)
	userGroup.PUT("/inactivo/:id", handlers.User.HandleDeactivateUser)
	userGroup.PUT("/activo/:id", handlers.User.HandleActivateUser)
	userGroup.PUT("/documents/:id", handlers.User.HandleUpdateDocuments)
	userGroup.GET("/documents/:id", handlers.User.HandleGetDocuments)
	userGroup.PUT("/:id", handlers.User.HandleUpdateUser)

	// Document uploads
	apiGroup := e.Group("/api")
	apiGroup.POST("/upload", handlers.Upload.HandleUpload)
	apiGroup.POST("/upload-pdf-direct", handlers.Upload.HandleUploadPDFDirect)
	apiGroup.POST("/upload-multiple", handlers.Upload.HandleUploadMultiple)

	// Stored files; public ids may contain "/"
	apiGroup.GET("/download/*", handlers.File.HandleDownloadURLs)
	apiGroup.DELETE("/delete/*", handlers.File.HandleDeleteFile)
	apiGroup.GET("/pdf/*", handlers.File.HandlePDF)
	apiGroup.GET("/file-info/*", handlers.File.HandleFileInfo)

	if handlers.serveLocal {
		e.GET(storage.LocalRoutePrefix+"/*", handlers.File.HandleServeLocal)
	}
}

// MiddlewareOptions configures SetupMiddleware
type MiddlewareOptions struct {
	AllowOrigins   []string
	BodyLimit      string
	RequestLogging bool
	EnableMetrics  bool
	Production     bool
	Logger         *slog.Logger
}

// SetupMiddleware configures the error handler and common middleware. With
// metrics enabled it also registers /metrics.
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	e.HTTPErrorHandler = NewErrorHandler(opts.Production, opts.Logger)

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
	}))

	if opts.EnableMetrics {
		e.Use(MetricsMiddleware())
		e.GET("/metrics", MetricsHandler())
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !opts.RequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/health" || path == "/metrics"
		},
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			opts.Logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, storage.LocalRoutePrefix+"/")
		},
	}))

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
}

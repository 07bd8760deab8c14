// handlers_health.go - Health check handlers
package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
)

const healthCheckTimeout = 3 * time.Second

// Pinger is a dependency whose reachability /health reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	env      string
	started  time.Time
	database Pinger
	storage  Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, env string, database, storage Pinger) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		env:      env,
		started:  time.Now(),
		database: database,
		storage:  storage,
	}
}

type memoryUsage struct {
	HeapAlloc  uint64 `json:"heapAlloc"`
	HeapSys    uint64 `json:"heapSys"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"numGC"`
	Goroutines int    `json:"goroutines"`
}

type healthResponse struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Uptime    float64     `json:"uptime"`
	Memory    memoryUsage `json:"memory"`
	Env       string      `json:"env"`
	Database  string      `json:"database"`
	Storage   string      `json:"storage"`
}

// HandleRoot answers the service banner
func (h *HealthHandlerImpl) HandleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "Servidor de Hojas de Vida API funcionando correctamente",
		"timestamp": timestamp(time.Now()),
		"version":   h.version,
	})
}

// HandleHealth returns server health status. It always answers 200; dependency
// state is reported in the body.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return c.JSON(http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: timestamp(time.Now()),
		Uptime:    time.Since(h.started).Seconds(),
		Memory: memoryUsage{
			HeapAlloc:  ms.HeapAlloc,
			HeapSys:    ms.HeapSys,
			Sys:        ms.Sys,
			NumGC:      ms.NumGC,
			Goroutines: runtime.NumGoroutine(),
		},
		Env:      h.env,
		Database: checkState(ctx, h.database),
		Storage:  checkState(ctx, h.storage),
	})
}

func checkState(ctx context.Context, p Pinger) string {
	if p == nil {
		return "unconfigured"
	}
	if err := p.Ping(ctx); err != nil {
		return "unavailable"
	}
	return "ok"
}

func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

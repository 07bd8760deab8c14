// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hojasdevida/backend/internal/models"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"error,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newAPIError(status int, code, message string, cause error) *APIError {
	err := &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	return newAPIError(http.StatusBadRequest, "BAD_REQUEST", message, cause)
}

// NewValidationError creates a 400 error for rejected record fields
func NewValidationError(message string, cause error) *APIError {
	return newAPIError(http.StatusBadRequest, "VALIDATION_ERROR", message, cause)
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(message string) *APIError {
	return newAPIError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

// NewUnsupportedMediaTypeError creates a 415 error for a rejected file type
func NewUnsupportedMediaTypeError(cause error) *APIError {
	return newAPIError(http.StatusUnsupportedMediaType, "INVALID_FILE_TYPE",
		"Tipo de archivo no permitido. Formatos permitidos: JPG, PNG, GIF, PDF, DOC, DOCX, XLS, XLSX", cause)
}

// NewPayloadTooLargeError creates a 413 error for an oversized file or body
func NewPayloadTooLargeError(cause error) *APIError {
	return newAPIError(http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
		"Archivo demasiado grande. Tamaño máximo permitido: 10MB", cause)
}

// NewTooManyFilesError creates a 400 error for a multi-file upload over the limit
func NewTooManyFilesError(cause error) *APIError {
	return newAPIError(http.StatusBadRequest, "LIMIT_FILE_COUNT",
		"Demasiados archivos. Máximo permitido: 10 archivos", cause)
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	return newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", message, cause)
}

// fromError maps a domain error onto its response. message is used for the
// record and upstream kinds; upload admission kinds carry their own wording.
func fromError(err error, message string) *APIError {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return NewNotFoundError(message)
	case errors.Is(err, models.ErrValidation):
		return NewValidationError(message, err)
	case errors.Is(err, models.ErrBadRequest):
		return NewBadRequestError(message, err)
	case errors.Is(err, models.ErrUnsupportedMediaType):
		return NewUnsupportedMediaTypeError(err)
	case errors.Is(err, models.ErrPayloadTooLarge):
		return NewPayloadTooLargeError(err)
	case errors.Is(err, models.ErrTooManyFiles):
		return NewTooManyFilesError(err)
	default:
		return NewInternalError(message, err)
	}
}

// routeNotFound is the body answered for unmatched routes.
type routeNotFound struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	AvailableRoutes []string `json:"availableRoutes"`
}

// NewErrorHandler returns the echo error handler. In production the detail of
// unexpected errors is replaced by a generic text.
// Usage: e.HTTPErrorHandler = api.NewErrorHandler(cfg.IsProduction(), logger)
func NewErrorHandler(production bool, logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *APIError
		var httpErr *echo.HTTPError

		switch {
		case errors.As(err, &apiErr):
		case errors.As(err, &httpErr):
			switch httpErr.Code {
			case http.StatusNotFound, http.StatusMethodNotAllowed:
				writeJSON(c, http.StatusNotFound, routeNotFound{
					Message:         fmt.Sprintf("Ruta %s no encontrada", c.Request().RequestURI),
					AvailableRoutes: availableRoutes(c.Echo()),
				})
				return
			case http.StatusRequestEntityTooLarge:
				apiErr = NewPayloadTooLargeError(nil)
			default:
				apiErr = &APIError{
					Status:  httpErr.Code,
					Code:    "HTTP_ERROR",
					Message: fmt.Sprintf("%v", httpErr.Message),
				}
			}
		default:
			apiErr = &APIError{
				Status:  http.StatusInternalServerError,
				Code:    "UNKNOWN_ERROR",
				Message: "Error interno del servidor",
				Details: err.Error(),
			}
			if production {
				apiErr.Details = "Error interno"
			}
		}

		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
				slog.String("code", apiErr.Code),
				slog.Any("error", err))
		}
		writeJSON(c, apiErr.Status, apiErr)
	}
}

func writeJSON(c echo.Context, status int, body any) {
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}

// availableRoutes lists the registered routes as "METHOD /path", sorted by path.
func availableRoutes(e *echo.Echo) []string {
	routes := e.Routes()
	out := make([]string, 0, len(routes))
	seen := make(map[string]bool, len(routes))
	for _, r := range routes {
		if strings.HasPrefix(r.Method, "echo_") {
			continue
		}
		entry := r.Method + " " + r.Path
		if seen[entry] {
			continue
		}
		seen[entry] = true
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i][strings.IndexByte(out[i], ' ')+1:], out[j][strings.IndexByte(out[j], ' ')+1:]
		if pi != pj {
			return pi < pj
		}
		return out[i] < out[j]
	})
	return out
}

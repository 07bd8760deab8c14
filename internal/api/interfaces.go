// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// UserHandler handles employee record operations
type UserHandler interface {
	HandleCreateUser(c echo.Context) error
	HandleListUsers(c echo.Context) error
	HandleUpdateUser(c echo.Context) error
	HandleDeactivateUser(c echo.Context) error
	HandleActivateUser(c echo.Context) error
	HandleUpdateDocuments(c echo.Context) error
	HandleGetDocuments(c echo.Context) error
}

// UploadHandler handles document upload operations
type UploadHandler interface {
	HandleUpload(c echo.Context) error
	HandleUploadPDFDirect(c echo.Context) error
	HandleUploadMultiple(c echo.Context) error
}

// FileHandler handles operations on already stored files
type FileHandler interface {
	HandleDownloadURLs(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
	HandlePDF(c echo.Context) error
	HandleFileInfo(c echo.Context) error
	HandleServeLocal(c echo.Context) error
}

// HealthHandler handles liveness and info endpoints
type HealthHandler interface {
	HandleRoot(c echo.Context) error
	HandleHealth(c echo.Context) error
}

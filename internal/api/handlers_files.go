// handlers_files.go - Handlers for stored files: URLs, deletion, metadata and local serving
package api

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hojasdevida/backend/internal/models"
	"github.com/hojasdevida/backend/internal/storage"
	"github.com/hojasdevida/backend/internal/upload"
)

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	policy *upload.Policy
	local  *storage.LocalProvider
	logger *slog.Logger
}

// NewFileHandler creates a new file handler. local may be nil when another
// backend is configured; /files/* then answers 404.
func NewFileHandler(policy *upload.Policy, local *storage.LocalProvider, logger *slog.Logger) FileHandler {
	return &FileHandlerImpl{
		policy: policy,
		local:  local,
		logger: logger,
	}
}

type downloadResponse struct {
	Success     bool   `json:"success"`
	DownloadURL string `json:"downloadUrl"`
	ViewURL     string `json:"viewUrl,omitempty"`
	DirectURL   string `json:"directUrl"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

type pdfResponse struct {
	Success bool              `json:"success"`
	URLs    *models.URLBundle `json:"urls"`
	IsPDF   bool              `json:"isPDF"`
}

type fileInfoResponse struct {
	Success      bool            `json:"success"`
	Info         models.FileInfo `json:"info"`
	IsPDF        bool            `json:"isPDF"`
	ResourceType string          `json:"resource_type"`
}

// HandleDownloadURLs derives the download, view and direct URLs of a stored file
func (h *FileHandlerImpl) HandleDownloadURLs(c echo.Context) error {
	publicID := wildcardID(c)
	if publicID == "" {
		return NewBadRequestError("Se requiere el identificador del archivo", nil)
	}
	rt, ok := storage.ParseResourceType(c.QueryParam("resource_type"))
	if !ok {
		return NewBadRequestError("Tipo de recurso inválido", nil)
	}
	isPDF := queryBool(c, "isPDF")

	urls, err := h.policy.URLs(publicID, isPDF, c.QueryParam("filename"), rt)
	if err != nil {
		return NewInternalError("Error al generar URL de descarga", err)
	}

	resp := downloadResponse{
		Success:     true,
		DownloadURL: urls.Download,
		DirectURL:   urls.Direct,
	}
	if isPDF {
		resp.ViewURL = urls.View
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleDeleteFile removes a stored file; a provider result other than "ok" answers 400
func (h *FileHandlerImpl) HandleDeleteFile(c echo.Context) error {
	publicID := wildcardID(c)
	if publicID == "" {
		return NewBadRequestError("Se requiere el identificador del archivo", nil)
	}
	rt, ok := storage.ParseResourceType(c.QueryParam("resource_type"))
	if !ok {
		return NewBadRequestError("Tipo de recurso inválido", nil)
	}

	res, err := h.policy.Delete(c.Request().Context(), publicID, rt)
	if err != nil {
		return NewInternalError("Error al eliminar archivo", err)
	}

	if res.Result != storage.ResultOK {
		return c.JSON(http.StatusBadRequest, deleteResponse{
			Message: "No se pudo eliminar el archivo",
			Result:  res.Result,
		})
	}

	h.logger.Info("file deleted", slog.String("public_id", publicID), slog.String("resource_type", string(rt)))
	return c.JSON(http.StatusOK, deleteResponse{
		Success: true,
		Message: "Archivo eliminado exitosamente",
		Result:  res.Result,
	})
}

// HandlePDF returns the URL bundle of a PDF, or redirects to its download URL when download=true
func (h *FileHandlerImpl) HandlePDF(c echo.Context) error {
	publicID := wildcardID(c)
	if publicID == "" {
		return NewBadRequestError("Se requiere el identificador del archivo", nil)
	}

	urls, err := h.policy.URLs(publicID, true, c.QueryParam("filename"), storage.ResourceRaw)
	if err != nil {
		return NewInternalError("Error al procesar PDF", err)
	}

	if queryBool(c, "download") {
		return c.Redirect(http.StatusFound, urls.Download)
	}
	return c.JSON(http.StatusOK, pdfResponse{Success: true, URLs: urls, IsPDF: true})
}

// HandleFileInfo returns provider metadata. A missing file answers 500 like any other failure.
func (h *FileHandlerImpl) HandleFileInfo(c echo.Context) error {
	publicID := wildcardID(c)
	if publicID == "" {
		return NewBadRequestError("Se requiere el identificador del archivo", nil)
	}

	info, err := h.policy.Info(c.Request().Context(), publicID)
	if err != nil {
		return NewInternalError("Error al obtener información del archivo", err)
	}

	return c.JSON(http.StatusOK, fileInfoResponse{
		Success:      true,
		Info:         info.File,
		IsPDF:        info.IsPDF,
		ResourceType: string(info.ResourceType),
	})
}

// HandleServeLocal serves /files/<category>/[fl_attachment/]<public id> from the
// filesystem backend. The attachment flag, or a fl_attachment query, forces a download.
func (h *FileHandlerImpl) HandleServeLocal(c echo.Context) error {
	if h.local == nil {
		return echo.ErrNotFound
	}

	category, rest, found := strings.Cut(wildcardID(c), "/")
	rt, ok := storage.ParseResourceType(category)
	if !found || !ok || rt == "" {
		return echo.ErrNotFound
	}
	attachment := false
	if after, cut := strings.CutPrefix(rest, "fl_"+storage.FlagAttachment+"/"); cut {
		attachment = true
		rest = after
	}
	filename := path.Base(rest)
	if c.QueryParams().Has("fl_" + storage.FlagAttachment) {
		attachment = true
		if name := c.QueryParam("fl_" + storage.FlagAttachment); name != "" {
			filename = name
		}
	}

	f, err := h.local.Open(rt, rest)
	if errors.Is(err, storage.ErrNotFound) {
		return NewNotFoundError("Archivo no encontrado")
	}
	if err != nil {
		return NewInternalError("Error al leer el archivo", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return NewInternalError("Error al leer el archivo", err)
	}
	if attachment {
		c.Response().Header().Set(echo.HeaderContentDisposition,
			mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}
	http.ServeContent(c.Response(), c.Request(), stat.Name(), stat.ModTime(), f)
	return nil
}

// wildcardID returns the unescaped "*" path parameter; public ids may contain "/".
func wildcardID(c echo.Context) string {
	raw := c.Param("*")
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}

func queryBool(c echo.Context, name string) bool {
	b, _ := strconv.ParseBool(c.QueryParam(name))
	return b
}

// handlers_upload.go - Document upload handlers
package api

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/hojasdevida/backend/internal/models"
	"github.com/hojasdevida/backend/internal/upload"
)

// singleFileField is the form field the web client uses for single uploads.
const singleFileField = "archivo"

const (
	msgNoFile      = "No se ha subido ningún archivo"
	msgUploadError = "Error al subir archivo"
)

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	policy *upload.Policy
	logger *slog.Logger
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(policy *upload.Policy, logger *slog.Logger) UploadHandler {
	return &UploadHandlerImpl{
		policy: policy,
		logger: logger,
	}
}

// multipartUpload is the response of the multi-file upload.
type multipartUpload struct {
	Files []*models.UploadedFile `json:"files"`
	Count int                    `json:"count"`
}

// HandleUpload stores one file, preferring the "archivo" field
func (h *UploadHandlerImpl) HandleUpload(c echo.Context) error {
	file, ok := singleFile(c)
	if !ok {
		return NewBadRequestError(msgNoFile, nil)
	}

	out, err := h.policy.Store(c.Request().Context(), file, false)
	if err != nil {
		return fromError(err, msgUploadError)
	}
	return c.JSON(http.StatusOK, out)
}

// HandleUploadPDFDirect stores a file with a .pdf name or PDF type under the raw category
func (h *UploadHandlerImpl) HandleUploadPDFDirect(c echo.Context) error {
	file, ok := singleFile(c)
	if !ok {
		return NewBadRequestError(msgNoFile, nil)
	}
	if !upload.IsPDFFile(file.Name, file.ContentType) {
		return NewBadRequestError("Solo se permiten archivos PDF en esta ruta", nil)
	}

	out, err := h.policy.StorePDF(c.Request().Context(), file)
	if err != nil {
		return fromError(err, msgUploadError)
	}
	out.UploadMethod = "direct"
	return c.JSON(http.StatusOK, out)
}

// HandleUploadMultiple stores up to upload.MaxFiles files from any form fields
func (h *UploadHandlerImpl) HandleUploadMultiple(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError(msgNoFile, err)
	}

	files := formFiles(form)
	if len(files) == 0 {
		return NewBadRequestError(msgNoFile, nil)
	}

	out, err := h.policy.StoreMany(c.Request().Context(), files)
	if err != nil {
		return fromError(err, msgUploadError)
	}

	h.logger.Info("documents stored", slog.Int("count", len(out)))
	return c.JSON(http.StatusOK, multipartUpload{Files: out, Count: len(out)})
}

// singleFile picks the "archivo" part, or else the first file part by field name.
func singleFile(c echo.Context) (upload.File, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		return upload.File{}, false
	}
	if fhs := form.File[singleFileField]; len(fhs) > 0 {
		return upload.FromMultipart(singleFileField, fhs[0]), true
	}
	files := formFiles(form)
	if len(files) == 0 {
		return upload.File{}, false
	}
	return files[0], true
}

// formFiles flattens every file part, ordered by field name then position.
func formFiles(form *multipart.Form) []upload.File {
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var files []upload.File
	for _, field := range fields {
		for _, fh := range form.File[field] {
			files = append(files, upload.FromMultipart(field, fh))
		}
	}
	return files
}

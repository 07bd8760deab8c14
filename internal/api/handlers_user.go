// handlers_user.go - Employee record handlers
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hojasdevida/backend/internal/models"
	"github.com/hojasdevida/backend/internal/records"
)

const (
	mimeMsgpack = "application/msgpack"

	msgUserNotFound = "Usuario no encontrado"
)

// userResponse is the envelope of every single-record answer.
type userResponse struct {
	Message string `json:"message"`
	User    any    `json:"user"`
}

// UserHandlerImpl implements the UserHandler interface
type UserHandlerImpl struct {
	store  records.Store
	logger *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(store records.Store, logger *slog.Logger) UserHandler {
	return &UserHandlerImpl{
		store:  store,
		logger: logger,
	}
}

// HandleCreateUser inserts a record. Every failure answers 500, as existing clients expect.
func (h *UserHandlerImpl) HandleCreateUser(c echo.Context) error {
	fields, err := readFields(c)
	if err != nil {
		return NewInternalError("Error al crear el usuario", err)
	}

	user, err := h.store.Create(c.Request().Context(), fields)
	if err != nil {
		h.logger.Warn("create user failed", slog.Any("error", err))
		return NewInternalError("Error al crear el usuario", err)
	}

	h.logger.Info("user created", slog.String("id", user.ID))
	return c.JSON(http.StatusCreated, userResponse{
		Message: "Usuario creado exitosamente",
		User:    user,
	})
}

// HandleListUsers returns every record, as msgpack when the client asks for it.
func (h *UserHandlerImpl) HandleListUsers(c echo.Context) error {
	users, err := h.store.ListAll(c.Request().Context())
	if err != nil {
		return NewInternalError("Error al obtener la lista de usuarios", err)
	}

	if acceptsMsgpack(c.Request()) {
		data, err := encodeMsgpack(users)
		if err != nil {
			return NewInternalError("Error al obtener la lista de usuarios", err)
		}
		return c.Blob(http.StatusOK, mimeMsgpack, data)
	}
	return c.JSON(http.StatusOK, users)
}

// HandleUpdateUser overwrites the fields present in the body.
// Every failure other than an unknown id answers 500.
func (h *UserHandlerImpl) HandleUpdateUser(c echo.Context) error {
	id := c.Param("id")

	fields, err := readFields(c)
	if err != nil {
		return NewInternalError("Error al actualizar el usuario", err)
	}

	user, err := h.store.ReplaceFields(c.Request().Context(), id, fields)
	if errors.Is(err, models.ErrNotFound) {
		return NewNotFoundError(msgUserNotFound)
	}
	if err != nil {
		return NewInternalError("Error al actualizar el usuario", err)
	}

	return c.JSON(http.StatusOK, userResponse{
		Message: "Usuario actualizado exitosamente",
		User:    user,
	})
}

// HandleDeactivateUser sets Estado to 0
func (h *UserHandlerImpl) HandleDeactivateUser(c echo.Context) error {
	return h.setStatus(c, models.StatusInactive, "Usuario desactivado exitosamente")
}

// HandleActivateUser sets Estado to 1
func (h *UserHandlerImpl) HandleActivateUser(c echo.Context) error {
	return h.setStatus(c, models.StatusActive, "Usuario activado exitosamente")
}

func (h *UserHandlerImpl) setStatus(c echo.Context, status models.Status, message string) error {
	id := c.Param("id")

	user, err := h.store.SetStatus(c.Request().Context(), id, status)
	if errors.Is(err, models.ErrNotFound) {
		return NewNotFoundError(msgUserNotFound)
	}
	if err != nil {
		return NewInternalError("Error al modificar el estado del usuario", err)
	}

	h.logger.Info("user status changed", slog.String("id", id), slog.String("estado", status.String()))
	return c.JSON(http.StatusOK, userResponse{Message: message, User: user})
}

type updateDocumentsRequest struct {
	DocumentUrls models.DocumentMap `json:"DocumentUrls"`
}

// HandleUpdateDocuments replaces the document map wholesale.
func (h *UserHandlerImpl) HandleUpdateDocuments(c echo.Context) error {
	id := c.Param("id")

	var req updateDocumentsRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return NewBadRequestError("Cuerpo de la solicitud inválido", err)
	}
	if len(req.DocumentUrls) == 0 {
		return NewBadRequestError("No se proporcionaron documentos para actualizar", nil)
	}

	user, err := h.store.ReplaceDocumentMap(c.Request().Context(), id, req.DocumentUrls)
	if errors.Is(err, models.ErrNotFound) {
		return NewNotFoundError(msgUserNotFound)
	}
	if err != nil {
		return fromError(err, "Error al actualizar documentos")
	}

	return c.JSON(http.StatusOK, userResponse{
		Message: "Documentos actualizados exitosamente",
		User:    user,
	})
}

// HandleGetDocuments returns the document map with the identifying fields.
func (h *UserHandlerImpl) HandleGetDocuments(c echo.Context) error {
	view, err := h.store.GetDocumentMap(c.Request().Context(), c.Param("id"))
	if errors.Is(err, models.ErrNotFound) {
		return NewNotFoundError(msgUserNotFound)
	}
	if err != nil {
		return NewInternalError("Error al obtener documentos", err)
	}

	return c.JSON(http.StatusOK, userResponse{
		Message: "Documentos obtenidos exitosamente",
		User:    view,
	})
}

func readFields(c echo.Context) (records.Fields, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", models.ErrBadRequest, err)
	}
	return records.ParseFields(body)
}

func acceptsMsgpack(r *http.Request) bool {
	return strings.Contains(r.Header.Get(echo.HeaderAccept), mimeMsgpack)
}

// encodeMsgpack uses the json tags so both encodings share field names.
func encodeMsgpack(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

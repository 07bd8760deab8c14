package records

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hojasdevida/backend/internal/models"
)

// runStoreSuite exercises the gateway contract against any Store implementation.
// newStore must return an empty store.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	create := func(t *testing.T, s Store, identificacion, correo string) *models.Employee {
		t.Helper()
		fields, err := ParseFields(mustJSON(t, validEmployeeBody(identificacion, correo)))
		require.NoError(t, err)
		e, err := s.Create(ctx, fields)
		require.NoError(t, err)
		return e
	}

	t.Run("create then list includes active record", func(t *testing.T) {
		s := newStore(t)
		created := create(t, s, "1001", "laura@example.com")

		assert.NotEmpty(t, created.ID)
		assert.Equal(t, models.StatusActive, created.Estado)
		assert.False(t, created.CreatedAt.IsZero())
		assert.Equal(t, "Medellín", created.Ciudad)
		assert.Equal(t, 4500000.0, created.Sueldo)
		assert.Equal(t, "1990-05-17", created.FechaNacimiento.Format("2006-01-02"))

		list, err := s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, created.ID, list[0].ID)
		assert.Equal(t, models.StatusActive, list[0].Estado)
	})

	t.Run("list keeps insertion order", func(t *testing.T) {
		s := newStore(t)
		first := create(t, s, "2001", "a@example.com")
		second := create(t, s, "2002", "b@example.com")
		third := create(t, s, "2003", "c@example.com")

		list, err := s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
	})

	t.Run("empty store lists nothing", func(t *testing.T) {
		s := newStore(t)
		list, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("duplicate identificacion or correo is a validation error", func(t *testing.T) {
		s := newStore(t)
		create(t, s, "3001", "dup@example.com")

		sameID, err := ParseFields(mustJSON(t, validEmployeeBody("3001", "other@example.com")))
		require.NoError(t, err)
		_, err = s.Create(ctx, sameID)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrValidation)

		sameMail, err := ParseFields(mustJSON(t, validEmployeeBody("3002", "dup@example.com")))
		require.NoError(t, err)
		_, err = s.Create(ctx, sameMail)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrValidation)

		list, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("missing required field is a validation error", func(t *testing.T) {
		s := newStore(t)
		body := validEmployeeBody("4001", "x@example.com")
		delete(body, "Nombre")
		fields, err := ParseFields(mustJSON(t, body))
		require.NoError(t, err)

		_, err = s.Create(ctx, fields)
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("replace fields updates only given fields", func(t *testing.T) {
		s := newStore(t)
		created := create(t, s, "5001", "r@example.com")

		updated, err := s.ReplaceFields(ctx, created.ID, Fields{"Cargo": "Coordinadora", "Edad": 35.0})
		require.NoError(t, err)
		assert.Equal(t, "Coordinadora", updated.Cargo)
		assert.Equal(t, 35.0, updated.Edad)
		assert.Equal(t, created.Nombre, updated.Nombre)
		assert.Equal(t, created.Identificacion, updated.Identificacion)
		assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

		unchanged, err := s.ReplaceFields(ctx, created.ID, Fields{})
		require.NoError(t, err)
		assert.Equal(t, "Coordinadora", unchanged.Cargo)
	})

	t.Run("replace fields accepts the full record resent", func(t *testing.T) {
		s := newStore(t)
		created := create(t, s, "5101", "full@example.com")

		body := validEmployeeBody("5101", "full@example.com")
		body["Cargo"] = "Directora"
		fields, err := ParseFields(mustJSON(t, body))
		require.NoError(t, err)

		updated, err := s.ReplaceFields(ctx, created.ID, fields)
		require.NoError(t, err)
		assert.Equal(t, "Directora", updated.Cargo)
		assert.Equal(t, "5101", updated.Identificacion)
		assert.Equal(t, "full@example.com", updated.Correo)

		list, err := s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, created.ID, list[0].ID)
	})

	t.Run("replace fields changes unique values unless taken", func(t *testing.T) {
		s := newStore(t)
		first := create(t, s, "5201", "uno@example.com")
		create(t, s, "5202", "dos@example.com")

		moved, err := s.ReplaceFields(ctx, first.ID, Fields{"Identificacion": "5299", "Correo": "nuevo@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "5299", moved.Identificacion)
		assert.Equal(t, "nuevo@example.com", moved.Correo)

		_, err = s.ReplaceFields(ctx, first.ID, Fields{"Identificacion": "5202"})
		assert.ErrorIs(t, err, models.ErrValidation)
		_, err = s.ReplaceFields(ctx, first.ID, Fields{"Correo": "dos@example.com"})
		assert.ErrorIs(t, err, models.ErrValidation)

		taken, err := ParseFields(mustJSON(t, validEmployeeBody("5299", "otro@example.com")))
		require.NoError(t, err)
		_, err = s.Create(ctx, taken)
		assert.ErrorIs(t, err, models.ErrValidation)

		create(t, s, "5201", "uno@example.com")
	})

	t.Run("replace fields on unknown id is not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.ReplaceFields(ctx, uuid.NewString(), Fields{"Cargo": "X"})
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = s.ReplaceFields(ctx, "not-a-uuid", Fields{"Cargo": "X"})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("status round trip leaves other fields unchanged", func(t *testing.T) {
		s := newStore(t)
		created := create(t, s, "6001", "s@example.com")

		inactive, err := s.SetStatus(ctx, created.ID, models.StatusInactive)
		require.NoError(t, err)
		assert.Equal(t, models.StatusInactive, inactive.Estado)

		active, err := s.SetStatus(ctx, created.ID, models.StatusActive)
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, active.Estado)

		assert.Equal(t, created.Nombre, active.Nombre)
		assert.Equal(t, created.Correo, active.Correo)
		assert.Equal(t, created.Sueldo, active.Sueldo)
		assert.True(t, created.FechaIngresoEmpresa.Equal(active.FechaIngresoEmpresa.Time))
		assert.True(t, created.CreatedAt.Equal(active.CreatedAt))
	})

	t.Run("status on unknown id is not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.SetStatus(ctx, uuid.NewString(), models.StatusInactive)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("document map replace is wholesale", func(t *testing.T) {
		s := newStore(t)
		created := create(t, s, "7001", "d@example.com")

		_, err := s.ReplaceDocumentMap(ctx, created.ID, models.DocumentMap{
			"cedula":   {URL: "https://cdn.test/cedula.pdf", PublicID: "uploads/cedula"},
			"contrato": {URL: "https://cdn.test/contrato.pdf", PublicID: "uploads/contrato"},
		})
		require.NoError(t, err)

		updated, err := s.ReplaceDocumentMap(ctx, created.ID, models.DocumentMap{
			"hoja": {URL: "https://cdn.test/hoja.docx", PublicID: "uploads/hoja"},
		})
		require.NoError(t, err)
		assert.Equal(t, models.DocumentMap{"hoja": {URL: "https://cdn.test/hoja.docx", PublicID: "uploads/hoja"}}, updated.DocumentUrls)

		view, err := s.GetDocumentMap(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, view.ID)
		assert.Equal(t, "Laura", view.Nombre)
		assert.Equal(t, "Gómez", view.Apellido)
		assert.Equal(t, "7001", view.Identificacion)
		assert.Len(t, view.DocumentUrls, 1)
	})

	t.Run("empty document map is a bad request and keeps existing map", func(t *testing.T) {
		s := newStore(t)
		created := create(t, s, "8001", "e@example.com")
		docs := models.DocumentMap{"cedula": {URL: "https://cdn.test/c.pdf", PublicID: "uploads/c"}}
		_, err := s.ReplaceDocumentMap(ctx, created.ID, docs)
		require.NoError(t, err)

		_, err = s.ReplaceDocumentMap(ctx, created.ID, models.DocumentMap{})
		assert.ErrorIs(t, err, models.ErrBadRequest)
		_, err = s.ReplaceDocumentMap(ctx, created.ID, nil)
		assert.ErrorIs(t, err, models.ErrBadRequest)

		view, err := s.GetDocumentMap(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, docs, view.DocumentUrls)
	})

	t.Run("document map of record without documents is empty", func(t *testing.T) {
		s := newStore(t)
		created := create(t, s, "9001", "f@example.com")

		view, err := s.GetDocumentMap(ctx, created.ID)
		require.NoError(t, err)
		assert.NotNil(t, view.DocumentUrls)
		assert.Empty(t, view.DocumentUrls)
	})

	t.Run("document operations on unknown id are not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetDocumentMap(ctx, uuid.NewString())
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = s.ReplaceDocumentMap(ctx, uuid.NewString(), models.DocumentMap{"a": {URL: "u", PublicID: "p"}})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(ctx))
	})
}

package records

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hojasdevida/backend/internal/models"
)

// validEmployeeBody returns a complete create payload as the web client sends it.
func validEmployeeBody(identificacion, correo string) map[string]any {
	return map[string]any{
		"Identificacion":          identificacion,
		"Nombre":                  "Laura",
		"Apellido":                "Gómez",
		"Correo":                  correo,
		"Telefono":                "3001234567",
		"FechaNacimiento":         "1990-05-17",
		"Eps":                     "Sura",
		"Arl":                     "Positiva",
		"Estrato":                 3,
		"Edad":                    34,
		"Hijos":                   0,
		"EstadoCivil":             "Soltera",
		"TipoSangre":              "O+",
		"TipoContrato":            "Indefinido",
		"FechaInicioContrato":     "2020-02-01",
		"FechaFinContrato":        "2025-02-01",
		"CajaCompensacion":        "Comfama",
		"FondoPension":            "Protección",
		"PerfilProfesional":       "Ingeniera de sistemas",
		"UltimoPeriodoVacacional": "2023-12-15",
		"EvaluacionDesempeño":     "Sobresaliente",
		"Cargo":                   "Analista",
		"Sueldo":                  "4500000",
		"FechaIngresoEmpresa":     "2020-02-01T08:00:00Z",
		"Ciudad":                  "Medellín",
		"Sede":                    "Principal",
		"Observaciones":           "Ninguna",
		"CampoDesconocido":        "se ignora",
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestParseFields(t *testing.T) {
	t.Run("complete body coerces loose types", func(t *testing.T) {
		fields, err := ParseFields(mustJSON(t, validEmployeeBody("1001", "laura@example.com")))
		require.NoError(t, err)

		assert.Empty(t, fields.Missing())
		assert.Equal(t, "3", fields["Estrato"], "numbers are accepted for string fields")
		assert.Equal(t, 4500000.0, fields["Sueldo"], "numeric strings are accepted for number fields")
		assert.Equal(t, 0.0, fields["Hijos"])
		assert.Equal(t, time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC), fields["FechaNacimiento"])
		assert.NotContains(t, fields, "CampoDesconocido")
		assert.NotContains(t, fields, "Estado")
	})

	t.Run("empty body yields no fields", func(t *testing.T) {
		fields, err := ParseFields([]byte("  "))
		require.NoError(t, err)
		assert.Empty(t, fields)
		assert.Len(t, fields.Missing(), 26)
	})

	t.Run("null and empty values count as absent", func(t *testing.T) {
		fields, err := ParseFields([]byte(`{"Nombre": null, "Edad": "", "FechaNacimiento": "", "Apellido": ""}`))
		require.NoError(t, err)
		assert.NotContains(t, fields, "Nombre")
		assert.NotContains(t, fields, "Edad")
		assert.NotContains(t, fields, "FechaNacimiento")
		assert.Equal(t, "", fields["Apellido"])
		assert.Contains(t, fields.Missing(), "Apellido", "empty strings fail required")
	})

	t.Run("epoch milliseconds for dates", func(t *testing.T) {
		fields, err := ParseFields([]byte(`{"FechaNacimiento": 0}`))
		require.NoError(t, err)
		assert.Equal(t, time.Unix(0, 0).UTC(), fields["FechaNacimiento"])
	})

	t.Run("status accepts 0 and 1", func(t *testing.T) {
		fields, err := ParseFields([]byte(`{"Estado": 0}`))
		require.NoError(t, err)
		assert.Equal(t, 0, fields["Estado"])

		fields, err = ParseFields([]byte(`{"Estado": "1"}`))
		require.NoError(t, err)
		assert.Equal(t, 1, fields["Estado"])
	})

	errorCases := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "not an object", body: `[1,2]`, wantErr: models.ErrBadRequest},
		{name: "malformed json", body: `{"Nombre":`, wantErr: models.ErrBadRequest},
		{name: "status out of range", body: `{"Estado": 2}`, wantErr: models.ErrValidation},
		{name: "fractional status", body: `{"Estado": 0.5}`, wantErr: models.ErrValidation},
		{name: "bad date", body: `{"FechaNacimiento": "17/05/1990"}`, wantErr: models.ErrValidation},
		{name: "bad number", body: `{"Edad": "treinta"}`, wantErr: models.ErrValidation},
		{name: "object for string", body: `{"Nombre": {"x": 1}}`, wantErr: models.ErrValidation},
		{name: "bool for number", body: `{"Sueldo": true}`, wantErr: models.ErrValidation},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFields([]byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewEmployee(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("defaults to active", func(t *testing.T) {
		fields, err := ParseFields(mustJSON(t, validEmployeeBody("1001", "laura@example.com")))
		require.NoError(t, err)

		e, err := newEmployee(fields, now)
		require.NoError(t, err)
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, models.StatusActive, e.Estado)
		assert.Equal(t, "Laura", e.Nombre)
		assert.Equal(t, "Sobresaliente", e.EvaluacionDesempeno)
		assert.Equal(t, now, e.CreatedAt)
	})

	t.Run("explicit inactive status is kept", func(t *testing.T) {
		body := validEmployeeBody("1002", "b@example.com")
		body["Estado"] = 0
		fields, err := ParseFields(mustJSON(t, body))
		require.NoError(t, err)

		e, err := newEmployee(fields, now)
		require.NoError(t, err)
		assert.Equal(t, models.StatusInactive, e.Estado)
	})

	t.Run("missing required fields", func(t *testing.T) {
		body := validEmployeeBody("1003", "c@example.com")
		delete(body, "Cargo")
		delete(body, "Sede")
		fields, err := ParseFields(mustJSON(t, body))
		require.NoError(t, err)

		_, err = newEmployee(fields, now)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Contains(t, err.Error(), "Cargo")
		assert.Contains(t, err.Error(), "Sede")
	})
}

func TestUpdateStatement(t *testing.T) {
	fields := Fields{"Cargo": "Líder", "Edad": 35.0, "Estado": 0}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	query, args := updateStatement("id-1", fields, now)

	assert.Contains(t, query, "SET edad = $2, cargo = $3, estado = $4, updated_at = $5 WHERE id = $1")
	assert.Equal(t, []any{"id-1", 35.0, "Líder", 0, now}, args)
}

func TestInsertSQL_PlaceholderCount(t *testing.T) {
	e := &models.Employee{ID: "x"}
	args := insertArgs(e)
	assert.Contains(t, insertSQL, "$"+strconv.Itoa(len(args))+")")
	assert.NotContains(t, insertSQL, "$"+strconv.Itoa(len(args)+1))
}

func TestUniqueField(t *testing.T) {
	assert.Equal(t, "Identificacion", uniqueField("employees_identificacion_key"))
	assert.Equal(t, "Correo", uniqueField(`Duplicate key "correo: a@b.c" violates unique constraint`))
	assert.Equal(t, "registro", uniqueField("employees_pkey"))
}

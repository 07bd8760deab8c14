package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hojasdevida/backend/internal/models"
)

type kind int

const (
	kindString kind = iota
	kindNumber
	kindDate
	kindStatus
)

// field maps one whitelisted JSON attribute onto its column and Employee field.
type field struct {
	JSON     string
	Column   string
	Kind     kind
	Required bool
	// ptr returns a pointer usable both as a scan destination and as an assignment target:
	// *string, *float64, *time.Time or *int.
	ptr func(e *models.Employee) any
}

// fieldTable drives create, partial update and scanning. Order is column order.
var fieldTable = []field{
	{"Identificacion", "identificacion", kindString, true, func(e *models.Employee) any { return &e.Identificacion }},
	{"Nombre", "nombre", kindString, true, func(e *models.Employee) any { return &e.Nombre }},
	{"Apellido", "apellido", kindString, true, func(e *models.Employee) any { return &e.Apellido }},
	{"Correo", "correo", kindString, true, func(e *models.Employee) any { return &e.Correo }},
	{"Telefono", "telefono", kindString, true, func(e *models.Employee) any { return &e.Telefono }},
	{"FechaNacimiento", "fecha_nacimiento", kindDate, true, func(e *models.Employee) any { return &e.FechaNacimiento.Time }},
	{"Eps", "eps", kindString, true, func(e *models.Employee) any { return &e.Eps }},
	{"Arl", "arl", kindString, true, func(e *models.Employee) any { return &e.Arl }},
	{"Estrato", "estrato", kindString, true, func(e *models.Employee) any { return &e.Estrato }},
	{"Edad", "edad", kindNumber, true, func(e *models.Employee) any { return &e.Edad }},
	{"Hijos", "hijos", kindNumber, true, func(e *models.Employee) any { return &e.Hijos }},
	{"EstadoCivil", "estado_civil", kindString, true, func(e *models.Employee) any { return &e.EstadoCivil }},
	{"TipoSangre", "tipo_sangre", kindString, true, func(e *models.Employee) any { return &e.TipoSangre }},
	{"TipoContrato", "tipo_contrato", kindString, true, func(e *models.Employee) any { return &e.TipoContrato }},
	{"FechaInicioContrato", "fecha_inicio_contrato", kindDate, true, func(e *models.Employee) any { return &e.FechaInicioContrato.Time }},
	{"FechaFinContrato", "fecha_fin_contrato", kindDate, true, func(e *models.Employee) any { return &e.FechaFinContrato.Time }},
	{"CajaCompensacion", "caja_compensacion", kindString, true, func(e *models.Employee) any { return &e.CajaCompensacion }},
	{"FondoPension", "fondo_pension", kindString, true, func(e *models.Employee) any { return &e.FondoPension }},
	{"PerfilProfesional", "perfil_profesional", kindString, true, func(e *models.Employee) any { return &e.PerfilProfesional }},
	{"UltimoPeriodoVacacional", "ultimo_periodo_vacacional", kindDate, true, func(e *models.Employee) any { return &e.UltimoPeriodoVacacional.Time }},
	{"EvaluacionDesempeño", "evaluacion_desempeno", kindString, true, func(e *models.Employee) any { return &e.EvaluacionDesempeno }},
	{"Cargo", "cargo", kindString, true, func(e *models.Employee) any { return &e.Cargo }},
	{"Sueldo", "sueldo", kindNumber, true, func(e *models.Employee) any { return &e.Sueldo }},
	{"FechaIngresoEmpresa", "fecha_ingreso_empresa", kindDate, true, func(e *models.Employee) any { return &e.FechaIngresoEmpresa.Time }},
	{"Ciudad", "ciudad", kindString, true, func(e *models.Employee) any { return &e.Ciudad }},
	{"Sede", "sede", kindString, true, func(e *models.Employee) any { return &e.Sede }},
	{"CertificadoEstudio", "certificado_estudio", kindString, false, func(e *models.Employee) any { return &e.CertificadoEstudio }},
	{"CopiaContrato", "copia_contrato", kindString, false, func(e *models.Employee) any { return &e.CopiaContrato }},
	{"ControlAusentismo", "control_ausentismo", kindString, false, func(e *models.Employee) any { return &e.ControlAusentismo }},
	{"Sanciones", "sanciones", kindString, false, func(e *models.Employee) any { return &e.Sanciones }},
	{"Observaciones", "observaciones", kindString, false, func(e *models.Employee) any { return &e.Observaciones }},
	{"Estado", "estado", kindStatus, false, func(e *models.Employee) any { return (*int)(&e.Estado) }},
}

// Fields is a validated subset of employee attributes keyed by JSON name.
// Values are string, float64, time.Time or int (status) according to the field kind.
type Fields map[string]any

// errAbsent marks a value that counts as not provided (e.g. "" for a number).
var errAbsent = errors.New("absent")

// ParseFields decodes a JSON object through the field table.
// Unknown keys are ignored and null values are treated as absent.
func ParseFields(body []byte) (Fields, error) {
	fields := Fields{}
	if len(bytes.TrimSpace(body)) == 0 {
		return fields, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: body must be a JSON object: %v", models.ErrBadRequest, err)
	}

	for _, f := range fieldTable {
		msg, ok := raw[f.JSON]
		if !ok || string(bytes.TrimSpace(msg)) == "null" {
			continue
		}
		v, err := f.decode(msg)
		if errors.Is(err, errAbsent) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", models.ErrValidation, f.JSON, err)
		}
		fields[f.JSON] = v
	}
	return fields, nil
}

// Missing returns the JSON names of required fields that are absent or empty.
func (fs Fields) Missing() []string {
	var missing []string
	for _, f := range fieldTable {
		if !f.Required {
			continue
		}
		v, ok := fs[f.JSON]
		if !ok {
			missing = append(missing, f.JSON)
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			missing = append(missing, f.JSON)
		}
	}
	return missing
}

// apply copies every present value onto e.
func (fs Fields) apply(e *models.Employee) {
	for _, f := range fieldTable {
		if v, ok := fs[f.JSON]; ok {
			f.assign(e, v)
		}
	}
}

// present returns the table entries set in fs, in column order.
func (fs Fields) present() []field {
	var out []field
	for _, f := range fieldTable {
		if _, ok := fs[f.JSON]; ok {
			out = append(out, f)
		}
	}
	return out
}

func (f field) assign(e *models.Employee, v any) {
	switch p := f.ptr(e).(type) {
	case *string:
		*p = v.(string)
	case *float64:
		*p = v.(float64)
	case *time.Time:
		*p = v.(time.Time)
	case *int:
		*p = v.(int)
	}
}

// value returns the current value of f in e, dereferenced for use as a query argument.
func (f field) value(e *models.Employee) any {
	switch p := f.ptr(e).(type) {
	case *string:
		return *p
	case *float64:
		return *p
	case *time.Time:
		return p.UTC()
	case *int:
		return *p
	}
	return nil
}

func (f field) decode(msg json.RawMessage) (any, error) {
	switch f.Kind {
	case kindString:
		return decodeString(msg)
	case kindNumber:
		return decodeNumber(msg)
	case kindDate:
		return decodeDate(msg)
	case kindStatus:
		return decodeStatus(msg)
	}
	return nil, fmt.Errorf("unknown field kind %d", f.Kind)
}

func decodeString(msg json.RawMessage) (any, error) {
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(msg, &n); err == nil {
		return n.String(), nil
	}
	return nil, errors.New("expected a string")
}

func decodeNumber(msg json.RawMessage) (any, error) {
	var n float64
	if err := json.Unmarshal(msg, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return nil, errors.New("expected a number")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errAbsent
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("expected a number, got %q", s)
	}
	return n, nil
}

// decodeDate accepts a date string or a number of milliseconds since the epoch.
func decodeDate(msg json.RawMessage) (any, error) {
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return nil, errAbsent
		}
		d, err := models.ParseDate(s)
		if err != nil {
			return nil, err
		}
		return d.Time, nil
	}
	var ms int64
	if err := json.Unmarshal(msg, &ms); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return nil, errors.New("expected a date")
}

func decodeStatus(msg json.RawMessage) (any, error) {
	v, err := decodeNumber(msg)
	if err != nil {
		return nil, err
	}
	status := models.Status(int(v.(float64)))
	if float64(status) != v.(float64) || !status.Valid() {
		return nil, fmt.Errorf("must be 0 or 1, got %v", v)
	}
	return int(status), nil
}

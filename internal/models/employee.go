package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Status is the active flag of an employee record.
type Status int

const (
	StatusInactive Status = 0
	StatusActive   Status = 1
)

// Valid reports whether s is one of the two legal values.
func (s Status) Valid() bool {
	return s == StatusInactive || s == StatusActive
}

func (s Status) String() string {
	if s == StatusActive {
		return "activo"
	}
	return "inactivo"
}

// StoredFile references a file held by the storage provider.
type StoredFile struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// DocumentMap maps a logical document slot (e.g. "cedula", "contrato") to a stored file.
type DocumentMap map[string]StoredFile

// Employee is a single "hoja de vida".
// JSON names match what the existing web client sends and reads.
type Employee struct {
	ID                      string      `json:"_id"`
	Identificacion          string      `json:"Identificacion"`
	Nombre                  string      `json:"Nombre"`
	Apellido                string      `json:"Apellido"`
	Correo                  string      `json:"Correo"`
	Telefono                string      `json:"Telefono"`
	FechaNacimiento         Date        `json:"FechaNacimiento"`
	Eps                     string      `json:"Eps"`
	Arl                     string      `json:"Arl"`
	Estrato                 string      `json:"Estrato"`
	Edad                    float64     `json:"Edad"`
	Hijos                   float64     `json:"Hijos"`
	EstadoCivil             string      `json:"EstadoCivil"`
	TipoSangre              string      `json:"TipoSangre"`
	TipoContrato            string      `json:"TipoContrato"`
	FechaInicioContrato     Date        `json:"FechaInicioContrato"`
	FechaFinContrato        Date        `json:"FechaFinContrato"`
	CajaCompensacion        string      `json:"CajaCompensacion"`
	FondoPension            string      `json:"FondoPension"`
	PerfilProfesional       string      `json:"PerfilProfesional"`
	UltimoPeriodoVacacional Date        `json:"UltimoPeriodoVacacional"`
	EvaluacionDesempeno     string      `json:"EvaluacionDesempeño"`
	Cargo                   string      `json:"Cargo"`
	Sueldo                  float64     `json:"Sueldo"`
	FechaIngresoEmpresa     Date        `json:"FechaIngresoEmpresa"`
	Ciudad                  string      `json:"Ciudad"`
	Sede                    string      `json:"Sede"`
	CertificadoEstudio      string      `json:"CertificadoEstudio"`
	CopiaContrato           string      `json:"CopiaContrato"`
	ControlAusentismo       string      `json:"ControlAusentismo"`
	Sanciones               string      `json:"Sanciones"`
	Observaciones           string      `json:"Observaciones"`
	Estado                  Status      `json:"Estado"`
	DocumentUrls            DocumentMap `json:"DocumentUrls,omitempty"`
	CreatedAt               time.Time   `json:"createdAt"`
	UpdatedAt               time.Time   `json:"updatedAt"`
}

// DocumentView is the projection returned when only the documents of a record are requested.
type DocumentView struct {
	ID             string      `json:"_id"`
	Nombre         string      `json:"Nombre"`
	Apellido       string      `json:"Apellido"`
	Identificacion string      `json:"Identificacion"`
	DocumentUrls   DocumentMap `json:"DocumentUrls"`
}

// Date is an instant that also accepts the loose date formats HR forms send
// ("2024-01-31", "2024-01-31T08:00", RFC 3339). It serializes like a JS Date.
type Date struct {
	time.Time
}

const isoLayout = "2006-01-02T15:04:05.000Z"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate parses s with the accepted layouts. The result is in UTC.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t.UTC()}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.UTC().Format(isoLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeTime(d.UTC())
}

func (d *Date) DecodeMsgpack(dec *msgpack.Decoder) error {
	t, err := dec.DecodeTime()
	if err != nil {
		return err
	}
	d.Time = t.UTC()
	return nil
}

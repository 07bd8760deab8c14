// Package records is the employee record store gateway: a small CRUD surface over a
// single employees table, backed by PostgreSQL or an embedded DuckDB database.
package records

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hojasdevida/backend/internal/models"
)

// Store is the record store gateway.
//
//go:generate mockgen -source=store.go -destination=store_mock.go -package=records
type Store interface {
	// Create inserts a new record. Missing required fields and duplicate
	// Identificacion/Correo fail with models.ErrValidation.
	Create(ctx context.Context, fields Fields) (*models.Employee, error)
	// ListAll returns every record in insertion order.
	ListAll(ctx context.Context) ([]*models.Employee, error)
	// ReplaceFields overwrites the given fields of record id and returns the updated record.
	ReplaceFields(ctx context.Context, id string, fields Fields) (*models.Employee, error)
	// SetStatus sets the Estado flag of record id.
	SetStatus(ctx context.Context, id string, status models.Status) (*models.Employee, error)
	// ReplaceDocumentMap replaces the whole document map of record id.
	ReplaceDocumentMap(ctx context.Context, id string, docs models.DocumentMap) (*models.Employee, error)
	// GetDocumentMap returns the document map of record id with its identifying fields.
	GetDocumentMap(ctx context.Context, id string) (*models.DocumentView, error)
	// Ping checks the underlying database.
	Ping(ctx context.Context) error
}

// newEmployee builds the record to insert from validated fields.
func newEmployee(fields Fields, now time.Time) (*models.Employee, error) {
	if missing := fields.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required fields: %s", models.ErrValidation, strings.Join(missing, ", "))
	}

	e := &models.Employee{
		ID:        uuid.NewString(),
		Estado:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields.apply(e)
	return e, nil
}

// checkID rejects identifiers that cannot exist so they resolve to NotFound.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: employee %s", models.ErrNotFound, id)
	}
	return nil
}

func checkDocuments(docs models.DocumentMap) error {
	if len(docs) == 0 {
		return fmt.Errorf("%w: no documents provided", models.ErrBadRequest)
	}
	return nil
}

func documentView(e *models.Employee) *models.DocumentView {
	docs := e.DocumentUrls
	if docs == nil {
		docs = models.DocumentMap{}
	}
	return &models.DocumentView{
		ID:             e.ID,
		Nombre:         e.Nombre,
		Apellido:       e.Apellido,
		Identificacion: e.Identificacion,
		DocumentUrls:   docs,
	}
}

// uniqueField names the attribute behind a unique-constraint violation message.
func uniqueField(detail string) string {
	detail = strings.ToLower(detail)
	switch {
	case strings.Contains(detail, "identificacion"):
		return "Identificacion"
	case strings.Contains(detail, "correo"):
		return "Correo"
	default:
		return "registro"
	}
}

func duplicateError(detail string) error {
	return fmt.Errorf("%w: %s already exists", models.ErrValidation, uniqueField(detail))
}

package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/marcboeker/go-duckdb"

	"github.com/hojasdevida/backend/internal/models"
)

// DuckStore implements Store on an embedded DuckDB database opened by database.OpenDuckDB.
// The embedded schema has no unique indexes on identificacion and correo, so the
// store checks them itself with writes serialized by mu.
type DuckStore struct {
	db  *sql.DB
	now func() time.Time
	mu  sync.Mutex
}

// uniqueColumns are the attributes no two records may share.
var uniqueColumns = []struct{ json, column string }{
	{"Identificacion", "identificacion"},
	{"Correo", "correo"},
}

// NewDuckStore wraps db, which must already carry the employees schema.
func NewDuckStore(db *sql.DB) *DuckStore {
	return &DuckStore{db: db, now: time.Now}
}

func (s *DuckStore) Create(ctx context.Context, fields Fields) (*models.Employee, error) {
	e, err := newEmployee(fields, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var created *models.Employee
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := checkUnique(ctx, tx, e.ID, fields); err != nil {
			return err
		}
		var err error
		created, err = scanEmployee(tx.QueryRowContext(ctx, insertSQL, insertArgs(e)...))
		if err != nil {
			return mapDuckError(err, "inserting employee")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *DuckStore) ListAll(ctx context.Context) ([]*models.Employee, error) {
	rows, err := s.db.QueryContext(ctx, listSQL)
	if err != nil {
		return nil, mapDuckError(err, "listing employees")
	}
	defer rows.Close()

	list := make([]*models.Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, mapDuckError(err, "scanning employee")
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDuckError(err, "listing employees")
	}
	return list, nil
}

func (s *DuckStore) ReplaceFields(ctx context.Context, id string, fields Fields) (*models.Employee, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return s.get(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var e *models.Employee
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := scanEmployee(tx.QueryRowContext(ctx, getSQL, id)); err != nil {
			return mapDuckError(err, "loading employee "+id)
		}
		if err := checkUnique(ctx, tx, id, fields); err != nil {
			return err
		}

		query, args := updateStatement(id, fields, s.now())
		var err error
		e, err = scanEmployee(tx.QueryRowContext(ctx, query, args...))
		if err != nil {
			return mapDuckError(err, "updating employee "+id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *DuckStore) SetStatus(ctx context.Context, id string, status models.Status) (*models.Employee, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %d", models.ErrValidation, status)
	}
	if err := checkID(id); err != nil {
		return nil, err
	}

	e, err := scanEmployee(s.db.QueryRowContext(ctx, statusSQL, id, int(status), s.now().UTC()))
	if err != nil {
		return nil, mapDuckError(err, "setting status of employee "+id)
	}
	return e, nil
}

func (s *DuckStore) ReplaceDocumentMap(ctx context.Context, id string, docs models.DocumentMap) (*models.Employee, error) {
	if err := checkDocuments(docs); err != nil {
		return nil, err
	}
	if err := checkID(id); err != nil {
		return nil, err
	}

	encoded, err := encodeDocuments(docs)
	if err != nil {
		return nil, err
	}
	e, err := scanEmployee(s.db.QueryRowContext(ctx, documentsSQL, id, encoded, s.now().UTC()))
	if err != nil {
		return nil, mapDuckError(err, "replacing documents of employee "+id)
	}
	return e, nil
}

func (s *DuckStore) GetDocumentMap(ctx context.Context, id string) (*models.DocumentView, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return documentView(e), nil
}

func (s *DuckStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *DuckStore) get(ctx context.Context, id string) (*models.Employee, error) {
	e, err := scanEmployee(s.db.QueryRowContext(ctx, getSQL, id))
	if err != nil {
		return nil, mapDuckError(err, "loading employee "+id)
	}
	return e, nil
}

func (s *DuckStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapDuckError(err, "beginning transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapDuckError(err, "committing transaction")
	}
	return nil
}

// checkUnique rejects unique values in fields already held by a record other than id.
func checkUnique(ctx context.Context, tx *sql.Tx, id string, fields Fields) error {
	for _, u := range uniqueColumns {
		v, ok := fields[u.json]
		if !ok {
			continue
		}
		var taken int
		err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM employees WHERE "+u.column+" = $1 AND id <> $2 LIMIT 1", v, id).Scan(&taken)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return mapDuckError(err, "checking "+u.column)
		default:
			return duplicateError(u.column)
		}
	}
	return nil
}

func mapDuckError(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", models.ErrNotFound, op)
	}
	var duckErr *duckdb.Error
	if errors.As(err, &duckErr) && duckErr.Type == duckdb.ErrorTypeConstraint {
		return duplicateError(duckErr.Msg)
	}
	if strings.Contains(err.Error(), "Constraint Error") {
		return duplicateError(err.Error())
	}
	return fmt.Errorf("%w: %s: %w", models.ErrUpstream, op, err)
}

package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hojasdevida/backend/internal/models"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore creates a store on an already connected and migrated pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

func (s *PostgresStore) Create(ctx context.Context, fields Fields) (*models.Employee, error) {
	e, err := newEmployee(fields, s.now().UTC())
	if err != nil {
		return nil, err
	}

	created, err := scanEmployee(s.pool.QueryRow(ctx, insertSQL, insertArgs(e)...))
	if err != nil {
		return nil, mapPgError(err, "inserting employee")
	}
	return created, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Employee, error) {
	rows, err := s.pool.Query(ctx, listSQL)
	if err != nil {
		return nil, mapPgError(err, "listing employees")
	}
	defer rows.Close()

	list := make([]*models.Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, mapPgError(err, "scanning employee")
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "listing employees")
	}
	return list, nil
}

func (s *PostgresStore) ReplaceFields(ctx context.Context, id string, fields Fields) (*models.Employee, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return s.get(ctx, id)
	}

	query, args := updateStatement(id, fields, s.now())
	e, err := scanEmployee(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapPgError(err, "updating employee "+id)
	}
	return e, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, id string, status models.Status) (*models.Employee, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %d", models.ErrValidation, status)
	}
	if err := checkID(id); err != nil {
		return nil, err
	}

	e, err := scanEmployee(s.pool.QueryRow(ctx, statusSQL, id, int(status), s.now().UTC()))
	if err != nil {
		return nil, mapPgError(err, "setting status of employee "+id)
	}
	return e, nil
}

func (s *PostgresStore) ReplaceDocumentMap(ctx context.Context, id string, docs models.DocumentMap) (*models.Employee, error) {
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
	e, err := scanEmployee(s.pool.QueryRow(ctx, documentsSQL, id, encoded, s.now().UTC()))
	if err != nil {
		return nil, mapPgError(err, "replacing documents of employee "+id)
	}
	return e, nil
}

func (s *PostgresStore) GetDocumentMap(ctx context.Context, id string) (*models.DocumentView, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return documentView(e), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) get(ctx context.Context, id string) (*models.Employee, error) {
	e, err := scanEmployee(s.pool.QueryRow(ctx, getSQL, id))
	if err != nil {
		return nil, mapPgError(err, "loading employee "+id)
	}
	return e, nil
}

func mapPgError(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", models.ErrNotFound, op)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return duplicateError(pgErr.ConstraintName + " " + pgErr.Detail)
	}
	return fmt.Errorf("%w: %s: %w", models.ErrUpstream, op, err)
}

package records

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hojasdevida/backend/internal/models"
)

// Statements shared by the postgres and duckdb stores. Both accept $n placeholders.
var (
	selectColumns = buildSelectColumns()
	insertSQL     = buildInsertSQL()
	listSQL       = "SELECT " + selectColumns + " FROM employees ORDER BY seq"
	getSQL        = "SELECT " + selectColumns + " FROM employees WHERE id = $1"
	statusSQL     = "UPDATE employees SET estado = $2, updated_at = $3 WHERE id = $1 RETURNING " + selectColumns
	documentsSQL  = "UPDATE employees SET documents = $2, updated_at = $3 WHERE id = $1 RETURNING " + selectColumns
)

func buildSelectColumns() string {
	cols := []string{"CAST(id AS TEXT)"}
	for _, f := range fieldTable {
		cols = append(cols, f.Column)
	}
	cols = append(cols, "CAST(documents AS TEXT)", "created_at", "updated_at")
	return strings.Join(cols, ", ")
}

func buildInsertSQL() string {
	cols := []string{"id"}
	for _, f := range fieldTable {
		cols = append(cols, f.Column)
	}
	cols = append(cols, "created_at", "updated_at")

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO employees (%s) VALUES (%s) RETURNING %s",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "), selectColumns)
}

func insertArgs(e *models.Employee) []any {
	args := []any{e.ID}
	for _, f := range fieldTable {
		args = append(args, f.value(e))
	}
	return append(args, e.CreatedAt.UTC(), e.UpdatedAt.UTC())
}

// updateStatement builds a partial update for the fields present, in column order.
func updateStatement(id string, fields Fields, now time.Time) (string, []any) {
	var scratch models.Employee
	fields.apply(&scratch)

	args := []any{id}
	var sets []string
	for _, f := range fields.present() {
		args = append(args, f.value(&scratch))
		sets = append(sets, fmt.Sprintf("%s = $%d", f.Column, len(args)))
	}
	args = append(args, now.UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	return fmt.Sprintf("UPDATE employees SET %s WHERE id = $1 RETURNING %s",
		strings.Join(sets, ", "), selectColumns), args
}

func encodeDocuments(docs models.DocumentMap) (string, error) {
	data, err := json.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("encoding documents: %w", err)
	}
	return string(data), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*models.Employee, error) {
	e := &models.Employee{}
	var docs *string

	dest := make([]any, 0, len(fieldTable)+4)
	dest = append(dest, &e.ID)
	for _, f := range fieldTable {
		dest = append(dest, f.ptr(e))
	}
	dest = append(dest, &docs, &e.CreatedAt, &e.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	normalizeTimes(e)
	if docs != nil && *docs != "" && *docs != "null" {
		if err := json.Unmarshal([]byte(*docs), &e.DocumentUrls); err != nil {
			return nil, fmt.Errorf("decoding documents of %s: %w", e.ID, err)
		}
	}
	return e, nil
}

func normalizeTimes(e *models.Employee) {
	for _, f := range fieldTable {
		if p, ok := f.ptr(e).(*time.Time); ok {
			*p = p.UTC()
		}
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
}
